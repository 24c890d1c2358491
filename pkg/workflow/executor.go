// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package workflow

import (
	"context"
	"fmt"
	"time"
)

// maxIterations is a hard safety cap independent of any particular graph's
// size, guarding against a future conditional edge accidentally forming a
// runtime cycle that Validate's static check cannot see (a Condition that
// always returns the same label pointing back at an ancestor).
const maxIterations = 1000

// Executor runs a validated Graph against one state value.
type Executor[S any] struct {
	graph   *Graph[S]
	timeout time.Duration
}

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	// Timeout bounds one Execute call. Zero disables the timeout.
	Timeout time.Duration
}

// NewExecutor creates an executor for graph. The graph is validated as
// acyclic; callers should construct graphs once at startup and reuse the
// resulting Executor across requests (Execute is reentrant).
func NewExecutor[S any](graph *Graph[S], config *ExecutorConfig) (*Executor[S], error) {
	if graph == nil {
		return nil, fmt.Errorf("graph is nil")
	}
	if err := graph.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	if config == nil {
		config = &ExecutorConfig{Timeout: 2 * time.Minute}
	}
	return &Executor[S]{graph: graph, timeout: config.Timeout}, nil
}

// Execute runs the graph starting at its entry node until a terminal edge
// is reached, returning the final state.
func (e *Executor[S]) Execute(ctx context.Context, initialState *S) (*S, error) {
	if initialState == nil {
		return nil, fmt.Errorf("initial state is nil")
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	currentNodeName := e.graph.GetStartNode()
	if currentNodeName == "" {
		return nil, fmt.Errorf("no start node defined")
	}

	state := initialState

	for iteration := 0; ; iteration++ {
		select {
		case <-ctx.Done():
			return state, fmt.Errorf("execution timeout or cancelled: %w", ctx.Err())
		default:
		}

		if iteration >= maxIterations {
			return state, fmt.Errorf("exceeded maximum iteration count (%d)", maxIterations)
		}

		node, err := e.graph.GetNode(currentNodeName)
		if err != nil {
			return state, fmt.Errorf("failed to get node %s: %w", currentNodeName, err)
		}

		result, err := node.Execute(ctx, state)
		if err != nil {
			return state, fmt.Errorf("node %s execution failed: %w", currentNodeName, err)
		}
		if result == nil || result.UpdatedState == nil {
			return state, fmt.Errorf("node %s returned no state", currentNodeName)
		}
		state = result.UpdatedState

		next := result.NextNode
		if next == "" {
			next, err = e.next(currentNodeName, state)
			if err != nil {
				return state, err
			}
		}

		if next == Terminal || next == "" {
			return state, nil
		}
		currentNodeName = next
	}
}

// next resolves the static or conditional edge out of name.
func (e *Executor[S]) next(name string, state *S) (string, error) {
	edge, ok := e.graph.edges[name]
	if !ok {
		return Terminal, nil
	}
	if edge.Condition != nil {
		label := edge.Condition(state)
		to, ok := edge.Routes[label]
		if !ok {
			return "", fmt.Errorf("node %s: no route for label %q", name, label)
		}
		return to, nil
	}
	if edge.To == "" {
		return Terminal, nil
	}
	return edge.To, nil
}
