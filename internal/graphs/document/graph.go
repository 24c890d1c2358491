// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package document

import (
	"context"
	"fmt"
	"time"

	"workspace-assistant/pkg/workflow"
)

// Graph is the Document QA agent: a validated workflow.Graph plus the
// executor that runs it.
type Graph struct {
	executor *workflow.Executor[State]
}

// New builds and validates the Document QA graph.
func New(d Deps) (*Graph, error) {
	g := workflow.NewGraph[State]()

	nodes := []workflow.Node[State]{
		&reformulateNode{d},
		&retrieveNode{d},
		&memoryRetrievalNode{d},
		&rerankNode{d},
		&generateNode{d},
		&fallbackNode{d},
	}
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.Name(), err)
		}
	}

	if err := g.SetStart("reformulate_query"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("reformulate_query", "retrieve"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("retrieve", "memory_retrieval"); err != nil {
		return nil, err
	}
	if err := g.AddConditionalEdge("memory_retrieval", afterMemoryRetrieval, map[string]string{
		"fallback": "fallback",
		"rerank":   "rerank",
	}); err != nil {
		return nil, err
	}
	if err := g.AddConditionalEdge("rerank", afterRerank, map[string]string{
		"generate": "generate",
		"fallback": "fallback",
	}); err != nil {
		return nil, err
	}
	if err := g.AddEdge("generate", workflow.Terminal); err != nil {
		return nil, err
	}
	if err := g.AddEdge("fallback", workflow.Terminal); err != nil {
		return nil, err
	}

	exec, err := workflow.NewExecutor(g, &workflow.ExecutorConfig{Timeout: 2 * time.Minute})
	if err != nil {
		return nil, err
	}
	return &Graph{executor: exec}, nil
}

// Query is the Document QA agent's public entry point.
func (g *Graph) Query(ctx context.Context, query, workspaceID, userID, sessionID string) (*State, error) {
	initial := &State{
		Query:       query,
		WorkspaceID: workspaceID,
		UserID:      userID,
		SessionID:   sessionID,
		Stats:       map[string]interface{}{},
	}
	return g.executor.Execute(ctx, initial)
}
