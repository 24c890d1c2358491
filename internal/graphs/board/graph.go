// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package board

import (
	"context"
	"fmt"
	"time"

	"workspace-assistant/internal/store"
	"workspace-assistant/pkg/workflow"
)

// Graph is the Board Visualization agent.
type Graph struct {
	executor *workflow.Executor[State]
}

// New builds and validates the Board Visualization graph.
func New(d Deps) (*Graph, error) {
	g := workflow.NewGraph[State]()

	nodes := []workflow.Node[State]{
		&loadTasksNode{d},
		&generateVisualizationNode{d},
		&formatOutputNode{d},
		&createSummaryNode{d},
		&errorNode{d},
	}
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.Name(), err)
		}
	}

	if err := g.SetStart("load_tasks"); err != nil {
		return nil, err
	}
	if err := g.AddConditionalEdge("load_tasks", afterLoadTasks, map[string]string{
		"generate": "generate_visualization",
		"error":    "error",
	}); err != nil {
		return nil, err
	}
	if err := g.AddConditionalEdge("generate_visualization", afterGenerateVisualization, map[string]string{
		"format": "format_output",
		"error":  "error",
	}); err != nil {
		return nil, err
	}
	if err := g.AddEdge("format_output", "create_summary"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("create_summary", workflow.Terminal); err != nil {
		return nil, err
	}
	if err := g.AddEdge("error", workflow.Terminal); err != nil {
		return nil, err
	}

	exec, err := workflow.NewExecutor(g, &workflow.ExecutorConfig{Timeout: 2 * time.Minute})
	if err != nil {
		return nil, err
	}
	return &Graph{executor: exec}, nil
}

func afterGenerateVisualization(s *State) string {
	if s.Error != nil {
		return "error"
	}
	return "format"
}

// Visualize is the Board Visualization agent's public entry point.
func (g *Graph) Visualize(ctx context.Context, workspaceID, query string, chartType ChartType, filters store.TaskFilters) (*State, error) {
	initial := &State{
		WorkspaceID: workspaceID,
		Query:       query,
		ChartType:   chartType,
		Filters:     filters,
	}
	return g.executor.Execute(ctx, initial)
}
