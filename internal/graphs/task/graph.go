// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package task

import (
	"context"
	"fmt"
	"time"

	"workspace-assistant/pkg/workflow"
)

// Graph is the Task Analysis agent.
type Graph struct {
	executor *workflow.Executor[State]
}

// New builds and validates the Task Analysis graph.
func New(d Deps) (*Graph, error) {
	g := workflow.NewGraph[State]()

	nodes := []workflow.Node[State]{
		&loadSchemaNode{d},
		&generateSQLNode{d},
		&executeSQLNode{d},
		&analyzeResultsNode{d},
		&noResultsNode{d},
		&errorNode{d},
	}
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.Name(), err)
		}
	}

	if err := g.SetStart("load_schema"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("load_schema", "generate_sql"); err != nil {
		return nil, err
	}
	if err := g.AddConditionalEdge("generate_sql", afterGenerateSQL, map[string]string{
		"execute_sql": "execute_sql",
		"error":       "error",
	}); err != nil {
		return nil, err
	}
	if err := g.AddConditionalEdge("execute_sql", afterExecuteSQL, map[string]string{
		"analyze_results": "analyze_results",
		"no_results":      "no_results",
		"error":           "error",
	}); err != nil {
		return nil, err
	}
	if err := g.AddEdge("analyze_results", workflow.Terminal); err != nil {
		return nil, err
	}
	if err := g.AddEdge("no_results", workflow.Terminal); err != nil {
		return nil, err
	}
	if err := g.AddEdge("error", workflow.Terminal); err != nil {
		return nil, err
	}

	exec, err := workflow.NewExecutor(g, &workflow.ExecutorConfig{Timeout: 90 * time.Second})
	if err != nil {
		return nil, err
	}
	return &Graph{executor: exec}, nil
}

// Query is the Task Analysis agent's public entry point.
func (g *Graph) Query(ctx context.Context, query, workspaceID string) (*State, error) {
	initial := &State{Query: query, WorkspaceID: workspaceID}
	return g.executor.Execute(ctx, initial)
}
