// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package orchestrator

import (
	"context"
	"fmt"
	"time"

	"workspace-assistant/pkg/workflow"
)

// Graph is the orchestrator: detect intent, plan, execute steps
// (concurrently within a round where dependencies allow), and synthesize.
type Graph struct {
	executor *workflow.Executor[State]
}

// New builds and validates the orchestrator graph.
func New(d Deps) (*Graph, error) {
	g := workflow.NewGraph[State]()

	nodes := []workflow.Node[State]{
		&detectIntentNode{d},
		&createPlanNode{d},
		&executeStepNode{d},
		&synthesizeNode{d},
		&errorNode{d},
	}
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.Name(), err)
		}
	}

	if err := g.SetStart("detect_intent"); err != nil {
		return nil, err
	}
	if err := g.AddConditionalEdge("detect_intent", afterDetectIntent, map[string]string{
		"plan":  "create_plan",
		"error": "error",
	}); err != nil {
		return nil, err
	}
	if err := g.AddConditionalEdge("create_plan", afterCreatePlan, map[string]string{
		"execute": "execute_step",
		"error":   "error",
	}); err != nil {
		return nil, err
	}
	if err := g.AddConditionalEdge("execute_step", afterExecuteStep, map[string]string{
		"synthesize": "synthesize",
		"error":      "error",
	}); err != nil {
		return nil, err
	}
	if err := g.AddEdge("synthesize", workflow.Terminal); err != nil {
		return nil, err
	}
	if err := g.AddEdge("error", workflow.Terminal); err != nil {
		return nil, err
	}

	exec, err := workflow.NewExecutor(g, &workflow.ExecutorConfig{Timeout: 3 * time.Minute})
	if err != nil {
		return nil, err
	}
	return &Graph{executor: exec}, nil
}

// Response is the orchestrator's public answer shape.
type Response struct {
	Answer   string
	Metadata map[string]interface{}
}

// Query is the orchestrator's public entry point: detect intent, plan,
// execute, and synthesize an answer for a workspace query.
func (g *Graph) Query(ctx context.Context, workspaceID, userID, sessionID, query string, history []ConversationMessage, documentContext map[string]interface{}) (*Response, error) {
	initial := &State{
		WorkspaceID:         workspaceID,
		UserID:              userID,
		SessionID:           sessionID,
		Query:               query,
		ConversationHistory: history,
		DocumentContext:     documentContext,
		Metadata:            map[string]interface{}{},
		completedSteps:      map[string]bool{},
	}

	final, err := g.executor.Execute(ctx, initial)
	if err != nil {
		return nil, err
	}

	metadata := final.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadata["workspace_id"] = workspaceID
	metadata["query"] = query
	if final.Intent != nil {
		metadata["intent"] = final.Intent
	}
	if final.Plan != nil {
		metadata["execution_plan"] = final.Plan
	}
	metadata["step_results"] = final.StepResults
	if final.Error != nil {
		metadata["error"] = final.Error.Error()
	}

	answer := final.FinalAnswer
	if answer == "" {
		answer = errorMessages["execution_failed"]
	}
	return &Response{Answer: answer, Metadata: metadata}, nil
}
