// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"workspace-assistant/internal/graphs/board"
	"workspace-assistant/internal/graphs/document"
	"workspace-assistant/internal/graphs/task"
	"workspace-assistant/internal/llmparse"
	"workspace-assistant/internal/store"
	"workspace-assistant/pkg/llm"
	"workspace-assistant/pkg/workflow"
)

// Deps are the agent graphs and LLM the orchestrator coordinates.
type Deps struct {
	LLM      llm.Provider
	Document *document.Graph
	Task     *task.Graph
	Board    *board.Graph
}

type detectIntentNode struct{ d Deps }

func (n *detectIntentNode) Name() string { return "detect_intent" }

func (n *detectIntentNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	resp, err := n.d.LLM.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: intentPrompt(s)},
		},
		Temperature: 0.2,
		MaxTokens:   500,
	})
	if err != nil {
		s.Error = fmt.Errorf("intent detection failed: %w", err)
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}

	obj, err := llmparse.ExtractJSONObject(resp.Content)
	if err != nil {
		s.Error = fmt.Errorf("intent detection failed: %w", err)
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}

	var raw struct {
		Type                  string                 `json:"type"`
		Confidence            float64                `json:"confidence"`
		Agent                 string                 `json:"agent"`
		Reasoning             string                 `json:"reasoning"`
		Entities              map[string]interface{} `json:"entities"`
		RequiresDecomposition bool                   `json:"requires_decomposition"`
		RequiresAgents        *bool                  `json:"requires_agents"`
	}
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		s.Error = fmt.Errorf("intent detection failed: %w", err)
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}

	agent := AgentType(llmparse.OneOf(raw.Agent, string(AgentBoth), validAgents...))
	intentType := IntentType(llmparse.OneOf(raw.Type, string(IntentDocumentQuery), validIntentTypes...))
	confidence := raw.Confidence
	requiresAgents := true
	if raw.RequiresAgents != nil {
		requiresAgents = *raw.RequiresAgents
	}

	if intentType == IntentUnknown {
		if !requiresAgents {
			confidence = 1.0
		} else {
			intentType = IntentDocumentQuery
			confidence = 0.5
		}
	}

	s.Intent = &Intent{
		Type:                  intentType,
		Confidence:            confidence,
		Agent:                 agent,
		Reasoning:             raw.Reasoning,
		Entities:              raw.Entities,
		RequiresDecomposition: raw.RequiresDecomposition,
		RequiresAgents:        requiresAgents,
	}
	s.IntentConfidence = confidence
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

// afterDetectIntent mirrors the small-talk short-circuit and confidence
// gate applied before planning.
func afterDetectIntent(s *State) string {
	if s.Error != nil || s.Intent == nil {
		return "error"
	}
	if trySmallTalk(s) {
		return "error"
	}
	if s.IntentConfidence < 0.3 {
		s.Error = errors.New(errorMessages["low_confidence"])
		return "error"
	}
	return "plan"
}

// trySmallTalk answers a greeting or out-of-scope query directly, without
// invoking any agent, and reports whether it did so.
func trySmallTalk(s *State) bool {
	if s.Intent.Type != IntentUnknown || s.Intent.RequiresDecomposition {
		return false
	}

	queryLower := strings.ToLower(strings.TrimSpace(s.Query))
	response, ok := smallTalkResponses[queryLower]
	if !ok {
		for key, val := range smallTalkResponses {
			if strings.Contains(queryLower, key) && len(queryLower) < 20 {
				response = val
				ok = true
				break
			}
		}
	}
	if !ok {
		response = errorMessages["low_confidence"]
	}
	s.FinalAnswer = response
	return true
}

type createPlanNode struct{ d Deps }

func (n *createPlanNode) Name() string { return "create_plan" }

func (n *createPlanNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	resp, err := n.d.LLM.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: planPrompt(s.Intent, s.Query, s.WorkspaceID)},
		},
		Temperature: 0.3,
		MaxTokens:   1200,
	})
	if err != nil {
		s.Error = fmt.Errorf("planning failed: %w", err)
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}

	obj, err := llmparse.ExtractJSONObject(resp.Content)
	if err != nil {
		s.Error = fmt.Errorf("planning failed: %w", err)
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}

	var plan ExecutionPlan
	if err := json.Unmarshal([]byte(obj), &plan); err != nil {
		s.Error = fmt.Errorf("planning failed: %w", err)
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}
	if len(plan.Steps) == 0 {
		s.Error = fmt.Errorf("planning failed: model returned no steps")
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}

	plan.OriginalQuery = s.Query
	for i := range plan.Steps {
		step := &plan.Steps[i]
		step.Agent = AgentType(llmparse.OneOf(string(step.Agent), defaultAgentForStep(step.Type), validAgents...))
		step.Type = StepType(llmparse.OneOf(string(step.Type), string(StepQueryDocument), validStepTypes...))
	}

	s.Plan = &plan
	s.StepResults = nil
	s.completedSteps = map[string]bool{}
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

func defaultAgentForStep(t StepType) string {
	switch t {
	case StepQueryTask:
		return string(AgentTask)
	case StepQueryBoard:
		return string(AgentBoard)
	case StepSynthesize, StepValidate:
		return string(AgentBoth)
	default:
		return string(AgentDocument)
	}
}

func afterCreatePlan(s *State) string {
	if s.Error != nil || s.Plan == nil {
		return "error"
	}
	return "execute"
}

type executeStepNode struct{ d Deps }

func (n *executeStepNode) Name() string { return "execute_step" }

// Execute runs the whole plan to completion: each round dispatches every
// step whose dependencies are already satisfied concurrently, then the
// next round picks up whatever that unblocked, until every step is
// completed or no remaining step can become ready. A step whose
// dependency failed is recorded as failed without being dispatched, so a
// failed dependency does not stop the loop. Results are recorded back in
// the plan's original step order regardless of which goroutine in a round
// finishes first, so the recorded list stays deterministic across runs.
// The graph itself has no back-edge to this node (its execution engine
// requires a DAG); the round-to-round loop lives here instead.
func (n *executeStepNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	for len(s.completedSteps) < len(s.Plan.Steps) {
		ready := n.readySteps(s)
		if len(ready) == 0 {
			break
		}

		results := make(map[string]StepResult, len(ready))
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for _, step := range ready {
			step := step
			g.Go(func() error {
				result := n.executeOne(gctx, s, step)
				mu.Lock()
				results[step.StepID] = result
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		for _, step := range s.Plan.Steps {
			if result, ok := results[step.StepID]; ok {
				s.StepResults = append(s.StepResults, result)
				s.completedSteps[step.StepID] = true
			}
		}
	}
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

// readySteps returns the not-yet-completed steps whose dependencies have
// all completed successfully. A step whose dependency failed is reported
// as a failed step immediately, without dispatch, so the round still
// makes progress instead of stalling.
func (n *executeStepNode) readySteps(s *State) []ExecutionStep {
	successful := map[string]bool{}
	for _, r := range s.StepResults {
		if r.Success {
			successful[r.StepID] = true
		}
	}

	var ready []ExecutionStep
	for _, step := range s.Plan.Steps {
		if s.completedSteps[step.StepID] {
			continue
		}
		blocked := false
		satisfied := true
		var failedDep string
		for _, dep := range step.Dependencies {
			if s.completedSteps[dep] && !successful[dep] {
				blocked = true
				failedDep = dep
				break
			}
			if !successful[dep] {
				satisfied = false
			}
		}
		if blocked {
			s.StepResults = append(s.StepResults, StepResult{
				StepID: step.StepID,
				Error:  fmt.Sprintf("dependency of step %s failed", failedDep),
			})
			s.completedSteps[step.StepID] = true
			continue
		}
		if satisfied {
			ready = append(ready, step)
		}
	}
	return ready
}

func (n *executeStepNode) executeOne(ctx context.Context, s *State, step ExecutionStep) StepResult {
	var data map[string]interface{}
	var err error

	switch step.Type {
	case StepQueryDocument, StepDocumentCompletion:
		data, err = n.runDocument(ctx, s, step)
	case StepQueryTask:
		data, err = n.runTask(ctx, s, step)
	case StepQueryBoard:
		data, err = n.runBoard(ctx, s, step)
	case StepSynthesize, StepValidate:
		data = map[string]interface{}{"acknowledged": true}
	default:
		err = fmt.Errorf("unknown step type %q", step.Type)
	}

	if err != nil {
		return StepResult{StepID: step.StepID, Success: false, Error: err.Error()}
	}
	return StepResult{StepID: step.StepID, Success: true, Result: data}
}

func (n *executeStepNode) runDocument(ctx context.Context, s *State, step ExecutionStep) (map[string]interface{}, error) {
	if n.d.Document == nil {
		return nil, fmt.Errorf("document agent not available")
	}
	result, err := n.d.Document.Query(ctx, step.Query, s.WorkspaceID, s.UserID, s.SessionID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"answer": result.Answer, "citations": result.Citations, "confidence": result.Confidence}, nil
}

func (n *executeStepNode) runTask(ctx context.Context, s *State, step ExecutionStep) (map[string]interface{}, error) {
	if n.d.Task == nil {
		return nil, fmt.Errorf("task agent not available")
	}
	result, err := n.d.Task.Query(ctx, step.Query, s.WorkspaceID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"answer": result.Answer, "row_count": result.RowCount, "confidence": result.Confidence}, nil
}

func (n *executeStepNode) runBoard(ctx context.Context, s *State, step ExecutionStep) (map[string]interface{}, error) {
	if n.d.Board == nil {
		return nil, fmt.Errorf("board agent not available")
	}
	result, err := n.d.Board.Visualize(ctx, s.WorkspaceID, step.Query, inferChartType(step.Query), store.TaskFilters{})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"answer": result.MarkdownOutput, "summary": result.Summary}, nil
}

func inferChartType(query string) board.ChartType {
	lower := strings.ToLower(query)
	switch {
	case strings.Contains(lower, "gantt"):
		return board.ChartGantt
	case strings.Contains(lower, "flowchart") || strings.Contains(lower, "flow chart"):
		return board.ChartFlowchart
	case strings.Contains(lower, "sequence"):
		return board.ChartSequence
	case strings.Contains(lower, "state diagram") || strings.Contains(lower, "state machine"):
		return board.ChartState
	case strings.Contains(lower, "timeline"):
		return board.ChartTimeline
	default:
		return board.ChartKanban
	}
}

// afterExecuteStep decides whether the plan finished cleanly or a
// depended-upon step failure aborted it early.
func afterExecuteStep(s *State) string {
	if s.Error != nil {
		return "error"
	}
	if s.criticalFailure() {
		return "error"
	}
	return "synthesize"
}

// criticalFailure reports whether any failed step has a not-yet-completed
// dependent, and records the error on the state if so.
func (s *State) criticalFailure() bool {
	for _, r := range s.StepResults {
		if r.Success {
			continue
		}
		for _, step := range s.Plan.Steps {
			for _, dep := range step.Dependencies {
				if dep == r.StepID && !s.completedSteps[step.StepID] {
					s.Error = fmt.Errorf("critical step %s failed", r.StepID)
					return true
				}
			}
		}
	}
	return false
}

type synthesizeNode struct{ d Deps }

func (n *synthesizeNode) Name() string { return "synthesize" }

func (n *synthesizeNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	if s.FinalAnswer != "" {
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}

	if !s.Plan.RequiresSynthesis && len(s.StepResults) == 1 {
		r := s.StepResults[0]
		if r.Success {
			if answer, ok := r.Result["answer"].(string); ok {
				s.FinalAnswer = answer
				return &workflow.NodeResult[State]{UpdatedState: s}, nil
			}
		}
		s.FinalAnswer = fmt.Sprintf("%v", r.Result)
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}

	resp, err := n.d.LLM.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: synthesisPrompt(s.Query, s.StepResults)},
		},
		Temperature: 0.4,
		MaxTokens:   1200,
	})
	if err != nil {
		s.Error = fmt.Errorf("synthesis failed: %w", err)
		s.FinalAnswer = fmt.Sprintf("I encountered an error while synthesizing the answer: %v", err)
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}

	s.FinalAnswer = strings.TrimSpace(resp.Content)

	successful, failed := 0, 0
	for _, r := range s.StepResults {
		if r.Success {
			successful++
		} else {
			failed++
		}
	}
	s.Metadata = map[string]interface{}{
		"steps_executed":   len(s.StepResults),
		"successful_steps": successful,
		"failed_steps":     failed,
		"intent_type":      s.Intent.Type,
		"complexity":       s.Plan.EstimatedComplexity,
	}
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

type errorNode struct{ d Deps }

func (n *errorNode) Name() string { return "error" }

func (n *errorNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	if s.FinalAnswer != "" {
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}

	log.Error().Err(s.Error).Str("workspace_id", s.WorkspaceID).Str("query", s.Query).Msg("orchestrator run failed")

	msg := errorMessages["execution_failed"]
	if s.Error != nil {
		lower := strings.ToLower(s.Error.Error())
		switch {
		case strings.Contains(lower, "intent"):
			msg = errorMessages["no_intent"]
		case strings.Contains(lower, "plan"):
			msg = errorMessages["planning_failed"]
		case strings.Contains(lower, errorMessages["low_confidence"]):
			msg = errorMessages["low_confidence"]
		}
	}
	s.FinalAnswer = msg
	if s.Metadata == nil {
		s.Metadata = map[string]interface{}{}
	}
	if s.Error != nil {
		s.Metadata["error"] = s.Error.Error()
	}
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}
