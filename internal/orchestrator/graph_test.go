// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package orchestrator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workspace-assistant/internal/orchestrator"
	"workspace-assistant/pkg/llm"
)

type scriptedLLM struct {
	responses []string
	calls     int
}

func (s *scriptedLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	i := s.calls
	s.calls++
	content := ""
	if i < len(s.responses) {
		content = s.responses[i]
	}
	return &llm.CompletionResponse{Content: content}, nil
}
func (s *scriptedLLM) Name() string            { return "scripted" }
func (s *scriptedLLM) ModelName() string       { return "scripted-model" }
func (s *scriptedLLM) SupportsStreaming() bool { return false }

const intentHybridJSON = `{"type": "hybrid_query", "confidence": 0.9, "agent": "both", ` +
	`"reasoning": "needs two steps", "entities": {}, "requires_decomposition": true, "requires_agents": true}`

const twoStepDependentPlanJSON = `{"plan_id": "p1", "steps": [` +
	`{"step_id": "step1", "type": "query_task", "agent": "task", "query": "open tasks", "dependencies": [], "reasoning": "first"},` +
	`{"step_id": "step2", "type": "query_task", "agent": "task", "query": "risk of step1 tasks", "dependencies": ["step1"], "reasoning": "second"}` +
	`], "estimated_complexity": "medium", "requires_synthesis": true, "reasoning": "two dependent steps"}`

// TestQuery_S6DependencyFailureBlocksDependent is the regression test for
// the dispatch loop's early-break fix: step1 has no Task agent wired (so
// it fails as "task agent not available"), and step2 depends on step1.
// Both must be recorded in StepResults by the time execute_step finishes -
// step2 marked failed without ever being dispatched - and step2's error
// must name the dependency that actually failed (step1), not itself.
func TestQuery_S6DependencyFailureBlocksDependent(t *testing.T) {
	llmProvider := &scriptedLLM{responses: []string{
		intentHybridJSON,
		twoStepDependentPlanJSON,
		"## Summary\nstep1 failed so step2 was blocked.",
	}}
	g, err := orchestrator.New(orchestrator.Deps{LLM: llmProvider})
	require.NoError(t, err)

	resp, err := g.Query(context.Background(), "ws1", "u1", "sess1", "what's blocked?", nil, nil)
	require.NoError(t, err)

	results, ok := resp.Metadata["step_results"].([]orchestrator.StepResult)
	require.True(t, ok)
	require.Len(t, results, 2)

	byID := map[string]orchestrator.StepResult{}
	for _, r := range results {
		byID[r.StepID] = r
	}
	step1 := byID["step1"]
	step2 := byID["step2"]
	assert.False(t, step1.Success)
	assert.False(t, step2.Success)
	assert.Contains(t, step2.Error, "step1")

	assert.Equal(t, 2, resp.Metadata["failed_steps"])
	assert.Equal(t, 0, resp.Metadata["successful_steps"])
	assert.Equal(t, "## Summary\nstep1 failed so step2 was blocked.", resp.Answer)
}

// TestQuery_SmallTalkShortCircuitIsPure covers invariant 8: the same
// greeting produces the same canned answer every time, without ever
// reaching create_plan (only one scripted response is provided; a second
// LLM call would return an empty string and break the test).
func TestQuery_SmallTalkShortCircuitIsPure(t *testing.T) {
	unknownJSON := `{"type": "unknown", "confidence": 0.1, "agent": "both", ` +
		`"reasoning": "greeting", "entities": {}, "requires_decomposition": false, "requires_agents": false}`

	for i := 0; i < 2; i++ {
		llmProvider := &scriptedLLM{responses: []string{unknownJSON}}
		g, err := orchestrator.New(orchestrator.Deps{LLM: llmProvider})
		require.NoError(t, err)

		resp, err := g.Query(context.Background(), "ws1", "u1", "sess1", "hello", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, llmProvider.calls)
		assert.Contains(t, resp.Answer, "Workspace Assistant")
	}
}

// TestQuery_LowConfidenceRoutesToError covers the confidence gate ahead
// of planning: a below-threshold intent never reaches create_plan (only
// one scripted response is provided) and produces an error-path answer.
func TestQuery_LowConfidenceRoutesToError(t *testing.T) {
	lowConfidenceJSON := `{"type": "document_query", "confidence": 0.1, "agent": "document", ` +
		`"reasoning": "unsure", "entities": {}, "requires_decomposition": false, "requires_agents": true}`
	llmProvider := &scriptedLLM{responses: []string{lowConfidenceJSON}}
	g, err := orchestrator.New(orchestrator.Deps{LLM: llmProvider})
	require.NoError(t, err)

	resp, err := g.Query(context.Background(), "ws1", "u1", "sess1", "???", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, llmProvider.calls)
	assert.NotEmpty(t, resp.Answer)
	intent, ok := resp.Metadata["intent"].(*orchestrator.Intent)
	require.True(t, ok)
	assert.Equal(t, orchestrator.IntentDocumentQuery, intent.Type)
}
