// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package task_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workspace-assistant/internal/graphs/task"
	"workspace-assistant/internal/store"
	"workspace-assistant/pkg/llm"
)

type scriptedLLM struct {
	responses []string
	errs      []error
	calls     int
}

func (s *scriptedLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	content := ""
	if i < len(s.responses) {
		content = s.responses[i]
	}
	return &llm.CompletionResponse{Content: content}, nil
}
func (s *scriptedLLM) Name() string            { return "scripted" }
func (s *scriptedLLM) ModelName() string       { return "scripted-model" }
func (s *scriptedLLM) SupportsStreaming() bool { return false }

func setupTaskRepo(t *testing.T) *store.TaskRepo {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s.Tasks()
}

// TestQuery_AnalyzesResults drives the full load_schema -> generate_sql ->
// execute_sql -> analyze_results path against a query that returns exactly
// one row without depending on any seeded task data.
func TestQuery_AnalyzesResults(t *testing.T) {
	repo := setupTaskRepo(t)
	llmProvider := &scriptedLLM{
		responses: []string{
			"```sql\nSELECT 1 AS n WHERE :workspace_id = :workspace_id\n```",
			"## Findings\nAll good.\n## Risks\nNone.\n## Recommendations\nNone.",
		},
	}
	g, err := task.New(task.Deps{Tasks: repo, LLM: llmProvider, Config: task.DefaultConfig})
	require.NoError(t, err)

	s, err := g.Query(context.Background(), "How many tasks are open?", "ws1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.RowCount)
	assert.NotEmpty(t, s.Answer)
	assert.Equal(t, 0.8, s.Confidence)
}

func TestQuery_NoResults(t *testing.T) {
	repo := setupTaskRepo(t)
	llmProvider := &scriptedLLM{
		responses: []string{"```sql\nSELECT id FROM tasks WHERE workspace_id = :workspace_id\n```"},
	}
	g, err := task.New(task.Deps{Tasks: repo, LLM: llmProvider, Config: task.DefaultConfig})
	require.NoError(t, err)

	s, err := g.Query(context.Background(), "Any tasks?", "ws1")
	require.NoError(t, err)
	assert.Equal(t, "No tasks matched that query.", s.Answer)
	assert.Equal(t, 0.6, s.Confidence)
}

func TestQuery_RejectsNonSelectGeneratedSQL(t *testing.T) {
	repo := setupTaskRepo(t)
	llmProvider := &scriptedLLM{
		responses: []string{"```sql\nDELETE FROM tasks WHERE workspace_id = :workspace_id\n```"},
	}
	g, err := task.New(task.Deps{Tasks: repo, LLM: llmProvider, Config: task.DefaultConfig})
	require.NoError(t, err)

	s, err := g.Query(context.Background(), "Delete everything", "ws1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Confidence)
	assert.Contains(t, s.Answer, "couldn't analyze")
}

func TestQuery_SQLGenerationErrorRoutesToError(t *testing.T) {
	repo := setupTaskRepo(t)
	llmProvider := &scriptedLLM{errs: []error{errors.New("llm down")}}
	g, err := task.New(task.Deps{Tasks: repo, LLM: llmProvider, Config: task.DefaultConfig})
	require.NoError(t, err)

	s, err := g.Query(context.Background(), "anything", "ws1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Confidence)
}

// TestQuery_RowLimitZeroFallsBackToDefault exercises Config.RowLimit actually
// reaching store.TaskRepo.RunReadOnlyQuery: a zero RowLimit must not reject
// or error the query, falling back to store.DefaultMaxQueryRows.
func TestQuery_RowLimitZeroFallsBackToDefault(t *testing.T) {
	repo := setupTaskRepo(t)
	llmProvider := &scriptedLLM{
		responses: []string{"```sql\nSELECT 1 AS n WHERE :workspace_id = :workspace_id\n```"},
	}
	cfg := task.Config{RowLimit: 0, Timeout: 30}
	g, err := task.New(task.Deps{Tasks: repo, LLM: llmProvider, Config: cfg})
	require.NoError(t, err)

	s, err := g.Query(context.Background(), "list tasks", "ws1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.RowCount)
}
