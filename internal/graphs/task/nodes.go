// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"workspace-assistant/internal/llmparse"
	"workspace-assistant/internal/store"
	"workspace-assistant/pkg/llm"
	"workspace-assistant/pkg/workflow"
)

// Deps are the external collaborators every node needs.
type Deps struct {
	Tasks  *store.TaskRepo
	LLM    llm.Provider
	Config Config
}

type loadSchemaNode struct{ d Deps }

func (n *loadSchemaNode) Name() string { return "load_schema" }

func (n *loadSchemaNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	s.SchemaInfo = n.d.Tasks.Schema()
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

type generateSQLNode struct{ d Deps }

func (n *generateSQLNode) Name() string { return "generate_sql" }

func (n *generateSQLNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	prompt := fmt.Sprintf(
		"You write read-only SQLite queries over this schema:\n%s\n\n"+
			"Every query must be a single SELECT statement and must reference the named "+
			"parameter :workspace_id to scope results to one workspace.\n\n"+
			"Workspace: %s\nQuestion: %s\n\n"+
			"Reply with only the SQL, in a fenced sql code block.", s.SchemaInfo, s.WorkspaceID, s.Query)

	resp, err := n.d.LLM.Complete(ctx, &llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.1,
		MaxTokens:   500,
	})
	if err != nil {
		s.SQLError = fmt.Errorf("generate sql: %w", err)
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}

	sqlText := strings.TrimSpace(llmparse.ExtractFencedBlock(resp.Content, "sql"))
	if sqlText == "" {
		s.SQLError = fmt.Errorf("generate sql: model returned an empty query")
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}
	s.GeneratedSQL = sqlText
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

func afterGenerateSQL(s *State) string {
	if s.SQLError != nil || s.GeneratedSQL == "" {
		return "error"
	}
	return "execute_sql"
}

type executeSQLNode struct{ d Deps }

func (n *executeSQLNode) Name() string { return "execute_sql" }

func (n *executeSQLNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	timeout := time.Duration(n.d.Config.Timeout) * time.Second
	result, err := n.d.Tasks.RunReadOnlyQuery(ctx, s.GeneratedSQL, s.SQLParameters, s.WorkspaceID, timeout, n.d.Config.RowLimit)
	if err != nil {
		s.SQLError = err
		s.SQLSuccess = false
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}
	s.SQLResult = result
	s.SQLSuccess = true
	s.RowCount = result.RowCount
	s.QueryTimeMS = result.QueryTimeMS
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

func afterExecuteSQL(s *State) string {
	if !s.SQLSuccess || s.SQLError != nil {
		return "error"
	}
	if s.RowCount == 0 {
		return "no_results"
	}
	return "analyze_results"
}

type analyzeResultsNode struct{ d Deps }

func (n *analyzeResultsNode) Name() string { return "analyze_results" }

func (n *analyzeResultsNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	prompt := fmt.Sprintf(
		"Question: %s\n\nQuery result columns: %v\nRows (%d):\n%v\n\n"+
			"Write a Markdown summary with these sections: ## Findings, ## Risks, ## Recommendations.",
		s.Query, s.SQLResult.Columns, s.SQLResult.RowCount, s.SQLResult.Rows)

	resp, err := n.d.LLM.Complete(ctx, &llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.3,
		MaxTokens:   800,
	})
	if err != nil {
		s.SQLError = fmt.Errorf("analyze results: %w", err)
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}
	s.Answer = strings.TrimSpace(resp.Content)
	s.Confidence = 0.8
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

type noResultsNode struct{ d Deps }

func (n *noResultsNode) Name() string { return "no_results" }

func (n *noResultsNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	s.Answer = "No tasks matched that query."
	s.Confidence = 0.6
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

type errorNode struct{ d Deps }

func (n *errorNode) Name() string { return "error" }

func (n *errorNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	msg := "I couldn't analyze that task query."
	if s.SQLError != nil {
		msg = fmt.Sprintf("%s (%v)", msg, s.SQLError)
	}
	s.Answer = msg
	s.Confidence = 0
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}
