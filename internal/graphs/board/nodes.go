// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package board

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"workspace-assistant/internal/llmparse"
	"workspace-assistant/internal/store"
	"workspace-assistant/pkg/llm"
	"workspace-assistant/pkg/workflow"
)

// Deps are the external collaborators every node needs.
type Deps struct {
	Tasks *store.TaskRepo
	LLM   llm.Provider
}

type loadTasksNode struct{ d Deps }

func (n *loadTasksNode) Name() string { return "load_tasks" }

func (n *loadTasksNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	tasks, err := n.d.Tasks.LoadForBoard(ctx, s.WorkspaceID, s.Filters)
	if err != nil {
		s.Error = err
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}
	s.Tasks = tasks
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

func afterLoadTasks(s *State) string {
	if s.Error != nil {
		return "error"
	}
	return "generate"
}

type generateVisualizationNode struct{ d Deps }

func (n *generateVisualizationNode) Name() string { return "generate_visualization" }

func (n *generateVisualizationNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	var err error
	switch s.ChartType {
	case ChartKanban:
		err = n.generateKanban(ctx, s)
	default:
		err = n.generateMermaid(ctx, s)
	}
	if err != nil {
		s.Error = err
	}
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

func (n *generateVisualizationNode) generateKanban(ctx context.Context, s *State) error {
	prompt := fmt.Sprintf(
		"Produce a Kanban board for these tasks as JSON: {\"title\": string, \"columns\": "+
			"[{\"name\": string, \"status\": string, \"tasks\": [{\"id\", \"title\", \"priority\", \"assignee\"}]}]}.\n"+
			"Group tasks by status into columns. Query: %s\nTasks: %s", s.Query, tasksToPrompt(s.Tasks))

	resp, err := n.d.LLM.Complete(ctx, &llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.2,
		MaxTokens:   1500,
	})
	if err != nil {
		return fmt.Errorf("generate kanban: %w", err)
	}

	obj, err := llmparse.ExtractJSONObject(resp.Content)
	if err != nil {
		return fmt.Errorf("parse kanban board: %w", err)
	}
	var board KanbanBoard
	if err := json.Unmarshal([]byte(obj), &board); err != nil {
		return fmt.Errorf("unmarshal kanban board: %w", err)
	}
	s.Kanban = &board
	return nil
}

const noTimelineDatesMessage = "no dates available for timeline"

// needsDeadlines reports whether a chart type renders tasks along a time
// axis and therefore depends on at least one task having a deadline set.
func needsDeadlines(chartType ChartType) bool {
	return chartType == ChartGantt || chartType == ChartTimeline
}

func hasAnyDeadline(tasks []store.Task) bool {
	for _, t := range tasks {
		if t.Deadline != nil {
			return true
		}
	}
	return false
}

func (n *generateVisualizationNode) generateMermaid(ctx context.Context, s *State) error {
	if needsDeadlines(s.ChartType) && !hasAnyDeadline(s.Tasks) {
		s.Mermaid = &MermaidChart{
			ChartType:   string(s.ChartType),
			Title:       noTimelineDatesMessage,
			MermaidCode: fmt.Sprintf("%%%%{init: {'theme': 'base'}}%%%%\ngantt\n    title %s", noTimelineDatesMessage),
		}
		return nil
	}

	prompt := fmt.Sprintf(
		"Produce a %s diagram in Mermaid syntax for these tasks, as JSON: "+
			"{\"chart_type\": string, \"title\": string, \"mermaid_code\": string}.\n"+
			"Query: %s\nTasks: %s", s.ChartType, s.Query, tasksToPrompt(s.Tasks))

	resp, err := n.d.LLM.Complete(ctx, &llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.2,
		MaxTokens:   1500,
	})
	if err != nil {
		return fmt.Errorf("generate %s chart: %w", s.ChartType, err)
	}

	obj, err := llmparse.ExtractJSONObject(resp.Content)
	if err != nil {
		return fmt.Errorf("parse mermaid chart: %w", err)
	}
	var chart MermaidChart
	if err := json.Unmarshal([]byte(obj), &chart); err != nil {
		return fmt.Errorf("unmarshal mermaid chart: %w", err)
	}
	if strings.TrimSpace(chart.MermaidCode) == "" {
		return fmt.Errorf("model returned an empty mermaid_code")
	}
	s.Mermaid = &chart
	return nil
}

func tasksToPrompt(tasks []store.Task) string {
	var b strings.Builder
	for _, t := range tasks {
		fmt.Fprintf(&b, "- id=%s title=%q status=%s priority=%s assignee=%q deadline=%v\n",
			t.ID, t.Title, t.Status, t.Priority, t.AssigneeName, t.Deadline)
	}
	return b.String()
}

type formatOutputNode struct{ d Deps }

func (n *formatOutputNode) Name() string { return "format_output" }

func (n *formatOutputNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	if s.ChartType == ChartKanban && s.Kanban != nil {
		s.MarkdownOutput = formatKanbanMarkdown(s.Kanban)
	} else if s.Mermaid != nil {
		s.MarkdownOutput = formatMermaidMarkdown(s.Mermaid)
	}
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

func formatKanbanMarkdown(board *KanbanBoard) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", board.Title)
	for _, col := range board.Columns {
		fmt.Fprintf(&b, "## %s\n\n", col.Name)
		for _, t := range col.Tasks {
			emoji := priorityEmoji[strings.ToLower(t.Priority)]
			fmt.Fprintf(&b, "- %s **%s**", emoji, t.Title)
			if t.Assignee != "" {
				fmt.Fprintf(&b, " (%s)", t.Assignee)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatMermaidMarkdown(chart *MermaidChart) string {
	return fmt.Sprintf("## %s\n\n```mermaid\n%s\n```", chart.Title, chart.MermaidCode)
}

type createSummaryNode struct{ d Deps }

func (n *createSummaryNode) Name() string { return "create_summary" }

func (n *createSummaryNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	prompt := fmt.Sprintf("Write a 2-3 sentence summary of this %s visualization of %d tasks:\n%s",
		s.ChartType, len(s.Tasks), s.MarkdownOutput)

	resp, err := n.d.LLM.Complete(ctx, &llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.4,
		MaxTokens:   300,
	})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		s.Summary = fmt.Sprintf("Visualization generated with %d tasks", len(s.Tasks))
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}
	s.Summary = strings.TrimSpace(resp.Content)
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

type errorNode struct{ d Deps }

func (n *errorNode) Name() string { return "error" }

func (n *errorNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	s.MarkdownOutput = fmt.Sprintf("Could not generate the visualization: %v", s.Error)
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}
