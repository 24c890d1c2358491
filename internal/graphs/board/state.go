// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

// Package board implements the Board Visualization graph: load a
// workspace's tasks, dispatch to a Kanban or Mermaid generator by chart
// type, format the result as Markdown, and summarize it.
package board

import "workspace-assistant/internal/store"

// ChartType selects the visualization dispatched by generate_visualization.
type ChartType string

const (
	ChartKanban    ChartType = "kanban"
	ChartGantt     ChartType = "gantt"
	ChartFlowchart ChartType = "flowchart"
	ChartSequence  ChartType = "sequence"
	ChartState     ChartType = "state"
	ChartTimeline  ChartType = "timeline"
)

// KanbanBoard is the strict JSON shape the LLM must produce for a Kanban
// chart type.
type KanbanBoard struct {
	Title   string         `json:"title"`
	Columns []KanbanColumn `json:"columns"`
}

// KanbanColumn is one status lane of a Kanban board.
type KanbanColumn struct {
	Name   string             `json:"name"`
	Status string             `json:"status"`
	Tasks  []KanbanColumnTask `json:"tasks"`
}

// KanbanColumnTask is one task rendered into a Kanban column.
type KanbanColumnTask struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Priority string `json:"priority"`
	Assignee string `json:"assignee,omitempty"`
}

// MermaidChart is the JSON envelope non-Kanban chart types are parsed
// from.
type MermaidChart struct {
	ChartType   string                 `json:"chart_type"`
	Title       string                 `json:"title"`
	MermaidCode string                 `json:"mermaid_code"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// State is the typed state threaded through the Board Visualization
// graph.
type State struct {
	WorkspaceID string
	Query       string
	ChartType   ChartType
	Filters     store.TaskFilters

	Tasks []store.Task

	Kanban  *KanbanBoard
	Mermaid *MermaidChart

	MarkdownOutput string
	Summary        string

	Error error
}

var priorityEmoji = map[string]string{
	"critical": "🔴",
	"high":     "🟠",
	"medium":   "🟡",
	"low":      "🟢",
}
