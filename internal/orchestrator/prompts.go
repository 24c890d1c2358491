// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package orchestrator

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are the Orchestrator, the central intelligence of the workspace assistant.
Your role is to understand user requests, coordinate specialized agents (Document, Task, Board), and synthesize answers.

Available agents:
- document: retrieves information from workspace documents.
- task: queries the task database (status, assignees, risk).
- board: generates Kanban boards or Mermaid diagrams.

Output strictly valid JSON matching the schema you are given.`

func intentPrompt(q *State) string {
	var history strings.Builder
	if len(q.ConversationHistory) > 0 {
		history.WriteString("\nRecent conversation:\n")
		start := 0
		if len(q.ConversationHistory) > 3 {
			start = len(q.ConversationHistory) - 3
		}
		for _, m := range q.ConversationHistory[start:] {
			fmt.Fprintf(&history, "- %s: %s\n", m.Role, truncate(m.Content, 100))
		}
	}

	var docCtx strings.Builder
	if len(q.DocumentContext) > 0 {
		fmt.Fprintf(&docCtx, "\nActive document context: %v\n", q.DocumentContext)
	}

	return fmt.Sprintf(`# Intent Detection

Query: %q
Workspace: %s
%s%s
If the query is a greeting, small talk, or otherwise needs no workspace data, set "type" to "unknown"
and "requires_agents" to false. If the user asks to continue or finish writing the active document,
set "type" to "document_completion" and "agent" to "document".

Respond with JSON only:
{
  "type": "document_query|document_completion|task_query|board_query|hybrid_query|workspace_overview|task_risk|unknown",
  "confidence": 0.0,
  "agent": "document|task|board|both",
  "reasoning": "...",
  "entities": {},
  "requires_decomposition": false,
  "requires_agents": true
}`, q.Query, q.WorkspaceID, history.String(), docCtx.String())
}

func planPrompt(intent *Intent, query, workspaceID string) string {
	return fmt.Sprintf(`# Task Planning

Query: %q
Workspace: %s
Intent type: %s
Agent(s): %s

Step types: query_document, document_completion, query_task, query_board, synthesize, validate.
Each step's "agent" field must be exactly one of "document", "task", "board", "both" - never "orchestrator".
Use "both" only for synthesize/validate steps. If a single agent can answer this directly, produce a
single-step plan with requires_synthesis=false.

Respond with JSON only:
{
  "plan_id": "...",
  "steps": [
    {"step_id": "step1", "type": "query_task", "agent": "task", "query": "...", "dependencies": [], "reasoning": "..."}
  ],
  "estimated_complexity": "simple|medium|complex",
  "requires_synthesis": false,
  "reasoning": "..."
}`, query, workspaceID, intent.Type, intent.Agent)
}

func synthesisPrompt(query string, results []StepResult) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "\nStep %d (%s): ", i+1, r.StepID)
		if r.Success {
			fmt.Fprintf(&b, "succeeded. %v\n", r.Result)
		} else {
			fmt.Fprintf(&b, "failed: %s\n", r.Error)
		}
	}
	return fmt.Sprintf(`# Synthesis

Original query: %q

Results from each step:%s

Write a well-formatted Markdown answer that directly answers the original query, combines the
results above, notes any conflicts, and cites step findings where relevant.`, query, b.String())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var errorMessages = map[string]string{
	"no_intent":        "I couldn't determine what you're asking for. Could you rephrase your question?",
	"planning_failed":  "I couldn't create a plan to answer your question. Please try a simpler query.",
	"execution_failed": "An error occurred while processing your request.",
	"low_confidence":   "I'm not sure I understood that. I can help with tasks, documents, and visualizations. Could you rephrase your request?",
}

var smallTalkResponses = map[string]string{
	"hello":           "Hello! I'm your Workspace Assistant. I can help you manage tasks, find documents, or visualize your project progress. How can I help you today?",
	"hi":              "Hi there! Ready to help with your project. What do you need?",
	"hey":             "Hey! How can I assist you with your workspace today?",
	"how are you":     "I'm functioning perfectly and ready to assist! How can I help you with your work?",
	"thanks":          "You're welcome! Let me know if you need anything else.",
	"thank you":       "Happy to help! Is there anything else you need?",
	"bye":             "Goodbye! Have a productive day.",
	"what can you do": "I'm your project assistant. I can analyze tasks, search documents, and visualize data as Kanban boards, Gantt charts, or flowcharts. Just ask!",
}
