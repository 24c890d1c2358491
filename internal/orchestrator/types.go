// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

// Package orchestrator coordinates the Document, Task, and Board agent
// graphs: it detects the caller's intent, decomposes it into a step plan,
// executes the plan's steps (independent steps concurrently), and
// synthesizes a final answer.
package orchestrator

// AgentType names which agent graph a step or intent targets.
type AgentType string

const (
	AgentDocument AgentType = "document"
	AgentTask     AgentType = "task"
	AgentBoard    AgentType = "board"
	AgentBoth     AgentType = "both"
)

// IntentType classifies what the user is trying to accomplish.
type IntentType string

const (
	IntentDocumentQuery      IntentType = "document_query"
	IntentDocumentCompletion IntentType = "document_completion"
	IntentTaskQuery          IntentType = "task_query"
	IntentBoardQuery         IntentType = "board_query"
	IntentHybridQuery        IntentType = "hybrid_query"
	IntentWorkspaceOverview  IntentType = "workspace_overview"
	IntentTaskRisk           IntentType = "task_risk"
	IntentUnknown            IntentType = "unknown"
)

// StepType names the kind of work an execution step performs.
type StepType string

const (
	StepQueryDocument      StepType = "query_document"
	StepDocumentCompletion StepType = "document_completion"
	StepQueryTask          StepType = "query_task"
	StepQueryBoard         StepType = "query_board"
	StepSynthesize         StepType = "synthesize"
	StepValidate           StepType = "validate"
)

// Intent is the result of classifying a user query.
type Intent struct {
	Type                  IntentType             `json:"type"`
	Confidence            float64                `json:"confidence"`
	Agent                 AgentType              `json:"agent"`
	Reasoning             string                 `json:"reasoning"`
	Entities              map[string]interface{} `json:"entities"`
	RequiresDecomposition bool                   `json:"requires_decomposition"`
	RequiresAgents        bool                   `json:"requires_agents"`
}

// ExecutionStep is one unit of work in a plan.
type ExecutionStep struct {
	StepID       string    `json:"step_id"`
	Type         StepType  `json:"type"`
	Agent        AgentType `json:"agent"`
	Query        string    `json:"query"`
	Dependencies []string  `json:"dependencies"`
	Reasoning    string    `json:"reasoning"`
}

// ExecutionPlan is the ordered, dependency-annotated set of steps the
// orchestrator executes to answer a query.
type ExecutionPlan struct {
	PlanID              string          `json:"plan_id"`
	OriginalQuery       string          `json:"original_query"`
	Steps               []ExecutionStep `json:"steps"`
	EstimatedComplexity string          `json:"estimated_complexity"`
	RequiresSynthesis   bool            `json:"requires_synthesis"`
	Reasoning           string          `json:"reasoning"`
}

// StepResult records the outcome of executing one ExecutionStep.
type StepResult struct {
	StepID          string                 `json:"step_id"`
	Success         bool                   `json:"success"`
	Result          map[string]interface{} `json:"result,omitempty"`
	Error           string                 `json:"error,omitempty"`
	ExecutionTimeMS int64                  `json:"execution_time_ms"`
}

// validAgents/validStepTypes back the defensive defaulting applied to
// LLM-produced plans and intents.
var validAgents = []string{string(AgentDocument), string(AgentTask), string(AgentBoard), string(AgentBoth)}

var validIntentTypes = []string{
	string(IntentDocumentQuery), string(IntentDocumentCompletion), string(IntentTaskQuery),
	string(IntentBoardQuery), string(IntentHybridQuery), string(IntentWorkspaceOverview),
	string(IntentTaskRisk), string(IntentUnknown),
}

var validStepTypes = []string{
	string(StepQueryDocument), string(StepDocumentCompletion), string(StepQueryTask),
	string(StepQueryBoard), string(StepSynthesize), string(StepValidate),
}
