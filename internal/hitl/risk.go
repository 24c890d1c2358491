// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package hitl

import (
	"strings"

	"workspace-assistant/internal/store"
)

// DetectTaskRisk classifies a generated SQL statement against the
// natural-language query that produced it. Returns nil when the
// operation is safe to run without a human in the loop. Rules are
// checked in order and the first match wins.
func DetectTaskRisk(query, sql string) *RiskAssessment {
	q := strings.ToLower(query)
	s := strings.ToLower(sql)

	switch {
	case strings.Contains(q, "delete") || strings.Contains(s, "delete from"):
		if !strings.Contains(s, "where") {
			return &RiskAssessment{
				Type:            ActionTaskDelete,
				Severity:        SeverityCritical,
				Reason:          "Bulk delete without WHERE condition",
				EstimatedImpact: "Will delete ALL tasks in workspace",
			}
		}
		return &RiskAssessment{
			Type:            ActionTaskDelete,
			Severity:        SeverityHigh,
			Reason:          "Task deletion",
			EstimatedImpact: "Deleted tasks cannot be recovered",
		}

	case anyContains(q, "deadline", "due date", "extend", "postpone") &&
		strings.Contains(s, "update") && strings.Contains(s, "due_date"):
		return &RiskAssessment{
			Type:            ActionDeadlineChange,
			Severity:        SeverityMedium,
			Reason:          "Deadline modification",
			EstimatedImpact: "Task due dates will change",
		}

	case strings.Contains(q, "priority") && strings.Contains(s, "update"):
		if strings.Contains(s, "where id =") {
			return &RiskAssessment{
				Type:            ActionPriorityChange,
				Severity:        SeverityLow,
				Reason:          "Priority change for single task",
				EstimatedImpact: "One task's priority will change",
			}
		}
		return &RiskAssessment{
			Type:            ActionPriorityChange,
			Severity:        SeverityMedium,
			Reason:          "Bulk priority changes",
			EstimatedImpact: "Multiple tasks' priorities will change",
		}

	case strings.Contains(q, "status") && strings.Contains(s, "update") &&
		(!strings.Contains(s, "where") || anyContains(q, "all", "bulk", "multiple")):
		return &RiskAssessment{
			Type:            ActionTaskUpdate,
			Severity:        SeverityMedium,
			Reason:          "Bulk status update",
			EstimatedImpact: "Multiple tasks' status will change",
		}

	case anyContains(q, "all tasks", "every task", "bulk") &&
		(strings.Contains(s, "update") || strings.Contains(s, "delete")):
		return &RiskAssessment{
			Type:            ActionBulkOperation,
			Severity:        SeverityCritical,
			Reason:          "Bulk operation on all tasks",
			EstimatedImpact: "Every task in the workspace will be affected",
		}

	default:
		return nil
	}
}

// TaskConfirmationOptions builds the choices offered for a classified
// task operation: always a way to proceed, usually a safer reversible
// alternative, and always a way to cancel.
func TaskConfirmationOptions(risk *RiskAssessment, sqlText string) []store.ActionOption {
	switch risk.Type {
	case ActionTaskDelete:
		return []store.ActionOption{
			{ID: "confirm_delete", Label: "Delete permanently", Description: "Run the delete as generated",
				Severity: string(risk.Severity), Reversible: false, EstimatedImpact: risk.EstimatedImpact,
				Parameters: map[string]interface{}{"sql": sqlText}},
			{ID: "archive_instead", Label: "Archive instead", Description: "Mark matching tasks archived rather than deleting them",
				Severity: string(SeverityLow), Reversible: true, EstimatedImpact: "Tasks can be restored from the archive",
				Parameters: map[string]interface{}{"sql": archiveRewrite(sqlText)}},
			cancelOption(),
		}

	case ActionDeadlineChange:
		return []store.ActionOption{
			{ID: "confirm_change", Label: "Apply deadline change", Description: "Run the update as generated",
				Severity: string(risk.Severity), Reversible: true, EstimatedImpact: risk.EstimatedImpact,
				Parameters: map[string]interface{}{"sql": sqlText}},
			{ID: "notify_only", Label: "Notify only", Description: "Tell stakeholders about the proposed change without applying it",
				Severity: string(SeverityLow), Reversible: false, EstimatedImpact: "No data changes",
				Parameters: map[string]interface{}{"notify": true}},
			cancelOption(),
		}

	case ActionPriorityChange, ActionTaskUpdate, ActionBulkOperation:
		return []store.ActionOption{
			{ID: "confirm_update", Label: "Apply update", Description: "Run the update as generated",
				Severity: string(risk.Severity), Reversible: true, EstimatedImpact: risk.EstimatedImpact,
				Parameters: map[string]interface{}{"sql": sqlText}},
			{ID: "preview_only", Label: "Preview affected rows", Description: "Show which rows would be affected without changing them",
				Severity: string(SeverityLow), Reversible: false, EstimatedImpact: "No data changes",
				Parameters: map[string]interface{}{"preview": true, "sql": previewRewrite(sqlText)}},
			cancelOption(),
		}

	default:
		return []store.ActionOption{
			{ID: "confirm", Label: "Confirm", Description: "Run the operation as generated",
				Severity: string(risk.Severity), Reversible: false, EstimatedImpact: risk.EstimatedImpact,
				Parameters: map[string]interface{}{"sql": sqlText}},
			cancelOption(),
		}
	}
}

// archiveRewrite turns a DELETE into a soft-delete UPDATE, offered as
// the reversible alternative to an irreversible deletion.
func archiveRewrite(sqlText string) string {
	return replaceCaseInsensitive(sqlText, "DELETE", "UPDATE tasks SET status = 'archived'")
}

// previewRewrite turns a mutating UPDATE into a read-only SELECT, so
// the affected rows can be shown without being changed.
func previewRewrite(sqlText string) string {
	return replaceCaseInsensitive(sqlText, "UPDATE", "SELECT * FROM")
}

func replaceCaseInsensitive(s, old, replacement string) string {
	idx := strings.Index(strings.ToUpper(s), strings.ToUpper(old))
	if idx == -1 {
		return s
	}
	return s[:idx] + replacement + s[idx+len(old):]
}

func cancelOption() store.ActionOption {
	return store.ActionOption{ID: "cancel", Label: "Cancel", Description: "Do not run this operation",
		Severity: string(SeverityLow), Reversible: true, Parameters: map[string]interface{}{}}
}

func anyContains(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// BoardRisk classifies a visualization request by how much it exports.
// Bands are mutually exclusive: largest threshold checked first, so a
// count above the high-severity band can never fall through to the
// medium one underneath it.
func BoardRisk(chartType string, taskCount int) *RiskAssessment {
	switch {
	case taskCount > 500:
		return &RiskAssessment{
			Type:            ActionBoardExport,
			Severity:        SeverityHigh,
			Reason:          "Very large export",
			EstimatedImpact: "Exporting a very large number of tasks",
		}
	case taskCount > 100:
		return &RiskAssessment{
			Type:            ActionBoardExport,
			Severity:        SeverityMedium,
			Reason:          "Large export operation",
			EstimatedImpact: "Exporting a large number of tasks",
		}
	case chartType == "gantt" && taskCount > 50:
		return &RiskAssessment{
			Type:            ActionBoardExport,
			Severity:        SeverityMedium,
			Reason:          "Large Gantt chart",
			EstimatedImpact: "Rendering a large Gantt chart may be slow to read",
		}
	default:
		return nil
	}
}

// BoardConfirmationOptions mirrors the richer option set offered once a
// board export crosses into large-result territory: a full export, a
// capped one, a CSV export, or cancel.
func BoardConfirmationOptions(risk *RiskAssessment, taskCount int) []store.ActionOption {
	if taskCount > 100 {
		return []store.ActionOption{
			{ID: "generate_full", Label: "Generate full visualization", Description: "Include all matching tasks",
				Severity: string(risk.Severity), Reversible: false, EstimatedImpact: risk.EstimatedImpact,
				Parameters: map[string]interface{}{}},
			{ID: "generate_limited", Label: "Generate limited visualization", Description: "Include only the first 100 matching tasks",
				Severity: string(SeverityLow), Reversible: false, EstimatedImpact: "Only a subset of tasks shown",
				Parameters: map[string]interface{}{"limit": 100}},
			{ID: "export_csv", Label: "Export as CSV instead", Description: "Export the full result set as CSV rather than rendering it",
				Severity: string(SeverityLow), Reversible: false, EstimatedImpact: "No visualization rendered",
				Parameters: map[string]interface{}{"export_format": "csv"}},
			cancelOption(),
		}
	}
	return []store.ActionOption{
		{ID: "confirm", Label: "Generate visualization", Description: "Proceed with the visualization",
			Severity: string(risk.Severity), Reversible: false, EstimatedImpact: risk.EstimatedImpact,
			Parameters: map[string]interface{}{}},
		cancelOption(),
	}
}

// PlanStepInfo is the slice of an orchestrator execution step that plan
// risk classification needs, kept independent of the orchestrator
// package's own step type to avoid a import cycle.
type PlanStepInfo struct {
	Agent     string
	Query     string
	Reasoning string
}

// PlanRisk classifies a multi-step orchestrator execution plan. Checked
// in order of the most dangerous combinations first: multi-agent plus
// destructive, then multi-agent plus mutating, then escalation
// language, then multi-agent alone, then a single destructive step,
// then a plan simply long enough to be expensive to get wrong.
func PlanRisk(steps []PlanStepInfo, query string) *RiskAssessment {
	agents := map[string]bool{}
	hasDeletions := false
	hasModifications := false
	for _, step := range steps {
		agents[step.Agent] = true
		text := strings.ToLower(step.Query + " " + step.Reasoning)
		if anyContains(text, "delete", "remove", "drop") {
			hasDeletions = true
		}
		if anyContains(text, "update", "modify", "change", "set") {
			hasModifications = true
		}
	}
	agentList := sortedKeys(agents)
	queryLower := strings.ToLower(query)

	switch {
	case len(agents) > 1 && hasDeletions:
		return &RiskAssessment{
			Type:            ActionBulkOperation,
			Severity:        SeverityCritical,
			Reason:          "Multi-agent operation with deletions",
			EstimatedImpact: "Affects multiple systems with irreversible deletions",
			Metadata:        map[string]interface{}{"agents_involved": agentList},
		}
	case len(agents) > 1 && hasModifications:
		return &RiskAssessment{
			Type:            ActionTaskUpdate,
			Severity:        SeverityHigh,
			Reason:          "Multi-agent coordination with modifications",
			EstimatedImpact: "Affects multiple systems with data changes",
			Metadata:        map[string]interface{}{"agents_involved": agentList},
		}
	case anyContains(queryLower, "escalate", "urgent", "critical", "emergency"):
		return &RiskAssessment{
			Type:            ActionNotificationSend,
			Severity:        SeverityHigh,
			Reason:          "Escalation request detected",
			EstimatedImpact: "Will notify stakeholders and potentially trigger alerts",
			Metadata:        map[string]interface{}{"agents_involved": agentList},
		}
	case len(agents) > 1:
		return &RiskAssessment{
			Type:            ActionTaskUpdate,
			Severity:        SeverityMedium,
			Reason:          "Multi-agent coordination required",
			EstimatedImpact: "Involves " + strings.Join(agentList, ", "),
			Metadata:        map[string]interface{}{"agents_involved": agentList},
		}
	case hasDeletions:
		return &RiskAssessment{
			Type:            ActionTaskDelete,
			Severity:        SeverityMedium,
			Reason:          "Operation involves deletions",
			EstimatedImpact: "Data will be permanently removed",
		}
	case len(steps) > 4:
		return &RiskAssessment{
			Type:            ActionBulkOperation,
			Severity:        SeverityMedium,
			Reason:          "Complex workflow",
			EstimatedImpact: "Long execution time with multiple operations",
			Metadata:        map[string]interface{}{"step_count": len(steps)},
		}
	default:
		return nil
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// PlanConfirmationOptions builds the plan-level choices. Critical plans
// get an extra "safe steps only" middle ground; everything else gets a
// step-by-step escape hatch instead.
func PlanConfirmationOptions(risk *RiskAssessment, stepCount int) []store.ActionOption {
	if risk.Severity == SeverityCritical {
		return []store.ActionOption{
			{ID: "execute_full", Label: "Execute complete plan", Description: "Execute all steps as planned",
				Severity: string(risk.Severity), Reversible: false, EstimatedImpact: risk.EstimatedImpact,
				Parameters: map[string]interface{}{"mode": "full"}},
			{ID: "execute_safe_only", Label: "Execute safe steps only", Description: "Skip deletion steps, execute read/modify operations only",
				Severity: string(SeverityMedium), Reversible: true, EstimatedImpact: "No deletions, reversible operations only",
				Parameters: map[string]interface{}{"mode": "safe"}},
			{ID: "preview_plan", Label: "Preview execution plan", Description: "Show what would be executed without running",
				Severity: string(SeverityLow), Reversible: false, EstimatedImpact: "No changes, view-only",
				Parameters: map[string]interface{}{"mode": "preview"}},
			cancelOption(),
		}
	}
	return []store.ActionOption{
		{ID: "execute_plan", Label: "Execute plan", Description: "Execute the plan across all its agents",
			Severity: string(risk.Severity), Reversible: risk.Severity == SeverityMedium, EstimatedImpact: risk.EstimatedImpact,
			Parameters: map[string]interface{}{"mode": "full"}},
		{ID: "step_by_step", Label: "Execute step-by-step", Description: "Execute one step at a time with confirmation",
			Severity: string(SeverityLow), Reversible: true, EstimatedImpact: "Full control over each operation",
			Parameters: map[string]interface{}{"mode": "step_by_step"}},
		{ID: "preview_plan", Label: "Preview plan", Description: "Show execution plan details",
			Severity: string(SeverityLow), Reversible: false, EstimatedImpact: "No changes",
			Parameters: map[string]interface{}{"mode": "preview"}},
		cancelOption(),
	}
}
