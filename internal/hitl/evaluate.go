// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package hitl

import (
	"context"
	"fmt"

	"workspace-assistant/internal/store"
)

// EvaluateTaskOperation classifies a generated SQL statement and, if it
// crosses the confirmation policy's threshold, creates a pending
// confirmation request. Call this before executing task mutations.
func (m *Manager) EvaluateTaskOperation(ctx context.Context, workspaceID, userID, query, sqlText string) (*Decision, error) {
	risk := DetectTaskRisk(query, sqlText)
	if risk == nil {
		return &Decision{RequiresConfirmation: false}, nil
	}
	options := TaskConfirmationOptions(risk, sqlText)
	return m.Evaluate(ctx, workspaceID, userID, "task", risk.Reason, describeRisk(risk),
		risk, options, "cancel", map[string]interface{}{"query": query, "sql": sqlText})
}

// EvaluateBoardVisualization classifies a visualization request by its
// result size and, if large enough to warrant it, creates a pending
// confirmation request: above 100 tasks it offers a full, limited, or CSV
// export, otherwise a plain confirm or cancel.
func (m *Manager) EvaluateBoardVisualization(ctx context.Context, workspaceID, userID string, filters store.TaskFilters, chartType string, taskCount int) (*Decision, error) {
	risk := BoardRisk(chartType, taskCount)
	if risk == nil {
		return &Decision{RequiresConfirmation: false}, nil
	}
	options := BoardConfirmationOptions(risk, taskCount)
	return m.Evaluate(ctx, workspaceID, userID, "board", risk.Reason, describeRisk(risk),
		risk, options, "cancel", map[string]interface{}{"chart_type": chartType, "task_count": taskCount})
}

// EvaluatePlanExecution classifies a multi-step orchestrator plan and,
// if risky enough, creates a pending confirmation request before any
// step runs.
func (m *Manager) EvaluatePlanExecution(ctx context.Context, workspaceID, userID, query string, steps []PlanStepInfo) (*Decision, error) {
	risk := PlanRisk(steps, query)
	if risk == nil {
		return &Decision{RequiresConfirmation: false}, nil
	}
	options := PlanConfirmationOptions(risk, len(steps))
	defaultOption := "cancel"
	if risk.Severity == SeverityCritical {
		defaultOption = "preview_plan"
	}
	return m.Evaluate(ctx, workspaceID, userID, "orchestrator", risk.Reason, describeRisk(risk),
		risk, options, defaultOption, map[string]interface{}{"query": query, "step_count": len(steps)})
}

func describeRisk(risk *RiskAssessment) string {
	if risk.EstimatedImpact == "" {
		return risk.Reason
	}
	return fmt.Sprintf("%s. %s", risk.Reason, risk.EstimatedImpact)
}
