// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

// Package hitl implements the human-in-the-loop confirmation lifecycle:
// classifying agent actions by risk, building the option set a user
// chooses from, and carrying a request from pending through to an
// executed or rejected outcome.
package hitl

import "workspace-assistant/internal/store"

// Severity is how risky a classified operation is judged to be.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// ActionType classifies what kind of operation a risk assessment covers.
type ActionType string

const (
	ActionTaskDelete       ActionType = "task_delete"
	ActionTaskUpdate       ActionType = "task_update"
	ActionDeadlineChange   ActionType = "deadline_change"
	ActionPriorityChange   ActionType = "priority_change"
	ActionBulkOperation    ActionType = "bulk_operation"
	ActionBoardExport      ActionType = "board_export"
	ActionNotificationSend ActionType = "notification_send"
	ActionPlanExecution    ActionType = "plan_execution"
)

// RiskAssessment is the outcome of classifying a candidate operation.
// A nil *RiskAssessment from a classifier means the operation is safe
// and needs no confirmation.
type RiskAssessment struct {
	Type            ActionType
	Severity        Severity
	Reason          string
	EstimatedImpact string
	Metadata        map[string]interface{}
}

// Config controls which severities actually require a human in the loop.
// Mirrors the policy gate every risk classifier is run through before a
// confirmation request is created.
type Config struct {
	Enabled                   bool
	AutoExecuteLow            bool
	RequireConfirmationMedium bool
	RequireApprovalHigh       bool
	RequireReasonCritical     bool
	DefaultTimeoutSeconds     int
	CriticalTimeoutSeconds    int
	// TimeoutAction is "default" (fall back to the request's default
	// option on expiry) or anything else (expire to ConfirmationTimeout).
	TimeoutAction string
}

// DefaultConfig matches the policy the original assistant shipped with:
// everything above low severity needs a human, low severity auto-runs.
func DefaultConfig() Config {
	return Config{
		Enabled:                   true,
		AutoExecuteLow:            true,
		RequireConfirmationMedium: true,
		RequireApprovalHigh:       true,
		RequireReasonCritical:     true,
		DefaultTimeoutSeconds:     300,
		CriticalTimeoutSeconds:    600,
		TimeoutAction:             "default",
	}
}

// RequiresConfirmation is the policy gate: given a severity, should the
// action stop and wait for a human before running?
func (c Config) RequiresConfirmation(sev Severity) bool {
	if !c.Enabled {
		return false
	}
	switch sev {
	case SeverityLow:
		return !c.AutoExecuteLow
	case SeverityMedium:
		return c.RequireConfirmationMedium
	case SeverityHigh:
		return c.RequireApprovalHigh
	case SeverityCritical:
		return c.RequireReasonCritical
	default:
		return false
	}
}

// timeoutFor picks a request timeout from the highest severity among its
// options: critical operations get more time to be noticed and acted on.
func (c Config) timeoutFor(options []store.ActionOption) int {
	worst := SeverityLow
	for _, o := range options {
		if Severity(o.Severity).rank() > worst.rank() {
			worst = Severity(o.Severity)
		}
	}
	if worst == SeverityCritical {
		return c.CriticalTimeoutSeconds
	}
	return c.DefaultTimeoutSeconds
}

// Decision is the result of evaluating a candidate operation against a
// risk classifier and the confirmation policy.
type Decision struct {
	Risk                 *RiskAssessment
	RequiresConfirmation bool
	AutoApproved         bool
	Request              *store.ConfirmationRequest
}

// ActionExecutionResult records what happened when a confirmed option
// was actually carried out.
type ActionExecutionResult struct {
	RequestID         string
	OptionID          string
	Success           bool
	Result            map[string]interface{}
	Error             string
	RollbackAvailable bool
	RollbackID        string
}
