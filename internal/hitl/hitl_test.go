// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package hitl_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workspace-assistant/internal/hitl"
	"workspace-assistant/internal/store"
)

func setupManager(t *testing.T, cfg hitl.Config) *hitl.Manager {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return hitl.NewManager(s.Confirmations(), s.Feedback(), cfg)
}

// TestEvaluateTaskOperation_S3SingleDeleteRequiresApproval covers a task
// risk scenario: a single-task delete (a WHERE clause present) is high
// severity, requires confirmation, and offers a reversible archive
// alternative alongside the irreversible delete.
func TestEvaluateTaskOperation_S3SingleDeleteRequiresApproval(t *testing.T) {
	m := setupManager(t, hitl.DefaultConfig())

	decision, err := m.EvaluateTaskOperation(context.Background(), "ws1", "u1",
		"delete the task with id 42", "DELETE FROM tasks WHERE id = 42")
	require.NoError(t, err)
	require.NotNil(t, decision.Risk)
	assert.Equal(t, hitl.SeverityHigh, decision.Risk.Severity)
	assert.True(t, decision.RequiresConfirmation)
	require.NotNil(t, decision.Request)

	var archive *store.ActionOption
	for i := range decision.Request.Options {
		if decision.Request.Options[i].ID == "archive_instead" {
			archive = &decision.Request.Options[i]
		}
	}
	require.NotNil(t, archive)
	assert.True(t, archive.Reversible)
}

// TestEvaluateTaskOperation_S4BulkDeleteIsCritical covers a delete with no
// WHERE clause: critical severity, and the confirmation request's
// timeout is the configured critical timeout (600s by default), not the
// default one.
func TestEvaluateTaskOperation_S4BulkDeleteIsCritical(t *testing.T) {
	m := setupManager(t, hitl.DefaultConfig())

	decision, err := m.EvaluateTaskOperation(context.Background(), "ws1", "u1",
		"delete all the tasks", "DELETE FROM tasks")
	require.NoError(t, err)
	require.NotNil(t, decision.Risk)
	assert.Equal(t, hitl.SeverityCritical, decision.Risk.Severity)
	assert.True(t, decision.RequiresConfirmation)
	require.NotNil(t, decision.Request)
	assert.Equal(t, 600, decision.Request.TimeoutSeconds)
}

// TestWaitForResponse_S7TimeoutAppliesDefaultOption covers the timeout
// path: a critical plan's confirmation request has a default option of
// "preview_plan" (not "cancel"), and once its expiry passes,
// WaitForResponse resolves it as if that default option had been chosen
// - approved, not rejected, since the default isn't "cancel" here.
func TestWaitForResponse_S7TimeoutAppliesDefaultOption(t *testing.T) {
	cfg := hitl.DefaultConfig()
	cfg.CriticalTimeoutSeconds = -5 // already expired by the time it's polled
	m := setupManager(t, cfg)

	steps := []hitl.PlanStepInfo{
		{Agent: "task", Query: "delete all overdue tasks"},
		{Agent: "board", Query: "show the updated board"},
	}
	decision, err := m.EvaluatePlanExecution(context.Background(), "ws1", "u1", "clean up and show me the board", steps)
	require.NoError(t, err)
	require.NotNil(t, decision.Risk)
	assert.Equal(t, hitl.SeverityCritical, decision.Risk.Severity)
	require.NotNil(t, decision.Request)
	assert.Equal(t, "preview_plan", decision.Request.DefaultOption)

	resolved, err := m.WaitForResponse(context.Background(), decision.Request.RequestID, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, store.ConfirmationApproved, resolved.Status)
	require.NotNil(t, resolved.Response)
	assert.Equal(t, "preview_plan", resolved.Response.OptionID)
	assert.Equal(t, "timeout", resolved.Response.RespondedBy)
}

// TestRespond_DoubleSubmissionIsIdempotent covers invariant 6: a second
// Respond call against an already-answered request is a no-op that
// returns the first stored response rather than overwriting it.
func TestRespond_DoubleSubmissionIsIdempotent(t *testing.T) {
	m := setupManager(t, hitl.DefaultConfig())

	decision, err := m.EvaluateTaskOperation(context.Background(), "ws1", "u1",
		"delete all the tasks", "DELETE FROM tasks")
	require.NoError(t, err)
	require.NotNil(t, decision.Request)

	first, err := m.Respond(context.Background(), decision.Request.RequestID, "confirm_delete", "alice")
	require.NoError(t, err)
	assert.Equal(t, store.ConfirmationApproved, first.Status)
	assert.Equal(t, "confirm_delete", first.Response.OptionID)

	second, err := m.Respond(context.Background(), decision.Request.RequestID, "cancel", "bob")
	require.NoError(t, err)
	assert.Equal(t, store.ConfirmationApproved, second.Status)
	assert.Equal(t, "confirm_delete", second.Response.OptionID)
	assert.Equal(t, "alice", second.Response.RespondedBy)
}

// TestPlanRisk_RemovingDeletionDimensionNeverIncreasesSeverity covers
// invariant 9: dropping the "deletion" signal from an otherwise
// identical multi-agent plan must not raise its classified severity.
func TestPlanRisk_RemovingDeletionDimensionNeverIncreasesSeverity(t *testing.T) {
	withDeletion := hitl.PlanRisk([]hitl.PlanStepInfo{
		{Agent: "task", Query: "delete the stale tasks"},
		{Agent: "board", Query: "refresh the board"},
	}, "clean up stale tasks and refresh the board")
	require.NotNil(t, withDeletion)
	assert.Equal(t, hitl.SeverityCritical, withDeletion.Severity)

	withoutDeletion := hitl.PlanRisk([]hitl.PlanStepInfo{
		{Agent: "task", Query: "list the stale tasks"},
		{Agent: "board", Query: "refresh the board"},
	}, "list stale tasks and refresh the board")
	require.NotNil(t, withoutDeletion)
	assert.NotEqual(t, hitl.SeverityCritical, withoutDeletion.Severity)
}

// TestPlanRisk_RemovingMultiAgentDimensionNeverIncreasesSeverity is the
// other half of invariant 9: dropping the second agent from a deletion
// plan must not raise its classified severity either.
func TestPlanRisk_RemovingMultiAgentDimensionNeverIncreasesSeverity(t *testing.T) {
	multiAgent := hitl.PlanRisk([]hitl.PlanStepInfo{
		{Agent: "task", Query: "delete the stale tasks"},
		{Agent: "board", Query: "refresh the board"},
	}, "clean up stale tasks and refresh the board")
	require.NotNil(t, multiAgent)
	assert.Equal(t, hitl.SeverityCritical, multiAgent.Severity)

	singleAgent := hitl.PlanRisk([]hitl.PlanStepInfo{
		{Agent: "task", Query: "delete the stale tasks"},
	}, "delete the stale tasks")
	require.NotNil(t, singleAgent)
	assert.NotEqual(t, hitl.SeverityCritical, singleAgent.Severity)
}
