// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package hitl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"workspace-assistant/internal/store"
)

// ErrRollbackNotImplemented is returned by RollbackAction: a rollback
// point is recorded when a reversible action executes, but actually
// restoring from one is not wired up yet.
var ErrRollbackNotImplemented = errors.New("hitl: rollback execution is not implemented")

// Manager is the human-in-the-loop lifecycle: create confirmation
// requests, wait for or poll responses, execute the confirmed option,
// and record feedback. It builds directly on the confirmation and
// feedback tables rather than any agent-specific storage.
type Manager struct {
	confirmations *store.ConfirmationRepo
	feedback      *store.FeedbackRepo
	cfg           Config
}

// NewManager constructs a Manager over the given repositories.
func NewManager(confirmations *store.ConfirmationRepo, feedback *store.FeedbackRepo, cfg Config) *Manager {
	return &Manager{confirmations: confirmations, feedback: feedback, cfg: cfg}
}

// Config returns the policy this manager enforces.
func (m *Manager) Config() Config { return m.cfg }

// Evaluate runs a risk assessment through the confirmation policy and,
// if a human needs to weigh in, persists a pending confirmation
// request. A nil risk, or a risk the policy auto-executes, yields a
// Decision with RequiresConfirmation false.
func (m *Manager) Evaluate(ctx context.Context, workspaceID, userID, agentName, title, description string, risk *RiskAssessment, options []store.ActionOption, defaultOption string, reqContext map[string]interface{}) (*Decision, error) {
	if risk == nil {
		return &Decision{RequiresConfirmation: false}, nil
	}
	if !m.cfg.RequiresConfirmation(risk.Severity) {
		return &Decision{Risk: risk, RequiresConfirmation: false, AutoApproved: true}, nil
	}

	now := time.Now().UTC()
	timeoutSeconds := m.cfg.timeoutFor(options)
	req := store.ConfirmationRequest{
		RequestID:      uuid.New().String(),
		WorkspaceID:    workspaceID,
		UserID:         userID,
		AgentName:      agentName,
		Title:          title,
		Description:    description,
		Context:        reqContext,
		Options:        options,
		DefaultOption:  defaultOption,
		TimeoutSeconds: timeoutSeconds,
		CreatedAt:      now,
		ExpiresAt:      now.Add(time.Duration(timeoutSeconds) * time.Second),
		Status:         store.ConfirmationPending,
	}
	if err := m.confirmations.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create confirmation request: %w", err)
	}
	stored, err := m.confirmations.Get(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("load created confirmation request: %w", err)
	}

	log.Info().
		Str("request_id", stored.RequestID).
		Str("agent", agentName).
		Str("severity", string(risk.Severity)).
		Str("action", string(risk.Type)).
		Msg("confirmation request created")

	return &Decision{Risk: risk, RequiresConfirmation: true, Request: stored}, nil
}

// GetRequest loads a confirmation request by ID.
func (m *Manager) GetRequest(ctx context.Context, requestID string) (*store.ConfirmationRequest, error) {
	return m.confirmations.Get(ctx, requestID)
}

// Respond records a user's chosen option against a pending request.
func (m *Manager) Respond(ctx context.Context, requestID, optionID, respondedBy string) (*store.ConfirmationRequest, error) {
	return m.confirmations.Respond(ctx, requestID, optionID, respondedBy, time.Now().UTC())
}

// WaitForResponse polls a request until it leaves the pending state or
// the context is cancelled. When the request's own expiry passes first,
// it is resolved according to the timeout policy: "default" falls back
// to the request's default option (recorded as if the default chooser
// had answered), anything else expires the request outright.
func (m *Manager) WaitForResponse(ctx context.Context, requestID string, pollInterval time.Duration) (*store.ConfirmationRequest, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		req, err := m.confirmations.Get(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if req.Status != store.ConfirmationPending {
			return req, nil
		}
		if time.Now().UTC().After(req.ExpiresAt) {
			return m.handleTimeout(ctx, req)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// handleTimeout resolves an expired pending request per TimeoutAction.
func (m *Manager) handleTimeout(ctx context.Context, req *store.ConfirmationRequest) (*store.ConfirmationRequest, error) {
	log.Warn().Str("request_id", req.RequestID).Str("timeout_action", m.cfg.TimeoutAction).Msg("confirmation request timed out")
	if m.cfg.TimeoutAction == "default" && req.DefaultOption != "" {
		return m.confirmations.Respond(ctx, req.RequestID, req.DefaultOption, "timeout", time.Now().UTC())
	}
	expired, err := m.confirmations.ExpirePending(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	for _, e := range expired {
		if e.RequestID == req.RequestID {
			return &e, nil
		}
	}
	return m.confirmations.Get(ctx, req.RequestID)
}

// ExpireOverdue transitions every overdue pending request to timeout.
// Intended to be called periodically by a background sweep.
func (m *Manager) ExpireOverdue(ctx context.Context) ([]store.ConfirmationRequest, error) {
	return m.confirmations.ExpirePending(ctx, time.Now().UTC())
}

// Executor runs the action a chosen option authorizes, given that
// option's parameters, and returns whatever result data the caller
// wants recorded against the execution.
type Executor func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)

// ExecuteAction runs the option the user selected on an approved
// request. A reversible option gets a rollback point recorded (but not
// a way to actually roll it back yet, see RollbackAction) before the
// request is marked executed.
func (m *Manager) ExecuteAction(ctx context.Context, requestID string, exec Executor) (*ActionExecutionResult, error) {
	req, err := m.confirmations.Get(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load confirmation request: %w", err)
	}
	if req.Status != store.ConfirmationApproved {
		return &ActionExecutionResult{RequestID: requestID, Success: false,
			Error: fmt.Sprintf("request is %s, not approved", req.Status)}, nil
	}
	if req.Response == nil {
		return &ActionExecutionResult{RequestID: requestID, Success: false, Error: "approved request has no recorded response"}, nil
	}

	var option *store.ActionOption
	for i := range req.Options {
		if req.Options[i].ID == req.Response.OptionID {
			option = &req.Options[i]
			break
		}
	}
	if option == nil {
		return &ActionExecutionResult{RequestID: requestID, OptionID: req.Response.OptionID,
			Success: false, Error: "selected option not found on request"}, nil
	}

	result, err := exec(ctx, option.Parameters)
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID).Str("option_id", option.ID).Msg("confirmed action execution failed")
		return &ActionExecutionResult{RequestID: requestID, OptionID: option.ID, Success: false, Error: err.Error()}, nil
	}

	out := &ActionExecutionResult{RequestID: requestID, OptionID: option.ID, Success: true, Result: result}
	if option.Reversible {
		out.RollbackAvailable = true
		out.RollbackID = uuid.New().String()
	}

	if err := m.confirmations.MarkExecuted(ctx, requestID); err != nil {
		return nil, fmt.Errorf("mark confirmation executed: %w", err)
	}
	return out, nil
}

// RollbackAction is not implemented: rollback points are recorded by
// ExecuteAction, but restoring from one requires replaying the
// original mutation's inverse, which no agent graph exposes yet.
func (m *Manager) RollbackAction(ctx context.Context, rollbackID string) error {
	return ErrRollbackNotImplemented
}

// CollectFeedback records a user's rating of an executed action.
func (m *Manager) CollectFeedback(ctx context.Context, requestID string, rating int, sentiment, comment string) error {
	return m.feedback.Record(ctx, store.UserFeedback{
		FeedbackID: uuid.New().String(),
		RequestID:  requestID,
		Rating:     rating,
		Sentiment:  sentiment,
		Comment:    comment,
		CreatedAt:  time.Now().UTC(),
	})
}
