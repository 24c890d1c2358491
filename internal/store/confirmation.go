// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ConfirmationStatus is the lifecycle state of a ConfirmationRequest.
type ConfirmationStatus string

const (
	ConfirmationPending  ConfirmationStatus = "pending"
	ConfirmationApproved ConfirmationStatus = "approved"
	ConfirmationRejected ConfirmationStatus = "rejected"
	ConfirmationTimeout  ConfirmationStatus = "timeout"
	ConfirmationExecuted ConfirmationStatus = "executed"
)

// ActionOption is one choice offered to the confirming user.
type ActionOption struct {
	ID               string                 `json:"id"`
	Label            string                 `json:"label"`
	Description      string                 `json:"description"`
	Reversible       bool                   `json:"reversible"`
	Severity         string                 `json:"severity"`
	EstimatedImpact  string                 `json:"estimated_impact"`
	Parameters       map[string]interface{} `json:"parameters,omitempty"`
}

// ConfirmationResponse is the recorded answer to a ConfirmationRequest.
type ConfirmationResponse struct {
	OptionID    string    `json:"option_id"`
	RespondedBy string    `json:"responded_by"`
	RespondedAt time.Time `json:"responded_at"`
}

// ConfirmationRequest is a durable request for human approval of a
// risky action, surviving process restarts.
type ConfirmationRequest struct {
	RequestID      string
	WorkspaceID    string
	UserID         string
	AgentName      string
	Title          string
	Description    string
	Context        map[string]interface{}
	Options        []ActionOption
	DefaultOption  string
	TimeoutSeconds int
	CreatedAt      time.Time
	ExpiresAt      time.Time
	Status         ConfirmationStatus
	Response       *ConfirmationResponse
}

// ConfirmationRepo persists confirmation requests.
type ConfirmationRepo struct {
	db *sql.DB
}

// Create persists a new pending confirmation request. ExpiresAt must
// already equal CreatedAt + TimeoutSeconds; the caller computes it.
func (r *ConfirmationRepo) Create(ctx context.Context, c ConfirmationRequest) error {
	contextJSON, err := json.Marshal(c.Context)
	if err != nil {
		return fmt.Errorf("marshal confirmation context: %w", err)
	}
	optionsJSON, err := json.Marshal(c.Options)
	if err != nil {
		return fmt.Errorf("marshal confirmation options: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO confirmation_requests
			(request_id, workspace_id, user_id, agent_name, title, description, context, options,
			 default_option, timeout_seconds, created_at, expires_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.RequestID, c.WorkspaceID, c.UserID, c.AgentName, c.Title, c.Description,
		string(contextJSON), string(optionsJSON), c.DefaultOption, c.TimeoutSeconds,
		c.CreatedAt.UTC().Format(time.RFC3339Nano), c.ExpiresAt.UTC().Format(time.RFC3339Nano), string(ConfirmationPending))
	if err != nil {
		return fmt.Errorf("create confirmation request: %w", err)
	}
	return nil
}

// Get loads a confirmation request by ID.
func (r *ConfirmationRepo) Get(ctx context.Context, requestID string) (*ConfirmationRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT request_id, workspace_id, user_id, agent_name, title, description, context, options,
			default_option, timeout_seconds, created_at, expires_at, status, response
		FROM confirmation_requests WHERE request_id = ?
	`, requestID)
	return scanConfirmation(row)
}

// Respond records the user's choice, but only if the request is still
// pending: the status transition happens exactly once. If the request
// has already been answered (by a prior call, possibly from a different
// process), the previously stored response is returned unchanged rather
// than overwritten — a double submission is idempotent, not an error.
func (r *ConfirmationRepo) Respond(ctx context.Context, requestID, optionID, respondedBy string, at time.Time) (*ConfirmationRequest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	resp := ConfirmationResponse{OptionID: optionID, RespondedBy: respondedBy, RespondedAt: at}
	responseJSON, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal confirmation response: %w", err)
	}

	status := string(ConfirmationApproved)
	if optionID == "cancel" {
		status = string(ConfirmationRejected)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE confirmation_requests SET status = ?, response = ?
		WHERE request_id = ? AND status = ?
	`, status, string(responseJSON), requestID, string(ConfirmationPending))
	if err != nil {
		return nil, fmt.Errorf("respond to confirmation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("confirmation rows affected: %w", err)
	}
	if rows == 0 {
		// Already answered elsewhere: return what's actually stored.
		row := tx.QueryRowContext(ctx, `
			SELECT request_id, workspace_id, user_id, agent_name, title, description, context, options,
				default_option, timeout_seconds, created_at, expires_at, status, response
			FROM confirmation_requests WHERE request_id = ?
		`, requestID)
		existing, scanErr := scanConfirmation(row)
		if scanErr != nil {
			return nil, scanErr
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return existing, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit confirmation response: %w", err)
	}
	return r.Get(ctx, requestID)
}

// ExpirePending transitions any pending request whose ExpiresAt has
// passed to timeout status. Returns the requests that were expired.
func (r *ConfirmationRepo) ExpirePending(ctx context.Context, now time.Time) ([]ConfirmationRequest, error) {
	nowStr := now.UTC().Format(time.RFC3339Nano)
	rows, err := r.db.QueryContext(ctx, `
		SELECT request_id FROM confirmation_requests WHERE status = ? AND expires_at <= ?
	`, string(ConfirmationPending), nowStr)
	if err != nil {
		return nil, fmt.Errorf("query expiring confirmations: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan expiring confirmation id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var expired []ConfirmationRequest
	for _, id := range ids {
		res, err := r.db.ExecContext(ctx, `
			UPDATE confirmation_requests SET status = ? WHERE request_id = ? AND status = ?
		`, string(ConfirmationTimeout), id, string(ConfirmationPending))
		if err != nil {
			return nil, fmt.Errorf("expire confirmation: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		c, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		expired = append(expired, *c)
	}
	return expired, nil
}

// MarkExecuted transitions an approved request to executed, recording
// that the underlying agent action actually ran.
func (r *ConfirmationRepo) MarkExecuted(ctx context.Context, requestID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE confirmation_requests SET status = ? WHERE request_id = ? AND status = ?
	`, string(ConfirmationExecuted), requestID, string(ConfirmationApproved))
	if err != nil {
		return fmt.Errorf("mark confirmation executed: %w", err)
	}
	return nil
}

func scanConfirmation(row rowScanner) (*ConfirmationRequest, error) {
	var c ConfirmationRequest
	var contextJSON, optionsJSON, createdAt, expiresAt, status string
	var defaultOption, responseJSON sql.NullString

	if err := row.Scan(&c.RequestID, &c.WorkspaceID, &c.UserID, &c.AgentName, &c.Title, &c.Description,
		&contextJSON, &optionsJSON, &defaultOption, &c.TimeoutSeconds, &createdAt, &expiresAt, &status, &responseJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan confirmation request: %w", err)
	}

	if err := json.Unmarshal([]byte(contextJSON), &c.Context); err != nil {
		return nil, fmt.Errorf("unmarshal confirmation context: %w", err)
	}
	if err := json.Unmarshal([]byte(optionsJSON), &c.Options); err != nil {
		return nil, fmt.Errorf("unmarshal confirmation options: %w", err)
	}
	c.DefaultOption = defaultOption.String
	c.Status = ConfirmationStatus(status)

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse confirmation created_at: %w", err)
	}
	c.CreatedAt = created
	expires, err := time.Parse(time.RFC3339Nano, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("parse confirmation expires_at: %w", err)
	}
	c.ExpiresAt = expires

	if responseJSON.Valid {
		var resp ConfirmationResponse
		if err := json.Unmarshal([]byte(responseJSON.String), &resp); err != nil {
			return nil, fmt.Errorf("unmarshal confirmation response: %w", err)
		}
		c.Response = &resp
	}
	return &c, nil
}
