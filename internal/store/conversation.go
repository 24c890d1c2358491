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

// ConversationTurn is one append-only turn in a session, ordered by
// Timestamp.
type ConversationTurn struct {
	TurnID      string
	WorkspaceID string
	UserID      string
	SessionID   string
	Role        string // "user", "assistant", or "system"
	Content     string
	Timestamp   time.Time
	AgentUsed   string
	Confidence  *float32
	Metadata    map[string]interface{}
}

// ConversationRepo persists conversation turns.
type ConversationRepo struct {
	db *sql.DB
}

// Append records a new turn. Turns are immutable once written.
func (r *ConversationRepo) Append(ctx context.Context, t ConversationTurn) error {
	metadata, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO conversation_turns
			(turn_id, workspace_id, user_id, session_id, role, content, timestamp, agent_used, confidence, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.TurnID, t.WorkspaceID, t.UserID, t.SessionID, t.Role, t.Content,
		t.Timestamp.UTC().Format(time.RFC3339Nano), t.AgentUsed, t.Confidence, string(metadata))
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// RecentTurns returns the last limit turns for a session, oldest first.
func (r *ConversationRepo) RecentTurns(ctx context.Context, workspaceID, sessionID string, limit int) ([]ConversationTurn, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT turn_id, workspace_id, user_id, session_id, role, content, timestamp, agent_used, confidence, metadata
		FROM conversation_turns
		WHERE workspace_id = ? AND session_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, workspaceID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	var turns []ConversationTurn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// reverse to chronological order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// CountForSession returns the total number of turns recorded in a
// session, used to decide whether a summary is needed beyond the
// recent-turns window.
func (r *ConversationRepo) CountForSession(ctx context.Context, workspaceID, sessionID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM conversation_turns WHERE workspace_id = ? AND session_id = ?
	`, workspaceID, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count session turns: %w", err)
	}
	return count, nil
}

// SearchOtherSessions returns turns belonging to the same workspace and
// user but a different session, whose content contains query as a
// substring, within the last `since`, newest first, capped at limit.
// Never crosses workspace_id or user_id boundaries.
func (r *ConversationRepo) SearchOtherSessions(ctx context.Context, workspaceID, userID, excludeSessionID, query string, since time.Time, limit int) ([]ConversationTurn, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT turn_id, workspace_id, user_id, session_id, role, content, timestamp, agent_used, confidence, metadata
		FROM conversation_turns
		WHERE workspace_id = ? AND user_id = ? AND session_id != ?
			AND content LIKE ? AND timestamp >= ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, workspaceID, userID, excludeSessionID, "%"+query+"%", since.UTC().Format(time.RFC3339Nano), limit)
	if err != nil {
		return nil, fmt.Errorf("search other sessions: %w", err)
	}
	defer rows.Close()

	var turns []ConversationTurn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTurn(row rowScanner) (ConversationTurn, error) {
	var t ConversationTurn
	var ts, metadata string
	var agentUsed sql.NullString
	var confidence sql.NullFloat64

	if err := row.Scan(&t.TurnID, &t.WorkspaceID, &t.UserID, &t.SessionID, &t.Role,
		&t.Content, &ts, &agentUsed, &confidence, &metadata); err != nil {
		return t, fmt.Errorf("scan turn: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return t, fmt.Errorf("parse turn timestamp: %w", err)
	}
	t.Timestamp = parsed
	t.AgentUsed = agentUsed.String
	if confidence.Valid {
		c := float32(confidence.Float64)
		t.Confidence = &c
	}
	if err := json.Unmarshal([]byte(metadata), &t.Metadata); err != nil {
		return t, fmt.Errorf("unmarshal turn metadata: %w", err)
	}
	return t, nil
}
