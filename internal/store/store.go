// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

// Package store is the durable persistence layer: conversation turns and
// facts for the memory store (C2), confirmation requests and feedback for
// the HITL controller (C5), and the task table backing the Task Analysis
// and Board Visualization graphs (C3). A single sqlite file backs all of
// it, matching how the pack's metadata stores co-locate unrelated tables
// behind one connection rather than one database per concern.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps the shared sqlite connection and exposes one repository per
// concern. Repositories hold no state of their own beyond this *sql.DB, so
// they're cheap to construct from Store's accessors.
type Store struct {
	db *sql.DB
}

// Open creates or opens the sqlite database at path and applies the
// schema migration. path may be ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite only tolerates one writer; a single connection avoids
	// "database is locked" errors under concurrent requests rather than
	// pretending the pool can fan out writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Conversations returns the conversation turn repository.
func (s *Store) Conversations() *ConversationRepo {
	return &ConversationRepo{db: s.db}
}

// Facts returns the fact repository.
func (s *Store) Facts() *FactRepo {
	return &FactRepo{db: s.db}
}

// Confirmations returns the HITL confirmation request repository.
func (s *Store) Confirmations() *ConfirmationRepo {
	return &ConfirmationRepo{db: s.db}
}

// Feedback returns the user feedback repository.
func (s *Store) Feedback() *FeedbackRepo {
	return &FeedbackRepo{db: s.db}
}

// Tasks returns the task repository backing the Task Analysis and Board
// Visualization graphs.
func (s *Store) Tasks() *TaskRepo {
	return &TaskRepo{db: s.db}
}

const schema = `
CREATE TABLE IF NOT EXISTS conversation_turns (
	turn_id      TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	user_id      TEXT NOT NULL,
	session_id   TEXT NOT NULL,
	role         TEXT NOT NULL,
	content      TEXT NOT NULL,
	timestamp    TEXT NOT NULL,
	agent_used   TEXT,
	confidence   REAL,
	metadata     TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_turns_session ON conversation_turns(workspace_id, session_id, timestamp);

CREATE TABLE IF NOT EXISTS facts (
	fact_id          TEXT PRIMARY KEY,
	workspace_id     TEXT NOT NULL,
	knowledge_type   TEXT NOT NULL,
	key              TEXT NOT NULL,
	value            TEXT NOT NULL,
	source           TEXT,
	confidence       REAL NOT NULL DEFAULT 0,
	access_count     INTEGER NOT NULL DEFAULT 0,
	last_accessed_at TEXT,
	metadata         TEXT NOT NULL DEFAULT '{}',
	UNIQUE(workspace_id, knowledge_type, key)
);

CREATE TABLE IF NOT EXISTS confirmation_requests (
	request_id     TEXT PRIMARY KEY,
	workspace_id   TEXT NOT NULL,
	user_id        TEXT NOT NULL,
	agent_name     TEXT NOT NULL,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL,
	context        TEXT NOT NULL DEFAULT '{}',
	options        TEXT NOT NULL DEFAULT '[]',
	default_option TEXT,
	timeout_seconds INTEGER NOT NULL,
	created_at     TEXT NOT NULL,
	expires_at     TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	response       TEXT
);
CREATE INDEX IF NOT EXISTS idx_confirmations_status ON confirmation_requests(status, expires_at);

CREATE TABLE IF NOT EXISTS user_feedback (
	feedback_id TEXT PRIMARY KEY,
	request_id  TEXT NOT NULL,
	rating      INTEGER NOT NULL,
	sentiment   TEXT,
	comment     TEXT,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_request ON user_feedback(request_id);

CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	name         TEXT NOT NULL,
	email        TEXT
);

CREATE TABLE IF NOT EXISTS tasks (
	id           TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT,
	status       TEXT NOT NULL DEFAULT 'todo',
	priority     TEXT NOT NULL DEFAULT 'medium',
	assignee_id  TEXT REFERENCES users(id),
	deadline     TEXT,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_workspace ON tasks(workspace_id);
`

func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
