// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Task is a single board/task-tracker item, workspace-scoped.
type Task struct {
	ID           string
	WorkspaceID  string
	Title        string
	Description  string
	Status       string
	Priority     string
	AssigneeID   string
	AssigneeName string
	Deadline     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TaskFilters narrows LoadForBoard results in-memory, case-insensitively.
type TaskFilters struct {
	Status   string
	Assignee string
	Priority string
}

// TaskRepo backs the Task Analysis graph's read-only SQL execution and
// the Board Visualization graph's fixed task/user join.
type TaskRepo struct {
	db *sql.DB
}

const boardQuery = `
	SELECT t.id, t.workspace_id, t.title, t.description, t.status, t.priority,
		COALESCE(t.assignee_id, ''), COALESCE(u.name, ''), t.deadline, t.created_at, t.updated_at
	FROM tasks t
	LEFT JOIN users u ON u.id = t.assignee_id
	WHERE t.workspace_id = ?
	ORDER BY t.created_at ASC
`

// LoadForBoard returns every task in the workspace joined with its
// assignee's name, then applies filters in memory (status/assignee/
// priority, matched case-insensitively) — a fixed query rather than
// dynamically assembled SQL, since the filters are a closed, known set.
func (t *TaskRepo) LoadForBoard(ctx context.Context, workspaceID string, filters TaskFilters) ([]Task, error) {
	rows, err := t.db.QueryContext(ctx, boardQuery, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("load board tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		if !matchesFilters(task, filters) {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func matchesFilters(t Task, f TaskFilters) bool {
	if f.Status != "" && !strings.EqualFold(t.Status, f.Status) {
		return false
	}
	if f.Priority != "" && !strings.EqualFold(t.Priority, f.Priority) {
		return false
	}
	if f.Assignee != "" && !strings.EqualFold(t.AssigneeName, f.Assignee) && !strings.EqualFold(t.AssigneeID, f.Assignee) {
		return false
	}
	return true
}

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var deadline sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&t.ID, &t.WorkspaceID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.AssigneeID, &t.AssigneeName, &deadline, &createdAt, &updatedAt); err != nil {
		return t, fmt.Errorf("scan task: %w", err)
	}
	if deadline.Valid && deadline.String != "" {
		d, err := time.Parse(time.RFC3339Nano, deadline.String)
		if err != nil {
			return t, fmt.Errorf("parse task deadline: %w", err)
		}
		t.Deadline = &d
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return t, fmt.Errorf("parse task created_at: %w", err)
	}
	t.CreatedAt = created
	updated, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return t, fmt.Errorf("parse task updated_at: %w", err)
	}
	t.UpdatedAt = updated
	return t, nil
}

// Schema returns a human-readable description of the tables available to
// the Task Analysis graph's SQL generation step.
func (t *TaskRepo) Schema() string {
	return `tasks(id, workspace_id, title, description, status, priority, assignee_id, deadline, created_at, updated_at)
users(id, workspace_id, name, email)

status values: todo, in_progress, blocked, done
priority values: low, medium, high, critical`
}

// QueryResult is the outcome of a read-only analytical query.
type QueryResult struct {
	Columns     []string
	Rows        [][]interface{}
	RowCount    int
	QueryTimeMS int64
}

// DefaultMaxQueryRows is the row cap RunReadOnlyQuery falls back to when
// the caller passes a non-positive rowLimit.
const DefaultMaxQueryRows = 100

var forbiddenKeywords = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|ALTER|CREATE|TRUNCATE|REPLACE|ATTACH|DETACH|PRAGMA|VACUUM|REINDEX)\b`)

// RunReadOnlyQuery executes a generated SQL statement under the Task
// Analysis graph's execution policy: SELECT-only, must bind
// :workspace_id so results cannot leak across workspaces, capped at
// rowLimit rows (DefaultMaxQueryRows if rowLimit <= 0), and bounded by
// timeout.
func (t *TaskRepo) RunReadOnlyQuery(ctx context.Context, query string, params map[string]interface{}, workspaceID string, timeout time.Duration, rowLimit int) (*QueryResult, error) {
	trimmed := strings.TrimSpace(query)
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return nil, fmt.Errorf("query rejected: only SELECT statements are permitted")
	}
	if forbiddenKeywords.MatchString(trimmed) {
		return nil, fmt.Errorf("query rejected: contains a disallowed statement")
	}
	if !strings.Contains(trimmed, ":workspace_id") {
		return nil, fmt.Errorf("query rejected: must reference :workspace_id")
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if rowLimit <= 0 {
		rowLimit = DefaultMaxQueryRows
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []interface{}{sql.Named("workspace_id", workspaceID)}
	for k, v := range params {
		args = append(args, sql.Named(k, v))
	}

	start := time.Now()
	rows, err := t.db.QueryContext(ctx, trimmed, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var out [][]interface{}
	for rows.Next() {
		if len(out) >= rowLimit {
			break
		}
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan query row: %w", err)
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}

	return &QueryResult{
		Columns:     cols,
		Rows:        out,
		RowCount:    len(out),
		QueryTimeMS: time.Since(start).Milliseconds(),
	}, nil
}
