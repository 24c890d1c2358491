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

// KnowledgeType classifies a Fact.
type KnowledgeType string

const (
	KnowledgeDefinition KnowledgeType = "definition"
	KnowledgeConcept    KnowledgeType = "concept"
	KnowledgeExample    KnowledgeType = "example"
	KnowledgeProcedure  KnowledgeType = "procedure"
	KnowledgeEntity     KnowledgeType = "entity"
	KnowledgeGeneral    KnowledgeType = "general"
)

// Fact is a durable, keyed piece of knowledge. Uniqueness is
// (WorkspaceID, KnowledgeType, Key).
type Fact struct {
	FactID         string
	WorkspaceID    string
	KnowledgeType  KnowledgeType
	Key            string
	Value          string
	Source         string
	Confidence     float32
	AccessCount    int
	LastAccessedAt *time.Time
	Metadata       map[string]interface{}
}

// FactRepo persists and retrieves facts.
type FactRepo struct {
	db *sql.DB
}

// Upsert inserts or merges a fact by (workspace_id, knowledge_type, key):
// if the new confidence is >= the existing confidence, the value and
// source are replaced; otherwise the existing value and source are kept
// and only metadata is merged. newID is used only on first insert.
func (r *FactRepo) Upsert(ctx context.Context, newID string, f Fact) error {
	newMetadata, err := json.Marshal(f.Metadata)
	if err != nil {
		return fmt.Errorf("marshal fact metadata: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var existingID, existingMetadata string
	var existingConfidence float32
	err = tx.QueryRowContext(ctx, `
		SELECT fact_id, confidence, metadata FROM facts
		WHERE workspace_id = ? AND knowledge_type = ? AND key = ?
	`, f.WorkspaceID, string(f.KnowledgeType), f.Key).Scan(&existingID, &existingConfidence, &existingMetadata)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO facts (fact_id, workspace_id, knowledge_type, key, value, source, confidence, access_count, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)
		`, newID, f.WorkspaceID, string(f.KnowledgeType), f.Key, f.Value, f.Source, f.Confidence, string(newMetadata))
		if err != nil {
			return fmt.Errorf("insert fact: %w", err)
		}
	case err != nil:
		return fmt.Errorf("lookup existing fact: %w", err)
	default:
		merged, mergeErr := mergeMetadata(existingMetadata, string(newMetadata))
		if mergeErr != nil {
			return mergeErr
		}
		if f.Confidence >= existingConfidence {
			_, err = tx.ExecContext(ctx, `
				UPDATE facts SET value = ?, source = ?, confidence = ?, metadata = ?
				WHERE fact_id = ?
			`, f.Value, f.Source, f.Confidence, merged, existingID)
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE facts SET metadata = ? WHERE fact_id = ?
			`, merged, existingID)
		}
		if err != nil {
			return fmt.Errorf("update fact: %w", err)
		}
	}

	return tx.Commit()
}

func mergeMetadata(existing, incoming string) (string, error) {
	var e, n map[string]interface{}
	if err := json.Unmarshal([]byte(existing), &e); err != nil {
		return "", fmt.Errorf("unmarshal existing metadata: %w", err)
	}
	if err := json.Unmarshal([]byte(incoming), &n); err != nil {
		return "", fmt.Errorf("unmarshal incoming metadata: %w", err)
	}
	if e == nil {
		e = make(map[string]interface{})
	}
	for k, v := range n {
		e[k] = v
	}
	merged, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal merged metadata: %w", err)
	}
	return string(merged), nil
}

// SearchByText returns facts in workspaceID whose key or value contains
// query as a substring, ranked by confidence desc, then access_count desc,
// then recency (most recently accessed first among ties, newest-without-
// access last). Reading facts is a caller-driven side effect: use
// MarkAccessed to record it, never implicitly here.
func (r *FactRepo) SearchByText(ctx context.Context, workspaceID, query string, limit int) ([]Fact, error) {
	like := "%" + query + "%"
	rows, err := r.db.QueryContext(ctx, `
		SELECT fact_id, workspace_id, knowledge_type, key, value, source, confidence, access_count, last_accessed_at, metadata
		FROM facts
		WHERE workspace_id = ? AND (key LIKE ? OR value LIKE ?)
		ORDER BY confidence DESC, access_count DESC, last_accessed_at DESC
		LIMIT ?
	`, workspaceID, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search facts: %w", err)
	}
	defer rows.Close()

	var facts []Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// MarkAccessed increments access_count and sets last_accessed_at for the
// given facts. Called after facts are surfaced in a context block, never
// during a plain read.
func (r *FactRepo) MarkAccessed(ctx context.Context, factIDs []string, at time.Time) error {
	if len(factIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE facts SET access_count = access_count + 1, last_accessed_at = ?
		WHERE fact_id = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare mark-accessed: %w", err)
	}
	defer stmt.Close()

	ts := at.UTC().Format(time.RFC3339Nano)
	for _, id := range factIDs {
		if _, err := stmt.ExecContext(ctx, ts, id); err != nil {
			return fmt.Errorf("mark fact accessed: %w", err)
		}
	}
	return tx.Commit()
}

func scanFact(row rowScanner) (Fact, error) {
	var f Fact
	var knowledgeType, metadata string
	var source sql.NullString
	var lastAccessed sql.NullString

	if err := row.Scan(&f.FactID, &f.WorkspaceID, &knowledgeType, &f.Key, &f.Value,
		&source, &f.Confidence, &f.AccessCount, &lastAccessed, &metadata); err != nil {
		return f, fmt.Errorf("scan fact: %w", err)
	}
	f.KnowledgeType = KnowledgeType(knowledgeType)
	f.Source = source.String
	if lastAccessed.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastAccessed.String)
		if err != nil {
			return f, fmt.Errorf("parse last_accessed_at: %w", err)
		}
		f.LastAccessedAt = &t
	}
	if err := json.Unmarshal([]byte(metadata), &f.Metadata); err != nil {
		return f, fmt.Errorf("unmarshal fact metadata: %w", err)
	}
	return f, nil
}
