// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// UserFeedback is a rating left after an executed action, linked back
// to the confirmation request that authorized it.
type UserFeedback struct {
	FeedbackID string
	RequestID  string
	Rating     int // 1-5
	Sentiment  string
	Comment    string
	CreatedAt  time.Time
}

// FeedbackRepo persists user feedback.
type FeedbackRepo struct {
	db *sql.DB
}

// Record stores feedback for a request.
func (r *FeedbackRepo) Record(ctx context.Context, f UserFeedback) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_feedback (feedback_id, request_id, rating, sentiment, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, f.FeedbackID, f.RequestID, f.Rating, f.Sentiment, f.Comment, f.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	return nil
}

// ForRequest returns all feedback recorded against a request, oldest first.
func (r *FeedbackRepo) ForRequest(ctx context.Context, requestID string) ([]UserFeedback, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT feedback_id, request_id, rating, sentiment, comment, created_at
		FROM user_feedback WHERE request_id = ? ORDER BY created_at ASC
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	var out []UserFeedback
	for rows.Next() {
		var f UserFeedback
		var sentiment, comment sql.NullString
		var createdAt string
		if err := rows.Scan(&f.FeedbackID, &f.RequestID, &f.Rating, &sentiment, &comment, &createdAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		f.Sentiment = sentiment.String
		f.Comment = comment.String
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse feedback created_at: %w", err)
		}
		f.CreatedAt = ts
		out = append(out, f)
	}
	return out, rows.Err()
}
