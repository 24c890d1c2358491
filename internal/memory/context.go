// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"workspace-assistant/internal/store"
)

// GetContext composes a context block for a query: the current
// session's recent turns, a summary of anything older than that window,
// facts matching the query ranked by confidence, then matching turns
// from the user's other sessions in the same workspace. Reading context
// never mutates turns; only the facts actually returned have their
// access_count/last_accessed_at updated.
func (m *Memory) GetContext(ctx context.Context, workspaceID, userID, sessionID, query string, limits Limits) (string, error) {
	cacheKey := workspaceID + "|" + sessionID + "|" + userID + "|" + query
	if m.contextCache != nil {
		if cached, ok := m.contextCache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	turns, err := m.store.Conversations().RecentTurns(ctx, workspaceID, sessionID, limits.RecentTurns)
	if err != nil {
		return "", fmt.Errorf("load recent turns: %w", err)
	}

	summary, err := m.summarizeOlderTurns(ctx, workspaceID, sessionID, limits.RecentTurns)
	if err != nil {
		return "", fmt.Errorf("summarize session: %w", err)
	}

	var facts []store.Fact
	if strings.TrimSpace(query) != "" {
		facts, err = m.store.Facts().SearchByText(ctx, workspaceID, query, limits.MaxFacts)
		if err != nil {
			return "", fmt.Errorf("search facts: %w", err)
		}
		if len(facts) > 0 {
			ids := make([]string, len(facts))
			for i, f := range facts {
				ids[i] = f.FactID
			}
			if err := m.store.Facts().MarkAccessed(ctx, ids, m.now()); err != nil {
				return "", fmt.Errorf("mark facts accessed: %w", err)
			}
		}
	}

	var pastTurns []store.ConversationTurn
	if strings.TrimSpace(query) != "" {
		since := m.now().AddDate(0, 0, -limits.PastWindowDays)
		pastTurns, err = m.store.Conversations().SearchOtherSessions(ctx, workspaceID, userID, sessionID, query, since, limits.MaxPastTurns)
		if err != nil {
			return "", fmt.Errorf("search past sessions: %w", err)
		}
	}

	block := formatContext(turns, summary, facts, pastTurns)
	if m.contextCache != nil {
		m.contextCache.Add(cacheKey, block)
	}
	return block, nil
}

// summarizeOlderTurns produces a short summary when the session has more
// turns than fit in the recent-turns window. This is a deterministic,
// non-LLM summary (count + opening line) rather than an LLM call: the
// summary section exists to tell the reader how much history was
// elided, not to re-narrate it.
func (m *Memory) summarizeOlderTurns(ctx context.Context, workspaceID, sessionID string, recentLimit int) (string, error) {
	total, err := m.store.Conversations().CountForSession(ctx, workspaceID, sessionID)
	if err != nil {
		return "", err
	}
	if total <= recentLimit {
		return "", nil
	}
	elided := total - recentLimit
	return fmt.Sprintf("%d earlier turn(s) in this session are not shown above.", elided), nil
}

func formatContext(turns []store.ConversationTurn, summary string, facts []store.Fact, pastTurns []store.ConversationTurn) string {
	var b strings.Builder

	b.WriteString("## Current Session\n")
	if len(turns) == 0 {
		b.WriteString("(no prior turns)\n")
	}
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(t.Role), t.Content)
	}

	if summary != "" {
		b.WriteString("\n## Summary\n")
		b.WriteString(summary)
		b.WriteString("\n")
	}

	if len(facts) > 0 {
		b.WriteString("\n## Relevant Facts\n")
		for _, f := range facts {
			fmt.Fprintf(&b, "- %s: %s (confidence %.2f)\n", f.Key, f.Value, f.Confidence)
		}
	}

	if len(pastTurns) > 0 {
		b.WriteString("\n## Related Past Sessions\n")
		for _, t := range pastTurns {
			fmt.Fprintf(&b, "[%s, %s] %s: %s\n", t.SessionID, t.Timestamp.Format(time.RFC3339), strings.ToUpper(t.Role), t.Content)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
