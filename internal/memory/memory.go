// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

// Package memory implements the workspace assistant's memory store: turn
// recording, LLM-driven long-term fact extraction, and composed context
// retrieval for downstream agent graphs. Persistence lives in
// internal/store; this package owns the extraction prompt, the upsert
// policy invocation, and the context-assembly shape.
package memory

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"workspace-assistant/internal/store"
	"workspace-assistant/pkg/llm"
)

// Limits bounds how much history and how many facts get pulled into a
// composed context block.
type Limits struct {
	RecentTurns    int
	MaxFacts       int
	MaxPastTurns   int
	PastWindowDays int
}

// DefaultLimits matches the conservative defaults used across the
// original conversation/fact memory managers.
var DefaultLimits = Limits{
	RecentTurns:    10,
	MaxFacts:       5,
	MaxPastTurns:   5,
	PastWindowDays: 30,
}

// Memory is the durable, workspace-isolated memory store: conversation
// turns (short-term) and extracted facts (long-term), composed into a
// single context block for the agent graphs.
type Memory struct {
	store        *store.Store
	extractLLM   llm.Provider
	contextCache *lru.Cache[string, string]
	now          func() time.Time
}

// New builds a Memory over the given store and extraction LLM. extractLLM
// is used only for extract_and_store_facts's fact-extraction prompt; turn
// recording and context composition never call the LLM. cacheSize bounds
// the in-process composed-context cache (0 disables caching).
func New(s *store.Store, extractLLM llm.Provider, cacheSize int) (*Memory, error) {
	m := &Memory{store: s, extractLLM: extractLLM, now: time.Now}
	if cacheSize > 0 {
		cache, err := lru.New[string, string](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create context cache: %w", err)
		}
		m.contextCache = cache
	}
	return m, nil
}

// RecordTurn appends a conversation turn. Append-only: turns are never
// edited or deleted once written. A turn with a zero Timestamp is
// stamped with wall-clock time at call time; a non-zero one is kept.
func (m *Memory) RecordTurn(ctx context.Context, t store.ConversationTurn) error {
	if t.Timestamp.IsZero() {
		t.Timestamp = m.now()
	}
	if err := m.store.Conversations().Append(ctx, t); err != nil {
		return err
	}
	m.invalidateSession(t.WorkspaceID, t.SessionID)
	return nil
}

// RecentTurns returns the last limit turns for a session, oldest first.
// Exposed so callers that need raw turns (e.g. query reformulation
// against the last few turns) don't need their own store.Store handle.
func (m *Memory) RecentTurns(ctx context.Context, workspaceID, sessionID string, limit int) ([]store.ConversationTurn, error) {
	return m.store.Conversations().RecentTurns(ctx, workspaceID, sessionID, limit)
}

func (m *Memory) invalidateSession(workspaceID, sessionID string) {
	if m.contextCache == nil {
		return
	}
	// Context depends on the whole session + fact state, so any new turn
	// invalidates every cached context key for this session rather than
	// tracking per-query dependencies.
	prefix := workspaceID + "|" + sessionID + "|"
	for _, key := range m.contextCache.Keys() {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			m.contextCache.Remove(key)
		}
	}
}
