// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

// Package document implements the Document QA graph: reformulate the
// query against recent conversation turns, retrieve and rerank chunks,
// pull in long-term memory context, and either generate a cited answer
// or fall back to a memory-only (or canned) one.
package document

import (
	"workspace-assistant/pkg/retrieval"
)

// State is the typed state threaded through every node of the Document
// QA graph. Fields are left zero-valued until the node that produces
// them has run.
type State struct {
	Query       string
	WorkspaceID string
	UserID      string
	SessionID   string

	ReformulatedQuery string

	RetrievedChunks []retrieval.SearchHit
	RerankedChunks  []retrieval.SearchHit
	HasRelevantDocs bool

	ConversationContext string

	Answer           string
	Citations        []string
	Confidence       float64
	FallbackTriggered bool

	Error error

	Stats map[string]interface{}
}

// Config bounds the graph's retrieval and relevance behavior.
type Config struct {
	FinalTopK          int
	RelevanceThreshold float64
	FallbackMinLength  int
}

// DefaultConfig matches the values used across the retrieval pipeline's
// own defaults.
var DefaultConfig = Config{
	FinalTopK:          5,
	RelevanceThreshold: 0.2,
	FallbackMinLength:  40,
}
