// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"workspace-assistant/internal/store"
	"workspace-assistant/pkg/llm"
)

const extractionSystemPrompt = "You are a precise fact-extraction assistant. You only record verifiable information, never opinions or conversational filler."

func buildExtractionPrompt(question, answer string) string {
	return fmt.Sprintf(`Extract key facts from this Q&A pair that should be remembered long-term.

QUESTION:
%s

ANSWER:
%s

Extract facts in this format (one per line):
TYPE: <definition|concept|example|procedure|entity|general>
ENTITY: <main subject/topic>
CONTENT: <the factual information>
CONFIDENCE: <0.0-1.0>

Rules:
- Only extract factual, verifiable information
- Skip conversational filler or opinions
- Focus on definitions, concepts, examples, procedures
- Use confidence score: 1.0 for direct facts, 0.7-0.9 for inferred facts
- Extract 1-5 facts maximum
- Separate multiple facts with a line of ---

FACTS:`, question, answer)
}

type extractedFact struct {
	Type       string
	Entity     string
	Content    string
	Confidence float64
}

// parseExtractedFacts parses the line-based TYPE/ENTITY/CONTENT/CONFIDENCE
// blocks an LLM returns for fact extraction, tolerant of a model that
// omits a field or the "---" separators between facts.
func parseExtractedFacts(text string) []extractedFact {
	var facts []extractedFact
	current := extractedFact{}
	hasField := false

	flush := func() {
		if hasField {
			facts = append(facts, current)
		}
		current = extractedFact{}
		hasField = false
	}

	for _, rawLine := range strings.Split(strings.TrimSpace(text), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "---") {
			flush()
			continue
		}
		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(field)) {
		case "type":
			if current.Type != "" {
				flush()
			}
			current.Type = value
			hasField = true
		case "entity":
			current.Entity = value
			hasField = true
		case "content":
			current.Content = value
			hasField = true
		case "confidence":
			c, err := strconv.ParseFloat(value, 64)
			if err != nil {
				c = 0.8
			}
			current.Confidence = c
			hasField = true
		}
	}
	flush()
	return facts
}

var knownKnowledgeTypes = []string{
	string(store.KnowledgeDefinition), string(store.KnowledgeConcept), string(store.KnowledgeExample),
	string(store.KnowledgeProcedure), string(store.KnowledgeEntity), string(store.KnowledgeGeneral),
}

func normalizeKnowledgeType(t string) store.KnowledgeType {
	lower := strings.ToLower(strings.TrimSpace(t))
	for _, k := range knownKnowledgeTypes {
		if k == lower {
			return store.KnowledgeType(k)
		}
	}
	return store.KnowledgeGeneral
}

// ExtractAndStoreFacts derives up to five facts from a Q&A pair via an
// LLM extraction prompt and upserts each by (workspace, type, key) using
// the fact store's confidence-gated merge rule. Returns the facts that
// were extracted (not necessarily all newly created — some may have
// updated an existing fact).
func (m *Memory) ExtractAndStoreFacts(ctx context.Context, question, answer, workspaceID, userID, sessionID string) ([]store.Fact, error) {
	if m.extractLLM == nil {
		return nil, fmt.Errorf("fact extraction requires an LLM provider")
	}

	resp, err := m.extractLLM.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: buildExtractionPrompt(question, answer)},
		},
		Temperature: 0,
		MaxTokens:   800,
	})
	if err != nil {
		return nil, fmt.Errorf("fact extraction completion: %w", err)
	}

	parsed := parseExtractedFacts(resp.Content)
	if len(parsed) > 5 {
		parsed = parsed[:5]
	}

	facts := m.store.Facts()
	var stored []store.Fact
	for _, p := range parsed {
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		entity := p.Entity
		if entity == "" {
			entity = "unknown"
		}
		confidence := p.Confidence
		if confidence == 0 {
			confidence = 0.8
		}

		f := store.Fact{
			WorkspaceID:   workspaceID,
			KnowledgeType: normalizeKnowledgeType(p.Type),
			Key:           entity,
			Value:         p.Content,
			Source:        "conversation",
			Confidence:    float32(confidence),
			Metadata: map[string]interface{}{
				"question":   question,
				"answer":     truncate(answer, 200),
				"user_id":    userID,
				"session_id": sessionID,
			},
		}
		if err := facts.Upsert(ctx, uuid.New().String(), f); err != nil {
			return nil, fmt.Errorf("upsert extracted fact: %w", err)
		}
		stored = append(stored, f)
	}
	if m.contextCache != nil && len(stored) > 0 {
		// Composed contexts embed matching facts, so every cached entry
		// for this workspace is stale once a fact is written.
		prefix := workspaceID + "|"
		for _, key := range m.contextCache.Keys() {
			if strings.HasPrefix(key, prefix) {
				m.contextCache.Remove(key)
			}
		}
	}
	return stored, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
