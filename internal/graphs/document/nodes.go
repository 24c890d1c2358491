// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package document

import (
	"context"
	"fmt"
	"strings"

	"workspace-assistant/internal/memory"
	"workspace-assistant/internal/store"
	"workspace-assistant/pkg/llm"
	"workspace-assistant/pkg/retrieval"
	"workspace-assistant/pkg/workflow"
)

const noInformationAnswer = "I don't have enough information in this workspace to answer that."

var refusalMarkers = []string{
	"i don't know",
	"i do not know",
	"i cannot answer",
	"i can't answer",
	"no information",
}

// Deps are the external collaborators every node needs. Built once by
// the graph constructor and closed over by each node's Execute.
type Deps struct {
	Engine    *retrieval.Engine
	Memory    *memory.Memory
	LLM       llm.Provider
	Config    Config
	History   func(ctx context.Context, workspaceID, sessionID string, limit int) ([]store.ConversationTurn, error)
}

type reformulateNode struct{ d Deps }

func (n *reformulateNode) Name() string { return "reformulate_query" }

func (n *reformulateNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	turns, err := n.d.History(ctx, s.WorkspaceID, s.SessionID, 5)
	if err != nil || len(turns) == 0 {
		s.ReformulatedQuery = s.Query
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}

	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(t.Role), t.Content)
	}
	prompt := fmt.Sprintf(
		"Given this conversation history:\n%s\nRewrite the follow-up question as a standalone question. "+
			"Reply with only the rewritten question.\n\nFollow-up question: %s", b.String(), s.Query)

	resp, err := n.d.LLM.Complete(ctx, &llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.3,
		MaxTokens:   200,
	})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		s.ReformulatedQuery = s.Query
	} else {
		s.ReformulatedQuery = strings.TrimSpace(resp.Content)
	}
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

type retrieveNode struct{ d Deps }

func (n *retrieveNode) Name() string { return "retrieve" }

func (n *retrieveNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	query := s.ReformulatedQuery
	if query == "" {
		query = s.Query
	}
	hits, err := n.d.Engine.Search(ctx, s.WorkspaceID, query, n.d.Config.FinalTopK*2)
	if err != nil {
		s.Error = err
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}
	s.RetrievedChunks = append(s.RetrievedChunks, hits...)
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

type memoryRetrievalNode struct{ d Deps }

func (n *memoryRetrievalNode) Name() string { return "memory_retrieval" }

func (n *memoryRetrievalNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	query := s.ReformulatedQuery
	if query == "" {
		query = s.Query
	}
	block, err := n.d.Memory.GetContext(ctx, s.WorkspaceID, s.UserID, s.SessionID, query, memory.DefaultLimits)
	if err != nil {
		s.Error = err
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}
	s.ConversationContext = block
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

// afterMemoryRetrieval is the conditional edge after memory_retrieval:
// empty retrieval or a retrieval error routes to fallback.
func afterMemoryRetrieval(s *State) string {
	if s.Error != nil || len(s.RetrievedChunks) == 0 {
		return "fallback"
	}
	return "rerank"
}

type rerankNode struct{ d Deps }

func (n *rerankNode) Name() string { return "rerank" }

func (n *rerankNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	hits := s.RetrievedChunks
	if len(hits) > n.d.Config.FinalTopK {
		hits = hits[:n.d.Config.FinalTopK]
	}
	s.RerankedChunks = hits

	var top float64
	if len(hits) > 0 && hits[0].ScoreRerank != nil {
		top = *hits[0].ScoreRerank
	}
	s.HasRelevantDocs = top >= n.d.Config.RelevanceThreshold
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

func afterRerank(s *State) string {
	if s.HasRelevantDocs {
		return "generate"
	}
	return "fallback"
}

type generateNode struct{ d Deps }

func (n *generateNode) Name() string { return "generate" }

func (n *generateNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	var chunks strings.Builder
	for i, h := range s.RerankedChunks {
		fmt.Fprintf(&chunks, "[chunk %d | %s]\n%s\n\n", i+1, h.ChunkID, h.Text)
	}

	prompt := fmt.Sprintf(
		"Conversation memory:\n%s\n\nRetrieved context:\n%s\nQuestion: %s\n\n"+
			"Answer using only the retrieved context and conversation memory above. "+
			"Reference chunks by their id in parentheses when you use them.",
		s.ConversationContext, chunks.String(), s.Query)

	resp, err := n.d.LLM.Complete(ctx, &llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.2,
		MaxTokens:   800,
	})
	if err != nil {
		s.Error = err
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}

	s.Answer = strings.TrimSpace(resp.Content)
	s.Citations = extractCitations(s.Answer, s.RerankedChunks)

	var topRerank float64
	if len(s.RerankedChunks) > 0 && s.RerankedChunks[0].ScoreRerank != nil {
		topRerank = *s.RerankedChunks[0].ScoreRerank
	}
	s.Confidence = minFloat(1.0, topRerank/1.5)
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

// extractCitations matches chunk ids referenced in the answer text
// against the chunks actually passed to generate.
func extractCitations(answer string, chunks []retrieval.SearchHit) []string {
	var cites []string
	for _, c := range chunks {
		if strings.Contains(answer, c.ChunkID) {
			cites = append(cites, c.ChunkID)
		}
	}
	return cites
}

type fallbackNode struct{ d Deps }

func (n *fallbackNode) Name() string { return "fallback" }

func (n *fallbackNode) Execute(ctx context.Context, s *State) (*workflow.NodeResult[State], error) {
	if strings.TrimSpace(s.ConversationContext) == "" {
		s.Answer = noInformationAnswer
		s.Confidence = 0
		s.FallbackTriggered = true
		s.Citations = []string{}
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}

	prompt := fmt.Sprintf(
		"Using only this conversation memory (no document context is available):\n%s\n\nQuestion: %s\n\n"+
			"If you cannot answer from memory alone, say so plainly.", s.ConversationContext, s.Query)

	resp, err := n.d.LLM.Complete(ctx, &llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.3,
		MaxTokens:   500,
	})

	answer := ""
	if err == nil {
		answer = strings.TrimSpace(resp.Content)
	}

	if len(answer) > n.d.Config.FallbackMinLength && !startsWithRefusal(answer) {
		s.Answer = answer
		s.Confidence = 0.5
		s.Citations = []string{}
		return &workflow.NodeResult[State]{UpdatedState: s}, nil
	}

	s.Answer = noInformationAnswer
	s.Confidence = 0
	s.FallbackTriggered = true
	s.Citations = []string{}
	return &workflow.NodeResult[State]{UpdatedState: s}, nil
}

func startsWithRefusal(answer string) bool {
	lower := strings.ToLower(answer)
	for _, marker := range refusalMarkers {
		if strings.HasPrefix(lower, marker) {
			return true
		}
	}
	return false
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
