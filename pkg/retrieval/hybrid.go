// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package retrieval

import (
	"context"
	"sort"

	"workspace-assistant/pkg/vectorstore"
)

// HybridRetriever combines vector and keyword search using Reciprocal Rank
// Fusion (RRF).
type HybridRetriever struct {
	vectorRetriever  *VectorRetriever
	keywordRetriever *KeywordRetriever
	rrfK             int
}

// NewHybridRetriever creates a new hybrid retriever. rrfK is the RRF
// constant (spec default 60); zero falls back to that default.
func NewHybridRetriever(vectorRet *VectorRetriever, keywordRet *KeywordRetriever, rrfK int) *HybridRetriever {
	if rrfK <= 0 {
		rrfK = 60
	}
	return &HybridRetriever{
		vectorRetriever:  vectorRet,
		keywordRetriever: keywordRet,
		rrfK:             rrfK,
	}
}

// fusedHit is one chunk's fused ranking signal, carried through to rerank.
type fusedHit struct {
	Doc          vectorstore.Document
	RRFScore     float64
	VectorScore  float32
	HasVector    bool
	KeywordScore float32
	HasKeyword   bool
	InBoth       bool
}

// Search retrieves candidates from both strategies at 2*topK and fuses them
// with RRF. The full fused set is returned, ordered by RRF score, so the
// caller's rerank stage sees every candidate before truncating to topK.
func (h *HybridRetriever) Search(ctx context.Context, workspaceID, query string, topK int) ([]fusedHit, error) {
	vectorResults, err := h.vectorRetriever.Search(ctx, workspaceID, query, topK*2)
	if err != nil {
		return nil, err
	}
	keywordResults, err := h.keywordRetriever.Search(ctx, workspaceID, query, topK*2)
	if err != nil {
		return nil, err
	}

	return h.fuseRRF(vectorResults, keywordResults), nil
}

// fuseRRF applies Reciprocal Rank Fusion to merge two ranked lists. Ties are
// broken deterministically: presence in both lists first, then higher
// vector_score, then lower chunk_id lexical order, so fixed inputs always
// produce the same order.
func (h *HybridRetriever) fuseRRF(vectorResults, keywordResults []vectorstore.Document) []fusedHit {
	vectorRanks := make(map[string]int, len(vectorResults))
	vectorScore := make(map[string]float32, len(vectorResults))
	vectorDoc := make(map[string]vectorstore.Document, len(vectorResults))
	for i, doc := range vectorResults {
		vectorRanks[doc.ID] = i + 1
		vectorScore[doc.ID] = doc.Score
		vectorDoc[doc.ID] = doc
	}

	keywordRanks := make(map[string]int, len(keywordResults))
	keywordScore := make(map[string]float32, len(keywordResults))
	keywordDoc := make(map[string]vectorstore.Document, len(keywordResults))
	for i, doc := range keywordResults {
		keywordRanks[doc.ID] = i + 1
		keywordScore[doc.ID] = doc.Score
		keywordDoc[doc.ID] = doc
	}

	seen := make(map[string]bool, len(vectorResults)+len(keywordResults))
	order := make([]string, 0, len(vectorResults)+len(keywordResults))
	for _, doc := range vectorResults {
		if !seen[doc.ID] {
			seen[doc.ID] = true
			order = append(order, doc.ID)
		}
	}
	for _, doc := range keywordResults {
		if !seen[doc.ID] {
			seen[doc.ID] = true
			order = append(order, doc.ID)
		}
	}

	hits := make([]fusedHit, 0, len(order))
	for _, id := range order {
		score := 0.0
		_, inVector := vectorRanks[id]
		_, inKeyword := keywordRanks[id]
		if rank, ok := vectorRanks[id]; ok {
			score += 1.0 / float64(rank+h.rrfK)
		}
		if rank, ok := keywordRanks[id]; ok {
			score += 1.0 / float64(rank+h.rrfK)
		}

		doc, ok := vectorDoc[id]
		if !ok {
			doc = keywordDoc[id]
		}

		hits = append(hits, fusedHit{
			Doc:          doc,
			RRFScore:     score,
			VectorScore:  vectorScore[id],
			HasVector:    inVector,
			KeywordScore: keywordScore[id],
			HasKeyword:   inKeyword,
			InBoth:       inVector && inKeyword,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.RRFScore != b.RRFScore {
			return a.RRFScore > b.RRFScore
		}
		if a.InBoth != b.InBoth {
			return a.InBoth
		}
		if a.VectorScore != b.VectorScore {
			return a.VectorScore > b.VectorScore
		}
		return a.Doc.ID < b.Doc.ID
	})

	return hits
}

// Name returns the retriever name.
func (h *HybridRetriever) Name() string {
	return "hybrid"
}
