// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package retrieval

import (
	"context"
	"fmt"
)

// SearchHit is a transient, ranked retrieval result. Every hit carries at
// least one non-nil score; Rank is 1-based once assigned by Engine.Search.
type SearchHit struct {
	ChunkID      string
	Text         string
	Metadata     map[string]interface{}
	DocumentID   string
	WorkspaceID  string
	ChunkIndex   int
	ScoreVector  *float32
	ScoreLexical *float32
	ScoreHybrid  *float64
	ScoreRerank  *float64
	Rank         int
}

// RetrievalFailedError wraps an underlying cause (embedder failure, store
// failure) that aborted a search outright, as opposed to a search that
// completed with zero results.
type RetrievalFailedError struct {
	Cause error
}

func (e *RetrievalFailedError) Error() string {
	return fmt.Sprintf("retrieval failed: %v", e.Cause)
}

func (e *RetrievalFailedError) Unwrap() error {
	return e.Cause
}

// Engine runs the full retrieval pipeline: vector search, BM25 lexical
// search, RRF fusion, and rerank.
type Engine struct {
	hybrid   *HybridRetriever
	reranker *Reranker
}

// NewEngine assembles a retrieval engine from its configured stages.
func NewEngine(hybrid *HybridRetriever, reranker *Reranker) *Engine {
	return &Engine{hybrid: hybrid, reranker: reranker}
}

// Search implements the retrieval contract: search(query, workspace_id,
// top_k) -> ordered sequence of SearchHit, sorted by final score
// descending with rank assigned 1..n. An empty workspace returns an empty
// slice, not an error.
func (e *Engine) Search(ctx context.Context, workspaceID, query string, topK int) ([]SearchHit, error) {
	fused, err := e.hybrid.Search(ctx, workspaceID, query, topK)
	if err != nil {
		return nil, &RetrievalFailedError{Cause: err}
	}
	if len(fused) == 0 {
		return []SearchHit{}, nil
	}

	reranked := e.reranker.Rerank(query, fused)
	if len(reranked) > topK {
		reranked = reranked[:topK]
	}

	hits := make([]SearchHit, len(reranked))
	for i, r := range reranked {
		h := r.fused
		rrf := h.RRFScore
		final := r.final
		hit := SearchHit{
			ChunkID:     h.Doc.ID,
			Text:        h.Doc.Content,
			Metadata:    h.Doc.Metadata,
			WorkspaceID: workspaceID,
			ScoreHybrid: &rrf,
			ScoreRerank: &final,
			Rank:        i + 1,
		}
		if h.HasVector {
			v := h.VectorScore
			hit.ScoreVector = &v
		}
		if h.HasKeyword {
			k := h.KeywordScore
			hit.ScoreLexical = &k
		}
		if docID, ok := h.Doc.Metadata["document_id"].(string); ok {
			hit.DocumentID = docID
		}
		if idx, ok := h.Doc.Metadata["chunk_index"].(int); ok {
			hit.ChunkIndex = idx
		}
		hits[i] = hit
	}
	return hits, nil
}
