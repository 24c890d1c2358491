// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package retrieval

import (
	"context"
	"fmt"

	"workspace-assistant/pkg/embedding"
	"workspace-assistant/pkg/vectorstore"
)

// VectorRetriever implements pure semantic vector similarity search, scoped
// to a single workspace.
type VectorRetriever struct {
	store    vectorstore.Store
	embedder embedding.Embedder
}

// NewVectorRetriever creates a new vector retriever.
func NewVectorRetriever(store vectorstore.Store, embedder embedding.Embedder) *VectorRetriever {
	return &VectorRetriever{
		store:    store,
		embedder: embedder,
	}
}

// Search performs semantic vector similarity search over the chunks
// belonging to workspaceID. A corrupt chunk missing its embedding is the
// vector store's concern, not this retriever's: the store is expected to
// exclude such rows from results rather than erroring the whole search.
func (v *VectorRetriever) Search(ctx context.Context, workspaceID, query string, topK int) ([]vectorstore.Document, error) {
	embedResp, err := v.embedder.Embed(ctx, &embedding.EmbedRequest{
		Texts: []string{query},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embedResp.Vectors) == 0 {
		return nil, fmt.Errorf("no embeddings generated")
	}

	searchResp, err := v.store.Search(ctx, &vectorstore.SearchRequest{
		Vector: embedResp.Vectors[0].Embedding,
		TopK:   topK,
		Filter: vectorstore.Filter{"workspace_id": workspaceID},
	})
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	return searchResp.Documents, nil
}

// Name returns the retriever name.
func (v *VectorRetriever) Name() string {
	return "vector"
}
