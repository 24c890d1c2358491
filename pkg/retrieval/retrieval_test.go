// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workspace-assistant/pkg/embedding"
	"workspace-assistant/pkg/vectorstore"
)

type mockEmbedder struct {
	embeddings [][]float32
	err        error
}

func (m *mockEmbedder) Embed(ctx context.Context, req *embedding.EmbedRequest) (*embedding.EmbedResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.embeddings != nil {
		vectors := make([]embedding.Vector, len(m.embeddings))
		for i, emb := range m.embeddings {
			vectors[i] = embedding.Vector{Embedding: emb, Text: req.Texts[i]}
		}
		return &embedding.EmbedResponse{Vectors: vectors}, nil
	}
	vectors := make([]embedding.Vector, len(req.Texts))
	for i, text := range req.Texts {
		vectors[i] = embedding.Vector{Embedding: []float32{0.1, 0.2, 0.3}, Text: text}
	}
	return &embedding.EmbedResponse{Vectors: vectors}, nil
}

type mockVectorStore struct {
	searchResp *vectorstore.SearchResponse
	err        error
}

func (m *mockVectorStore) Insert(ctx context.Context, req *vectorstore.InsertRequest) (*vectorstore.InsertResponse, error) {
	return nil, nil
}
func (m *mockVectorStore) Search(ctx context.Context, req *vectorstore.SearchRequest) (*vectorstore.SearchResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.searchResp, nil
}
func (m *mockVectorStore) Delete(ctx context.Context, req *vectorstore.DeleteRequest) (*vectorstore.DeleteResponse, error) {
	return nil, nil
}
func (m *mockVectorStore) Get(ctx context.Context, collection string, ids []string) ([]vectorstore.Document, error) {
	return nil, nil
}
func (m *mockVectorStore) CreateCollection(ctx context.Context, name string, dim int, meta map[string]interface{}) error {
	return nil
}
func (m *mockVectorStore) DeleteCollection(ctx context.Context, name string) error { return nil }
func (m *mockVectorStore) ListCollections(ctx context.Context) ([]vectorstore.CollectionInfo, error) {
	return nil, nil
}
func (m *mockVectorStore) GetCollection(ctx context.Context, name string) (*vectorstore.CollectionInfo, error) {
	return nil, nil
}
func (m *mockVectorStore) Close() error { return nil }
func (m *mockVectorStore) Name() string { return "mock" }

func TestVectorSearch(t *testing.T) {
	t.Run("returns store results", func(t *testing.T) {
		store := &mockVectorStore{searchResp: &vectorstore.SearchResponse{
			Documents: []vectorstore.Document{{ID: "c1", Content: "hello world"}},
		}}
		v := NewVectorRetriever(store, &mockEmbedder{})
		docs, err := v.Search(context.Background(), "ws1", "hello", 5)
		require.NoError(t, err)
		assert.Len(t, docs, 1)
		assert.Equal(t, "c1", docs[0].ID)
	})

	t.Run("embedder error propagates", func(t *testing.T) {
		store := &mockVectorStore{}
		v := NewVectorRetriever(store, &mockEmbedder{err: errors.New("embed down")})
		_, err := v.Search(context.Background(), "ws1", "hello", 5)
		assert.Error(t, err)
	})

	t.Run("no embeddings generated", func(t *testing.T) {
		store := &mockVectorStore{}
		v := NewVectorRetriever(store, &mockEmbedder{embeddings: [][]float32{}})
		_, err := v.Search(context.Background(), "ws1", "hello", 5)
		assert.Error(t, err)
	})

	t.Run("store error propagates", func(t *testing.T) {
		store := &mockVectorStore{err: errors.New("store down")}
		v := NewVectorRetriever(store, &mockEmbedder{})
		_, err := v.Search(context.Background(), "ws1", "hello", 5)
		assert.Error(t, err)
	})
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "world"}, tokenize("Hello, World!"))
	assert.Equal(t, []string{"a", "b_c"}, tokenize("a-b_c"))
	assert.Empty(t, tokenize("   "))
}

func TestKeywordSearch(t *testing.T) {
	k := NewKeywordRetriever(1.5, 0.75)
	docs := []vectorstore.Document{
		{ID: "doc1", Content: "the quick brown fox jumps over the lazy dog"},
		{ID: "doc2", Content: "a completely unrelated sentence about cats"},
		{ID: "doc3", Content: "quick foxes are quick and brown"},
	}
	require.NoError(t, k.Index(context.Background(), "ws1", docs))

	t.Run("finds relevant documents", func(t *testing.T) {
		results, err := k.Search(context.Background(), "ws1", "quick fox", 10)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "doc1", results[0].ID)
	})

	t.Run("empty query returns empty", func(t *testing.T) {
		results, err := k.Search(context.Background(), "ws1", "   ", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("no matching documents", func(t *testing.T) {
		results, err := k.Search(context.Background(), "ws1", "xyzzy plugh", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("respects topK", func(t *testing.T) {
		results, err := k.Search(context.Background(), "ws1", "quick", 1)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("empty workspace returns empty", func(t *testing.T) {
		results, err := k.Search(context.Background(), "unknown-ws", "quick", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("deleted documents drop out", func(t *testing.T) {
		require.NoError(t, k.Delete(context.Background(), "ws1", []string{"doc3"}))
		results, err := k.Search(context.Background(), "ws1", "quick fox", 10)
		require.NoError(t, err)
		for _, r := range results {
			assert.NotEqual(t, "doc3", r.ID)
		}
		require.NoError(t, k.Index(context.Background(), "ws1", []vectorstore.Document{docs[2]}))
	})
}

func TestFuseRRF(t *testing.T) {
	h := NewHybridRetriever(nil, nil, 60)
	vectorResults := []vectorstore.Document{
		{ID: "doc1", Score: 0.9},
		{ID: "doc2", Score: 0.8},
	}
	keywordResults := []vectorstore.Document{
		{ID: "doc2", Score: 5.0},
		{ID: "doc3", Score: 4.0},
	}

	hits := h.fuseRRF(vectorResults, keywordResults)
	require.Len(t, hits, 3)
	// doc2 appears in both lists and should outrank doc1/doc3.
	assert.Equal(t, "doc2", hits[0].Doc.ID)
	assert.True(t, hits[0].InBoth)
}

func TestFuseRRF_DeterministicTieBreak(t *testing.T) {
	h := NewHybridRetriever(nil, nil, 60)
	// Two documents with identical RRF contribution (same rank=1 in
	// disjoint lists) with no "in both" and no vector score: chunk_id
	// lexical order must decide.
	vectorResults := []vectorstore.Document{
		{ID: "zzz", Score: 0},
	}
	keywordResults := []vectorstore.Document{
		{ID: "aaa", Score: 1.0},
	}
	hits1 := h.fuseRRF(vectorResults, keywordResults)
	hits2 := h.fuseRRF(vectorResults, keywordResults)
	assert.Equal(t, hits1, hits2)
	require.Len(t, hits1, 2)
	assert.Equal(t, "aaa", hits1[0].Doc.ID)
}

func TestRerank(t *testing.T) {
	r := NewReranker(DefaultRerankWeights, 10)
	hits := []fusedHit{
		{Doc: vectorstore.Document{ID: "a", Content: "quick brown fox"}, RRFScore: 0.01},
		{Doc: vectorstore.Document{ID: "b", Content: "totally unrelated text"}, RRFScore: 0.02},
	}
	reranked := r.Rerank("quick fox", hits)
	require.Len(t, reranked, 2)
	// "a" shares query tokens so its keyword-overlap term should lift it
	// above "b" despite b's higher RRF score.
	assert.Equal(t, "a", reranked[0].fused.Doc.ID)
}

func TestLengthPenalty(t *testing.T) {
	assert.InDelta(t, 1.0, lengthPenalty(100, 100), 0.001)
	assert.InDelta(t, 0.0, lengthPenalty(200, 100), 0.001)
	assert.InDelta(t, 0.0, lengthPenalty(0, 100), 0.001)
}

func TestOverlapScore(t *testing.T) {
	assert.InDelta(t, 1.0, overlapScore([]string{"a", "b"}, "a b c"), 0.001)
	assert.InDelta(t, 0.5, overlapScore([]string{"a", "b"}, "a only"), 0.001)
	assert.InDelta(t, 0.0, overlapScore(nil, "a b c"), 0.001)
}

func TestEngine_EmptyWorkspace(t *testing.T) {
	store := &mockVectorStore{searchResp: &vectorstore.SearchResponse{}}
	vector := NewVectorRetriever(store, &mockEmbedder{})
	keyword := NewKeywordRetriever(1.5, 0.75)
	engine := NewEngine(NewHybridRetriever(vector, keyword, 60), NewReranker(DefaultRerankWeights, 200))

	hits, err := engine.Search(context.Background(), "empty-ws", "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestEngine_AssignsRanks(t *testing.T) {
	store := &mockVectorStore{searchResp: &vectorstore.SearchResponse{
		Documents: []vectorstore.Document{
			{ID: "c1", Content: "quick brown fox", Score: 0.9},
			{ID: "c2", Content: "slow brown turtle", Score: 0.5},
		},
	}}
	vector := NewVectorRetriever(store, &mockEmbedder{})
	keyword := NewKeywordRetriever(1.5, 0.75)
	require.NoError(t, keyword.Index(context.Background(), "ws1", []vectorstore.Document{
		{ID: "c1", Content: "quick brown fox"},
		{ID: "c2", Content: "slow brown turtle"},
	}))
	engine := NewEngine(NewHybridRetriever(vector, keyword, 60), NewReranker(DefaultRerankWeights, 200))

	hits, err := engine.Search(context.Background(), "ws1", "quick fox", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].Rank)
	assert.Equal(t, 2, hits[1].Rank)
	assert.NotNil(t, hits[0].ScoreRerank)
}

func TestEngine_NoDuplicateChunkIDs(t *testing.T) {
	store := &mockVectorStore{searchResp: &vectorstore.SearchResponse{
		Documents: []vectorstore.Document{{ID: "c1", Content: "dup"}},
	}}
	vector := NewVectorRetriever(store, &mockEmbedder{})
	keyword := NewKeywordRetriever(1.5, 0.75)
	require.NoError(t, keyword.Index(context.Background(), "ws1", []vectorstore.Document{{ID: "c1", Content: "dup"}}))
	engine := NewEngine(NewHybridRetriever(vector, keyword, 60), NewReranker(DefaultRerankWeights, 200))

	hits, err := engine.Search(context.Background(), "ws1", "dup", 5)
	require.NoError(t, err)
	seen := make(map[string]bool)
	for _, h := range hits {
		assert.False(t, seen[h.ChunkID])
		seen[h.ChunkID] = true
	}
}
