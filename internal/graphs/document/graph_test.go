// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package document_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workspace-assistant/internal/graphs/document"
	"workspace-assistant/internal/memory"
	"workspace-assistant/internal/store"
	"workspace-assistant/pkg/embedding"
	"workspace-assistant/pkg/llm"
	"workspace-assistant/pkg/retrieval"
	"workspace-assistant/pkg/vectorstore"
)

// stubLLM answers every Complete call with a fixed response, or returns err
// if set.
type stubLLM struct {
	content string
	err     error
}

func (s *stubLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.content}, nil
}
func (s *stubLLM) Name() string            { return "stub" }
func (s *stubLLM) ModelName() string       { return "stub-model" }
func (s *stubLLM) SupportsStreaming() bool { return false }

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, req *embedding.EmbedRequest) (*embedding.EmbedResponse, error) {
	vectors := make([]embedding.Vector, len(req.Texts))
	for i, text := range req.Texts {
		vectors[i] = embedding.Vector{Embedding: []float32{0.1, 0.2, 0.3}, Text: text}
	}
	return &embedding.EmbedResponse{Vectors: vectors}, nil
}
func (stubEmbedder) Dimensions() int    { return 3 }
func (stubEmbedder) ModelName() string  { return "stub-embed" }

type stubVectorStore struct {
	docs []vectorstore.Document
}

func (s *stubVectorStore) Insert(ctx context.Context, req *vectorstore.InsertRequest) (*vectorstore.InsertResponse, error) {
	return nil, nil
}
func (s *stubVectorStore) Search(ctx context.Context, req *vectorstore.SearchRequest) (*vectorstore.SearchResponse, error) {
	return &vectorstore.SearchResponse{Documents: s.docs, TotalResults: len(s.docs)}, nil
}
func (s *stubVectorStore) Delete(ctx context.Context, req *vectorstore.DeleteRequest) (*vectorstore.DeleteResponse, error) {
	return nil, nil
}
func (s *stubVectorStore) Get(ctx context.Context, collection string, ids []string) ([]vectorstore.Document, error) {
	return nil, nil
}
func (s *stubVectorStore) CreateCollection(ctx context.Context, name string, dim int, meta map[string]interface{}) error {
	return nil
}
func (s *stubVectorStore) DeleteCollection(ctx context.Context, name string) error { return nil }
func (s *stubVectorStore) ListCollections(ctx context.Context) ([]vectorstore.CollectionInfo, error) {
	return nil, nil
}
func (s *stubVectorStore) GetCollection(ctx context.Context, name string) (*vectorstore.CollectionInfo, error) {
	return nil, nil
}
func (s *stubVectorStore) Close() error { return nil }
func (s *stubVectorStore) Name() string { return "stub" }

func emptyHistory(ctx context.Context, workspaceID, sessionID string, limit int) ([]store.ConversationTurn, error) {
	return nil, nil
}

func buildEngine(t *testing.T, docs []vectorstore.Document) *retrieval.Engine {
	t.Helper()
	vec := retrieval.NewVectorRetriever(&stubVectorStore{docs: docs}, stubEmbedder{})
	kw := retrieval.NewKeywordRetriever(1.5, 0.75)
	require.NoError(t, kw.Index(context.Background(), "ws1", docs))
	hybrid := retrieval.NewHybridRetriever(vec, kw, 60)
	reranker := retrieval.NewReranker(retrieval.DefaultRerankWeights, 500)
	return retrieval.NewEngine(hybrid, reranker)
}

func buildMemory(t *testing.T) *memory.Memory {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	m, err := memory.New(s, nil, 64)
	require.NoError(t, err)
	return m
}

// S1 (Document QA, hit): a single relevant chunk produces a non-empty,
// cited, non-fallback answer.
func TestQuery_S1DocumentHit(t *testing.T) {
	engine := buildEngine(t, []vectorstore.Document{
		{ID: "c1", Content: "Agentic AI uses LLMs to plan and act."},
	})
	g, err := document.New(document.Deps{
		Engine:  engine,
		Memory:  buildMemory(t),
		LLM:     &stubLLM{content: "Agentic AI uses LLMs to plan and act (c1)."},
		Config:  document.DefaultConfig,
		History: emptyHistory,
	})
	require.NoError(t, err)

	s, err := g.Query(context.Background(), "What is agentic AI?", "ws1", "u1", "sess1")
	require.NoError(t, err)
	assert.NotEmpty(t, s.Answer)
	assert.Contains(t, s.Citations, "c1")
	assert.Greater(t, s.Confidence, 0.0)
	assert.False(t, s.FallbackTriggered)
}

// S2 (Document QA, miss): no relevant documents and no memory context
// triggers the canned fallback with zero confidence and no citations.
func TestQuery_S2DocumentMiss(t *testing.T) {
	engine := buildEngine(t, nil)
	g, err := document.New(document.Deps{
		Engine:  engine,
		Memory:  buildMemory(t),
		LLM:     &stubLLM{content: "irrelevant"},
		Config:  document.DefaultConfig,
		History: emptyHistory,
	})
	require.NoError(t, err)

	s, err := g.Query(context.Background(), "Explain kernel scheduling.", "ws1", "u1", "sess1")
	require.NoError(t, err)
	assert.True(t, s.FallbackTriggered)
	assert.Equal(t, 0.0, s.Confidence)
	assert.Empty(t, s.Citations)
}

func TestQuery_LowRelevanceFallsBack(t *testing.T) {
	engine := buildEngine(t, []vectorstore.Document{
		{ID: "c1", Content: "totally unrelated cooking content"},
	})
	g, err := document.New(document.Deps{
		Engine:  engine,
		Memory:  buildMemory(t),
		LLM:     &stubLLM{content: "some answer"},
		Config:  document.Config{FinalTopK: 5, RelevanceThreshold: 999, FallbackMinLength: 40},
		History: emptyHistory,
	})
	require.NoError(t, err)

	s, err := g.Query(context.Background(), "Explain kernel scheduling.", "ws1", "u1", "sess1")
	require.NoError(t, err)
	assert.True(t, s.FallbackTriggered)
}

func TestQuery_RetrieveErrorRoutesToFallback(t *testing.T) {
	vec := retrieval.NewVectorRetriever(&erroringVectorStore{}, stubEmbedder{})
	kw := retrieval.NewKeywordRetriever(1.5, 0.75)
	hybrid := retrieval.NewHybridRetriever(vec, kw, 60)
	engine := retrieval.NewEngine(hybrid, retrieval.NewReranker(retrieval.DefaultRerankWeights, 500))

	g, err := document.New(document.Deps{
		Engine:  engine,
		Memory:  buildMemory(t),
		LLM:     &stubLLM{content: "ignored"},
		Config:  document.DefaultConfig,
		History: emptyHistory,
	})
	require.NoError(t, err)

	s, err := g.Query(context.Background(), "anything", "ws1", "u1", "sess1")
	require.NoError(t, err)
	assert.True(t, s.FallbackTriggered)
}

type erroringVectorStore struct{}

func (erroringVectorStore) Insert(ctx context.Context, req *vectorstore.InsertRequest) (*vectorstore.InsertResponse, error) {
	return nil, nil
}
func (erroringVectorStore) Search(ctx context.Context, req *vectorstore.SearchRequest) (*vectorstore.SearchResponse, error) {
	return nil, errors.New("vector store unavailable")
}
func (erroringVectorStore) Delete(ctx context.Context, req *vectorstore.DeleteRequest) (*vectorstore.DeleteResponse, error) {
	return nil, nil
}
func (erroringVectorStore) Get(ctx context.Context, collection string, ids []string) ([]vectorstore.Document, error) {
	return nil, nil
}
func (erroringVectorStore) CreateCollection(ctx context.Context, name string, dim int, meta map[string]interface{}) error {
	return nil
}
func (erroringVectorStore) DeleteCollection(ctx context.Context, name string) error { return nil }
func (erroringVectorStore) ListCollections(ctx context.Context) ([]vectorstore.CollectionInfo, error) {
	return nil, nil
}
func (erroringVectorStore) GetCollection(ctx context.Context, name string) (*vectorstore.CollectionInfo, error) {
	return nil, nil
}
func (erroringVectorStore) Close() error { return nil }
func (erroringVectorStore) Name() string { return "erroring" }
