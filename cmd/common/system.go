// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package common

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"workspace-assistant/internal/config"
	"workspace-assistant/internal/graphs/board"
	"workspace-assistant/internal/graphs/document"
	"workspace-assistant/internal/graphs/task"
	"workspace-assistant/internal/hitl"
	"workspace-assistant/internal/memory"
	"workspace-assistant/internal/orchestrator"
	"workspace-assistant/internal/store"
	"workspace-assistant/pkg/document/chunker"
	"workspace-assistant/pkg/embedding"
	"workspace-assistant/pkg/llm"
	"workspace-assistant/pkg/llm/gemini"
	"workspace-assistant/pkg/llm/openai"
	"workspace-assistant/pkg/retrieval"
	"workspace-assistant/pkg/schema"
	"workspace-assistant/pkg/vectorstore"
	"workspace-assistant/pkg/vectorstore/qdrant"
)

// Default OpenAI-compatible chat-completion endpoints for the providers
// that aren't OpenAI itself but speak its wire format.
const (
	cerebrasBaseURL = "https://api.cerebras.ai/v1"
	naverBaseURL    = "https://clovastudio.stream.ntruss.com/v1/openai"
)

// System wires together every component of the workspace assistant: the
// retrieval pipeline, the memory store, the three agent graphs, the
// orchestrator that coordinates them, and the HITL controller that gates
// their risky actions.
type System struct {
	Config *config.Config

	ReasoningLLM llm.Provider
	FastLLM      llm.Provider
	Embedder     embedding.Embedder
	VectorStore  vectorstore.Store

	SchemaResolver *schema.Resolver

	Store  *store.Store
	Memory *memory.Memory

	Keyword *retrieval.KeywordRetriever
	Engine  *retrieval.Engine

	Document *document.Graph
	Task     *task.Graph
	Board    *board.Graph

	Orchestrator *orchestrator.Graph
	HITL         *hitl.Manager
}

// InitializeSystem creates and initializes every system component based
// on configuration.
func InitializeSystem(cfg *config.Config) (*System, error) {
	sys := &System{Config: cfg}

	if err := sys.initLLMs(); err != nil {
		return nil, fmt.Errorf("failed to initialize LLMs: %w", err)
	}
	if err := sys.initEmbedder(); err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	if err := sys.initVectorStore(); err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	if err := sys.initSchemaResolver(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema resolver: %w", err)
	}
	if err := sys.initStore(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	if err := sys.initMemory(); err != nil {
		return nil, fmt.Errorf("failed to initialize memory: %w", err)
	}
	if err := sys.initRetrieval(); err != nil {
		return nil, fmt.Errorf("failed to initialize retrieval engine: %w", err)
	}
	if err := sys.initGraphs(); err != nil {
		return nil, fmt.Errorf("failed to initialize agent graphs: %w", err)
	}
	if err := sys.initOrchestrator(); err != nil {
		return nil, fmt.Errorf("failed to initialize orchestrator: %w", err)
	}
	sys.HITL = hitl.NewManager(sys.Store.Confirmations(), sys.Store.Feedback(), cfg.HITL.ToHITLConfig())

	log.Info().
		Str("reasoning_llm", cfg.LLM.ReasoningLLM.Provider).
		Str("fast_llm", cfg.LLM.FastLLM.Provider).
		Str("vector_store", cfg.VectorStore.Type).
		Bool("hitl_enabled", cfg.HITL.Enabled).
		Msg("system initialized")

	return sys, nil
}

func (s *System) initLLMs() error {
	reasoning, err := newLLMProvider(s.Config.LLM.ReasoningLLM)
	if err != nil {
		return fmt.Errorf("reasoning LLM: %w", err)
	}
	s.ReasoningLLM = reasoning

	fast, err := newLLMProvider(s.Config.LLM.FastLLM)
	if err != nil {
		return fmt.Errorf("fast LLM: %w", err)
	}
	s.FastLLM = fast

	return nil
}

// newLLMProvider routes a provider name to its concrete implementation.
// openai, cerebras, and naver all speak OpenAI-compatible chat completion
// APIs, so all three construct a pkg/llm/openai.Provider, differing only
// in which BaseURL they default to; gemini gets its own provider over
// Google's GenAI SDK.
func newLLMProvider(pc config.LLMProviderConfig) (llm.Provider, error) {
	llmCfg := &llm.Config{
		Provider:           pc.Provider,
		APIKey:             pc.APIKey,
		BaseURL:            pc.BaseURL,
		Model:              pc.Model,
		DefaultTemperature: pc.DefaultTemperature,
		DefaultMaxTokens:   pc.DefaultMaxTokens,
		TimeoutSeconds:     pc.TimeoutSeconds,
	}

	switch pc.Provider {
	case "openai":
		return openai.NewProvider(pc.APIKey, pc.Model, llmCfg)
	case "cerebras":
		if llmCfg.BaseURL == "" {
			llmCfg.BaseURL = cerebrasBaseURL
		}
		return openai.NewProvider(pc.APIKey, pc.Model, llmCfg)
	case "naver":
		if llmCfg.BaseURL == "" {
			llmCfg.BaseURL = naverBaseURL
		}
		return openai.NewProvider(pc.APIKey, pc.Model, llmCfg)
	case "gemini":
		return gemini.NewProvider(pc.APIKey, pc.Model, llmCfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", pc.Provider)
	}
}

func (s *System) initEmbedder() error {
	switch s.Config.Embedding.Provider {
	case "openai":
		embedder, err := embedding.NewOpenAIEmbedder(
			s.Config.Embedding.APIKey,
			s.Config.Embedding.Model,
			s.Config.ToEmbeddingConfig(),
		)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
		s.Embedder = embedder
	default:
		return fmt.Errorf("unsupported embedding provider: %s", s.Config.Embedding.Provider)
	}

	return nil
}

func (s *System) initVectorStore() error {
	switch s.Config.VectorStore.Type {
	case "qdrant":
		vs, err := qdrant.NewStore(s.Config.VectorStore.Address, s.Config.ToVectorStoreConfig())
		if err != nil {
			return fmt.Errorf("failed to create vector store: %w", err)
		}
		s.VectorStore = vs
	default:
		return fmt.Errorf("unsupported vector store type: %s", s.Config.VectorStore.Type)
	}

	return nil
}

func (s *System) initSchemaResolver() error {
	s.SchemaResolver = schema.NewResolver(s.ReasoningLLM, &schema.ResolverConfig{
		EnablePatternMatching: s.Config.Schema.EnablePatternMatching,
		EnableLLMAnalysis:     s.Config.Schema.EnableLLMAnalysis,
		EnableCaching:         s.Config.Schema.CacheSchemas,
		CacheTTL:              time.Hour,
	})
	return nil
}

func (s *System) initStore() error {
	st, err := store.Open(s.Config.Database.Path)
	if err != nil {
		return err
	}
	s.Store = st
	return nil
}

func (s *System) initMemory() error {
	m, err := memory.New(s.Store, s.FastLLM, s.Config.Memory.CacheSize)
	if err != nil {
		return err
	}
	s.Memory = m
	return nil
}

func (s *System) initRetrieval() error {
	s.Keyword = retrieval.NewKeywordRetriever(0, 0)
	vectorRet := retrieval.NewVectorRetriever(s.VectorStore, s.Embedder)
	hybrid := retrieval.NewHybridRetriever(vectorRet, s.Keyword, 60)
	reranker := retrieval.NewReranker(retrieval.DefaultRerankWeights, 500)
	s.Engine = retrieval.NewEngine(hybrid, reranker)
	return nil
}

func (s *System) initGraphs() error {
	historyFn := func(ctx context.Context, workspaceID, sessionID string, limit int) ([]store.ConversationTurn, error) {
		return s.Memory.RecentTurns(ctx, workspaceID, sessionID, limit)
	}

	docGraph, err := document.New(document.Deps{
		Engine:  s.Engine,
		Memory:  s.Memory,
		LLM:     s.ReasoningLLM,
		Config:  document.DefaultConfig,
		History: historyFn,
	})
	if err != nil {
		return fmt.Errorf("document graph: %w", err)
	}
	s.Document = docGraph

	taskGraph, err := task.New(task.Deps{
		Tasks:  s.Store.Tasks(),
		LLM:    s.ReasoningLLM,
		Config: s.Config.SQL.ToTaskConfig(),
	})
	if err != nil {
		return fmt.Errorf("task graph: %w", err)
	}
	s.Task = taskGraph

	boardGraph, err := board.New(board.Deps{
		Tasks: s.Store.Tasks(),
		LLM:   s.ReasoningLLM,
	})
	if err != nil {
		return fmt.Errorf("board graph: %w", err)
	}
	s.Board = boardGraph

	return nil
}

func (s *System) initOrchestrator() error {
	g, err := orchestrator.New(orchestrator.Deps{
		LLM:      s.ReasoningLLM,
		Document: s.Document,
		Task:     s.Task,
		Board:    s.Board,
	})
	if err != nil {
		return err
	}
	s.Orchestrator = g
	return nil
}

// IngestDocument processes and ingests a document into both the vector
// store and the BM25 keyword index, so the hybrid retriever can search it
// immediately. If deriveSchema is true, uses schema-aware chunking;
// otherwise splits the content into line-aligned chunks of about 512
// characters.
func (s *System) IngestDocument(ctx context.Context, workspaceID, docID string, content string, deriveSchema bool) (int, error) {
	var chunks []string
	var chunkMetadata []map[string]interface{}

	if deriveSchema && s.SchemaResolver != nil {
		resolutionResult, err := s.SchemaResolver.Resolve(ctx, docID, content, "text/plain", nil)
		if err != nil {
			chunks, chunkMetadata = simpleChunks(content, docID)
		} else {
			chunkerConfig := chunker.DefaultConfig()
			chunkResults, err := chunker.ChunkDocument(content, resolutionResult.Schema, chunkerConfig)
			if err != nil {
				chunks, chunkMetadata = simpleChunks(content, docID)
			} else {
				chunks = make([]string, len(chunkResults))
				chunkMetadata = make([]map[string]interface{}, len(chunkResults))
				for i, chunkResult := range chunkResults {
					chunks[i] = chunkResult.Text
					metadata := map[string]interface{}{"doc_id": docID}
					if chunkResult.Metadata != nil {
						metadata["section_id"] = chunkResult.Metadata.SectionID
						metadata["section_type"] = chunkResult.Metadata.SectionType
						metadata["hierarchy"] = chunkResult.Metadata.HierarchyPath
					}
					chunkMetadata[i] = metadata
				}
			}
		}
	} else {
		chunks, chunkMetadata = simpleChunks(content, docID)
	}

	embedResp, err := s.Embedder.Embed(ctx, &embedding.EmbedRequest{Texts: chunks})
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	docs := make([]vectorstore.Document, len(chunks))
	for i, chunk := range chunks {
		metadata := chunkMetadata[i]
		metadata["workspace_id"] = workspaceID
		docs[i] = vectorstore.Document{
			ID:        uuid.New().String(),
			Content:   chunk,
			Embedding: embedResp.Vectors[i].Embedding,
			Metadata:  metadata,
		}
	}

	if _, err := s.VectorStore.Insert(ctx, &vectorstore.InsertRequest{
		CollectionName: s.Config.VectorStore.DefaultCollection,
		Documents:      docs,
	}); err != nil {
		return 0, fmt.Errorf("failed to insert chunks: %w", err)
	}

	if err := s.Keyword.Index(ctx, workspaceID, docs); err != nil {
		return 0, fmt.Errorf("failed to index chunks for keyword search: %w", err)
	}

	log.Info().
		Str("workspace_id", workspaceID).
		Str("doc_id", docID).
		Int("chunks", len(chunks)).
		Bool("derive_schema", deriveSchema).
		Msg("document ingested")

	return len(chunks), nil
}

func simpleChunks(content, docID string) ([]string, []map[string]interface{}) {
	chunks := splitIntoChunks(content, 512)
	metadata := make([]map[string]interface{}, len(chunks))
	for i := range chunks {
		metadata[i] = map[string]interface{}{"doc_id": docID}
	}
	return chunks, metadata
}

// splitIntoChunks splits text into chunks of approximately maxSize characters.
func splitIntoChunks(text string, maxSize int) []string {
	var chunks []string
	var currentChunk string

	lines := strings.Split(text, "\n")

	for _, line := range lines {
		if len(currentChunk)+len(line)+1 > maxSize && len(currentChunk) > 0 {
			chunks = append(chunks, strings.TrimSpace(currentChunk))
			currentChunk = line
		} else {
			if len(currentChunk) > 0 {
				currentChunk += "\n"
			}
			currentChunk += line
		}
	}

	if len(currentChunk) > 0 {
		chunks = append(chunks, strings.TrimSpace(currentChunk))
	}

	return chunks
}

// Close releases all system resources.
func (s *System) Close() error {
	var firstErr error
	if s.VectorStore != nil {
		if err := s.VectorStore.Close(); err != nil {
			firstErr = err
		}
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
