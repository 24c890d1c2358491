// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"workspace-assistant/internal/graphs/task"
	"workspace-assistant/internal/hitl"
	"workspace-assistant/internal/memory"
	"workspace-assistant/pkg/embedding"
	"workspace-assistant/pkg/llm"
	"workspace-assistant/pkg/vectorstore"
)

// Config represents the complete configuration for the workspace assistant.
type Config struct {
	// LLM configuration
	LLM LLMConfig `json:"llm"`

	// Embedding configuration
	Embedding EmbeddingConfig `json:"embedding"`

	// VectorStore configuration
	VectorStore VectorStoreConfig `json:"vector_store"`

	// WebSearch configuration (optional)
	WebSearch *WebSearchConfig `json:"web_search,omitempty"`

	// Workflow configuration
	Workflow WorkflowConfig `json:"workflow"`

	// Schema configuration
	Schema SchemaConfig `json:"schema"`

	// Database configuration (conversation/fact/confirmation/feedback store)
	Database DatabaseConfig `json:"database"`

	// HITL configuration
	HITL HITLConfig `json:"hitl"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// Memory configuration
	Memory MemoryConfig `json:"memory"`

	// SQL configuration for the Task Analysis graph's read-only queries
	SQL SQLConfig `json:"sql"`
}

// DatabaseConfig contains settings for the sqlite-backed conversation,
// fact, confirmation, and feedback store.
type DatabaseConfig struct {
	Path string `json:"path"`
}

// HITLConfig mirrors hitl.Config in JSON-configurable form.
type HITLConfig struct {
	Enabled                   bool   `json:"enabled"`
	AutoExecuteLow            bool   `json:"auto_execute_low"`
	RequireConfirmationMedium bool   `json:"require_confirmation_medium"`
	RequireApprovalHigh       bool   `json:"require_approval_high"`
	RequireReasonCritical     bool   `json:"require_reason_critical"`
	DefaultTimeoutSeconds     int    `json:"default_timeout_seconds"`
	CriticalTimeoutSeconds    int    `json:"critical_timeout_seconds"`
	TimeoutAction             string `json:"timeout_action"`
}

// ToHITLConfig converts to hitl.Config.
func (c HITLConfig) ToHITLConfig() hitl.Config {
	return hitl.Config{
		Enabled:                   c.Enabled,
		AutoExecuteLow:            c.AutoExecuteLow,
		RequireConfirmationMedium: c.RequireConfirmationMedium,
		RequireApprovalHigh:       c.RequireApprovalHigh,
		RequireReasonCritical:     c.RequireReasonCritical,
		DefaultTimeoutSeconds:     c.DefaultTimeoutSeconds,
		CriticalTimeoutSeconds:    c.CriticalTimeoutSeconds,
		TimeoutAction:             c.TimeoutAction,
	}
}

// LoggingConfig contains settings for zerolog setup.
type LoggingConfig struct {
	Level  string `json:"level"`
	Pretty bool   `json:"pretty"`
}

// MemoryConfig contains settings for the conversation/fact memory layer.
type MemoryConfig struct {
	CacheSize      int `json:"cache_size"`
	RecentTurns    int `json:"recent_turns"`
	MaxFacts       int `json:"max_facts"`
	MaxPastTurns   int `json:"max_past_turns"`
	PastWindowDays int `json:"past_window_days"`
}

// ToLimits converts to memory.Limits. Zero values for any of the
// four limit fields fall back to memory.DefaultLimits' value.
func (c MemoryConfig) ToLimits() memory.Limits {
	l := memory.DefaultLimits
	if c.RecentTurns > 0 {
		l.RecentTurns = c.RecentTurns
	}
	if c.MaxFacts > 0 {
		l.MaxFacts = c.MaxFacts
	}
	if c.MaxPastTurns > 0 {
		l.MaxPastTurns = c.MaxPastTurns
	}
	if c.PastWindowDays > 0 {
		l.PastWindowDays = c.PastWindowDays
	}
	return l
}

// SQLConfig bounds the Task Analysis graph's read-only query policy.
type SQLConfig struct {
	RowLimit       int `json:"row_limit"`
	TimeoutSeconds int `json:"timeout_seconds"`
}

// ToTaskConfig converts to task.Config.
func (c SQLConfig) ToTaskConfig() task.Config {
	cfg := task.DefaultConfig
	if c.RowLimit > 0 {
		cfg.RowLimit = c.RowLimit
	}
	if c.TimeoutSeconds > 0 {
		cfg.Timeout = c.TimeoutSeconds
	}
	return cfg
}

// LLMConfig contains settings for LLM providers.
type LLMConfig struct {
	// ReasoningLLM is used for complex reasoning tasks (planning, reflection, policy)
	ReasoningLLM LLMProviderConfig `json:"reasoning_llm"`

	// FastLLM is used for quick tasks (query rewriting, summarization)
	FastLLM LLMProviderConfig `json:"fast_llm"`
}

// LLMProviderConfig contains settings for a specific LLM provider.
type LLMProviderConfig struct {
	Provider           string  `json:"provider"` // "openai", "cerebras", "naver", "gemini"
	APIKey             string  `json:"api_key,omitempty"`
	BaseURL            string  `json:"base_url,omitempty"`
	Model              string  `json:"model"`
	DefaultTemperature float32 `json:"default_temperature"`
	DefaultMaxTokens   int     `json:"default_max_tokens"`
	TimeoutSeconds     int     `json:"timeout_seconds"`
}

// EmbeddingConfig contains settings for embedding generation.
type EmbeddingConfig struct {
	Provider       string `json:"provider"` // "openai"
	APIKey         string `json:"api_key,omitempty"`
	BaseURL        string `json:"base_url,omitempty"`
	Model          string `json:"model"`
	BatchSize      int    `json:"batch_size"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// VectorStoreConfig contains settings for the vector store.
type VectorStoreConfig struct {
	Type              string                 `json:"type"` // "qdrant"
	Address           string                 `json:"address"`
	APIKey            string                 `json:"api_key,omitempty"`
	TimeoutSeconds    int                    `json:"timeout_seconds"`
	DefaultCollection string                 `json:"default_collection"`
	Extra             map[string]interface{} `json:"extra,omitempty"`
}

// WebSearchConfig contains settings for web search (optional feature).
type WebSearchConfig struct {
	Enabled    bool   `json:"enabled"`
	Provider   string `json:"provider"` // "serper", "brave", etc.
	APIKey     string `json:"api_key,omitempty"`
	MaxResults int    `json:"max_results"`
}

// WorkflowConfig contains settings for the workflow execution.
type WorkflowConfig struct {
	MaxIterations     int     `json:"max_iterations"`
	TopKRetrieval     int     `json:"top_k_retrieval"`
	TopNReranking     int     `json:"top_n_reranking"`
	MinRelevanceScore float32 `json:"min_relevance_score"`
	DefaultStrategy   string  `json:"default_strategy"` // "vector", "keyword", "hybrid"
}

// SchemaConfig contains settings for schema analysis.
type SchemaConfig struct {
	EnableLLMAnalysis     bool     `json:"enable_llm_analysis"`
	EnablePatternMatching bool     `json:"enable_pattern_matching"`
	PredefinedSchemas     []string `json:"predefined_schemas"` // Paths to schema files
	CacheSchemas          bool     `json:"cache_schemas"`
	AnalysisTimeout       int      `json:"analysis_timeout_seconds"`
}

// LoadFromFile loads configuration from a JSON or YAML file, detected by
// extension (.yaml/.yml vs everything else, which is treated as JSON).
// YAML is the natural format for hand-edited deployment configs (graph
// timeouts, HITL policy thresholds); JSON remains the machine-generated
// default that `config init`/`SaveToFile` produce.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var raw map[string]interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
		}
		// Config's struct tags are JSON tags; round-trip through JSON so
		// YAML-sourced config reuses the same field mapping instead of
		// needing a second, parallel set of yaml tags on every type.
		jsonData, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize YAML config file: %w", err)
		}
		if err := json.Unmarshal(jsonData, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&config)

	return &config, nil
}

// LoadFromEnv loads configuration from environment variables.
// This is useful for containerized deployments.
func LoadFromEnv() *Config {
	loadEnvFiles()

	config := &Config{
		LLM: LLMConfig{
			ReasoningLLM: LLMProviderConfig{
				Provider:           getEnv("REASONING_LLM_PROVIDER", "openai"),
				APIKey:             getEnv("REASONING_LLM_API_KEY", ""),
				Model:              getEnv("REASONING_LLM_MODEL", "gpt-4o"), // Latest: gpt-4o (May 2024), supports vision. Alternative: gpt-5 when available
				DefaultTemperature: 0.7,
				DefaultMaxTokens:   2048,
				TimeoutSeconds:     60,
			},
			FastLLM: LLMProviderConfig{
				Provider:           getEnv("FAST_LLM_PROVIDER", "openai"),
				APIKey:             getEnv("FAST_LLM_API_KEY", ""),
				Model:              getEnv("FAST_LLM_MODEL", "gpt-4o-mini"), // Replaces deprecated gpt-3.5-turbo (July 2024)
				DefaultTemperature: 0.5,
				DefaultMaxTokens:   1024,
				TimeoutSeconds:     30,
			},
		},
		Embedding: EmbeddingConfig{
			Provider:       getEnv("EMBEDDING_PROVIDER", "openai"),
			APIKey:         getEnv("EMBEDDING_API_KEY", ""),
			Model:          getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			BatchSize:      100,
			TimeoutSeconds: 30,
		},
		VectorStore: VectorStoreConfig{
			Type:              getEnv("VECTOR_STORE_TYPE", "qdrant"),
			Address:           getEnv("VECTOR_STORE_ADDRESS", "localhost:6334"),
			DefaultCollection: getEnv("VECTOR_STORE_COLLECTION", "documents"),
			TimeoutSeconds:    30,
		},
		Workflow: WorkflowConfig{
			MaxIterations:     10,
			TopKRetrieval:     10,
			TopNReranking:     3,
			MinRelevanceScore: 0.0,
			DefaultStrategy:   "hybrid",
		},
		Schema: SchemaConfig{
			EnableLLMAnalysis:     true,
			EnablePatternMatching: true,
			CacheSchemas:          true,
			AnalysisTimeout:       60,
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "workspace-assistant.db"),
		},
		HITL: HITLConfig{
			Enabled:                   true,
			AutoExecuteLow:            true,
			RequireConfirmationMedium: true,
			RequireApprovalHigh:       true,
			RequireReasonCritical:     true,
			DefaultTimeoutSeconds:     300,
			CriticalTimeoutSeconds:    600,
			TimeoutAction:             "default",
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnv("LOG_PRETTY", "") != "",
		},
		Memory: MemoryConfig{
			CacheSize:      256,
			RecentTurns:    10,
			MaxFacts:       5,
			MaxPastTurns:   5,
			PastWindowDays: 30,
		},
		SQL: SQLConfig{
			RowLimit:       task.DefaultConfig.RowLimit,
			TimeoutSeconds: task.DefaultConfig.Timeout,
		},
	}

	return config
}

// SaveToFile saves the configuration to a JSON file.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ToLLMConfig converts to llm.Config for the reasoning LLM.
func (c *Config) ToLLMConfig() *llm.Config {
	return &llm.Config{
		Provider:           c.LLM.ReasoningLLM.Provider,
		APIKey:             c.LLM.ReasoningLLM.APIKey,
		BaseURL:            c.LLM.ReasoningLLM.BaseURL,
		Model:              c.LLM.ReasoningLLM.Model,
		DefaultTemperature: c.LLM.ReasoningLLM.DefaultTemperature,
		DefaultMaxTokens:   c.LLM.ReasoningLLM.DefaultMaxTokens,
		TimeoutSeconds:     c.LLM.ReasoningLLM.TimeoutSeconds,
	}
}

// ToFastLLMConfig converts to llm.Config for the fast LLM.
func (c *Config) ToFastLLMConfig() *llm.Config {
	return &llm.Config{
		Provider:           c.LLM.FastLLM.Provider,
		APIKey:             c.LLM.FastLLM.APIKey,
		BaseURL:            c.LLM.FastLLM.BaseURL,
		Model:              c.LLM.FastLLM.Model,
		DefaultTemperature: c.LLM.FastLLM.DefaultTemperature,
		DefaultMaxTokens:   c.LLM.FastLLM.DefaultMaxTokens,
		TimeoutSeconds:     c.LLM.FastLLM.TimeoutSeconds,
	}
}

// ToEmbeddingConfig converts to embedding.Config.
func (c *Config) ToEmbeddingConfig() *embedding.Config {
	return &embedding.Config{
		Provider:       c.Embedding.Provider,
		APIKey:         c.Embedding.APIKey,
		BaseURL:        c.Embedding.BaseURL,
		Model:          c.Embedding.Model,
		BatchSize:      c.Embedding.BatchSize,
		TimeoutSeconds: c.Embedding.TimeoutSeconds,
	}
}

// ToVectorStoreConfig converts to vectorstore.Config.
func (c *Config) ToVectorStoreConfig() *vectorstore.Config {
	return &vectorstore.Config{
		Type:              c.VectorStore.Type,
		Address:           c.VectorStore.Address,
		APIKey:            c.VectorStore.APIKey,
		TimeoutSeconds:    c.VectorStore.TimeoutSeconds,
		DefaultCollection: c.VectorStore.DefaultCollection,
		Extra:             c.VectorStore.Extra,
	}
}

// applyDefaults fills in default values for unspecified config fields.
func applyDefaults(config *Config) {
	// LLM defaults
	if config.LLM.ReasoningLLM.DefaultTemperature == 0 {
		config.LLM.ReasoningLLM.DefaultTemperature = 0.7
	}
	if config.LLM.ReasoningLLM.DefaultMaxTokens == 0 {
		config.LLM.ReasoningLLM.DefaultMaxTokens = 2048
	}
	if config.LLM.ReasoningLLM.TimeoutSeconds == 0 {
		config.LLM.ReasoningLLM.TimeoutSeconds = 60
	}

	if config.LLM.FastLLM.DefaultTemperature == 0 {
		config.LLM.FastLLM.DefaultTemperature = 0.5
	}
	if config.LLM.FastLLM.DefaultMaxTokens == 0 {
		config.LLM.FastLLM.DefaultMaxTokens = 1024
	}
	if config.LLM.FastLLM.TimeoutSeconds == 0 {
		config.LLM.FastLLM.TimeoutSeconds = 30
	}

	// Embedding defaults
	if config.Embedding.BatchSize == 0 {
		config.Embedding.BatchSize = 100
	}
	if config.Embedding.TimeoutSeconds == 0 {
		config.Embedding.TimeoutSeconds = 30
	}

	// VectorStore defaults
	if config.VectorStore.TimeoutSeconds == 0 {
		config.VectorStore.TimeoutSeconds = 30
	}
	if config.VectorStore.DefaultCollection == "" {
		config.VectorStore.DefaultCollection = "documents"
	}

	// Workflow defaults
	if config.Workflow.MaxIterations == 0 {
		config.Workflow.MaxIterations = 10
	}
	if config.Workflow.TopKRetrieval == 0 {
		config.Workflow.TopKRetrieval = 10
	}
	if config.Workflow.TopNReranking == 0 {
		config.Workflow.TopNReranking = 3
	}
	if config.Workflow.DefaultStrategy == "" {
		config.Workflow.DefaultStrategy = "hybrid"
	}

	// Schema defaults
	if config.Schema.AnalysisTimeout == 0 {
		config.Schema.AnalysisTimeout = 60
	}

	// Database defaults
	if config.Database.Path == "" {
		config.Database.Path = "workspace-assistant.db"
	}

	// HITL defaults: only fill in the timeouts, since the zero value of
	// every boolean gate is itself a meaningful ("off") configuration.
	if config.HITL.DefaultTimeoutSeconds == 0 {
		config.HITL.DefaultTimeoutSeconds = 300
	}
	if config.HITL.CriticalTimeoutSeconds == 0 {
		config.HITL.CriticalTimeoutSeconds = 600
	}
	if config.HITL.TimeoutAction == "" {
		config.HITL.TimeoutAction = "default"
	}

	// Logging defaults
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	// Memory defaults
	if config.Memory.CacheSize == 0 {
		config.Memory.CacheSize = 256
	}
	if config.Memory.RecentTurns == 0 {
		config.Memory.RecentTurns = 10
	}
	if config.Memory.MaxFacts == 0 {
		config.Memory.MaxFacts = 5
	}
	if config.Memory.MaxPastTurns == 0 {
		config.Memory.MaxPastTurns = 5
	}
	if config.Memory.PastWindowDays == 0 {
		config.Memory.PastWindowDays = 30
	}

	// SQL defaults
	if config.SQL.RowLimit == 0 {
		config.SQL.RowLimit = task.DefaultConfig.RowLimit
	}
	if config.SQL.TimeoutSeconds == 0 {
		config.SQL.TimeoutSeconds = task.DefaultConfig.Timeout
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadEnvFiles() {
	envFiles := []string{".env", ".env.local"}
	merged := make(map[string]string)

	for _, file := range envFiles {
		envMap, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			continue
		}
		for key, value := range envMap {
			merged[key] = value
		}
	}

	for key, value := range merged {
		current, exists := os.LookupEnv(key)
		if !exists || current == "" {
			_ = os.Setenv(key, value)
		}
	}
}
