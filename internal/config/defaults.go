package config

import "time"

// QualityPreset describes the models to use for a given quality tier.
type QualityPreset struct {
	Model          string
	EmbeddingModel string
}

// qualityPresets maps each provider+quality combination to its model choices.
var qualityPresets = map[ProviderType]map[QualityTier]QualityPreset{
	ProviderAnthropic: {
		QualityLite:   {Model: "claude-haiku-4-5-20251001", EmbeddingModel: "text-embedding-3-small"},
		QualityNormal: {Model: "claude-sonnet-4-5-20250929", EmbeddingModel: "text-embedding-3-small"},
		QualityMax:    {Model: "claude-opus-4-6", EmbeddingModel: "text-embedding-3-large"},
	},
	ProviderOpenAI: {
		QualityLite:   {Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small"},
		QualityNormal: {Model: "gpt-4o", EmbeddingModel: "text-embedding-3-small"},
		QualityMax:    {Model: "gpt-4", EmbeddingModel: "text-embedding-3-large"},
	},
	ProviderGoogle: {
		QualityLite:   {Model: "gemini-2.0-flash", EmbeddingModel: "gemini-embedding-001"},
		QualityNormal: {Model: "gemini-2.0-flash", EmbeddingModel: "gemini-embedding-001"},
		QualityMax:    {Model: "gemini-1.5-pro", EmbeddingModel: "gemini-embedding-001"},
	},
	ProviderOllama: {
		QualityLite:   {Model: "llama3", EmbeddingModel: "nomic-embed-text"},
		QualityNormal: {Model: "llama3", EmbeddingModel: "nomic-embed-text"},
		QualityMax:    {Model: "llama3:70b", EmbeddingModel: "nomic-embed-text"},
	},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderGoogle,
		Model:             "gemini-2.0-flash",
		EmbeddingProvider: ProviderGoogle,
		EmbeddingModel:    "gemini-embedding-001",
		Quality:           QualityNormal,
		Host:              "localhost",
		Port:              10000,
		EnableRAG:         true,
		EnableWebSearch:   true,
		EnableCaching:     true,
		ChromaDBPath:      "./data/vector_db",
		Collection:        "products",
		VectorSearchK:     5,
		IngestBatch:       50,
		CacheTTL:          3600,
		Cache: CacheConfig{
			Backend:       CacheMemory,
			MaxSize:       1000,
			EvictionBatch: 100,
			RedisAddr:     "localhost:6379",
			RedisPrefix:   "shopagent:",
		},
		MaxContextLength: 4000,
		MaxToolSteps:     6,
		StateDBPath:      "./data/state.db",
		Log: LogConfig{
			Level: "info",
		},
	}
}

// GetPreset returns the quality preset for the given provider and tier.
// Returns the Normal Google preset if the combination is not found.
func GetPreset(provider ProviderType, tier QualityTier) QualityPreset {
	if tiers, ok := qualityPresets[provider]; ok {
		if preset, ok := tiers[tier]; ok {
			return preset
		}
	}
	return qualityPresets[ProviderGoogle][QualityNormal]
}

// CacheTTLDuration returns CacheTTL as a time.Duration.
func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// ReasoningTimeoutDuration returns ReasoningTimeout as a time.Duration.
// Zero means the oracle run is not bounded.
func (c *Config) ReasoningTimeoutDuration() time.Duration {
	return time.Duration(c.ReasoningTimeout) * time.Second
}
