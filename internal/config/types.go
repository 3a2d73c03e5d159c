package config

// QualityTier controls the model selection and trade-off between speed/cost and quality.
type QualityTier string

const (
	QualityLite   QualityTier = "lite"
	QualityNormal QualityTier = "normal"
	QualityMax    QualityTier = "max"
)

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderGoogle    ProviderType = "google"
	ProviderOllama    ProviderType = "ollama"
)

// CacheBackend selects the response cache implementation.
type CacheBackend string

const (
	CacheMemory CacheBackend = "memory"
	CacheRedis  CacheBackend = "redis"
)

// Config is the top-level shopagent configuration, corresponding to .shopagent.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	Quality           QualityTier  `yaml:"quality" koanf:"quality"`

	// EmbeddingDimensions is the Ollama embedding size. Zero asks the model
	// once at startup.
	EmbeddingDimensions int `yaml:"embedding_dimensions" koanf:"embedding_dimensions"`

	Host string `yaml:"host" koanf:"host"`
	Port int    `yaml:"port" koanf:"port"`

	EnableRAG       bool `yaml:"enable_rag" koanf:"enable_rag"`
	EnableWebSearch bool `yaml:"enable_web_search" koanf:"enable_web_search"`
	EnableCaching   bool `yaml:"enable_caching" koanf:"enable_caching"`

	ChromaDBPath  string `yaml:"chroma_db_path" koanf:"chroma_db_path"`
	Collection    string `yaml:"collection" koanf:"collection"`
	VectorSearchK int    `yaml:"vector_search_k" koanf:"vector_search_k"`
	IngestBatch   int    `yaml:"ingest_batch" koanf:"ingest_batch"`

	// CacheTTL is the lifetime of a cached answer in seconds.
	CacheTTL int         `yaml:"cache_ttl" koanf:"cache_ttl"`
	Cache    CacheConfig `yaml:"cache" koanf:"cache"`

	MaxContextLength int `yaml:"max_context_length" koanf:"max_context_length"`
	// ReasoningTimeout bounds a single oracle run in seconds. Zero disables it.
	ReasoningTimeout  int    `yaml:"reasoning_timeout" koanf:"reasoning_timeout"`
	MaxToolSteps      int    `yaml:"max_tool_steps" koanf:"max_tool_steps"`
	RequestsPerMinute int    `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	StateDBPath       string `yaml:"state_db_path" koanf:"state_db_path"`

	Log LogConfig `yaml:"log" koanf:"log"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Backend       CacheBackend `yaml:"backend" koanf:"backend"`
	MaxSize       int          `yaml:"max_size" koanf:"max_size"`
	EvictionBatch int          `yaml:"eviction_batch" koanf:"eviction_batch"`
	RedisAddr     string       `yaml:"redis_addr" koanf:"redis_addr"`
	RedisPrefix   string       `yaml:"redis_prefix" koanf:"redis_prefix"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level" koanf:"level"`
	JSON  bool   `yaml:"json" koanf:"json"`
}
