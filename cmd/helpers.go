package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ziadkadry99/shopagent/internal/cache"
	"github.com/ziadkadry99/shopagent/internal/config"
	"github.com/ziadkadry99/shopagent/internal/db"
	"github.com/ziadkadry99/shopagent/internal/embeddings"
	"github.com/ziadkadry99/shopagent/internal/fallback"
	"github.com/ziadkadry99/shopagent/internal/llm"
	"github.com/ziadkadry99/shopagent/internal/logger"
	"github.com/ziadkadry99/shopagent/internal/metrics"
	"github.com/ziadkadry99/shopagent/internal/oracle"
	"github.com/ziadkadry99/shopagent/internal/task"
	"github.com/ziadkadry99/shopagent/internal/tools"
	"github.com/ziadkadry99/shopagent/internal/vectordb"
	"github.com/ziadkadry99/shopagent/internal/websearch"
)

const ollamaDetectTimeout = 10 * time.Second

// loadConfig loads and validates the config and installs the configured
// logger as the process default.
func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w\nRun `shopagent init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}

	level := logger.Level(cfg.Log.Level)
	if verbose {
		level = logger.DebugLevel
	}
	log := logger.New(&logger.Config{
		Level:      level,
		Output:     os.Stderr,
		JSON:       cfg.Log.JSON,
		TimeFormat: "15:04:05",
	})
	logger.SetDefault(log)
	return cfg, log, nil
}

// createEmbedderFromConfig creates the embedder used by indexing and search.
// A provider without credentials degrades to the hash embedder.
func createEmbedderFromConfig(cfg *config.Config, log logger.Logger) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}
	model := cfg.EmbeddingModel
	if model == "" {
		model = config.GetPreset(provider, cfg.Quality).EmbeddingModel
	}

	var inner embeddings.Embedder
	switch provider {
	case config.ProviderGoogle:
		if key := os.Getenv(config.APIKeyEnvVar(config.ProviderGoogle)); key != "" {
			inner = embeddings.NewGoogleEmbedder(key, embeddings.GoogleModel(model))
		}
	case config.ProviderOllama:
		inner = newOllamaEmbedder(cfg, model, log)
	default:
		// Providers without native embeddings use OpenAI.
		if key := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI)); key != "" {
			inner = embeddings.NewOpenAIEmbedder(key, embeddings.OpenAIModel(model))
		}
	}
	if inner == nil {
		log.Warn("no embedding credentials, using hash embeddings", "provider", provider)
		return embeddings.NewHashEmbedder(0), nil
	}
	return embeddings.NewCached(inner, embeddings.DefaultCacheSize)
}

// newOllamaEmbedder uses the configured embedding size, or asks the model
// for it when none is set.
func newOllamaEmbedder(cfg *config.Config, model string, log logger.Logger) *embeddings.OllamaEmbedder {
	e := embeddings.NewOllamaEmbedder(model, cfg.EmbeddingDimensions, os.Getenv("OLLAMA_HOST"))
	if cfg.EmbeddingDimensions > 0 {
		return e
	}
	ctx, cancel := context.WithTimeout(context.Background(), ollamaDetectTimeout)
	defer cancel()
	dims, err := e.DetectDimensions(ctx)
	if err != nil {
		log.Warn("could not detect ollama embedding size", "model", model, "dimensions", dims, "error", err)
		return e
	}
	log.Debug("detected ollama embedding size", "model", model, "dimensions", dims)
	return e
}

// createLLMProviderFromConfig creates the reasoning model client, rate
// limited and metered into rec.
func createLLMProviderFromConfig(cfg *config.Config, rec *metrics.Recorder) (llm.Provider, error) {
	p, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute > 0 {
		p = llm.NewRateLimitedProvider(p, cfg.RequestsPerMinute)
	}
	return llm.NewMeteredProvider(p, rec.RecordUsage), nil
}

// createCacheFromConfig returns nil when caching is disabled.
func createCacheFromConfig(ctx context.Context, cfg *config.Config, log logger.Logger) (cache.Store, error) {
	if !cfg.EnableCaching {
		return nil, nil
	}
	opts := cache.Options{MaxSize: cfg.Cache.MaxSize, EvictionBatch: cfg.Cache.EvictionBatch}
	if cfg.Cache.Backend == config.CacheRedis {
		r, err := cache.DialRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPrefix, opts, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis cache: %w", err)
		}
		return r, nil
	}
	return cache.NewMemory(opts), nil
}

func openIndex(cfg *config.Config, log logger.Logger) (*vectordb.Index, error) {
	embedder, err := createEmbedderFromConfig(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	ix, err := vectordb.New(embedder, vectordb.Options{
		Path:       cfg.ChromaDBPath,
		Collection: cfg.Collection,
		DefaultK:   cfg.VectorSearchK,
		BatchSize:  cfg.IngestBatch,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("opening vector index: %w", err)
	}
	return ix, nil
}

// app holds the collaborators of a running agent.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	index    *vectordb.Index
	cache    cache.Store
	state    *db.DB
	threads  *oracle.Store
	toolbox  *tools.Toolbox
	executor *task.Executor
}

// buildApp wires the index, tools, oracle, fallback and cache into an
// executor.
func buildApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var searcher vectordb.Searcher
	if cfg.EnableRAG {
		ix, err := openIndex(cfg, log)
		if err != nil {
			return nil, err
		}
		a.index = ix
		searcher = ix
		if ix.Count() == 0 {
			log.Warn("product index is empty, run `shopagent index` to build it")
		}
	}

	web := websearch.NewSerper(websearch.Options{
		APIKey:  os.Getenv(config.SerperAPIKeyEnvVar),
		Enabled: cfg.EnableWebSearch,
		Logger:  log,
	})
	if cfg.EnableWebSearch && !web.Enabled() {
		log.Warn("web search enabled but " + config.SerperAPIKeyEnvVar + " is not set")
	}
	a.toolbox = tools.NewToolbox(searcher, web, log)

	rec := metrics.NewRecorder()
	provider, err := createLLMProviderFromConfig(cfg, rec)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	a.state, err = db.Open(cfg.StateDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	kinds := []tools.Kind{tools.ShopInfo}
	if cfg.EnableRAG {
		kinds = append(kinds, tools.RagSearch)
	}
	if cfg.EnableWebSearch {
		kinds = append(kinds, tools.WebSearch)
	}
	a.threads = oracle.NewStore(a.state)
	orc := oracle.NewLLMOracle(provider, a.toolbox, a.threads, oracle.Config{
		Model:        cfg.Model,
		MaxToolSteps: cfg.MaxToolSteps,
		Tools:        kinds,
		Logger:       log,
	})

	a.cache, err = createCacheFromConfig(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a.executor, err = task.NewExecutor(task.Options{
		Oracle:           orc,
		Cache:            a.cache,
		CacheTTL:         cfg.CacheTTLDuration(),
		Fallback:         fallback.New(web, cfg.EnableWebSearch, log),
		Metrics:          rec,
		MaxContextLength: cfg.MaxContextLength,
		ReasoningTimeout: cfg.ReasoningTimeoutDuration(),
		Logger:           log,
	})
	if err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

// Close releases the state database and cache connection.
func (a *app) Close() error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.state != nil {
		errs = append(errs, a.state.Close())
	}
	return errors.Join(errs...)
}
