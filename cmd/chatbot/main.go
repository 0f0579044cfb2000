package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/workvisa/internal/config"
	"github.com/kailas-cloud/workvisa/internal/db/flat"
	"github.com/kailas-cloud/workvisa/internal/db/pgvector"
	dbRedis "github.com/kailas-cloud/workvisa/internal/db/redis"
	"github.com/kailas-cloud/workvisa/internal/domain"
	logpkg "github.com/kailas-cloud/workvisa/internal/logger"
	"github.com/kailas-cloud/workvisa/internal/metrics"
	"github.com/kailas-cloud/workvisa/internal/repository/corpus"
	"github.com/kailas-cloud/workvisa/internal/repository/embcache"
	presetrepo "github.com/kailas-cloud/workvisa/internal/repository/preset"
	chiTransport "github.com/kailas-cloud/workvisa/internal/transport/chi"
	ollamaTransport "github.com/kailas-cloud/workvisa/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/workvisa/internal/transport/openai"
	answeruc "github.com/kailas-cloud/workvisa/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/workvisa/internal/usecase/embedding"
	generationuc "github.com/kailas-cloud/workvisa/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/workvisa/internal/usecase/health"
	indexuc "github.com/kailas-cloud/workvisa/internal/usecase/index"
	presetuc "github.com/kailas-cloud/workvisa/internal/usecase/preset"
	"github.com/kailas-cloud/workvisa/internal/version"
)

// provider is what the composition root needs from a model backend.
type provider interface {
	domain.HealthChecker
	Model() string
}

type embeddingProvider interface {
	provider
	domain.Embedder
}

type completionProvider interface {
	provider
	domain.Completer
}

func main() {
	// .env first so ${VAR} expansion in the YAML sees its values.
	if err := config.LoadDotEnv(".env"); err != nil {
		panic("failed to load .env: " + err.Error())
	}

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting workvisa chatbot server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("generation_provider", cfg.Generation.Provider),
		zap.String("index_backend", cfg.Index.Backend),
	)

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterAnswerMetrics()

	ctx := context.Background()

	// Preset table is mandatory; a broken file stops startup.
	table, err := presetrepo.Load(cfg.Preset.Path)
	if err != nil {
		logger.Fatal("Failed to load preset answers", zap.String("path", cfg.Preset.Path), zap.Error(err))
	}
	presets := presetuc.New(table)
	logger.Info("Preset answers loaded", zap.Int("top_level_questions", presets.Len()))

	health := healthuc.Components{}

	// Optional embedding cache.
	var cache *dbRedis.Store
	if cfg.Cache.Enabled() {
		cache, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cache.Close()

		if err := cache.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		health.Cache = cache
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	resolver := answeruc.New(presets, nil, nil, logger)

	docs, err := corpus.Load(ctx, cfg.Corpus.Dir, corpus.Options{Strict: cfg.Corpus.Strict, Logger: logger})
	switch {
	case err != nil:
		logger.Warn("Corpus unavailable, serving preset answers only",
			zap.String("dir", cfg.Corpus.Dir),
			zap.Error(err),
		)
	default:
		embedProv, err := buildEmbeddingProvider(cfg.Embedding, logger)
		if err != nil {
			logger.Fatal("Failed to create embedding provider", zap.Error(err))
		}
		completeProv, err := buildCompletionProvider(cfg.Generation, logger)
		if err != nil {
			logger.Fatal("Failed to create completion provider", zap.Error(err))
		}

		store, closeStore, err := buildVectorStore(ctx, cfg, cache)
		if err != nil {
			logger.Fatal("Failed to create vector index", zap.Error(err))
		}
		defer closeStore()

		embedder := buildEmbedder(cfg, embedProv, cache, logger)
		index := indexuc.New(embedder, store, logger)

		start := time.Now()
		if err := index.Build(ctx, docs); err != nil {
			logger.Fatal("Failed to build retrieval index", zap.Error(err))
		}
		logger.Info("Retrieval index built",
			zap.Int("documents", index.Len()),
			zap.Duration("took", time.Since(start)),
		)

		generator := generationuc.New(completeProv, generationuc.Config{
			Model:        completeProv.Model(),
			SystemPrompt: cfg.Generation.SystemPrompt,
			Temperature:  cfg.Generation.Temperature,
			MaxTokens:    cfg.Generation.MaxTokens,
			Timeout:      time.Duration(cfg.Generation.TimeoutSec) * time.Second,
			MaxAttempts:  cfg.Generation.MaxAttempts,
			RetryDelay:   500 * time.Millisecond,
		}, logger)

		resolver = answeruc.New(presets, index, generator, logger).WithTopK(cfg.Index.TopK)

		health.Index = index
		health.Embedding = embedProv
		health.Completion = completeProv
	}

	server := chiTransport.NewServer(resolver, healthuc.New(health), logger)
	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys:    cfg.Auth.APIKeys,
		RateRPS:    cfg.RateLimit.RPS,
		RateBurst:  cfg.RateLimit.Burst,
		TrustProxy: cfg.RateLimit.TrustProxy,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server",
			zap.String("addr", addr),
			zap.Bool("retrieval_enabled", resolver.RetrievalEnabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func buildEmbeddingProvider(cfg config.EmbeddingConfig, logger *zap.Logger) (embeddingProvider, error) {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollamaTransport.New(ollamaTransport.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: timeout,
			Logger:  logger,
		})
	case config.ProviderOpenAI:
		return openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    timeout,
			Provider:   cfg.Provider,
			Logger:     logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func buildCompletionProvider(cfg config.GenerationConfig, logger *zap.Logger) (completionProvider, error) {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollamaTransport.New(ollamaTransport.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: timeout,
			Logger:  logger,
		})
	case config.ProviderOpenAI:
		return openaiTransport.NewCompleter(&openaiTransport.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Timeout:  timeout,
			Provider: cfg.Provider,
			Logger:   logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}

// buildVectorStore returns the configured backend and a func releasing it.
// The redis backend shares the cache connection, which main closes itself.
func buildVectorStore(
	ctx context.Context, cfg config.Config, cache *dbRedis.Store,
) (indexuc.VectorStore, func(), error) {
	switch cfg.Index.Backend {
	case config.BackendPGVector:
		idx, err := pgvector.New(ctx, pgvector.Config{
			ConnString: cfg.Index.PGVector.URL,
			Table:      cfg.Index.PGVector.Table,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect pgvector: %w", err)
		}
		return idx, idx.Close, nil
	case config.BackendRedis:
		if cache == nil {
			return nil, nil, fmt.Errorf("redis index backend needs the cache connection")
		}
		return dbRedis.NewVectorIndex(cache, cfg.Cache.KeyPrefix), func() {}, nil
	case config.BackendFlat:
		return flat.New(0), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

// buildEmbedder assembles the decorator chain: provider -> cache -> instrumented.
// Corpus and queries share this chain so both sides use one model.
func buildEmbedder(
	cfg config.Config,
	base embeddingProvider,
	cache *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder = base
	if cache != nil {
		embedder = embcache.New(base, cache, embcache.Options{
			KeyPrefix: cfg.Cache.KeyPrefix,
			Model:     base.Model(),
			TTL:       time.Duration(cfg.Cache.TTLHours) * time.Hour,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Provider, base.Model(), cfg.Embedding.Dimensions, logger,
	)
}
