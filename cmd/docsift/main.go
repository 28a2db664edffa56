package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/docsift/docsift/internal/config"
	"github.com/docsift/docsift/internal/db"
	dbRedis "github.com/docsift/docsift/internal/db/redis"
	"github.com/docsift/docsift/internal/domain"
	"github.com/docsift/docsift/internal/extract"
	logpkg "github.com/docsift/docsift/internal/logger"
	"github.com/docsift/docsift/internal/metrics"
	"github.com/docsift/docsift/internal/repository/chunkstore"
	"github.com/docsift/docsift/internal/repository/embcache"
	"github.com/docsift/docsift/internal/repository/vectorindex"
	chiTransport "github.com/docsift/docsift/internal/transport/chi"
	openaiTransport "github.com/docsift/docsift/internal/transport/openai"
	healthuc "github.com/docsift/docsift/internal/usecase/health"
	ingestuc "github.com/docsift/docsift/internal/usecase/ingest"
	queryuc "github.com/docsift/docsift/internal/usecase/query"
	"github.com/docsift/docsift/internal/version"
)

func main() {
	// Local development convenience; absence of .env is not an error.
	_ = godotenv.Load()

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

	logger.Info("Starting docsift API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
	)

	ctx := context.Background()

	// Chunk store (Postgres) — schema is applied on startup.
	chunks, err := chunkstore.New(ctx, cfg.Postgres.URL)
	if err != nil {
		logger.Fatal("Failed to connect to chunk store", zap.Error(err))
	}
	defer chunks.Close()

	// Vector store (Redis with RediSearch).
	var store db.Store
	store, err = dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create vector store client", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Vector store not ready", zap.Error(err))
	}
	logger.Info("Connected to stores")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIngestMetrics()

	// Embedder: OpenAI-compatible provider, optionally wrapped in a
	// Redis-backed cache so replayed documents skip paid embedding calls.
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})

	var docEmbedder domain.BatchEmbedder = base
	var queryEmbedder domain.Embedder = base
	if cfg.Embedding.CacheTTLHr > 0 {
		cached := embcache.New(
			base, store, cfg.Embedding.Model,
			time.Duration(cfg.Embedding.CacheTTLHr)*time.Hour,
			metrics.EmbeddingCacheTotal, logger,
		)
		docEmbedder = cached
		queryEmbedder = cached
	}
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.CacheTTLHr > 0),
	)

	llm := openaiTransport.NewLLM(&openaiTransport.LLMConfig{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Chat.Model,
		Logger:  logger,
	})

	vectors := vectorindex.New(store)

	// Ingestion pipeline: orchestrator behind a bounded worker pool.
	pipelineOpts := ingestuc.Options{
		ChunkTokens:     cfg.Ingest.ChunkTokens,
		EmbedBatchSize:  cfg.Embedding.BatchSize,
		UpsertBatchSize: cfg.Ingest.UpsertBatchSize,
		Dimensions:      cfg.Embedding.Dimensions,
		Workers:         cfg.Ingest.Workers,
		QueueSize:       cfg.Ingest.QueueSize,
	}
	orchestrator := ingestuc.NewOrchestrator(chunks, vectors, docEmbedder, &extract.PDF{}, pipelineOpts)
	dispatcher, err := ingestuc.NewDispatcher(chunks, orchestrator, pipelineOpts, logger)
	if err != nil {
		logger.Fatal("Failed to start ingestion workers", zap.Error(err))
	}

	querySvc := queryuc.New(queryEmbedder, vectors, llm, cfg.Search.TopK)
	healthSvc := healthuc.New(chunks, store, base)

	server := chiTransport.NewServer(dispatcher, querySvc, healthSvc, cfg.MaxFileSizeBytes(), logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	// Drain in-flight ingestion jobs before exiting.
	if err := dispatcher.Close(); err != nil {
		logger.Error("Error stopping ingestion workers", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
