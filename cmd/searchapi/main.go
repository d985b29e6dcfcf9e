package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bihub/searchapi/internal/config"
	dbRedis "github.com/bihub/searchapi/internal/db/redis"
	"github.com/bihub/searchapi/internal/domain"
	logpkg "github.com/bihub/searchapi/internal/logger"
	"github.com/bihub/searchapi/internal/metrics"
	"github.com/bihub/searchapi/internal/repository/docstore"
	"github.com/bihub/searchapi/internal/repository/embedding"
	"github.com/bihub/searchapi/internal/repository/keyword"
	"github.com/bihub/searchapi/internal/repository/vector"
	chiTransport "github.com/bihub/searchapi/internal/transport/chi"
	healthuc "github.com/bihub/searchapi/internal/usecase/health"
	searchuc "github.com/bihub/searchapi/internal/usecase/search"
	"github.com/bihub/searchapi/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting searchapi server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("data_dir", cfg.Data.Dir),
		zap.String("keyword_driver", cfg.Search.KeywordDriver),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	// Corpus metadata, shared by the vector index and the bleve driver.
	docs, err := docstore.Load(cfg.Data.MetadataFile())
	if err != nil {
		logger.Fatal("Failed to load document metadata", zap.Error(err))
	}
	logger.Info("Loaded document metadata", zap.Int("documents", docs.Count()))

	vectorIdx, err := vector.Load(cfg.Data.VectorIndexFile(), docs)
	if err != nil {
		logger.Fatal("Failed to load vector index", zap.Error(err))
	}
	logger.Info("Loaded vector index",
		zap.Int("vectors", vectorIdx.Count()),
		zap.Int("dimensions", vectorIdx.Dimensions()),
	)

	keywordIdx, closeKeyword, err := openKeywordIndex(cfg, docs)
	if err != nil {
		logger.Fatal("Failed to open keyword index", zap.Error(err))
	}
	defer closeKeyword()

	embedder, closeRedis := buildEmbedder(cfg, logger)
	defer closeRedis()

	searchSvc := searchuc.New(vectorIdx, keywordIdx, embedder, logger).
		WithOverfetch(cfg.Search.Overfetch).
		WithTimeout(time.Duration(cfg.Search.RequestTimeoutSec) * time.Second)

	healthSvc := healthuc.New(docs, newEmbeddingHealthChecker(embedder))

	server := chiTransport.NewServer(searchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Get("/search", server.SearchDocuments)
	r.Get("/health", server.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openKeywordIndex selects the lexical backend by config.
func openKeywordIndex(
	cfg config.Config, docs *docstore.Store,
) (searchuc.KeywordIndex, func(), error) {
	switch cfg.Search.KeywordDriver {
	case "bleve":
		idx, err := keyword.OpenBleve(cfg.Data.BleveIndexDir(), docs)
		if err != nil {
			return nil, nil, err
		}
		return idx, func() { _ = idx.Close() }, nil
	default:
		idx, err := keyword.OpenSQLite(cfg.Data.KeywordDBFile())
		if err != nil {
			return nil, nil, err
		}
		return idx, func() { _ = idx.Close() }, nil
	}
}

// buildEmbedder assembles the decorator chain:
// provider -> Redis tier (optional, shared) -> LRU (always, in-process).
func buildEmbedder(cfg config.Config, logger *zap.Logger) (domain.Embedder, func()) {
	var embedder domain.Embedder
	switch cfg.Embedding.Provider {
	case "openai":
		embedder = embedding.NewOpenAI(embedding.OpenAIConfig{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
	default:
		embedder = embedding.NewStatic(cfg.Embedding.Dimensions)
	}

	closeRedis := func() {}
	if len(cfg.Embedding.RedisCache.Addrs) > 0 {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Embedding.RedisCache.Addrs,
			Password: cfg.Embedding.RedisCache.Password,
		})
		if err != nil {
			// The shared tier is an optimization, run without it.
			logger.Warn("Redis embedding cache unavailable", zap.Error(err))
		} else {
			ttl := time.Duration(cfg.Embedding.RedisCache.TTLSec) * time.Second
			embedder = embedding.NewRedisCached(embedder, store, ttl, logger)
			closeRedis = store.Close
			logger.Info("Redis embedding cache enabled",
				zap.Strings("addrs", cfg.Embedding.RedisCache.Addrs))
		}
	}

	return embedding.NewCached(embedder, cfg.Embedding.CacheSize), closeRedis
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
