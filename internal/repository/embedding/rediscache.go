package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/bihub/searchapi/internal/db"
	"github.com/bihub/searchapi/internal/domain"
	"github.com/bihub/searchapi/internal/metrics"
)

const redisKeyPrefix = "searchapi:emb_cache:"

// redisStore is the consumer interface for the shared cache tier.
type redisStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCachedEmbedder caches embeddings in a shared key-value store so
// replicas reuse each other's provider calls. Cache failures degrade to the
// inner embedder, never to a request error.
type RedisCachedEmbedder struct {
	inner  domain.Embedder
	store  redisStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCached creates the shared cache decorator.
func NewRedisCached(
	inner domain.Embedder, store redisStore, ttl time.Duration, logger *zap.Logger,
) *RedisCachedEmbedder {
	return &RedisCachedEmbedder{inner: inner, store: store, ttl: ttl, logger: logger}
}

// Embed implements domain.Embedder. Hits report zero token usage.
func (c *RedisCachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.getFromCache(ctx, key); ok {
		metrics.EmbeddingCacheTotal.WithLabelValues("redis", "hit").Inc()
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("redis", "miss").Inc()

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	c.putToCache(ctx, key, result.Embedding)
	return result, nil
}

// HealthCheck passes through to the wrapped embedder when it supports it.
func (c *RedisCachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *RedisCachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return redisKeyPrefix + hex.EncodeToString(h[:])
}

func (c *RedisCachedEmbedder) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *RedisCachedEmbedder) putToCache(ctx context.Context, key string, vec []float32) {
	if err := c.store.SetWithTTL(ctx, key, vectorToBytes(vec), c.ttl); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
