package embedding

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/bihub/searchapi/internal/domain"
	"github.com/bihub/searchapi/internal/metrics"
)

// DefaultCacheSize is the LRU capacity when the config does not set one.
// At 384 dimensions * 4 bytes * 1024 entries this is about 1.5MB.
const DefaultCacheSize = 1024

// CachedEmbedder wraps an embedder with an in-process LRU keyed by the exact
// input text. Concurrent requests for the same text collapse into a single
// provider call.
type CachedEmbedder struct {
	inner domain.Embedder
	cache *lru.Cache[string, domain.EmbeddingResult]
	group singleflight.Group
}

// NewCached creates a cached embedder wrapping inner.
func NewCached(inner domain.Embedder, cacheSize int) *CachedEmbedder {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, domain.EmbeddingResult](cacheSize)
	return &CachedEmbedder{inner: inner, cache: cache}
}

// Embed implements domain.Embedder. Cached results report zero token usage
// since no provider call happened.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if res, ok := c.cache.Get(text); ok {
		metrics.EmbeddingCacheTotal.WithLabelValues("lru", "hit").Inc()
		return res, nil
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("lru", "miss").Inc()

	v, err, _ := c.group.Do(text, func() (any, error) {
		res, err := c.inner.Embed(ctx, text)
		if err != nil {
			return domain.EmbeddingResult{}, err
		}
		c.cache.Add(text, res)
		return res, nil
	})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return v.(domain.EmbeddingResult), nil
}

// HealthCheck passes through to the wrapped embedder when it supports it.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
