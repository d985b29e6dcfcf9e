package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bihub/searchapi/internal/db"
	"github.com/bihub/searchapi/internal/domain"
)

// countingEmbedder records how many times the provider is actually called.
type countingEmbedder struct {
	calls atomic.Int64
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	c.calls.Add(1)
	if c.err != nil {
		return domain.EmbeddingResult{}, c.err
	}
	return domain.EmbeddingResult{
		Embedding:   []float32{float32(len(text)), 1, 0},
		TotalTokens: 3,
	}, nil
}

func TestCachedEmbedderHitSkipsProvider(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCached(inner, 8)
	ctx := context.Background()

	first, err := c.Embed(ctx, "wealth screening")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := c.Embed(ctx, "wealth screening")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if got := inner.calls.Load(); got != 1 {
		t.Fatalf("provider calls = %d, want 1", got)
	}
	if len(first.Embedding) != len(second.Embedding) {
		t.Fatal("cached result differs from original")
	}
}

func TestCachedEmbedderErrorNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("provider down")}
	c := NewCached(inner, 8)
	ctx := context.Background()

	if _, err := c.Embed(ctx, "q"); err == nil {
		t.Fatal("expected error from provider")
	}

	inner.err = nil
	if _, err := c.Embed(ctx, "q"); err != nil {
		t.Fatalf("recovery embed failed: %v", err)
	}
	if got := inner.calls.Load(); got != 2 {
		t.Fatalf("provider calls = %d, want 2", got)
	}
}

func TestCachedEmbedderConcurrentSameKey(t *testing.T) {
	inner := &slowEmbedder{}
	c := NewCached(inner, 8)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Embed(context.Background(), "same query"); err != nil {
				t.Errorf("Embed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := inner.calls.Load(); got != 1 {
		t.Fatalf("provider calls = %d, want 1 (singleflight)", got)
	}
}

type slowEmbedder struct {
	calls atomic.Int64
}

func (s *slowEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	s.calls.Add(1)
	time.Sleep(20 * time.Millisecond)
	return domain.EmbeddingResult{Embedding: []float32{1}}, nil
}

// fakeKV implements the shared cache tier contract in memory.
type fakeKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeKV) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

func TestRedisCachedEmbedderRoundTrip(t *testing.T) {
	inner := &countingEmbedder{}
	kv := newFakeKV()
	c := NewRedisCached(inner, kv, time.Hour, zap.NewNop())
	ctx := context.Background()

	first, err := c.Embed(ctx, "donor capacity")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := c.Embed(ctx, "donor capacity")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if got := inner.calls.Load(); got != 1 {
		t.Fatalf("provider calls = %d, want 1", got)
	}
	if len(second.Embedding) != len(first.Embedding) {
		t.Fatal("cached vector length mismatch")
	}
	for i := range first.Embedding {
		if first.Embedding[i] != second.Embedding[i] {
			t.Fatalf("cached vector differs at %d", i)
		}
	}
	if second.TotalTokens != 0 {
		t.Errorf("cache hit TotalTokens = %d, want 0", second.TotalTokens)
	}
}

func TestRedisCachedEmbedderDegradesOnStoreFailure(t *testing.T) {
	inner := &countingEmbedder{}
	kv := newFakeKV()
	kv.getErr = errors.New("connection refused")
	kv.setErr = errors.New("connection refused")
	c := NewRedisCached(inner, kv, time.Hour, zap.NewNop())

	res, err := c.Embed(context.Background(), "donor capacity")
	if err != nil {
		t.Fatalf("Embed should degrade, got: %v", err)
	}
	if len(res.Embedding) == 0 {
		t.Fatal("empty embedding on degraded path")
	}
	if got := inner.calls.Load(); got != 1 {
		t.Fatalf("provider calls = %d, want 1", got)
	}
}

func TestRedisCachedEmbedderIgnoresCorruptEntries(t *testing.T) {
	inner := &countingEmbedder{}
	kv := newFakeKV()
	c := NewRedisCached(inner, kv, time.Hour, zap.NewNop())
	ctx := context.Background()

	if _, err := c.Embed(ctx, "donor capacity"); err != nil {
		t.Fatalf("Embed: %v", err)
	}

	// Corrupt every stored entry.
	kv.mu.Lock()
	for k := range kv.data {
		kv.data[k] = []byte{1, 2, 3}
	}
	kv.mu.Unlock()

	if _, err := c.Embed(ctx, "donor capacity"); err != nil {
		t.Fatalf("Embed with corrupt cache: %v", err)
	}
	if got := inner.calls.Load(); got != 2 {
		t.Fatalf("provider calls = %d, want 2 (corrupt entry refetched)", got)
	}
}
