package search

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bihub/searchapi/internal/domain/search/filter"
	"github.com/bihub/searchapi/internal/domain/search/mode"
	"github.com/bihub/searchapi/internal/domain/search/query"
	"github.com/bihub/searchapi/internal/domain/search/result"
	"github.com/bihub/searchapi/internal/logger"
	"github.com/bihub/searchapi/internal/metrics"
)

// DefaultOverfetch is how many candidates each source is asked for before
// filtering, merging, and truncation. Independent of top_k so that the final
// window rarely starves.
const DefaultOverfetch = 30

// Response is the outcome of one hybrid search call.
type Response struct {
	Results []result.Merged
	Mode    mode.Mode
	Weights query.Weights
}

// Service orchestrates hybrid retrieval: it classifies the query, fans out to
// the vector and lexical indexes, normalizes each batch, fuses them, explains
// each hit, and returns the sorted top-k window.
type Service struct {
	vector    VectorIndex
	keyword   KeywordIndex
	embed     Embedder
	overfetch int
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a search service.
func New(vector VectorIndex, keyword KeywordIndex, embed Embedder, logger *zap.Logger) *Service {
	return &Service{
		vector:    vector,
		keyword:   keyword,
		embed:     embed,
		overfetch: DefaultOverfetch,
		logger:    logger,
	}
}

// WithOverfetch overrides the per-source candidate count.
func (s *Service) WithOverfetch(n int) *Service {
	if n > 0 {
		s.overfetch = n
	}
	return s
}

// WithTimeout sets a per-request deadline applied to the retrieval fan-out.
func (s *Service) WithTimeout(d time.Duration) *Service {
	s.timeout = d
	return s
}

// Search runs one hybrid search call. It never fails on valid input: a
// collaborator error degrades that source to an empty batch, so a keyword
// index outage leaves semantic results intact and vice versa.
func (s *Service) Search(ctx context.Context, q string, topK int, f filter.Filter) (Response, error) {
	start := time.Now()

	weights := query.BlendWeightsFor(q)

	fetchK := s.overfetch
	if topK > fetchK {
		fetchK = topK
	}

	semBatch, kwBatch := s.retrieve(ctx, q, fetchK, f)

	semantic := normalizeBatch(semBatch)
	keyword := normalizeBatch(kwBatch)

	merged := mergeBatches(semantic, keyword, weights)

	results := make([]result.Merged, 0, len(merged))
	for _, m := range merged {
		reason := matchReason(m.semantic, m.keyword, weights)
		results = append(results, result.NewMerged(
			m.id, m.doc, m.semantic, m.keyword, m.blended, reason,
		))
	}

	// Blended score descending; ties break on document id so a repeated call
	// against an unchanged index returns identical ordering.
	sort.Slice(results, func(i, j int) bool {
		if results[i].BlendedScore() != results[j].BlendedScore() {
			return results[i].BlendedScore() > results[j].BlendedScore()
		}
		return results[i].ID() < results[j].ID()
	})

	if len(results) > topK {
		results = results[:topK]
	}

	// Mode is derived from the truncated window, not the full candidate
	// pool: a corpus-level hybrid match reports single-source when the other
	// source's hits fell outside top-k.
	m := windowMode(results)

	metrics.SearchesTotal.WithLabelValues(string(m)).Inc()
	metrics.SearchDuration.Observe(time.Since(start).Seconds())

	return Response{Results: results, Mode: m, Weights: weights}, nil
}

// retrieve fans out to both sources concurrently and joins before returning.
// Failures are logged and surface as empty batches.
func (s *Service) retrieve(
	ctx context.Context, q string, fetchK int, f filter.Filter,
) (semantic, keyword []result.Scored) {
	log := logger.FromContext(ctx, s.logger)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		emb, err := s.embed.Embed(gctx, q)
		if err != nil {
			log.Warn("query embedding failed, skipping semantic source", zap.Error(err))
			return nil
		}
		batch, err := s.vector.Search(gctx, emb.Embedding, fetchK, f)
		if err != nil {
			log.Warn("vector search failed", zap.Error(err))
			return nil
		}
		semantic = batch
		return nil
	})

	g.Go(func() error {
		batch, err := s.keyword.Search(gctx, q, fetchK, f)
		if err != nil {
			log.Warn("keyword search failed", zap.Error(err))
			return nil
		}
		keyword = batch
		return nil
	})

	_ = g.Wait()
	return semantic, keyword
}

func windowMode(results []result.Merged) mode.Mode {
	var hasSemantic, hasKeyword bool
	for _, r := range results {
		if r.SemanticScore() != nil {
			hasSemantic = true
		}
		if r.KeywordScore() != nil {
			hasKeyword = true
		}
	}

	switch {
	case hasSemantic && hasKeyword:
		return mode.Hybrid
	case hasSemantic:
		return mode.Semantic
	default:
		return mode.Keyword
	}
}
