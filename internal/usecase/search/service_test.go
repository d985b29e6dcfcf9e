package search

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bihub/searchapi/internal/domain"
	"github.com/bihub/searchapi/internal/domain/doc"
	"github.com/bihub/searchapi/internal/domain/search/filter"
	"github.com/bihub/searchapi/internal/domain/search/mode"
	"github.com/bihub/searchapi/internal/domain/search/result"
	"github.com/bihub/searchapi/internal/logger"
)

type mockVector struct {
	batch []result.Scored
	err   error
	gotK  int
	gotF  filter.Filter
}

func (m *mockVector) Search(
	_ context.Context, _ []float32, k int, f filter.Filter,
) ([]result.Scored, error) {
	m.gotK = k
	m.gotF = f
	return m.batch, m.err
}

type mockKeyword struct {
	batch []result.Scored
	err   error
	gotQ  string
	gotK  int
}

func (m *mockKeyword) Search(
	_ context.Context, q string, k int, _ filter.Filter,
) ([]result.Scored, error) {
	m.gotQ = q
	m.gotK = k
	return m.batch, m.err
}

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}, nil
}

func scored(id string, s float64) result.Scored {
	return result.NewScored(id, s, doc.Document{ID: id, Payload: doc.Report{Title: id}})
}

func newService(v *mockVector, k *mockKeyword, e *mockEmbedder) *Service {
	return New(v, k, e, zap.NewNop())
}

func TestSearchHybrid(t *testing.T) {
	v := &mockVector{batch: []result.Scored{scored("a", 0.9), scored("b", 0.5)}}
	k := &mockKeyword{batch: []result.Scored{scored("b", 12.0), scored("c", 4.0)}}
	svc := newService(v, k, &mockEmbedder{})

	resp, err := svc.Search(context.Background(), "how do I track fundraising progress", 10, filter.Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if resp.Mode != mode.Hybrid {
		t.Errorf("mode = %q, want hybrid", resp.Mode)
	}
	if resp.Weights.Semantic != 0.7 || resp.Weights.Keyword != 0.3 {
		t.Errorf("weights = %+v, want 0.7/0.3", resp.Weights)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(resp.Results))
	}

	// b appears in both sources at max normalized scores: 0.7*0 + ... check
	// ordering instead of exact values. Semantic batch normalizes a=1, b=0;
	// keyword normalizes b=1, c=0. Blends: a=0.7, b=0.3, c=0.
	wantOrder := []string{"a", "b", "c"}
	for i, id := range wantOrder {
		if resp.Results[i].ID() != id {
			t.Errorf("results[%d] = %q, want %q", i, resp.Results[i].ID(), id)
		}
	}

	b := resp.Results[1]
	if b.SemanticScore() == nil || b.KeywordScore() == nil {
		t.Error("entry from both sources must carry both scores")
	}
	c := resp.Results[2]
	if c.SemanticScore() != nil {
		t.Error("keyword-only entry must have absent semantic score")
	}
}

func TestSearchDegradesOnVectorError(t *testing.T) {
	v := &mockVector{err: errors.New("index unavailable")}
	k := &mockKeyword{batch: []result.Scored{scored("kw", 3.0)}}
	svc := newService(v, k, &mockEmbedder{})

	resp, err := svc.Search(context.Background(), "donors", 10, filter.Filter{})
	if err != nil {
		t.Fatalf("Search must not propagate collaborator errors: %v", err)
	}
	if resp.Mode != mode.Keyword {
		t.Errorf("mode = %q, want keyword", resp.Mode)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID() != "kw" {
		t.Fatalf("results = %+v, want the keyword hit", resp.Results)
	}
}

func TestSearchWarnsThroughRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	reqLogger := zap.New(core).With(zap.String("request_id", "req-9"))

	v := &mockVector{err: errors.New("index unavailable")}
	k := &mockKeyword{batch: []result.Scored{scored("kw", 3.0)}}
	svc := newService(v, k, &mockEmbedder{})

	ctx := logger.ContextWithLogger(context.Background(), reqLogger)
	if _, err := svc.Search(ctx, "donors", 10, filter.Filter{}); err != nil {
		t.Fatalf("Search: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("logged %d warnings, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "req-9" {
		t.Errorf("request_id = %v, degrade warning lost the request scope", got)
	}
}

func TestSearchDegradesOnKeywordError(t *testing.T) {
	v := &mockVector{batch: []result.Scored{scored("sem", 0.8)}}
	k := &mockKeyword{err: errors.New("fts down")}
	svc := newService(v, k, &mockEmbedder{})

	resp, err := svc.Search(context.Background(), "donors", 10, filter.Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Mode != mode.Semantic {
		t.Errorf("mode = %q, want semantic", resp.Mode)
	}
}

func TestSearchDegradesOnEmbedError(t *testing.T) {
	v := &mockVector{batch: []result.Scored{scored("sem", 0.8)}}
	k := &mockKeyword{batch: []result.Scored{scored("kw", 3.0)}}
	svc := newService(v, k, &mockEmbedder{err: errors.New("provider down")})

	resp, err := svc.Search(context.Background(), "donors", 10, filter.Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Mode != mode.Keyword {
		t.Errorf("mode = %q, want keyword when embedding fails", resp.Mode)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID() != "kw" {
		t.Fatalf("results = %+v", resp.Results)
	}
}

func TestSearchBothSourcesEmpty(t *testing.T) {
	svc := newService(&mockVector{}, &mockKeyword{}, &mockEmbedder{})

	resp, err := svc.Search(context.Background(), "nothing matches", 10, filter.Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Fatalf("results = %d, want 0", len(resp.Results))
	}
	if resp.Mode != mode.Keyword {
		t.Errorf("mode = %q, empty window reports keyword", resp.Mode)
	}
}

func TestSearchTruncatesToTopK(t *testing.T) {
	kw := make([]result.Scored, 0, 8)
	for i := range 8 {
		kw = append(kw, scored(string(rune('a'+i)), float64(8-i)))
	}
	svc := newService(&mockVector{}, &mockKeyword{batch: kw}, &mockEmbedder{})

	resp, err := svc.Search(context.Background(), "donors", 3, filter.Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(resp.Results))
	}
	if resp.Results[0].ID() != "a" {
		t.Errorf("top hit = %q, want a", resp.Results[0].ID())
	}
}

func TestSearchTieBreakIsDeterministic(t *testing.T) {
	k := &mockKeyword{batch: []result.Scored{
		scored("zeta", 5.0), scored("alpha", 5.0), scored("mid", 5.0),
	}}
	svc := newService(&mockVector{}, k, &mockEmbedder{})

	resp, err := svc.Search(context.Background(), "donors", 10, filter.Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	// Equal raw scores normalize to all 1.0 and blend equally; ties order by id.
	want := []string{"alpha", "mid", "zeta"}
	for i, id := range want {
		if resp.Results[i].ID() != id {
			t.Errorf("results[%d] = %q, want %q", i, resp.Results[i].ID(), id)
		}
	}
}

func TestSearchIdempotent(t *testing.T) {
	v := &mockVector{batch: []result.Scored{scored("a", 0.9), scored("b", 0.4)}}
	k := &mockKeyword{batch: []result.Scored{scored("b", 9.0), scored("c", 2.0)}}
	svc := newService(v, k, &mockEmbedder{})

	first, err := svc.Search(context.Background(), "prospect ratings", 10, filter.Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	second, err := svc.Search(context.Background(), "prospect ratings", 10, filter.Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("identical calls against unchanged indexes must return identical output")
	}
}

func TestSearchOverfetchFloor(t *testing.T) {
	v := &mockVector{}
	k := &mockKeyword{}
	svc := newService(v, k, &mockEmbedder{})

	if _, err := svc.Search(context.Background(), "donors", 5, filter.Filter{}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if v.gotK != DefaultOverfetch || k.gotK != DefaultOverfetch {
		t.Errorf("fetch k = %d/%d, want %d", v.gotK, k.gotK, DefaultOverfetch)
	}

	if _, err := svc.Search(context.Background(), "donors", 50, filter.Filter{}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if v.gotK != 50 {
		t.Errorf("fetch k = %d, want raised to topK 50", v.gotK)
	}
}

func TestSearchPushesFiltersDown(t *testing.T) {
	v := &mockVector{}
	k := &mockKeyword{}
	svc := newService(v, k, &mockEmbedder{})

	f := filter.Filter{Type: "report", Category: "fundraising"}
	if _, err := svc.Search(context.Background(), "donors", 5, f); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if v.gotF != f {
		t.Errorf("vector filter = %+v, want %+v", v.gotF, f)
	}
	if k.gotQ != "donors" {
		t.Errorf("keyword query = %q", k.gotQ)
	}
}
