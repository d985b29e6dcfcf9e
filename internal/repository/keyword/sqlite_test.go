package keyword

import (
	"context"
	"testing"

	"github.com/bihub/searchapi/internal/domain/doc"
	"github.com/bihub/searchapi/internal/domain/search/filter"
)

func corpusDocs() []doc.Document {
	return []doc.Document{
		{ID: "rpt-1", Payload: doc.Report{
			Title:       "Wealth Processing Unit overview",
			Description: "How WPU ratings are calculated",
			Category:    "prospect-research",
			Platform:    "tableau",
		}},
		{ID: "rpt-2", Payload: doc.Report{
			Title:       "Annual fundraising progress",
			Description: "Tracks campaign totals by fiscal year",
			Category:    "fundraising",
			Platform:    "powerbi",
		}},
		{ID: "faq-1", Payload: doc.FAQ{
			Question: "How do I track fundraising progress?",
			Answer:   "Use the annual fundraising progress dashboard.",
			Category: "fundraising",
		}},
		{ID: "gls-1", Payload: doc.GlossaryTerm{
			Term:       "WPU",
			Definition: "Wealth Processing Unit, a capacity rating band.",
		}},
	}
}

func openTestSQLite(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite("")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	if err := idx.Index(context.Background(), corpusDocs()); err != nil {
		t.Fatalf("Index: %v", err)
	}
	return idx
}

func TestSQLiteSearchScoresArePositive(t *testing.T) {
	idx := openTestSQLite(t)

	hits, err := idx.Search(context.Background(), "fundraising progress", 10, filter.Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected hits for fundraising progress")
	}
	for _, h := range hits {
		if h.RawScore() <= 0 {
			t.Errorf("hit %q has non-positive score %f, bm25 should be negated", h.ID(), h.RawScore())
		}
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].RawScore() > hits[i-1].RawScore() {
			t.Errorf("hits not sorted best-first at %d", i)
		}
	}
}

func TestSQLiteSearchPrefixMatching(t *testing.T) {
	idx := openTestSQLite(t)

	hits, err := idx.Search(context.Background(), "fundrais", 10, filter.Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("prefix query matched nothing")
	}
	found := false
	for _, h := range hits {
		if h.ID() == "rpt-2" {
			found = true
		}
	}
	if !found {
		t.Error("rpt-2 missing from prefix-match results")
	}
}

func TestSQLiteSearchFilters(t *testing.T) {
	idx := openTestSQLite(t)

	hits, err := idx.Search(context.Background(), "fundraising", 10,
		filter.Filter{Type: "faq"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, h := range hits {
		if h.Doc().Kind() != doc.KindFAQ {
			t.Errorf("type filter leaked %q (%s)", h.ID(), h.Doc().Kind())
		}
	}
	if len(hits) != 1 || hits[0].ID() != "faq-1" {
		t.Fatalf("want only faq-1, got %d hits", len(hits))
	}

	hits, err = idx.Search(context.Background(), "fundraising", 10,
		filter.Filter{Category: "fundraising"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, h := range hits {
		if h.Doc().Payload.FilterCategory() != "fundraising" {
			t.Errorf("category filter leaked %q", h.ID())
		}
	}
}

func TestSQLiteSearchRestoresPayloads(t *testing.T) {
	idx := openTestSQLite(t)

	hits, err := idx.Search(context.Background(), "WPU", 10, filter.Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected WPU hits")
	}
	for _, h := range hits {
		if h.ID() == "gls-1" {
			g, ok := h.Doc().Payload.(doc.GlossaryTerm)
			if !ok {
				t.Fatalf("gls-1 payload is %T, want GlossaryTerm", h.Doc().Payload)
			}
			if g.Term != "WPU" {
				t.Errorf("glossary term = %q, want WPU", g.Term)
			}
			return
		}
	}
	t.Error("gls-1 missing from WPU results")
}

func TestSQLiteSearchDropsShortTokens(t *testing.T) {
	idx, err := OpenSQLite("")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	docs := []doc.Document{
		{ID: "donor-doc", Payload: doc.Report{
			Title:       "Donor pipeline report",
			Description: "Pipeline stages for major donors",
		}},
		{ID: "stopword-doc", Payload: doc.Report{
			Title:       "Placeholder",
			Description: "Just a placeholder page",
		}},
	}
	if err := idx.Index(context.Background(), docs); err != nil {
		t.Fatalf("Index: %v", err)
	}

	hits, err := idx.Search(context.Background(), "a donor", 10, filter.Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID() != "donor-doc" {
		t.Fatalf("want only donor-doc, got %d hits", len(hits))
	}
	for _, h := range hits {
		if h.ID() == "stopword-doc" {
			t.Error("document matching only a 1-char token was returned")
		}
	}
}

func TestSQLiteSearchHostileInput(t *testing.T) {
	idx := openTestSQLite(t)

	for _, q := range []string{`"unbalanced`, "NEAR(", "a AND", "*", ""} {
		if _, err := idx.Search(context.Background(), q, 10, filter.Filter{}); err != nil {
			t.Errorf("Search(%q) returned error: %v", q, err)
		}
	}
}

func TestSQLiteCount(t *testing.T) {
	idx := openTestSQLite(t)

	n, err := idx.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 4 {
		t.Fatalf("Count = %d, want 4", n)
	}
}
