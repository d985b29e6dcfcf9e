package search

import (
	"testing"

	"github.com/bihub/searchapi/internal/domain/doc"
	"github.com/bihub/searchapi/internal/domain/search/result"
)

func scoredBatch(scores ...float64) []result.Scored {
	batch := make([]result.Scored, len(scores))
	for i, s := range scores {
		batch[i] = result.NewScored(
			"doc-"+string(rune('a'+i)), s,
			doc.Document{ID: "doc-" + string(rune('a'+i))},
		)
	}
	return batch
}

func TestNormalizeBatchEmpty(t *testing.T) {
	if got := normalizeBatch(nil); len(got) != 0 {
		t.Fatalf("normalizeBatch(nil) = %d items, want 0", len(got))
	}
	if got := normalizeBatch([]result.Scored{}); len(got) != 0 {
		t.Fatalf("normalizeBatch(empty) = %d items, want 0", len(got))
	}
}

func TestNormalizeBatchSingleItem(t *testing.T) {
	out := normalizeBatch(scoredBatch(0.42))
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1", len(out))
	}
	if out[0].Score() != 1.0 {
		t.Errorf("single item score = %f, want 1.0", out[0].Score())
	}
}

func TestNormalizeBatchMinMax(t *testing.T) {
	out := normalizeBatch(scoredBatch(0.8, 0.4, 0.6))

	want := []float64{1.0, 0.0, 0.5}
	for i, n := range out {
		if n.Score() != want[i] {
			t.Errorf("score[%d] = %f, want %f", i, n.Score(), want[i])
		}
	}
}

func TestNormalizeBatchAllEqual(t *testing.T) {
	out := normalizeBatch(scoredBatch(3.7, 3.7, 3.7, 3.7))
	for i, n := range out {
		if n.Score() != 1.0 {
			t.Errorf("score[%d] = %f, want 1.0 for all-equal batch", i, n.Score())
		}
	}
}

func TestNormalizeBatchNegativeScores(t *testing.T) {
	out := normalizeBatch(scoredBatch(-2.0, 0.0, 2.0))

	want := []float64{0.0, 0.5, 1.0}
	for i, n := range out {
		if n.Score() != want[i] {
			t.Errorf("score[%d] = %f, want %f", i, n.Score(), want[i])
		}
	}
}

func TestNormalizeBatchPreservesItems(t *testing.T) {
	batch := scoredBatch(0.9, 0.1)
	out := normalizeBatch(batch)
	for i := range batch {
		if out[i].Item().ID() != batch[i].ID() {
			t.Errorf("item[%d] identity changed: %q", i, out[i].Item().ID())
		}
	}
}
