package search

import (
	"github.com/bihub/searchapi/internal/domain/doc"
	"github.com/bihub/searchapi/internal/domain/search/query"
	"github.com/bihub/searchapi/internal/domain/search/result"
)

// fused is one merged entry before the match reason is attached.
type fused struct {
	id       string
	doc      doc.Document
	semantic *float64
	keyword  *float64
	blended  float64
}

// mergeBatches fuses the two normalized batches over the union of their
// document identities. A document present in only one source keeps the other
// source's score absent (nil) while contributing zero to the blend. When both
// sources returned a document, the semantic batch's payload is kept; the two
// describe the same document.
//
// Output order is map iteration order; the caller sorts.
func mergeBatches(semantic, keyword []result.Normalized, w query.Weights) []fused {
	semByID := make(map[string]result.Normalized, len(semantic))
	for _, n := range semantic {
		semByID[n.Item().ID()] = n
	}
	kwByID := make(map[string]result.Normalized, len(keyword))
	for _, n := range keyword {
		kwByID[n.Item().ID()] = n
	}

	ids := make(map[string]struct{}, len(semByID)+len(kwByID))
	for id := range semByID {
		ids[id] = struct{}{}
	}
	for id := range kwByID {
		ids[id] = struct{}{}
	}

	merged := make([]fused, 0, len(ids))
	for id := range ids {
		var (
			semScore, kwScore *float64
			semOr0, kwOr0     float64
			payload           doc.Document
		)

		if n, ok := semByID[id]; ok {
			s := n.Score()
			semScore, semOr0 = &s, s
			payload = n.Item().Doc()
		}
		if n, ok := kwByID[id]; ok {
			s := n.Score()
			kwScore, kwOr0 = &s, s
			if semScore == nil {
				payload = n.Item().Doc()
			}
		}

		merged = append(merged, fused{
			id:       id,
			doc:      payload,
			semantic: semScore,
			keyword:  kwScore,
			blended:  w.Semantic*semOr0 + w.Keyword*kwOr0,
		})
	}

	return merged
}
