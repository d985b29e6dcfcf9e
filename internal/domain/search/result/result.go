// Package result defines the units flowing through the fusion pipeline:
// per-source scored hits, their normalized form, and the merged output.
package result

import "github.com/bihub/searchapi/internal/domain/doc"

// Scored is a single hit from one retrieval source. Raw scores follow the
// universal convention that higher is better; source adapters are responsible
// for sign-correcting their native metric before constructing a Scored.
type Scored struct {
	id    string
	score float64
	doc   doc.Document
}

// NewScored creates a per-source hit.
func NewScored(id string, rawScore float64, d doc.Document) Scored {
	return Scored{id: id, score: rawScore, doc: d}
}

// ID returns the document identity.
func (s Scored) ID() string { return s.id }

// RawScore returns the source-native relevance score.
func (s Scored) RawScore() float64 { return s.score }

// Doc returns the document payload record.
func (s Scored) Doc() doc.Document { return s.doc }

// Normalized is a Scored hit with its score rescaled to [0,1] within the
// batch it arrived in.
type Normalized struct {
	item  Scored
	score float64
}

// NewNormalized pairs a hit with its batch-local normalized score.
func NewNormalized(item Scored, normalizedScore float64) Normalized {
	return Normalized{item: item, score: normalizedScore}
}

// Item returns the underlying hit.
func (n Normalized) Item() Scored { return n.item }

// Score returns the normalized score in [0,1].
func (n Normalized) Score() float64 { return n.score }

// Merged is the externally visible fused result. Per-source scores are nil
// when that source did not return the document; the blended score always
// treats a missing source as contributing zero.
type Merged struct {
	id       string
	doc      doc.Document
	semantic *float64
	keyword  *float64
	blended  float64
	reason   string
}

// NewMerged creates a fused result.
func NewMerged(
	id string, d doc.Document,
	semantic, keyword *float64, blended float64, reason string,
) Merged {
	return Merged{
		id: id, doc: d,
		semantic: semantic, keyword: keyword,
		blended: blended, reason: reason,
	}
}

// ID returns the document identity.
func (m Merged) ID() string { return m.id }

// Doc returns the document payload record.
func (m Merged) Doc() doc.Document { return m.doc }

// SemanticScore returns the normalized semantic score, nil if the vector
// source did not return this document.
func (m Merged) SemanticScore() *float64 { return m.semantic }

// KeywordScore returns the normalized keyword score, nil if the lexical
// source did not return this document.
func (m Merged) KeywordScore() *float64 { return m.keyword }

// BlendedScore returns the weighted combination in [0,1].
func (m Merged) BlendedScore() float64 { return m.blended }

// MatchReason returns the human-readable match explanation.
func (m Merged) MatchReason() string { return m.reason }
