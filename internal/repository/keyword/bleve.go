package keyword

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/bihub/searchapi/internal/domain"
	"github.com/bihub/searchapi/internal/domain/doc"
	"github.com/bihub/searchapi/internal/domain/search/filter"
	"github.com/bihub/searchapi/internal/domain/search/result"
	"github.com/bihub/searchapi/internal/repository/docstore"
)

// bleveDoc is the shape indexed per document. Type and category use the
// keyword analyzer so filters are exact term matches.
type bleveDoc struct {
	Content  string `json:"content"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

// BleveIndex is the bleve-backed keyword index. Unlike the SQLite driver it
// does not store payloads; the docstore supplies them at search time.
type BleveIndex struct {
	mu     sync.RWMutex
	idx    bleve.Index
	docs   *docstore.Store
	closed bool
}

// OpenBleve opens (or creates) a bleve index at path. An empty path creates
// an in-memory index.
func OpenBleve(path string, docs *docstore.Store) (*BleveIndex, error) {
	m := buildBleveMapping()

	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open bleve index: %w", err)
	}

	return &BleveIndex{idx: idx, docs: docs}, nil
}

func buildBleveMapping() *mapping.IndexMappingImpl {
	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name

	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keywordanalyzer.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("content", content)
	docMapping.AddFieldMappingsAt("type", exact)
	docMapping.AddFieldMappingsAt("category", exact)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = docMapping
	m.DefaultAnalyzer = standard.Name
	return m
}

// Index upserts documents.
func (b *BleveIndex) Index(ctx context.Context, docs []doc.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return domain.ErrIndexClosed
	}

	batch := b.idx.NewBatch()
	for _, d := range docs {
		if d.ID == "" || d.Payload == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		entry := bleveDoc{
			Content:  d.Payload.IndexText(),
			Type:     string(d.Kind()),
			Category: d.Payload.FilterCategory(),
		}
		if err := batch.Index(d.ID, entry); err != nil {
			return fmt.Errorf("batch document %s: %w", d.ID, err)
		}
	}
	return b.idx.Batch(batch)
}

// Search returns up to k matches ranked by bleve's scorer. Bleve scores are
// already higher-is-better and pass through unchanged.
func (b *BleveIndex) Search(
	ctx context.Context, queryText string, k int, f filter.Filter,
) ([]result.Scored, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, domain.ErrIndexClosed
	}

	tokens := tokenize(queryText)
	if len(tokens) == 0 || k <= 0 {
		return nil, nil
	}

	q := bleve.NewConjunctionQuery(buildTextQuery(tokens))
	if f.Type != "" {
		tq := bleve.NewTermQuery(f.Type)
		tq.SetField("type")
		q.AddQuery(tq)
	}
	if f.Category != "" {
		cq := bleve.NewTermQuery(f.Category)
		cq.SetField("category")
		q.AddQuery(cq)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = k

	res, err := b.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	hits := make([]result.Scored, 0, len(res.Hits))
	for _, hit := range res.Hits {
		d, ok := b.docs.Get(hit.ID)
		if !ok {
			continue
		}
		hits = append(hits, result.NewScored(hit.ID, hit.Score, d))
	}
	return hits, nil
}

// buildTextQuery mirrors the FTS5 expansion on the content field: a single
// token tries both prefix and exact, multiple tokens OR their prefixes with
// sub-2-char tokens dropped, and an all-short query falls back to requiring
// every token exactly. Prefix queries bypass analysis, so tokens are
// lowercased to line up with the standard analyzer's token stream.
func buildTextQuery(tokens []string) query.Query {
	if len(tokens) == 1 {
		lower := strings.ToLower(tokens[0])
		pq := bleve.NewPrefixQuery(lower)
		pq.SetField("content")
		tq := bleve.NewTermQuery(lower)
		tq.SetField("content")
		return bleve.NewDisjunctionQuery(pq, tq)
	}

	text := bleve.NewDisjunctionQuery()
	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		if len(lower) < 2 {
			continue
		}
		pq := bleve.NewPrefixQuery(lower)
		pq.SetField("content")
		text.AddQuery(pq)
	}
	if len(text.Disjuncts) > 0 {
		return text
	}

	all := bleve.NewConjunctionQuery()
	for _, tok := range tokens {
		tq := bleve.NewTermQuery(strings.ToLower(tok))
		tq.SetField("content")
		all.AddQuery(tq)
	}
	return all
}

// Count returns the number of indexed documents.
func (b *BleveIndex) Count(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, domain.ErrIndexClosed
	}
	n, err := b.idx.DocCount()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close releases the index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.idx.Close()
}
