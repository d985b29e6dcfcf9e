// Package vector implements the dense retrieval collaborator over a pure-Go
// HNSW graph. Vectors are L2-normalized so the reported score is the inner
// product (cosine similarity) between query and document, nominally in [0,1]
// for natural-language text.
package vector

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"

	"github.com/bihub/searchapi/internal/domain"
	"github.com/bihub/searchapi/internal/domain/search/filter"
	"github.com/bihub/searchapi/internal/domain/search/result"
	"github.com/bihub/searchapi/internal/repository/docstore"
)

// filterOverfetch is how much deeper the graph is searched when filters are
// present: filtering happens by scanning returned candidates, not inside the
// graph, so non-matching neighbors must be survivable.
const filterOverfetch = 3

// Index is an HNSW-backed vector index with string document ids.
type Index struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	dims    int
	idToKey map[string]uint64
	keyToID map[uint64]string
	nextKey uint64
	docs    *docstore.Store
}

// New creates an empty index for vectors of the given dimension.
func New(dims int, docs *docstore.Store) *Index {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 64
	graph.Ml = 0.25

	return &Index{
		graph:   graph,
		dims:    dims,
		idToKey: make(map[string]uint64),
		keyToID: make(map[uint64]string),
		docs:    docs,
	}
}

// Dimensions returns the vector dimension.
func (x *Index) Dimensions() int { return x.dims }

// Count returns the number of indexed vectors.
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.idToKey)
}

// Add inserts one vector. Re-adding an id orphans the old graph node rather
// than deleting it; the index is rebuilt from scratch on corpus updates, so
// orphans never accumulate in serving.
func (x *Index) Add(id string, vec []float32) error {
	if len(vec) != x.dims {
		return fmt.Errorf("add %q: expected %d dims, got %d: %w",
			id, x.dims, len(vec), domain.ErrVectorDimMismatch)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if old, exists := x.idToKey[id]; exists {
		delete(x.keyToID, old)
		delete(x.idToKey, id)
	}

	key := x.nextKey
	x.nextKey++

	normalized := make([]float32, len(vec))
	copy(normalized, vec)
	normalizeInPlace(normalized)

	x.graph.Add(hnsw.MakeNode(key, normalized))
	x.idToKey[id] = key
	x.keyToID[key] = id
	return nil
}

// Search returns up to k nearest documents admissible under the filter,
// scored by inner product with the query.
func (x *Index) Search(
	ctx context.Context, queryVector []float32, k int, f filter.Filter,
) ([]result.Scored, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(queryVector) != x.dims {
		return nil, fmt.Errorf("query has %d dims, index has %d: %w",
			len(queryVector), x.dims, domain.ErrVectorDimMismatch)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph.Len() == 0 || k <= 0 {
		return nil, nil
	}

	fetchK := k
	if !f.IsZero() {
		fetchK = k * filterOverfetch
	}

	q := make([]float32, len(queryVector))
	copy(q, queryVector)
	normalizeInPlace(q)

	nodes := x.graph.Search(q, fetchK)

	hits := make([]result.Scored, 0, k)
	for _, node := range nodes {
		id, ok := x.keyToID[node.Key]
		if !ok {
			// Orphaned node from a replaced id.
			continue
		}
		d, ok := x.docs.Get(id)
		if !ok {
			continue
		}
		if !f.Matches(d) {
			continue
		}

		similarity := 1 - float64(x.graph.Distance(q, node.Value))
		hits = append(hits, result.NewScored(id, similarity, d))

		if len(hits) >= k {
			break
		}
	}

	return hits, nil
}

func normalizeInPlace(v []float32) {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return
	}
	norm := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= norm
	}
}
