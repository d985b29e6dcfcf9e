// Package docstore holds the normalized document metadata, loaded once at
// startup and read-only afterwards. The serving path never mutates it; corpus
// updates arrive as a rebuilt data directory and a process restart
// (rebuild-and-swap), so readers never observe a half-built store.
package docstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/bihub/searchapi/internal/domain/doc"
)

// Store is an in-memory document metadata store keyed by document id.
type Store struct {
	byID  map[string]doc.Document
	order []string
}

// New creates a store from already-normalized documents. Later duplicates of
// an id replace earlier ones.
func New(docs []doc.Document) *Store {
	s := &Store{byID: make(map[string]doc.Document, len(docs))}
	for _, d := range docs {
		if d.ID == "" {
			continue
		}
		if _, seen := s.byID[d.ID]; !seen {
			s.order = append(s.order, d.ID)
		}
		s.byID[d.ID] = d
	}
	return s
}

// Load reads a metadata JSONL file produced by the index builder.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata file: %w", err)
	}
	defer f.Close()

	var docs []doc.Document

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var d doc.Document
		if err := json.Unmarshal([]byte(text), &d); err != nil {
			return nil, fmt.Errorf("parse metadata line %d: %w", line, err)
		}
		docs = append(docs, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read metadata file: %w", err)
	}

	return New(docs), nil
}

// Get returns the document for an id.
func (s *Store) Get(id string) (doc.Document, bool) {
	d, ok := s.byID[id]
	return d, ok
}

// All returns documents in load order.
func (s *Store) All() []doc.Document {
	out := make([]doc.Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Count returns the number of documents.
func (s *Store) Count() int { return len(s.byID) }
