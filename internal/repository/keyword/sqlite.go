package keyword

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no CGO

	"github.com/bihub/searchapi/internal/domain"
	"github.com/bihub/searchapi/internal/domain/doc"
	"github.com/bihub/searchapi/internal/domain/search/filter"
	"github.com/bihub/searchapi/internal/domain/search/result"
)

// SQLiteIndex is the FTS5-backed keyword index. Document metadata lives in
// the same file as JSON, so filters push down into the query and results
// carry their payloads without a second store.
type SQLiteIndex struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// OpenSQLite opens (or creates) the keyword database at path. An empty path
// opens an in-memory database.
func OpenSQLite(path string) (*SQLiteIndex, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create keyword db directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open keyword db: %w", err)
	}

	// Single connection: SQLite allows one writer, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// modernc.org/sqlite ignores DSN pragma params, set them explicitly.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	idx := &SQLiteIndex{db: db}
	if err := idx.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize keyword schema: %w", err)
	}
	return idx, nil
}

func (s *SQLiteIndex) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		doc_id   TEXT PRIMARY KEY,
		doc_type TEXT NOT NULL,
		metadata TEXT NOT NULL
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS docs_fts USING fts5(
		doc_id UNINDEXED,
		content,
		tokenize='unicode61'
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Index upserts documents. The searchable content is each payload's index
// text; the full document is stored alongside as JSON.
func (s *SQLiteIndex) Index(ctx context.Context, docs []doc.Document) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrIndexClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin keyword tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// FTS5 virtual tables have no REPLACE, delete then insert.
	deleteStmt, err := tx.PrepareContext(ctx,
		`DELETE FROM docs_fts WHERE doc_id = ?`)
	if err != nil {
		return fmt.Errorf("prepare fts delete: %w", err)
	}
	defer deleteStmt.Close()

	insertStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO docs_fts(doc_id, content) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare fts insert: %w", err)
	}
	defer insertStmt.Close()

	metaStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO documents(doc_id, doc_type, metadata) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare metadata insert: %w", err)
	}
	defer metaStmt.Close()

	for _, d := range docs {
		if d.ID == "" || d.Payload == nil {
			continue
		}
		meta, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("marshal document %s: %w", d.ID, err)
		}
		if _, err := deleteStmt.ExecContext(ctx, d.ID); err != nil {
			return fmt.Errorf("delete document %s: %w", d.ID, err)
		}
		if _, err := insertStmt.ExecContext(ctx, d.ID, d.Payload.IndexText()); err != nil {
			return fmt.Errorf("index document %s: %w", d.ID, err)
		}
		if _, err := metaStmt.ExecContext(ctx, d.ID, string(d.Kind()), meta); err != nil {
			return fmt.Errorf("store document %s: %w", d.ID, err)
		}
	}

	return tx.Commit()
}

// Search returns up to k BM25-ranked matches for free-form query text.
// FTS5's bm25() is lower-is-better, so scores are negated on the way out.
func (s *SQLiteIndex) Search(
	ctx context.Context, queryText string, k int, f filter.Filter,
) ([]result.Scored, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrIndexClosed
	}

	match := ftsMatchQuery(queryText)
	if match == "" || k <= 0 {
		return nil, nil
	}

	query := `
		SELECT d.doc_id, bm25(docs_fts) AS score, d.metadata
		FROM docs_fts
		JOIN documents d ON d.doc_id = docs_fts.doc_id
		WHERE docs_fts MATCH ?`
	args := []any{match}

	if f.Type != "" {
		query += ` AND d.doc_type = ?`
		args = append(args, f.Type)
	}
	if f.Category != "" {
		query += ` AND json_extract(d.metadata, '$.category') = ?`
		args = append(args, f.Category)
	}

	query += `
		ORDER BY score
		LIMIT ?`
	args = append(args, k)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		// FTS5 rejects some inputs as syntax errors, treat as no matches.
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return nil, nil
		}
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	var hits []result.Scored
	for rows.Next() {
		var (
			id    string
			score float64
			meta  []byte
		)
		if err := rows.Scan(&id, &score, &meta); err != nil {
			return nil, fmt.Errorf("scan keyword hit: %w", err)
		}
		var d doc.Document
		if err := json.Unmarshal(meta, &d); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", id, err)
		}
		hits = append(hits, result.NewScored(id, -score, d))
	}
	return hits, rows.Err()
}

// Count returns the number of indexed documents.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, domain.ErrIndexClosed
	}

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// Close releases the database handle.
func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
