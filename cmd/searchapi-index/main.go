// Command searchapi-index builds the serving artifacts from a raw corpus
// file: normalized metadata (JSONL), the keyword index, and the HNSW vector
// snapshot. The server loads these read-only, so corpus updates are a
// rebuild followed by a restart.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bihub/searchapi/internal/config"
	"github.com/bihub/searchapi/internal/domain"
	"github.com/bihub/searchapi/internal/domain/doc"
	logpkg "github.com/bihub/searchapi/internal/logger"
	"github.com/bihub/searchapi/internal/repository/docstore"
	"github.com/bihub/searchapi/internal/repository/embedding"
	"github.com/bihub/searchapi/internal/repository/keyword"
	"github.com/bihub/searchapi/internal/repository/vector"
)

// embedWorkers bounds concurrent embedding calls during the build.
const embedWorkers = 4

func main() {
	corpusPath := flag.String("corpus", "", "path to the raw corpus (JSON array or JSONL)")
	flag.Parse()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if *corpusPath == "" {
		logger.Fatal("missing required flag -corpus")
	}

	start := time.Now()
	ctx := context.Background()

	docs, err := readCorpus(*corpusPath)
	if err != nil {
		logger.Fatal("Failed to read corpus", zap.Error(err))
	}
	store := docstore.New(docs)
	docs = store.All()
	logger.Info("Corpus loaded", zap.Int("documents", len(docs)))

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		logger.Fatal("Failed to create data directory", zap.Error(err))
	}

	if err := writeMetadata(cfg.Data.MetadataFile(), docs); err != nil {
		logger.Fatal("Failed to write metadata", zap.Error(err))
	}
	logger.Info("Wrote metadata", zap.String("path", cfg.Data.MetadataFile()))

	if err := buildKeywordIndex(ctx, cfg, store, docs); err != nil {
		logger.Fatal("Failed to build keyword index", zap.Error(err))
	}
	logger.Info("Built keyword index", zap.String("driver", cfg.Search.KeywordDriver))

	if err := buildVectorIndex(ctx, cfg, store, docs, logger); err != nil {
		logger.Fatal("Failed to build vector index", zap.Error(err))
	}
	logger.Info("Built vector index",
		zap.String("path", cfg.Data.VectorIndexFile()),
		zap.Duration("total", time.Since(start)),
	)
}

// readCorpus accepts either a JSON array of documents or JSONL, one document
// per line.
func readCorpus(path string) ([]doc.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var docs []doc.Document
		if err := json.Unmarshal([]byte(trimmed), &docs); err != nil {
			return nil, fmt.Errorf("parse corpus array: %w", err)
		}
		return docs, nil
	}

	var docs []doc.Document
	scanner := bufio.NewScanner(strings.NewReader(trimmed))
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
			return nil, fmt.Errorf("parse corpus line %d: %w", line, err)
		}
		docs = append(docs, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan corpus: %w", err)
	}
	return docs, nil
}

func writeMetadata(path string, docs []doc.Document) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("encode document %s: %w", d.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flush metadata: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close metadata: %w", err)
	}
	return os.Rename(tmp, path)
}

func buildKeywordIndex(
	ctx context.Context, cfg config.Config, store *docstore.Store, docs []doc.Document,
) error {
	switch cfg.Search.KeywordDriver {
	case "bleve":
		// Rebuild from scratch, stale entries must not survive.
		if err := os.RemoveAll(cfg.Data.BleveIndexDir()); err != nil {
			return fmt.Errorf("clear bleve index: %w", err)
		}
		idx, err := keyword.OpenBleve(cfg.Data.BleveIndexDir(), store)
		if err != nil {
			return err
		}
		defer idx.Close()
		return idx.Index(ctx, docs)
	default:
		if err := os.Remove(cfg.Data.KeywordDBFile()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clear keyword db: %w", err)
		}
		idx, err := keyword.OpenSQLite(cfg.Data.KeywordDBFile())
		if err != nil {
			return err
		}
		defer idx.Close()
		return idx.Index(ctx, docs)
	}
}

func buildVectorIndex(
	ctx context.Context, cfg config.Config, store *docstore.Store,
	docs []doc.Document, logger *zap.Logger,
) error {
	var embedder domain.Embedder
	switch cfg.Embedding.Provider {
	case "openai":
		embedder = embedding.NewOpenAI(embedding.OpenAIConfig{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
	default:
		embedder = embedding.NewStatic(cfg.Embedding.Dimensions)
	}

	idx := vector.New(cfg.Embedding.Dimensions, store)

	// Embedding dominates build time, run a small worker pool. Add is
	// synchronized inside the index.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)

	for _, d := range docs {
		if d.Payload == nil {
			continue
		}
		g.Go(func() error {
			res, err := embedder.Embed(gctx, d.Payload.EmbedText())
			if err != nil {
				return fmt.Errorf("embed document %s: %w", d.ID, err)
			}
			if err := idx.Add(d.ID, res.Embedding); err != nil {
				return fmt.Errorf("add document %s: %w", d.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Embedded corpus", zap.Int("vectors", idx.Count()))
	return idx.Save(cfg.Data.VectorIndexFile())
}
