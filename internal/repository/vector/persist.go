package vector

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bihub/searchapi/internal/repository/docstore"
)

// snapshotMeta is the gob sidecar alongside the exported graph. The graph
// format only knows uint64 keys, so the string id mapping lives here.
type snapshotMeta struct {
	Dims    int
	NextKey uint64
	IDToKey map[string]uint64
}

func metaPath(indexPath string) string {
	return indexPath + ".meta"
}

// Save writes the graph and id mapping atomically, temp file then rename.
func (x *Index) Save(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmpIndex := path + ".tmp"
	f, err := os.Create(tmpIndex)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := x.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmpIndex)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpIndex)
		return fmt.Errorf("close index file: %w", err)
	}

	tmpMeta := metaPath(path) + ".tmp"
	mf, err := os.Create(tmpMeta)
	if err != nil {
		os.Remove(tmpIndex)
		return fmt.Errorf("create metadata file: %w", err)
	}
	meta := snapshotMeta{
		Dims:    x.dims,
		NextKey: x.nextKey,
		IDToKey: x.idToKey,
	}
	if err := gob.NewEncoder(mf).Encode(meta); err != nil {
		mf.Close()
		os.Remove(tmpIndex)
		os.Remove(tmpMeta)
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := mf.Close(); err != nil {
		os.Remove(tmpIndex)
		os.Remove(tmpMeta)
		return fmt.Errorf("close metadata file: %w", err)
	}

	if err := os.Rename(tmpIndex, path); err != nil {
		os.Remove(tmpIndex)
		os.Remove(tmpMeta)
		return fmt.Errorf("rename index file: %w", err)
	}
	if err := os.Rename(tmpMeta, metaPath(path)); err != nil {
		os.Remove(tmpMeta)
		return fmt.Errorf("rename metadata file: %w", err)
	}
	return nil
}

// Load reads a saved index snapshot. The docstore supplies document payloads
// at search time and must cover the ids recorded in the snapshot.
func Load(path string, docs *docstore.Store) (*Index, error) {
	mf, err := os.Open(metaPath(path))
	if err != nil {
		return nil, fmt.Errorf("open metadata file: %w", err)
	}
	defer mf.Close()

	var meta snapshotMeta
	if err := gob.NewDecoder(mf).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	x := New(meta.Dims, docs)
	// coder/hnsw Import requires an io.ByteReader.
	if err := x.graph.Import(bufio.NewReader(f)); err != nil {
		return nil, fmt.Errorf("import graph: %w", err)
	}

	x.nextKey = meta.NextKey
	x.idToKey = meta.IDToKey
	x.keyToID = make(map[uint64]string, len(meta.IDToKey))
	for id, key := range meta.IDToKey {
		x.keyToID[key] = id
	}
	return x, nil
}
