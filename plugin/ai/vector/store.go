// Package vector provides a flat inner-product similarity index persisted
// as paired on-disk artifacts: a binary index file and a row-aligned JSON
// metadata file.
package vector

import (
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"

	enginerr "github.com/lectern/lectern/internal/errors"
)

const (
	// IndexFileName is the binary index artifact inside a store directory.
	IndexFileName = "index.bin"
	// MetaFileName is the JSON metadata artifact inside a store directory.
	MetaFileName = "meta.json"
	// lockFileName guards against concurrent writers on the same directory.
	lockFileName = ".lock"

	indexMagic   = "LCVX"
	indexVersion = 1
)

// Chunk is the metadata stored for one vector row.
type Chunk struct {
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
	CharCount  int    `json:"char_count"`
	Text       string `json:"text"`
}

// Result is a similarity search hit.
type Result struct {
	Score float32
	Chunk Chunk
}

// Store is a flat similarity index paired 1:1 with an ordered metadata
// list. After every successful operation the index row count equals the
// metadata length. The store never deduplicates rows.
type Store struct {
	mu       sync.RWMutex
	dir      string
	dim      int
	vectors  [][]float32
	metadata []Chunk
}

// Open loads the store from dir. The store is only loaded when both
// artifacts exist and agree; otherwise it starts empty. Corrupt artifacts
// are treated as an empty store, not a fatal error.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create store directory %s", dir)
	}
	s := &Store{dir: dir}
	s.load()
	return s, nil
}

// Add re-normalizes the given vectors, appends them with their metadata,
// and persists both artifacts. A no-op on empty input. The vector and
// metadata counts must match.
func (s *Store) Add(vectors [][]float32, metadata []Chunk) error {
	if len(vectors) != len(metadata) {
		return enginerr.InvalidArgument("vectors and metadata length mismatch")
	}
	if len(vectors) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dim == 0 {
		s.dim = len(vectors[0])
	}
	for _, v := range vectors {
		if len(v) != s.dim {
			return enginerr.InvalidArgument("vector dimension mismatch")
		}
	}

	unlock, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer unlock()

	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		normalized[i] = normalizeL2(v)
	}

	s.vectors = append(s.vectors, normalized...)
	s.metadata = append(s.metadata, metadata...)

	if err := s.persist(); err != nil {
		return enginerr.StoreCorrupted("persist store artifacts", err)
	}
	return nil
}

// Search returns up to k results ordered by descending inner-product
// similarity. An empty store returns nil; k is clamped to the available
// rows.
func (s *Store) Search(query []float32, k int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != s.dim {
		return nil, enginerr.InvalidArgument("query vector dimension mismatch")
	}

	q := normalizeL2(query)
	scores := make([]float32, len(s.vectors))
	for i, v := range s.vectors {
		scores[i] = dot(v, q)
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	results := make([]Result, 0, k)
	for _, idx := range order[:k] {
		results = append(results, Result{Score: scores[idx], Chunk: s.metadata[idx]})
	}
	return results, nil
}

// Count returns the number of stored rows.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.metadata)
}

// Dimensions returns the vector dimension, or 0 for an empty store.
func (s *Store) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, IndexFileName)
}

func (s *Store) metaPath() string {
	return filepath.Join(s.dir, MetaFileName)
}

// load initializes in-memory state from the paired artifacts. Any missing
// or inconsistent artifact leaves the store empty; it is never partially
// loaded.
func (s *Store) load() {
	vectors, dim, err := readIndex(s.indexPath())
	if err != nil {
		if !os.IsNotExist(errors.Cause(err)) {
			slog.Warn("vector index unreadable, starting empty", "dir", s.dir, "error", err)
		}
		return
	}

	raw, err := os.ReadFile(s.metaPath())
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("store metadata unreadable, starting empty", "dir", s.dir, "error", err)
		}
		return
	}
	var metadata []Chunk
	if err := json.Unmarshal(raw, &metadata); err != nil {
		slog.Warn("store metadata malformed, starting empty", "dir", s.dir, "error", err)
		return
	}

	if len(metadata) != len(vectors) {
		slog.Warn("store artifacts row count mismatch, starting empty",
			"dir", s.dir, "index_rows", len(vectors), "metadata_rows", len(metadata))
		return
	}

	s.dim = dim
	s.vectors = vectors
	s.metadata = metadata
}

// persist writes both artifacts. The metadata is written first so that a
// crash mid-write is detected as a row count mismatch on the next load.
func (s *Store) persist() error {
	raw, err := json.MarshalIndent(s.metadata, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal metadata")
	}
	if err := os.WriteFile(s.metaPath(), raw, 0o644); err != nil {
		return errors.Wrap(err, "write metadata")
	}
	if err := writeIndex(s.indexPath(), s.vectors, s.dim); err != nil {
		return errors.Wrap(err, "write index")
	}
	return nil
}

// acquireLock takes the single-writer lock for the store directory.
func (s *Store) acquireLock() (func(), error) {
	path := filepath.Join(s.dir, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, enginerr.StoreCorrupted("store directory is locked by another writer", err)
		}
		return nil, errors.Wrap(err, "acquire store lock")
	}
	_ = f.Close()
	return func() { _ = os.Remove(path) }, nil
}

func writeIndex(path string, vectors [][]float32, dim int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write([]byte(indexMagic)); err != nil {
		return err
	}
	header := []uint32{indexVersion, uint32(dim), uint32(len(vectors))}
	for _, h := range header {
		if err := binary.Write(f, binary.LittleEndian, h); err != nil {
			return err
		}
	}
	for _, v := range vectors {
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func readIndex(path string) ([][]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	defer f.Close()

	magic := make([]byte, 4)
	if _, err := f.Read(magic); err != nil || string(magic) != indexMagic {
		return nil, 0, errors.New("bad index magic")
	}
	var version, dim, rows uint32
	for _, dst := range []*uint32{&version, &dim, &rows} {
		if err := binary.Read(f, binary.LittleEndian, dst); err != nil {
			return nil, 0, errors.Wrap(err, "read index header")
		}
	}
	if version != indexVersion {
		return nil, 0, errors.Errorf("unsupported index version %d", version)
	}

	vectors := make([][]float32, rows)
	for i := range vectors {
		v := make([]float32, dim)
		if err := binary.Read(f, binary.LittleEndian, v); err != nil {
			return nil, 0, errors.Wrap(err, "read index row")
		}
		vectors[i] = v
	}
	return vectors, int(dim), nil
}

func normalizeL2(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
