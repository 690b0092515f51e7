// Package index owns the single persisted vector index: rebuilding it from
// chunks, reopening it, and ranking its entries against a query.
package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mwiater/jsonrag/internal/logging"
	"github.com/mwiater/jsonrag/internal/rag"
	"github.com/mwiater/jsonrag/internal/ragerr"
)

const (
	DefaultPath             = "./chroma_db"
	DefaultCollection       = "rag-chroma"
	DefaultTeardownAttempts = 5
	DefaultTeardownDelay    = time.Second

	stagingSuffix = ".building"
)

type Config struct {
	Path             string
	Collection       string
	Backend          string
	EmbeddingModel   string
	TeardownAttempts int
	TeardownDelay    time.Duration
}

// Store manages the canonical index location. Only one index lives there at a
// time; Rebuild replaces it wholesale.
type Store struct {
	cfg      Config
	embedder rag.Embedder
	backend  backend

	removeAll func(string) error
	sleep     func(time.Duration)

	mu      sync.Mutex
	state   State
	current *Meta
}

func New(cfg Config, embedder rag.Embedder) (*Store, error) {
	if embedder == nil {
		return nil, ragerr.Newf(ragerr.ErrInvalidConfig, "index", "embedding provider is required")
	}
	if strings.TrimSpace(cfg.Path) == "" {
		cfg.Path = DefaultPath
	}
	cfg.Path = filepath.Clean(cfg.Path)
	if strings.TrimSpace(cfg.Collection) == "" {
		cfg.Collection = DefaultCollection
	}
	if strings.ContainsAny(cfg.Collection, `/\`) {
		return nil, ragerr.Newf(ragerr.ErrInvalidConfig, "index", "collection name %q must not contain path separators", cfg.Collection)
	}
	if cfg.TeardownAttempts <= 0 {
		cfg.TeardownAttempts = DefaultTeardownAttempts
	}
	if cfg.TeardownDelay < 0 {
		cfg.TeardownDelay = DefaultTeardownDelay
	}
	b, err := newBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	cfg.Backend = b.Name()

	return &Store{
		cfg:       cfg,
		embedder:  embedder,
		backend:   b,
		removeAll: os.RemoveAll,
		sleep:     time.Sleep,
	}, nil
}

func (s *Store) Config() Config { return s.cfg }

// State reports Empty until a build succeeds in this process or Open finds
// one on disk.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) setState(state State, meta *Meta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.current = meta
}

// Rebuild embeds chunks and replaces whatever index sits at the canonical
// location. The new collection is written to a staging directory first, so
// any failure before the final rename leaves the previous index readable.
func (s *Store) Rebuild(ctx context.Context, chunks []string) (*Handle, error) {
	if len(chunks) == 0 {
		return nil, ragerr.Newf(ragerr.ErrStorePersist, "rebuild", "nothing to index")
	}

	start := time.Now()
	status := func(format string, args ...any) {
		elapsed := time.Since(start).Truncate(time.Millisecond)
		logging.LogEvent("[%s] %s", elapsed, fmt.Sprintf(format, args...))
	}

	s.mu.Lock()
	prevState, prevMeta := s.state, s.current
	s.state = StateBuilding
	s.mu.Unlock()
	restore := func() { s.setState(prevState, prevMeta) }

	status("[INDEX] Rebuilding %s in %s (backend: %s)", s.cfg.Collection, s.cfg.Path, s.cfg.Backend)
	status("[INDEX] Embedding %d chunks", len(chunks))
	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		restore()
		return nil, err
	}

	meta := Meta{
		BuildID:        uuid.NewString(),
		Collection:     s.cfg.Collection,
		EmbeddingModel: s.cfg.EmbeddingModel,
		Backend:        s.cfg.Backend,
		Dimension:      len(vectors[0]),
		Count:          len(chunks),
		BuiltAt:        time.Now().UTC(),
	}
	entries := make([]Entry, len(chunks))
	for i, text := range chunks {
		entries[i] = Entry{Position: i, Text: text, Embedding: vectors[i]}
	}

	staging := s.cfg.Path + stagingSuffix
	if err := s.writeStaging(staging, meta, entries); err != nil {
		_ = os.RemoveAll(staging)
		restore()
		return nil, ragerr.New(ragerr.ErrStorePersist, "write "+staging, err)
	}
	status("[INDEX] Staged build %s (%d entries, dimension %d)", meta.BuildID, meta.Count, meta.Dimension)

	res := s.teardown(s.cfg.Path)
	if !res.Removed {
		_ = os.RemoveAll(staging)
		restore()
		return nil, &ragerr.Error{
			Kind: ragerr.ErrStoreTeardown,
			Op:   fmt.Sprintf("remove %s after %d attempts", s.cfg.Path, res.Attempts),
			Err:  res.Err,
		}
	}

	if err := os.Rename(staging, s.cfg.Path); err != nil {
		_ = os.RemoveAll(staging)
		s.setState(StateEmpty, nil)
		return nil, ragerr.New(ragerr.ErrStorePersist, "activate build", err)
	}

	s.setState(StateReady, &meta)
	status("[INDEX] Index %s ready", meta.BuildID)
	return &Handle{store: s, meta: meta}, nil
}

func (s *Store) embedChunks(ctx context.Context, chunks []string) ([][]float64, error) {
	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrEmbeddingProvider, "embed chunks", err)
	}
	if len(vectors) != len(chunks) {
		return nil, ragerr.Newf(ragerr.ErrEmbeddingProvider, "embed chunks", "provider returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, ragerr.Newf(ragerr.ErrEmbeddingProvider, "embed chunks", "provider returned an empty vector")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, ragerr.Newf(ragerr.ErrEmbeddingProvider, "embed chunks", "vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}
	return vectors, nil
}

func (s *Store) writeStaging(dir string, meta Meta, entries []Entry) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear staging directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	return s.backend.Write(filepath.Join(dir, s.backend.FileName(meta.Collection)), meta, entries)
}

// teardownResult records how removal of the canonical directory went.
type teardownResult struct {
	Removed  bool
	Attempts int
	Err      error
}

// teardown removes path, retrying every failure up to TeardownAttempts times
// with TeardownDelay between attempts. A missing path counts as removed.
func (s *Store) teardown(path string) teardownResult {
	var res teardownResult
	for res.Attempts < s.cfg.TeardownAttempts {
		res.Attempts++
		res.Err = s.removeAll(path)
		if res.Err == nil {
			res.Removed = true
			return res
		}
		logging.LogEvent("[INDEX] Removing %s failed (attempt %d/%d): %v", path, res.Attempts, s.cfg.TeardownAttempts, res.Err)
		if res.Attempts < s.cfg.TeardownAttempts {
			s.sleep(s.cfg.TeardownDelay)
		}
	}
	return res
}

// Open returns a handle to the index already persisted at the canonical
// location.
func (s *Store) Open(ctx context.Context) (*Handle, error) {
	meta, _, err := s.load()
	if err != nil {
		return nil, err
	}
	s.setState(StateReady, &meta)
	return &Handle{store: s, meta: meta}, nil
}

// Entries returns the stored entries of the build h points at, in chunk order.
func (s *Store) Entries(h *Handle) ([]Entry, error) {
	_, entries, err := s.loadFor(h)
	return entries, err
}

// Search embeds query and returns the k most similar entries of h's build.
// k <= 0 means rag.DefaultTopK.
func (s *Store) Search(ctx context.Context, h *Handle, query string, k int) ([]Match, error) {
	_, entries, err := s.loadFor(h)
	if err != nil {
		return nil, err
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, ragerr.New(ragerr.ErrEmbeddingProvider, "embed query", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, ragerr.Newf(ragerr.ErrEmbeddingProvider, "embed query", "provider returned %d vectors for 1 query", len(vectors))
	}

	matches := scoreEntries(entries, vectors[0])
	if k <= 0 {
		k = rag.DefaultTopK
	}
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// Retrieve is Search reduced to chunk texts.
func (s *Store) Retrieve(ctx context.Context, h *Handle, query string, k int) ([]string, error) {
	matches, err := s.Search(ctx, h, query, k)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Entry.Text
	}
	return texts, nil
}

func (s *Store) loadFor(h *Handle) (Meta, []Entry, error) {
	if h == nil {
		return Meta{}, nil, ragerr.Newf(ragerr.ErrNotInitialized, "retrieve", "no index has been built")
	}
	meta, entries, err := s.load()
	if err != nil {
		return Meta{}, nil, err
	}
	if meta.BuildID != h.meta.BuildID {
		return Meta{}, nil, ragerr.Newf(ragerr.ErrNotInitialized, "retrieve", "index build %s has been replaced by %s", h.meta.BuildID, meta.BuildID)
	}
	return meta, entries, nil
}

// load reads the canonical collection. The file is opened per call and closed
// before returning so no lock is held between queries.
func (s *Store) load() (Meta, []Entry, error) {
	path := filepath.Join(s.cfg.Path, s.backend.FileName(s.cfg.Collection))
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Meta{}, nil, ragerr.Newf(ragerr.ErrNotInitialized, "open index", "no index at %s", path)
		}
		return Meta{}, nil, ragerr.New(ragerr.ErrStorePersist, "open index", err)
	}
	meta, entries, err := s.backend.Read(path, s.cfg.Collection)
	if err != nil {
		if errors.Is(err, errMissingCollection) {
			return Meta{}, nil, ragerr.New(ragerr.ErrNotInitialized, "open index", err)
		}
		return Meta{}, nil, ragerr.New(ragerr.ErrStorePersist, "read index", err)
	}
	return meta, entries, nil
}

// Handle refers to one specific build of the index. It goes stale as soon as
// a later Rebuild replaces that build.
type Handle struct {
	store *Store
	meta  Meta
}

func (h *Handle) Meta() Meta {
	if h == nil {
		return Meta{}
	}
	return h.meta
}

// Retrieve implements rag.Retriever.
func (h *Handle) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if h == nil || h.store == nil {
		return nil, ragerr.Newf(ragerr.ErrNotInitialized, "retrieve", "no index has been built")
	}
	return h.store.Retrieve(ctx, h, query, k)
}

func (h *Handle) Search(ctx context.Context, query string, k int) ([]Match, error) {
	if h == nil || h.store == nil {
		return nil, ragerr.Newf(ragerr.ErrNotInitialized, "retrieve", "no index has been built")
	}
	return h.store.Search(ctx, h, query, k)
}
