package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/jsonrag/internal/ragerr"
)

// letterEmbedder maps text to letter frequencies so similar strings score high.
type letterEmbedder struct {
	calls int
	err   error
	dims  []int // per-call override of vector length, for mismatch tests
}

func (e *letterEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		dim := 26
		if i < len(e.dims) {
			dim = e.dims[i]
		}
		vec := make([]float64, dim)
		for _, r := range strings.ToLower(text) {
			if r >= 'a' && r <= 'z' && int(r-'a') < dim {
				vec[r-'a']++
			}
		}
		out[i] = vec
	}
	return out, nil
}

func newTestStore(t *testing.T, backendName string, embedder *letterEmbedder) *Store {
	t.Helper()
	store, err := New(Config{
		Path:          filepath.Join(t.TempDir(), "chroma_db"),
		Backend:       backendName,
		TeardownDelay: 0,
	}, embedder)
	require.NoError(t, err)
	store.sleep = func(time.Duration) {}
	return store
}

func TestRebuildAndRetrieveBothBackends(t *testing.T) {
	for _, name := range []string{BackendBolt, BackendSQLite} {
		t.Run(name, func(t *testing.T) {
			store := newTestStore(t, name, &letterEmbedder{})
			assert.Equal(t, StateEmpty, store.State())

			h, err := store.Rebuild(context.Background(), []string{"aaaa", "zzzz", "mmmm"})
			require.NoError(t, err)
			assert.Equal(t, StateReady, store.State())
			assert.Equal(t, 3, h.Meta().Count)
			assert.Equal(t, 26, h.Meta().Dimension)
			assert.Equal(t, DefaultCollection, h.Meta().Collection)
			assert.Equal(t, name, h.Meta().Backend)
			assert.NotEmpty(t, h.Meta().BuildID)

			_, err = os.Stat(filepath.Join(store.Config().Path, store.backend.FileName(DefaultCollection)))
			require.NoError(t, err)

			got, err := h.Retrieve(context.Background(), "zz", 2)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "zzzz", got[0])

			entries, err := store.Entries(h)
			require.NoError(t, err)
			require.Len(t, entries, 3)
			assert.Equal(t, "aaaa", entries[0].Text)
			assert.Equal(t, 2, entries[2].Position)
		})
	}
}

func TestRetrieveDefaultsToTopFour(t *testing.T) {
	store := newTestStore(t, BackendBolt, &letterEmbedder{})
	h, err := store.Rebuild(context.Background(), []string{"a", "b", "c", "d", "e", "f"})
	require.NoError(t, err)

	got, err := h.Retrieve(context.Background(), "a", 0)
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, "a", got[0])
}

func TestRebuildReplacesPreviousIndex(t *testing.T) {
	store := newTestStore(t, BackendBolt, &letterEmbedder{})
	ctx := context.Background()

	first, err := store.Rebuild(ctx, []string{"old alpha", "old beta"})
	require.NoError(t, err)
	second, err := store.Rebuild(ctx, []string{"new gamma"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Meta().BuildID, second.Meta().BuildID)

	got, err := second.Retrieve(ctx, "alpha", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"new gamma"}, got)

	_, err = first.Retrieve(ctx, "alpha", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ragerr.ErrNotInitialized))

	_, err = os.Stat(store.Config().Path + stagingSuffix)
	assert.True(t, os.IsNotExist(err), "staging directory should be gone")
}

func TestRebuildEmbeddingFailureLeavesIndexUntouched(t *testing.T) {
	embedder := &letterEmbedder{}
	store := newTestStore(t, BackendBolt, embedder)
	ctx := context.Background()

	h, err := store.Rebuild(ctx, []string{"keep me"})
	require.NoError(t, err)

	embedder.err = errors.New("connection refused")
	_, err = store.Rebuild(ctx, []string{"replacement"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ragerr.ErrEmbeddingProvider))

	embedder.err = nil
	got, err := h.Retrieve(ctx, "keep", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep me"}, got)
	assert.Equal(t, StateReady, store.State())
}

func TestRebuildRejectsMismatchedDimensions(t *testing.T) {
	store := newTestStore(t, BackendBolt, &letterEmbedder{dims: []int{26, 3}})

	_, err := store.Rebuild(context.Background(), []string{"one", "two"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ragerr.ErrEmbeddingProvider))
	assert.Equal(t, StateEmpty, store.State())
}

func TestRebuildWithNoChunksFails(t *testing.T) {
	embedder := &letterEmbedder{}
	store := newTestStore(t, BackendBolt, embedder)

	_, err := store.Rebuild(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ragerr.ErrStorePersist))
	assert.Zero(t, embedder.calls)
}

func TestTeardownRetryExhaustionKeepsPriorIndex(t *testing.T) {
	store := newTestStore(t, BackendBolt, &letterEmbedder{})
	ctx := context.Background()

	h, err := store.Rebuild(ctx, []string{"prior chunk"})
	require.NoError(t, err)

	locked := errors.New("permission denied: file in use")
	var attempts, sleeps int
	store.removeAll = func(string) error {
		attempts++
		return locked
	}
	store.sleep = func(d time.Duration) { sleeps++ }

	_, err = store.Rebuild(ctx, []string{"next chunk"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ragerr.ErrStoreTeardown))
	assert.True(t, errors.Is(err, locked))
	assert.Equal(t, DefaultTeardownAttempts, attempts)
	assert.Equal(t, DefaultTeardownAttempts-1, sleeps)

	got, err := h.Retrieve(ctx, "prior", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"prior chunk"}, got)

	_, err = os.Stat(store.Config().Path + stagingSuffix)
	assert.True(t, os.IsNotExist(err), "staging directory should be removed after a failed teardown")
}

func TestTeardownSucceedsAfterTransientFailures(t *testing.T) {
	store := newTestStore(t, BackendBolt, &letterEmbedder{})
	ctx := context.Background()
	_, err := store.Rebuild(ctx, []string{"first"})
	require.NoError(t, err)

	failures := 2
	store.removeAll = func(path string) error {
		if failures > 0 {
			failures--
			return errors.New("busy")
		}
		return os.RemoveAll(path)
	}

	h, err := store.Rebuild(ctx, []string{"second"})
	require.NoError(t, err)
	got, err := h.Retrieve(ctx, "second", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, got)
}

func TestTeardownResultTracksAttempts(t *testing.T) {
	store := newTestStore(t, BackendBolt, &letterEmbedder{})
	store.cfg.TeardownAttempts = 3
	store.removeAll = func(string) error { return errors.New("nope") }

	res := store.teardown("/does/not/matter")
	assert.False(t, res.Removed)
	assert.Equal(t, 3, res.Attempts)
	assert.EqualError(t, res.Err, "nope")
}

func TestOpenPersistedIndex(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, BackendSQLite, &letterEmbedder{})

	_, err := store.Open(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ragerr.ErrNotInitialized))

	built, err := store.Rebuild(ctx, []string{"persisted"})
	require.NoError(t, err)

	reopened, err := New(store.Config(), &letterEmbedder{})
	require.NoError(t, err)
	h, err := reopened.Open(ctx)
	require.NoError(t, err)
	assert.Equal(t, built.Meta().BuildID, h.Meta().BuildID)
	assert.Equal(t, StateReady, reopened.State())
}

func TestNilHandleIsNotInitialized(t *testing.T) {
	var h *Handle
	_, err := h.Retrieve(context.Background(), "q", 1)
	assert.True(t, errors.Is(err, ragerr.ErrNotInitialized))
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Backend: "chroma"}, &letterEmbedder{})
	assert.True(t, errors.Is(err, ragerr.ErrInvalidConfig))

	_, err = New(Config{}, nil)
	assert.True(t, errors.Is(err, ragerr.ErrInvalidConfig))

	_, err = New(Config{Collection: "a/b"}, &letterEmbedder{})
	assert.True(t, errors.Is(err, ragerr.ErrInvalidConfig))
}

func TestScoreEntriesOrdersBySimilarity(t *testing.T) {
	entries := []Entry{
		{Position: 0, Text: "a", Embedding: []float64{1, 0}},
		{Position: 1, Text: "b", Embedding: []float64{0, 1}},
		{Position: 2, Text: "c", Embedding: []float64{1, 1}},
		{Position: 3, Text: "short", Embedding: []float64{1}},
	}

	matches := scoreEntries(entries, []float64{1, 0})
	require.Len(t, matches, 3)
	assert.Equal(t, "a", matches[0].Entry.Text)
	assert.Equal(t, "c", matches[1].Entry.Text)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}
