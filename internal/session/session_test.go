package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/jsonrag/internal/fetch"
	"github.com/mwiater/jsonrag/internal/flatten"
	"github.com/mwiater/jsonrag/internal/index"
	"github.com/mwiater/jsonrag/internal/rag"
	"github.com/mwiater/jsonrag/internal/ragerr"
)

type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, 8)
		for _, r := range text {
			vec[int(r)%8]++
		}
		out[i] = vec
	}
	return out, nil
}

type recordingGenerator struct {
	prompts []string
	answer  string
}

func (g *recordingGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.answer, nil
}

type staticFetcher struct {
	value flatten.Value
	err   error
}

func (f staticFetcher) Fetch(context.Context, string) (flatten.Value, error) {
	return f.value, f.err
}

type countingIndexer struct {
	calls int
	err   error
}

func (i *countingIndexer) Rebuild(context.Context, []string) (*index.Handle, error) {
	i.calls++
	return nil, i.err
}

func newController(t *testing.T, fetcher Fetcher, gen *recordingGenerator) (*Controller, *index.Store) {
	t.Helper()
	store, err := index.New(index.Config{Path: filepath.Join(t.TempDir(), "chroma_db")}, hashEmbedder{})
	require.NoError(t, err)
	splitter, err := rag.NewCharacterSplitter(rag.DefaultChunkSize, rag.DefaultChunkOverlap)
	require.NoError(t, err)
	return New(fetcher, splitter, store, rag.NewPipeline(gen, 0)), store
}

func TestEndToEndIngestThenAsk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"X","tags":["a","b"]}`))
	}))
	defer server.Close()

	gen := &recordingGenerator{answer: "The name is X."}
	ctrl, store := newController(t, fetch.New(time.Second), gen)
	ctx := context.Background()

	summary, err := ctrl.Ingest(ctx, server.URL)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Records)
	assert.Equal(t, 1, summary.Chunks)

	state, ok := ctrl.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "name: X\ntags[0]: a\ntags[1]: b", state.Text)
	assert.Equal(t, []string{"name: X\ntags[0]: a\ntags[1]: b"}, state.Chunks)

	entries, err := store.Entries(state.Handle)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	answer, err := ctrl.Ask(ctx, "What is the name?")
	require.NoError(t, err)
	assert.Equal(t, "The name is X.", answer)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "name: X\ntags[0]: a\ntags[1]: b")
	assert.True(t, strings.HasSuffix(gen.prompts[0], "Question: What is the name?\n"))
}

func TestAskBeforeIngestIsNoData(t *testing.T) {
	gen := &recordingGenerator{answer: "unused"}
	ctrl, _ := newController(t, staticFetcher{}, gen)

	_, err := ctrl.Ask(context.Background(), "anything?")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ragerr.ErrNoData))
	assert.Empty(t, gen.prompts)
}

func TestFailedIngestKeepsPreviousState(t *testing.T) {
	gen := &recordingGenerator{answer: "ok"}
	fetcher := &switchableFetcher{value: flatten.MustParse(`{"first":true}`)}
	ctrl, _ := newController(t, fetcher, gen)
	ctx := context.Background()

	_, err := ctrl.Ingest(ctx, "http://first")
	require.NoError(t, err)
	before, _ := ctrl.Snapshot()

	fetcher.err = ragerr.Newf(ragerr.ErrFetch, "GET", "timeout")
	_, err = ctrl.Ingest(ctx, "http://second")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ragerr.ErrFetch))

	after, ok := ctrl.Snapshot()
	require.True(t, ok)
	assert.Equal(t, before.Endpoint, after.Endpoint)
	assert.Equal(t, before.Text, after.Text)
	assert.Equal(t, before.Handle.Meta().BuildID, after.Handle.Meta().BuildID)

	_, err = ctrl.Ask(ctx, "first?")
	assert.NoError(t, err)
}

type switchableFetcher struct {
	value flatten.Value
	err   error
}

func (f *switchableFetcher) Fetch(context.Context, string) (flatten.Value, error) {
	return f.value, f.err
}

func TestIngestRejectsNonObjectAndEmptyDocuments(t *testing.T) {
	indexer := &countingIndexer{}
	splitter, err := rag.NewCharacterSplitter(100, 10)
	require.NoError(t, err)

	ctrl := New(staticFetcher{value: flatten.MustParse(`[1,2]`)}, splitter, indexer, rag.NewPipeline(&recordingGenerator{}, 0))
	_, err = ctrl.Ingest(context.Background(), "http://x")
	assert.True(t, errors.Is(err, ragerr.ErrFetch))

	ctrl = New(staticFetcher{value: flatten.MustParse(`{"a":{},"b":[]}`)}, splitter, indexer, rag.NewPipeline(&recordingGenerator{}, 0))
	_, err = ctrl.Ingest(context.Background(), "http://x")
	assert.True(t, errors.Is(err, ragerr.ErrInvalidShape))

	assert.Zero(t, indexer.calls)
	_, ok := ctrl.Snapshot()
	assert.False(t, ok)
}

func TestIngestPropagatesIndexFailure(t *testing.T) {
	indexer := &countingIndexer{err: ragerr.Newf(ragerr.ErrStoreTeardown, "remove", "locked")}
	splitter, err := rag.NewCharacterSplitter(100, 10)
	require.NoError(t, err)

	ctrl := New(staticFetcher{value: flatten.MustParse(`{"a":1}`)}, splitter, indexer, rag.NewPipeline(&recordingGenerator{}, 0))
	_, err = ctrl.Ingest(context.Background(), "http://x")
	assert.True(t, errors.Is(err, ragerr.ErrStoreTeardown))
	assert.Equal(t, 1, indexer.calls)

	_, ok := ctrl.Snapshot()
	assert.False(t, ok)
}

func TestReingestReplacesIndex(t *testing.T) {
	gen := &recordingGenerator{answer: "ok"}
	fetcher := &switchableFetcher{value: flatten.MustParse(`{"color":"red"}`)}
	ctrl, store := newController(t, fetcher, gen)
	ctx := context.Background()

	_, err := ctrl.Ingest(ctx, "http://one")
	require.NoError(t, err)
	fetcher.value = flatten.MustParse(`{"shape":"square"}`)
	_, err = ctrl.Ingest(ctx, "http://two")
	require.NoError(t, err)

	state, _ := ctrl.Snapshot()
	entries, err := store.Entries(state.Handle)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "shape: square", entries[0].Text)

	_, err = ctrl.Ask(ctx, "what color?")
	require.NoError(t, err)
	assert.NotContains(t, gen.prompts[len(gen.prompts)-1], "red")
}
