package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/jsonrag/internal/fetch"
	"github.com/mwiater/jsonrag/internal/index"
	"github.com/mwiater/jsonrag/internal/rag"
	"github.com/mwiater/jsonrag/internal/ragerr"
	"github.com/mwiater/jsonrag/internal/session"
)

type byteEmbedder struct{}

func (byteEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, 4)
		for _, r := range text {
			vec[int(r)%4]++
		}
		out[i] = vec
	}
	return out, nil
}

type fixedGenerator struct{ answer string }

func (g fixedGenerator) Generate(context.Context, string) (string, error) { return g.answer, nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := index.New(index.Config{Path: filepath.Join(t.TempDir(), "chroma_db")}, byteEmbedder{})
	require.NoError(t, err)
	splitter, err := rag.NewCharacterSplitter(rag.DefaultChunkSize, rag.DefaultChunkOverlap)
	require.NoError(t, err)
	ctrl := session.New(fetch.New(time.Second), splitter, store, rag.NewPipeline(fixedGenerator{answer: "The name is X."}, 0))
	return New(ctrl, Config{AllowedOrigins: []string{"*"}, Version: "test"})
}

func do(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return rr, out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rr, body := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func TestAskBeforeFetchIsConflict(t *testing.T) {
	srv := newTestServer(t)
	rr, body := do(t, srv, http.MethodPost, "/api/ask", `{"question":"what?"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "NoDataError", body["kind"])
}

func TestFetchThenAskThenStatus(t *testing.T) {
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"X","tags":["a","b"]}`))
	}))
	defer endpoint.Close()

	srv := newTestServer(t)

	rr, body := do(t, srv, http.MethodPost, "/api/fetch", fmt.Sprintf(`{"endpoint":%q}`, endpoint.URL))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	summary := body["summary"].(map[string]any)
	assert.EqualValues(t, 3, summary["records"])
	assert.EqualValues(t, 1, summary["chunks"])
	assert.Equal(t, map[string]any{"name": "X", "tags": []any{"a", "b"}}, body["data"])

	rr, body = do(t, srv, http.MethodPost, "/api/ask", `{"question":"What is the name?"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "The name is X.", body["answer"])

	rr, body = do(t, srv, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rr.Code)
	status := body["status"].(map[string]any)
	assert.Equal(t, true, status["ready"])
	assert.Equal(t, endpoint.URL, status["endpoint"])
	assert.NotEmpty(t, status["buildId"])
}

func TestStatusBeforeFetch(t *testing.T) {
	srv := newTestServer(t)
	_, body := do(t, srv, http.MethodGet, "/api/status", "")
	status := body["status"].(map[string]any)
	assert.Equal(t, false, status["ready"])
}

func TestFetchErrors(t *testing.T) {
	srv := newTestServer(t)

	rr, _ := do(t, srv, http.MethodPost, "/api/fetch", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, body := do(t, srv, http.MethodPost, "/api/fetch", `{"endpoint":"ftp://nowhere"}`)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "FetchError", body["kind"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/fetch", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		ragerr.ErrNoData:            http.StatusConflict,
		ragerr.ErrNotInitialized:    http.StatusConflict,
		ragerr.ErrInvalidShape:      http.StatusUnprocessableEntity,
		ragerr.ErrInvalidConfig:     http.StatusBadRequest,
		ragerr.ErrFetch:             http.StatusBadGateway,
		ragerr.ErrEmbeddingProvider: http.StatusBadGateway,
		ragerr.ErrGeneration:        http.StatusBadGateway,
		ragerr.ErrStoreTeardown:     http.StatusInternalServerError,
		ragerr.ErrStorePersist:      http.StatusInternalServerError,
		errors.New("boom"):          http.StatusInternalServerError,
	}
	for kind, want := range cases {
		err := ragerr.New(kind, "op", errors.New("cause"))
		assert.Equal(t, want, statusFor(err), kind.Error())
	}
}

func TestMetricsCountOutcomes(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/ask", `{"question":"what?"}`)
	do(t, srv, http.MethodPost, "/api/fetch", `{"endpoint":"ftp://nowhere"}`)

	rr, body := do(t, srv, http.MethodGet, "/api/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	ops := body["operations"].([]any)
	require.Len(t, ops, 2)

	ask := ops[0].(map[string]any)
	assert.Equal(t, "ask", ask["operation"])
	assert.EqualValues(t, 1, ask["failures"])
	assert.Equal(t, map[string]any{"NoDataError": float64(1)}, ask["failure_kinds"])

	ingest := ops[1].(map[string]any)
	assert.Equal(t, "ingest", ingest["operation"])
	assert.Equal(t, map[string]any{"FetchError": float64(1)}, ingest["failure_kinds"])
}
