// Package session holds the state of one interactive run: the last ingested
// document, its text and chunks, and the handle of the index built from it.
package session

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mwiater/jsonrag/internal/flatten"
	"github.com/mwiater/jsonrag/internal/index"
	"github.com/mwiater/jsonrag/internal/logging"
	"github.com/mwiater/jsonrag/internal/rag"
	"github.com/mwiater/jsonrag/internal/ragerr"
)

type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) (flatten.Value, error)
}

type Indexer interface {
	Rebuild(ctx context.Context, chunks []string) (*index.Handle, error)
}

type Answerer interface {
	Answer(ctx context.Context, question string, retriever rag.Retriever) (string, error)
}

// State is what a successful ingest leaves behind. The zero value means
// nothing has been ingested.
type State struct {
	Endpoint   string
	Data       flatten.Value
	Records    int
	Text       string
	Chunks     []string
	Handle     *index.Handle
	IngestedAt time.Time
}

// Summary reports the outcome of an ingest to the presentation layer.
type Summary struct {
	Endpoint   string        `json:"endpoint"`
	Records    int           `json:"records"`
	Chunks     int           `json:"chunks"`
	Characters int           `json:"characters"`
	BuildID    string        `json:"buildId"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Controller runs ingest and ask one at a time.
type Controller struct {
	fetcher  Fetcher
	splitter rag.TextSplitter
	indexer  Indexer
	answerer Answerer

	mu    sync.Mutex
	state State
}

func New(fetcher Fetcher, splitter rag.TextSplitter, indexer Indexer, answerer Answerer) *Controller {
	return &Controller{
		fetcher:  fetcher,
		splitter: splitter,
		indexer:  indexer,
		answerer: answerer,
	}
}

// Ingest fetches endpoint, flattens and chunks the document, and rebuilds the
// index. The session state is replaced only if every step succeeds.
func (c *Controller) Ingest(ctx context.Context, endpoint string) (Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	logging.LogEvent("[SESSION] Ingesting %s", endpoint)

	data, err := c.fetcher.Fetch(ctx, endpoint)
	if err != nil {
		return Summary{}, c.fail("ingest", ragerr.New(ragerr.ErrFetch, "fetch", err))
	}
	if data.Kind() != flatten.KindObject {
		return Summary{}, c.fail("ingest", ragerr.Newf(ragerr.ErrFetch, "fetch", "endpoint returned a JSON %s, want an object", data.Kind()))
	}

	records, err := flatten.Flatten(data)
	if err != nil {
		return Summary{}, c.fail("ingest", err)
	}
	if len(records) == 0 {
		return Summary{}, c.fail("ingest", ragerr.Newf(ragerr.ErrInvalidShape, "flatten", "document has no values to index"))
	}
	text := flatten.Render(records)

	chunks, err := c.splitter.Split(text)
	if err != nil {
		return Summary{}, c.fail("ingest", ragerr.New(ragerr.ErrInvalidConfig, "chunk", err))
	}
	logging.LogEvent("[SESSION] %d records, %d chars, %d chunks", len(records), utf8.RuneCountInString(text), len(chunks))

	handle, err := c.indexer.Rebuild(ctx, chunks)
	if err != nil {
		return Summary{}, c.fail("ingest", err)
	}

	c.state = State{
		Endpoint:   endpoint,
		Data:       data,
		Records:    len(records),
		Text:       text,
		Chunks:     chunks,
		Handle:     handle,
		IngestedAt: time.Now(),
	}
	summary := Summary{
		Endpoint:   endpoint,
		Records:    len(records),
		Chunks:     len(chunks),
		Characters: utf8.RuneCountInString(text),
		BuildID:    handle.Meta().BuildID,
		Elapsed:    time.Since(start),
	}
	logging.LogEvent("[SESSION] Ingest complete in %s (build %s)", summary.Elapsed.Truncate(time.Millisecond), summary.BuildID)
	return summary, nil
}

// Ask answers question against the current index. Without a successful
// ingest it returns NoDataError and never reaches the generator.
func (c *Controller) Ask(ctx context.Context, question string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Handle == nil {
		return "", c.fail("ask", ragerr.Newf(ragerr.ErrNoData, "ask", "no data has been fetched yet; fetch an endpoint first"))
	}
	logging.LogEvent("[SESSION] Question: %s", question)
	answer, err := c.answerer.Answer(ctx, question, c.state.Handle)
	if err != nil {
		return "", c.fail("ask", err)
	}
	return answer, nil
}

// Snapshot returns a copy of the current state and whether an ingest has
// succeeded.
func (c *Controller) Snapshot() (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Chunks = append([]string(nil), c.state.Chunks...)
	return s, s.Handle != nil
}

func (c *Controller) fail(op string, err error) error {
	logging.LogError(op, err)
	return err
}
