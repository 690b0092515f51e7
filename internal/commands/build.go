package jsonrag

import (
	"fmt"

	"github.com/mwiater/jsonrag/internal/appconfig"
	"github.com/mwiater/jsonrag/internal/fetch"
	"github.com/mwiater/jsonrag/internal/index"
	"github.com/mwiater/jsonrag/internal/providerfactory"
	"github.com/mwiater/jsonrag/internal/rag"
	"github.com/mwiater/jsonrag/internal/session"
)

// newStore builds the index store with the configured embedding provider.
func newStore(cfg *appconfig.Config) (*index.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is not loaded")
	}
	embedder, err := providerfactory.NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	return index.New(index.Config{
		Path:             cfg.Index.Path,
		Collection:       cfg.Index.Collection,
		Backend:          cfg.Index.Backend,
		EmbeddingModel:   cfg.Embedding.Model,
		TeardownAttempts: cfg.Index.TeardownAttempts,
		TeardownDelay:    cfg.Index.TeardownDelay(),
	}, embedder)
}

// newSession wires fetch, chunking, indexing and generation into one controller.
func newSession(cfg *appconfig.Config) (*session.Controller, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	splitter, err := rag.NewCharacterSplitter(cfg.Chunk.Size, cfg.Chunk.Overlap)
	if err != nil {
		return nil, err
	}
	generator, err := providerfactory.NewGenerator(cfg)
	if err != nil {
		return nil, err
	}
	return session.New(
		fetch.New(cfg.FetchTimeout()),
		splitter,
		store,
		rag.NewPipeline(generator, cfg.Index.TopK),
	), nil
}
