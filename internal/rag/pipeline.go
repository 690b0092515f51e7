package rag

import (
	"context"
	"time"

	"github.com/mwiater/jsonrag/internal/logging"
	"github.com/mwiater/jsonrag/internal/ragerr"
)

// DefaultTopK is how many chunks are retrieved when no count is configured.
const DefaultTopK = 4

// Pipeline answers questions against whichever index the caller hands it.
// It holds no index of its own and never writes to one.
type Pipeline struct {
	generator Generator
	topK      int
}

func NewPipeline(generator Generator, topK int) *Pipeline {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Pipeline{generator: generator, topK: topK}
}

// Answer retrieves context for question, fills the prompt template and returns
// the generator's output unchanged.
func (p *Pipeline) Answer(ctx context.Context, question string, retriever Retriever) (string, error) {
	if retriever == nil {
		return "", ragerr.Newf(ragerr.ErrNotInitialized, "answer", "no index has been built")
	}
	if p.generator == nil {
		return "", ragerr.Newf(ragerr.ErrInvalidConfig, "answer", "no generation provider configured")
	}

	start := time.Now()
	chunks, err := retriever.Retrieve(ctx, question, p.topK)
	if err != nil {
		return "", ragerr.New(ragerr.ErrEmbeddingProvider, "retrieve", err)
	}
	logging.LogEvent("[RAG] Retrieved %d chunks in %s", len(chunks), time.Since(start).Truncate(time.Millisecond))

	prompt := FormatPrompt(FormatContext(chunks), question)

	genStart := time.Now()
	answer, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return "", &ragerr.Error{Kind: ragerr.ErrGeneration, Op: "generate", Err: err}
	}
	logging.LogEvent("[RAG] Generated %d chars in %s", len(answer), time.Since(genStart).Truncate(time.Millisecond))
	return answer, nil
}
