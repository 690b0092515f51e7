// Package langchain adapts langchaingo's Ollama client to the embedding and
// generation interfaces used by the pipeline.
package langchain

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"

	"github.com/mwiater/jsonrag/internal/logging"
)

type Config struct {
	Host    string
	Model   string
	Timeout time.Duration
	// BatchSize bounds how many texts go into one embedding call; zero keeps
	// the langchaingo default.
	BatchSize int
}

func newLLM(cfg Config) (*lcollama.LLM, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("langchaingo: model is empty")
	}
	opts := []lcollama.Option{
		lcollama.WithModel(model),
		lcollama.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/"); host != "" {
		opts = append(opts, lcollama.WithServerURL(host))
	}
	llm, err := lcollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("langchaingo: create ollama client: %w", err)
	}
	return llm, nil
}

// Embedder implements rag.Embedder with langchaingo's embeddings package.
type Embedder struct {
	host     string
	model    string
	embedder *embeddings.EmbedderImpl
}

func NewEmbedder(cfg Config) (*Embedder, error) {
	llm, err := newLLM(cfg)
	if err != nil {
		return nil, err
	}
	opts := []embeddings.Option{embeddings.WithStripNewLines(false)}
	if cfg.BatchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(cfg.BatchSize))
	}
	e, err := embeddings.NewEmbedder(llm, opts...)
	if err != nil {
		return nil, fmt.Errorf("langchaingo: create embedder: %w", err)
	}
	return &Embedder{host: cfg.Host, model: cfg.Model, embedder: e}, nil
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	logging.LogRequest(logging.DirToLLM, e.host, e.model, fmt.Sprintf("embed %d texts", len(texts)))
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("langchaingo: embed documents: %w", err)
	}
	logging.LogRequest(logging.DirFromLLM, e.host, e.model, fmt.Sprintf("%d vectors", len(vectors)))
	return toFloat64(vectors), nil
}

func toFloat64(vectors [][]float32) [][]float64 {
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		row := make([]float64, len(v))
		for j, x := range v {
			row[j] = float64(x)
		}
		out[i] = row
	}
	return out
}

// Generator implements rag.Generator with a single-prompt langchaingo call.
type Generator struct {
	host  string
	model string
	llm   llms.Model
}

func NewGenerator(cfg Config) (*Generator, error) {
	llm, err := newLLM(cfg)
	if err != nil {
		return nil, err
	}
	return &Generator{host: cfg.Host, model: cfg.Model, llm: llm}, nil
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	logging.LogRequest(logging.DirToLLM, g.host, g.model, prompt)
	out, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("langchaingo: generate: %w", err)
	}
	logging.LogRequest(logging.DirFromLLM, g.host, g.model, out)
	return out, nil
}
