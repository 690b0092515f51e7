// Package ollama talks to an Ollama server over its HTTP API for embeddings
// and single-shot completions.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mwiater/jsonrag/internal/logging"
)

const (
	DefaultHost           = "http://localhost:11434"
	DefaultEmbeddingModel = "nomic-embed-text"
	DefaultGenerateModel  = "mistral"
)

// Config selects the server and model for one Provider.
type Config struct {
	Host    string
	Model   string
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing requests; zero disables throttling.
	RequestsPerSecond float64
}

// Provider implements rag.Embedder and rag.Generator against one model.
type Provider struct {
	client  *http.Client
	host    string
	model   string
	limiter *rate.Limiter
}

func New(cfg Config) *Provider {
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		host = DefaultHost
	}
	p := &Provider{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		host:  host,
		model: strings.TrimSpace(cfg.Model),
	}
	if cfg.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return p
}

func (p *Provider) Model() string { return p.model }
func (p *Provider) Host() string  { return p.host }

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	TotalDuration   int64  `json:"total_duration"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Embed requests one embedding per text from /api/embeddings, in order.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if p.model == "" {
		return nil, fmt.Errorf("ollama: embedding model is empty")
	}
	vectors := make([][]float64, 0, len(texts))
	for i, text := range texts {
		start := time.Now()
		vector, err := p.embedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d/%d: %w", i+1, len(texts), err)
		}
		logging.LogEvent("[OLLAMA] Embedded text %d/%d (%d chars) in %s", i+1, len(texts), len(text), time.Since(start).Truncate(time.Millisecond))
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

func (p *Provider) embedOne(ctx context.Context, text string) ([]float64, error) {
	payload := map[string]any{
		"model":  p.model,
		"prompt": text,
	}
	raw, err := p.post(ctx, "/api/embeddings", payload, embeddingSchema)
	if err != nil {
		return nil, err
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("embedding response returned empty vector")
	}
	return parsed.Embedding, nil
}

// Generate sends prompt to /api/generate with streaming off and returns the
// model's response text as received.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.model == "" {
		return "", fmt.Errorf("ollama: generation model is empty")
	}
	payload := map[string]any{
		"model":  p.model,
		"prompt": prompt,
		"stream": false,
	}
	raw, err := p.post(ctx, "/api/generate", payload, generateSchema)
	if err != nil {
		return "", err
	}

	var result generateResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("parse generate response: %w", err)
	}
	logging.LogEvent("[OLLAMA] %s generated %d tokens (prompt %d tokens) in %s", p.model, result.EvalCount, result.PromptEvalCount, time.Duration(result.TotalDuration).Truncate(time.Millisecond))
	return result.Response, nil
}

// post sends a JSON request and returns the body of a 200 response that
// satisfies schema.
func (p *Provider) post(ctx context.Context, path string, payload any, schema responseSchema) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", path, err)
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("ollama: rate limit wait: %w", err)
		}
	}

	logging.LogRequest(logging.DirToLLM, p.host, p.model, body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: %s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	logging.LogRequest(logging.DirFromLLM, p.host, p.model, raw)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama: %s returned %s: %s", path, resp.Status, errorDetail(raw))
	}
	if err := schema.validate(raw); err != nil {
		return nil, fmt.Errorf("ollama: %s: %w", path, err)
	}
	return raw, nil
}

// errorDetail prefers Ollama's {"error": "..."} message over the raw body.
func errorDetail(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && strings.TrimSpace(body.Error) != "" {
		return strings.TrimSpace(body.Error)
	}
	return strings.TrimSpace(string(raw))
}
