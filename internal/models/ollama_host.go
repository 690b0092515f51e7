// internal/models/ollama_host.go
package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaHost lists and pulls models on one Ollama server.
type OllamaHost struct {
	URL            string
	client         *http.Client
	requestTimeout time.Duration
}

func NewOllamaHost(url string, timeout time.Duration) *OllamaHost {
	return &OllamaHost{
		URL:            strings.TrimRight(url, "/"),
		client:         &http.Client{},
		requestTimeout: timeout,
	}
}

// httpClient returns the explicitly configured HTTP client or the shared default client.
func (h *OllamaHost) httpClient() *http.Client {
	if h.client != nil {
		return h.client
	}
	return http.DefaultClient
}

// doRequest executes an HTTP request against the Ollama API with context cancellation support.
func (h *OllamaHost) doRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, context.CancelFunc, error) {
	cancel := context.CancelFunc(func() {})
	if h.requestTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.URL+path, body)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.httpClient().Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return resp, cancel, nil
}

// ListRawModels returns the model tags installed on the host.
func (h *OllamaHost) ListRawModels(ctx context.Context) ([]string, error) {
	resp, cancel, err := h.doRequest(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("could not list models: Ollama is not accessible on %s", h.URL)
	}
	defer cancel()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body from %s: %v", h.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not list models: %s", strings.TrimSpace(string(body)))
	}

	var tagsResp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &tagsResp); err != nil {
		return nil, fmt.Errorf("error parsing models from %s: %v", h.URL, err)
	}

	models := make([]string, 0, len(tagsResp.Models))
	for _, model := range tagsResp.Models {
		models = append(models, model.Name)
	}
	return models, nil
}

// PullModel downloads model to the host and waits for it to finish.
func (h *OllamaHost) PullModel(ctx context.Context, model string) error {
	body, _ := json.Marshal(map[string]any{"model": model, "stream": false})

	resp, cancel, err := h.doRequest(ctx, http.MethodPost, "/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("pull %s on %s: %w", model, h.URL, err)
	}
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pull %s on %s: %s", model, h.URL, strings.TrimSpace(string(respBody)))
	}
	return nil
}
