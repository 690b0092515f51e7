// Package fetch retrieves the JSON document served by a user-supplied endpoint.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mwiater/jsonrag/internal/flatten"
	"github.com/mwiater/jsonrag/internal/logging"
	"github.com/mwiater/jsonrag/internal/ragerr"
)

const (
	DefaultTimeout = 10 * time.Second

	// maxBodyBytes bounds how much of a response is read before giving up.
	maxBodyBytes = 64 << 20
)

// Client performs GET requests and decodes the body as an ordered JSON value.
type Client struct {
	http *http.Client
}

func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Fetch GETs endpoint and parses the response. Every failure is a FetchError:
// a URL not starting with "http", transport errors and timeouts, non-2xx
// statuses, and bodies that are not a single JSON document.
func (c *Client) Fetch(ctx context.Context, endpoint string) (flatten.Value, error) {
	endpoint = strings.TrimSpace(endpoint)
	u, err := validateURL(endpoint)
	if err != nil {
		return flatten.Value{}, ragerr.New(ragerr.ErrFetch, "validate url", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return flatten.Value{}, ragerr.New(ragerr.ErrFetch, "create request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	logging.LogRequest(logging.DirToEndpoint, u.Host, "", map[string]string{"method": http.MethodGet, "url": endpoint})
	resp, err := c.http.Do(req)
	if err != nil {
		return flatten.Value{}, ragerr.New(ragerr.ErrFetch, "GET "+endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return flatten.Value{}, ragerr.New(ragerr.ErrFetch, "read response", err)
	}
	logging.LogRequest(logging.DirFromEndpoint, u.Host, "", fmt.Sprintf("%s (%d bytes in %s)", resp.Status, len(body), time.Since(start).Truncate(time.Millisecond)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return flatten.Value{}, ragerr.Newf(ragerr.ErrFetch, "GET "+endpoint, "unexpected status %s: %s", resp.Status, snippet(body))
	}
	if len(body) > maxBodyBytes {
		return flatten.Value{}, ragerr.Newf(ragerr.ErrFetch, "read response", "response body exceeds %d bytes", maxBodyBytes)
	}

	value, err := flatten.Parse(body)
	if err != nil {
		return flatten.Value{}, ragerr.New(ragerr.ErrFetch, "decode response", err)
	}
	return value, nil
}

func validateURL(endpoint string) (*url.URL, error) {
	if !strings.HasPrefix(endpoint, "http") {
		return nil, fmt.Errorf("invalid URL %q: must start with http:// or https://", endpoint)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", endpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: must be an absolute http or https URL", endpoint)
	}
	return u, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	if s == "" {
		return "(empty body)"
	}
	return s
}
