// internal/models/models.go
// Package models checks that the Ollama servers named in the configuration
// have the embedding and generation models installed, and pulls them if not.
package models

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/jsonrag/internal/appconfig"
	"github.com/mwiater/jsonrag/internal/logging"
)

// Requirement is one model the pipeline needs on one host.
type Requirement struct {
	Role  string
	Host  string
	Model string
}

// Status is the result of checking a Requirement.
type Status struct {
	Requirement
	Available bool
	Err       error
}

// Requirements lists the models cfg depends on. Both provider types talk to
// an Ollama server, so both are included.
func Requirements(cfg *appconfig.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	return []Requirement{
		{Role: "embedding", Host: cfg.Embedding.Host, Model: cfg.Embedding.Model},
		{Role: "generation", Host: cfg.Generation.Host, Model: cfg.Generation.Model},
	}
}

// Check queries each distinct host once and reports which requirements are
// installed.
func Check(ctx context.Context, cfg *appconfig.Config) []Status {
	reqs := Requirements(cfg)
	if len(reqs) == 0 {
		return nil
	}

	type listing struct {
		models []string
		err    error
	}
	var hosts []string
	seen := make(map[string]bool)
	for _, r := range reqs {
		if !seen[r.Host] {
			seen[r.Host] = true
			hosts = append(hosts, r.Host)
		}
	}

	listings := make(map[string]listing, len(hosts))
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, host := range hosts {
		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			models, err := NewOllamaHost(host, cfg.FetchTimeout()).ListRawModels(ctx)
			mu.Lock()
			listings[host] = listing{models: models, err: err}
			mu.Unlock()
		}(host)
	}
	wg.Wait()

	statuses := make([]Status, len(reqs))
	for i, r := range reqs {
		l := listings[r.Host]
		statuses[i] = Status{Requirement: r, Err: l.err}
		if l.err == nil {
			statuses[i].Available = hasModel(l.models, r.Model)
		}
	}
	return statuses
}

// Pull installs every requirement Check reports as missing.
func Pull(ctx context.Context, cfg *appconfig.Config, out io.Writer) error {
	var failed []string
	for _, s := range Check(ctx, cfg) {
		if s.Err != nil {
			failed = append(failed, s.Err.Error())
			continue
		}
		if s.Available {
			fmt.Fprintf(out, "%s already on %s\n", s.Model, s.Host)
			continue
		}
		fmt.Fprintf(out, "Pulling %s on %s...\n", s.Model, s.Host)
		logging.LogEvent("[MODELS] Pulling %s on %s", s.Model, s.Host)
		if err := NewOllamaHost(s.Host, 0).PullModel(ctx, s.Model); err != nil {
			failed = append(failed, err.Error())
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%s", strings.Join(failed, "; "))
	}
	return nil
}

// Render prints statuses one per line.
func Render(out io.Writer, statuses []Status) {
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	missingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hostStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	for _, s := range statuses {
		var state string
		switch {
		case s.Err != nil:
			state = missingStyle.Render("error: " + s.Err.Error())
		case s.Available:
			state = okStyle.Render("installed")
		default:
			state = missingStyle.Render("missing")
		}
		fmt.Fprintf(out, "%-10s %s %s  >>> %s\n", s.Role, s.Model, hostStyle.Render("@ "+s.Host), state)
	}
}

// hasModel matches Ollama tags, where "mistral" means "mistral:latest".
func hasModel(installed []string, model string) bool {
	for _, name := range installed {
		if name == model || name == model+":latest" || strings.TrimSuffix(model, ":latest") == name {
			return true
		}
	}
	return false
}
