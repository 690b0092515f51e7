// internal/providerfactory/factory.go
package providerfactory

import (
	"fmt"
	"strings"

	"github.com/mwiater/jsonrag/internal/appconfig"
	"github.com/mwiater/jsonrag/internal/logging"
	"github.com/mwiater/jsonrag/internal/providers/langchain"
	"github.com/mwiater/jsonrag/internal/providers/ollama"
	"github.com/mwiater/jsonrag/internal/rag"
	"github.com/mwiater/jsonrag/internal/ragerr"
)

// NewEmbedder selects and configures the embedding provider named by
// cfg.Embedding.Type.
func NewEmbedder(cfg *appconfig.Config) (rag.Embedder, error) {
	if cfg == nil {
		return nil, ragerr.Newf(ragerr.ErrInvalidConfig, "embedding provider", "nil config provided to provider factory")
	}
	p := cfg.Embedding
	switch providerType(p) {
	case appconfig.ProviderOllama:
		logging.LogEvent("Embedding provider: ollama %s @ %s", p.Model, p.Host)
		return ollama.New(ollama.Config{
			Host:              p.Host,
			Model:             p.Model,
			Timeout:           p.RequestTimeout(),
			RequestsPerSecond: p.RequestsPerSecond,
		}), nil
	case appconfig.ProviderLangchain:
		logging.LogEvent("Embedding provider: langchaingo %s @ %s", p.Model, p.Host)
		e, err := langchain.NewEmbedder(langchain.Config{Host: p.Host, Model: p.Model, Timeout: p.RequestTimeout()})
		if err != nil {
			return nil, ragerr.New(ragerr.ErrInvalidConfig, "embedding provider", err)
		}
		return e, nil
	}
	return nil, unsupported("embedding", p.Type)
}

// NewGenerator selects and configures the generation provider named by
// cfg.Generation.Type.
func NewGenerator(cfg *appconfig.Config) (rag.Generator, error) {
	if cfg == nil {
		return nil, ragerr.Newf(ragerr.ErrInvalidConfig, "generation provider", "nil config provided to provider factory")
	}
	p := cfg.Generation
	switch providerType(p) {
	case appconfig.ProviderOllama:
		logging.LogEvent("Generation provider: ollama %s @ %s", p.Model, p.Host)
		return ollama.New(ollama.Config{
			Host:              p.Host,
			Model:             p.Model,
			Timeout:           p.RequestTimeout(),
			RequestsPerSecond: p.RequestsPerSecond,
		}), nil
	case appconfig.ProviderLangchain:
		logging.LogEvent("Generation provider: langchaingo %s @ %s", p.Model, p.Host)
		g, err := langchain.NewGenerator(langchain.Config{Host: p.Host, Model: p.Model, Timeout: p.RequestTimeout()})
		if err != nil {
			return nil, ragerr.New(ragerr.ErrInvalidConfig, "generation provider", err)
		}
		return g, nil
	}
	return nil, unsupported("generation", p.Type)
}

func providerType(p appconfig.ProviderConfig) string {
	t := strings.ToLower(strings.TrimSpace(p.Type))
	if t == "" {
		return appconfig.ProviderOllama
	}
	return t
}

func unsupported(role, kind string) error {
	return ragerr.New(ragerr.ErrInvalidConfig, role+" provider", fmt.Errorf("unsupported provider type %q", kind))
}
