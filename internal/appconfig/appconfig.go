// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mwiater/jsonrag/internal/ragerr"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.yaml"
	// EnvPrefix namespaces environment overrides, e.g. JSONRAG_INDEX_PATH.
	EnvPrefix = "JSONRAG"

	// Provider types accepted by embedding.type and generation.type.
	ProviderOllama    = "ollama"
	ProviderLangchain = "langchaingo"

	defaultLogFile      = "jsonrag.log"
	defaultFetchTimeout = 10 * time.Second
	// defaultRequestTimeout is the default timeout for provider requests.
	defaultRequestTimeout = 600 * time.Second
)

// Config represents the top-level application configuration.
type Config struct {
	Debug      bool           `mapstructure:"debug" yaml:"debug"`
	LogFile    string         `mapstructure:"logFile" yaml:"logFile"`
	Fetch      FetchConfig    `mapstructure:"fetch" yaml:"fetch"`
	Chunk      ChunkConfig    `mapstructure:"chunk" yaml:"chunk"`
	Index      IndexConfig    `mapstructure:"index" yaml:"index"`
	Embedding  ProviderConfig `mapstructure:"embedding" yaml:"embedding"`
	Generation ProviderConfig `mapstructure:"generation" yaml:"generation"`
	Server     ServerConfig   `mapstructure:"server" yaml:"server"`
	ConfigPath string         `mapstructure:"-" yaml:"-"`
}

type FetchConfig struct {
	TimeoutSeconds int `mapstructure:"timeoutSeconds" yaml:"timeoutSeconds"`
}

type ChunkConfig struct {
	Size    int `mapstructure:"size" yaml:"size"`
	Overlap int `mapstructure:"overlap" yaml:"overlap"`
}

type IndexConfig struct {
	Path             string `mapstructure:"path" yaml:"path"`
	Collection       string `mapstructure:"collection" yaml:"collection"`
	Backend          string `mapstructure:"backend" yaml:"backend"`
	TopK             int    `mapstructure:"topK" yaml:"topK"`
	TeardownAttempts int    `mapstructure:"teardownAttempts" yaml:"teardownAttempts"`
	TeardownDelayMs  int    `mapstructure:"teardownDelayMs" yaml:"teardownDelayMs"`
}

// ProviderConfig selects an embedding or generation backend.
type ProviderConfig struct {
	Type              string  `mapstructure:"type" yaml:"type"`
	Host              string  `mapstructure:"host" yaml:"host"`
	Model             string  `mapstructure:"model" yaml:"model"`
	TimeoutSeconds    int     `mapstructure:"timeoutSeconds" yaml:"timeoutSeconds"`
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond" yaml:"requestsPerSecond,omitempty"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins []string `mapstructure:"allowedOrigins" yaml:"allowedOrigins"`
}

// Defaults returns the configuration used when no file or override sets a value.
func Defaults() Config {
	return Config{
		LogFile: defaultLogFile,
		Fetch:   FetchConfig{TimeoutSeconds: int(defaultFetchTimeout.Seconds())},
		Chunk:   ChunkConfig{Size: 7500, Overlap: 100},
		Index: IndexConfig{
			Path:             "./chroma_db",
			Collection:       "rag-chroma",
			Backend:          "bolt",
			TopK:             4,
			TeardownAttempts: 5,
			TeardownDelayMs:  1000,
		},
		Embedding: ProviderConfig{
			Type:           ProviderOllama,
			Host:           "http://localhost:11434",
			Model:          "nomic-embed-text",
			TimeoutSeconds: int(defaultRequestTimeout.Seconds()),
		},
		Generation: ProviderConfig{
			Type:           ProviderOllama,
			Host:           "http://localhost:11434",
			Model:          "mistral",
			TimeoutSeconds: int(defaultRequestTimeout.Seconds()),
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
	}
}

// SetDefaults registers every default under its viper key so that env vars and
// flags can override nested values.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("debug", d.Debug)
	v.SetDefault("logFile", d.LogFile)
	v.SetDefault("fetch.timeoutSeconds", d.Fetch.TimeoutSeconds)
	v.SetDefault("chunk.size", d.Chunk.Size)
	v.SetDefault("chunk.overlap", d.Chunk.Overlap)
	v.SetDefault("index.path", d.Index.Path)
	v.SetDefault("index.collection", d.Index.Collection)
	v.SetDefault("index.backend", d.Index.Backend)
	v.SetDefault("index.topK", d.Index.TopK)
	v.SetDefault("index.teardownAttempts", d.Index.TeardownAttempts)
	v.SetDefault("index.teardownDelayMs", d.Index.TeardownDelayMs)
	for prefix, p := range map[string]ProviderConfig{"embedding": d.Embedding, "generation": d.Generation} {
		v.SetDefault(prefix+".type", p.Type)
		v.SetDefault(prefix+".host", p.Host)
		v.SetDefault(prefix+".model", p.Model)
		v.SetDefault(prefix+".timeoutSeconds", p.TimeoutSeconds)
		v.SetDefault(prefix+".requestsPerSecond", p.RequestsPerSecond)
	}
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.allowedOrigins", d.Server.AllowedOrigins)
}

// ConfigureEnv lets JSONRAG_* environment variables override config keys.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration at path on top of the defaults. A missing file
// at the default path is not an error; a missing explicit path is.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	v := viper.New()
	SetDefaults(v)
	ConfigureEnv(v)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if !IsNotFound(err) {
			return Config{}, ragerr.New(ragerr.ErrInvalidConfig, "read config", fmt.Errorf("could not read config file %q: %w", path, err))
		}
		if path != DefaultConfigPath {
			return Config{}, ragerr.Newf(ragerr.ErrInvalidConfig, "read config", "no configuration file found at %q", path)
		}
		path = ""
	}

	cfg, err := Decode(v)
	if err != nil {
		return Config{}, err
	}
	cfg.ConfigPath = path
	return cfg, nil
}

// Decode materializes and validates the merged state of v.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, ragerr.New(ragerr.ErrInvalidConfig, "decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsNotFound reports whether err means the config file does not exist.
func IsNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	var problems []string
	if c.Chunk.Size <= 0 {
		problems = append(problems, "chunk.size must be greater than zero")
	}
	if c.Chunk.Overlap < 0 {
		problems = append(problems, "chunk.overlap must be zero or greater")
	}
	if c.Chunk.Size > 0 && c.Chunk.Overlap >= c.Chunk.Size {
		problems = append(problems, "chunk.overlap must be smaller than chunk.size")
	}
	if strings.TrimSpace(c.Index.Path) == "" {
		problems = append(problems, "index.path is required")
	}
	switch strings.ToLower(c.Index.Backend) {
	case "", "bolt", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("index.backend %q is not one of bolt, sqlite", c.Index.Backend))
	}
	providers := []struct {
		name string
		cfg  ProviderConfig
	}{{"embedding", c.Embedding}, {"generation", c.Generation}}
	for _, entry := range providers {
		name, p := entry.name, entry.cfg
		switch strings.ToLower(p.Type) {
		case ProviderOllama, ProviderLangchain:
		default:
			problems = append(problems, fmt.Sprintf("%s.type %q is not one of %s, %s", name, p.Type, ProviderOllama, ProviderLangchain))
		}
		if strings.TrimSpace(p.Model) == "" {
			problems = append(problems, name+".model is required")
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return ragerr.Newf(ragerr.ErrInvalidConfig, "validate config", "%s", strings.Join(problems, "; "))
}

// FetchTimeout returns the endpoint fetch timeout, defaulting to 10s.
func (c Config) FetchTimeout() time.Duration {
	if c.Fetch.TimeoutSeconds <= 0 {
		return defaultFetchTimeout
	}
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// RequestTimeout returns the timeout for provider requests, falling back to the default if not specified.
func (p ProviderConfig) RequestTimeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func (i IndexConfig) TeardownDelay() time.Duration {
	if i.TeardownDelayMs < 0 {
		return 0
	}
	return time.Duration(i.TeardownDelayMs) * time.Millisecond
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return defaultLogFile
}

// Save writes cfg as YAML, creating parent directories as needed.
func Save(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
