package appconfig

import (
	"fmt"
	"io"

	"github.com/k0kubun/pp"
)

// ShowConfig prints where the configuration came from and the merged values.
func ShowConfig(out io.Writer, cfg Config) {
	if cfg.ConfigPath == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", cfg.ConfigPath)
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Debug:             %v\n", cfg.Debug)
	fmt.Fprintf(out, "  Log File:          %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Fetch Timeout:     %s\n", cfg.FetchTimeout())
	fmt.Fprintf(out, "  Chunk Size:        %d chars, overlap %d\n", cfg.Chunk.Size, cfg.Chunk.Overlap)
	fmt.Fprintf(out, "  Index:             %s/%s (%s), top %d\n", cfg.Index.Path, cfg.Index.Collection, cfg.Index.Backend, cfg.Index.TopK)
	fmt.Fprintf(out, "  Teardown:          %d attempts, %s apart\n", cfg.Index.TeardownAttempts, cfg.Index.TeardownDelay())
	fmt.Fprintf(out, "  Embedding:         %s %s @ %s (timeout %s)\n", cfg.Embedding.Type, cfg.Embedding.Model, cfg.Embedding.Host, cfg.Embedding.RequestTimeout())
	fmt.Fprintf(out, "  Generation:        %s %s @ %s (timeout %s)\n", cfg.Generation.Type, cfg.Generation.Model, cfg.Generation.Host, cfg.Generation.RequestTimeout())
	fmt.Fprintf(out, "  Server:            %s (origins %v)\n", cfg.Server.Addr, cfg.Server.AllowedOrigins)
}

// DumpConfig pretty-prints the full struct, for debugging overrides.
func DumpConfig(out io.Writer, cfg Config) {
	pp.Fprintln(out, cfg)
}
