// cmd/jsonrag/main.go
package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"

	cmd "github.com/mwiater/jsonrag/internal/commands"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// main loads an optional .env file into the environment so JSONRAG_* settings
// can live there, then hands off to the cobra root command.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("could not load .env: %v", err)
	}
	cmd.SetVersionInfo(version, commit, date)
	cmd.Execute()
}
