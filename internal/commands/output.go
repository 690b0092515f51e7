package jsonrag

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/mwiater/jsonrag/internal/ragerr"
)

var (
	successfulResult = color.New(color.FgGreen).SprintFunc()
	failedResult     = color.New(color.FgRed).SprintFunc()
	labelText        = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// reportFailure prints err as a short kind-prefixed message and returns it so
// the command exits non-zero.
func reportFailure(out io.Writer, err error) error {
	fmt.Fprintln(out, failedResult("✗ "+ragerr.Message(err)))
	return err
}
