package jsonrag

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var fetchPrint bool

// fetchCmd runs one "Fetch Data" action: fetch, flatten, chunk and index.
var fetchCmd = &cobra.Command{
	Use:   "fetch <endpoint>",
	Short: "Fetch a JSON endpoint and rebuild the index from it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctrl, err := newSession(GetConfig())
		if err != nil {
			return reportFailure(out, err)
		}

		summary, err := ctrl.Ingest(cmd.Context(), args[0])
		if err != nil {
			return reportFailure(out, err)
		}

		fmt.Fprintln(out, successfulResult(fmt.Sprintf("✓ Indexed %s", summary.Endpoint)))
		fmt.Fprintf(out, "%s %d\n", labelText("Records:"), summary.Records)
		fmt.Fprintf(out, "%s %d (%d characters)\n", labelText("Chunks: "), summary.Chunks, summary.Characters)
		fmt.Fprintf(out, "%s %s\n", labelText("Build:  "), summary.BuildID)
		fmt.Fprintf(out, "%s %s\n", labelText("Elapsed:"), summary.Elapsed.Truncate(time.Millisecond))

		if fetchPrint {
			state, _ := ctrl.Snapshot()
			fmt.Fprintf(out, "\n%s\n", state.Text)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchPrint, "print", false, "print the flattened text that was indexed")
	rootCmd.AddCommand(fetchCmd)
}
