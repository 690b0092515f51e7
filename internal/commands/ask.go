package jsonrag

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askEndpoint string

// askCmd runs an "Ask Query" action, optionally preceded by a fetch of
// --endpoint in the same session.
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the data fetched from an endpoint",
	Long: `The 'ask' command answers a question from the indexed endpoint data.
Each invocation is its own session, so pass --endpoint to fetch the data first;
without it the command reports that no data has been fetched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctrl, err := newSession(GetConfig())
		if err != nil {
			return reportFailure(out, err)
		}

		if askEndpoint != "" {
			summary, err := ctrl.Ingest(cmd.Context(), askEndpoint)
			if err != nil {
				return reportFailure(out, err)
			}
			fmt.Fprintln(out, successfulResult(fmt.Sprintf("✓ Indexed %d records from %s", summary.Records, summary.Endpoint)))
		}

		answer, err := ctrl.Ask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return reportFailure(out, err)
		}
		fmt.Fprintf(out, "%s\n%s\n", labelText("Answer:"), answer)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askEndpoint, "endpoint", "e", "", "JSON endpoint to fetch before asking")
	rootCmd.AddCommand(askCmd)
}
