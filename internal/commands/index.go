package jsonrag

import (
	"fmt"

	"github.com/k0kubun/pp"
	"github.com/mwiater/jsonrag/internal/util"
	"github.com/spf13/cobra"
)

var (
	indexShowEntries bool
	indexShowQuery   string
	indexShowTopK    int
)

// indexCmd groups commands that inspect the persisted index.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect the persisted index",
}

// indexShowCmd reopens the index at the configured location and describes it.
var indexShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the metadata of the persisted index",
	Long: `The 'show' command reopens the index left by the last fetch and prints its
metadata. With --entries it lists the stored chunks; with --query it ranks them
against a question using the configured embedding provider.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		store, err := newStore(GetConfig())
		if err != nil {
			return reportFailure(out, err)
		}
		handle, err := store.Open(cmd.Context())
		if err != nil {
			return reportFailure(out, err)
		}
		pp.Fprintln(out, handle.Meta())

		if indexShowEntries {
			entries, err := store.Entries(handle)
			if err != nil {
				return reportFailure(out, err)
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s\n%s\n\n", labelText(fmt.Sprintf("[%d]", e.Position)), util.PreviewLines(e.Text, 5, 120))
			}
		}

		if indexShowQuery != "" {
			matches, err := handle.Search(cmd.Context(), indexShowQuery, indexShowTopK)
			if err != nil {
				return reportFailure(out, err)
			}
			for _, m := range matches {
				fmt.Fprintf(out, "%s %s\n%s\n\n",
					labelText(fmt.Sprintf("[%d]", m.Entry.Position)),
					successfulResult(fmt.Sprintf("%.4f", m.Score)),
					util.PreviewLines(m.Entry.Text, 5, 120))
			}
		}
		return nil
	},
}

func init() {
	indexShowCmd.Flags().BoolVar(&indexShowEntries, "entries", false, "list the stored chunks")
	indexShowCmd.Flags().StringVarP(&indexShowQuery, "query", "q", "", "rank the stored chunks against this question")
	indexShowCmd.Flags().IntVarP(&indexShowTopK, "top", "k", 0, "number of matches for --query (0 = index.topK)")
	indexCmd.AddCommand(indexShowCmd)
	rootCmd.AddCommand(indexCmd)
}
