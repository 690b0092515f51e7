package jsonrag

import (
	"github.com/mwiater/jsonrag/internal/tui"
	"github.com/spf13/cobra"
)

// uiCmd starts the interactive terminal interface.
var uiCmd = &cobra.Command{
	Use:         "ui",
	Short:       "Start the interactive terminal interface",
	Long:        `The 'ui' command opens a terminal interface with an endpoint field ("Fetch Data") and a question field ("Ask Query").`,
	Annotations: map[string]string{quietLogging: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := newSession(GetConfig())
		if err != nil {
			return reportFailure(cmd.ErrOrStderr(), err)
		}
		return tui.Run(cmd.Context(), ctrl)
	},
}

func init() {
	rootCmd.AddCommand(uiCmd)
}
