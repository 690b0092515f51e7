package jsonrag

import (
	"github.com/mwiater/jsonrag/internal/models"
	"github.com/spf13/cobra"
)

// modelsCmd groups commands for the models the providers depend on.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Check or pull the configured embedding and generation models",
}

var modelsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether the configured models are installed on their Ollama hosts",
	Run: func(cmd *cobra.Command, args []string) {
		models.Render(cmd.OutOrStdout(), models.Check(cmd.Context(), GetConfig()))
	},
}

var modelsPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull any configured model that is missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := models.Pull(cmd.Context(), GetConfig(), cmd.OutOrStdout()); err != nil {
			return reportFailure(cmd.OutOrStdout(), err)
		}
		cmd.Println(successfulResult("✓ All configured models are installed"))
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsCheckCmd, modelsPullCmd)
	rootCmd.AddCommand(modelsCmd)
}
