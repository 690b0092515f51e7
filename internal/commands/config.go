package jsonrag

import (
	"fmt"
	"os"

	"github.com/mwiater/jsonrag/internal/appconfig"
	"github.com/spf13/cobra"
)

var (
	configShowDump  bool
	configInitForce bool
)

// configCmd groups configuration commands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create configuration",
}

// configShowCmd prints the merged configuration after file, env and flags.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the YAML config is loaded properly and overridden by env vars and flags accordingly.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := GetConfig()
		if cfg == nil {
			defaults := appconfig.Defaults()
			cfg = &defaults
		}
		if configShowDump {
			appconfig.DumpConfig(cmd.OutOrStdout(), *cfg)
			return
		}
		appconfig.ShowConfig(cmd.OutOrStdout(), *cfg)
	},
}

// configInitCmd writes the default configuration to a YAML file.
var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := appconfig.DefaultConfigPath
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := appconfig.Save(path, appconfig.Defaults()); err != nil {
			return reportFailure(cmd.OutOrStdout(), err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), successfulResult("✓ Wrote "+path))
		return nil
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowDump, "dump", false, "pretty-print the full config struct")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
