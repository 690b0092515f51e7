// internal/commands/root.go
package jsonrag

import (
	"fmt"
	"os"

	"github.com/mwiater/jsonrag/internal/appconfig"
	"github.com/mwiater/jsonrag/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// quietLogging marks commands whose log output must not reach the terminal.
const quietLogging = "quietLogging"

var (
	cfgFile       string
	currentConfig *appconfig.Config
	appVersion    = "dev"
	appCommit     = "none"
	appDate       = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "jsonrag",
	Short:        "jsonrag: fetch a JSON endpoint, index it, and ask questions about it",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureConfigLoaded(cmd); err != nil {
			return err
		}

		cfg, err := appconfig.Decode(viper.GetViper())
		if err != nil {
			return err
		}
		cfg.ConfigPath = viper.ConfigFileUsed()
		if !configFileRead {
			cfg.ConfigPath = ""
		}
		currentConfig = &cfg

		console := cfg.Debug && cmd.Annotations[quietLogging] != "true"
		if err := logging.Init(currentConfig.LogFilePath(), console); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.LogEvent("jsonrag %s starting %q (config %q)", appVersion, cmd.CommandPath(), cfg.ConfigPath)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, appCommit, appDate)

	defer logging.Close()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	appconfig.SetDefaults(viper.GetViper())
	appconfig.ConfigureEnv(viper.GetViper())

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", appconfig.DefaultConfigPath, "config file (e.g., config/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("logFile", "", "path to the log file")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("logFile", rootCmd.PersistentFlags().Lookup("logFile"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// configFileRead records whether the last ensureConfigLoaded found a file.
var configFileRead bool

// ensureConfigLoaded reads the config file. The default path may be absent;
// a path given with --config must exist.
func ensureConfigLoaded(cmd *cobra.Command) error {
	configFileRead = false
	if err := viper.ReadInConfig(); err != nil {
		if appconfig.IsNotFound(err) && !cmd.Flags().Changed("config") {
			return nil
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	configFileRead = true
	return nil
}

// GetConfig returns the loaded application configuration for other packages.
func GetConfig() *appconfig.Config {
	return currentConfig
}

// SetVersionInfo allows the main package to inject build-time variables.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}
