package cmd

import (
	"os"
	"strings"

	"github.com/killallgit/stream-recorder/internal/logging"
	"github.com/killallgit/stream-recorder/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "recorder",
	Short: "Live stream recorder",
	Long: `Stream Recorder - records a live audio stream into a stored episode

Each run captures the stream for a fixed runtime, stitches the captured
fragments into one file, publishes it to the object store, notifies a
webhook and prunes old episodes down to the retention count.

Features:
  • Hard-deadline stream capture
  • Retry policy for every network call
  • Run ledger with history and a read-only status API`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default "+config.DefaultConfigFile+")")

	// Add persistent flags for logging configuration
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "enable JSON formatted logs")
}

// loadConfig loads the configuration when a command needs it. bindings maps
// viper keys to flag names of cmd; only flags set on the command line
// override the config file and environment.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	if err := config.Init(configFile); err != nil {
		return nil, err
	}

	for key, name := range bindings {
		if flag := cmd.Flags().Lookup(name); flag != nil && flag.Changed {
			viper.Set(key, flag.Value.String())
		}
	}

	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}

	setupLogging(cmd, cfg)
	return cfg, nil
}

func setupLogging(cmd *cobra.Command, cfg *config.Config) {
	level := cfg.Logging.Level
	if flag := cmd.Flags().Lookup("log-level"); flag != nil && flag.Changed {
		level = flag.Value.String()
	}
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")

	logging.Setup(logging.Options{
		Level: level,
		JSON:  jsonLogs || strings.EqualFold(cfg.Logging.Format, "json"),
	})
}
