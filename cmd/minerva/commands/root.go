package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edvora/minerva/cmd/minerva/internal/config"
)

var (
	// Global flags
	verbose bool
	cfgFile string

	// Global configuration (loaded at init time)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "minerva",
	Short: "Multi-agent tutoring service",
	Long: `minerva - a multi-agent tutoring service.

A coordinator routes each student turn to a specialist persona, streams
the reply as text and synthesized speech, and keeps per-student mastery
evidence.

Commands:
  serve    Run the tutoring gateway (HTTP API, SSE and WebSocket turns)
  chat     Interactive tutoring session against a running server
  mastery  Mastery report for a user and lesson

Configuration is read from ~/.minerva.yaml (override with --config).
Provider credentials may come from the file or from the OPENAI_API_KEY,
GEMINI_API_KEY and MINIMAX_API_KEY environment variables.

Examples:
  minerva serve --listen :8080 --data memory://
  minerva chat --user alice --lesson multiplication-01
  minerva mastery alice multiplication-01 -o json`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.minerva.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// configLoadErr stores the error from config.Load for deferred reporting.
var configLoadErr error

func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		// Store error for deferred reporting; commands that need config
		// will get a clear error via GetConfig(). This avoids failing
		// commands like 'minerva version' on a broken file.
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the global configuration.
// Returns an error if the config could not be loaded.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		// Try loading again (e.g., the file appeared since init).
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
