package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"disputedesk-hq/guardrail/pkg/cli"
	"disputedesk-hq/guardrail/pkg/config"
	"disputedesk-hq/guardrail/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "guardrail",
	Short: "Guardrail - safety layer for the dispute assistant",
	Long: `Guardrail keeps the dispute assistant's model calls, personal data and
audit trail under control.

It provides:
  - Sliding-window rate limiting, circuit breaking and retries for model calls
  - Two-pass PII redaction (patterns, then named entities)
  - A tamper-evident, hash-chained audit log with one file per day
  - Transaction matching with amount and date tolerance`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the status for its error.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.ExitCode(err))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and GUARDRAIL_* variables when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the configuration named by --config with environment
// overrides and installs a stderr logger for offline commands.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}

	logCfg := logging.FromConfig(cfg.Telemetry.Logging)
	logCfg.Format = string(logging.FormatText)
	logCfg.Level = "warn"
	if verbose {
		logCfg.Level = "debug"
	}
	if _, err := logging.Setup(logCfg); err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	return cfg, nil
}
