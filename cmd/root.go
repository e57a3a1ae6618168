// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mpvrelay/internal/config"
	"mpvrelay/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagListen      string
	flagMPV         string
	flagResolution  int
	flagPollTimeout time.Duration
	flagNoHistory   bool
	flagMetrics     string
	flagLogLevel    string
	flagLogFormat   string
	flagEnvFile     string
	flagDebug       bool
)

// cfg holds the loaded configuration (merged: defaults < config file < env < flags).
var cfg *config.Config

// logger is configured from cfg before any command runs.
var logger = slog.New(slog.DiscardHandler)

// logOutput is where logger writes once configured.
var logOutput io.Writer = os.Stderr

var rootCmd = &cobra.Command{
	Use:   "mpvrelay",
	Short: "Queue media in mpv from the network",
	Long: `mpvrelay runs mpv and listens on a TCP port. Every connection carries one
URL or file path, ended by closing the connection, which is appended to mpv's
playlist. Playback events are logged as they happen.`,
	Args:              cobra.NoArgs,
	PersistentPreRunE: loadConfig,
	RunE:              serveRun,
	SilenceUsage:      true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagListen, "listen", "L", "", "Ingest address (default 0.0.0.0:8000)")
	rootCmd.PersistentFlags().StringVar(&flagMPV, "mpv", "", "Path or name of the mpv binary")
	rootCmd.PersistentFlags().IntVarP(&flagResolution, "resolution", "r", 0, "Target video height for web streams")
	rootCmd.PersistentFlags().DurationVar(&flagPollTimeout, "poll-timeout", 0, "Maximum wait for a playback event per loop iteration")
	rootCmd.PersistentFlags().BoolVar(&flagNoHistory, "no-history", false, "Do not record submitted locators")
	rootCmd.PersistentFlags().StringVar(&flagMetrics, "metrics", "", "Serve Prometheus metrics on this address")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug | info | warn | error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: auto | text | json")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Environment file read before configuration")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < env < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnvFile(flagEnvFile); err != nil {
		return err
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file and environment values
	if flagListen != "" {
		cfg.Listen = flagListen
	}
	if flagMPV != "" {
		cfg.MPVPath = flagMPV
	}
	if flagResolution != 0 {
		cfg.Resolution = flagResolution
	}
	if flagPollTimeout != 0 {
		cfg.PollTimeout = config.Duration{Duration: flagPollTimeout}
	}
	if flagNoHistory {
		cfg.History = false
	}
	if flagMetrics != "" {
		cfg.MetricsAddr = flagMetrics
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if flagDebug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger = logging.New(logOutput, cfg.LogLevel, cfg.LogFormat)
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}
