/*
main.go - Application entry point

PURPOSE:
  Builds the `timeline` command tree. The process exits non-zero when a
  subcommand returns an error.

COMMANDS:
  serve          Run the HTTP service
  check FILE...  Validate timeline documents offline

GLOBAL FLAGS:
  --config   YAML config file (see config package)
  --log-level, --log-format

EXAMPLES:
  # Run with file database
  timeline serve --db ./data/timeline.db

  # Run with in-memory database on a different port
  timeline serve --db ":memory:" --port 3000

  # Check a document before importing it
  timeline check roadmap.yaml

SEE ALSO:
  - serve.go: HTTP server startup and graceful shutdown
  - check.go: Document validation
  - config/config.go: Configuration sources
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/timeline-engine/config"
	"github.com/warp/timeline-engine/logging"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:           "timeline",
	Short:         "Phase timeline continuity engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json or console)")

	rootCmd.AddCommand(serveCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig applies the global flags over the file and environment.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Format)
}
