package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hurou927/ora-schema-gen/internal/config"
)

var (
	cfgPath string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:   "ora-schema-gen",
	Short: "Generate Oracle DDL scripts from a CSV schema description",
	Long: `ora-schema-gen reads a spreadsheet-style description of tables and columns,
resolves keys, indexes, sequences and history tables, and writes one SQL file per
object plus a build.sql that runs them in dependency order and a clean.sql that
drops them again.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "DEBUG"
		}
		logger, err = newLogger(cfg.Logging)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "conf.yaml", "path to YAML config file (built-in defaults when missing)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log debug detail")
}

// newLogger writes text logs to stderr and, when configured, to a log file.
func newLogger(l config.Logging) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToUpper(l.Level) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var w io.Writer = os.Stderr
	if l.File != "" {
		f, err := os.OpenFile(l.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		logFile = f
		w = io.MultiWriter(os.Stderr, f)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
