package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ricesearch/matcheval/internal/bus"
	"github.com/ricesearch/matcheval/internal/config"
	"github.com/ricesearch/matcheval/internal/evaluation"
	"github.com/ricesearch/matcheval/internal/history"
	apperrors "github.com/ricesearch/matcheval/internal/pkg/errors"
	"github.com/ricesearch/matcheval/internal/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "matcheval",
		Short: "matcheval - product matcher evaluation toolkit",
		Long: `matcheval scores a binary product matcher and consolidates pair judgments.

  matcheval prauc   category-weighted, precision-gated PR-AUC of matcher scores
  matcheval group   same/different-product groups from labeled pairs
  matcheval serve   HTTP API for both, with run history

Run 'matcheval --help' for available commands.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is normal
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("loading .env: %w", err)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("format", "text", "output format (text, json, yaml)")

	rootCmd.AddCommand(
		praucCmd(),
		groupCmd(),
		importCmd(),
		exportCmd(),
		runsCmd(),
		eventsCmd(),
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode lets scripts tell bad input from missing data and failures.
func exitCode(err error) int {
	switch {
	case apperrors.IsValidation(err):
		return 2
	case apperrors.IsNoData(err):
		return 3
	case apperrors.IsNotFound(err):
		return 4
	default:
		return 1
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "matcheval %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", date)
		},
	}
}

// loadConfig reads --config and applies --verbose.
func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	var cfg *config.Config
	var err error
	if configPath == "" {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(configPath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	return cfg, logger.New(cfg.Log.Level, cfg.Log.Format), nil
}

// services bundles what the batch commands share with the server.
type services struct {
	history   history.Store
	bus       bus.Bus
	evaluator *evaluation.Evaluator
}

func newServices(cfg *config.Config, log *logger.Logger) (*services, error) {
	store, err := history.NewStore(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("failed to create run history: %w", err)
	}

	b, err := bus.NewBus(cfg.Bus, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}

	return &services{
		history:   store,
		bus:       b,
		evaluator: evaluation.NewEvaluator(store, b, log),
	}, nil
}

func (s *services) Close(log *logger.Logger) {
	if err := s.bus.Close(); err != nil {
		log.Warn("Error closing event bus", "error", err)
	}
	if err := s.history.Close(); err != nil {
		log.Warn("Error closing run history", "error", err)
	}
}
