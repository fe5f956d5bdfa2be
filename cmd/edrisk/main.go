package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ofeng1/datathon/internal/config"
	"github.com/ofeng1/datathon/internal/embed"
	"github.com/ofeng1/datathon/internal/engine"
	"github.com/ofeng1/datathon/internal/logging"
)

var (
	configFile string
	logLevel   string
)

// #region main

func main() {
	rootCmd := &cobra.Command{
		Use:   "edrisk",
		Short: "Emergency department risk assistant",
		Long: `edrisk turns free-text ED patient descriptions into structured fields,
scores revisit and readmission risk, and pulls guidance from a local
knowledge base.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (default edrisk.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(parseFormCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// #endregion main

// #region setup

// setup loads the configuration and builds the process logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openEngine builds the embedder and the engine over it. The caller closes
// the returned handle.
func openEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, *embed.Handle, error) {
	h, err := embed.New(cfg.Embed, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	eng, err := engine.New(cfg.Engine, engine.Deps{Embedder: h, Logger: logger})
	if err != nil {
		_ = h.Close()
		return nil, nil, err
	}
	return eng, h, nil
}

// #endregion setup
