package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/usedamru/sql2nosql/internal/config"
	"github.com/usedamru/sql2nosql/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "sql2nosql",
	Short: "sql2nosql — SQL schema conversion and migration synthesis",
	Long: `sql2nosql converts a relational schema into a document schema,
merges denormalization advisories, resolves collection dependencies and
synthesizes migration scripts for PostgreSQL to MongoDB moves.`,
}

func Execute() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.sql2nosql/sql2nosql.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig reads the config file and wires up the logger, letting the
// --log-level flag win over the configured level.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logging.Setup(level, cfg.Logging.Directory)
	if err != nil {
		return nil, nil, fmt.Errorf("setting up logging: %w", err)
	}
	return cfg, logger, nil
}

func outputPath(cfg *config.Config, override, name string) string {
	if override != "" {
		return override
	}
	return filepath.Join(cfg.Output.Directory, name)
}
