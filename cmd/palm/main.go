package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/palm-oracle/internal/bootstrap"
	"github.com/bryanwahyu/palm-oracle/internal/config"
	"github.com/bryanwahyu/palm-oracle/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger

	// diganti di test
	buildApp = bootstrap.Build
)

var rootCmd = &cobra.Command{
	Use:   "palm",
	Short: "Palm reading from a photo of your hand",
	Long: `palm sends one photo of an open palm to a multimodal model and renders
the reading it returns: the four major lines, mounts, talents, life stages
and a closing piece of advice.

The model key is read from GEMINI_API_KEY (or OPENAI_API_KEY with
--provider openai) on every call.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		level := cfg.Log.Level
		if verbose {
			level = "debug"
		} else if level == "info" {
			// CLI output is the report; only warnings go to stderr by default
			level = "warn"
		}
		logger, err = logging.New(level, cfg.Log.Development)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", envOr("CONFIG_PATH", "config.yaml"), "config file (missing file is fine)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(readCmd, renderCmd, historyCmd)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
