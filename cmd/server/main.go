package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/automax/grievance-backend/internal/config"
)

const serviceName = "Maharashtra Grievance Backend"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "grievance-server",
	Short: "Citizen grievance classification backend",
	Long: `grievance-server accepts citizen grievances, routes each one to a government
department with a risk score and suggested action, and stores it under a
tracking token for officials to review.

Run without a subcommand to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()

		l, err := newLogger(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.AppEnv == "local" || cfg.AppEnv == "development" {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}

func init() {
	rootCmd.AddCommand(serveCmd, seedCmd, probeModelsCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
