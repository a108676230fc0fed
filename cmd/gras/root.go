package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/XIAOke8698/GRAS-Manager/internal/bootstrap"
	"github.com/XIAOke8698/GRAS-Manager/internal/infra"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gras",
	Short: "Submit and track grsai generation tasks",
	Long: `gras submits veo, nano-banana and sora-2 jobs to the grsai API,
keeps the task records in the configured store and downloads finished media.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log service activity to stdout")
}

// GetRootCmd returns the root command (used by tests).
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// withServices loads configuration, builds the services and runs fn with a
// context cancelled on SIGINT.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, svc *bootstrap.Services) error) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := infra.NewLogger(cfg)
	if !verbose {
		logger = logger.Level(zerolog.WarnLevel)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Build(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(ctx, svc)
}
