package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/firstaid/internal/cli"
	"github.com/aretw0/firstaid/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "firstaid",
	Short: "firstaid is a conversational first-aid guide",
	Long: `firstaid identifies an emergency from a free-text description and walks the
user through a decision tree of yes/no questions and instruction steps.

It is a guide, not a diagnosis: in a serious situation, call 160.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("env-file", ".env", "Optional dotenv file read before the environment")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// loadConfig reads the settings named by the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger) {
	envFile, _ := cmd.Flags().GetString("env-file")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg, cli.NewLogger(cfg, debug)
}

// buildApp loads the configuration and wires every backend.
func buildApp(ctx context.Context, cmd *cobra.Command) (*cli.App, *slog.Logger) {
	cfg, logger := loadConfig(cmd)
	app, err := cli.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start", "err", err)
		os.Exit(1)
	}
	return app, logger
}
