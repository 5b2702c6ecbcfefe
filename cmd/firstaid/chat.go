package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/firstaid"
	"github.com/aretw0/firstaid/internal/cli"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot in the terminal",
	Long:  `Starts an interactive conversation on Stdin/Stdout. Type 'salir' to leave.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, logger := buildApp(ctx, cmd)
		defer app.Close()

		if err := app.Start(ctx); err != nil {
			logger.Error("Failed to start background workers", "err", err)
			os.Exit(1)
		}

		sessionID, _ := cmd.Flags().GetString("session")
		debug, _ := cmd.Flags().GetBool("debug")
		err := cli.RunChat(ctx, app.Bot, cli.ChatOptions{
			SessionID: sessionID,
			Version:   firstaid.Version,
			Debug:     debug,
		})
		if err != nil && ctx.Err() == nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "", "Session ID to resume (a new one is generated by default)")

	rootCmd.Run = chatCmd.Run
}
