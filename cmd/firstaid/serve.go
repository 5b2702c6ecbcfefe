package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/aretw0/firstaid/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP chat server",
	Long:  `Starts the bot as a JSON API over HTTP: POST /chat, GET /emergencies, GET /health and GET /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, logger := buildApp(ctx, cmd)
		defer app.Close()

		port := app.Config.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		if err := app.Start(ctx); err != nil {
			logger.Error("Failed to start background workers", "err", err)
			os.Exit(1)
		}

		handler := httpAdapter.NewHandler(app.Bot,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetrics(app.Registry),
			httpAdapter.WithHealthProbe(app.Probe),
			httpAdapter.WithAllowedOrigins(app.Config.AllowedOrigins...),
		)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("Starting firstaid server", "address", srv.Addr,
				"graph", app.Config.GraphBackend, "store", app.Config.StoreBackend, "llm", app.Config.LLMProvider)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			logger.Error("Server error", "err", err)
			os.Exit(1)

		case <-ctx.Done():
			logger.Info("Start shutdown...")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("Error killing server", "err", err)
				}
			}
			logger.Info("firstaid server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides PORT)")
}
