package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/classmark/classmark/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API server",
	Long: `Start the Classmark HTTP API.
The API exposes student enrollment, live attendance sessions,
ledger export, class summaries, and backup management.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (defaults to API_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (defaults to API_HOST)")
}

// resolveServeHostPort resolves host and port from flags with env fallback.
func resolveServeHostPort(cmd *cobra.Command, defaultHost string, defaultPort int) (string, int) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if port == 0 {
		port = defaultPort
	}
	if host == "" {
		host = defaultHost
	}
	return host, port
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	sessions := a.sessionManager(a.frameSource)
	host, port := resolveServeHostPort(cmd, a.cfg.API.Host, a.cfg.API.Port)

	server := web.NewServer(web.Deps{
		Config:   a.cfg,
		Registry: a.registry,
		Ledger:   a.ledger,
		Sessions: sessions,
		Backups:  a.backups,
	}, host, port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Classmark API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
