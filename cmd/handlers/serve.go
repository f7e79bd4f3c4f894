package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"creatorpulse/internal/logger"
	"creatorpulse/internal/server"
	"creatorpulse/internal/sources"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the JSON API over sources, trends, drafts and preferences.

Example:
  creatorpulse serve
  creatorpulse serve --port 9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, host, port)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host to bind (default from server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from server.port)")

	return cmd
}

func runServe(cmd *cobra.Command, host string, port int) error {
	log := logger.Get()

	a, err := openApp(cmd.Context(), optionalGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	serverCfg := a.cfg.Server
	if host != "" {
		serverCfg.Host = host
	}
	if port != 0 {
		serverCfg.Port = port
	}

	srv := server.New(server.Deps{
		DB:          a.db,
		Sources:     a.sources,
		Drafts:      a.drafts,
		SyncOptions: sources.SyncOptionsFromConfig(a.cfg.Sync),
	}, serverCfg)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port))
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		log.Info("Server stopped")
	}

	return nil
}
