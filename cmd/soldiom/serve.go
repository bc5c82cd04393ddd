package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/PabloGalante/soldiom/internal/adapters/http"
	"github.com/PabloGalante/soldiom/internal/observability"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the HTTP API",
	PreRunE: loadConfig,
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (overrides SOLDIOM_PORT)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}

	port := cfg.Port
	if servePort != "" {
		port = servePort
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpadapter.NewServer(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log := observability.Logger()
	errc := make(chan error, 1)
	go func() {
		log.Info("soldiom API listening", "port", port, "mode", cfg.Mode, "backend", cfg.LLMBackend)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
