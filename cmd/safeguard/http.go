package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/safeguard/internal/httpapi"
)

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Start the HTTP API",
	Long: `Serve safety calls over HTTP on server.http_addr.

Endpoints:
  POST /api/safety            {"action": "...", ...fields}
  GET  /api/safety?sessionId= read-only get_status
  GET  /health
  GET  /metrics               Prometheus metrics

Examples:
  safeguard http
  SAFEGUARD_SERVER_HTTP_ADDR=0.0.0.0:9000 safeguard http`,
	Args: cobra.NoArgs,
	RunE: runHTTP,
}

func runHTTP(cmd *cobra.Command, args []string) error {
	cfg, logger, components, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	srv, err := httpapi.NewServer(components.Safety, components.Metrics, logger, cfg.Server)
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		components.Safety.Enforcement().RunSweeper(ctx, cfg.Enforcement.SweepInterval.Duration())
		return nil
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
