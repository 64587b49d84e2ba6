package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	sgserver "github.com/HendryAvila/safeguard/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server (stdio transport)",
	Long: `Start the MCP server on stdin/stdout. Logs go to stderr.

Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "safeguard": {
        "command": "safeguard",
        "args": ["serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, components, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go components.Safety.Enforcement().RunSweeper(ctx, cfg.Enforcement.SweepInterval.Duration())

	s := sgserver.NewMCP(cfg.Server.Name, components.Safety)
	logger.Info("starting mcp server",
		zap.String("name", cfg.Server.Name),
		zap.String("version", sgserver.Version),
		zap.String("data_dir", cfg.Storage.DataDir),
	)
	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("serving stdio: %w", err)
	}
	return nil
}
