// safeguard: enforcement gates for AI coding assistants.
//
// It keeps an agent's work inside what the user asked for: load the
// project's decisions, clarify intent, lock scope, check every action and
// validate before reporting done.
//
// Usage:
//
//	safeguard serve     # MCP server (stdio transport)
//	safeguard http      # HTTP API on server.http_addr
//	safeguard call ...  # run one call and print the JSON response
//	safeguard version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HendryAvila/safeguard/internal/config"
	"github.com/HendryAvila/safeguard/internal/logging"
	sgserver "github.com/HendryAvila/safeguard/internal/server"
)

// configPath is the --config flag. Empty means ~/.config/safeguard/config.yaml.
var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "safeguard",
	Short: "Enforcement gates for AI coding assistants",
	Long: `safeguard keeps an AI coding assistant's work consistent with the project's
recorded decisions and inside the scope the user asked for.

Configuration is read from ~/.config/safeguard/config.yaml (or --config) and
SAFEGUARD_* environment variables, e.g. SAFEGUARD_SERVER_HTTP_ADDR.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(httpCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "safeguard v%s\n", sgserver.Version)
	},
}

// setup loads configuration and builds the logger and components. The
// returned cleanup flushes the logger and closes storage.
func setup() (*config.Config, *zap.Logger, *sgserver.Components, func(), error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadWithFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	components, closeComponents, err := sgserver.NewComponents(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, nil, fmt.Errorf("creating components: %w", err)
	}

	cleanup := func() {
		closeComponents()
		_ = logger.Sync()
	}
	return cfg, logger, components, cleanup, nil
}
