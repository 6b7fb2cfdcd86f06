package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"

	"github.com/aretw0/stepmesh/internal/cli"
	"github.com/aretw0/stepmesh/pkg/adapters/mcp"
	"github.com/aretw0/stepmesh/pkg/observability"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts stepmesh as an MCP Server.
This allows AI agents to inspect, convert and export STEP files as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}

		// Logs go to stderr so they never corrupt JSON-RPC on stdout.
		logger := cli.NewLogger(cfg.Log, cmd.ErrOrStderr())
		slog.SetDefault(logger)
		log.SetOutput(cmd.ErrOrStderr())

		pipeline, cleanup, err := cli.NewPipeline(cfg, logger, observability.LoggingHooks(logger))
		if err != nil {
			return err
		}
		defer cleanup()

		srv := mcp.NewServer(pipeline, mcp.Defaults{
			Convert: convertDefaults(cfg),
			Export:  exportDefaults(cfg),
		})

		switch transport {
		case "stdio":
			slog.Info("Starting stepmesh MCP Server (Stdio)")
			if err := srv.ServeStdio(); err != nil {
				return fmt.Errorf("MCP server execution failed: %w", err)
			}
			return nil
		case "sse":
			slog.Info("Starting stepmesh MCP Server (SSE)", "port", port)

			ctx := cli.NewSignalContext(cmd.Context())
			defer ctx.Cancel()

			if err := srv.ServeSSE(ctx, port); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("MCP server execution failed: %w", err)
			}
			slog.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
