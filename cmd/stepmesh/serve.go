package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/stepmesh/internal/cli"
	httpAdapter "github.com/aretw0/stepmesh/pkg/adapters/http"
	"github.com/aretw0/stepmesh/pkg/observability"
	"github.com/spf13/cobra"
)

var serveKeys = map[string]string{
	"addr":       "serve.addr",
	"output-dir": "export.output_dir",
	"output":     "convert.output",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the pipelines over HTTP: POST /convert and /export run a conversion on a
server-side STEP path, GET /manifest, /parts and /files/{file} browse the last export,
and GET /metrics exposes Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, serveKeys)
		if err != nil {
			return err
		}

		logger := cli.NewLogger(cfg.Log, cmd.ErrOrStderr())
		metrics := observability.NewMetrics()
		pipeline, cleanup, err := cli.NewPipeline(cfg, logger, metrics.Hooks(), observability.LoggingHooks(logger))
		if err != nil {
			return err
		}
		defer cleanup()

		handler := httpAdapter.NewHandler(pipeline, httpAdapter.Defaults{
			Convert: convertDefaults(cfg),
			Export:  exportDefaults(cfg),
		}, httpAdapter.WithMetrics(metrics.Handler()), httpAdapter.WithLogger(logger))

		srv := &http.Server{
			Addr:              cfg.Serve.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("stepmesh server listening", "addr", srv.Addr, "kernel", pipeline.Kernel().Name(), "output_dir", cfg.Export.OutputDir)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutdown started", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("could not stop server: %w", err)
				}
			}
			logger.Info("stepmesh server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "localhost:8080", "Address to listen on")
	serveCmd.Flags().String("output-dir", "parts", "Export directory served under /files")
	serveCmd.Flags().String("output", "model.stl", "Output STL file of POST /convert")
}
