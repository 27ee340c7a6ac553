package main

import (
	"fmt"
	"log/slog"

	"github.com/nao1215/surveytriage/internal/config"
	"github.com/nao1215/surveytriage/internal/httpapi"
	applog "github.com/nao1215/surveytriage/internal/log"
	"github.com/nao1215/surveytriage/internal/metrics"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scrub, classify and lookup HTTP API",
		Long: `Serve starts an HTTP API exposing the scrubber and the URL classifier.

Endpoints:
  GET  /healthz               liveness probe
  POST /v1/scrub              {"texts": [...]} -> scrubbed texts and counts
  GET  /v1/classify?path=...  rule-based classification of one path
  POST /v1/lookup             {"paths": [...]} -> enriched URL records
  GET  /metrics               Prometheus metrics

The server stops gracefully on SIGINT or SIGTERM.

Examples:
  surveytriage serve
  surveytriage serve -l :9090 --no-lookup`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addLookupFlags(cmd)
	addScrubFlags(cmd)

	cmd.Flags().Bool("no-lookup", false,
		"Classify paths with the built-in rules only")
	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress,
		"Address to listen on")
	cmd.Flags().Int("max-batch", httpapi.DefaultMaxBatch,
		"Maximum number of texts or paths per request")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	maxBatch, err := cmd.Flags().GetInt("max-batch")
	if err != nil {
		return err
	}
	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg.Verbose)
	if logJSON {
		logger = applog.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)
		slog.SetDefault(logger)
	}
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	scrubber, err := cfg.NewScrubber()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	m := metrics.New()
	a := newApp(cfg, logger, m)
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to release resources", "error", err)
		}
	}()

	resolver, err := a.Resolver(ctx)
	if err != nil {
		return err
	}

	srv := httpapi.New(scrubber, resolver,
		httpapi.WithMetrics(m),
		httpapi.WithLogger(logger),
		httpapi.WithMaxBatch(maxBatch),
	)
	fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s\n", cfg.ListenAddress)
	return srv.ListenAndServe(ctx, cfg.ListenAddress)
}
