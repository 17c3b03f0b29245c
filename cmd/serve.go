package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ethanolivertroy/psirt-check/internal/logging"
	"github.com/ethanolivertroy/psirt-check/internal/models"
	"github.com/ethanolivertroy/psirt-check/internal/server"
	"github.com/ethanolivertroy/psirt-check/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve [inventory paths...]",
	Short: "Serve the latest correlation report over HTTP",
	Long: `Correlate once at startup, then serve the report as JSON:

  GET  /api/report            full report
  GET  /api/results?severity= per-device advisories, optionally one severity
  GET  /api/ranking?top=      risk ranking
  GET  /api/summary           executive summary (markdown)
  GET  /api/severity-counts   advisory counts per severity
  POST /api/refresh           run the correlation again
  GET  /healthz               liveness
  GET  /metrics               Prometheus metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", models.DefaultConfig().Addr, "Listen address")
	if err := v.BindPFlag("addr", serveCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		cfg.Paths = args
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := startTracing(cfg)
	if err != nil {
		return err
	}
	defer shutdown()
	telemetry.InitMetrics()

	s, err := newScanner(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize scanner: %w", err)
	}

	run := func(ctx context.Context) (*models.Report, error) {
		report, err := s.Scan(ctx)
		if err != nil {
			return nil, err
		}
		if cfg.Persist {
			if err := persist(ctx, cfg, report); err != nil {
				logging.L("cmd").Warn("failed to record run", zap.Error(err))
			}
		}
		return report, nil
	}

	srv := server.New(run, cfg.TopN)
	if _, err := srv.Refresh(ctx); err != nil {
		// Keep serving; /api/refresh can retry once the upstream recovers
		logging.L("cmd").Warn("initial correlation failed", zap.Error(err))
	}
	return srv.ListenAndServe(ctx, cfg.Addr)
}
