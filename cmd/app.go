package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ethanolivertroy/psirt-check/internal/cache"
	"github.com/ethanolivertroy/psirt-check/internal/clients"
	"github.com/ethanolivertroy/psirt-check/internal/config"
	"github.com/ethanolivertroy/psirt-check/internal/correlator"
	"github.com/ethanolivertroy/psirt-check/internal/features"
	"github.com/ethanolivertroy/psirt-check/internal/inventory"
	"github.com/ethanolivertroy/psirt-check/internal/logging"
	"github.com/ethanolivertroy/psirt-check/internal/models"
	"github.com/ethanolivertroy/psirt-check/internal/reporter"
	"github.com/ethanolivertroy/psirt-check/internal/risk"
	"github.com/ethanolivertroy/psirt-check/internal/scanner"
	"github.com/ethanolivertroy/psirt-check/internal/store"
	"github.com/ethanolivertroy/psirt-check/internal/telemetry"
)

// newScanner wires the inventory provider, advisory source and correlator
func newScanner(ctx context.Context, cfg *models.Config) (*scanner.Scanner, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	source, err := newAdvisorySource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	fm, err := loadFeatureMap(cfg)
	if err != nil {
		return nil, err
	}

	c := correlator.New(source,
		correlator.WithFeatureMap(fm),
		correlator.WithConcurrency(cfg.MaxConcurrent),
	)
	return scanner.New(provider, c, scanner.WithTopN(cfg.TopN)), nil
}

func newProvider(cfg *models.Config) (inventory.Provider, error) {
	switch strings.ToLower(cfg.Source) {
	case "file", "":
		return inventory.NewFileProvider(cfg.Paths...), nil
	case "dnac":
		return clients.NewDNACClient(cfg.DNAC, cfg.Timeout, cfg.MaxConcurrent), nil
	case "snmp":
		p := inventory.NewSNMPProvider(cfg.SNMP.Targets, cfg.SNMP.Community, cfg.SNMP.Port, cfg.SNMP.Timeout)
		p.Workers = cfg.MaxConcurrent
		return p, nil
	default:
		return nil, fmt.Errorf("unknown inventory source %q", cfg.Source)
	}
}

func newAdvisorySource(ctx context.Context, cfg *models.Config) (correlator.AdvisorySource, error) {
	if err := config.RequireCredentials(cfg); err != nil {
		return nil, err
	}

	var c *cache.Cache
	if !cfg.NoCache {
		var err error
		c, err = cache.New("psirt-check", cfg.CacheTTL)
		if err != nil {
			// Non-fatal: continue without cache
			logging.L("cmd").Warn("advisory cache disabled", zap.Error(err))
			c = nil
		} else if n, err := c.Prune(); err == nil && n > 0 {
			logging.L("cmd").Debug("pruned expired cache entries", zap.Int("removed", n))
		}
	}
	return clients.NewPSIRTClient(ctx, cfg.PSIRT, cfg.Timeout, c), nil
}

func loadFeatureMap(cfg *models.Config) (features.Map, error) {
	if cfg.FeatureMap == "" {
		return features.Default(), nil
	}
	fm, err := features.Load(cfg.FeatureMap)
	if err != nil {
		return nil, fmt.Errorf("failed to load feature map: %w", err)
	}
	return fm, nil
}

// writeReport renders the report in the configured format to stdout or the output file
func writeReport(cfg *models.Config, report *models.Report) error {
	view := *report
	if cfg.Severity != "" {
		view.Results = risk.FilterBySeverity(report.Results, models.ParseSeverity(cfg.Severity))
	}

	color := cfg.OutputFile == "" && reporter.ColorEnabled(os.Stdout)
	rep := reporter.Get(strings.ToLower(cfg.OutputFormat), color)
	output, err := rep.Report(&view)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	// Write output
	if cfg.OutputFile != "" {
		if err := os.WriteFile(cfg.OutputFile, output, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", cfg.OutputFile)
		return nil
	}
	_, err = os.Stdout.Write(output)
	return err
}

func openStore(cfg *models.Config) (*store.Store, error) {
	path := cfg.DBPath
	if path == "" {
		var err error
		if path, err = store.DefaultPath(); err != nil {
			return nil, fmt.Errorf("failed to resolve history database path: %w", err)
		}
	}
	return store.Open(path)
}

func persist(ctx context.Context, cfg *models.Config, report *models.Report) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveReport(ctx, report); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	logging.L("cmd").Info("run recorded", zap.String(logging.KeyRunID, report.RunID))
	return nil
}

// startTracing installs the span exporter when tracing is enabled and
// returns a function that flushes it
func startTracing(cfg *models.Config) (func(), error) {
	if !cfg.Trace {
		return func() {}, nil
	}
	shutdown, err := telemetry.InitTracer(os.Stderr, version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logging.L("cmd").Warn("failed to flush spans", zap.Error(err))
		}
	}, nil
}
