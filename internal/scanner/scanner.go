// Package scanner runs one end-to-end correlation: inventory, advisories,
// ranking and summary.
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ethanolivertroy/psirt-check/internal/correlator"
	"github.com/ethanolivertroy/psirt-check/internal/inventory"
	"github.com/ethanolivertroy/psirt-check/internal/logging"
	"github.com/ethanolivertroy/psirt-check/internal/models"
	"github.com/ethanolivertroy/psirt-check/internal/risk"
	"github.com/ethanolivertroy/psirt-check/internal/summary"
	"github.com/ethanolivertroy/psirt-check/internal/telemetry"
)

// Scanner orchestrates a correlation run
type Scanner struct {
	provider   inventory.Provider
	correlator *correlator.Correlator
	summarizer summary.Summarizer
	topN       int
	now        func() time.Time
	logger     *zap.Logger
}

// Option configures a Scanner
type Option func(*Scanner)

// WithTopN sets how many devices are ranked and summarized. n <= 0 keeps all.
func WithTopN(n int) Option {
	return func(s *Scanner) {
		s.topN = n
	}
}

// WithSummarizer replaces the rule-based summarizer
func WithSummarizer(sum summary.Summarizer) Option {
	return func(s *Scanner) {
		if sum != nil {
			s.summarizer = sum
		}
	}
}

// WithClock overrides the report timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		s.now = now
	}
}

// New creates a new Scanner reading devices from provider
func New(provider inventory.Provider, c *correlator.Correlator, opts ...Option) *Scanner {
	s := &Scanner{
		provider:   provider,
		correlator: c,
		summarizer: summary.RuleBased{},
		topN:       risk.DefaultTopN,
		now:        time.Now,
		logger:     logging.L("scanner"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan performs the full run and returns its report
func (s *Scanner) Scan(ctx context.Context) (*models.Report, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "scan")
	defer span.End()

	// Step 1: Load the device inventory
	devices, err := s.provider.Devices(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	span.SetAttributes(attribute.Int("devices", len(devices)))
	s.logger.Info("inventory loaded", zap.Int("devices", len(devices)))

	// Step 2: Correlate against advisories; lookup failures become diagnostics
	results, diagnostics := s.correlator.Correlate(ctx, devices)

	// Step 3: Rank and summarize
	ranked := risk.Rank(results, s.topN)
	digests := summary.Build(ranked, s.topN)
	text, err := s.summarizer.Summarize(ctx, digests)
	if err != nil {
		s.logger.Warn("summarizer failed, using rule-based summary", zap.Error(err))
		text = summary.Markdown(digests)
	}

	report := &models.Report{
		RunID:          uuid.NewString(),
		GeneratedAt:    s.now().UTC(),
		Results:        results,
		Ranked:         ranked,
		Digests:        digests,
		Summary:        text,
		SeverityCounts: risk.CountBySeverity(results),
		Diagnostics:    diagnostics,
	}
	s.logger.Info("run complete",
		zap.String(logging.KeyRunID, report.RunID),
		zap.Int("affected", report.AffectedDevices()),
		zap.Int("advisories", report.AdvisoryCount()),
		zap.Int("lookupFailures", len(diagnostics)),
	)
	return report, nil
}
