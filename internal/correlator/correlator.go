// Package correlator determines, for every device in an inventory, which
// vendor advisories actually apply to it.
package correlator

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ethanolivertroy/psirt-check/internal/cache"
	"github.com/ethanolivertroy/psirt-check/internal/features"
	"github.com/ethanolivertroy/psirt-check/internal/logging"
	"github.com/ethanolivertroy/psirt-check/internal/models"
	"github.com/ethanolivertroy/psirt-check/internal/osdetect"
	"github.com/ethanolivertroy/psirt-check/internal/telemetry"
)

// AdvisorySource returns the raw advisories published for an OS type and version
type AdvisorySource interface {
	Fetch(ctx context.Context, osType models.OSType, version string) ([]models.Advisory, error)
}

// SourceFunc adapts a function to AdvisorySource
type SourceFunc func(ctx context.Context, osType models.OSType, version string) ([]models.Advisory, error)

// Fetch calls f
func (f SourceFunc) Fetch(ctx context.Context, osType models.OSType, version string) ([]models.Advisory, error) {
	return f(ctx, osType, version)
}

// DefaultConcurrency bounds concurrent advisory fetches
const DefaultConcurrency = 8

// Correlator orchestrates classification, advisory lookup and relevance filtering
type Correlator struct {
	source      AdvisorySource
	features    features.Map
	concurrency int
	logger      *zap.Logger
}

// Option configures a Correlator
type Option func(*Correlator)

// WithFeatureMap replaces the built-in feature table
func WithFeatureMap(m features.Map) Option {
	return func(c *Correlator) {
		if m != nil {
			c.features = m
		}
	}
}

// WithConcurrency sets how many distinct (OS type, version) pairs are fetched at once
func WithConcurrency(n int) Option {
	return func(c *Correlator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Correlator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Correlator backed by the given advisory source
func New(source AdvisorySource, opts ...Option) *Correlator {
	c := &Correlator{
		source:      source,
		features:    features.Default(),
		concurrency: DefaultConcurrency,
		logger:      logging.L("correlator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Correlate returns one result per device, in inventory order. Each distinct
// (OS type, version) pair is fetched at most once; a failed fetch yields no
// advisories for that pair and a Diagnostic, never an error.
func (c *Correlator) Correlate(ctx context.Context, inventory []models.Device) ([]models.CorrelationResult, []models.Diagnostic) {
	ctx, span := telemetry.Tracer().Start(ctx, "correlate")
	defer span.End()
	span.SetAttributes(attribute.Int("devices", len(inventory)))

	if len(inventory) == 0 {
		return []models.CorrelationResult{}, nil
	}

	// Step 1: Classify every device and collect the distinct cache keys
	keys := make([]cache.Key, len(inventory))
	var unique []cache.Key
	devicesPerKey := make(map[cache.Key]int)
	for i, device := range inventory {
		osType := osdetect.Classify(device)
		c.logger.Debug("classified device",
			zap.String(logging.KeyHostname, device.Hostname),
			zap.String("platform", device.PlatformID),
			zap.String(logging.KeyOSType, string(osType)),
		)

		key := cache.Key{OSType: osType, Version: device.SoftwareVersion}
		keys[i] = key
		if devicesPerKey[key] == 0 {
			unique = append(unique, key)
			telemetry.CacheLookups.WithLabelValues("miss").Inc()
		} else {
			telemetry.CacheLookups.WithLabelValues("hit").Inc()
		}
		devicesPerKey[key]++
	}

	// Step 2: Fetch each distinct key once, concurrently
	runCache := cache.NewRunCache()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, key := range unique {
		g.Go(func() error {
			runCache.Get(gctx, key, c.fetch)
			return nil
		})
	}
	_ = g.Wait()

	var diagnostics []models.Diagnostic
	for _, key := range unique {
		if err := runCache.Err(key); err != nil {
			diagnostics = append(diagnostics, models.Diagnostic{
				OSType:  key.OSType,
				Version: key.Version,
				Devices: devicesPerKey[key],
				Message: err.Error(),
			})
		}
	}

	// Step 3: Filter each device's advisories against its own configuration
	results := make([]models.CorrelationResult, len(inventory))
	for i, device := range inventory {
		key := keys[i]
		raw, _ := runCache.Lookup(key)

		results[i] = models.CorrelationResult{
			Device:     device,
			OSType:     key.OSType,
			Advisories: c.filter(raw, device.Config),
		}
		telemetry.DevicesCorrelated.Inc()
	}

	span.SetAttributes(
		attribute.Int("cache_keys", len(unique)),
		attribute.Int("fetch_failures", len(diagnostics)),
	)
	return results, diagnostics
}

// fetch calls the advisory source for a key that is not yet cached
func (c *Correlator) fetch(ctx context.Context, key cache.Key) ([]models.Advisory, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "advisory.fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("os_type", string(key.OSType)),
		attribute.String("version", key.Version),
	)
	advisories, err := c.source.Fetch(ctx, key.OSType, key.Version)
	if err != nil {
		telemetry.AdvisoryFetches.WithLabelValues(string(key.OSType), "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("advisory fetch failed, treating as no advisories",
			zap.String(logging.KeyOSType, string(key.OSType)),
			zap.String(logging.KeyVersion, key.Version),
			zap.Error(err),
		)
		return nil, err
	}

	telemetry.AdvisoryFetches.WithLabelValues(string(key.OSType), "ok").Inc()
	span.SetAttributes(attribute.Int("advisories", len(advisories)))
	return advisories, nil
}

// filter keeps the advisories relevant to the configuration. The raw slice
// is shared between devices and is never modified.
func (c *Correlator) filter(raw []models.Advisory, config string) []models.Advisory {
	relevant := make([]models.Advisory, 0, len(raw))
	for _, adv := range raw {
		if c.features.IsRelevant(adv, config) {
			relevant = append(relevant, adv)
			continue
		}
		telemetry.AdvisoriesFiltered.WithLabelValues(strings.ToLower(strings.TrimSpace(adv.Feature))).Inc()
	}
	return relevant
}
