package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// AdvisoryFetches counts advisory source calls by outcome ("ok", "error")
	AdvisoryFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "psirt_check",
			Name:      "advisory_fetches_total",
			Help:      "Total number of advisory source fetches",
		},
		[]string{"os_type", "outcome"},
	)

	// CacheLookups counts per-run advisory cache lookups ("hit", "miss")
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "psirt_check",
			Name:      "advisory_cache_lookups_total",
			Help:      "Total number of per-run advisory cache lookups",
		},
		[]string{"result"},
	)

	// DevicesCorrelated counts devices processed by the correlation engine
	DevicesCorrelated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "psirt_check",
			Name:      "devices_correlated_total",
			Help:      "Total number of devices correlated against advisories",
		},
	)

	// AdvisoriesFiltered counts advisories ruled out by device configuration
	AdvisoriesFiltered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "psirt_check",
			Name:      "advisories_filtered_total",
			Help:      "Total number of advisories excluded because the feature is not configured",
		},
		[]string{"feature"},
	)

	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// It is idempotent.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(AdvisoryFetches)
		prometheus.DefaultRegisterer.Register(CacheLookups)
		prometheus.DefaultRegisterer.Register(DevicesCorrelated)
		prometheus.DefaultRegisterer.Register(AdvisoriesFiltered)
	})
}
