// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	ProbesIssued        prometheus.Counter
	VideosDiscovered    prometheus.Counter
	DeliveriesSucceeded prometheus.Counter
	DeliveriesFailed    prometheus.Counter
	MembershipDenied    prometheus.Counter
	ScanRuns            prometheus.Counter

	// Histograms (seconds)
	DeliveryDuration prometheus.Observer

	// Gauges
	CatalogSizeGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ProbesIssued = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_probes_total", Help: "Number of message existence probes issued"})
		VideosDiscovered = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_videos_discovered_total", Help: "Number of new videos added to the catalog"})
		DeliveriesSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_deliveries_succeeded_total", Help: "Number of videos successfully relayed to users"})
		DeliveriesFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_deliveries_failed_total", Help: "Number of video relay attempts that failed"})
		MembershipDenied = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_membership_denied_total", Help: "Number of requests denied by the membership gate"})
		ScanRuns = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_scan_runs_total", Help: "Number of channel scan runs completed"})
		DeliveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "relay_delivery_duration_seconds", Help: "Delivery attempt duration seconds", Buckets: prometheus.DefBuckets})
		CatalogSizeGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "relay_catalog_size", Help: "Current number of videos in the catalog"})
	})
}

// SetCatalogSize records the current catalog length.
func SetCatalogSize(n int) {
	if CatalogSizeGauge != nil {
		CatalogSizeGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
