// Package observability hosts the Prometheus collectors and telemetry wiring
// shared across the daemon.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	engineMetricsOnce sync.Once
	engineRegistry    *EngineMetrics
)

// EngineMetrics wraps collectors tracking accrual and settlement health.
type EngineMetrics struct {
	accruals    prometheus.Counter
	settlements *prometheus.CounterVec
	latency     prometheus.Histogram
	sessions    prometheus.Gauge
	errors      *prometheus.CounterVec
}

// Engine returns the lazily initialised engine metrics registry.
func Engine() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			accruals: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "earnd",
				Subsystem: "engine",
				Name:      "accruals_total",
				Help:      "Total accrual ticks applied to wallet sessions.",
			}),
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "earnd",
				Subsystem: "engine",
				Name:      "settlements_total",
				Help:      "Settlement attempts segmented by outcome.",
			}, []string{"outcome"}),
			latency: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "earnd",
				Subsystem: "engine",
				Name:      "settlement_duration_seconds",
				Help:      "Latency distribution for settlement attempts including on-chain confirmation.",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			}),
			sessions: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "earnd",
				Subsystem: "engine",
				Name:      "active_sessions",
				Help:      "Number of wallet sessions currently tracked in memory.",
			}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "earnd",
				Subsystem: "engine",
				Name:      "errors_total",
				Help:      "Engine errors segmented by reason.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			engineRegistry.accruals,
			engineRegistry.settlements,
			engineRegistry.latency,
			engineRegistry.sessions,
			engineRegistry.errors,
		)
	})
	return engineRegistry
}

// RecordAccrual counts one applied accrual tick.
func (m *EngineMetrics) RecordAccrual() {
	if m == nil {
		return
	}
	m.accruals.Inc()
}

// ObserveSettlement records a settlement attempt outcome and its duration.
func (m *EngineMetrics) ObserveSettlement(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.settlements.WithLabelValues(outcome).Inc()
	m.latency.Observe(d.Seconds())
}

// SetActiveSessions updates the tracked session gauge.
func (m *EngineMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// RecordError increments the error counter for the supplied reason. Reasons
// should be stable strings such as "mint" or "timeout" so dashboards stay
// consistent.
func (m *EngineMetrics) RecordError(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.errors.WithLabelValues(reason).Inc()
}
