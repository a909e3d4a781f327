// Package metrics declares the Prometheus instruments of the monitor. They
// are registered on the default registry and served by the health server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vita_polls_total",
		Help: "Poll ticks that ran a fetch",
	})
	PollFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vita_poll_failures_total",
		Help: "Poll ticks whose fetch failed",
	})
	PollEmpty = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vita_poll_empty_total",
		Help: "Poll ticks that returned no readings",
	})
	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vita_fetch_duration_seconds",
		Help:    "Duration of one fetch including retries",
		Buckets: prometheus.DefBuckets,
	})
	LastPublish = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vita_last_publish_timestamp_seconds",
		Help: "Unix time of the last published reading",
	})
	CurrentRiskTier = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vita_current_risk_tier",
		Help: "Tier of the current reading: 0 unknown, 1 low, 2 medium, 3 high",
	})
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vita_source_breaker_state",
		Help: "Circuit breaker state of a source: 0 closed, 1 half-open, 2 open",
	}, []string{"source"})
)
