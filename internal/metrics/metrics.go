// Package metrics exposes Prometheus collectors for the discovery
// pipeline. All collectors register on the default registry and are
// served from the HTTP /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run lifecycle
	RunsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scout_runs_started_total",
			Help: "Total number of discovery runs started",
		},
	)

	RunsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_runs_finished_total",
			Help: "Total number of discovery runs finished, by terminal status",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scout_run_duration_seconds",
			Help:    "Discovery run wall-clock duration in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		},
	)

	RunResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scout_run_results",
			Help:    "Competitors persisted per completed run",
			Buckets: []float64{0, 1, 3, 5, 10, 15, 25, 50},
		},
	)

	// Provider calls
	SearchCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_search_calls_total",
			Help: "Search provider calls, by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	ChatTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_chat_tokens_total",
			Help: "Chat model tokens consumed, by phase and direction",
		},
		[]string{"phase", "direction"},
	)

	SpendUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_spend_usd_total",
			Help: "Estimated provider spend in USD, by phase",
		},
		[]string{"phase"},
	)

	// Enrichment
	EnrichmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scout_enrichment_duration_seconds",
			Help:    "Competitor enrichment duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120},
		},
	)

	EnrichmentCompleteness = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scout_enrichment_completeness",
			Help:    "Profile completeness score after enrichment, 0 to 100",
			Buckets: []float64{10, 25, 50, 75, 90, 100},
		},
	)

	// HTTP surface
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_http_requests_total",
			Help: "HTTP requests served, by route and status class",
		},
		[]string{"route", "status"},
	)

	// Worker queue
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scout_queue_depth",
			Help: "Jobs waiting in the inline worker buffer",
		},
	)

	JobAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_job_attempts_total",
			Help: "Discovery job attempts, by outcome",
		},
		[]string{"outcome"},
	)
)
