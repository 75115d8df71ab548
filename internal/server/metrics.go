// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendarb_fetches_total",
			Help: "Provider fetch attempts by outcome (ok, transient, permanent)",
		},
		[]string{"provider", "outcome"},
	)

	analyzeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendarb_analyze_requests_total",
			Help: "Analyze API requests by HTTP status",
		},
		[]string{"status"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trendarb_run_duration_seconds",
			Help:    "End-to-end duration of analysis runs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
)

// FetchObserver forwards engine fetch outcomes to Prometheus counters.
type FetchObserver struct{}

// FetchCompleted implements engine.Observer.
func (FetchObserver) FetchCompleted(provider, outcome string) {
	fetchesTotal.WithLabelValues(provider, outcome).Inc()
}
