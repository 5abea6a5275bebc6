package provider

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// providerReqs counts backend calls by provider and outcome (ok|error|unavailable).
	providerReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of text-generation backend calls.",
		},
		[]string{"provider", "outcome"},
	)

	// providerLat records backend call latency in seconds. Replies from real
	// backends routinely take seconds, so buckets reach a minute.
	providerLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Duration of text-generation backend calls in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"provider"},
	)

	// providerFallbacks counts replies served by the mock after a backend failed.
	providerFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_fallbacks_total",
			Help: "Replies served by the mock backend after the selected backend failed.",
		},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(providerReqs, providerLat, providerFallbacks)
}

func observe(kind Kind, err error, took time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	providerReqs.WithLabelValues(string(kind), outcome).Inc()
	providerLat.WithLabelValues(string(kind)).Observe(took.Seconds())
}
