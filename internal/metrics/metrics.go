// Package metrics holds the Prometheus collectors shared across services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "thatonemovie"

var (
	// CatalogRequests counts TMDB calls by operation and outcome.
	CatalogRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_requests_total",
		Help:      "Movie catalog requests by operation and outcome.",
	}, []string{"operation", "outcome"})

	// CompletionRequests counts text-completion calls by outcome
	// (success, error, rejected).
	CompletionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completion_requests_total",
		Help:      "Text completion requests by outcome.",
	}, []string{"outcome"})

	CompletionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "completion_duration_seconds",
		Help:      "Latency of text completion requests.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
	})

	// Recommendations counts generated AI recommendation lists by source
	// (parsed, fallback_parse, fallback_transport).
	Recommendations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recommendations_total",
		Help:      "AI recommendation lists generated, by source.",
	}, []string{"source"})

	// RecommendationDuration covers generation plus enrichment.
	RecommendationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "recommendation_duration_seconds",
		Help:      "End-to-end latency of AI recommendation requests.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	// EnrichmentLookups counts per-entry catalog lookups by result
	// (matched, unmatched, error).
	EnrichmentLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enrichment_lookups_total",
		Help:      "Catalog lookups made while enriching recommendations.",
	}, []string{"result"})

	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open).",
	}, []string{"name"})
)
