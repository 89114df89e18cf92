// Package monitoring exposes Prometheus metrics for plan generation.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's instrument set.
type Metrics struct {
	registry *prometheus.Registry

	SlotsTotal          *prometheus.CounterVec
	FallbackPadding     prometheus.Counter
	GenerationRequests  *prometheus.CounterVec
	SearchFallbacks     prometheus.Counter
	ResponseCacheHits   prometheus.Counter
	ResponseCacheMisses prometheus.Counter
	SlotDuration        prometheus.Histogram
	PlansTotal          *prometheus.CounterVec
}

// NewMetrics registers all instruments on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SlotsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mealplanner",
			Name:      "slots_total",
			Help:      "Slots finalized, by how they were filled.",
		}, []string{"outcome"}),
		FallbackPadding: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mealplanner",
			Name:      "fallback_padding_total",
			Help:      "Suggestions sourced from the fallback catalog.",
		}),
		GenerationRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mealplanner",
			Name:      "generation_requests_total",
			Help:      "Calls to the generation backend, by result.",
		}, []string{"status"}),
		SearchFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mealplanner",
			Name:      "search_keyword_fallbacks_total",
			Help:      "Similarity searches degraded to keyword search.",
		}),
		ResponseCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mealplanner",
			Name:      "response_cache_hits_total",
			Help:      "Slot responses served from cache.",
		}),
		ResponseCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mealplanner",
			Name:      "response_cache_misses_total",
			Help:      "Slot cache lookups that missed.",
		}),
		SlotDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mealplanner",
			Name:      "slot_duration_seconds",
			Help:      "Time to finalize one slot.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		PlansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mealplanner",
			Name:      "plans_total",
			Help:      "Plan requests, by final status.",
		}, []string{"status"}),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
