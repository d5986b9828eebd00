// Package metrics owns the process-wide Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agri_advisor"

var (
	recommendations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "recommend",
		Name:      "requests_total",
		Help:      "Recommendation pipeline runs by outcome.",
	}, []string{"outcome"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "recommend",
		Name:      "stage_duration_seconds",
		Help:      "Latency of each recommendation pipeline stage.",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"stage"})

	candidatesReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "recommend",
		Name:      "candidates_returned",
		Help:      "Number of candidates in each successful recommendation.",
		Buckets:   prometheus.LinearBuckets(1, 1, 10),
	})

	artifactsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "artifacts",
		Name:      "loaded",
		Help:      "1 when the model artifact bundle is loaded and the service is ready.",
	})

	upstreamFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "fetches_total",
		Help:      "Calls to upstream soil and weather providers by outcome.",
	}, []string{"provider", "outcome"})

	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state per provider (0 closed, 1 half-open, 2 open).",
	}, []string{"provider"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Redis cache lookups by cache and result.",
	}, []string{"cache", "result"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Kafka events published by topic and outcome.",
	}, []string{"topic", "outcome"})
)

func ObserveRecommendation(outcome string, candidates int) {
	recommendations.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		candidatesReturned.Observe(float64(candidates))
	}
}

func ObserveStage(stage string, elapsed time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func SetArtifactsLoaded(loaded bool) {
	if loaded {
		artifactsLoaded.Set(1)
		return
	}
	artifactsLoaded.Set(0)
}

func ObserveUpstream(provider string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	upstreamFetches.WithLabelValues(provider, outcome).Inc()
}

func SetBreakerState(provider string, state int) {
	breakerState.WithLabelValues(provider).Set(float64(state))
}

func ObserveCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(cache, result).Inc()
}

func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func ObserveEvent(topic string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	eventsPublished.WithLabelValues(topic, outcome).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
