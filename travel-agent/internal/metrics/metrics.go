// Package metrics exposes the assistant's Prometheus collectors.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	routeDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "travel_route_decisions_total",
		Help: "Routes chosen by the router",
	}, []string{"route"})

	routerFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "travel_router_fallbacks_total",
		Help: "Router failures degraded to the none route",
	})

	stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "travel_stage_duration_seconds",
		Help:    "Duration of workflow stages",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
	}, []string{"stage"})

	retrievals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "travel_retrieval_total",
		Help: "Retrieval adapter outcomes",
	}, []string{"backend", "status"})

	synthesisFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "travel_synthesis_failures_total",
		Help: "Answers replaced by the apology message",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "travel_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"path", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "travel_http_request_duration_seconds",
		Help: "Duration of HTTP requests",
	}, []string{"path"})

	ingestBatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "travel_ingest_batches_total",
		Help: "Vector upload batches by outcome",
	}, []string{"status"})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(routeDecisions, routerFallbacks, stageDuration, retrievals,
			synthesisFailures, httpRequests, httpDuration, ingestBatches)
	})
}

// IncRoute counts a router decision.
func IncRoute(route string) {
	ensureRegistered()
	routeDecisions.WithLabelValues(route).Inc()
}

func IncRouterFallback() {
	ensureRegistered()
	routerFallbacks.Inc()
}

// ObserveStage records how long a workflow stage took.
func ObserveStage(stage string, start time.Time) {
	ensureRegistered()
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// IncRetrieval counts an adapter outcome; status is "ok", "empty" or "error".
func IncRetrieval(backend, status string) {
	ensureRegistered()
	retrievals.WithLabelValues(backend, status).Inc()
}

func IncSynthesisFailure() {
	ensureRegistered()
	synthesisFailures.Inc()
}

// ObserveHTTP records one served request.
func ObserveHTTP(path, status string, start time.Time) {
	ensureRegistered()
	httpRequests.WithLabelValues(path, status).Inc()
	httpDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
}

func IncIngestBatch(status string) {
	ensureRegistered()
	ingestBatches.WithLabelValues(status).Inc()
}
