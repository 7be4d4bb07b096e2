package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rag_cache_lookups_total",
		Help: "Response cache lookups by result (hit/miss/stale)",
	}, []string{"result"})

	queryLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rag_query_latency_ms",
		Help:    "End-to-end latency of orchestrated queries in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 180000, 300000},
	}, []string{"mode", "outcome"})

	retries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rag_query_retries_total",
		Help: "Retries issued after retryable backend failures",
	}, []string{"mode"})

	streamEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rag_stream_events_total",
		Help: "Streaming events received from the backend",
	}, []string{"stage", "status"})

	proxyRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rag_proxy_requests_total",
		Help: "Requests relayed through the same-origin proxy",
	}, []string{"endpoint", "code"})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(cacheLookups, queryLatency, retries, streamEvents, proxyRequests)
	})
}

func ObserveCacheLookup(result string) {
	ensureRegistered()
	cacheLookups.WithLabelValues(result).Inc()
}

func ObserveQuery(mode, outcome string, start time.Time) {
	ensureRegistered()
	queryLatency.WithLabelValues(mode, outcome).Observe(float64(time.Since(start).Milliseconds()))
}

func ObserveRetry(mode string) {
	ensureRegistered()
	retries.WithLabelValues(mode).Inc()
}

func ObserveStreamEvent(stage, status string) {
	ensureRegistered()
	streamEvents.WithLabelValues(stage, status).Inc()
}

func ObserveProxy(endpoint string, code int) {
	ensureRegistered()
	proxyRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

// Register makes sure collectors exist before /metrics is first scraped.
func Register() {
	ensureRegistered()
}
