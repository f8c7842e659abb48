package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sleuth_queries_total",
		Help: "Queries served, by pipeline path and outcome.",
	}, []string{"path", "status"})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sleuth_query_duration_seconds",
		Help:    "End to end query latency, by pipeline path.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	refinementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sleuth_query_refinements_total",
		Help: "Queries that went through at least one refinement pass.",
	}, []string{"path"})

	ingestedChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sleuth_ingested_chunks_total",
		Help: "Evidence chunks written to the store.",
	})
)

func observeQuery(path string, seconds float64, err error, refined bool) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	queriesTotal.WithLabelValues(path, status).Inc()
	queryDuration.WithLabelValues(path).Observe(seconds)
	if refined {
		refinementsTotal.WithLabelValues(path).Inc()
	}
}
