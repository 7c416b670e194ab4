package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jobsift"

// Pipeline Prometheus metrics.
var (
	SourceFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetches_total",
			Help:      "Source fetches by outcome",
		},
		[]string{"source", "status"}, // "ok" / "empty" / "fault" / "timeout" / "fallback"
	)

	SourceFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Source fetch duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"source"},
	)

	SourcePostingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_postings_total",
			Help:      "Valid postings returned per source",
		},
		[]string{"source"},
	)

	DedupDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_dropped_total",
			Help:      "Postings dropped as duplicates",
		},
	)

	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by mode and status",
		},
		[]string{"mode", "status"}, // status: "ok" / "fallback" / "cached" / "error"
	)

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end pipeline duration in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"mode"},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_total",
			Help:      "Result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

func init() {
	prometheus.MustRegister(
		SourceFetchesTotal,
		SourceFetchDuration,
		SourcePostingsTotal,
		DedupDroppedTotal,
		PipelineRunsTotal,
		PipelineDuration,
		CacheTotal,
	)
}

// ObserveFetch records one source fetch.
func ObserveFetch(source, status string, postings int, elapsed time.Duration) {
	SourceFetchesTotal.WithLabelValues(source, status).Inc()
	SourceFetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	if postings > 0 {
		SourcePostingsTotal.WithLabelValues(source).Add(float64(postings))
	}
}

// ObserveRun records one pipeline run.
func ObserveRun(mode, status string, elapsed time.Duration) {
	PipelineRunsTotal.WithLabelValues(mode, status).Inc()
	PipelineDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// CacheHit records a cache lookup result.
func CacheHit(hit bool) {
	if hit {
		CacheTotal.WithLabelValues("hit").Inc()
		return
	}
	CacheTotal.WithLabelValues("miss").Inc()
}
