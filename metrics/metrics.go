// Package metrics exposes Prometheus instrumentation for the diagnosis
// pipeline. All metrics are prefixed with "llmo_" for namespacing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DiagnosesStarted counts diagnosis requests that entered the pipeline.
	DiagnosesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llmo_diagnoses_started_total",
		Help: "Total number of diagnoses started",
	})

	// DiagnosesCompleted counts diagnoses that produced a scored result.
	DiagnosesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llmo_diagnoses_completed_total",
		Help: "Total number of diagnoses completed successfully",
	})

	// DiagnosesFailed counts failures by pipeline stage.
	DiagnosesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmo_diagnoses_failed_total",
			Help: "Total number of failed diagnoses by stage",
		},
		[]string{"stage"}, // "validation", "fetch", "parse", "persist"
	)

	// CacheHits counts diagnoses served from a recent stored result.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llmo_cache_hits_total",
		Help: "Total number of diagnoses served from cache",
	})

	// AIAnalysesFailed counts AI analyses that errored and were skipped.
	AIAnalysesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llmo_ai_analyses_failed_total",
		Help: "Total number of AI analyses that failed",
	})

	// PipelineDuration observes end-to-end diagnosis latency in seconds.
	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "llmo_pipeline_duration_seconds",
		Help:    "Duration of the full diagnosis pipeline in seconds",
		Buckets: prometheus.DefBuckets,
	})
)
