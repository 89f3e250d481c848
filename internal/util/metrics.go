package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RFPsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rfps_submitted_total",
		Help: "Total number of RFPs submitted",
	})

	BidsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bids_generated_total",
		Help: "Total number of bids assembled and awaiting approval",
	})

	RunsNoBidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_runs_no_bid_total",
		Help: "Total number of pipeline runs ending without a viable bid",
	})

	RunsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_runs_failed_total",
		Help: "Total number of failed pipeline runs",
	}, []string{"reason"})

	BidsDecidedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bids_decided_total",
		Help: "Total number of bid approval decisions",
	}, []string{"decision"})

	PipelineRunLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_run_latency_seconds",
		Help:    "End-to-end latency of pipeline runs",
		Buckets: prometheus.DefBuckets,
	})

	CatalogSnapshotMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_snapshot_misses_total",
		Help: "Catalog snapshot cache misses served from the database",
	})

	ExtractionAssistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "extraction_assist_failures_total",
		Help: "Extraction assist calls that fell back to the heuristic parser",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
