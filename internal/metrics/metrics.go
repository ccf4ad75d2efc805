// Package metrics holds the prometheus collectors exported on /metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsLoaded counts rows accepted per dataset
	RowsLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apartments",
		Name:      "dataset_rows_loaded_total",
		Help:      "Rows loaded per dataset.",
	}, []string{"resource"})

	// RowsSkipped counts malformed rows dropped per dataset and reason
	RowsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apartments",
		Name:      "dataset_rows_skipped_total",
		Help:      "Malformed rows skipped per dataset.",
	}, []string{"resource", "reason"})

	// SnapshotLoadedAt is the unix time of the snapshot currently served
	SnapshotLoadedAt = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "apartments",
		Name:      "snapshot_loaded_timestamp_seconds",
		Help:      "Unix time the served dataset snapshot was built.",
	})

	// ConsistencyFindings holds the counters of the last consistency run
	ConsistencyFindings = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "apartments",
		Name:      "consistency_findings",
		Help:      "Findings of the most recent consistency check by category.",
	}, []string{"category"})

	// HTTPRequests counts served requests by route and status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apartments",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"route", "status"})

	// HTTPDuration observes request latency by route
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "apartments",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)
