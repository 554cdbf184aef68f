package sync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_sync_runs_total",
			Help: "Total number of sync runs by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	syncRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_sync_run_duration_seconds",
			Help:    "Duration of completed sync runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		},
		[]string{"kind"},
	)

	syncDocumentsIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_sync_documents_indexed_total",
			Help: "Total number of documents imported into the search index",
		},
		[]string{"collection"},
	)

	syncDocumentsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_sync_documents_deleted_total",
			Help: "Total number of documents deleted from the search index",
		},
	)
)
