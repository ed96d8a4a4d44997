package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricEntriesSeen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kennisbank_feed_entries_total",
		Help: "Feed entries seen across all ingestion runs",
	})
	metricRelevant = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kennisbank_relevant_entries_total",
		Help: "Entries that passed the relevance classifier, by tier",
	}, []string{"tier"})
	metricResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kennisbank_resolved_documents_total",
		Help: "Resolved documents, by payload kind",
	}, []string{"kind"})
	metricStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kennisbank_documents_stored_total",
		Help: "Documents written to the store",
	})
	metricFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kennisbank_ingest_failures_total",
		Help: "Per-entry ingestion failures, by stage",
	}, []string{"stage"})
	metricRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kennisbank_ingestion_run_seconds",
		Help:    "Wall time of a full ingestion run",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
)
