package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExecsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrub_execs_total",
			Help: "Total number of harness executions by outcome",
		},
		[]string{"outcome"},
	)

	CrashersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scrub_crashers_total",
			Help: "Total number of new (deduplicated) crashers persisted",
		},
	)

	CrasherInsertFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scrub_crasher_insert_failures_total",
			Help: "Total number of crasher persistence failures",
		},
	)

	ExecDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scrub_exec_duration_seconds",
			Help:    "Time taken per harness execution",
			Buckets: prometheus.DefBuckets,
		},
	)

	CorpusEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scrub_corpus_entries",
			Help: "Number of corpus entries loaded",
		},
	)

	RedactionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scrub_redactions_total",
			Help: "Total number of values redacted by the sanitizer",
		},
	)

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrub_api_requests_total",
			Help: "Total number of sanitize API requests by status",
		},
		[]string{"status"},
	)
)
