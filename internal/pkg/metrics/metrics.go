// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "credit_approval"

var (
	// Decisions counts eligibility and create-loan outcomes.
	// outcome is "approved" or a rejection reason.
	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decisions_total",
		Help:      "Credit decisions by operation and outcome.",
	}, []string{"operation", "outcome"})

	// DecisionDuration observes end-to-end decision latency
	DecisionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "decision_duration_seconds",
		Help:      "Latency of credit decisions.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	LoansCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loans_created_total",
		Help:      "Loans committed.",
	})

	// ResourceBusy counts requests rejected because a customer lock was held
	ResourceBusy = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resource_busy_total",
		Help:      "Requests that timed out waiting for a customer lock.",
	})

	ScoreCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "score_cache_lookups_total",
		Help:      "Score cache lookups by result.",
	}, []string{"result"})

	// IngestionRows counts ingested rows by source and result
	IngestionRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingestion_rows_total",
		Help:      "Ingested rows by source and result.",
	}, []string{"source", "result"})

	IngestionJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingestion_jobs_total",
		Help:      "Finished ingestion jobs by status.",
	}, []string{"status"})

	LoansClosed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loans_closed_total",
		Help:      "Matured loans closed by the daily job.",
	})
)

// Handler serves the default registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.Handler()
}
