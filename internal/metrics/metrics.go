// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation outcomes.
const (
	OutcomeSuccess         = "success"
	OutcomeContentFiltered = "content_filtered"
	OutcomeFailed          = "failed"
	OutcomeError           = "error"
)

var (
	// GenerationsTotal counts finished generations by media kind and outcome.
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jimeng_generations_total",
		Help: "Generations that reached a terminal outcome.",
	}, []string{"kind", "outcome"})

	// GenerationDuration tracks submit-to-terminal latency per media kind.
	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jimeng_generation_duration_seconds",
		Help:    "Time from credit check to terminal job state.",
		Buckets: []float64{5, 10, 20, 30, 60, 120, 240, 480, 900},
	}, []string{"kind"})

	// PollRequestsTotal counts status queries sent while waiting for jobs.
	PollRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jimeng_poll_requests_total",
		Help: "History status queries issued by the poller.",
	}, []string{"kind"})

	// CompletionRetriesTotal counts retries of the completion flow.
	CompletionRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jimeng_completion_retries_total",
		Help: "Retried chat completion attempts.",
	}, []string{"mode"})

	// CreditReceivesTotal counts credit replenishment calls.
	CreditReceivesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jimeng_credit_receives_total",
		Help: "Credit replenishment calls issued for exhausted accounts.",
	})

	// UploadFailuresTotal counts reference image uploads that were skipped.
	UploadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jimeng_upload_failures_total",
		Help: "Reference image uploads that failed and were skipped.",
	})
)
