// Package metrics publishes the process's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BatchRows counts batch rows by outcome (inserted, updated, skipped).
	BatchRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finstmt_batch_rows_total",
		Help: "Batch ingestion rows by outcome.",
	}, []string{"record_type", "outcome"})

	// BatchRejected counts whole-batch rejections (size ceiling, bad payload).
	BatchRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finstmt_batch_rejected_total",
		Help: "Batches rejected before any row was processed.",
	})

	// QueryFailures counts backend operations surfacing QueryFailed errors.
	QueryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finstmt_query_failures_total",
		Help: "Backend operations that failed.",
	})
)
