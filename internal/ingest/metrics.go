package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "idr",
		Subsystem: "ingest",
		Name:      "records_inserted_total",
		Help:      "Dispute records newly inserted into the store",
	})

	recordsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "idr",
		Subsystem: "ingest",
		Name:      "records_updated_total",
		Help:      "Dispute records replaced by a later export (last-write-wins)",
	})

	recordsMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "idr",
		Subsystem: "ingest",
		Name:      "records_malformed_total",
		Help:      "Raw records skipped because type coercion failed",
	})

	batchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "idr",
		Subsystem: "ingest",
		Name:      "batches_total",
		Help:      "Ingestion batches applied to the store",
	})
)
