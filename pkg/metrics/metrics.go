package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline counters, labelled by entity kind. They feed external
// scrapers and the per-phase progress log lines; semantics never depend
// on them.
var (
	BytesRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecotone_bytes_read_total",
		Help: "Decompressed CSV bytes consumed by the importer.",
	}, []string{"kind"})

	RowsRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecotone_rows_read_total",
		Help: "CSV rows parsed from dataset archives.",
	}, []string{"kind"})

	RowsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecotone_rows_failed_total",
		Help: "CSV rows dropped due to parse errors.",
	}, []string{"kind"})

	FramesProduced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecotone_frames_total",
		Help: "Frames decomposed from dataset rows.",
	}, []string{"kind"})

	OperationsProduced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecotone_operations_total",
		Help: "Candidate operations produced by decomposition.",
	}, []string{"kind"})

	OperationsInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecotone_operations_inserted_total",
		Help: "Operations that survived deduplication and were inserted.",
	}, []string{"kind"})

	EntitiesReduced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecotone_entities_reduced_total",
		Help: "Entities reduced to rows during projection.",
	}, []string{"kind"})

	EntitiesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecotone_entities_skipped_total",
		Help: "Entities skipped during projection due to reduce errors.",
	}, []string{"kind"})
)
