/*
Package metrics exposes the pipeline's prometheus counters and the
per-phase progress tracker that feeds the human-facing progress lines.

Counters are observational only: semantics never depend on them, and a
scraper being absent costs nothing. The same numbers drive both the
prometheus registry and the periodic progress log line, so operators at
a terminal and dashboards see one consistent accounting.

# Architecture

	┌────────────────────── METRICS FLOW ───────────────────────┐
	│                                                             │
	│  pipeline stages                                            │
	│  ┌───────────┐ ┌───────────┐ ┌───────────┐ ┌───────────┐  │
	│  │ CountingReader│ framer  │ │ dedup/insert│ │ projector │  │
	│  └─────┬─────┘ └─────┬─────┘ └─────┬─────┘ └─────┬─────┘  │
	│        │ AddBytes    │ AddRows     │ AddInserted │ AddReduced│
	│        │             │ AddFrames   │ AddOperations AddSkipped│
	│  ┌─────▼─────────────▼─────────────▼─────────────▼──────┐  │
	│  │              Progress (one per phase)                 │  │
	│  │  - atomic counters                                    │  │
	│  │  - ticker goroutine → periodic "progress" log line    │  │
	│  │  - Stop() → final "phase finished" summary            │  │
	│  └───────────────────────────┬──────────────────────────┘  │
	│                              │ mirrored per Add*             │
	│  ┌───────────────────────────▼──────────────────────────┐  │
	│  │        prometheus counters (label: kind)              │  │
	│  └──────────────────────────────────────────────────────┘  │
	└─────────────────────────────────────────────────────────────┘

# Metrics Catalog

All counters carry a single label, kind, naming the entity kind the
phase is processing:

	ecotone_bytes_read_total            decompressed CSV bytes consumed
	ecotone_rows_read_total             CSV rows parsed
	ecotone_rows_failed_total           rows dropped by parse errors
	ecotone_frames_total                frames decomposed from rows
	ecotone_operations_total            candidate operations before dedup
	ecotone_operations_inserted_total   operations that survived dedup
	ecotone_entities_reduced_total      entities reduced during projection
	ecotone_entities_skipped_total      entities skipped by reduce errors

Useful derived quantities (PromQL):

	# dedup effectiveness: near 0 means the import is a re-import
	rate(ecotone_operations_inserted_total[5m])
	  / rate(ecotone_operations_total[5m])

	# data quality of a provider feed
	rate(ecotone_rows_failed_total[5m]) / rate(ecotone_rows_read_total[5m])

	# projection health
	rate(ecotone_entities_skipped_total[5m])

Alerting suggestions:

  - rows_failed / rows_read above a few percent for a kind: the
    provider changed a column or vocabulary
  - entities_skipped climbing release over release: mandatory columns
    missing upstream, or a taxa import was forgotten before update

# Core Components

Progress:
  - NewProgress(kind) creates a tracker; Start(interval) begins the
    periodic progress line; Stop() halts the ticker and emits the final
    summary with every counter
  - Add* methods are safe for concurrent use (atomics) and mirror each
    increment into the prometheus counter of the same name
  - Inserted() and Rows() expose the totals for callers and tests

CountingReader:
  - wraps a stream so every read is accounted as AddBytes against a
    Progress; the importer wraps each decompressed archive entry with
    it, so the bytes counter tracks CSV input consumed after
    decompression

# Usage

Tracking an import phase:

	progress := metrics.NewProgress("taxon")
	progress.Start(10 * time.Second)
	defer progress.Stop()

	stream := metrics.NewCountingReader(entry, progress)
	// ... frame rows, then per batch:
	progress.AddOperations(len(batch))
	progress.AddInserted(inserted)

Reading totals after a run:

	fmt.Println(progress.Rows(), "rows,", progress.Inserted(), "ops inserted")

# Integration Points

This package integrates with:

  - pkg/importer: rows, row errors, frames, operations, inserts, bytes
  - pkg/loggers: reduced and skipped counts during projection
  - pkg/log: the periodic and summary lines are structured events
    scoped by WithKind
  - prometheus/client_golang: counters are registered on the default
    registry via promauto; expose them with promhttp in any embedding
    process that serves HTTP

# Design Patterns

Counters as shared truth:
  - one set of atomics feeds both the log line and prometheus, so the
    two surfaces can never disagree

Phase-scoped trackers:
  - a Progress lives for exactly one phase (one archive entry import,
    one kind's projection); the prometheus counters are cumulative
    across phases because counters only ever go up

# Performance Characteristics

  - Add* methods: one atomic add plus one prometheus counter add;
    negligible next to the database work they account for
  - the ticker goroutine wakes on the configured interval only; Stop
    always reclaims it

# Troubleshooting

No progress lines during a long phase:
  - Symptom: silence while the process is clearly working
  - Cause: Start was not called, or the log level filters info
  - Check: the phase summary still appears via Stop; use --log-level
    debug to rule out filtering

Counter totals differ from log summaries:
  - Symptom: prometheus shows more than the last summary line
  - Cause: prometheus counters are cumulative across phases and
    processes scrape-to-scrape; summaries are per phase
  - Check: compare rates, not absolute values

Duplicate registration panic in an embedding process:
  - Symptom: promauto panics at init
  - Cause: the package was linked twice under different module paths
  - Solution: deduplicate the dependency graph; counters register once
    per process by design

# See Also

  - pkg/importer and pkg/loggers for the call sites
  - pkg/log for where the progress lines go
  - prometheus naming conventions: https://prometheus.io/docs/practices/naming/
*/
package metrics
