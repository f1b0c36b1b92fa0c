/*
Package importer drives the import pipeline: streamed CSV rows are
decomposed into version-framed operations, deduplicated against the
operation log, and bulk-inserted.

The pipeline is the write path of the system. It is built so that the
only sequential stage is the one that must be — version assignment —
and everything downstream of it can fan out across workers without any
ordering coordination.

# Architecture

	┌────────────────────── IMPORT PIPELINE ────────────────────┐
	│                                                             │
	│  ┌────────────────────────────────────────────┐            │
	│  │            CSVSource[R]                     │            │
	│  │  - header-mapped struct decoding            │            │
	│  │  - row errors wrapped as *RowError          │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │ rows                                  │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │            Framer[R, A]  (single-threaded)  │            │
	│  │  - hash natural key → entity id             │            │
	│  │  - one frame per row                        │            │
	│  │  - last version threaded across frames      │            │
	│  │  - drops unparseable rows, keeps going      │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │ chunks of operations (20k rows)       │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │            importChunk  (parallel)          │            │
	│  │  batches of 10k ops → errgroup workers      │            │
	│  │  ┌──────────────┐   ┌──────────────┐       │            │
	│  │  │DistinctChanges│──▶│UpsertOperations│ ×N  │            │
	│  │  └──────────────┘   └──────────────┘       │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │ counters                              │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │            metrics.Progress                 │            │
	│  └────────────────────────────────────────────┘            │
	└─────────────────────────────────────────────────────────────┘

The framer is single-threaded because operation ids must increase
strictly across the whole input stream. Everything after framing is
order-free: the LWW reducer downstream re-orders by operation id, so
batches can be deduplicated and inserted concurrently.

# Core Components

Record[A]:
  - the contract a kind's CSV record meets: EntityKey (natural key
    bytes for the entity hash) and Decompose (push atoms into a frame)
  - Decompose fails only on values no vocabulary recognises; those rows
    are dropped and logged

RowSource[R] / CSVSource[R]:
  - RowSource yields rows until io.EOF; row-level parse failures come
    back as *RowError and do not end the stream
  - CSVSource decodes comma-delimited UTF-8 with a header into R via
    its csv struct tags, reading the header eagerly so empty or
    malformed files surface before framing starts

Framer[R, A]:
  - NextChunk frames up to chunkSize rows, flattens their operations,
    and reports whether the source is exhausted
  - threads the last version across frames so every operation id
    emitted from one stream is strictly increasing

OperationLoader[A]:
  - the slice of the store the deduplicator needs, typed by atom kind
    and bound to the dataset version being imported

GroupOperations / MergeOperations / DistinctChanges:
  - group existing and incoming operations by entity, replay them
    through an LWW map, and keep only the operations that effected a
    real change relative to all history
  - the existing-operation ids are subtracted at the end, so the result
    contains new work exclusively

Run:
  - the chunk loop: frame → fan out batches → wait → next chunk
  - Config carries ChunkSize (default 20 000 rows), BatchSize (default
    10 000 operations) and Workers; zero values take defaults

# Usage

Importing one decompressed CSV stream:

	source, err := importer.NewCSVSource[TaxonRecord](stream)
	if err != nil {
		return err
	}
	err = importer.Run[TaxonRecord, TaxonAtom](ctx, source, loader, version.ID, importer.Config{
		ChunkSize: cfg.ChunkSize,
		BatchSize: cfg.InsertBatchSize,
		Workers:   cfg.Workers,
	}, progress)

Filtering a batch by hand (what each worker does):

	changes, err := importer.DistinctChanges(ctx, batch, loader)
	if err != nil {
		return err
	}
	inserted, err := loader.UpsertOperations(ctx, changes)

# Failure Semantics

  - row-level parse failures (bad CSV, unknown vocabulary) drop the
    row, log it, bump the row-error counter, and keep the stream going;
    a bad CSV row is logged with its row number, a row with an unknown
    vocabulary value with its entity id and without its row number
  - store failures abort the import; the idempotent operation-id key
    makes restarts safe — re-running re-inserts only what is missing
  - cancellation is cooperative and takes effect at chunk boundaries:
    batches already dispatched run on an uncancellable context so the
    store is always left consistent

# Integration Points

This package integrates with:

  - pkg/crdt: frames, versions, and the LWW reduction the deduplicator
    is built on
  - pkg/store: reached through the OperationLoader interface each
    kind's logger binds to its log table
  - pkg/loggers: provides the Record implementations, atom decoders and
    loader bindings; importKind there wires all of it into Run
  - pkg/metrics: Progress counters for rows, frames, operations and
    inserts

# Design Patterns

Sequential core, parallel shell:
  - the one invariant that needs sequencing (strictly increasing ids)
    is isolated in the framer; the expensive stages (database reads,
    LWW merging, bulk inserts) run on the worker pool

Disjoint batches:
  - batches are slices of one chunk's operation vector; they never
    share backing array elements, so workers need no locks
  - an entity's frame may straddle two batches; each batch's changes
    are computed independently and the union is still correct because
    the reducer downstream is order-insensitive modulo operation id

Local error recovery:
  - *RowError is the only error type the framer absorbs; everything
    else propagates and aborts, matching the "row-level errors are
    recovered locally" policy

# Performance Characteristics

  - framing: allocation-light, one frame and a handful of atoms per
    row; typically an order of magnitude faster than the database work
  - deduplication: one indexed load per batch covering all its entity
    ids, then in-memory grouping and reduction
  - inserts: one multi-row statement per parameter-budget slice
  - backpressure: the chunk loop blocks on group.Wait, so a slow store
    naturally throttles framing; memory is bounded by ChunkSize

# Troubleshooting

Import seems to hang:
  - Symptom: no progress lines while the process is busy
  - Cause: a large chunk is mid-flight; progress ticks on the interval
    configured by the caller
  - Check: the bytes counter — if it climbs, decompression and framing
    are alive

Row errors on every line:
  - Symptom: row-error counter equals the row count
  - Cause: wrong delimiter, missing header, or a header that matches no
    csv struct tags
  - Solution: inspect the first logged RowError; it carries the row
    number and the decoder's complaint

Zero inserts on a changed dataset:
  - Symptom: operations counted, nothing inserted
  - Cause: the changes are value-identical to history (the no-op
    filter), or the archive was already imported
  - Check: compare a sample row against the reduced entity state

# See Also

  - pkg/crdt for frame and reduction semantics
  - pkg/loggers for the per-kind wiring into this pipeline
  - pkg/archive for how streams reach the importer
*/
package importer
