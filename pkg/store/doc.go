/*
Package store persists the operation log and the materialized entity
tables in SQLite.

The store is the only stateful component of the pipeline. Everything it
holds divides into three strata: the dataset registry (sources,
datasets, dataset_versions), the append-only operation logs (one table
per entity kind), and the materialized entity tables (one per kind,
fully derivable from the logs).

# Architecture

	┌────────────────────── SQLITE STORE ───────────────────────┐
	│                                                             │
	│  ┌────────────────────────────────────────────┐            │
	│  │              Store                          │            │
	│  │  - DSN from DATABASE_URL                    │            │
	│  │  - pragmas: WAL, busy_timeout 10s,          │            │
	│  │    synchronous NORMAL, foreign_keys ON      │            │
	│  │  - pool capped by configuration (def. 30)   │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                       │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │            Dataset registry                 │            │
	│  │  sources           (name unique)            │            │
	│  │  datasets          (global_id unique)       │            │
	│  │  dataset_versions  (dataset_id, version)    │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │ dataset_version_id FK                 │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │        Operation logs (per kind)            │            │
	│  │  taxon_logs, organism_logs, ... ×19         │            │
	│  │  operation_id TEXT PRIMARY KEY              │            │
	│  │  entity_id / dataset_version_id indexed     │            │
	│  │  append-only; conflicts ignored             │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │ reduce + upsert                       │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │        Entity tables (per kind)             │            │
	│  │  taxa, organisms, ... + names               │            │
	│  │  one row per entity_id                      │            │
	│  │  derived state, freely rebuildable          │            │
	│  └────────────────────────────────────────────┘            │
	└─────────────────────────────────────────────────────────────┘

# Layout

One append-only log table per entity kind, all with the same shape:

	<kind>_logs(
	    operation_id        TEXT PRIMARY KEY,   -- fixed-width decimal version
	    parent_id           TEXT NOT NULL,
	    entity_id           TEXT NOT NULL,      -- indexed
	    dataset_version_id  TEXT NOT NULL,      -- indexed, FK dataset_versions
	    action              TEXT NOT NULL,      -- create | update
	    atom_type           TEXT NOT NULL,
	    atom_value          TEXT NOT NULL,
	)

Operation ids render lexicographic-ordered, so `ORDER BY operation_id`
is version order and the primary key enforces global uniqueness. Insert
conflicts on operation_id mean "already imported" and are ignored; this
is what makes restarts and re-imports safe.

The entity tables are kind-specific; every column is derivable from the
logs and dropping any of them loses nothing. Timestamps in the registry
are unix-nanosecond INTEGER columns so range predicates never depend on
text timestamp formats.

# Core Components

Kind:
  - closed enumeration of the 19 entity kinds
  - derives log table names; user input never reaches SQL identifiers
  - Valid() gates every store entry point (ErrUnknownKind otherwise)

RawOperation:
  - one log row in persisted form; the typed loggers convert between
    this and their atom-typed operations

Registry operations:
  - UpsertSource: idempotent on name, refreshes attribution
  - UpsertDataset: idempotent on global_id, refreshes metadata
  - CreateDatasetVersion: idempotent on (dataset, version); the same
    pair with a different created_at returns ErrVersionConflict because
    a published version is immutable

Log operations:
  - LoadOperations: all ops for the entity ids visible at a dataset
    version (created_at cutoff across all datasets), id order
  - LoadDatasetOperations: as above, restricted to the same dataset
  - LoadEntityOperations: full history regardless of version, id order
  - UpsertOperations: multi-row insert, ON CONFLICT DO NOTHING on
    operation_id, returns the count actually inserted

Pagination:
  - CountEntities: COUNT(DISTINCT entity_id) per kind
  - PageEntityIDs: stable ORDER BY entity_id LIMIT/OFFSET pages so
    parallel workers can partition the entity space deterministically

# Usage

Opening and migrating:

	st, err := store.Open(os.Getenv("DATABASE_URL"), 30)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

Registering a dataset version before any insert:

	sourceID, _ := st.UpsertSource(ctx, store.Source{Name: "ALA"})
	_, _ = st.UpsertDataset(ctx, store.Dataset{SourceID: sourceID, GlobalID: "ds1", Name: "ALA Taxa"})
	dv, err := st.CreateDatasetVersion(ctx, "ds1", "v4", publishedAt)
	if errors.Is(err, store.ErrVersionConflict) {
		// client mistake: v4 was already published with another timestamp
	}

Bulk-inserting deduplicated operations:

	inserted, err := st.UpsertOperations(ctx, store.KindTaxon, rawOps)
	// inserted < len(rawOps) means some were already present

Paging the entity space for projection:

	total, _ := st.CountEntities(ctx, store.KindTaxon)
	for page := 0; page*size < int(total); page++ {
		ids, _ := st.PageEntityIDs(ctx, store.KindTaxon, page, size)
		ops, _ := st.LoadEntityOperations(ctx, store.KindTaxon, ids)
		// reduce and upsert
	}

# Concurrency

The *sql.DB pool is the only shared mutable resource; its size is
capped by configuration (default 30) and bounds the parallel
dedup/insert workers. Every worker holds a connection for the duration
of one statement; no locks exist above the database level because the
log is append-only and the operation-id key makes concurrent duplicate
inserts harmless.

# Design Patterns

Closed identifier set:
  - table names are always derived from Kind constants, mirroring the
    enum-guarded identifier pattern used for non-parameterizable SQL

Bind-parameter budgeting:
  - bulk inserts and IN lists batch rows to stay under SQLite's
    SQLITE_MAX_VARIABLE_NUMBER (32766); a 10k-operation dispatch is
    split into however many statements the budget allows
  - cross-batch result order is restored by sorting on the fixed-width
    operation id

Idempotent writes:
  - every write path is an upsert keyed on a natural unique column;
    re-running any phase of the pipeline is safe by construction

# Performance Characteristics

  - bulk insert: one multi-row statement per ~4.5k operations; WAL and
    synchronous NORMAL keep fsync cost off the critical path
  - LoadOperations: index seek on entity_id plus a join on the small
    dataset_versions table
  - PageEntityIDs: DISTINCT over the entity_id index; OFFSET cost grows
    with page number but pages are only walked once per projection
  - CountEntities: full index scan; run once per projection pass

# Troubleshooting

Database is locked:
  - Symptom: SQLITE_BUSY after the 10s busy timeout
  - Cause: another process holds the write lock
  - Solution: one importer process per database file; readers are fine
    under WAL

Zero rows inserted on import:
  - Symptom: UpsertOperations returns 0 for a non-empty batch
  - Cause: the operations are already present — a re-import
  - Check: this is the designed idempotence, not an error

Version conflict on import:
  - Symptom: ErrVersionConflict from CreateDatasetVersion
  - Cause: the archive re-declares an existing (dataset, version) with
    a different published_at
  - Solution: fix the archive manifest; published versions never change

# Monitoring

Key quantities to watch (exposed by pkg/metrics during pipeline runs):

  - ecotone_operations_inserted_total: growth rate of the log
  - ecotone_operations_total vs inserted: dedup effectiveness; a ratio
    near zero means the import is a re-import
  - entity counts per kind via CountEntities for capacity planning

# See Also

  - pkg/crdt for the operation and version model the store persists
  - pkg/importer for the write path (dedup + bulk insert)
  - pkg/loggers for the read path (paged reduction + entity upserts)
  - SQLite WAL documentation: https://www.sqlite.org/wal.html
*/
package store
