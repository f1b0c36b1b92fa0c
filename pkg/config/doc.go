/*
Package config loads the pipeline configuration: the database URL from
the environment and the optional YAML tuning file layered over built-in
defaults.

The environment is the only mandatory input — DATABASE_URL names the
SQLite database — and everything else is a tuning knob with a default
matched to what the store is indexed and parameter-budgeted for.

# Architecture

	┌────────────────────── CONFIG LAYERING ────────────────────┐
	│                                                             │
	│  built-in defaults                                          │
	│  ┌────────────────────────────────────────────┐            │
	│  │ chunk_size        20 000 rows               │            │
	│  │ insert_batch_size 10 000 operations         │            │
	│  │ page_size          1 000 entities           │            │
	│  │ workers           min(CPU, max_connections) │            │
	│  │ max_connections       30                    │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │ overridden by                         │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │ ecotone.yaml (optional, --config)           │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │ plus (mandatory)                      │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │ DATABASE_URL from the environment           │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     ▼                                       │
	│  validate → clamp workers ≤ max_connections → Config        │
	└─────────────────────────────────────────────────────────────┘

# Tuning Keys

	chunk_size         rows framed per pipeline chunk; bounds memory and
	                   the granularity of cancellation
	insert_batch_size  operations per dedup/insert dispatch; the store
	                   splits a dispatch into as many statements as the
	                   bind-parameter budget allows
	page_size          entities reduced per projector page
	workers            parallel dedup/insert and projection workers;
	                   clamped to max_connections so a worker never
	                   stalls waiting for a pool slot mid-chunk
	max_connections    database connection pool cap; a pool that grows
	                   on demand would cascade into database overload
	                   under parallel deduplication load

# Usage

The common path (what cmd/ecotone does):

	cfg, err := config.Load(configPath) // "" skips the tuning file
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DatabaseURL, cfg.MaxConnections)

A tuning file for a small machine:

	# ecotone.yaml
	chunk_size: 5000
	workers: 4
	max_connections: 8

Programmatic defaults (tests, embedding):

	cfg := config.Default()
	cfg.PageSize = 100

# Validation

Load rejects non-positive values for every knob with an error naming
the key, and a missing DATABASE_URL with its own error. An explicitly
passed tuning file that does not exist is an error; only the empty path
means "no file". After validation, workers is clamped to
max_connections.

# Integration Points

This package integrates with:

  - cmd/ecotone: --config flag → Load; the result threads into every
    phase
  - pkg/store: DatabaseURL and MaxConnections at Open
  - pkg/importer: ChunkSize, InsertBatchSize, Workers
  - pkg/loggers: PageSize and Workers for projection

# Troubleshooting

"DATABASE_URL is not set":
  - Symptom: every command fails immediately
  - Solution: export DATABASE_URL=file:ecotone.db (any SQLite DSN)

Import slower after raising workers:
  - Symptom: more workers, less throughput
  - Cause: workers beyond max_connections are clamped; workers beyond
    the storage device's concurrency just contend
  - Check: the clamp means the effective value is
    min(workers, max_connections)

Tuning file ignored:
  - Symptom: values in ecotone.yaml have no effect
  - Cause: the file was not passed; there is no implicit search path
  - Solution: pass --config path/to/ecotone.yaml explicitly

# See Also

  - pkg/store for what max_connections caps
  - pkg/importer for what chunk_size and insert_batch_size govern
*/
package config
