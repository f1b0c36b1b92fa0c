/*
Package log provides structured logging for ecotone using zerolog.

A single global logger is initialised once from CLI flags and shared by
every component. Child loggers scope log events to a component, dataset
version, entity kind, or entity id so that per-row and per-entity errors
produced deep inside the import pipeline stay attributable.

# Architecture

	┌────────────────────── LOGGING FLOW ───────────────────────┐
	│                                                             │
	│  cobra flags (--log-level, --log-json)                      │
	│                     │                                       │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │ log.Init(Config)                            │            │
	│  │  - level: debug|info|warn|error             │            │
	│  │  - console writer (default) or JSON         │            │
	│  │  - stderr unless overridden                 │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │ global Logger                         │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │ child loggers                               │            │
	│  │  WithComponent("framer")                    │            │
	│  │  WithDataset("ds1", "v4")                   │            │
	│  │  WithKind("taxon")                          │            │
	│  │  WithEntity("12879031...")                  │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     ▼                                       │
	│  structured events: progress lines, row drops,              │
	│  entity skips, phase summaries                              │
	└─────────────────────────────────────────────────────────────┘

# Core Components

Config / Init:
  - Level maps onto zerolog's global level; unknown strings fall back
    to info
  - JSONOutput selects raw JSON for machine consumption; the default
    console writer is for humans at a terminal
  - before Init runs, the package-level Logger already writes to
    stderr, so early failures and tests are never silent

Child-logger helpers:
  - WithComponent: pipeline stage ("framer", "importer", "update")
  - WithDataset: dataset id + version during archive registration
  - WithKind: entity kind during import and projection phases
  - WithEntity: a single entity, used when one entity is skipped

Shorthands:
  - Info/Debug/Warn/Error/Errorf/Fatal for one-line events that need no
    extra fields

# Usage

Initialising from the CLI:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: false})

Scoped logging inside a phase:

	logger := log.WithKind("taxon")
	logger.Info().Int64("rows", n).Msg("chunk imported")
	logger.Error().Str("entity_id", id).Err(err).Msg("skipping entity")

# Event Conventions

  - per-row parse failures log at warn with the row number and the
    decoder's error; they are recovered, never fatal
  - per-entity reduce failures log at error with the entity id; the
    entity is skipped and the phase continues
  - each import/projection phase ends with a summary event carrying the
    counters (rows, row_errors, frames, operations, inserted, reduced,
    skipped)

# Integration Points

This package integrates with:

  - cmd/ecotone: flags → Init via cobra.OnInitialize
  - pkg/metrics: the progress tracker emits its periodic line and the
    phase summary through WithKind
  - pkg/importer and pkg/loggers: row drops and entity skips

# Troubleshooting

No output at all:
  - Symptom: a phase ran but nothing was printed
  - Cause: level above the events being emitted (progress is info, row
    drops are warn)
  - Solution: --log-level debug

Logs unreadable in a pipeline:
  - Symptom: ANSI console formatting inside collected logs
  - Solution: --log-json; every event becomes one JSON object per line

# See Also

  - pkg/metrics for the counters the summary events carry
  - zerolog documentation: https://github.com/rs/zerolog
*/
package log
