/*
Package loggers implements one operation logger per entity kind: the
closed atom catalog, the CSV record decomposer, the typed store binding
used by the import pipeline, and the reducer/projector that rebuilds the
kind's materialized table from its log.

The package is the system's domain layer. The generic machinery in
pkg/crdt, pkg/importer and pkg/store knows nothing about taxa or
tissues; everything kind-specific — which fields exist, which are
mandatory, how values are normalized, which table they land in — lives
here, one file per kind.

# Architecture

	┌────────────────────── PER-KIND LOGGER ────────────────────┐
	│                                                             │
	│  import path                                                │
	│  ┌────────────┐   ┌───────────────┐   ┌────────────────┐  │
	│  │ <Kind>Record│──▶│ Decompose into │──▶│ importKind →   │  │
	│  │ (csv tags)  │   │ <Kind>Atom frame│  │ importer.Run   │  │
	│  └────────────┘   └───────────────┘   └───────┬────────┘  │
	│                                                │ loader     │
	│                                        ┌───────▼────────┐  │
	│                                        │ <kind>_logs     │  │
	│                                        └───────┬────────┘  │
	│  update path                                   │            │
	│  ┌────────────────┐   ┌──────────────┐   ┌────▼───────┐   │
	│  │ projection /    │◀──│ decode<Kind> │◀──│ paged load  │   │
	│  │ UpdateTaxa      │   │ Atom (catalog│   └────────────┘   │
	│  │  reduce + upsert│   │  validation) │                     │
	│  └───────┬────────┘   └──────────────┘                     │
	│          │ rows                                             │
	│  ┌───────▼────────────────────────────────────┐            │
	│  │ entity table (taxa, organisms, ...) + names │            │
	│  └────────────────────────────────────────────┘            │
	└─────────────────────────────────────────────────────────────┘

Each kind follows the same shape; taxa carries the extra pieces the
taxonomy graph needs (the names registry and the two-pass parent link).

# Kind Catalog

Nineteen kinds, one file each, dispatched by archive entry name:

	taxa.csv.br               → taxa.go               (taxa + names + links)
	taxonomic_acts.csv.br     → taxonomic_acts.go
	nomenclatural_acts.csv.br → nomenclatural_acts.go
	collections.csv.br        → collections.go        (specimens)
	organisms.csv.br          → organisms.go
	subsamples.csv.br         → subsamples.go
	tissues.csv.br            → tissues.go
	extractions.csv.br        → extractions.go
	libraries.csv.br          → libraries.go
	sequence_runs.csv.br      → sequence_runs.go
	assemblies.csv.br         → assemblies.go
	annotations.csv.br        → annotations.go
	depositions.csv.br        → depositions.go
	accessions.csv.br         → accessions.go
	publications.csv.br       → publications.go
	projects.csv.br           → projects.go
	data_products.csv.br      → data_products.go
	agents.csv.br             → agents.go
	sequences.csv.br          → sequences.go

Every file supplies the same five pieces:

  - <Kind>Tag constants: the closed atom catalog
  - <Kind>Atom: the comparable (tag, canonical payload) atom type with
    its decode function validating against the catalog
  - <Kind>Record: the csv-tagged row with EntityKey and Decompose
  - reduce<Kind>: winning atoms → typed row, enforcing mandatory atoms
  - <Kind>sImporter and Update<Kind>s: wiring into the pipeline and the
    paged projector

# Shared Machinery

loader[A]:
  - binds a kind's log table and a dataset version to the importer's
    OperationLoader; converts raw rows ⇄ typed operations through the
    kind's decode function

projection[A, R]:
  - the paged projector: count entities, page the id space, load each
    page's full history, reduce per entity through an LWW map, and
    bulk-upsert the rows; reduce failures skip the entity and the page
    continues

bulkUpsert:
  - single multi-row INSERT ... ON CONFLICT (entity_id) DO UPDATE per
    parameter-budget slice; every data column updates on conflict

Lookups (lookups.go):
  - Name / NameLookup / TaxonLookup: the in-memory maps built once per
    update pass; names resolve name_id links, the dataset-scoped taxon
    map resolves parent links
  - EnsureNames: sorted, deduplicated insert with existing rows winning
    so name ids stay stable across passes

Helpers:
  - optString / tryParseFloat / tryParseInt / tryParseBool: empty is
    absent; malformed optional numerics are uniformly absent, never a
    row failure
  - canonicalFloat / canonicalInt / canonicalBool: fold provider
    spellings onto one canonical payload so equal values from different
    providers compare equal in the log

# Error Model

  - ErrMissingAtom: a mandatory atom is absent at reduce time; the
    entity is skipped and logged, projection continues (re-running the
    projector is the recovery path)
  - ErrUnknownAtom: a log row carries a tag outside the kind's catalog;
    the catalog and the log disagree, so the entity cannot be reduced
    faithfully and the page aborts
  - ErrLookup: a reduced entity references a record no lookup resolves
    (typically a scientific name whose taxa were never imported); the
    entity is skipped and logged

# Usage

Wiring an archive import (what cmd/ecotone does):

	importers := loggers.Registry(st, cfg)
	err := archive.New(path).Import(ctx, st, importers)

Rebuilding every entity table:

	err := loggers.UpdateAll(ctx, st, cfg)
	// taxa first (names registry), parent links last

Projecting a single kind:

	err := loggers.UpdateOrganisms(ctx, st, cfg)

# Design Patterns

Exhaustive reducer switches:
  - adding a field to a kind means adding an atom tag, pushing it in
    the decomposer, and handling it in the reducer switch
  - the reducers fail on unknown tags rather than dropping them, so a
    forgotten case surfaces on the first projection instead of silently
    losing data

Names as the join spine:
  - every name-bearing kind links to the names registry rather than to
    a taxon row, so multiple taxonomic systems can describe the same
    concept that specimens and sequences hang off

Two-pass parent linking:
  - taxa are projected without parent_id, then LinkTaxa resolves the
    self-referential edges via the dataset-scoped taxon lookup; bulk
    upserts therefore never depend on insert order within the tree

# Performance Characteristics

  - import: dominated by the store round-trips; decomposition itself is
    a few map-free pushes per row
  - projection: one id-page query, one history load and one multi-row
    upsert per page; pages fan out across workers (taxa pages run
    sequentially because they extend the shared names lookup)
  - lookups: one full scan per update pass, shared read-only afterwards

# Troubleshooting

Entities skipped with MissingAtom:
  - Symptom: skipped counter climbs during update
  - Cause: provider rows arrived without a mandatory column; the data
    that did arrive is preserved in the log
  - Solution: re-import a corrected dataset version; projection then
    picks the entity up without any reset

Entities skipped with lookup failures:
  - Symptom: ErrLookup logged for scientific names
  - Cause: the dataset's taxa (and therefore names) were never imported
  - Solution: import the taxa archive, re-run update

Unknown atom tag aborts a page:
  - Symptom: ErrUnknownAtom from a projection
  - Cause: the log was written by a newer catalog than this binary
  - Solution: upgrade the binary; the log itself is fine

# See Also

  - pkg/crdt for frames and LWW reduction
  - pkg/importer for the pipeline importKind wires into
  - pkg/store for the log and entity tables
  - pkg/taxonomy for the shared vocabularies and name normalization
*/
package loggers
