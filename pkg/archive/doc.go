/*
Package archive reads provider dataset snapshots: tar files whose first
entry is a meta.toml manifest and whose remaining entries are
brotli-compressed CSV files named after the entity kind they carry
(taxa.csv.br, organisms.csv.br, ...).

# Architecture

	┌────────────────────── DATASET ARCHIVE ────────────────────┐
	│                                                             │
	│  dataset.tar                                                │
	│  ┌────────────────────────────────────────────┐            │
	│  │ meta.toml          ── dataset identity      │            │
	│  │ taxa.csv.br        ── brotli CSV            │            │
	│  │ organisms.csv.br   ── brotli CSV            │            │
	│  │ ...                                         │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                       │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │ Archive.Meta()                              │            │
	│  │  - scan tar for meta.toml                   │            │
	│  │  - parse with go-toml                       │            │
	│  │  - reject missing id/version                │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                       │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │ registerDataset                             │            │
	│  │  - upsert source (collection attribution)   │            │
	│  │  - upsert dataset (identity + attribution)  │            │
	│  │  - create dataset version (conflict checked)│            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │ store.DatasetVersion                  │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │ entry walk (archive order, sequential)      │            │
	│  │  known name  → brotli.NewReader → Importer  │            │
	│  │  unknown name→ warn + skip                  │            │
	│  └────────────────────────────────────────────┘            │
	└─────────────────────────────────────────────────────────────┘

# Manifest

meta.toml carries four tables:

	[dataset]      id, name, short_name, version, published_at (RFC 3339),
	               url, schema (optional IRI)
	[changelog]    notes (array)
	[attribution]  citation, source_url, license, rights_holder
	[collection]   name, author, license, access_rights, rights_holder

ParseMeta rejects manifests without dataset.id or dataset.version;
everything else is optional. published_at becomes the dataset version's
created_at, the instant that decides cross-provider precedence.

# Core Components

Importer:
  - func(ctx, stream, version) error — consumes one decompressed CSV
    stream under the registered dataset version
  - each entity kind's logger provides one; pkg/loggers.Registry builds
    the full dispatch map keyed by archive entry name

Archive:
  - New(path) wraps lazily; nothing is read until Meta or Import
  - Meta scans for the manifest and parses it
  - Import registers the dataset version, then streams every recognized
    entry through its importer in archive order; a single archive may
    carry any mix of entity kinds

# Usage

Importing an archive end to end:

	importers := loggers.Registry(st, cfg)
	if err := archive.New("ala-taxa-v4.tar").Import(ctx, st, importers); err != nil {
		return err
	}

Inspecting a manifest without importing:

	meta, err := archive.New(path).Meta()
	fmt.Println(meta.Dataset.ID, meta.Dataset.Version, meta.Dataset.PublishedAt)

# Failure Semantics

  - missing or malformed meta.toml, corrupt tar, unreadable brotli
    stream: the import aborts
  - re-declaring an existing (dataset, version) pair with a different
    published_at: store.ErrVersionConflict, the import aborts — a
    published version is immutable
  - unknown entry names: skipped with a warning; forward-compatible
    with archives that carry kinds this binary predates
  - failures inside an entry's importer abort the archive; entries
    already imported stay imported and a restart is safe

# Integration Points

This package integrates with:

  - pkg/store: the dataset registry writes and version creation
  - pkg/loggers: supplies the Importer for every known entry name
  - cmd/ecotone: the import command drives Archive.Import per argument

# Design Patterns

Two-scan reading:
  - the manifest scan and the entry walk each open the tar afresh;
    tar offers no random access and the manifest must be validated
    before any operation is inserted

Dispatch by declared name:
  - entry names are the contract; no sniffing of entry contents, so a
    provider renaming a file is an explicit schema change rather than a
    silent behavior change

# Troubleshooting

"has no meta.toml entry":
  - Symptom: Meta fails on a syntactically valid tar
  - Cause: the manifest is missing or not named exactly meta.toml
  - Check: `tar tf <archive>` — the manifest should be the first entry

Every data entry skipped:
  - Symptom: only "unknown entry, skipping" warnings, nothing imported
  - Cause: entry names don't match the <kind>.csv.br convention
  - Solution: fix the archive layout; the recognized names are the keys
    of loggers.Registry

Import aborts with a brotli error:
  - Symptom: failure mid-entry after some chunks imported
  - Cause: truncated or corrupt compressed stream
  - Solution: re-fetch the archive and re-import; already-inserted
    operations are ignored on conflict

# See Also

  - pkg/loggers for the importer registry this package dispatches into
  - pkg/importer for what happens to each decompressed stream
  - pkg/store for dataset version registration semantics
*/
package archive
