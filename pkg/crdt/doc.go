/*
Package crdt implements the operation-log primitives that every dataset
import is decomposed into: a logical clock, version-framed operations,
and a last-writer-wins register map for reduction.

The package is deliberately free of I/O and storage concerns. It models
the algebra of the log — what an operation is, how operations are
ordered, and how a set of operations collapses back into the current
state of an entity — and leaves persistence to pkg/store and
orchestration to pkg/importer.

# Architecture

	┌──────────────────── OPERATION-LOG CORE ───────────────────┐
	│                                                             │
	│  ┌────────────────────────────────────────────┐            │
	│  │                Clock                        │            │
	│  │  - (timestamp, counter) pair                │            │
	│  │  - Next() strictly increasing               │            │
	│  │  - local to one frame stream                │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │ versions                              │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │                Frame[A]                     │            │
	│  │  - one entity, one dataset version          │            │
	│  │  - Create(Empty) opener                     │            │
	│  │  - Update(atom) per pushed field            │            │
	│  │  - parent links chain the frame             │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │ []Operation[A]                        │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │                Map[A] (LWW)                 │            │
	│  │  - tag → (operation id, atom)               │            │
	│  │  - Reduce keeps greatest-id writes          │            │
	│  │  - equal values never advance               │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │ winning atoms                         │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │            Entity snapshot                  │            │
	│  │  - assembled by the kind's reducer          │            │
	│  │  - Empty sentinel discarded                 │            │
	│  └────────────────────────────────────────────┘            │
	└─────────────────────────────────────────────────────────────┘

# Model

Every row of an imported dataset is decomposed into a Frame: one Create
operation that opens the frame followed by one Update operation per
field value (atom). Operations are stamped with a Version drawn from a
clock that is local to the input stream, so the operation ids of a
single file import form a strictly increasing sequence and frames never
overlap.

	┌──────────────────── FRAME ────────────────────┐
	│ Create(Empty)  v1  parent=v1                   │
	│ Update(atom A) v2  parent=v1                   │
	│ Update(atom B) v3  parent=v2                   │
	│ ...                                            │
	└───────────────────────────── last version = vN┘

Reduction walks all operations for one entity and keeps, per atom tag,
the value written by the greatest operation id. An operation that writes
the value a tag already holds never advances the map regardless of its
id; this is what makes re-imports of unchanged datasets produce zero new
operations.

# Core Components

Version:
  - (unix-nanosecond timestamp, counter) pair
  - total lexicographic order: Before, After, IsZero
  - String renders a 30-digit fixed-width decimal (20-digit timestamp +
    10-digit counter) so textual order in the store equals version order
  - ParseVersion round-trips the rendered form and rejects malformed ids

Clock:
  - Next() reads the wall clock; if it moved past the current timestamp
    the counter resets, otherwise the counter increments
  - always strictly greater than every previously returned version,
    even under wall-clock regression
  - not safe for concurrent use; each frame stream owns one

Atom (constraint):
  - comparable + Tag() string + IsEmpty() bool
  - each entity kind defines its own closed atom type
  - the zero value must be the Empty sentinel carried by Create ops

Operation[A]:
  - (OperationID, ParentID, EntityID, DatasetVersionID, Action, Atom)
  - immutable once emitted; the store treats OperationID as the global
    primary key

Frame[A]:
  - NewFrame emits the Create opener and seeds the clock with the
    previous frame's last version
  - Push emits an Update linked to the previously pushed operation
  - PushOpt pushes only when the value is present
  - Collect yields the operations; LastVersion threads into the next
    frame of the same stream

Map[A]:
  - NewMap + Reduce: last-writer-wins register map keyed by atom tag
  - Reduce returns only the operations that advanced the map, which is
    the primitive the deduplicator is built on
  - Atoms returns the winning values with Empty discarded

HashIdentity:
  - xxh3-64 over the record's stable natural key bytes, rendered as a
    decimal string
  - content-derived, so the same natural key maps to the same entity id
    across providers and dataset versions

# Ordering

Versions are (unix-nanosecond timestamp, counter) pairs ordered
lexicographically. Ordering is only meaningful within one entity;
distinct entities never compare clocks. Across worker threads there is
no ordering requirement at all: Reduce is order-insensitive modulo
operation id, which is what lets the import pipeline deduplicate and
insert batches concurrently.

# Usage

Building a frame stream:

	last := crdt.Version{}
	for _, row := range rows {
		entityID := crdt.HashIdentity(row.NaturalKey())
		frame := crdt.NewFrame[TaxonAtom](entityID, datasetVersionID, last)
		frame.Push(TaxonAtom{Kind: TaxonScientificName, Value: "Aus bus"})
		frame.PushOpt(TaxonAtom{Kind: TaxonCitation, Value: row.Citation}, row.Citation != "")
		last = frame.LastVersion()
		ops = append(ops, frame.Collect()...)
	}

Reducing an entity:

	m := crdt.NewMap[TaxonAtom](entityID)
	m.Reduce(opsSortedByID)
	for _, atom := range m.Atoms() {
		// assemble the typed entity row
	}

Filtering no-ops against history:

	m := crdt.NewMap[TaxonAtom](entityID)
	m.Reduce(existingOps)          // replay history
	changed := m.Reduce(incoming)  // only real changes survive

# Integration Points

This package integrates with:

  - pkg/importer: the framer builds frames and threads last versions;
    the deduplicator replays history through Map.Reduce
  - pkg/store: operation ids are persisted in their String form; the
    store's ORDER BY operation_id is version order by construction
  - pkg/loggers: each kind defines its atom type against the Atom
    constraint and reduces entities through Map

# Design Patterns

Closed atom catalogs:
  - each kind's atom type is a struct of (tag, canonical payload)
  - equality is structural, which the comparable constraint enforces
  - the decode path in pkg/loggers validates tags against the catalog,
    so a foreign tag can never enter a typed operation stream

Threaded last version:
  - frames from one stream never overlap because each frame's clock is
    seeded with the previous frame's last version
  - this is the invariant that makes per-file operation ids strictly
    increasing without any global coordination

No-op filter inside Reduce:
  - an equal value never advances the map, even with a newer id
  - older writes therefore keep precedence across re-imports, and the
    log only grows when data actually changes

# Performance Characteristics

  - Clock.Next: a wall-clock read and a comparison, ~25ns
  - Frame.Push: one clock tick and one slice append, no allocation
    beyond slice growth
  - Map.Reduce: O(n) over operations with one map lookup per op
  - HashIdentity: xxh3 streams at memory bandwidth; hashing dominates
    only for very long natural keys
  - memory: a Map holds one entry per distinct tag, tens of entries for
    the widest catalogs

# Troubleshooting

Versions collide across frames:
  - Symptom: duplicate operation_id insert conflicts for distinct atoms
  - Cause: a new frame was seeded with the zero Version mid-stream
  - Solution: always thread frame.LastVersion() into the next NewFrame

Reduce keeps a stale value:
  - Symptom: an entity row shows an old field value after an import
  - Cause: the newer operation wrote a byte-identical value; the no-op
    filter kept the original write
  - Check: compare the payloads, not just the operation ids — identical
    payloads are the designed behavior, not data loss

Clock appears stuck on one timestamp:
  - Symptom: many versions share a timestamp with climbing counters
  - Cause: coarse wall-clock granularity on the platform
  - Solution: none needed; the counter keeps ordering strict

# See Also

  - pkg/importer for the framing and deduplication pipeline
  - pkg/store for the persisted form of operations
  - pkg/loggers for the per-kind atom catalogs and reducers
*/
package crdt
