/*
Package taxonomy holds the closed taxonomic vocabularies shared by the
decomposers and reducers: ranks, statuses, act types and the scientific
name normalizer.

Provider datasets spell these vocabularies dozens of ways (botanical and
zoological latin, legacy export spellings, blanks); the parsers in this
package fold every known spelling onto one canonical value so that the
same concept asserted by two providers compares equal in the operation
log. Unknown spellings are parse errors and drop the offending row.

# Architecture

	┌──────────────────── VOCABULARY FOLDING ───────────────────┐
	│                                                             │
	│  provider spelling            canonical value               │
	│  ──────────────────           ───────────────               │
	│  "Valid", "accepted name"  ─▶ StatusAccepted                │
	│  "junior synonym", ...     ─▶ StatusSynonym                 │
	│  "PHYLUM (DIVISION)"       ─▶ RankDivision                  │
	│  "forma specialis"         ─▶ RankSpecialForm               │
	│  "new_species"             ─▶ NomenclaturalActSpeciesNova   │
	│  ""  (rank only)           ─▶ RankUnranked                  │
	│  "archduke"                ─▶ ErrInvalidValue (row dropped) │
	│                                                             │
	│  "aus  BUS"  ──NormalizeName──▶  "Aus BUS"                  │
	└─────────────────────────────────────────────────────────────┘

# Vocabulary Catalog

Rank (rank.go):
  - ~75 canonical ranks spanning the zoological and botanical series;
    the botanical forms (regnum, familia, varietas, sectio, ...) stay
    distinct from their zoological equivalents
  - ParseRank lowercases, trims and resolves through the canonical set
    first, then the alias table ("phylum (division)", "forma
    specialis", "species aggregate", ...)
  - the empty string and "other" fold to RankUnranked; everything
    unrecognised is ErrInvalidValue

Status (status.go):
  - ~35 canonical statuses; the alias table folds the many synonym
    spellings ("junior objective synonym" → synonym), homonym variants,
    validity spellings ("valid name" → accepted) and misapplication
    families onto them
  - unlike ranks, a blank status is not defaulted — it is an error,
    because status is a mandatory assertion

TaxonomicActType (act.go):
  - the act a status assertion implies; ActFromStatus derives it and
    reports ok=false for statuses without an act equivalent, in which
    case no act atom is pushed for the row

NomenclaturalActType (act.go):
  - species nova, combinatio nova and friends; ParseNomenclaturalAct
    folds export spellings ("new_species", "genus_transfer") onto them

# Name Normalization

NormalizeName collapses all unicode whitespace to single ASCII spaces,
trims, and title-cases the first word only. Later words keep the
spelling the provider used:

	NormalizeName("aus  BUS")        == "Aus BUS"
	NormalizeName("  animalia  ")    == "Animalia"
	NormalizeName("aus\tbus var. x") == "Aus bus var. x"

The first-word-only rule is deliberate: genus capitalization is a
convention the normalizer can enforce, but epithet casing and authorship
strings are provider data the log must preserve losslessly.

# Timestamps

ParseDateTime tries the provider timestamp spellings in order — the
space-separated exports, the millisecond variants, one provider's
compact date form — with RFC 3339 last as the documented convention.
Results are returned in UTC. ParseDate handles bare ISO 8601 dates.

# Usage

Decomposing a row (the typical call site):

	rank, err := taxonomy.ParseRank(row.TaxonRank)
	if err != nil {
		return err // row dropped, import continues
	}
	status, err := taxonomy.ParseStatus(row.TaxonomicStatus)
	if err != nil {
		return err
	}
	name := taxonomy.NormalizeName(row.ScientificName)

	if act, ok := taxonomy.ActFromStatus(status); ok {
		// push the derived act atom
	}

# Integration Points

This package integrates with:

  - pkg/loggers: every decomposer that carries a rank, status, act or
    scientific name parses it here before the atom is pushed; the
    canonical string becomes the atom payload
  - pkg/importer: a parse failure surfaces as a Decompose error, which
    the framer absorbs as a dropped row

# Design Patterns

Parse at the boundary:
  - vocabularies are validated once, at decomposition; the log and the
    reducers only ever see canonical values, so equality is reliable
    everywhere downstream

Closed sets with permissive aliases:
  - the canonical sets are fixed; tolerance lives entirely in the alias
    tables, so adding a provider spelling is a one-line change that
    cannot widen the value space

# Troubleshooting

Rows dropped with ErrInvalidValue:
  - Symptom: row-error counter climbs on a new dataset
  - Cause: a rank or status spelling outside the alias tables
  - Solution: confirm the value is a genuine synonym of a canonical
    entry, then add it to the alias table; never add it as a new
    canonical value unless the taxonomy really has a new rank

Two providers disagree on capitalization:
  - Symptom: expected merge, got two names
  - Cause: the difference is past the first word, which normalization
    deliberately preserves
  - Check: `Aus bus` and `Aus Bus` are different names by design

# See Also

  - pkg/loggers for the decomposers that call these parsers
  - the Darwin Core rank vocabulary the provider exports derive from:
    https://dwc.tdwg.org/terms/#dwc:taxonRank
*/
package taxonomy
