package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind names an entity kind and selects its log and entity tables. The
// set is closed; table names are always derived from these constants so
// user input never reaches SQL identifiers.
type Kind string

const (
	KindTaxon            Kind = "taxon"
	KindTaxonomicAct     Kind = "taxonomic_act"
	KindNomenclaturalAct Kind = "nomenclatural_act"
	KindSpecimen         Kind = "specimen"
	KindOrganism         Kind = "organism"
	KindSubsample        Kind = "subsample"
	KindTissue           Kind = "tissue"
	KindExtraction       Kind = "extraction"
	KindLibrary          Kind = "library"
	KindSequenceRun      Kind = "sequence_run"
	KindAssembly         Kind = "assembly"
	KindAnnotation       Kind = "annotation"
	KindDeposition       Kind = "deposition"
	KindAccession        Kind = "accession"
	KindPublication      Kind = "publication"
	KindProject          Kind = "project"
	KindDataProduct      Kind = "data_product"
	KindAgent            Kind = "agent"
	KindSequence         Kind = "sequence"
)

// Kinds lists every entity kind with a log table.
var Kinds = []Kind{
	KindTaxon, KindTaxonomicAct, KindNomenclaturalAct, KindSpecimen,
	KindOrganism, KindSubsample, KindTissue, KindExtraction, KindLibrary,
	KindSequenceRun, KindAssembly, KindAnnotation, KindDeposition,
	KindAccession, KindPublication, KindProject, KindDataProduct,
	KindAgent, KindSequence,
}

// LogTable returns the operation log table for the kind.
func (k Kind) LogTable() string { return string(k) + "_logs" }

func (k Kind) String() string { return string(k) }

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// RawOperation is one log row in its persisted form. The typed loggers
// convert between this and their atom-typed operations.
type RawOperation struct {
	OperationID      string
	ParentID         string
	EntityID         string
	DatasetVersionID uuid.UUID
	Action           string
	AtomType         string
	AtomValue        string
}

// Source is the collection-level attribution a dataset belongs to.
type Source struct {
	ID           uuid.UUID
	Name         string
	Author       string
	RightsHolder string
	AccessRights string
	License      string
}

// Dataset is the provider dataset registry entry.
type Dataset struct {
	ID           uuid.UUID
	SourceID     uuid.UUID
	GlobalID     string
	Name         string
	ShortName    string
	URL          string
	Citation     string
	License      string
	RightsHolder string
}

// DatasetVersion identifies one published snapshot of a dataset. Its
// surrogate id is stamped into every operation ingested from it.
type DatasetVersion struct {
	ID         uuid.UUID
	DatasetID  uuid.UUID
	Version    string
	CreatedAt  time.Time
	ImportedAt time.Time
}

// ErrVersionConflict is returned when a (dataset, version) pair is
// re-registered with a different created_at timestamp. That is a client
// mistake: a published version is immutable.
var ErrVersionConflict = errors.New("dataset version already registered with a different created_at")

// ErrUnknownKind is returned for a Kind outside the closed set.
var ErrUnknownKind = errors.New("unknown entity kind")

func checkKind(kind Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("store: %w: %q", ErrUnknownKind, kind)
	}
	return nil
}
