package loggers

import (
	"context"
	"fmt"

	"github.com/ecotone-bio/ecotone/pkg/archive"
	"github.com/ecotone-bio/ecotone/pkg/config"
	"github.com/ecotone-bio/ecotone/pkg/crdt"
	"github.com/ecotone-bio/ecotone/pkg/store"
	"github.com/ecotone-bio/ecotone/pkg/taxonomy"
)

// SpecimenTag enumerates the specimen atom catalog. Collection exports
// carry specimen records, so collections.csv.br feeds this kind.
type SpecimenTag string

const (
	SpecimenRecordID       SpecimenTag = "RecordId"
	SpecimenScientificName SpecimenTag = "ScientificName"
)

var specimenTags = atomSet(
	string(SpecimenRecordID), string(SpecimenScientificName),
)

// SpecimenAtom is one field of a specimen.
type SpecimenAtom struct {
	Kind  SpecimenTag
	Value string
}

func (a SpecimenAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a SpecimenAtom) IsEmpty() bool   { return a.Kind == "" }
func (a SpecimenAtom) Payload() string { return a.Value }

func decodeSpecimenAtom(tag, value string) (SpecimenAtom, error) {
	if tag == "Empty" {
		return SpecimenAtom{}, nil
	}
	if _, ok := specimenTags[tag]; !ok {
		return SpecimenAtom{}, fmt.Errorf("loggers: %w: specimen %q", ErrUnknownAtom, tag)
	}
	return SpecimenAtom{Kind: SpecimenTag(tag), Value: value}, nil
}

// SpecimenRecord is one row of a collections.csv export.
type SpecimenRecord struct {
	EntityID       string `csv:"entity_id"`
	RecordID       string `csv:"record_id"`
	ScientificName string `csv:"scientific_name"`
}

func (r SpecimenRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r SpecimenRecord) Decompose(frame *crdt.Frame[SpecimenAtom]) error {
	push := func(tag SpecimenTag, value string) {
		frame.PushOpt(SpecimenAtom{Kind: tag, Value: value}, value != "")
	}

	push(SpecimenRecordID, r.RecordID)
	push(SpecimenScientificName, taxonomy.NormalizeName(r.ScientificName))
	return nil
}

// Specimen is the reduced snapshot row of the specimens table.
type Specimen struct {
	EntityID string
	NameID   *string

	RecordID       string
	ScientificName string
}

func reduceSpecimen(entityID string, atoms []SpecimenAtom, names NameLookup) (Specimen, error) {
	specimen := Specimen{EntityID: entityID}

	for _, atom := range atoms {
		switch atom.Kind {
		case SpecimenRecordID:
			specimen.RecordID = atom.Value
		case SpecimenScientificName:
			specimen.ScientificName = atom.Value
		default:
			return Specimen{}, fmt.Errorf("loggers: %w: specimen %q", ErrUnknownAtom, atom.Kind)
		}
	}

	if specimen.RecordID == "" {
		return Specimen{}, missingAtom(entityID, string(SpecimenRecordID))
	}
	if specimen.ScientificName == "" {
		return Specimen{}, missingAtom(entityID, string(SpecimenScientificName))
	}

	if id, ok := names[specimen.ScientificName]; ok {
		specimen.NameID = &id
	}
	return specimen, nil
}

// CollectionsImporter returns the archive importer for
// collections.csv.br entries.
func CollectionsImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[SpecimenRecord, SpecimenAtom](st, cfg, store.KindSpecimen, decodeSpecimenAtom)
}

var specimenColumns = []string{"entity_id", "record_id", "name_id", "scientific_name"}

// UpdateSpecimens reduces the specimen logs into the specimens table.
func UpdateSpecimens(ctx context.Context, st *store.Store, cfg config.Config) error {
	names, err := LoadNameLookup(ctx, st.DB())
	if err != nil {
		return err
	}

	return projection[SpecimenAtom, Specimen]{
		kind:   store.KindSpecimen,
		decode: decodeSpecimenAtom,
		reduce: func(entityID string, atoms []SpecimenAtom) (Specimen, error) {
			return reduceSpecimen(entityID, atoms, names)
		},
		upsert: func(ctx context.Context, specimens []Specimen) error {
			rows := make([][]any, len(specimens))
			for i, s := range specimens {
				rows[i] = []any{s.EntityID, s.RecordID, derefOrNil(s.NameID), s.ScientificName}
			}
			return bulkUpsert(ctx, st.DB(), "specimens", specimenColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
