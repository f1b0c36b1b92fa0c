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

// LibraryTag enumerates the sequencing library atom catalog.
type LibraryTag string

const (
	LibraryExtractID               LibraryTag = "ExtractId"
	LibraryID                      LibraryTag = "LibraryId"
	LibraryScientificName          LibraryTag = "ScientificName"
	LibraryPublicationID           LibraryTag = "PublicationId"
	LibraryEventDate               LibraryTag = "EventDate"
	LibraryEventTime               LibraryTag = "EventTime"
	LibraryPreparedBy              LibraryTag = "PreparedBy"
	LibraryConcentration           LibraryTag = "Concentration"
	LibraryConcentrationUnit       LibraryTag = "ConcentrationUnit"
	LibraryPcrCycles               LibraryTag = "PcrCycles"
	LibraryLayout                  LibraryTag = "Layout"
	LibrarySelection               LibraryTag = "Selection"
	LibraryBaitSetName             LibraryTag = "BaitSetName"
	LibraryBaitSetReference        LibraryTag = "BaitSetReference"
	LibraryConstructionProtocol    LibraryTag = "ConstructionProtocol"
	LibrarySource                  LibraryTag = "Source"
	LibraryInsertSize              LibraryTag = "InsertSize"
	LibraryDesignDescription       LibraryTag = "DesignDescription"
	LibraryStrategy                LibraryTag = "Strategy"
	LibraryIndexTag                LibraryTag = "IndexTag"
	LibraryIndexDualTag            LibraryTag = "IndexDualTag"
	LibraryIndexOligo              LibraryTag = "IndexOligo"
	LibraryIndexDualOligo          LibraryTag = "IndexDualOligo"
	LibraryLocation                LibraryTag = "Location"
	LibraryRemarks                 LibraryTag = "Remarks"
	LibraryDnaTreatment            LibraryTag = "DnaTreatment"
	LibraryNumberOfLibrariesPooled LibraryTag = "NumberOfLibrariesPooled"
	LibraryPcrReplicates           LibraryTag = "PcrReplicates"
)

var libraryTags = atomSet(
	string(LibraryExtractID), string(LibraryID), string(LibraryScientificName),
	string(LibraryPublicationID), string(LibraryEventDate), string(LibraryEventTime),
	string(LibraryPreparedBy), string(LibraryConcentration), string(LibraryConcentrationUnit),
	string(LibraryPcrCycles), string(LibraryLayout), string(LibrarySelection),
	string(LibraryBaitSetName), string(LibraryBaitSetReference),
	string(LibraryConstructionProtocol), string(LibrarySource), string(LibraryInsertSize),
	string(LibraryDesignDescription), string(LibraryStrategy), string(LibraryIndexTag),
	string(LibraryIndexDualTag), string(LibraryIndexOligo), string(LibraryIndexDualOligo),
	string(LibraryLocation), string(LibraryRemarks), string(LibraryDnaTreatment),
	string(LibraryNumberOfLibrariesPooled), string(LibraryPcrReplicates),
)

// LibraryAtom is one field of a sequencing library.
type LibraryAtom struct {
	Kind  LibraryTag
	Value string
}

func (a LibraryAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a LibraryAtom) IsEmpty() bool   { return a.Kind == "" }
func (a LibraryAtom) Payload() string { return a.Value }

func decodeLibraryAtom(tag, value string) (LibraryAtom, error) {
	if tag == "Empty" {
		return LibraryAtom{}, nil
	}
	if _, ok := libraryTags[tag]; !ok {
		return LibraryAtom{}, fmt.Errorf("loggers: %w: library %q", ErrUnknownAtom, tag)
	}
	return LibraryAtom{Kind: LibraryTag(tag), Value: value}, nil
}

// LibraryRecord is one row of a libraries.csv export.
type LibraryRecord struct {
	EntityID       string `csv:"entity_id"`
	ExtractID      string `csv:"extract_id"`
	LibraryID      string `csv:"library_id"`
	ScientificName string `csv:"scientific_name"`

	PublicationID           string `csv:"publication_id"`
	EventDate               string `csv:"event_date"`
	EventTime               string `csv:"event_time"`
	PreparedBy              string `csv:"prepared_by"`
	Concentration           string `csv:"concentration"`
	ConcentrationUnit       string `csv:"concentration_unit"`
	PcrCycles               string `csv:"pcr_cycles"`
	Layout                  string `csv:"layout"`
	Selection               string `csv:"selection"`
	BaitSetName             string `csv:"bait_set_name"`
	BaitSetReference        string `csv:"bait_set_reference"`
	ConstructionProtocol    string `csv:"construction_protocol"`
	Source                  string `csv:"source"`
	InsertSize              string `csv:"insert_size"`
	DesignDescription       string `csv:"design_description"`
	Strategy                string `csv:"strategy"`
	IndexTag                string `csv:"index_tag"`
	IndexDualTag            string `csv:"index_dual_tag"`
	IndexOligo              string `csv:"index_oligo"`
	IndexDualOligo          string `csv:"index_dual_oligo"`
	Location                string `csv:"location"`
	Remarks                 string `csv:"remarks"`
	DnaTreatment            string `csv:"dna_treatment"`
	NumberOfLibrariesPooled string `csv:"number_of_libraries_pooled"`
	PcrReplicates           string `csv:"pcr_replicates"`
}

func (r LibraryRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r LibraryRecord) Decompose(frame *crdt.Frame[LibraryAtom]) error {
	push := func(tag LibraryTag, value string) {
		frame.PushOpt(LibraryAtom{Kind: tag, Value: value}, value != "")
	}

	push(LibraryExtractID, r.ExtractID)
	push(LibraryID, r.LibraryID)
	push(LibraryScientificName, taxonomy.NormalizeName(r.ScientificName))
	push(LibraryPublicationID, r.PublicationID)
	push(LibraryEventDate, r.EventDate)
	push(LibraryEventTime, r.EventTime)
	push(LibraryPreparedBy, r.PreparedBy)
	push(LibraryConcentration, canonicalFloat(r.Concentration))
	push(LibraryConcentrationUnit, r.ConcentrationUnit)
	push(LibraryPcrCycles, canonicalInt(r.PcrCycles))
	push(LibraryLayout, r.Layout)
	push(LibrarySelection, r.Selection)
	push(LibraryBaitSetName, r.BaitSetName)
	push(LibraryBaitSetReference, r.BaitSetReference)
	push(LibraryConstructionProtocol, r.ConstructionProtocol)
	push(LibrarySource, r.Source)
	push(LibraryInsertSize, r.InsertSize)
	push(LibraryDesignDescription, r.DesignDescription)
	push(LibraryStrategy, r.Strategy)
	push(LibraryIndexTag, r.IndexTag)
	push(LibraryIndexDualTag, r.IndexDualTag)
	push(LibraryIndexOligo, r.IndexOligo)
	push(LibraryIndexDualOligo, r.IndexDualOligo)
	push(LibraryLocation, r.Location)
	push(LibraryRemarks, r.Remarks)
	push(LibraryDnaTreatment, r.DnaTreatment)
	push(LibraryNumberOfLibrariesPooled, r.NumberOfLibrariesPooled)
	push(LibraryPcrReplicates, r.PcrReplicates)
	return nil
}

// Library is the reduced snapshot row of the libraries table.
type Library struct {
	EntityID string
	NameID   *string

	ExtractID string
	LibraryID string

	fields map[LibraryTag]string
}

func (l Library) opt(tag LibraryTag) any      { return derefOrNil(optString(l.fields[tag])) }
func (l Library) optFloat(tag LibraryTag) any { return derefOrNil(tryParseFloat(l.fields[tag])) }
func (l Library) optInt(tag LibraryTag) any   { return derefOrNil(tryParseInt(l.fields[tag])) }

func reduceLibrary(entityID string, atoms []LibraryAtom, names NameLookup) (Library, error) {
	library := Library{EntityID: entityID, fields: make(map[LibraryTag]string)}

	var scientificName string
	for _, atom := range atoms {
		if _, ok := libraryTags[string(atom.Kind)]; !ok {
			return Library{}, fmt.Errorf("loggers: %w: library %q", ErrUnknownAtom, atom.Kind)
		}
		switch atom.Kind {
		case LibraryExtractID:
			library.ExtractID = atom.Value
		case LibraryID:
			library.LibraryID = atom.Value
		case LibraryScientificName:
			scientificName = atom.Value
		default:
			library.fields[atom.Kind] = atom.Value
		}
	}

	if library.ExtractID == "" {
		return Library{}, missingAtom(entityID, string(LibraryExtractID))
	}
	if library.LibraryID == "" {
		return Library{}, missingAtom(entityID, string(LibraryID))
	}
	if scientificName == "" {
		return Library{}, missingAtom(entityID, string(LibraryScientificName))
	}

	if id, ok := names[scientificName]; ok {
		library.NameID = &id
	}
	return library, nil
}

// LibrariesImporter returns the archive importer for libraries.csv.br
// entries.
func LibrariesImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[LibraryRecord, LibraryAtom](st, cfg, store.KindLibrary, decodeLibraryAtom)
}

var libraryColumns = []string{
	"entity_id", "name_id", "extract_id", "library_id", "publication_id",
	"event_date", "event_time", "prepared_by", "concentration",
	"concentration_unit", "pcr_cycles", "layout", "selection",
	"bait_set_name", "bait_set_reference", "construction_protocol", "source",
	"insert_size", "design_description", "strategy", "index_tag",
	"index_dual_tag", "index_oligo", "index_dual_oligo", "location",
	"remarks", "dna_treatment", "number_of_libraries_pooled", "pcr_replicates",
}

// UpdateLibraries reduces the library logs into the libraries table.
func UpdateLibraries(ctx context.Context, st *store.Store, cfg config.Config) error {
	names, err := LoadNameLookup(ctx, st.DB())
	if err != nil {
		return err
	}

	return projection[LibraryAtom, Library]{
		kind:   store.KindLibrary,
		decode: decodeLibraryAtom,
		reduce: func(entityID string, atoms []LibraryAtom) (Library, error) {
			return reduceLibrary(entityID, atoms, names)
		},
		upsert: func(ctx context.Context, libraries []Library) error {
			rows := make([][]any, len(libraries))
			for i, l := range libraries {
				rows[i] = []any{
					l.EntityID, derefOrNil(l.NameID), l.ExtractID, l.LibraryID,
					l.opt(LibraryPublicationID), l.opt(LibraryEventDate), l.opt(LibraryEventTime),
					l.opt(LibraryPreparedBy), l.optFloat(LibraryConcentration),
					l.opt(LibraryConcentrationUnit), l.optInt(LibraryPcrCycles),
					l.opt(LibraryLayout), l.opt(LibrarySelection), l.opt(LibraryBaitSetName),
					l.opt(LibraryBaitSetReference), l.opt(LibraryConstructionProtocol),
					l.opt(LibrarySource), l.opt(LibraryInsertSize), l.opt(LibraryDesignDescription),
					l.opt(LibraryStrategy), l.opt(LibraryIndexTag), l.opt(LibraryIndexDualTag),
					l.opt(LibraryIndexOligo), l.opt(LibraryIndexDualOligo), l.opt(LibraryLocation),
					l.opt(LibraryRemarks), l.opt(LibraryDnaTreatment),
					l.opt(LibraryNumberOfLibrariesPooled), l.opt(LibraryPcrReplicates),
				}
			}
			return bulkUpsert(ctx, st.DB(), "libraries", libraryColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
