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

// ExtractionTag enumerates the DNA extraction atom catalog.
type ExtractionTag string

const (
	ExtractionSubsampleID            ExtractionTag = "SubsampleId"
	ExtractionExtractID              ExtractionTag = "ExtractId"
	ExtractionScientificName         ExtractionTag = "ScientificName"
	ExtractionPublicationID          ExtractionTag = "PublicationId"
	ExtractionEventDate              ExtractionTag = "EventDate"
	ExtractionEventTime              ExtractionTag = "EventTime"
	ExtractionExtractedBy            ExtractionTag = "ExtractedBy"
	ExtractionMaterialExtractedBy    ExtractionTag = "MaterialExtractedBy"
	ExtractionNucleicAcidType        ExtractionTag = "NucleicAcidType"
	ExtractionPreparationType        ExtractionTag = "PreparationType"
	ExtractionPreservationType       ExtractionTag = "PreservationType"
	ExtractionPreservationMethod     ExtractionTag = "PreservationMethod"
	ExtractionMethod                 ExtractionTag = "ExtractionMethod"
	ExtractionConcentrationMethod    ExtractionTag = "ConcentrationMethod"
	ExtractionConformation           ExtractionTag = "Conformation"
	ExtractionConcentration          ExtractionTag = "Concentration"
	ExtractionConcentrationUnit      ExtractionTag = "ConcentrationUnit"
	ExtractionQuantification         ExtractionTag = "Quantification"
	ExtractionAbsorbance260230       ExtractionTag = "Absorbance260230Ratio"
	ExtractionAbsorbance260280       ExtractionTag = "Absorbance260280Ratio"
	ExtractionCellLysisMethod        ExtractionTag = "CellLysisMethod"
	ExtractionActionExtracted        ExtractionTag = "ActionExtracted"
	ExtractionNumberOfExtractsPooled ExtractionTag = "NumberOfExtractsPooled"
)

var extractionTags = atomSet(
	string(ExtractionSubsampleID), string(ExtractionExtractID),
	string(ExtractionScientificName), string(ExtractionPublicationID),
	string(ExtractionEventDate), string(ExtractionEventTime),
	string(ExtractionExtractedBy), string(ExtractionMaterialExtractedBy),
	string(ExtractionNucleicAcidType), string(ExtractionPreparationType),
	string(ExtractionPreservationType), string(ExtractionPreservationMethod),
	string(ExtractionMethod), string(ExtractionConcentrationMethod),
	string(ExtractionConformation), string(ExtractionConcentration),
	string(ExtractionConcentrationUnit), string(ExtractionQuantification),
	string(ExtractionAbsorbance260230), string(ExtractionAbsorbance260280),
	string(ExtractionCellLysisMethod), string(ExtractionActionExtracted),
	string(ExtractionNumberOfExtractsPooled),
)

// ExtractionAtom is one field of a DNA extraction.
type ExtractionAtom struct {
	Kind  ExtractionTag
	Value string
}

func (a ExtractionAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a ExtractionAtom) IsEmpty() bool   { return a.Kind == "" }
func (a ExtractionAtom) Payload() string { return a.Value }

func decodeExtractionAtom(tag, value string) (ExtractionAtom, error) {
	if tag == "Empty" {
		return ExtractionAtom{}, nil
	}
	if _, ok := extractionTags[tag]; !ok {
		return ExtractionAtom{}, fmt.Errorf("loggers: %w: extraction %q", ErrUnknownAtom, tag)
	}
	return ExtractionAtom{Kind: ExtractionTag(tag), Value: value}, nil
}

// ExtractionRecord is one row of an extractions.csv export.
type ExtractionRecord struct {
	EntityID       string `csv:"entity_id"`
	SubsampleID    string `csv:"subsample_id"`
	ExtractID      string `csv:"extract_id"`
	ScientificName string `csv:"scientific_name"`

	PublicationID          string `csv:"publication_id"`
	EventDate              string `csv:"event_date"`
	EventTime              string `csv:"event_time"`
	ExtractedBy            string `csv:"extracted_by"`
	MaterialExtractedBy    string `csv:"material_extracted_by"`
	NucleicAcidType        string `csv:"nucleic_acid_type"`
	PreparationType        string `csv:"preparation_type"`
	PreservationType       string `csv:"preservation_type"`
	PreservationMethod     string `csv:"preservation_method"`
	ExtractionMethod       string `csv:"extraction_method"`
	ConcentrationMethod    string `csv:"concentration_method"`
	Conformation           string `csv:"conformation"`
	Concentration          string `csv:"concentration"`
	ConcentrationUnit      string `csv:"concentration_unit"`
	Quantification         string `csv:"quantification"`
	Absorbance260230       string `csv:"absorbance_260_230_ratio"`
	Absorbance260280       string `csv:"absorbance_260_280_ratio"`
	CellLysisMethod        string `csv:"cell_lysis_method"`
	ActionExtracted        string `csv:"action_extracted"`
	NumberOfExtractsPooled string `csv:"number_of_extracts_pooled"`
}

func (r ExtractionRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r ExtractionRecord) Decompose(frame *crdt.Frame[ExtractionAtom]) error {
	push := func(tag ExtractionTag, value string) {
		frame.PushOpt(ExtractionAtom{Kind: tag, Value: value}, value != "")
	}

	push(ExtractionSubsampleID, r.SubsampleID)
	push(ExtractionExtractID, r.ExtractID)
	push(ExtractionScientificName, taxonomy.NormalizeName(r.ScientificName))
	push(ExtractionPublicationID, r.PublicationID)
	push(ExtractionEventDate, r.EventDate)
	push(ExtractionEventTime, r.EventTime)
	push(ExtractionExtractedBy, r.ExtractedBy)
	push(ExtractionMaterialExtractedBy, r.MaterialExtractedBy)
	push(ExtractionNucleicAcidType, r.NucleicAcidType)
	push(ExtractionPreparationType, r.PreparationType)
	push(ExtractionPreservationType, r.PreservationType)
	push(ExtractionPreservationMethod, r.PreservationMethod)
	push(ExtractionMethod, r.ExtractionMethod)
	push(ExtractionConcentrationMethod, r.ConcentrationMethod)
	push(ExtractionConformation, r.Conformation)
	push(ExtractionConcentration, canonicalFloat(r.Concentration))
	push(ExtractionConcentrationUnit, r.ConcentrationUnit)
	push(ExtractionQuantification, r.Quantification)
	push(ExtractionAbsorbance260230, canonicalFloat(r.Absorbance260230))
	push(ExtractionAbsorbance260280, canonicalFloat(r.Absorbance260280))
	push(ExtractionCellLysisMethod, r.CellLysisMethod)
	push(ExtractionActionExtracted, r.ActionExtracted)
	push(ExtractionNumberOfExtractsPooled, r.NumberOfExtractsPooled)
	return nil
}

// Extraction is the reduced snapshot row of the extractions table.
type Extraction struct {
	EntityID string
	NameID   *string

	SubsampleID string
	ExtractID   string

	fields map[ExtractionTag]string
}

func (e Extraction) opt(tag ExtractionTag) any      { return derefOrNil(optString(e.fields[tag])) }
func (e Extraction) optFloat(tag ExtractionTag) any { return derefOrNil(tryParseFloat(e.fields[tag])) }

func reduceExtraction(entityID string, atoms []ExtractionAtom, names NameLookup) (Extraction, error) {
	extraction := Extraction{EntityID: entityID, fields: make(map[ExtractionTag]string)}

	var scientificName string
	for _, atom := range atoms {
		if _, ok := extractionTags[string(atom.Kind)]; !ok {
			return Extraction{}, fmt.Errorf("loggers: %w: extraction %q", ErrUnknownAtom, atom.Kind)
		}
		switch atom.Kind {
		case ExtractionSubsampleID:
			extraction.SubsampleID = atom.Value
		case ExtractionExtractID:
			extraction.ExtractID = atom.Value
		case ExtractionScientificName:
			scientificName = atom.Value
		default:
			extraction.fields[atom.Kind] = atom.Value
		}
	}

	if extraction.SubsampleID == "" {
		return Extraction{}, missingAtom(entityID, string(ExtractionSubsampleID))
	}
	if extraction.ExtractID == "" {
		return Extraction{}, missingAtom(entityID, string(ExtractionExtractID))
	}
	if scientificName == "" {
		return Extraction{}, missingAtom(entityID, string(ExtractionScientificName))
	}

	if id, ok := names[scientificName]; ok {
		extraction.NameID = &id
	}
	return extraction, nil
}

// ExtractionsImporter returns the archive importer for
// extractions.csv.br entries.
func ExtractionsImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[ExtractionRecord, ExtractionAtom](st, cfg, store.KindExtraction, decodeExtractionAtom)
}

var extractionColumns = []string{
	"entity_id", "name_id", "subsample_id", "extract_id", "publication_id",
	"event_date", "event_time", "extracted_by", "material_extracted_by",
	"nucleic_acid_type", "preparation_type", "preservation_type",
	"preservation_method", "extraction_method", "concentration_method",
	"conformation", "concentration", "concentration_unit", "quantification",
	"absorbance_260_230", "absorbance_260_280", "cell_lysis_method",
	"action_extracted", "number_of_extracts_pooled",
}

// UpdateExtractions reduces the extraction logs into the extractions
// table.
func UpdateExtractions(ctx context.Context, st *store.Store, cfg config.Config) error {
	names, err := LoadNameLookup(ctx, st.DB())
	if err != nil {
		return err
	}

	return projection[ExtractionAtom, Extraction]{
		kind:   store.KindExtraction,
		decode: decodeExtractionAtom,
		reduce: func(entityID string, atoms []ExtractionAtom) (Extraction, error) {
			return reduceExtraction(entityID, atoms, names)
		},
		upsert: func(ctx context.Context, extractions []Extraction) error {
			rows := make([][]any, len(extractions))
			for i, e := range extractions {
				rows[i] = []any{
					e.EntityID, derefOrNil(e.NameID), e.SubsampleID, e.ExtractID,
					e.opt(ExtractionPublicationID), e.opt(ExtractionEventDate), e.opt(ExtractionEventTime),
					e.opt(ExtractionExtractedBy), e.opt(ExtractionMaterialExtractedBy),
					e.opt(ExtractionNucleicAcidType), e.opt(ExtractionPreparationType),
					e.opt(ExtractionPreservationType), e.opt(ExtractionPreservationMethod),
					e.opt(ExtractionMethod), e.opt(ExtractionConcentrationMethod),
					e.opt(ExtractionConformation), e.optFloat(ExtractionConcentration),
					e.opt(ExtractionConcentrationUnit), e.opt(ExtractionQuantification),
					e.optFloat(ExtractionAbsorbance260230), e.optFloat(ExtractionAbsorbance260280),
					e.opt(ExtractionCellLysisMethod), e.opt(ExtractionActionExtracted),
					e.opt(ExtractionNumberOfExtractsPooled),
				}
			}
			return bulkUpsert(ctx, st.DB(), "extractions", extractionColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
