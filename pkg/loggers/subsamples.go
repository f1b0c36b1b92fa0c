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

// SubsampleTag enumerates the subsample atom catalog.
type SubsampleTag string

const (
	SubsampleSpecimenID              SubsampleTag = "SpecimenId"
	SubsampleID                      SubsampleTag = "SubsampleId"
	SubsampleScientificName          SubsampleTag = "ScientificName"
	SubsamplePublicationID           SubsampleTag = "PublicationId"
	SubsampleEventDate               SubsampleTag = "EventDate"
	SubsampleEventTime               SubsampleTag = "EventTime"
	SubsampleInstitutionName         SubsampleTag = "InstitutionName"
	SubsampleInstitutionCode         SubsampleTag = "InstitutionCode"
	SubsampleSampleType              SubsampleTag = "SampleType"
	SubsampleName                    SubsampleTag = "Name"
	SubsampleCustodian               SubsampleTag = "Custodian"
	SubsampleDescription             SubsampleTag = "Description"
	SubsampleNotes                   SubsampleTag = "Notes"
	SubsampleCultureMethod           SubsampleTag = "CultureMethod"
	SubsampleCultureMedia            SubsampleTag = "CultureMedia"
	SubsampleWeightOrVolume          SubsampleTag = "WeightOrVolume"
	SubsamplePreservationMethod      SubsampleTag = "PreservationMethod"
	SubsamplePreservationTemperature SubsampleTag = "PreservationTemperature"
	SubsamplePreservationDuration    SubsampleTag = "PreservationDuration"
	SubsampleQuality                 SubsampleTag = "Quality"
	SubsampleCellType                SubsampleTag = "CellType"
	SubsampleCellLine                SubsampleTag = "CellLine"
	SubsampleCloneName               SubsampleTag = "CloneName"
	SubsampleLabHost                 SubsampleTag = "LabHost"
	SubsampleSampleProcessing        SubsampleTag = "SampleProcessing"
	SubsampleSamplePooling           SubsampleTag = "SamplePooling"
)

var subsampleTags = atomSet(
	string(SubsampleSpecimenID), string(SubsampleID), string(SubsampleScientificName),
	string(SubsamplePublicationID), string(SubsampleEventDate), string(SubsampleEventTime),
	string(SubsampleInstitutionName), string(SubsampleInstitutionCode),
	string(SubsampleSampleType), string(SubsampleName), string(SubsampleCustodian),
	string(SubsampleDescription), string(SubsampleNotes), string(SubsampleCultureMethod),
	string(SubsampleCultureMedia), string(SubsampleWeightOrVolume),
	string(SubsamplePreservationMethod), string(SubsamplePreservationTemperature),
	string(SubsamplePreservationDuration), string(SubsampleQuality),
	string(SubsampleCellType), string(SubsampleCellLine), string(SubsampleCloneName),
	string(SubsampleLabHost), string(SubsampleSampleProcessing), string(SubsampleSamplePooling),
)

// SubsampleAtom is one field of a subsample.
type SubsampleAtom struct {
	Kind  SubsampleTag
	Value string
}

func (a SubsampleAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a SubsampleAtom) IsEmpty() bool   { return a.Kind == "" }
func (a SubsampleAtom) Payload() string { return a.Value }

func decodeSubsampleAtom(tag, value string) (SubsampleAtom, error) {
	if tag == "Empty" {
		return SubsampleAtom{}, nil
	}
	if _, ok := subsampleTags[tag]; !ok {
		return SubsampleAtom{}, fmt.Errorf("loggers: %w: subsample %q", ErrUnknownAtom, tag)
	}
	return SubsampleAtom{Kind: SubsampleTag(tag), Value: value}, nil
}

// SubsampleRecord is one row of a subsamples.csv export.
type SubsampleRecord struct {
	EntityID       string `csv:"entity_id"`
	SpecimenID     string `csv:"specimen_id"`
	SubsampleID    string `csv:"subsample_id"`
	ScientificName string `csv:"scientific_name"`

	PublicationID           string `csv:"publication_id"`
	EventDate               string `csv:"event_date"`
	EventTime               string `csv:"event_time"`
	InstitutionName         string `csv:"institution_name"`
	InstitutionCode         string `csv:"institution_code"`
	SampleType              string `csv:"sample_type"`
	Name                    string `csv:"name"`
	Custodian               string `csv:"custodian"`
	Description             string `csv:"description"`
	Notes                   string `csv:"notes"`
	CultureMethod           string `csv:"culture_method"`
	CultureMedia            string `csv:"culture_media"`
	WeightOrVolume          string `csv:"weight_or_volume"`
	PreservationMethod      string `csv:"preservation_method"`
	PreservationTemperature string `csv:"preservation_temperature"`
	PreservationDuration    string `csv:"preservation_duration"`
	Quality                 string `csv:"quality"`
	CellType                string `csv:"cell_type"`
	CellLine                string `csv:"cell_line"`
	CloneName               string `csv:"clone_name"`
	LabHost                 string `csv:"lab_host"`
	SampleProcessing        string `csv:"sample_processing"`
	SamplePooling           string `csv:"sample_pooling"`
}

func (r SubsampleRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r SubsampleRecord) Decompose(frame *crdt.Frame[SubsampleAtom]) error {
	push := func(tag SubsampleTag, value string) {
		frame.PushOpt(SubsampleAtom{Kind: tag, Value: value}, value != "")
	}

	push(SubsampleSpecimenID, r.SpecimenID)
	push(SubsampleID, r.SubsampleID)
	push(SubsampleScientificName, taxonomy.NormalizeName(r.ScientificName))
	push(SubsamplePublicationID, r.PublicationID)
	push(SubsampleEventDate, r.EventDate)
	push(SubsampleEventTime, r.EventTime)
	push(SubsampleInstitutionName, r.InstitutionName)
	push(SubsampleInstitutionCode, r.InstitutionCode)
	push(SubsampleSampleType, r.SampleType)
	push(SubsampleName, r.Name)
	push(SubsampleCustodian, r.Custodian)
	push(SubsampleDescription, r.Description)
	push(SubsampleNotes, r.Notes)
	push(SubsampleCultureMethod, r.CultureMethod)
	push(SubsampleCultureMedia, r.CultureMedia)
	push(SubsampleWeightOrVolume, r.WeightOrVolume)
	push(SubsamplePreservationMethod, r.PreservationMethod)
	push(SubsamplePreservationTemperature, r.PreservationTemperature)
	push(SubsamplePreservationDuration, r.PreservationDuration)
	push(SubsampleQuality, r.Quality)
	push(SubsampleCellType, r.CellType)
	push(SubsampleCellLine, r.CellLine)
	push(SubsampleCloneName, r.CloneName)
	push(SubsampleLabHost, r.LabHost)
	push(SubsampleSampleProcessing, r.SampleProcessing)
	push(SubsampleSamplePooling, r.SamplePooling)
	return nil
}

// Subsample is the reduced snapshot row of the subsamples table.
type Subsample struct {
	EntityID string
	NameID   *string

	SpecimenID  string
	SubsampleID string

	fields map[SubsampleTag]string
}

func reduceSubsample(entityID string, atoms []SubsampleAtom, names NameLookup) (Subsample, error) {
	sub := Subsample{EntityID: entityID, fields: make(map[SubsampleTag]string)}

	var scientificName string
	for _, atom := range atoms {
		if _, ok := subsampleTags[string(atom.Kind)]; !ok {
			return Subsample{}, fmt.Errorf("loggers: %w: subsample %q", ErrUnknownAtom, atom.Kind)
		}
		switch atom.Kind {
		case SubsampleSpecimenID:
			sub.SpecimenID = atom.Value
		case SubsampleID:
			sub.SubsampleID = atom.Value
		case SubsampleScientificName:
			scientificName = atom.Value
		default:
			sub.fields[atom.Kind] = atom.Value
		}
	}

	if sub.SpecimenID == "" {
		return Subsample{}, missingAtom(entityID, string(SubsampleSpecimenID))
	}
	if sub.SubsampleID == "" {
		return Subsample{}, missingAtom(entityID, string(SubsampleID))
	}
	if scientificName == "" {
		return Subsample{}, missingAtom(entityID, string(SubsampleScientificName))
	}

	if id, ok := names[scientificName]; ok {
		sub.NameID = &id
	}
	return sub, nil
}

func (s Subsample) opt(tag SubsampleTag) any {
	return derefOrNil(optString(s.fields[tag]))
}

// SubsamplesImporter returns the archive importer for subsamples.csv.br
// entries.
func SubsamplesImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[SubsampleRecord, SubsampleAtom](st, cfg, store.KindSubsample, decodeSubsampleAtom)
}

var subsampleColumns = []string{
	"entity_id", "name_id", "specimen_id", "subsample_id", "publication_id",
	"event_date", "event_time", "institution_name", "institution_code",
	"sample_type", "name", "custodian", "description", "notes",
	"culture_method", "culture_media", "weight_or_volume",
	"preservation_method", "preservation_temperature", "preservation_duration",
	"quality", "cell_type", "cell_line", "clone_name", "lab_host",
	"sample_processing", "sample_pooling",
}

// UpdateSubsamples reduces the subsample logs into the subsamples
// table.
func UpdateSubsamples(ctx context.Context, st *store.Store, cfg config.Config) error {
	names, err := LoadNameLookup(ctx, st.DB())
	if err != nil {
		return err
	}

	return projection[SubsampleAtom, Subsample]{
		kind:   store.KindSubsample,
		decode: decodeSubsampleAtom,
		reduce: func(entityID string, atoms []SubsampleAtom) (Subsample, error) {
			return reduceSubsample(entityID, atoms, names)
		},
		upsert: func(ctx context.Context, subs []Subsample) error {
			rows := make([][]any, len(subs))
			for i, s := range subs {
				rows[i] = []any{
					s.EntityID, derefOrNil(s.NameID), s.SpecimenID, s.SubsampleID,
					s.opt(SubsamplePublicationID), s.opt(SubsampleEventDate), s.opt(SubsampleEventTime),
					s.opt(SubsampleInstitutionName), s.opt(SubsampleInstitutionCode),
					s.opt(SubsampleSampleType), s.opt(SubsampleName), s.opt(SubsampleCustodian),
					s.opt(SubsampleDescription), s.opt(SubsampleNotes), s.opt(SubsampleCultureMethod),
					s.opt(SubsampleCultureMedia), s.opt(SubsampleWeightOrVolume),
					s.opt(SubsamplePreservationMethod), s.opt(SubsamplePreservationTemperature),
					s.opt(SubsamplePreservationDuration), s.opt(SubsampleQuality),
					s.opt(SubsampleCellType), s.opt(SubsampleCellLine), s.opt(SubsampleCloneName),
					s.opt(SubsampleLabHost), s.opt(SubsampleSampleProcessing), s.opt(SubsampleSamplePooling),
				}
			}
			return bulkUpsert(ctx, st.DB(), "subsamples", subsampleColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
