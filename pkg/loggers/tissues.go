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

// TissueTag enumerates the tissue atom catalog.
type TissueTag string

const (
	TissueID                     TissueTag = "TissueId"
	TissueMaterialSampleID       TissueTag = "MaterialSampleId"
	TissueOrganismID             TissueTag = "OrganismId"
	TissueScientificName         TissueTag = "ScientificName"
	TissueIdentificationVerified TissueTag = "IdentificationVerified"
	TissueReferenceMaterial      TissueTag = "ReferenceMaterial"
	TissueCustodian              TissueTag = "Custodian"
	TissueInstitution            TissueTag = "Institution"
	TissueInstitutionCode        TissueTag = "InstitutionCode"
	TissueSamplingProtocol       TissueTag = "SamplingProtocol"
	TissueType                   TissueTag = "TissueType"
	TissueDisposition            TissueTag = "Disposition"
	TissueFixation               TissueTag = "Fixation"
	TissueStorage                TissueTag = "Storage"
)

var tissueTags = atomSet(
	string(TissueID), string(TissueMaterialSampleID), string(TissueOrganismID),
	string(TissueScientificName), string(TissueIdentificationVerified),
	string(TissueReferenceMaterial), string(TissueCustodian), string(TissueInstitution),
	string(TissueInstitutionCode), string(TissueSamplingProtocol), string(TissueType),
	string(TissueDisposition), string(TissueFixation), string(TissueStorage),
)

// TissueAtom is one field of a tissue.
type TissueAtom struct {
	Kind  TissueTag
	Value string
}

func (a TissueAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a TissueAtom) IsEmpty() bool   { return a.Kind == "" }
func (a TissueAtom) Payload() string { return a.Value }

func decodeTissueAtom(tag, value string) (TissueAtom, error) {
	if tag == "Empty" {
		return TissueAtom{}, nil
	}
	if _, ok := tissueTags[tag]; !ok {
		return TissueAtom{}, fmt.Errorf("loggers: %w: tissue %q", ErrUnknownAtom, tag)
	}
	return TissueAtom{Kind: TissueTag(tag), Value: value}, nil
}

// TissueRecord is one row of a tissues.csv export.
type TissueRecord struct {
	EntityID         string `csv:"entity_id"`
	TissueID         string `csv:"tissue_id"`
	MaterialSampleID string `csv:"material_sample_id"`
	OrganismID       string `csv:"organism_id"`
	ScientificName   string `csv:"scientific_name"`

	IdentificationVerified string `csv:"identification_verified"`
	ReferenceMaterial      string `csv:"reference_material"`
	Custodian              string `csv:"custodian"`
	Institution            string `csv:"institution"`
	InstitutionCode        string `csv:"institution_code"`
	SamplingProtocol       string `csv:"sampling_protocol"`
	TissueType             string `csv:"tissue_type"`
	Disposition            string `csv:"disposition"`
	Fixation               string `csv:"fixation"`
	Storage                string `csv:"storage"`
}

func (r TissueRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r TissueRecord) Decompose(frame *crdt.Frame[TissueAtom]) error {
	push := func(tag TissueTag, value string) {
		frame.PushOpt(TissueAtom{Kind: tag, Value: value}, value != "")
	}

	push(TissueID, r.TissueID)
	push(TissueMaterialSampleID, r.MaterialSampleID)
	push(TissueOrganismID, r.OrganismID)
	push(TissueScientificName, taxonomy.NormalizeName(r.ScientificName))
	push(TissueIdentificationVerified, canonicalBool(r.IdentificationVerified))
	push(TissueReferenceMaterial, canonicalBool(r.ReferenceMaterial))
	push(TissueCustodian, r.Custodian)
	push(TissueInstitution, r.Institution)
	push(TissueInstitutionCode, r.InstitutionCode)
	push(TissueSamplingProtocol, r.SamplingProtocol)
	push(TissueType, r.TissueType)
	push(TissueDisposition, r.Disposition)
	push(TissueFixation, r.Fixation)
	push(TissueStorage, r.Storage)
	return nil
}

// Tissue is the reduced snapshot row of the tissues table.
type Tissue struct {
	EntityID string
	NameID   *string

	TissueID         string
	MaterialSampleID string
	OrganismID       string

	fields map[TissueTag]string
}

func (t Tissue) opt(tag TissueTag) any     { return derefOrNil(optString(t.fields[tag])) }
func (t Tissue) optBool(tag TissueTag) any { return derefOrNil(tryParseBool(t.fields[tag])) }

func reduceTissue(entityID string, atoms []TissueAtom, names NameLookup) (Tissue, error) {
	tissue := Tissue{EntityID: entityID, fields: make(map[TissueTag]string)}

	var scientificName string
	for _, atom := range atoms {
		if _, ok := tissueTags[string(atom.Kind)]; !ok {
			return Tissue{}, fmt.Errorf("loggers: %w: tissue %q", ErrUnknownAtom, atom.Kind)
		}
		switch atom.Kind {
		case TissueID:
			tissue.TissueID = atom.Value
		case TissueMaterialSampleID:
			tissue.MaterialSampleID = atom.Value
		case TissueOrganismID:
			tissue.OrganismID = atom.Value
		case TissueScientificName:
			scientificName = atom.Value
		default:
			tissue.fields[atom.Kind] = atom.Value
		}
	}

	for _, m := range []struct {
		value string
		tag   TissueTag
	}{
		{tissue.TissueID, TissueID},
		{tissue.MaterialSampleID, TissueMaterialSampleID},
		{tissue.OrganismID, TissueOrganismID},
		{scientificName, TissueScientificName},
	} {
		if m.value == "" {
			return Tissue{}, missingAtom(entityID, string(m.tag))
		}
	}

	if id, ok := names[scientificName]; ok {
		tissue.NameID = &id
	}
	return tissue, nil
}

// TissuesImporter returns the archive importer for tissues.csv.br
// entries.
func TissuesImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[TissueRecord, TissueAtom](st, cfg, store.KindTissue, decodeTissueAtom)
}

var tissueColumns = []string{
	"entity_id", "name_id", "tissue_id", "material_sample_id", "organism_id",
	"identification_verified", "reference_material", "custodian",
	"institution", "institution_code", "sampling_protocol", "tissue_type",
	"disposition", "fixation", "storage",
}

// UpdateTissues reduces the tissue logs into the tissues table.
func UpdateTissues(ctx context.Context, st *store.Store, cfg config.Config) error {
	names, err := LoadNameLookup(ctx, st.DB())
	if err != nil {
		return err
	}

	return projection[TissueAtom, Tissue]{
		kind:   store.KindTissue,
		decode: decodeTissueAtom,
		reduce: func(entityID string, atoms []TissueAtom) (Tissue, error) {
			return reduceTissue(entityID, atoms, names)
		},
		upsert: func(ctx context.Context, tissues []Tissue) error {
			rows := make([][]any, len(tissues))
			for i, t := range tissues {
				rows[i] = []any{
					t.EntityID, derefOrNil(t.NameID), t.TissueID,
					t.MaterialSampleID, t.OrganismID,
					t.optBool(TissueIdentificationVerified), t.optBool(TissueReferenceMaterial),
					t.opt(TissueCustodian), t.opt(TissueInstitution), t.opt(TissueInstitutionCode),
					t.opt(TissueSamplingProtocol), t.opt(TissueType), t.opt(TissueDisposition),
					t.opt(TissueFixation), t.opt(TissueStorage),
				}
			}
			return bulkUpsert(ctx, st.DB(), "tissues", tissueColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
