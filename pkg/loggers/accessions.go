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

// AccessionTag enumerates the accession atom catalog.
type AccessionTag string

const (
	AccessionSpecimenID               AccessionTag = "SpecimenId"
	AccessionScientificName           AccessionTag = "ScientificName"
	AccessionTypeStatus               AccessionTag = "TypeStatus"
	AccessionEventDate                AccessionTag = "EventDate"
	AccessionEventTime                AccessionTag = "EventTime"
	AccessionCollectionRepositoryID   AccessionTag = "CollectionRepositoryId"
	AccessionCollectionRepositoryCode AccessionTag = "CollectionRepositoryCode"
	AccessionInstitutionName          AccessionTag = "InstitutionName"
	AccessionInstitutionCode          AccessionTag = "InstitutionCode"
	AccessionDisposition              AccessionTag = "Disposition"
	AccessionPreparation              AccessionTag = "Preparation"
	AccessionAccessionedBy            AccessionTag = "AccessionedBy"
	AccessionPreparedBy               AccessionTag = "PreparedBy"
	AccessionIdentifiedBy             AccessionTag = "IdentifiedBy"
	AccessionIdentifiedDate           AccessionTag = "IdentifiedDate"
	AccessionIdentificationRemarks    AccessionTag = "IdentificationRemarks"
	AccessionOtherCatalogNumbers      AccessionTag = "OtherCatalogNumbers"
)

var accessionTags = atomSet(
	string(AccessionSpecimenID), string(AccessionScientificName),
	string(AccessionTypeStatus), string(AccessionEventDate), string(AccessionEventTime),
	string(AccessionCollectionRepositoryID), string(AccessionCollectionRepositoryCode),
	string(AccessionInstitutionName), string(AccessionInstitutionCode),
	string(AccessionDisposition), string(AccessionPreparation),
	string(AccessionAccessionedBy), string(AccessionPreparedBy),
	string(AccessionIdentifiedBy), string(AccessionIdentifiedDate),
	string(AccessionIdentificationRemarks), string(AccessionOtherCatalogNumbers),
)

// AccessionAtom is one field of an accession.
type AccessionAtom struct {
	Kind  AccessionTag
	Value string
}

func (a AccessionAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a AccessionAtom) IsEmpty() bool   { return a.Kind == "" }
func (a AccessionAtom) Payload() string { return a.Value }

func decodeAccessionAtom(tag, value string) (AccessionAtom, error) {
	if tag == "Empty" {
		return AccessionAtom{}, nil
	}
	if _, ok := accessionTags[tag]; !ok {
		return AccessionAtom{}, fmt.Errorf("loggers: %w: accession %q", ErrUnknownAtom, tag)
	}
	return AccessionAtom{Kind: AccessionTag(tag), Value: value}, nil
}

// AccessionRecord is one row of an accessions.csv export.
type AccessionRecord struct {
	EntityID       string `csv:"entity_id"`
	SpecimenID     string `csv:"specimen_id"`
	ScientificName string `csv:"scientific_name"`

	TypeStatus               string `csv:"type_status"`
	EventDate                string `csv:"event_date"`
	EventTime                string `csv:"event_time"`
	CollectionRepositoryID   string `csv:"collection_repository_id"`
	CollectionRepositoryCode string `csv:"collection_repository_code"`
	InstitutionName          string `csv:"institution_name"`
	InstitutionCode          string `csv:"institution_code"`
	Disposition              string `csv:"disposition"`
	Preparation              string `csv:"preparation"`
	AccessionedBy            string `csv:"accessioned_by"`
	PreparedBy               string `csv:"prepared_by"`
	IdentifiedBy             string `csv:"identified_by"`
	IdentifiedDate           string `csv:"identified_date"`
	IdentificationRemarks    string `csv:"identification_remarks"`
	OtherCatalogNumbers      string `csv:"other_catalog_numbers"`
}

func (r AccessionRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r AccessionRecord) Decompose(frame *crdt.Frame[AccessionAtom]) error {
	push := func(tag AccessionTag, value string) {
		frame.PushOpt(AccessionAtom{Kind: tag, Value: value}, value != "")
	}

	push(AccessionSpecimenID, r.SpecimenID)
	push(AccessionScientificName, taxonomy.NormalizeName(r.ScientificName))
	push(AccessionTypeStatus, r.TypeStatus)
	push(AccessionEventDate, r.EventDate)
	push(AccessionEventTime, r.EventTime)
	push(AccessionCollectionRepositoryID, r.CollectionRepositoryID)
	push(AccessionCollectionRepositoryCode, r.CollectionRepositoryCode)
	push(AccessionInstitutionName, r.InstitutionName)
	push(AccessionInstitutionCode, r.InstitutionCode)
	push(AccessionDisposition, r.Disposition)
	push(AccessionPreparation, r.Preparation)
	push(AccessionAccessionedBy, r.AccessionedBy)
	push(AccessionPreparedBy, r.PreparedBy)
	push(AccessionIdentifiedBy, r.IdentifiedBy)
	push(AccessionIdentifiedDate, r.IdentifiedDate)
	push(AccessionIdentificationRemarks, r.IdentificationRemarks)
	push(AccessionOtherCatalogNumbers, r.OtherCatalogNumbers)
	return nil
}

// Accession is the reduced snapshot row of the accessions table.
type Accession struct {
	EntityID string
	NameID   *string

	SpecimenID     string
	ScientificName string

	fields map[AccessionTag]string
}

func (a Accession) opt(tag AccessionTag) any { return derefOrNil(optString(a.fields[tag])) }

func reduceAccession(entityID string, atoms []AccessionAtom, names NameLookup) (Accession, error) {
	accession := Accession{EntityID: entityID, fields: make(map[AccessionTag]string)}

	for _, atom := range atoms {
		if _, ok := accessionTags[string(atom.Kind)]; !ok {
			return Accession{}, fmt.Errorf("loggers: %w: accession %q", ErrUnknownAtom, atom.Kind)
		}
		switch atom.Kind {
		case AccessionSpecimenID:
			accession.SpecimenID = atom.Value
		case AccessionScientificName:
			accession.ScientificName = atom.Value
		default:
			accession.fields[atom.Kind] = atom.Value
		}
	}

	if accession.SpecimenID == "" {
		return Accession{}, missingAtom(entityID, string(AccessionSpecimenID))
	}
	if accession.ScientificName == "" {
		return Accession{}, missingAtom(entityID, string(AccessionScientificName))
	}

	if id, ok := names[accession.ScientificName]; ok {
		accession.NameID = &id
	}
	return accession, nil
}

// AccessionsImporter returns the archive importer for
// accessions.csv.br entries.
func AccessionsImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[AccessionRecord, AccessionAtom](st, cfg, store.KindAccession, decodeAccessionAtom)
}

var accessionColumns = []string{
	"entity_id", "name_id", "specimen_id", "scientific_name", "type_status",
	"event_date", "event_time", "collection_repository_id",
	"collection_repository_code", "institution_name", "institution_code",
	"disposition", "preparation", "accessioned_by", "prepared_by",
	"identified_by", "identified_date", "identification_remarks",
	"other_catalog_numbers",
}

// UpdateAccessions reduces the accession logs into the accessions
// table.
func UpdateAccessions(ctx context.Context, st *store.Store, cfg config.Config) error {
	names, err := LoadNameLookup(ctx, st.DB())
	if err != nil {
		return err
	}

	return projection[AccessionAtom, Accession]{
		kind:   store.KindAccession,
		decode: decodeAccessionAtom,
		reduce: func(entityID string, atoms []AccessionAtom) (Accession, error) {
			return reduceAccession(entityID, atoms, names)
		},
		upsert: func(ctx context.Context, accessions []Accession) error {
			rows := make([][]any, len(accessions))
			for i, a := range accessions {
				rows[i] = []any{
					a.EntityID, derefOrNil(a.NameID), a.SpecimenID, a.ScientificName,
					a.opt(AccessionTypeStatus), a.opt(AccessionEventDate), a.opt(AccessionEventTime),
					a.opt(AccessionCollectionRepositoryID), a.opt(AccessionCollectionRepositoryCode),
					a.opt(AccessionInstitutionName), a.opt(AccessionInstitutionCode),
					a.opt(AccessionDisposition), a.opt(AccessionPreparation),
					a.opt(AccessionAccessionedBy), a.opt(AccessionPreparedBy),
					a.opt(AccessionIdentifiedBy), a.opt(AccessionIdentifiedDate),
					a.opt(AccessionIdentificationRemarks), a.opt(AccessionOtherCatalogNumbers),
				}
			}
			return bulkUpsert(ctx, st.DB(), "accessions", accessionColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
