package loggers

import (
	"context"
	"fmt"

	"github.com/ecotone-bio/ecotone/pkg/archive"
	"github.com/ecotone-bio/ecotone/pkg/config"
	"github.com/ecotone-bio/ecotone/pkg/crdt"
	"github.com/ecotone-bio/ecotone/pkg/store"
)

// DataProductTag enumerates the data product atom catalog.
type DataProductTag string

const (
	DataProductOrganismID         DataProductTag = "OrganismId"
	DataProductExtractID          DataProductTag = "ExtractId"
	DataProductSequenceRunID      DataProductTag = "SequenceRunId"
	DataProductPublicationID      DataProductTag = "PublicationId"
	DataProductCustodian          DataProductTag = "Custodian"
	DataProductSequenceSampleID   DataProductTag = "SequenceSampleId"
	DataProductSequenceAnalysisID DataProductTag = "SequenceAnalysisId"
	DataProductNotes              DataProductTag = "Notes"
	DataProductContext            DataProductTag = "Context"
	DataProductType               DataProductTag = "Type"
	DataProductFileType           DataProductTag = "FileType"
	DataProductURL                DataProductTag = "Url"
	DataProductLicence            DataProductTag = "Licence"
	DataProductAccess             DataProductTag = "Access"
)

var dataProductTags = atomSet(
	string(DataProductOrganismID), string(DataProductExtractID),
	string(DataProductSequenceRunID), string(DataProductPublicationID),
	string(DataProductCustodian), string(DataProductSequenceSampleID),
	string(DataProductSequenceAnalysisID), string(DataProductNotes),
	string(DataProductContext), string(DataProductType), string(DataProductFileType),
	string(DataProductURL), string(DataProductLicence), string(DataProductAccess),
)

// DataProductAtom is one field of a data product.
type DataProductAtom struct {
	Kind  DataProductTag
	Value string
}

func (a DataProductAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a DataProductAtom) IsEmpty() bool   { return a.Kind == "" }
func (a DataProductAtom) Payload() string { return a.Value }

func decodeDataProductAtom(tag, value string) (DataProductAtom, error) {
	if tag == "Empty" {
		return DataProductAtom{}, nil
	}
	if _, ok := dataProductTags[tag]; !ok {
		return DataProductAtom{}, fmt.Errorf("loggers: %w: data product %q", ErrUnknownAtom, tag)
	}
	return DataProductAtom{Kind: DataProductTag(tag), Value: value}, nil
}

// DataProductRecord is one row of a data_products.csv export. Every
// column is optional; a data product may hang off an organism, an
// extract, a sequence run or a publication.
type DataProductRecord struct {
	EntityID           string `csv:"entity_id"`
	OrganismID         string `csv:"organism_id"`
	ExtractID          string `csv:"extract_id"`
	SequenceRunID      string `csv:"sequence_run_id"`
	PublicationID      string `csv:"publication_id"`
	Custodian          string `csv:"custodian"`
	SequenceSampleID   string `csv:"sequence_sample_id"`
	SequenceAnalysisID string `csv:"sequence_analysis_id"`
	Notes              string `csv:"notes"`
	Context            string `csv:"context"`
	Type               string `csv:"type"`
	FileType           string `csv:"file_type"`
	URL                string `csv:"url"`
	Licence            string `csv:"licence"`
	Access             string `csv:"access"`
}

func (r DataProductRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r DataProductRecord) Decompose(frame *crdt.Frame[DataProductAtom]) error {
	push := func(tag DataProductTag, value string) {
		frame.PushOpt(DataProductAtom{Kind: tag, Value: value}, value != "")
	}

	push(DataProductOrganismID, r.OrganismID)
	push(DataProductExtractID, r.ExtractID)
	push(DataProductSequenceRunID, r.SequenceRunID)
	push(DataProductPublicationID, r.PublicationID)
	push(DataProductCustodian, r.Custodian)
	push(DataProductSequenceSampleID, r.SequenceSampleID)
	push(DataProductSequenceAnalysisID, r.SequenceAnalysisID)
	push(DataProductNotes, r.Notes)
	push(DataProductContext, r.Context)
	push(DataProductType, r.Type)
	push(DataProductFileType, r.FileType)
	push(DataProductURL, r.URL)
	push(DataProductLicence, r.Licence)
	push(DataProductAccess, r.Access)
	return nil
}

// DataProduct is the reduced snapshot row of the data_products table.
type DataProduct struct {
	EntityID string
	fields   map[DataProductTag]string
}

func (d DataProduct) opt(tag DataProductTag) any { return derefOrNil(optString(d.fields[tag])) }

func reduceDataProduct(entityID string, atoms []DataProductAtom) (DataProduct, error) {
	product := DataProduct{EntityID: entityID, fields: make(map[DataProductTag]string)}

	for _, atom := range atoms {
		if _, ok := dataProductTags[string(atom.Kind)]; !ok {
			return DataProduct{}, fmt.Errorf("loggers: %w: data product %q", ErrUnknownAtom, atom.Kind)
		}
		product.fields[atom.Kind] = atom.Value
	}
	return product, nil
}

// DataProductsImporter returns the archive importer for
// data_products.csv.br entries.
func DataProductsImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[DataProductRecord, DataProductAtom](st, cfg, store.KindDataProduct, decodeDataProductAtom)
}

var dataProductColumns = []string{
	"entity_id", "organism_id", "extract_id", "sequence_run_id",
	"publication_id", "custodian", "sequence_sample_id",
	"sequence_analysis_id", "notes", "context", "type", "file_type",
	"url", "licence", "access",
}

// UpdateDataProducts reduces the data product logs into the
// data_products table.
func UpdateDataProducts(ctx context.Context, st *store.Store, cfg config.Config) error {
	return projection[DataProductAtom, DataProduct]{
		kind:   store.KindDataProduct,
		decode: decodeDataProductAtom,
		reduce: reduceDataProduct,
		upsert: func(ctx context.Context, products []DataProduct) error {
			rows := make([][]any, len(products))
			for i, d := range products {
				rows[i] = []any{
					d.EntityID, d.opt(DataProductOrganismID), d.opt(DataProductExtractID),
					d.opt(DataProductSequenceRunID), d.opt(DataProductPublicationID),
					d.opt(DataProductCustodian), d.opt(DataProductSequenceSampleID),
					d.opt(DataProductSequenceAnalysisID), d.opt(DataProductNotes),
					d.opt(DataProductContext), d.opt(DataProductType),
					d.opt(DataProductFileType), d.opt(DataProductURL),
					d.opt(DataProductLicence), d.opt(DataProductAccess),
				}
			}
			return bulkUpsert(ctx, st.DB(), "data_products", dataProductColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
