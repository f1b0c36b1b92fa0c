package loggers

import (
	"context"
	"fmt"
	"time"

	"github.com/ecotone-bio/ecotone/pkg/archive"
	"github.com/ecotone-bio/ecotone/pkg/config"
	"github.com/ecotone-bio/ecotone/pkg/crdt"
	"github.com/ecotone-bio/ecotone/pkg/store"
	"github.com/ecotone-bio/ecotone/pkg/taxonomy"
)

// TaxonomicActTag enumerates the taxonomic act atom catalog.
type TaxonomicActTag string

const (
	TaxonomicActTaxon         TaxonomicActTag = "Taxon"
	TaxonomicActAcceptedTaxon TaxonomicActTag = "AcceptedTaxon"
	TaxonomicActAct           TaxonomicActTag = "Act"
	TaxonomicActSourceURL     TaxonomicActTag = "SourceUrl"
	TaxonomicActCreatedAt     TaxonomicActTag = "CreatedAt"
	TaxonomicActUpdatedAt     TaxonomicActTag = "UpdatedAt"
)

var taxonomicActTags = atomSet(
	string(TaxonomicActTaxon),
	string(TaxonomicActAcceptedTaxon), string(TaxonomicActAct),
	string(TaxonomicActSourceURL), string(TaxonomicActCreatedAt),
	string(TaxonomicActUpdatedAt),
)

// TaxonomicActAtom is one field of a taxonomic act.
type TaxonomicActAtom struct {
	Kind  TaxonomicActTag
	Value string
}

func (a TaxonomicActAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a TaxonomicActAtom) IsEmpty() bool   { return a.Kind == "" }
func (a TaxonomicActAtom) Payload() string { return a.Value }

func decodeTaxonomicActAtom(tag, value string) (TaxonomicActAtom, error) {
	if tag == "Empty" {
		return TaxonomicActAtom{}, nil
	}
	if _, ok := taxonomicActTags[tag]; !ok {
		return TaxonomicActAtom{}, fmt.Errorf("loggers: %w: taxonomic act %q", ErrUnknownAtom, tag)
	}
	return TaxonomicActAtom{Kind: TaxonomicActTag(tag), Value: value}, nil
}

// TaxonomicActRecord is one row of a taxonomic_acts.csv export.
type TaxonomicActRecord struct {
	EntityID           string `csv:"entity_id"`
	ScientificName     string `csv:"scientific_name"`
	AcceptedUsageTaxon string `csv:"accepted_usage_taxon"`
	TaxonomicStatus    string `csv:"taxonomic_status"`
	CreatedAt          string `csv:"created_at"`
	UpdatedAt          string `csv:"updated_at"`
	References         string `csv:"references"`
}

func (r TaxonomicActRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r TaxonomicActRecord) Decompose(frame *crdt.Frame[TaxonomicActAtom]) error {
	status, err := taxonomy.ParseStatus(r.TaxonomicStatus)
	if err != nil {
		return err
	}

	push := func(tag TaxonomicActTag, value string) {
		frame.PushOpt(TaxonomicActAtom{Kind: tag, Value: value}, value != "")
	}

	push(TaxonomicActTaxon, r.ScientificName)

	// the act is derived from the status; statuses without an act
	// equivalent simply don't assert one
	if act, ok := taxonomy.ActFromStatus(status); ok {
		push(TaxonomicActAct, string(act))
	}

	push(TaxonomicActAcceptedTaxon, r.AcceptedUsageTaxon)
	push(TaxonomicActSourceURL, r.References)
	push(TaxonomicActCreatedAt, formatDateTime(r.CreatedAt))
	push(TaxonomicActUpdatedAt, formatDateTime(r.UpdatedAt))
	return nil
}

// formatDateTime canonicalizes a provider timestamp to RFC 3339 UTC, or
// empty when the value is absent or malformed.
func formatDateTime(value string) string {
	if value == "" {
		return ""
	}
	ts, err := taxonomy.ParseDateTime(value)
	if err != nil {
		return ""
	}
	return ts.Format(time.RFC3339)
}

// TaxonomicAct is the reduced snapshot row of the taxonomic_acts table.
type TaxonomicAct struct {
	EntityID string

	Taxon         string
	AcceptedTaxon *string
	Act           *string
	SourceURL     *string
	DataCreatedAt *string
	DataUpdatedAt *string
}

func reduceTaxonomicAct(entityID string, atoms []TaxonomicActAtom) (TaxonomicAct, error) {
	act := TaxonomicAct{EntityID: entityID}

	for _, atom := range atoms {
		switch atom.Kind {
		case TaxonomicActTaxon:
			act.Taxon = atom.Value
		case TaxonomicActAcceptedTaxon:
			act.AcceptedTaxon = optString(atom.Value)
		case TaxonomicActAct:
			act.Act = optString(atom.Value)
		case TaxonomicActSourceURL:
			act.SourceURL = optString(atom.Value)
		case TaxonomicActCreatedAt:
			act.DataCreatedAt = optString(atom.Value)
		case TaxonomicActUpdatedAt:
			act.DataUpdatedAt = optString(atom.Value)
		default:
			return TaxonomicAct{}, fmt.Errorf("loggers: %w: taxonomic act %q", ErrUnknownAtom, atom.Kind)
		}
	}

	if act.Taxon == "" {
		return TaxonomicAct{}, missingAtom(entityID, string(TaxonomicActTaxon))
	}
	return act, nil
}

// TaxonomicActsImporter returns the archive importer for
// taxonomic_acts.csv.br entries.
func TaxonomicActsImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[TaxonomicActRecord, TaxonomicActAtom](st, cfg, store.KindTaxonomicAct, decodeTaxonomicActAtom)
}

var taxonomicActColumns = []string{
	"entity_id", "taxon", "accepted_taxon", "act", "source_url",
	"data_created_at", "data_updated_at",
}

// UpdateTaxonomicActs reduces the taxonomic act logs into the
// taxonomic_acts table.
func UpdateTaxonomicActs(ctx context.Context, st *store.Store, cfg config.Config) error {
	return projection[TaxonomicActAtom, TaxonomicAct]{
		kind:   store.KindTaxonomicAct,
		decode: decodeTaxonomicActAtom,
		reduce: reduceTaxonomicAct,
		upsert: func(ctx context.Context, acts []TaxonomicAct) error {
			rows := make([][]any, len(acts))
			for i, a := range acts {
				rows[i] = []any{
					a.EntityID, a.Taxon, derefOrNil(a.AcceptedTaxon),
					derefOrNil(a.Act), derefOrNil(a.SourceURL),
					derefOrNil(a.DataCreatedAt), derefOrNil(a.DataUpdatedAt),
				}
			}
			return bulkUpsert(ctx, st.DB(), "taxonomic_acts", taxonomicActColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
