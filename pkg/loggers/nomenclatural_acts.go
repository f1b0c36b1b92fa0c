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

// NomenclaturalActTag enumerates the nomenclatural act atom catalog.
type NomenclaturalActTag string

const (
	NomenclaturalActScientificName  NomenclaturalActTag = "ScientificName"
	NomenclaturalActActedOn         NomenclaturalActTag = "ActedOn"
	NomenclaturalActAct             NomenclaturalActTag = "Act"
	NomenclaturalActPublication     NomenclaturalActTag = "Publication"
	NomenclaturalActPublicationDate NomenclaturalActTag = "PublicationDate"
	NomenclaturalActSourceURL       NomenclaturalActTag = "SourceUrl"
)

var nomenclaturalActTags = atomSet(
	string(NomenclaturalActScientificName),
	string(NomenclaturalActActedOn), string(NomenclaturalActAct),
	string(NomenclaturalActPublication), string(NomenclaturalActPublicationDate),
	string(NomenclaturalActSourceURL),
)

// NomenclaturalActAtom is one field of a nomenclatural act.
type NomenclaturalActAtom struct {
	Kind  NomenclaturalActTag
	Value string
}

func (a NomenclaturalActAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a NomenclaturalActAtom) IsEmpty() bool   { return a.Kind == "" }
func (a NomenclaturalActAtom) Payload() string { return a.Value }

func decodeNomenclaturalActAtom(tag, value string) (NomenclaturalActAtom, error) {
	if tag == "Empty" {
		return NomenclaturalActAtom{}, nil
	}
	if _, ok := nomenclaturalActTags[tag]; !ok {
		return NomenclaturalActAtom{}, fmt.Errorf("loggers: %w: nomenclatural act %q", ErrUnknownAtom, tag)
	}
	return NomenclaturalActAtom{Kind: NomenclaturalActTag(tag), Value: value}, nil
}

// NomenclaturalActRecord is one row of a nomenclatural_acts.csv export.
type NomenclaturalActRecord struct {
	EntityID        string `csv:"entity_id"`
	ScientificName  string `csv:"scientific_name"`
	ActedOn         string `csv:"acted_on"`
	Act             string `csv:"act"`
	Publication     string `csv:"publication"`
	PublicationDate string `csv:"publication_date"`
	SourceURL       string `csv:"source_url"`
}

func (r NomenclaturalActRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r NomenclaturalActRecord) Decompose(frame *crdt.Frame[NomenclaturalActAtom]) error {
	act, err := taxonomy.ParseNomenclaturalAct(r.Act)
	if err != nil {
		return err
	}

	push := func(tag NomenclaturalActTag, value string) {
		frame.PushOpt(NomenclaturalActAtom{Kind: tag, Value: value}, value != "")
	}

	push(NomenclaturalActScientificName, taxonomy.NormalizeName(r.ScientificName))
	push(NomenclaturalActAct, string(act))
	push(NomenclaturalActSourceURL, r.SourceURL)
	push(NomenclaturalActPublication, r.Publication)
	push(NomenclaturalActActedOn, taxonomy.NormalizeName(r.ActedOn))
	push(NomenclaturalActPublicationDate, r.PublicationDate)
	return nil
}

// NomenclaturalAct is the reduced snapshot row of the
// nomenclatural_acts table.
type NomenclaturalAct struct {
	EntityID string
	NameID   *string

	ActedOn         *string
	Act             string
	Publication     *string
	PublicationDate *string
	SourceURL       *string

	scientificName string
}

func reduceNomenclaturalAct(entityID string, atoms []NomenclaturalActAtom, names NameLookup) (NomenclaturalAct, error) {
	act := NomenclaturalAct{EntityID: entityID}

	for _, atom := range atoms {
		switch atom.Kind {
		case NomenclaturalActScientificName:
			act.scientificName = atom.Value
		case NomenclaturalActActedOn:
			act.ActedOn = optString(atom.Value)
		case NomenclaturalActAct:
			act.Act = atom.Value
		case NomenclaturalActPublication:
			act.Publication = optString(atom.Value)
		case NomenclaturalActPublicationDate:
			act.PublicationDate = optString(atom.Value)
		case NomenclaturalActSourceURL:
			act.SourceURL = optString(atom.Value)
		default:
			return NomenclaturalAct{}, fmt.Errorf("loggers: %w: nomenclatural act %q", ErrUnknownAtom, atom.Kind)
		}
	}

	if act.Act == "" {
		return NomenclaturalAct{}, missingAtom(entityID, string(NomenclaturalActAct))
	}
	if act.scientificName == "" {
		return NomenclaturalAct{}, missingAtom(entityID, string(NomenclaturalActScientificName))
	}

	// acts attach to names rather than taxa so every taxonomic system
	// sees them; a missing name is tolerated and left unlinked
	if id, ok := names[act.scientificName]; ok {
		act.NameID = &id
	}
	return act, nil
}

// NomenclaturalActsImporter returns the archive importer for
// nomenclatural_acts.csv.br entries.
func NomenclaturalActsImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[NomenclaturalActRecord, NomenclaturalActAtom](st, cfg, store.KindNomenclaturalAct, decodeNomenclaturalActAtom)
}

var nomenclaturalActColumns = []string{
	"entity_id", "name_id", "acted_on", "act", "publication",
	"publication_date", "source_url",
}

// UpdateNomenclaturalActs reduces the nomenclatural act logs into the
// nomenclatural_acts table.
func UpdateNomenclaturalActs(ctx context.Context, st *store.Store, cfg config.Config) error {
	names, err := LoadNameLookup(ctx, st.DB())
	if err != nil {
		return err
	}

	return projection[NomenclaturalActAtom, NomenclaturalAct]{
		kind:   store.KindNomenclaturalAct,
		decode: decodeNomenclaturalActAtom,
		reduce: func(entityID string, atoms []NomenclaturalActAtom) (NomenclaturalAct, error) {
			return reduceNomenclaturalAct(entityID, atoms, names)
		},
		upsert: func(ctx context.Context, acts []NomenclaturalAct) error {
			rows := make([][]any, len(acts))
			for i, a := range acts {
				rows[i] = []any{
					a.EntityID, derefOrNil(a.NameID), derefOrNil(a.ActedOn),
					a.Act, derefOrNil(a.Publication), derefOrNil(a.PublicationDate),
					derefOrNil(a.SourceURL),
				}
			}
			return bulkUpsert(ctx, st.DB(), "nomenclatural_acts", nomenclaturalActColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
