package loggers

import (
	"context"
	"fmt"

	"github.com/ecotone-bio/ecotone/pkg/archive"
	"github.com/ecotone-bio/ecotone/pkg/config"
	"github.com/ecotone-bio/ecotone/pkg/crdt"
	"github.com/ecotone-bio/ecotone/pkg/store"
)

// DepositionTag enumerates the assembly deposition atom catalog.
type DepositionTag string

const (
	DepositionAssemblyID  DepositionTag = "AssemblyId"
	DepositionEventDate   DepositionTag = "EventDate"
	DepositionURL         DepositionTag = "Url"
	DepositionInstitution DepositionTag = "Institution"
)

var depositionTags = atomSet(
	string(DepositionAssemblyID), string(DepositionEventDate),
	string(DepositionURL), string(DepositionInstitution),
)

// DepositionAtom is one field of an assembly deposition.
type DepositionAtom struct {
	Kind  DepositionTag
	Value string
}

func (a DepositionAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a DepositionAtom) IsEmpty() bool   { return a.Kind == "" }
func (a DepositionAtom) Payload() string { return a.Value }

func decodeDepositionAtom(tag, value string) (DepositionAtom, error) {
	if tag == "Empty" {
		return DepositionAtom{}, nil
	}
	if _, ok := depositionTags[tag]; !ok {
		return DepositionAtom{}, fmt.Errorf("loggers: %w: deposition %q", ErrUnknownAtom, tag)
	}
	return DepositionAtom{Kind: DepositionTag(tag), Value: value}, nil
}

// DepositionRecord is one row of a depositions.csv export.
type DepositionRecord struct {
	EntityID    string `csv:"entity_id"`
	AssemblyID  string `csv:"assembly_id"`
	EventDate   string `csv:"event_date"`
	URL         string `csv:"url"`
	Institution string `csv:"institution"`
}

func (r DepositionRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r DepositionRecord) Decompose(frame *crdt.Frame[DepositionAtom]) error {
	push := func(tag DepositionTag, value string) {
		frame.PushOpt(DepositionAtom{Kind: tag, Value: value}, value != "")
	}

	push(DepositionAssemblyID, r.AssemblyID)
	push(DepositionEventDate, r.EventDate)
	push(DepositionURL, r.URL)
	push(DepositionInstitution, r.Institution)
	return nil
}

// Deposition is the reduced snapshot row of the depositions table.
type Deposition struct {
	EntityID string

	AssemblyID  string
	EventDate   *string
	URL         *string
	Institution *string
}

func reduceDeposition(entityID string, atoms []DepositionAtom) (Deposition, error) {
	deposition := Deposition{EntityID: entityID}

	for _, atom := range atoms {
		switch atom.Kind {
		case DepositionAssemblyID:
			deposition.AssemblyID = atom.Value
		case DepositionEventDate:
			deposition.EventDate = optString(atom.Value)
		case DepositionURL:
			deposition.URL = optString(atom.Value)
		case DepositionInstitution:
			deposition.Institution = optString(atom.Value)
		default:
			return Deposition{}, fmt.Errorf("loggers: %w: deposition %q", ErrUnknownAtom, atom.Kind)
		}
	}

	if deposition.AssemblyID == "" {
		return Deposition{}, missingAtom(entityID, string(DepositionAssemblyID))
	}
	return deposition, nil
}

// DepositionsImporter returns the archive importer for
// depositions.csv.br entries.
func DepositionsImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[DepositionRecord, DepositionAtom](st, cfg, store.KindDeposition, decodeDepositionAtom)
}

var depositionColumns = []string{"entity_id", "assembly_id", "event_date", "url", "institution"}

// UpdateDepositions reduces the deposition logs into the depositions
// table.
func UpdateDepositions(ctx context.Context, st *store.Store, cfg config.Config) error {
	return projection[DepositionAtom, Deposition]{
		kind:   store.KindDeposition,
		decode: decodeDepositionAtom,
		reduce: reduceDeposition,
		upsert: func(ctx context.Context, depositions []Deposition) error {
			rows := make([][]any, len(depositions))
			for i, d := range depositions {
				rows[i] = []any{
					d.EntityID, d.AssemblyID, derefOrNil(d.EventDate),
					derefOrNil(d.URL), derefOrNil(d.Institution),
				}
			}
			return bulkUpsert(ctx, st.DB(), "depositions", depositionColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
