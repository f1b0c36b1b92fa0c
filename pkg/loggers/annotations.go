package loggers

import (
	"context"
	"fmt"

	"github.com/ecotone-bio/ecotone/pkg/archive"
	"github.com/ecotone-bio/ecotone/pkg/config"
	"github.com/ecotone-bio/ecotone/pkg/crdt"
	"github.com/ecotone-bio/ecotone/pkg/store"
)

// AnnotationTag enumerates the assembly annotation atom catalog.
type AnnotationTag string

const (
	AnnotationAssemblyID       AnnotationTag = "AssemblyId"
	AnnotationName             AnnotationTag = "Name"
	AnnotationProvider         AnnotationTag = "Provider"
	AnnotationEventDate        AnnotationTag = "EventDate"
	AnnotationNumberOfGenes    AnnotationTag = "NumberOfGenes"
	AnnotationNumberOfProteins AnnotationTag = "NumberOfProteins"
)

var annotationTags = atomSet(
	string(AnnotationAssemblyID), string(AnnotationName), string(AnnotationProvider),
	string(AnnotationEventDate), string(AnnotationNumberOfGenes),
	string(AnnotationNumberOfProteins),
)

// AnnotationAtom is one field of an assembly annotation.
type AnnotationAtom struct {
	Kind  AnnotationTag
	Value string
}

func (a AnnotationAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a AnnotationAtom) IsEmpty() bool   { return a.Kind == "" }
func (a AnnotationAtom) Payload() string { return a.Value }

func decodeAnnotationAtom(tag, value string) (AnnotationAtom, error) {
	if tag == "Empty" {
		return AnnotationAtom{}, nil
	}
	if _, ok := annotationTags[tag]; !ok {
		return AnnotationAtom{}, fmt.Errorf("loggers: %w: annotation %q", ErrUnknownAtom, tag)
	}
	return AnnotationAtom{Kind: AnnotationTag(tag), Value: value}, nil
}

// AnnotationRecord is one row of an annotations.csv export.
type AnnotationRecord struct {
	EntityID         string `csv:"entity_id"`
	AssemblyID       string `csv:"assembly_id"`
	Name             string `csv:"name"`
	Provider         string `csv:"provider"`
	EventDate        string `csv:"event_date"`
	NumberOfGenes    string `csv:"number_of_genes"`
	NumberOfProteins string `csv:"number_of_proteins"`
}

func (r AnnotationRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r AnnotationRecord) Decompose(frame *crdt.Frame[AnnotationAtom]) error {
	push := func(tag AnnotationTag, value string) {
		frame.PushOpt(AnnotationAtom{Kind: tag, Value: value}, value != "")
	}

	push(AnnotationAssemblyID, r.AssemblyID)
	push(AnnotationName, r.Name)
	push(AnnotationProvider, r.Provider)
	push(AnnotationEventDate, r.EventDate)
	push(AnnotationNumberOfGenes, canonicalInt(r.NumberOfGenes))
	push(AnnotationNumberOfProteins, canonicalInt(r.NumberOfProteins))
	return nil
}

// Annotation is the reduced snapshot row of the annotations table.
type Annotation struct {
	EntityID string

	AssemblyID string
	fields     map[AnnotationTag]string
}

func (a Annotation) opt(tag AnnotationTag) any    { return derefOrNil(optString(a.fields[tag])) }
func (a Annotation) optInt(tag AnnotationTag) any { return derefOrNil(tryParseInt(a.fields[tag])) }

func reduceAnnotation(entityID string, atoms []AnnotationAtom) (Annotation, error) {
	annotation := Annotation{EntityID: entityID, fields: make(map[AnnotationTag]string)}

	for _, atom := range atoms {
		if _, ok := annotationTags[string(atom.Kind)]; !ok {
			return Annotation{}, fmt.Errorf("loggers: %w: annotation %q", ErrUnknownAtom, atom.Kind)
		}
		if atom.Kind == AnnotationAssemblyID {
			annotation.AssemblyID = atom.Value
			continue
		}
		annotation.fields[atom.Kind] = atom.Value
	}

	if annotation.AssemblyID == "" {
		return Annotation{}, missingAtom(entityID, string(AnnotationAssemblyID))
	}
	return annotation, nil
}

// AnnotationsImporter returns the archive importer for
// annotations.csv.br entries.
func AnnotationsImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[AnnotationRecord, AnnotationAtom](st, cfg, store.KindAnnotation, decodeAnnotationAtom)
}

var annotationColumns = []string{
	"entity_id", "assembly_id", "name", "provider", "event_date",
	"number_of_genes", "number_of_proteins",
}

// UpdateAnnotations reduces the annotation logs into the annotations
// table.
func UpdateAnnotations(ctx context.Context, st *store.Store, cfg config.Config) error {
	return projection[AnnotationAtom, Annotation]{
		kind:   store.KindAnnotation,
		decode: decodeAnnotationAtom,
		reduce: reduceAnnotation,
		upsert: func(ctx context.Context, annotations []Annotation) error {
			rows := make([][]any, len(annotations))
			for i, a := range annotations {
				rows[i] = []any{
					a.EntityID, a.AssemblyID, a.opt(AnnotationName),
					a.opt(AnnotationProvider), a.opt(AnnotationEventDate),
					a.optInt(AnnotationNumberOfGenes), a.optInt(AnnotationNumberOfProteins),
				}
			}
			return bulkUpsert(ctx, st.DB(), "annotations", annotationColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
