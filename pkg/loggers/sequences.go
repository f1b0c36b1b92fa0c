package loggers

import (
	"context"
	"fmt"

	"github.com/ecotone-bio/ecotone/pkg/archive"
	"github.com/ecotone-bio/ecotone/pkg/config"
	"github.com/ecotone-bio/ecotone/pkg/crdt"
	"github.com/ecotone-bio/ecotone/pkg/store"
)

// SequenceTag enumerates the genetic sequence atom catalog.
type SequenceTag string

const (
	SequenceID               SequenceTag = "SequenceId"
	SequenceDnaExtractID     SequenceTag = "DnaExtractId"
	SequenceEventDate        SequenceTag = "EventDate"
	SequenceEventTime        SequenceTag = "EventTime"
	SequenceSequencedBy      SequenceTag = "SequencedBy"
	SequenceMaterialSampleID SequenceTag = "MaterialSampleId"
	SequenceConcentration    SequenceTag = "Concentration"
	SequenceAmpliconSize     SequenceTag = "AmpliconSize"
	SequenceEstimatedSize    SequenceTag = "EstimatedSize"
	SequenceBaitSetName      SequenceTag = "BaitSetName"
	SequenceBaitSetReference SequenceTag = "BaitSetReference"
	SequenceTargetGene       SequenceTag = "TargetGene"
	SequenceDnaSequence      SequenceTag = "DnaSequence"
)

var sequenceTags = atomSet(
	string(SequenceID), string(SequenceDnaExtractID),
	string(SequenceEventDate), string(SequenceEventTime), string(SequenceSequencedBy),
	string(SequenceMaterialSampleID), string(SequenceConcentration),
	string(SequenceAmpliconSize), string(SequenceEstimatedSize),
	string(SequenceBaitSetName), string(SequenceBaitSetReference),
	string(SequenceTargetGene), string(SequenceDnaSequence),
)

// SequenceAtom is one field of a genetic sequence.
type SequenceAtom struct {
	Kind  SequenceTag
	Value string
}

func (a SequenceAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a SequenceAtom) IsEmpty() bool   { return a.Kind == "" }
func (a SequenceAtom) Payload() string { return a.Value }

func decodeSequenceAtom(tag, value string) (SequenceAtom, error) {
	if tag == "Empty" {
		return SequenceAtom{}, nil
	}
	if _, ok := sequenceTags[tag]; !ok {
		return SequenceAtom{}, fmt.Errorf("loggers: %w: sequence %q", ErrUnknownAtom, tag)
	}
	return SequenceAtom{Kind: SequenceTag(tag), Value: value}, nil
}

// SequenceRecord is one row of a sequences.csv export.
type SequenceRecord struct {
	EntityID     string `csv:"entity_id"`
	SequenceID   string `csv:"sequence_id"`
	DnaExtractID string `csv:"dna_extract_id"`

	EventDate        string `csv:"event_date"`
	EventTime        string `csv:"event_time"`
	SequencedBy      string `csv:"sequenced_by"`
	MaterialSampleID string `csv:"material_sample_id"`
	Concentration    string `csv:"concentration"`
	AmpliconSize     string `csv:"amplicon_size"`
	EstimatedSize    string `csv:"estimated_size"`
	BaitSetName      string `csv:"bait_set_name"`
	BaitSetReference string `csv:"bait_set_reference"`
	TargetGene       string `csv:"target_gene"`
	DnaSequence      string `csv:"dna_sequence"`
}

func (r SequenceRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r SequenceRecord) Decompose(frame *crdt.Frame[SequenceAtom]) error {
	push := func(tag SequenceTag, value string) {
		frame.PushOpt(SequenceAtom{Kind: tag, Value: value}, value != "")
	}

	push(SequenceID, r.SequenceID)
	push(SequenceDnaExtractID, r.DnaExtractID)
	push(SequenceEventDate, r.EventDate)
	push(SequenceEventTime, r.EventTime)
	push(SequenceSequencedBy, r.SequencedBy)
	push(SequenceMaterialSampleID, r.MaterialSampleID)
	push(SequenceConcentration, canonicalFloat(r.Concentration))
	push(SequenceAmpliconSize, canonicalInt(r.AmpliconSize))
	push(SequenceEstimatedSize, r.EstimatedSize)
	push(SequenceBaitSetName, r.BaitSetName)
	push(SequenceBaitSetReference, r.BaitSetReference)
	push(SequenceTargetGene, r.TargetGene)
	push(SequenceDnaSequence, r.DnaSequence)
	return nil
}

// Sequence is the reduced snapshot row of the sequences table.
type Sequence struct {
	EntityID string

	SequenceID   string
	DnaExtractID string

	fields map[SequenceTag]string
}

func (s Sequence) opt(tag SequenceTag) any      { return derefOrNil(optString(s.fields[tag])) }
func (s Sequence) optFloat(tag SequenceTag) any { return derefOrNil(tryParseFloat(s.fields[tag])) }
func (s Sequence) optInt(tag SequenceTag) any   { return derefOrNil(tryParseInt(s.fields[tag])) }

func reduceSequence(entityID string, atoms []SequenceAtom) (Sequence, error) {
	sequence := Sequence{EntityID: entityID, fields: make(map[SequenceTag]string)}

	for _, atom := range atoms {
		if _, ok := sequenceTags[string(atom.Kind)]; !ok {
			return Sequence{}, fmt.Errorf("loggers: %w: sequence %q", ErrUnknownAtom, atom.Kind)
		}
		switch atom.Kind {
		case SequenceID:
			sequence.SequenceID = atom.Value
		case SequenceDnaExtractID:
			sequence.DnaExtractID = atom.Value
		default:
			sequence.fields[atom.Kind] = atom.Value
		}
	}

	if sequence.SequenceID == "" {
		return Sequence{}, missingAtom(entityID, string(SequenceID))
	}
	if sequence.DnaExtractID == "" {
		return Sequence{}, missingAtom(entityID, string(SequenceDnaExtractID))
	}
	return sequence, nil
}

// SequencesImporter returns the archive importer for sequences.csv.br
// entries.
func SequencesImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[SequenceRecord, SequenceAtom](st, cfg, store.KindSequence, decodeSequenceAtom)
}

var sequenceColumns = []string{
	"entity_id", "sequence_id", "dna_extract_id", "event_date", "event_time",
	"sequenced_by", "material_sample_id", "concentration", "amplicon_size",
	"estimated_size", "bait_set_name", "bait_set_reference", "target_gene",
	"dna_sequence",
}

// UpdateSequences reduces the sequence logs into the sequences table.
func UpdateSequences(ctx context.Context, st *store.Store, cfg config.Config) error {
	return projection[SequenceAtom, Sequence]{
		kind:   store.KindSequence,
		decode: decodeSequenceAtom,
		reduce: reduceSequence,
		upsert: func(ctx context.Context, sequences []Sequence) error {
			rows := make([][]any, len(sequences))
			for i, s := range sequences {
				rows[i] = []any{
					s.EntityID, s.SequenceID, s.DnaExtractID,
					s.opt(SequenceEventDate), s.opt(SequenceEventTime),
					s.opt(SequenceSequencedBy), s.opt(SequenceMaterialSampleID),
					s.optFloat(SequenceConcentration), s.optInt(SequenceAmpliconSize),
					s.opt(SequenceEstimatedSize), s.opt(SequenceBaitSetName),
					s.opt(SequenceBaitSetReference), s.opt(SequenceTargetGene),
					s.opt(SequenceDnaSequence),
				}
			}
			return bulkUpsert(ctx, st.DB(), "sequences", sequenceColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
