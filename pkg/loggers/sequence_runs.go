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

// SequenceRunTag enumerates the sequence run atom catalog.
type SequenceRunTag string

const (
	SequenceRunLibraryID               SequenceRunTag = "LibraryId"
	SequenceRunID                      SequenceRunTag = "SequenceRunId"
	SequenceRunScientificName          SequenceRunTag = "ScientificName"
	SequenceRunPublicationID           SequenceRunTag = "PublicationId"
	SequenceRunEventDate               SequenceRunTag = "EventDate"
	SequenceRunEventTime               SequenceRunTag = "EventTime"
	SequenceRunFacility                SequenceRunTag = "Facility"
	SequenceRunInstrumentOrMethod      SequenceRunTag = "InstrumentOrMethod"
	SequenceRunPlatform                SequenceRunTag = "Platform"
	SequenceRunKitChemistry            SequenceRunTag = "KitChemistry"
	SequenceRunFlowcellType            SequenceRunTag = "FlowcellType"
	SequenceRunCellMovieLength         SequenceRunTag = "CellMovieLength"
	SequenceRunBaseCallerModel         SequenceRunTag = "BaseCallerModel"
	SequenceRunFast5Compression        SequenceRunTag = "Fast5Compression"
	SequenceRunAnalysisSoftware        SequenceRunTag = "AnalysisSoftware"
	SequenceRunAnalysisSoftwareVersion SequenceRunTag = "AnalysisSoftwareVersion"
	SequenceRunTargetGene              SequenceRunTag = "TargetGene"
	SequenceRunSraRunAccession         SequenceRunTag = "SraRunAccession"
)

var sequenceRunTags = atomSet(
	string(SequenceRunLibraryID), string(SequenceRunID), string(SequenceRunScientificName),
	string(SequenceRunPublicationID), string(SequenceRunEventDate), string(SequenceRunEventTime),
	string(SequenceRunFacility), string(SequenceRunInstrumentOrMethod),
	string(SequenceRunPlatform), string(SequenceRunKitChemistry),
	string(SequenceRunFlowcellType), string(SequenceRunCellMovieLength),
	string(SequenceRunBaseCallerModel), string(SequenceRunFast5Compression),
	string(SequenceRunAnalysisSoftware), string(SequenceRunAnalysisSoftwareVersion),
	string(SequenceRunTargetGene), string(SequenceRunSraRunAccession),
)

// SequenceRunAtom is one field of a sequence run.
type SequenceRunAtom struct {
	Kind  SequenceRunTag
	Value string
}

func (a SequenceRunAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a SequenceRunAtom) IsEmpty() bool   { return a.Kind == "" }
func (a SequenceRunAtom) Payload() string { return a.Value }

func decodeSequenceRunAtom(tag, value string) (SequenceRunAtom, error) {
	if tag == "Empty" {
		return SequenceRunAtom{}, nil
	}
	if _, ok := sequenceRunTags[tag]; !ok {
		return SequenceRunAtom{}, fmt.Errorf("loggers: %w: sequence run %q", ErrUnknownAtom, tag)
	}
	return SequenceRunAtom{Kind: SequenceRunTag(tag), Value: value}, nil
}

// SequenceRunRecord is one row of a sequence_runs.csv export.
type SequenceRunRecord struct {
	EntityID       string `csv:"entity_id"`
	LibraryID      string `csv:"library_id"`
	SequenceRunID  string `csv:"sequence_run_id"`
	ScientificName string `csv:"scientific_name"`

	PublicationID           string `csv:"publication_id"`
	EventDate               string `csv:"event_date"`
	EventTime               string `csv:"event_time"`
	Facility                string `csv:"facility"`
	InstrumentOrMethod      string `csv:"instrument_or_method"`
	Platform                string `csv:"platform"`
	KitChemistry            string `csv:"kit_chemistry"`
	FlowcellType            string `csv:"flowcell_type"`
	CellMovieLength         string `csv:"cell_movie_length"`
	BaseCallerModel         string `csv:"base_caller_model"`
	Fast5Compression        string `csv:"fast5_compression"`
	AnalysisSoftware        string `csv:"analysis_software"`
	AnalysisSoftwareVersion string `csv:"analysis_software_version"`
	TargetGene              string `csv:"target_gene"`
	SraRunAccession         string `csv:"sra_run_accession"`
}

func (r SequenceRunRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r SequenceRunRecord) Decompose(frame *crdt.Frame[SequenceRunAtom]) error {
	push := func(tag SequenceRunTag, value string) {
		frame.PushOpt(SequenceRunAtom{Kind: tag, Value: value}, value != "")
	}

	push(SequenceRunLibraryID, r.LibraryID)
	push(SequenceRunID, r.SequenceRunID)
	push(SequenceRunScientificName, taxonomy.NormalizeName(r.ScientificName))
	push(SequenceRunPublicationID, r.PublicationID)
	push(SequenceRunEventDate, r.EventDate)
	push(SequenceRunEventTime, r.EventTime)
	push(SequenceRunFacility, r.Facility)
	push(SequenceRunInstrumentOrMethod, r.InstrumentOrMethod)
	push(SequenceRunPlatform, r.Platform)
	push(SequenceRunKitChemistry, r.KitChemistry)
	push(SequenceRunFlowcellType, r.FlowcellType)
	push(SequenceRunCellMovieLength, r.CellMovieLength)
	push(SequenceRunBaseCallerModel, r.BaseCallerModel)
	push(SequenceRunFast5Compression, r.Fast5Compression)
	push(SequenceRunAnalysisSoftware, r.AnalysisSoftware)
	push(SequenceRunAnalysisSoftwareVersion, r.AnalysisSoftwareVersion)
	push(SequenceRunTargetGene, r.TargetGene)
	push(SequenceRunSraRunAccession, r.SraRunAccession)
	return nil
}

// SequenceRun is the reduced snapshot row of the sequence_runs table.
type SequenceRun struct {
	EntityID string
	NameID   *string

	LibraryID     string
	SequenceRunID string

	fields map[SequenceRunTag]string
}

func (s SequenceRun) opt(tag SequenceRunTag) any { return derefOrNil(optString(s.fields[tag])) }

func reduceSequenceRun(entityID string, atoms []SequenceRunAtom, names NameLookup) (SequenceRun, error) {
	run := SequenceRun{EntityID: entityID, fields: make(map[SequenceRunTag]string)}

	var scientificName string
	for _, atom := range atoms {
		if _, ok := sequenceRunTags[string(atom.Kind)]; !ok {
			return SequenceRun{}, fmt.Errorf("loggers: %w: sequence run %q", ErrUnknownAtom, atom.Kind)
		}
		switch atom.Kind {
		case SequenceRunLibraryID:
			run.LibraryID = atom.Value
		case SequenceRunID:
			run.SequenceRunID = atom.Value
		case SequenceRunScientificName:
			scientificName = atom.Value
		default:
			run.fields[atom.Kind] = atom.Value
		}
	}

	if run.LibraryID == "" {
		return SequenceRun{}, missingAtom(entityID, string(SequenceRunLibraryID))
	}
	if run.SequenceRunID == "" {
		return SequenceRun{}, missingAtom(entityID, string(SequenceRunID))
	}
	if scientificName == "" {
		return SequenceRun{}, missingAtom(entityID, string(SequenceRunScientificName))
	}

	if id, ok := names[scientificName]; ok {
		run.NameID = &id
	}
	return run, nil
}

// SequenceRunsImporter returns the archive importer for
// sequence_runs.csv.br entries.
func SequenceRunsImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[SequenceRunRecord, SequenceRunAtom](st, cfg, store.KindSequenceRun, decodeSequenceRunAtom)
}

var sequenceRunColumns = []string{
	"entity_id", "name_id", "library_id", "sequence_run_id", "publication_id",
	"event_date", "event_time", "facility", "instrument_or_method",
	"platform", "kit_chemistry", "flowcell_type", "cell_movie_length",
	"base_caller_model", "fast5_compression", "analysis_software",
	"analysis_software_version", "target_gene", "sra_run_accession",
}

// UpdateSequenceRuns reduces the sequence run logs into the
// sequence_runs table.
func UpdateSequenceRuns(ctx context.Context, st *store.Store, cfg config.Config) error {
	names, err := LoadNameLookup(ctx, st.DB())
	if err != nil {
		return err
	}

	return projection[SequenceRunAtom, SequenceRun]{
		kind:   store.KindSequenceRun,
		decode: decodeSequenceRunAtom,
		reduce: func(entityID string, atoms []SequenceRunAtom) (SequenceRun, error) {
			return reduceSequenceRun(entityID, atoms, names)
		},
		upsert: func(ctx context.Context, runs []SequenceRun) error {
			rows := make([][]any, len(runs))
			for i, s := range runs {
				rows[i] = []any{
					s.EntityID, derefOrNil(s.NameID), s.LibraryID, s.SequenceRunID,
					s.opt(SequenceRunPublicationID), s.opt(SequenceRunEventDate),
					s.opt(SequenceRunEventTime), s.opt(SequenceRunFacility),
					s.opt(SequenceRunInstrumentOrMethod), s.opt(SequenceRunPlatform),
					s.opt(SequenceRunKitChemistry), s.opt(SequenceRunFlowcellType),
					s.opt(SequenceRunCellMovieLength), s.opt(SequenceRunBaseCallerModel),
					s.opt(SequenceRunFast5Compression), s.opt(SequenceRunAnalysisSoftware),
					s.opt(SequenceRunAnalysisSoftwareVersion), s.opt(SequenceRunTargetGene),
					s.opt(SequenceRunSraRunAccession),
				}
			}
			return bulkUpsert(ctx, st.DB(), "sequence_runs", sequenceRunColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
