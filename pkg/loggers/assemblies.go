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

// AssemblyTag enumerates the genome assembly atom catalog.
type AssemblyTag string

const (
	AssemblyLibraryID                    AssemblyTag = "LibraryId"
	AssemblyID                           AssemblyTag = "AssemblyId"
	AssemblyScientificName               AssemblyTag = "ScientificName"
	AssemblyPublicationID                AssemblyTag = "PublicationId"
	AssemblyEventDate                    AssemblyTag = "EventDate"
	AssemblyEventTime                    AssemblyTag = "EventTime"
	AssemblyName                         AssemblyTag = "Name"
	AssemblyType                         AssemblyTag = "Type"
	AssemblyMethod                       AssemblyTag = "Method"
	AssemblyMethodVersion                AssemblyTag = "MethodVersion"
	AssemblyMethodLink                   AssemblyTag = "MethodLink"
	AssemblySize                         AssemblyTag = "Size"
	AssemblyMinimumGapLength             AssemblyTag = "MinimumGapLength"
	AssemblyCompleteness                 AssemblyTag = "Completeness"
	AssemblyCompletenessMethod           AssemblyTag = "CompletenessMethod"
	AssemblySourceMolecule               AssemblyTag = "SourceMolecule"
	AssemblyReferenceGenomeUsed          AssemblyTag = "ReferenceGenomeUsed"
	AssemblyReferenceGenomeLink          AssemblyTag = "ReferenceGenomeLink"
	AssemblyNumberOfScaffolds            AssemblyTag = "NumberOfScaffolds"
	AssemblyGenomeCoverage               AssemblyTag = "GenomeCoverage"
	AssemblyHybrid                       AssemblyTag = "Hybrid"
	AssemblyHybridInformation            AssemblyTag = "HybridInformation"
	AssemblyPolishingOrScaffoldingMethod AssemblyTag = "PolishingOrScaffoldingMethod"
	AssemblyPolishingOrScaffoldingData   AssemblyTag = "PolishingOrScaffoldingData"
	AssemblyComputationalInfrastructure  AssemblyTag = "ComputationalInfrastructure"
	AssemblySystemUsed                   AssemblyTag = "SystemUsed"
	AssemblyN50                          AssemblyTag = "AssemblyN50"
)

var assemblyTags = atomSet(
	string(AssemblyLibraryID), string(AssemblyID), string(AssemblyScientificName),
	string(AssemblyPublicationID), string(AssemblyEventDate), string(AssemblyEventTime),
	string(AssemblyName), string(AssemblyType), string(AssemblyMethod),
	string(AssemblyMethodVersion), string(AssemblyMethodLink), string(AssemblySize),
	string(AssemblyMinimumGapLength), string(AssemblyCompleteness),
	string(AssemblyCompletenessMethod), string(AssemblySourceMolecule),
	string(AssemblyReferenceGenomeUsed), string(AssemblyReferenceGenomeLink),
	string(AssemblyNumberOfScaffolds), string(AssemblyGenomeCoverage),
	string(AssemblyHybrid), string(AssemblyHybridInformation),
	string(AssemblyPolishingOrScaffoldingMethod), string(AssemblyPolishingOrScaffoldingData),
	string(AssemblyComputationalInfrastructure), string(AssemblySystemUsed),
	string(AssemblyN50),
)

// AssemblyAtom is one field of a genome assembly.
type AssemblyAtom struct {
	Kind  AssemblyTag
	Value string
}

func (a AssemblyAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a AssemblyAtom) IsEmpty() bool   { return a.Kind == "" }
func (a AssemblyAtom) Payload() string { return a.Value }

func decodeAssemblyAtom(tag, value string) (AssemblyAtom, error) {
	if tag == "Empty" {
		return AssemblyAtom{}, nil
	}
	if _, ok := assemblyTags[tag]; !ok {
		return AssemblyAtom{}, fmt.Errorf("loggers: %w: assembly %q", ErrUnknownAtom, tag)
	}
	return AssemblyAtom{Kind: AssemblyTag(tag), Value: value}, nil
}

// AssemblyRecord is one row of an assemblies.csv export.
type AssemblyRecord struct {
	EntityID       string `csv:"entity_id"`
	LibraryID      string `csv:"library_id"`
	AssemblyID     string `csv:"assembly_id"`
	ScientificName string `csv:"scientific_name"`

	PublicationID                string `csv:"publication_id"`
	EventDate                    string `csv:"event_date"`
	EventTime                    string `csv:"event_time"`
	Name                         string `csv:"name"`
	Type                         string `csv:"type"`
	Method                       string `csv:"method"`
	MethodVersion                string `csv:"method_version"`
	MethodLink                   string `csv:"method_link"`
	Size                         string `csv:"size"`
	MinimumGapLength             string `csv:"minimum_gap_length"`
	Completeness                 string `csv:"completeness"`
	CompletenessMethod           string `csv:"completeness_method"`
	SourceMolecule               string `csv:"source_molecule"`
	ReferenceGenomeUsed          string `csv:"reference_genome_used"`
	ReferenceGenomeLink          string `csv:"reference_genome_link"`
	NumberOfScaffolds            string `csv:"number_of_scaffolds"`
	GenomeCoverage               string `csv:"genome_coverage"`
	Hybrid                       string `csv:"hybrid"`
	HybridInformation            string `csv:"hybrid_information"`
	PolishingOrScaffoldingMethod string `csv:"polishing_or_scaffolding_method"`
	PolishingOrScaffoldingData   string `csv:"polishing_or_scaffolding_data"`
	ComputationalInfrastructure  string `csv:"computational_infrastructure"`
	SystemUsed                   string `csv:"system_used"`
	AssemblyN50                  string `csv:"assembly_n50"`
}

func (r AssemblyRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r AssemblyRecord) Decompose(frame *crdt.Frame[AssemblyAtom]) error {
	push := func(tag AssemblyTag, value string) {
		frame.PushOpt(AssemblyAtom{Kind: tag, Value: value}, value != "")
	}

	push(AssemblyLibraryID, r.LibraryID)
	push(AssemblyID, r.AssemblyID)
	push(AssemblyScientificName, taxonomy.NormalizeName(r.ScientificName))
	push(AssemblyPublicationID, r.PublicationID)
	push(AssemblyEventDate, r.EventDate)
	push(AssemblyEventTime, r.EventTime)
	push(AssemblyName, r.Name)
	push(AssemblyType, r.Type)
	push(AssemblyMethod, r.Method)
	push(AssemblyMethodVersion, r.MethodVersion)
	push(AssemblyMethodLink, r.MethodLink)
	push(AssemblySize, canonicalInt(r.Size))
	push(AssemblyMinimumGapLength, r.MinimumGapLength)
	push(AssemblyCompleteness, r.Completeness)
	push(AssemblyCompletenessMethod, r.CompletenessMethod)
	push(AssemblySourceMolecule, r.SourceMolecule)
	push(AssemblyReferenceGenomeUsed, r.ReferenceGenomeUsed)
	push(AssemblyReferenceGenomeLink, r.ReferenceGenomeLink)
	push(AssemblyNumberOfScaffolds, canonicalInt(r.NumberOfScaffolds))
	push(AssemblyGenomeCoverage, r.GenomeCoverage)
	push(AssemblyHybrid, r.Hybrid)
	push(AssemblyHybridInformation, r.HybridInformation)
	push(AssemblyPolishingOrScaffoldingMethod, r.PolishingOrScaffoldingMethod)
	push(AssemblyPolishingOrScaffoldingData, r.PolishingOrScaffoldingData)
	push(AssemblyComputationalInfrastructure, r.ComputationalInfrastructure)
	push(AssemblySystemUsed, r.SystemUsed)
	push(AssemblyN50, canonicalInt(r.AssemblyN50))
	return nil
}

// Assembly is the reduced snapshot row of the assemblies table.
type Assembly struct {
	EntityID string
	NameID   *string

	LibraryID  string
	AssemblyID string

	fields map[AssemblyTag]string
}

func (a Assembly) opt(tag AssemblyTag) any    { return derefOrNil(optString(a.fields[tag])) }
func (a Assembly) optInt(tag AssemblyTag) any { return derefOrNil(tryParseInt(a.fields[tag])) }

func reduceAssembly(entityID string, atoms []AssemblyAtom, names NameLookup) (Assembly, error) {
	assembly := Assembly{EntityID: entityID, fields: make(map[AssemblyTag]string)}

	var scientificName string
	for _, atom := range atoms {
		if _, ok := assemblyTags[string(atom.Kind)]; !ok {
			return Assembly{}, fmt.Errorf("loggers: %w: assembly %q", ErrUnknownAtom, atom.Kind)
		}
		switch atom.Kind {
		case AssemblyLibraryID:
			assembly.LibraryID = atom.Value
		case AssemblyID:
			assembly.AssemblyID = atom.Value
		case AssemblyScientificName:
			scientificName = atom.Value
		default:
			assembly.fields[atom.Kind] = atom.Value
		}
	}

	if assembly.LibraryID == "" {
		return Assembly{}, missingAtom(entityID, string(AssemblyLibraryID))
	}
	if assembly.AssemblyID == "" {
		return Assembly{}, missingAtom(entityID, string(AssemblyID))
	}
	if scientificName == "" {
		return Assembly{}, missingAtom(entityID, string(AssemblyScientificName))
	}

	if id, ok := names[scientificName]; ok {
		assembly.NameID = &id
	}
	return assembly, nil
}

// AssembliesImporter returns the archive importer for assemblies.csv.br
// entries.
func AssembliesImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[AssemblyRecord, AssemblyAtom](st, cfg, store.KindAssembly, decodeAssemblyAtom)
}

var assemblyColumns = []string{
	"entity_id", "name_id", "library_id", "assembly_id", "publication_id",
	"event_date", "event_time", "name", "type", "method", "method_version",
	"method_link", "size", "minimum_gap_length", "completeness",
	"completeness_method", "source_molecule", "reference_genome_used",
	"reference_genome_link", "number_of_scaffolds", "genome_coverage",
	"hybrid", "hybrid_information", "polishing_or_scaffolding_method",
	"polishing_or_scaffolding_data", "computational_infrastructure",
	"system_used", "assembly_n50",
}

// UpdateAssemblies reduces the assembly logs into the assemblies table.
func UpdateAssemblies(ctx context.Context, st *store.Store, cfg config.Config) error {
	names, err := LoadNameLookup(ctx, st.DB())
	if err != nil {
		return err
	}

	return projection[AssemblyAtom, Assembly]{
		kind:   store.KindAssembly,
		decode: decodeAssemblyAtom,
		reduce: func(entityID string, atoms []AssemblyAtom) (Assembly, error) {
			return reduceAssembly(entityID, atoms, names)
		},
		upsert: func(ctx context.Context, assemblies []Assembly) error {
			rows := make([][]any, len(assemblies))
			for i, a := range assemblies {
				rows[i] = []any{
					a.EntityID, derefOrNil(a.NameID), a.LibraryID, a.AssemblyID,
					a.opt(AssemblyPublicationID), a.opt(AssemblyEventDate), a.opt(AssemblyEventTime),
					a.opt(AssemblyName), a.opt(AssemblyType), a.opt(AssemblyMethod),
					a.opt(AssemblyMethodVersion), a.opt(AssemblyMethodLink), a.optInt(AssemblySize),
					a.opt(AssemblyMinimumGapLength), a.opt(AssemblyCompleteness),
					a.opt(AssemblyCompletenessMethod), a.opt(AssemblySourceMolecule),
					a.opt(AssemblyReferenceGenomeUsed), a.opt(AssemblyReferenceGenomeLink),
					a.optInt(AssemblyNumberOfScaffolds), a.opt(AssemblyGenomeCoverage),
					a.opt(AssemblyHybrid), a.opt(AssemblyHybridInformation),
					a.opt(AssemblyPolishingOrScaffoldingMethod), a.opt(AssemblyPolishingOrScaffoldingData),
					a.opt(AssemblyComputationalInfrastructure), a.opt(AssemblySystemUsed),
					a.optInt(AssemblyN50),
				}
			}
			return bulkUpsert(ctx, st.DB(), "assemblies", assemblyColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
