package loggers

import (
	"context"

	"github.com/ecotone-bio/ecotone/pkg/archive"
	"github.com/ecotone-bio/ecotone/pkg/config"
	"github.com/ecotone-bio/ecotone/pkg/log"
	"github.com/ecotone-bio/ecotone/pkg/store"
)

// Registry maps archive entry names to their importers. Archive entries
// with names outside this map are skipped.
func Registry(st *store.Store, cfg config.Config) map[string]archive.Importer {
	return map[string]archive.Importer{
		"taxa.csv.br":               TaxaImporter(st, cfg),
		"taxonomic_acts.csv.br":     TaxonomicActsImporter(st, cfg),
		"nomenclatural_acts.csv.br": NomenclaturalActsImporter(st, cfg),
		"collections.csv.br":        CollectionsImporter(st, cfg),
		"organisms.csv.br":          OrganismsImporter(st, cfg),
		"subsamples.csv.br":         SubsamplesImporter(st, cfg),
		"tissues.csv.br":            TissuesImporter(st, cfg),
		"extractions.csv.br":        ExtractionsImporter(st, cfg),
		"libraries.csv.br":          LibrariesImporter(st, cfg),
		"sequence_runs.csv.br":      SequenceRunsImporter(st, cfg),
		"assemblies.csv.br":         AssembliesImporter(st, cfg),
		"annotations.csv.br":        AnnotationsImporter(st, cfg),
		"depositions.csv.br":        DepositionsImporter(st, cfg),
		"accessions.csv.br":         AccessionsImporter(st, cfg),
		"publications.csv.br":       PublicationsImporter(st, cfg),
		"projects.csv.br":           ProjectsImporter(st, cfg),
		"data_products.csv.br":      DataProductsImporter(st, cfg),
		"agents.csv.br":             AgentsImporter(st, cfg),
		"sequences.csv.br":          SequencesImporter(st, cfg),
	}
}

// UpdateAll projects every kind's log into its entity table. Taxa run
// first so the names registry exists before the name-linked kinds
// reduce, and the taxon parent link pass runs last.
func UpdateAll(ctx context.Context, st *store.Store, cfg config.Config) error {
	updates := []struct {
		name string
		run  func(context.Context, *store.Store, config.Config) error
	}{
		{"taxa", UpdateTaxa},
		{"taxonomic acts", UpdateTaxonomicActs},
		{"nomenclatural acts", UpdateNomenclaturalActs},
		{"specimens", UpdateSpecimens},
		{"organisms", UpdateOrganisms},
		{"subsamples", UpdateSubsamples},
		{"tissues", UpdateTissues},
		{"extractions", UpdateExtractions},
		{"libraries", UpdateLibraries},
		{"sequence runs", UpdateSequenceRuns},
		{"assemblies", UpdateAssemblies},
		{"annotations", UpdateAnnotations},
		{"depositions", UpdateDepositions},
		{"accessions", UpdateAccessions},
		{"publications", UpdatePublications},
		{"projects", UpdateProjects},
		{"data products", UpdateDataProducts},
		{"agents", UpdateAgents},
		{"sequences", UpdateSequences},
		{"taxon links", LinkTaxa},
	}

	for _, update := range updates {
		updateLogger := log.WithComponent("update")
		updateLogger.Info().Str("phase", update.name).Msg("starting")
		if err := update.run(ctx, st, cfg); err != nil {
			return err
		}
	}
	return nil
}
