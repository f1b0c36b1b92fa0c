package loggers

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ecotone-bio/ecotone/pkg/archive"
	"github.com/ecotone-bio/ecotone/pkg/config"
	"github.com/ecotone-bio/ecotone/pkg/crdt"
	"github.com/ecotone-bio/ecotone/pkg/log"
	"github.com/ecotone-bio/ecotone/pkg/metrics"
	"github.com/ecotone-bio/ecotone/pkg/store"
	"github.com/ecotone-bio/ecotone/pkg/taxonomy"
)

// TaxonTag enumerates the taxon atom catalog.
type TaxonTag string

const (
	TaxonID                TaxonTag = "TaxonId"
	TaxonParentTaxon       TaxonTag = "ParentTaxon"
	TaxonScientificName    TaxonTag = "ScientificName"
	TaxonAuthorship        TaxonTag = "Authorship"
	TaxonCanonicalName     TaxonTag = "CanonicalName"
	TaxonNomenclaturalCode TaxonTag = "NomenclaturalCode"
	TaxonRank              TaxonTag = "TaxonomicRank"
	TaxonStatus            TaxonTag = "TaxonomicStatus"
	TaxonCitation          TaxonTag = "Citation"
	TaxonReferences        TaxonTag = "References"
	TaxonLastUpdated       TaxonTag = "LastUpdated"
)

var taxonTags = atomSet(
	string(TaxonID), string(TaxonParentTaxon),
	string(TaxonScientificName), string(TaxonAuthorship), string(TaxonCanonicalName),
	string(TaxonNomenclaturalCode), string(TaxonRank), string(TaxonStatus),
	string(TaxonCitation), string(TaxonReferences), string(TaxonLastUpdated),
)

// TaxonAtom is one field of a taxon. The zero value is the Empty
// sentinel carried by frame openers.
type TaxonAtom struct {
	Kind  TaxonTag
	Value string
}

func (a TaxonAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a TaxonAtom) IsEmpty() bool   { return a.Kind == "" }
func (a TaxonAtom) Payload() string { return a.Value }

func decodeTaxonAtom(tag, value string) (TaxonAtom, error) {
	if tag == "Empty" {
		return TaxonAtom{}, nil
	}
	if _, ok := taxonTags[tag]; !ok {
		return TaxonAtom{}, fmt.Errorf("loggers: %w: taxon %q", ErrUnknownAtom, tag)
	}
	return TaxonAtom{Kind: TaxonTag(tag), Value: value}, nil
}

// TaxonRecord is one row of a taxa.csv export. The entity_id column is
// the provider's stable identifier for the record; it is salted per
// dataset upstream so matching scientific names stay unique within
// their taxonomic system.
type TaxonRecord struct {
	EntityID string `csv:"entity_id"`

	TaxonID     string `csv:"taxon_id"`
	ParentTaxon string `csv:"parent_taxon"`

	ScientificName string `csv:"scientific_name"`
	Authorship     string `csv:"scientific_name_authorship"`
	CanonicalName  string `csv:"canonical_name"`

	TaxonRank       string `csv:"taxon_rank"`
	TaxonomicStatus string `csv:"taxonomic_status"`

	NomenclaturalCode string `csv:"nomenclatural_code"`

	Citation    string `csv:"citation"`
	References  string `csv:"references"`
	LastUpdated string `csv:"last_updated"`
}

func (r TaxonRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r TaxonRecord) Decompose(frame *crdt.Frame[TaxonAtom]) error {
	rank, err := taxonomy.ParseRank(r.TaxonRank)
	if err != nil {
		return err
	}
	status, err := taxonomy.ParseStatus(r.TaxonomicStatus)
	if err != nil {
		return err
	}

	push := func(tag TaxonTag, value string) {
		frame.PushOpt(TaxonAtom{Kind: tag, Value: value}, value != "")
	}

	push(TaxonID, r.TaxonID)
	push(TaxonScientificName, taxonomy.NormalizeName(r.ScientificName))
	push(TaxonCanonicalName, taxonomy.NormalizeName(r.CanonicalName))
	push(TaxonRank, rank.String())
	push(TaxonStatus, status.String())
	push(TaxonNomenclaturalCode, r.NomenclaturalCode)
	push(TaxonAuthorship, r.Authorship)
	push(TaxonCitation, r.Citation)
	push(TaxonReferences, r.References)
	push(TaxonLastUpdated, r.LastUpdated)
	push(TaxonParentTaxon, taxonomy.NormalizeName(r.ParentTaxon))
	return nil
}

// Taxon is the reduced snapshot row of the taxa table.
type Taxon struct {
	EntityID  string
	DatasetID string
	NameID    *string

	TaxonID        string
	ScientificName string
	CanonicalName  string
	Authorship     *string

	Rank              taxonomy.Rank
	Status            taxonomy.Status
	NomenclaturalCode string

	Citation    *string
	References  *string
	LastUpdated *string
	ParentTaxon *string
}

func reduceTaxon(entityID string, atoms []TaxonAtom) (Taxon, error) {
	taxon := Taxon{EntityID: entityID}

	var scientificName, canonicalName, taxonID, rank, status, code string
	for _, atom := range atoms {
		switch atom.Kind {
		case TaxonID:
			taxonID = atom.Value
		case TaxonScientificName:
			scientificName = atom.Value
		case TaxonCanonicalName:
			canonicalName = atom.Value
		case TaxonAuthorship:
			taxon.Authorship = optString(atom.Value)
		case TaxonRank:
			rank = atom.Value
		case TaxonStatus:
			status = atom.Value
		case TaxonNomenclaturalCode:
			code = atom.Value
		case TaxonCitation:
			taxon.Citation = optString(atom.Value)
		case TaxonReferences:
			taxon.References = optString(atom.Value)
		case TaxonLastUpdated:
			taxon.LastUpdated = optString(atom.Value)
		case TaxonParentTaxon:
			taxon.ParentTaxon = optString(atom.Value)
		default:
			return Taxon{}, fmt.Errorf("loggers: %w: taxon %q", ErrUnknownAtom, atom.Kind)
		}
	}

	mandatory := []struct {
		value string
		tag   TaxonTag
	}{
		{taxonID, TaxonID},
		{scientificName, TaxonScientificName},
		{canonicalName, TaxonCanonicalName},
		{rank, TaxonRank},
		{status, TaxonStatus},
		{code, TaxonNomenclaturalCode},
	}
	for _, m := range mandatory {
		if m.value == "" {
			return Taxon{}, missingAtom(entityID, string(m.tag))
		}
	}

	taxon.TaxonID = taxonID
	taxon.ScientificName = scientificName
	taxon.CanonicalName = canonicalName
	taxon.Rank = taxonomy.Rank(rank)
	taxon.Status = taxonomy.Status(status)
	taxon.NomenclaturalCode = code
	return taxon, nil
}

// TaxaImporter returns the archive importer for taxa.csv.br entries.
func TaxaImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[TaxonRecord, TaxonAtom](st, cfg, store.KindTaxon, decodeTaxonAtom)
}

var taxaColumns = []string{
	"entity_id", "dataset_id", "name_id", "taxon_id", "scientific_name",
	"canonical_name", "authorship", "taxon_rank", "taxonomic_status",
	"nomenclatural_code", "citation", `"references"`, "last_updated",
	"parent_taxon",
}

// UpdateTaxa reduces the taxon logs into the taxa table, registering
// every scientific name in the names registry as it goes. Parent links
// are deliberately left unset; LinkTaxa resolves them afterwards so the
// bulk upsert never depends on insert order within the taxonomy tree.
func UpdateTaxa(ctx context.Context, st *store.Store, cfg config.Config) error {
	logger := log.WithKind(store.KindTaxon.String())

	total, err := st.CountEntities(ctx, store.KindTaxon)
	if err != nil {
		return err
	}
	if total == 0 {
		logger.Debug().Msg("no taxa to project")
		return nil
	}

	datasets, err := datasetsByVersion(ctx, st)
	if err != nil {
		return err
	}
	names, err := LoadNameLookup(ctx, st.DB())
	if err != nil {
		return err
	}

	progress := metrics.NewProgress(store.KindTaxon.String())
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = config.DefaultPageSize
	}
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	logger.Info().Int64("entities", total).Int("pages", pages).Msg("projecting taxa")

	for page := 0; page < pages; page++ {
		if err := updateTaxaPage(ctx, st, page, pageSize, datasets, names, progress); err != nil {
			return err
		}
	}

	progress.Stop()
	return nil
}

func updateTaxaPage(
	ctx context.Context,
	st *store.Store,
	page, pageSize int,
	datasets map[string]string,
	names NameLookup,
	progress *metrics.Progress,
) error {
	logger := log.WithKind(store.KindTaxon.String())

	ids, err := st.PageEntityIDs(ctx, store.KindTaxon, page, pageSize)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	raw, err := st.LoadEntityOperations(ctx, store.KindTaxon, ids)
	if err != nil {
		return err
	}
	ops, err := decodeOps(raw, decodeTaxonAtom)
	if err != nil {
		return err
	}

	var taxa []Taxon
	for entityID, entityOps := range GroupOps(ops) {
		m := crdt.NewMap[TaxonAtom](entityID)
		m.Reduce(entityOps)

		taxon, err := reduceTaxon(entityID, m.Atoms())
		if err != nil {
			logger.Error().Str("entity_id", entityID).Err(err).Msg("skipping taxon")
			progress.AddSkipped(1)
			continue
		}

		// every operation of an entity shares its dataset version's
		// dataset; the first one pins the provenance
		datasetID, ok := datasets[entityOps[0].DatasetVersionID.String()]
		if !ok {
			logger.Error().Str("entity_id", entityID).Msg("skipping taxon with unknown dataset version")
			progress.AddSkipped(1)
			continue
		}
		taxon.DatasetID = datasetID
		taxa = append(taxa, taxon)
	}

	if err := resolveNames(ctx, st, taxa, names); err != nil {
		return err
	}

	rows := make([][]any, len(taxa))
	for i, taxon := range taxa {
		rows[i] = []any{
			taxon.EntityID, taxon.DatasetID, derefOrNil(taxon.NameID),
			taxon.TaxonID, taxon.ScientificName, taxon.CanonicalName,
			derefOrNil(taxon.Authorship), taxon.Rank.String(), taxon.Status.String(),
			taxon.NomenclaturalCode, derefOrNil(taxon.Citation),
			derefOrNil(taxon.References), derefOrNil(taxon.LastUpdated),
			derefOrNil(taxon.ParentTaxon),
		}
	}
	if err := bulkUpsert(ctx, st.DB(), "taxa", taxaColumns, rows); err != nil {
		return err
	}
	progress.AddReduced(len(rows))
	return nil
}

// resolveNames registers names this page introduced and fills each
// taxon's name id from the shared lookup.
func resolveNames(ctx context.Context, st *store.Store, taxa []Taxon, names NameLookup) error {
	var missing []Name
	for _, taxon := range taxa {
		if _, ok := names[taxon.ScientificName]; !ok {
			missing = append(missing, Name{
				ScientificName: taxon.ScientificName,
				CanonicalName:  taxon.CanonicalName,
				Authorship:     taxon.Authorship,
			})
		}
	}

	if len(missing) > 0 {
		if err := EnsureNames(ctx, st.DB(), missing); err != nil {
			return err
		}
		fresh, err := lookupNamesFor(ctx, st, missing)
		if err != nil {
			return err
		}
		for name, id := range fresh {
			names[name] = id
		}
	}

	for i := range taxa {
		if id, ok := names[taxa[i].ScientificName]; ok {
			taxa[i].NameID = &id
		}
	}
	return nil
}

func lookupNamesFor(ctx context.Context, st *store.Store, names []Name) (map[string]string, error) {
	out := make(map[string]string, len(names))

	const chunkSize = 500
	for start := 0; start < len(names); start += chunkSize {
		end := min(start+chunkSize, len(names))
		batch := names[start:end]

		query := "SELECT id, scientific_name FROM names WHERE scientific_name IN ("
		args := make([]any, len(batch))
		for i, name := range batch {
			if i > 0 {
				query += ", "
			}
			query += "?"
			args[i] = name.ScientificName
		}
		query += ")"

		rows, err := st.DB().QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("loggers: lookup names: %w", err)
		}
		for rows.Next() {
			var id, name string
			if err := rows.Scan(&id, &name); err != nil {
				rows.Close()
				return nil, fmt.Errorf("loggers: lookup names: %w", err)
			}
			out[name] = id
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// datasetsByVersion maps dataset version ids to dataset global ids.
func datasetsByVersion(ctx context.Context, st *store.Store) (map[string]string, error) {
	rows, err := st.DB().QueryContext(ctx, `
		SELECT dv.id, d.global_id
		FROM dataset_versions AS dv
		JOIN datasets AS d ON d.id = dv.dataset_id`)
	if err != nil {
		return nil, fmt.Errorf("loggers: load dataset versions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var versionID, globalID string
		if err := rows.Scan(&versionID, &globalID); err != nil {
			return nil, fmt.Errorf("loggers: load dataset versions: %w", err)
		}
		out[versionID] = globalID
	}
	return out, rows.Err()
}

// LinkTaxa resolves parent links after projection. Linking runs as its
// own pass because the taxonomy graph is self-referential and bulk
// upserts must not depend on parent rows existing first.
func LinkTaxa(ctx context.Context, st *store.Store, cfg config.Config) error {
	logger := log.WithKind(store.KindTaxon.String())

	taxa, err := LoadTaxonLookup(ctx, st.DB())
	if err != nil {
		return err
	}

	rows, err := st.DB().QueryContext(ctx, `
		SELECT entity_id, dataset_id, parent_taxon
		FROM taxa
		WHERE parent_taxon IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("loggers: load parent links: %w", err)
	}

	type link struct{ entityID, parentID string }
	var links []link
	unresolved := 0
	for rows.Next() {
		var entityID, datasetID, parent string
		if err := rows.Scan(&entityID, &datasetID, &parent); err != nil {
			rows.Close()
			return fmt.Errorf("loggers: load parent links: %w", err)
		}
		parentID, ok := taxa[[2]string{datasetID, parent}]
		if !ok {
			unresolved++
			continue
		}
		links = append(links, link{entityID: entityID, parentID: parentID})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	if unresolved > 0 {
		logger.Warn().Int("total", unresolved).Msg("parent taxa not found in any dataset")
	}
	logger.Info().Int("total", len(links)).Msg("updating parent links")

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(cfg.Workers)

	const chunkSize = 1_000
	for start := 0; start < len(links); start += chunkSize {
		chunk := links[start:min(start+chunkSize, len(links))]
		group.Go(func() error {
			for _, l := range chunk {
				if _, err := st.DB().ExecContext(ctx,
					`UPDATE taxa SET parent_id = ? WHERE entity_id = ?`,
					l.parentID, l.entityID,
				); err != nil {
					return fmt.Errorf("loggers: link taxon %s: %w", l.entityID, err)
				}
			}
			return nil
		})
	}
	return group.Wait()
}
