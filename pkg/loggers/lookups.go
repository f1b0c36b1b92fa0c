package loggers

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/ecotone-bio/ecotone/pkg/log"
)

// Name is one row of the names registry. Every name-bearing entity
// links to a name so that different taxonomic systems can describe the
// same concept other data hangs off.
type Name struct {
	ID             string
	ScientificName string
	CanonicalName  string
	Authorship     *string
}

// NameLookup maps scientific names to name ids. Built once per update
// pass and shared read-only across workers.
type NameLookup map[string]string

// TaxonLookup maps (dataset id, scientific name) to taxon entity ids;
// the scoping keeps identical names from different taxonomic systems
// apart.
type TaxonLookup map[[2]string]string

// LoadNameLookup builds the scientific-name → name-id map.
func LoadNameLookup(ctx context.Context, db *sql.DB) (NameLookup, error) {
	logger := log.WithComponent("lookups")
	logger.Info().Msg("building name map")

	rows, err := db.QueryContext(ctx, `SELECT id, scientific_name FROM names`)
	if err != nil {
		return nil, fmt.Errorf("loggers: load name lookup: %w", err)
	}
	defer rows.Close()

	lookup := make(NameLookup)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("loggers: load name lookup: %w", err)
		}
		lookup[name] = id
	}

	logger.Info().Int("total", len(lookup)).Msg("name map ready")
	return lookup, rows.Err()
}

// LoadTaxonLookup builds the (dataset, scientific name) → taxon map
// used by the parent link pass.
func LoadTaxonLookup(ctx context.Context, db *sql.DB) (TaxonLookup, error) {
	logger := log.WithComponent("lookups")
	logger.Info().Msg("building taxon map")

	rows, err := db.QueryContext(ctx, `SELECT entity_id, dataset_id, scientific_name FROM taxa`)
	if err != nil {
		return nil, fmt.Errorf("loggers: load taxon lookup: %w", err)
	}
	defer rows.Close()

	lookup := make(TaxonLookup)
	for rows.Next() {
		var entityID, datasetID, name string
		if err := rows.Scan(&entityID, &datasetID, &name); err != nil {
			return nil, fmt.Errorf("loggers: load taxon lookup: %w", err)
		}
		lookup[[2]string{datasetID, name}] = entityID
	}

	logger.Info().Int("total", len(lookup)).Msg("taxon map ready")
	return lookup, rows.Err()
}

// EnsureNames inserts any names not already registered. Names are
// deduplicated on scientific name; existing rows win so name ids stay
// stable across update passes.
func EnsureNames(ctx context.Context, db *sql.DB, names []Name) error {
	if len(names) == 0 {
		return nil
	}

	sort.Slice(names, func(i, j int) bool { return names[i].ScientificName < names[j].ScientificName })
	deduped := names[:1]
	for _, name := range names[1:] {
		if name.ScientificName != deduped[len(deduped)-1].ScientificName {
			deduped = append(deduped, name)
		}
	}

	const cols = 4
	rowsPerStmt := maxBindParams / cols
	for start := 0; start < len(deduped); start += rowsPerStmt {
		end := min(start+rowsPerStmt, len(deduped))
		batch := deduped[start:end]

		query := "INSERT INTO names (id, scientific_name, canonical_name, authorship) VALUES "
		args := make([]any, 0, len(batch)*cols)
		for i, name := range batch {
			if i > 0 {
				query += ", "
			}
			query += "(?, ?, ?, ?)"
			id := name.ID
			if id == "" {
				id = uuid.NewString()
			}
			args = append(args, id, name.ScientificName, name.CanonicalName, derefOrNil(name.Authorship))
		}
		query += " ON CONFLICT (scientific_name) DO NOTHING"

		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("loggers: ensure names: %w", err)
		}
	}
	return nil
}
