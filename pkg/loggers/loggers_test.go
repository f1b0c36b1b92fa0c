package loggers

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecotone-bio/ecotone/pkg/config"
	"github.com/ecotone-bio/ecotone/pkg/store"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ChunkSize = 100
	cfg.InsertBatchSize = 50
	cfg.Workers = 2
	cfg.PageSize = 10
	return cfg
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "ecotone.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func registerVersion(t *testing.T, st *store.Store, globalID, version string, createdAt time.Time) store.DatasetVersion {
	t.Helper()
	ctx := context.Background()

	sourceID, err := st.UpsertSource(ctx, store.Source{Name: "test collection"})
	require.NoError(t, err)
	_, err = st.UpsertDataset(ctx, store.Dataset{SourceID: sourceID, GlobalID: globalID, Name: globalID})
	require.NoError(t, err)

	dv, err := st.CreateDatasetVersion(ctx, globalID, version, createdAt)
	require.NoError(t, err)
	return dv
}

const taxaHeader = "entity_id,taxon_id,parent_taxon,scientific_name,scientific_name_authorship,canonical_name,taxon_rank,taxonomic_status,nomenclatural_code,citation,references,last_updated\n"

func importTaxaCSV(t *testing.T, st *store.Store, dv store.DatasetVersion, rows string) {
	t.Helper()
	imp := importKind[TaxonRecord, TaxonAtom](st, testConfig(), store.KindTaxon, decodeTaxonAtom)
	require.NoError(t, imp(context.Background(), strings.NewReader(taxaHeader+rows), dv))
}

func countTaxonOps(t *testing.T, st *store.Store) int {
	t.Helper()
	var total int
	row := st.DB().QueryRow(`SELECT COUNT(*) FROM taxon_logs`)
	require.NoError(t, row.Scan(&total))
	return total
}

func TestImportTaxaArchiveEndToEnd(t *testing.T) {
	st := openTestStore(t)
	dv := registerVersion(t, st, "ds1", "v1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	importTaxaCSV(t, st, dv, "e1,t1,,aus bus,,aus bus,species,valid,ICZN,,,\n")

	// one Create op plus six Update atoms (taxon_id, name, canonical,
	// rank, status, code)
	assert.Equal(t, 7, countTaxonOps(t, st))
}

func TestImportTaxaIdempotent(t *testing.T) {
	st := openTestStore(t)
	dv := registerVersion(t, st, "ds1", "v1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	row := "e1,t1,,aus bus,,aus bus,species,valid,ICZN,,,\n"
	importTaxaCSV(t, st, dv, row)
	count := countTaxonOps(t, st)

	// importing the identical archive again inserts nothing
	importTaxaCSV(t, st, dv, row)
	assert.Equal(t, count, countTaxonOps(t, st))
}

func TestImportNewVersionSameDataInsertsNothing(t *testing.T) {
	st := openTestStore(t)
	v1 := registerVersion(t, st, "ds1", "v1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	row := "e1,t1,,aus bus,,aus bus,species,valid,ICZN,,,\n"
	importTaxaCSV(t, st, v1, row)
	count := countTaxonOps(t, st)

	v2, err := st.CreateDatasetVersion(context.Background(), "ds1", "v2",
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// same values under a later version are pure no-ops
	importTaxaCSV(t, st, v2, row)
	assert.Equal(t, count, countTaxonOps(t, st))
}

func TestImportChangedFieldInsertsOnlyChange(t *testing.T) {
	st := openTestStore(t)
	v1 := registerVersion(t, st, "ds1", "v1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	importTaxaCSV(t, st, v1, "e1,t1,,aus bus,,aus bus,species,valid,ICZN,,,\n")
	count := countTaxonOps(t, st)

	v2, err := st.CreateDatasetVersion(context.Background(), "ds1", "v2",
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// only the status flip lands in the log
	importTaxaCSV(t, st, v2, "e1,t1,,aus bus,,aus bus,species,synonym,ICZN,,,\n")
	assert.Equal(t, count+1, countTaxonOps(t, st))
}

func TestUpdateTaxaProjectsRows(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	dv := registerVersion(t, st, "ds1", "v1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	importTaxaCSV(t, st, dv,
		"e1,t1,,aus bus,,aus bus,species,valid,ICZN,,,\n"+
			"e2,t2,aus bus,aus bus cus,,aus bus cus,subspecies,valid,ICZN,,,\n")

	require.NoError(t, UpdateTaxa(ctx, st, testConfig()))
	require.NoError(t, LinkTaxa(ctx, st, testConfig()))

	var total int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM taxa`).Scan(&total))
	assert.Equal(t, 2, total)

	// names registered for both taxa
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM names`).Scan(&total))
	assert.Equal(t, 2, total)

	// the subspecies links to its parent via the natural-key lookup
	var parentName string
	require.NoError(t, st.DB().QueryRow(`
		SELECT p.scientific_name
		FROM taxa AS c
		JOIN taxa AS p ON p.entity_id = c.parent_id
		WHERE c.scientific_name = 'Aus bus cus'`).Scan(&parentName))
	assert.Equal(t, "Aus bus", parentName)
}

func TestUpdateTaxaSkipsIncompleteEntities(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	dv := registerVersion(t, st, "ds1", "v1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	// scientific_name empty: the other atoms are preserved in the log
	// but projection must skip the entity
	importTaxaCSV(t, st, dv, "e1,t1,,,,aus bus,species,valid,ICZN,,,\n")
	require.Positive(t, countTaxonOps(t, st))

	require.NoError(t, UpdateTaxa(ctx, st, testConfig()))

	var total int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM taxa`).Scan(&total))
	assert.Zero(t, total)
}

func TestCrossProviderMergeLatestVersionWins(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	early := registerVersion(t, st, "ds1", "v1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	late := registerVersion(t, st, "ds2", "v1", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	importTaxaCSV(t, st, early, "e1,t1,,aus bus,,aus bus,species,valid,ICZN,,,\n")
	importTaxaCSV(t, st, late, "e1,t1,,aus cus,,aus cus,species,valid,ICZN,,,\n")

	require.NoError(t, UpdateTaxa(ctx, st, testConfig()))

	// the later import's assertion wins the register
	var name string
	require.NoError(t, st.DB().QueryRow(`SELECT scientific_name FROM taxa WHERE entity_id IN (SELECT entity_id FROM taxon_logs LIMIT 1)`).Scan(&name))
	assert.Equal(t, "Aus cus", name)
}

func TestDatasetIsolation(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	ds1 := registerVersion(t, st, "ds1", "v1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ds2 := registerVersion(t, st, "ds2", "v1", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

	importTaxaCSV(t, st, ds1, "e1,t1,,aus bus,,aus bus,species,valid,ICZN,,,\n")
	importTaxaCSV(t, st, ds2, "e2,t2,,aus cus,,aus cus,species,valid,ICZN,,,\n")

	require.NoError(t, UpdateTaxa(ctx, st, testConfig()))

	var before string
	require.NoError(t, st.DB().QueryRow(
		`SELECT scientific_name FROM taxa WHERE taxon_id = 't1'`).Scan(&before))

	// drop everything the second dataset asserted and reproject; the
	// first dataset's entity must come out unchanged
	_, err := st.DB().Exec(`DELETE FROM taxon_logs WHERE dataset_version_id = ?`, ds2.ID.String())
	require.NoError(t, err)
	_, err = st.DB().Exec(`DELETE FROM taxa`)
	require.NoError(t, err)

	require.NoError(t, UpdateTaxa(ctx, st, testConfig()))

	var after string
	require.NoError(t, st.DB().QueryRow(
		`SELECT scientific_name FROM taxa WHERE taxon_id = 't1'`).Scan(&after))
	assert.Equal(t, before, after)

	var total int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM taxa`).Scan(&total))
	assert.Equal(t, 1, total)
}
