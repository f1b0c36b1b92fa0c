package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ecotone.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func registerVersion(t *testing.T, s *Store, globalID, version string, createdAt time.Time) DatasetVersion {
	t.Helper()
	ctx := context.Background()

	sourceID, err := s.UpsertSource(ctx, Source{Name: "test collection"})
	require.NoError(t, err)

	_, err = s.UpsertDataset(ctx, Dataset{
		SourceID: sourceID,
		GlobalID: globalID,
		Name:     "test dataset",
	})
	require.NoError(t, err)

	dv, err := s.CreateDatasetVersion(ctx, globalID, version, createdAt)
	require.NoError(t, err)
	return dv
}

func testOp(dv DatasetVersion, entityID, opID, parentID, atomType, atomValue string) RawOperation {
	action := "update"
	if opID == parentID {
		action = "create"
	}
	return RawOperation{
		OperationID:      opID,
		ParentID:         parentID,
		EntityID:         entityID,
		DatasetVersionID: dv.ID,
		Action:           action,
		AtomType:         atomType,
		AtomValue:        atomValue,
	}
}

// opID builds a fixed-width operation id from a small ordinal.
func opID(n int) string {
	return fmt.Sprintf("%020d%010d", 1_000, n)
}

func TestCreateDatasetVersionIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	createdAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dv := registerVersion(t, s, "ds1", "v1", createdAt)

	again, err := s.CreateDatasetVersion(ctx, "ds1", "v1", createdAt)
	require.NoError(t, err)
	assert.Equal(t, dv.ID, again.ID)
}

func TestCreateDatasetVersionConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	createdAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	registerVersion(t, s, "ds1", "v1", createdAt)

	_, err := s.CreateDatasetVersion(ctx, "ds1", "v1", createdAt.Add(time.Hour))
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestUpsertOperationsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	dv := registerVersion(t, s, "ds1", "v1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	ops := []RawOperation{
		testOp(dv, "e1", opID(0), opID(0), "Empty", ""),
		testOp(dv, "e1", opID(1), opID(0), "ScientificName", "Aus bus"),
	}

	inserted, err := s.UpsertOperations(ctx, KindTaxon, ops)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Re-inserting the identical operations is a no-op.
	inserted, err = s.UpsertOperations(ctx, KindTaxon, ops)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestLoadOperationsOrderAndVersionCutoff(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	early := registerVersion(t, s, "ds1", "v1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	late, err := s.CreateDatasetVersion(ctx, "ds1", "v2", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	_, err = s.UpsertOperations(ctx, KindTaxon, []RawOperation{
		testOp(early, "e1", opID(1), opID(1), "Empty", ""),
		testOp(early, "e1", opID(2), opID(1), "ScientificName", "Aus bus"),
	})
	require.NoError(t, err)
	_, err = s.UpsertOperations(ctx, KindTaxon, []RawOperation{
		testOp(late, "e1", opID(3), opID(3), "Empty", ""),
		testOp(late, "e1", opID(4), opID(3), "ScientificName", "Aus cus"),
	})
	require.NoError(t, err)

	// At the early version only the early ops are visible.
	ops, err := s.LoadOperations(ctx, KindTaxon, early, []string{"e1"})
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, opID(1), ops[0].OperationID)

	// At the late version everything is visible, in id order.
	ops, err = s.LoadOperations(ctx, KindTaxon, late, []string{"e1"})
	require.NoError(t, err)
	require.Len(t, ops, 4)
	for i := 1; i < len(ops); i++ {
		assert.Less(t, ops[i-1].OperationID, ops[i].OperationID)
	}
}

func TestLoadDatasetOperationsScopedToDataset(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ds1 := registerVersion(t, s, "ds1", "v1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ds2 := registerVersion(t, s, "ds2", "v1", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

	_, err := s.UpsertOperations(ctx, KindTaxon, []RawOperation{
		testOp(ds1, "e1", opID(1), opID(1), "Empty", ""),
		testOp(ds2, "e1", opID(2), opID(2), "Empty", ""),
	})
	require.NoError(t, err)

	ops, err := s.LoadDatasetOperations(ctx, KindTaxon, ds2, []string{"e1"})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, ds2.ID, ops[0].DatasetVersionID)
}

func TestPaginationStable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	dv := registerVersion(t, s, "ds1", "v1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var ops []RawOperation
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("entity-%03d", i)
		ops = append(ops, testOp(dv, id, opID(i), opID(i), "Empty", ""))
	}
	_, err := s.UpsertOperations(ctx, KindOrganism, ops)
	require.NoError(t, err)

	total, err := s.CountEntities(ctx, KindOrganism)
	require.NoError(t, err)
	assert.EqualValues(t, 25, total)

	var all []string
	for page := 0; ; page++ {
		ids, err := s.PageEntityIDs(ctx, KindOrganism, page, 10)
		require.NoError(t, err)
		if len(ids) == 0 {
			break
		}
		all = append(all, ids...)
	}

	require.Len(t, all, 25)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1], all[i], "pages must be ordered and disjoint")
	}
}

func TestUnknownKindRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertOperations(ctx, Kind("nonsense"), []RawOperation{{}})
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = s.CountEntities(ctx, Kind("nonsense; DROP TABLE taxa"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestLoadEntityOperationsFullHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	dv := registerVersion(t, s, "ds1", "v1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	_, err := s.UpsertOperations(ctx, KindTaxon, []RawOperation{
		testOp(dv, "e2", opID(3), opID(3), "Empty", ""),
		testOp(dv, "e1", opID(1), opID(1), "Empty", ""),
		testOp(dv, "e1", opID(2), opID(1), "TaxonId", "t1"),
	})
	require.NoError(t, err)

	ops, err := s.LoadEntityOperations(ctx, KindTaxon, []string{"e1", "e2"})
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, opID(1), ops[0].OperationID)
	assert.Equal(t, opID(2), ops[1].OperationID)
	assert.Equal(t, opID(3), ops[2].OperationID)
}
