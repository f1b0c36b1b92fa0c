package importer

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecotone-bio/ecotone/pkg/crdt"
	"github.com/ecotone-bio/ecotone/pkg/metrics"
)

// pairAtom is a small test catalog with two tags.
type pairAtom struct {
	Kind  string
	Value string
}

func (a pairAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return a.Kind
}

func (a pairAtom) IsEmpty() bool { return a.Kind == "" }

// pairRecord decomposes a two-column CSV row.
type pairRecord struct {
	EntityID string `csv:"entity_id"`
	Name     string `csv:"name"`
	Label    string `csv:"label"`
}

func (r pairRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r pairRecord) Decompose(frame *crdt.Frame[pairAtom]) error {
	frame.Push(pairAtom{Kind: "Name", Value: r.Name})
	frame.PushOpt(pairAtom{Kind: "Label", Value: r.Label}, r.Label != "")
	return nil
}

// memoryLoader is an in-memory OperationLoader.
type memoryLoader struct {
	mu  sync.Mutex
	ops []crdt.Operation[pairAtom]
}

func (l *memoryLoader) LoadOperations(_ context.Context, entityIDs []string) ([]crdt.Operation[pairAtom], error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wanted := make(map[string]struct{}, len(entityIDs))
	for _, id := range entityIDs {
		wanted[id] = struct{}{}
	}

	var out []crdt.Operation[pairAtom]
	for _, op := range l.ops {
		if _, ok := wanted[op.EntityID]; ok {
			out = append(out, op)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OperationID.Before(out[j].OperationID) })
	return out, nil
}

func (l *memoryLoader) UpsertOperations(_ context.Context, ops []crdt.Operation[pairAtom]) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	present := make(map[crdt.Version]struct{}, len(l.ops))
	for _, op := range l.ops {
		present[op.OperationID] = struct{}{}
	}

	inserted := 0
	for _, op := range ops {
		if _, ok := present[op.OperationID]; ok {
			continue
		}
		l.ops = append(l.ops, op)
		inserted++
	}
	return inserted, nil
}

func runCSV(t *testing.T, csvData string, loader *memoryLoader, dv uuid.UUID) *metrics.Progress {
	t.Helper()

	source, err := NewCSVSource[pairRecord](strings.NewReader(csvData))
	require.NoError(t, err)

	progress := metrics.NewProgress("pair")
	err = Run[pairRecord, pairAtom](context.Background(), source, loader, dv, Config{
		ChunkSize: 2, BatchSize: 3, Workers: 2,
	}, progress)
	require.NoError(t, err)
	return progress
}

func TestImportProducesFrames(t *testing.T) {
	loader := &memoryLoader{}
	dv := uuid.New()

	csvData := "entity_id,name,label\ne1,first,x\ne2,second,\n"
	progress := runCSV(t, csvData, loader, dv)

	// e1: create + Name + Label; e2: create + Name.
	assert.EqualValues(t, 5, progress.Inserted())
	assert.EqualValues(t, 2, progress.Rows())

	// Each entity's operations open with a Create that is its own parent,
	// and every later operation links to the one before it.
	ops := loader.ops
	byEntity := map[string][]crdt.Operation[pairAtom]{}
	for _, op := range ops {
		byEntity[op.EntityID] = append(byEntity[op.EntityID], op)
	}
	require.Len(t, byEntity, 2)

	for _, entityOps := range byEntity {
		sort.Slice(entityOps, func(i, j int) bool {
			return entityOps[i].OperationID.Before(entityOps[j].OperationID)
		})
		assert.Equal(t, crdt.ActionCreate, entityOps[0].Action)
		assert.Equal(t, entityOps[0].OperationID, entityOps[0].ParentID)
		for i := 1; i < len(entityOps); i++ {
			assert.Equal(t, entityOps[i-1].OperationID, entityOps[i].ParentID)
		}
	}
}

func TestReimportIsIdempotent(t *testing.T) {
	loader := &memoryLoader{}
	dv := uuid.New()

	csvData := "entity_id,name,label\ne1,first,x\ne2,second,y\n"
	first := runCSV(t, csvData, loader, dv)
	require.Positive(t, first.Inserted())

	count := len(loader.ops)

	second := runCSV(t, csvData, loader, dv)
	assert.EqualValues(t, 0, second.Inserted(), "second import must insert nothing")
	assert.Len(t, loader.ops, count)
}

func TestNewVersionSameValuesInsertsNothing(t *testing.T) {
	loader := &memoryLoader{}

	csvData := "entity_id,name,label\ne1,stable,z\n"
	runCSV(t, csvData, loader, uuid.New())
	count := len(loader.ops)

	// A later dataset version asserting identical values is pure no-op.
	second := runCSV(t, csvData, loader, uuid.New())
	assert.EqualValues(t, 0, second.Inserted())
	assert.Len(t, loader.ops, count)
}

func TestChangedValueInsertsOnlyTheChange(t *testing.T) {
	loader := &memoryLoader{}

	runCSV(t, "entity_id,name,label\ne1,before,same\n", loader, uuid.New())
	count := len(loader.ops)

	second := runCSV(t, "entity_id,name,label\ne1,after,same\n", loader, uuid.New())

	// Only the Name update lands; create and Label are no-ops.
	assert.EqualValues(t, 1, second.Inserted())
	assert.Len(t, loader.ops, count+1)

	last := loader.ops[len(loader.ops)-1]
	assert.Equal(t, "Name", last.Atom.Tag())
	assert.Equal(t, "after", last.Atom.Value)
}

func TestRowErrorsAreRecovered(t *testing.T) {
	loader := &memoryLoader{}

	// The second line has a stray quote the csv reader rejects.
	csvData := "entity_id,name,label\ne1,good,x\ne2,\"bad,y\ne3,also good,z\n"

	source, err := NewCSVSource[pairRecord](strings.NewReader(csvData))
	require.NoError(t, err)

	progress := metrics.NewProgress("pair")
	err = Run[pairRecord, pairAtom](context.Background(), source, loader, uuid.New(), Config{}, progress)
	require.NoError(t, err)

	assert.Positive(t, progress.Inserted())

	entities := map[string]struct{}{}
	for _, op := range loader.ops {
		entities[op.EntityID] = struct{}{}
	}
	assert.Len(t, entities, 1, "only rows before the quote corruption survive")
}

func TestCancellationStopsNewChunks(t *testing.T) {
	loader := &memoryLoader{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source, err := NewCSVSource[pairRecord](strings.NewReader("entity_id,name,label\ne1,a,b\n"))
	require.NoError(t, err)

	err = Run[pairRecord, pairAtom](ctx, source, loader, uuid.New(), Config{}, metrics.NewProgress("pair"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, loader.ops)
}
