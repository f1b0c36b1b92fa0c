package crdt

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testAtom is a minimal atom catalog used to exercise the generic
// machinery: an empty sentinel plus two string-valued tags.
type testAtom struct {
	Kind  string
	Value string
}

func (a testAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return a.Kind
}

func (a testAtom) IsEmpty() bool { return a.Kind == "" }

func atomA(v string) testAtom { return testAtom{Kind: "A", Value: v} }
func atomB(v string) testAtom { return testAtom{Kind: "B", Value: v} }

func TestClockStrictlyIncreasing(t *testing.T) {
	clock := NewClock(Version{})

	prev := clock.Next()
	for i := 0; i < 10_000; i++ {
		next := clock.Next()
		require.True(t, next.After(prev), "version %v not after %v", next, prev)
		prev = next
	}
}

func TestClockResumesPastSeed(t *testing.T) {
	// Seed with a timestamp far in the future to simulate wall clock
	// regression; the counter must carry ordering.
	seed := Version{Timestamp: 1<<62 - 1, Counter: 7}
	clock := NewClock(seed)

	v := clock.Next()
	assert.True(t, v.After(seed))
	assert.Equal(t, seed.Timestamp, v.Timestamp)
	assert.Equal(t, seed.Counter+1, v.Counter)
}

func TestVersionOrderingMatchesStringOrdering(t *testing.T) {
	versions := []Version{
		{Timestamp: 1, Counter: 0},
		{Timestamp: 1, Counter: 1},
		{Timestamp: 2, Counter: 0},
		{Timestamp: 1_700_000_000_000_000_000, Counter: 0},
		{Timestamp: 1_700_000_000_000_000_000, Counter: 9},
	}

	for i := 0; i < len(versions)-1; i++ {
		a, b := versions[i], versions[i+1]
		assert.True(t, a.Before(b))
		assert.Less(t, a.String(), b.String(), "string order must match version order")
	}
}

func TestVersionStringRoundTrip(t *testing.T) {
	v := Version{Timestamp: 1_700_000_123_456_789_000, Counter: 42}
	parsed, err := ParseVersion(v.String())
	require.NoError(t, err)
	assert.Equal(t, v, parsed)

	_, err = ParseVersion("not-a-version")
	assert.Error(t, err)
}

func TestFrameLinkage(t *testing.T) {
	dv := uuid.New()
	frame := NewFrame[testAtom]("e1", dv, Version{})
	for i := 0; i < 6; i++ {
		frame.Push(atomA(string(rune('a' + i))))
	}

	ops := frame.Collect()
	require.Len(t, ops, 7)

	// The opener references itself and carries the Empty atom.
	assert.Equal(t, ops[0].OperationID, ops[0].ParentID)
	assert.Equal(t, ActionCreate, ops[0].Action)
	assert.True(t, ops[0].Atom.IsEmpty())

	for i := 1; i < len(ops); i++ {
		assert.Equal(t, ops[i-1].OperationID, ops[i].ParentID, "op %d parent", i)
		assert.True(t, ops[i].OperationID.After(ops[i-1].OperationID), "op %d id order", i)
		assert.Equal(t, ActionUpdate, ops[i].Action)
		assert.Equal(t, "e1", ops[i].EntityID)
		assert.Equal(t, dv, ops[i].DatasetVersionID)
	}
}

func TestFramesFromSameStreamDoNotOverlap(t *testing.T) {
	dv := uuid.New()

	first := NewFrame[testAtom]("e1", dv, Version{})
	first.Push(atomA("x"))
	firstOps := first.Collect()

	second := NewFrame[testAtom]("e2", dv, first.LastVersion())
	second.Push(atomA("y"))
	secondOps := second.Collect()

	last := firstOps[len(firstOps)-1].OperationID
	for _, op := range secondOps {
		assert.True(t, op.OperationID.After(last))
	}
}

func TestLWWLatestWins(t *testing.T) {
	dv := uuid.New()

	frame := NewFrame[testAtom]("e1", dv, Version{})
	frame.Push(atomA("old"))
	frame.Push(atomB("kept"))
	ops := frame.Collect()

	next := NewFrame[testAtom]("e1", dv, frame.LastVersion())
	next.Push(atomA("new"))
	ops = append(ops, next.Collect()...)

	m := NewMap[testAtom]("e1")
	m.Reduce(ops)

	atoms := m.Atoms()
	assert.ElementsMatch(t, []testAtom{atomA("new"), atomB("kept")}, atoms)
}

func TestLWWNoOpFilter(t *testing.T) {
	dv := uuid.New()

	frame := NewFrame[testAtom]("e1", dv, Version{})
	frame.Push(atomA("same"))
	existing := frame.Collect()

	m := NewMap[testAtom]("e1")
	changed := m.Reduce(existing)
	require.Len(t, changed, 2)

	// A newer operation writing the identical value must not advance
	// the map.
	again := NewFrame[testAtom]("e1", dv, frame.LastVersion())
	again.Push(atomA("same"))

	changed = m.Reduce(again.Collect())
	assert.Empty(t, changed)
}

func TestLWWStaleWriteIgnored(t *testing.T) {
	dv := uuid.New()

	newer := Operation[testAtom]{
		OperationID: Version{Timestamp: 100},
		EntityID:    "e1", DatasetVersionID: dv,
		Action: ActionUpdate, Atom: atomA("winner"),
	}
	older := Operation[testAtom]{
		OperationID: Version{Timestamp: 50},
		EntityID:    "e1", DatasetVersionID: dv,
		Action: ActionUpdate, Atom: atomA("loser"),
	}

	m := NewMap[testAtom]("e1")
	m.Reduce([]Operation[testAtom]{newer})
	changed := m.Reduce([]Operation[testAtom]{older})

	assert.Empty(t, changed)
	assert.ElementsMatch(t, []testAtom{atomA("winner")}, m.Atoms())
}

func TestLWWConvergesUnderPermutation(t *testing.T) {
	dv := uuid.New()

	frame := NewFrame[testAtom]("e1", dv, Version{})
	frame.Push(atomA("1"))
	frame.Push(atomB("2"))
	frame.Push(atomA("3"))
	frame.Push(atomB("4"))
	ops := frame.Collect()

	reference := NewMap[testAtom]("e1")
	reference.Reduce(ops)
	want := reference.Atoms()

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		shuffled := make([]Operation[testAtom], len(ops))
		copy(shuffled, ops)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		m := NewMap[testAtom]("e1")
		m.Reduce(shuffled)
		assert.ElementsMatch(t, want, m.Atoms(), "permutation %d diverged", trial)
	}
}

func TestHashIdentityStable(t *testing.T) {
	a := HashIdentityString("GA12345")
	b := HashIdentityString("GA12345")
	c := HashIdentityString("GA12346")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	// Rendered as decimal digits only.
	for _, r := range a {
		assert.Contains(t, "0123456789", string(r))
	}
}
