package crdt

import (
	"github.com/google/uuid"
)

// Atom is the constraint for a single typed field value. Each entity
// kind defines its own closed atom type; the zero value of that type
// must be the Empty sentinel carried by frame-opening Create operations.
type Atom interface {
	comparable
	Tag() string
	IsEmpty() bool
}

// Action classifies an operation within a frame.
type Action string

const (
	// ActionCreate opens a frame and carries the Empty atom.
	ActionCreate Action = "create"
	// ActionUpdate carries a real atom value.
	ActionUpdate Action = "update"
)

// Operation is one immutable entry in the append-only log.
type Operation[A Atom] struct {
	OperationID      Version
	ParentID         Version
	EntityID         string
	DatasetVersionID uuid.UUID
	Action           Action
	Atom             A
}

// Frame accumulates the operations decomposed from a single input row.
// All operations share the frame's entity id and dataset version, and
// their ids are drawn from a clock seeded with the previous frame's last
// version so that frames from one stream never overlap.
type Frame[A Atom] struct {
	EntityID         string
	DatasetVersionID uuid.UUID

	clock *Clock
	prev  Version
	ops   []Operation[A]
}

// NewFrame opens a frame for entityID under datasetVersionID, emitting
// the Create operation that anchors the frame. last must be the previous
// frame's last version, or the zero Version for the first frame of a
// stream.
func NewFrame[A Atom](entityID string, datasetVersionID uuid.UUID, last Version) *Frame[A] {
	clock := NewClock(last)
	id := clock.Next()

	var empty A
	f := &Frame[A]{
		EntityID:         entityID,
		DatasetVersionID: datasetVersionID,
		clock:            clock,
		prev:             id,
	}
	f.ops = append(f.ops, Operation[A]{
		OperationID:      id,
		ParentID:         id,
		EntityID:         entityID,
		DatasetVersionID: datasetVersionID,
		Action:           ActionCreate,
		Atom:             empty,
	})
	return f
}

// Push appends an Update operation carrying atom, linked to the
// previously pushed operation.
func (f *Frame[A]) Push(atom A) {
	id := f.clock.Next()
	f.ops = append(f.ops, Operation[A]{
		OperationID:      id,
		ParentID:         f.prev,
		EntityID:         f.EntityID,
		DatasetVersionID: f.DatasetVersionID,
		Action:           ActionUpdate,
		Atom:             atom,
	})
	f.prev = id
}

// PushOpt pushes atom only when present is true. It keeps decomposers
// terse when a column is optional.
func (f *Frame[A]) PushOpt(atom A, present bool) {
	if present {
		f.Push(atom)
	}
}

// Collect returns the accumulated operations and empties the frame.
// LastVersion still reports the last emitted version afterwards.
func (f *Frame[A]) Collect() []Operation[A] {
	ops := f.ops
	f.ops = nil
	return ops
}

// LastVersion returns the version of the most recently emitted
// operation. Thread it into the next frame of the same stream.
func (f *Frame[A]) LastVersion() Version {
	return f.prev
}
