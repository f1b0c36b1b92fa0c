package crdt

// registered is the winning write for one atom tag.
type registered[A Atom] struct {
	operationID Version
	atom        A
}

// Map is a last-writer-wins register map keyed by atom tag. Reducing a
// set of operations through the map reconstructs the current state of
// one entity.
type Map[A Atom] struct {
	EntityID string

	atoms map[string]registered[A]
}

// NewMap returns an empty map for the given entity.
func NewMap[A Atom](entityID string) *Map[A] {
	return &Map[A]{
		EntityID: entityID,
		atoms:    make(map[string]registered[A]),
	}
}

// Reduce applies ops to the map and returns the subset that actually
// advanced it. An operation whose atom equals the value currently held
// at its tag never advances the map, even when its id is newer; that is
// the no-op filter that keeps re-imports from growing the log.
func (m *Map[A]) Reduce(ops []Operation[A]) []Operation[A] {
	var changed []Operation[A]

	for _, op := range ops {
		cur, ok := m.atoms[op.Atom.Tag()]
		if ok {
			if cur.atom == op.Atom {
				continue
			}
			if !op.OperationID.After(cur.operationID) {
				continue
			}
		}
		m.atoms[op.Atom.Tag()] = registered[A]{operationID: op.OperationID, atom: op.Atom}
		changed = append(changed, op)
	}

	return changed
}

// Atoms returns the winning atom per tag, with the Empty sentinel
// discarded. Callers walk this to assemble a typed entity row.
func (m *Map[A]) Atoms() []A {
	out := make([]A, 0, len(m.atoms))
	for _, reg := range m.atoms {
		if reg.atom.IsEmpty() {
			continue
		}
		out = append(out, reg.atom)
	}
	return out
}

// Len reports the number of registered tags, including Empty.
func (m *Map[A]) Len() int {
	return len(m.atoms)
}
