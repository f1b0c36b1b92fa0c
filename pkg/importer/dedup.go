package importer

import (
	"context"

	"github.com/ecotone-bio/ecotone/pkg/crdt"
)

// OperationLoader is the slice of the store the deduplicator needs,
// typed by atom kind. Each entity kind's logger provides one, bound to
// the dataset version being imported.
type OperationLoader[A crdt.Atom] interface {
	// LoadOperations returns all prior operations for the entity ids,
	// up to and including the bound dataset version's creation time,
	// ordered by operation id.
	LoadOperations(ctx context.Context, entityIDs []string) ([]crdt.Operation[A], error)
	// UpsertOperations bulk-inserts operations, ignoring conflicts on
	// operation id, and returns the number actually inserted.
	UpsertOperations(ctx context.Context, ops []crdt.Operation[A]) (int, error)
}

// GroupOperations merges the existing and incoming operations and
// groups them by entity id. Within each group existing operations come
// first; both inputs are already ordered by operation id.
func GroupOperations[A crdt.Atom](existing, incoming []crdt.Operation[A]) map[string][]crdt.Operation[A] {
	grouped := make(map[string][]crdt.Operation[A])
	for _, op := range existing {
		grouped[op.EntityID] = append(grouped[op.EntityID], op)
	}
	for _, op := range incoming {
		grouped[op.EntityID] = append(grouped[op.EntityID], op)
	}
	return grouped
}

// MergeOperations reduces the combined operation set per entity and
// returns only the operations that advanced an LWW map. Operations that
// re-assert a value already held are dropped here, which is what makes
// a re-import of unchanged data produce nothing.
func MergeOperations[A crdt.Atom](existing, incoming []crdt.Operation[A]) []crdt.Operation[A] {
	var merged []crdt.Operation[A]
	for entityID, ops := range GroupOperations(existing, incoming) {
		m := crdt.NewMap[A](entityID)
		merged = append(merged, m.Reduce(ops)...)
	}
	return merged
}

// DistinctChanges filters ops down to the operations that effect a real
// change relative to all history. It loads the prior operations for the
// batch's entity ids, merges, and subtracts the prior operations from
// the result. Batch the input so the id lookup stays within statement
// and memory bounds.
func DistinctChanges[A crdt.Atom](ctx context.Context, ops []crdt.Operation[A], loader OperationLoader[A]) ([]crdt.Operation[A], error) {
	seen := make(map[string]struct{}, len(ops))
	var entityIDs []string
	for _, op := range ops {
		if _, ok := seen[op.EntityID]; !ok {
			seen[op.EntityID] = struct{}{}
			entityIDs = append(entityIDs, op.EntityID)
		}
	}

	existing, err := loader.LoadOperations(ctx, entityIDs)
	if err != nil {
		return nil, err
	}

	existingIDs := make(map[crdt.Version]struct{}, len(existing))
	for _, op := range existing {
		existingIDs[op.OperationID] = struct{}{}
	}

	merged := MergeOperations(existing, ops)

	changes := merged[:0]
	for _, op := range merged {
		if _, ok := existingIDs[op.OperationID]; !ok {
			changes = append(changes, op)
		}
	}
	return changes, nil
}
