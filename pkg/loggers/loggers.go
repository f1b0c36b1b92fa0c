package loggers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ecotone-bio/ecotone/pkg/crdt"
	"github.com/ecotone-bio/ecotone/pkg/store"
)

// progressInterval is how often an import phase emits a progress log
// line. Projection phases do not start the ticker; they log only their
// final summary.
const progressInterval = 10 * time.Second

// ErrMissingAtom is wrapped by reduce failures for entities missing a
// mandatory atom. The entity is skipped; projection continues.
var ErrMissingAtom = errors.New("missing mandatory atom")

// ErrUnknownAtom is wrapped when a log row carries an atom tag outside
// the kind's catalog. That means the catalog and the log disagree and
// the entity cannot be reduced faithfully.
var ErrUnknownAtom = errors.New("unknown atom tag")

// ErrLookup is wrapped when a reduced entity references a record no
// lookup can resolve.
var ErrLookup = errors.New("lookup failed")

func missingAtom(entityID, tag string) error {
	return fmt.Errorf("%w: entity %s tag %s", ErrMissingAtom, entityID, tag)
}

// payloadAtom is the contract every kind's atom meets: the crdt
// constraint plus access to the payload for persistence.
type payloadAtom interface {
	crdt.Atom
	Payload() string
}

// loader binds one kind's log table and a dataset version to the
// importer's typed OperationLoader. The decode function rejects tags
// outside the kind's catalog, so foreign rows can never be smuggled
// into a typed operation stream.
type loader[A payloadAtom] struct {
	st      *store.Store
	kind    store.Kind
	version store.DatasetVersion
	decode  func(tag, value string) (A, error)
}

func newLoader[A payloadAtom](st *store.Store, kind store.Kind, version store.DatasetVersion, decode func(tag, value string) (A, error)) *loader[A] {
	return &loader[A]{st: st, kind: kind, version: version, decode: decode}
}

func (l *loader[A]) LoadOperations(ctx context.Context, entityIDs []string) ([]crdt.Operation[A], error) {
	raw, err := l.st.LoadOperations(ctx, l.kind, l.version, entityIDs)
	if err != nil {
		return nil, err
	}
	return decodeOps(raw, l.decode)
}

func (l *loader[A]) UpsertOperations(ctx context.Context, ops []crdt.Operation[A]) (int, error) {
	raw := make([]store.RawOperation, len(ops))
	for i, op := range ops {
		raw[i] = store.RawOperation{
			OperationID:      op.OperationID.String(),
			ParentID:         op.ParentID.String(),
			EntityID:         op.EntityID,
			DatasetVersionID: op.DatasetVersionID,
			Action:           string(op.Action),
			AtomType:         op.Atom.Tag(),
			AtomValue:        op.Atom.Payload(),
		}
	}
	return l.st.UpsertOperations(ctx, l.kind, raw)
}

// decodeOps converts persisted rows back into typed operations.
func decodeOps[A payloadAtom](raw []store.RawOperation, decode func(tag, value string) (A, error)) ([]crdt.Operation[A], error) {
	ops := make([]crdt.Operation[A], 0, len(raw))
	for _, r := range raw {
		opID, err := crdt.ParseVersion(r.OperationID)
		if err != nil {
			return nil, err
		}
		parentID, err := crdt.ParseVersion(r.ParentID)
		if err != nil {
			return nil, err
		}
		atom, err := decode(r.AtomType, r.AtomValue)
		if err != nil {
			return nil, err
		}
		ops = append(ops, crdt.Operation[A]{
			OperationID:      opID,
			ParentID:         parentID,
			EntityID:         r.EntityID,
			DatasetVersionID: r.DatasetVersionID,
			Action:           crdt.Action(r.Action),
			Atom:             atom,
		})
	}
	return ops, nil
}

// maxBindParams mirrors the store's statement parameter budget; the
// entity upserts pack as many rows per statement as it allows.
const maxBindParams = 32000

// bulkUpsert writes rows into table with a single multi-row statement
// per batch, updating every data column on entity_id conflicts. columns
// must start with entity_id; rows are positional.
func bulkUpsert(ctx context.Context, db *sql.DB, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	if len(columns) < 2 || columns[0] != "entity_id" {
		return fmt.Errorf("loggers: %s upsert needs entity_id as the first column", table)
	}

	var setClauses []string
	for _, col := range columns[1:] {
		setClauses = append(setClauses, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	rowsPerStmt := maxBindParams / len(columns)
	for start := 0; start < len(rows); start += rowsPerStmt {
		end := min(start+rowsPerStmt, len(rows))
		batch := rows[start:end]

		var b strings.Builder
		fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

		args := make([]any, 0, len(batch)*len(columns))
		tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
		for i, row := range batch {
			if len(row) != len(columns) {
				return fmt.Errorf("loggers: %s upsert row has %d values, want %d", table, len(row), len(columns))
			}
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(tuple)
			args = append(args, row...)
		}

		fmt.Fprintf(&b, " ON CONFLICT (entity_id) DO UPDATE SET %s", strings.Join(setClauses, ", "))

		if _, err := db.ExecContext(ctx, b.String(), args...); err != nil {
			return fmt.Errorf("loggers: upsert %s: %w", table, err)
		}
	}
	return nil
}

// atomSet indexes a kind's catalog for decode-time validation.
func atomSet(tags ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
	}
	return set
}

// optional value helpers. Empty strings are absent; malformed numerics
// are uniformly treated as absent rather than failing the row.

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func tryParseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}

func tryParseInt(s string) *int64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func tryParseBool(s string) *bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		v := true
		return &v
	case "false", "f", "no", "n", "0":
		v := false
		return &v
	default:
		return nil
	}
}

// canonical* fold provider numerics and booleans onto one spelling so
// equal values from different providers compare equal in the log.
// Malformed values canonicalize to empty and decompose to no atom.

func canonicalFloat(s string) string {
	f := tryParseFloat(s)
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'g', -1, 64)
}

func canonicalInt(s string) string {
	n := tryParseInt(s)
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

func canonicalBool(s string) string {
	b := tryParseBool(s)
	if b == nil {
		return ""
	}
	if *b {
		return "true"
	}
	return "false"
}

func derefOrNil[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
