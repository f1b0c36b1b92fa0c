package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// maxBindParams is the statement parameter budget. SQLite's default
// SQLITE_MAX_VARIABLE_NUMBER is 32766; staying under it lets bulk
// inserts pack as many rows per statement as possible without tripping
// the limit.
const maxBindParams = 32000

// opColumns is the column count of a log row; it fixes how many rows
// fit into one bulk insert statement.
const opColumns = 7

// Store is the SQLite-backed operation store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dsn, applies the production
// pragmas, runs migrations, and caps the connection pool at maxConns.
func Open(dsn string, maxConns int) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema()); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	return &Store{db: db}, nil
}

// DB exposes the underlying pool for the entity projectors, which own
// their table-specific upsert statements.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// UpsertSource registers or refreshes a collection source and returns
// its id. Idempotent on name.
func (s *Store) UpsertSource(ctx context.Context, src Source) (uuid.UUID, error) {
	if src.ID == uuid.Nil {
		src.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (id, name, author, rights_holder, access_rights, license)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			author        = excluded.author,
			rights_holder = excluded.rights_holder,
			access_rights = excluded.access_rights,
			license       = excluded.license`,
		src.ID.String(), src.Name, src.Author, src.RightsHolder, src.AccessRights, src.License,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: upsert source %q: %w", src.Name, err)
	}

	var id string
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM sources WHERE name = ?`, src.Name).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("store: source %q not found after upsert: %w", src.Name, err)
	}
	return uuid.Parse(id)
}

// UpsertDataset registers or refreshes a dataset and returns its id.
// Idempotent on global_id.
func (s *Store) UpsertDataset(ctx context.Context, ds Dataset) (uuid.UUID, error) {
	if ds.ID == uuid.Nil {
		ds.ID = uuid.New()
	}
	now := time.Now().UnixNano()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO datasets (id, source_id, global_id, name, short_name, url, citation, license, rights_holder, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (global_id) DO UPDATE SET
			source_id     = excluded.source_id,
			name          = excluded.name,
			short_name    = excluded.short_name,
			url           = excluded.url,
			citation      = excluded.citation,
			license       = excluded.license,
			rights_holder = excluded.rights_holder,
			updated_at    = excluded.updated_at`,
		ds.ID.String(), ds.SourceID.String(), ds.GlobalID, ds.Name, ds.ShortName,
		ds.URL, ds.Citation, ds.License, ds.RightsHolder, now, now,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: upsert dataset %q: %w", ds.GlobalID, err)
	}

	var id string
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM datasets WHERE global_id = ?`, ds.GlobalID).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("store: dataset %q not found after upsert: %w", ds.GlobalID, err)
	}
	return uuid.Parse(id)
}

// CreateDatasetVersion registers a dataset version before any operation
// from it is inserted. Re-registering the same (dataset, version) pair
// returns the existing row; registering it with a different created_at
// is a version conflict and aborts the import.
func (s *Store) CreateDatasetVersion(ctx context.Context, datasetGlobalID, version string, createdAt time.Time) (DatasetVersion, error) {
	var datasetID string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM datasets WHERE global_id = ?`, datasetGlobalID).Scan(&datasetID)
	if err != nil {
		return DatasetVersion{}, fmt.Errorf("store: dataset %q not registered: %w", datasetGlobalID, err)
	}

	var existingID string
	var existingCreated int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM dataset_versions WHERE dataset_id = ? AND version = ?`,
		datasetID, version,
	).Scan(&existingID, &existingCreated)
	switch {
	case err == nil:
		if existingCreated != createdAt.UnixNano() {
			return DatasetVersion{}, fmt.Errorf(
				"store: dataset %q version %q: %w", datasetGlobalID, version, ErrVersionConflict)
		}
		id, err := uuid.Parse(existingID)
		if err != nil {
			return DatasetVersion{}, fmt.Errorf("store: malformed dataset version id %q: %w", existingID, err)
		}
		dsID, _ := uuid.Parse(datasetID)
		return DatasetVersion{
			ID: id, DatasetID: dsID, Version: version,
			CreatedAt: time.Unix(0, existingCreated).UTC(),
		}, nil
	case err != sql.ErrNoRows:
		return DatasetVersion{}, fmt.Errorf("store: lookup dataset version: %w", err)
	}

	dv := DatasetVersion{
		ID:         uuid.New(),
		Version:    version,
		CreatedAt:  createdAt.UTC(),
		ImportedAt: time.Now().UTC(),
	}
	dv.DatasetID, _ = uuid.Parse(datasetID)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dataset_versions (id, dataset_id, version, created_at, imported_at)
		VALUES (?, ?, ?, ?, ?)`,
		dv.ID.String(), datasetID, version, dv.CreatedAt.UnixNano(), dv.ImportedAt.UnixNano(),
	)
	if err != nil {
		return DatasetVersion{}, fmt.Errorf("store: create dataset version: %w", err)
	}
	return dv, nil
}

// LoadOperations returns every operation for the given entity ids whose
// dataset version was published at or before the given version, across
// all datasets, ordered by operation id.
func (s *Store) LoadOperations(ctx context.Context, kind Kind, version DatasetVersion, entityIDs []string) ([]RawOperation, error) {
	return s.loadOps(ctx, kind, version, entityIDs, false)
}

// LoadDatasetOperations is LoadOperations restricted to versions of the
// same dataset as version.
func (s *Store) LoadDatasetOperations(ctx context.Context, kind Kind, version DatasetVersion, entityIDs []string) ([]RawOperation, error) {
	return s.loadOps(ctx, kind, version, entityIDs, true)
}

func (s *Store) loadOps(ctx context.Context, kind Kind, version DatasetVersion, entityIDs []string, sameDataset bool) ([]RawOperation, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if len(entityIDs) == 0 {
		return nil, nil
	}

	datasetFilter := ""
	if sameDataset {
		datasetFilter = " AND dv.dataset_id = ?"
	}

	var ops []RawOperation
	for _, chunk := range chunkStrings(entityIDs, maxBindParams-4) {
		query := fmt.Sprintf(`
			SELECT l.operation_id, l.parent_id, l.entity_id, l.dataset_version_id, l.action, l.atom_type, l.atom_value
			FROM %s AS l
			JOIN dataset_versions AS dv ON dv.id = l.dataset_version_id
			WHERE dv.created_at <= ?%s AND l.entity_id IN (%s)
			ORDER BY l.operation_id ASC`,
			kind.LogTable(), datasetFilter, placeholders(len(chunk)),
		)

		args := []any{version.CreatedAt.UnixNano()}
		if sameDataset {
			args = append(args, version.DatasetID.String())
		}
		for _, id := range chunk {
			args = append(args, id)
		}

		chunkOps, err := s.queryOps(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("store: load %s operations: %w", kind, err)
		}
		ops = append(ops, chunkOps...)
	}

	// Chunked IN lists each return in operation order; restore the
	// global order across chunks.
	if len(entityIDs) > maxBindParams-4 {
		sortOps(ops)
	}
	return ops, nil
}

// LoadEntityOperations returns the full history for the given entity
// ids regardless of dataset version, ordered by operation id. The
// projector reduces these into entity rows.
func (s *Store) LoadEntityOperations(ctx context.Context, kind Kind, entityIDs []string) ([]RawOperation, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if len(entityIDs) == 0 {
		return nil, nil
	}

	var ops []RawOperation
	for _, chunk := range chunkStrings(entityIDs, maxBindParams) {
		query := fmt.Sprintf(`
			SELECT operation_id, parent_id, entity_id, dataset_version_id, action, atom_type, atom_value
			FROM %s
			WHERE entity_id IN (%s)
			ORDER BY operation_id ASC`,
			kind.LogTable(), placeholders(len(chunk)),
		)
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		chunkOps, err := s.queryOps(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("store: load %s entity operations: %w", kind, err)
		}
		ops = append(ops, chunkOps...)
	}

	if len(entityIDs) > maxBindParams {
		sortOps(ops)
	}
	return ops, nil
}

// UpsertOperations bulk-inserts ops into the kind's log. Conflicts on
// operation_id mean the operation is already present and are ignored.
// Returns the number of operations actually inserted.
func (s *Store) UpsertOperations(ctx context.Context, kind Kind, ops []RawOperation) (int, error) {
	if err := checkKind(kind); err != nil {
		return 0, err
	}
	if len(ops) == 0 {
		return 0, nil
	}

	rowsPerStmt := maxBindParams / opColumns
	inserted := 0

	for start := 0; start < len(ops); start += rowsPerStmt {
		end := min(start+rowsPerStmt, len(ops))
		batch := ops[start:end]

		var b strings.Builder
		fmt.Fprintf(&b, `INSERT INTO %s
			(operation_id, parent_id, entity_id, dataset_version_id, action, atom_type, atom_value)
			VALUES `, kind.LogTable())

		args := make([]any, 0, len(batch)*opColumns)
		for i, op := range batch {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("(?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				op.OperationID, op.ParentID, op.EntityID,
				op.DatasetVersionID.String(), op.Action, op.AtomType, op.AtomValue,
			)
		}
		b.WriteString(" ON CONFLICT (operation_id) DO NOTHING")

		res, err := s.db.ExecContext(ctx, b.String(), args...)
		if err != nil {
			return inserted, fmt.Errorf("store: upsert %s operations: %w", kind, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("store: upsert %s operations: %w", kind, err)
		}
		inserted += int(n)
	}

	return inserted, nil
}

// CountEntities returns the number of distinct entities in the kind's
// log.
func (s *Store) CountEntities(ctx context.Context, kind Kind) (int64, error) {
	if err := checkKind(kind); err != nil {
		return 0, err
	}
	var total int64
	query := fmt.Sprintf(`SELECT COUNT(DISTINCT entity_id) FROM %s`, kind.LogTable())
	if err := s.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("store: count %s entities: %w", kind, err)
	}
	return total, nil
}

// PageEntityIDs returns one stable page of distinct entity ids, ordered
// by entity id so parallel workers can partition the space.
func (s *Store) PageEntityIDs(ctx context.Context, kind Kind, page, size int) ([]string, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT DISTINCT entity_id FROM %s
		ORDER BY entity_id
		LIMIT ? OFFSET ?`, kind.LogTable())

	rows, err := s.db.QueryContext(ctx, query, size, page*size)
	if err != nil {
		return nil, fmt.Errorf("store: page %s entities: %w", kind, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: page %s entities: %w", kind, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) queryOps(ctx context.Context, query string, args ...any) ([]RawOperation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []RawOperation
	for rows.Next() {
		var op RawOperation
		var dvID string
		if err := rows.Scan(&op.OperationID, &op.ParentID, &op.EntityID, &dvID, &op.Action, &op.AtomType, &op.AtomValue); err != nil {
			return nil, err
		}
		op.DatasetVersionID, err = uuid.Parse(dvID)
		if err != nil {
			return nil, fmt.Errorf("malformed dataset_version_id %q: %w", dvID, err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func chunkStrings(values []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(values); start += size {
		chunks = append(chunks, values[start:min(start+size, len(values))])
	}
	return chunks
}

func sortOps(ops []RawOperation) {
	// Fixed-width decimal ids sort correctly as strings.
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].OperationID < ops[j].OperationID
	})
}
