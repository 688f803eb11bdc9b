package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// SchemaEntry is one persistent registry row: a structural fingerprint
// bound to the physical table that stores records of that shape.
type SchemaEntry struct {
	Fingerprint string
	Basename    string
	Version     int
	TableName   string
	Columns     []string
	CreatedAtMs int64
}

// LookupSchema resolves a fingerprint for a basename. Unseen fingerprints
// return ErrSchemaNotFound.
func (s *Store) LookupSchema(ctx context.Context, fingerprint, basename string) (*SchemaEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, basename, version, table_name, columns_json, created_at_ms
		FROM schema_registry
		WHERE fingerprint = ? AND basename = ?
	`, fingerprint, basename)
	entry, err := scanSchemaEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrSchemaNotFound, "fingerprint %s basename %s", fingerprint, basename)
	}
	if err != nil {
		return nil, storageUnavailable(errors.Wrap(err, "schema registry: lookup"))
	}
	return entry, nil
}

// AllVersions returns every registry entry for a basename, ordered by
// version then fingerprint. Used when a query must search across the
// historical versions of one logical data family.
func (s *Store) AllVersions(ctx context.Context, basename string) ([]SchemaEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fingerprint, basename, version, table_name, columns_json, created_at_ms
		FROM schema_registry
		WHERE basename = ?
		ORDER BY version ASC, fingerprint ASC
	`, basename)
	if err != nil {
		return nil, storageUnavailable(errors.Wrap(err, "schema registry: all versions"))
	}
	defer func() { _ = rows.Close() }()

	out := []SchemaEntry{}
	for rows.Next() {
		entry, err := scanSchemaEntry(rows.Scan)
		if err != nil {
			return nil, storageUnavailable(errors.Wrap(err, "schema registry: scan"))
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storageUnavailable(err)
	}
	return out, nil
}

// VersionedTables returns the distinct physical tables registered for a
// basename, ordered by version.
func (s *Store) VersionedTables(ctx context.Context, basename string) ([]string, error) {
	entries, err := s.AllVersions(ctx, basename)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	tables := []string{}
	for _, entry := range entries {
		if _, ok := seen[entry.TableName]; ok {
			continue
		}
		seen[entry.TableName] = struct{}{}
		tables = append(tables, entry.TableName)
	}
	return tables, nil
}

// RegistryEntries returns every registry row, ordered by basename then
// version. Used for the archive overview.
func (s *Store) RegistryEntries(ctx context.Context) ([]SchemaEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fingerprint, basename, version, table_name, columns_json, created_at_ms
		FROM schema_registry
		ORDER BY basename ASC, version ASC, fingerprint ASC
	`)
	if err != nil {
		return nil, storageUnavailable(errors.Wrap(err, "schema registry: list"))
	}
	defer func() { _ = rows.Close() }()

	out := []SchemaEntry{}
	for rows.Next() {
		entry, err := scanSchemaEntry(rows.Scan)
		if err != nil {
			return nil, storageUnavailable(errors.Wrap(err, "schema registry: scan"))
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storageUnavailable(err)
	}
	return out, nil
}

func scanSchemaEntry(scan func(dest ...any) error) (*SchemaEntry, error) {
	var (
		entry       SchemaEntry
		columnsJSON string
	)
	if err := scan(
		&entry.Fingerprint,
		&entry.Basename,
		&entry.Version,
		&entry.TableName,
		&columnsJSON,
		&entry.CreatedAtMs,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(columnsJSON), &entry.Columns); err != nil {
		return nil, errors.Wrap(err, "parse columns json")
	}
	return &entry, nil
}

// registerSchema inserts a registry row inside the caller's transaction so
// that registration and physical-table creation commit together.
func registerSchema(ctx context.Context, tx *sql.Tx, entry SchemaEntry) error {
	columnsJSON, err := json.Marshal(entry.Columns)
	if err != nil {
		return errors.Wrap(err, "schema registry: marshal columns")
	}
	if entry.CreatedAtMs <= 0 {
		entry.CreatedAtMs = time.Now().UnixMilli()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO schema_registry(
			fingerprint, basename, version, table_name, columns_json, created_at_ms
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		entry.Fingerprint, entry.Basename, entry.Version, entry.TableName,
		string(columnsJSON), entry.CreatedAtMs,
	); err != nil {
		return storageUnavailable(errors.Wrap(err, "schema registry: register"))
	}
	return nil
}

// updateSchemaColumns rewrites the recorded column list of an existing row
// after an in-place widening.
func updateSchemaColumns(ctx context.Context, tx *sql.Tx, fingerprint, basename string, columns []string) error {
	columnsJSON, err := json.Marshal(columns)
	if err != nil {
		return errors.Wrap(err, "schema registry: marshal columns")
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE schema_registry SET columns_json = ?
		WHERE fingerprint = ? AND basename = ?
	`, string(columnsJSON), fingerprint, basename); err != nil {
		return storageUnavailable(errors.Wrap(err, "schema registry: update columns"))
	}
	return nil
}
