package archive

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Store owns the single archive database file. All registry rows and all
// dynamically created physical tables live in it. Single writer only; the
// DSN carries a busy_timeout so a concurrently locked file surfaces as a
// retryable driver error instead of an immediate failure.
type Store struct {
	db *sql.DB
}

// DSNForFile derives the sqlite DSN for a database file path.
func DSNForFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("archive store: empty path")
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path), nil
}

// Open opens the store and ensures the registry tables exist.
func Open(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("archive store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, storageUnavailable(errors.Wrap(err, "archive store: open"))
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_registry (
			fingerprint TEXT NOT NULL,
			basename TEXT NOT NULL,
			version INTEGER NOT NULL,
			table_name TEXT NOT NULL,
			columns_json TEXT NOT NULL DEFAULT '[]',
			created_at_ms INTEGER NOT NULL,
			PRIMARY KEY (fingerprint, basename)
		);`,
		`CREATE INDEX IF NOT EXISTS schema_registry_by_basename
			ON schema_registry(basename, version);`,
		`CREATE TABLE IF NOT EXISTS import_runs (
			id TEXT PRIMARY KEY,
			basename TEXT NOT NULL,
			started_at_ms INTEGER NOT NULL,
			finished_at_ms INTEGER NOT NULL,
			inserted INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			malformed INTEGER NOT NULL
		);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return storageUnavailable(errors.Wrap(err, "archive store: migrate"))
		}
	}
	return nil
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name is usable as a table or column name.
func ValidIdentifier(name string) bool {
	return identifierRe.MatchString(name)
}

// quoteIdentifier double-quotes a validated identifier for use in DDL/DML.
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

// SanitizeTableName derives a valid table name from a file basename the way
// the export families are grouped: invalid characters become underscores,
// leading/trailing underscores are trimmed.
func SanitizeTableName(basename string) string {
	var b strings.Builder
	for _, r := range basename {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if name != "" && name[0] >= '0' && name[0] <= '9' {
		name = "t_" + name
	}
	return name
}

// TableColumns returns the column names of a physical table in declaration
// order, via pragma introspection.
func (s *Store) TableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, storageUnavailable(errors.Wrap(err, "archive store: table columns"))
	}
	defer func() { _ = rows.Close() }()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageUnavailable(err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storageUnavailable(err)
	}
	return out, nil
}

// TableNames lists user tables, registry bookkeeping included.
func (s *Store) TableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, storageUnavailable(errors.Wrap(err, "archive store: table names"))
	}
	defer func() { _ = rows.Close() }()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageUnavailable(err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storageUnavailable(err)
	}
	return out, nil
}

// TableCount returns the row count of a physical table.
func (s *Store) TableCount(ctx context.Context, table string) (int64, error) {
	if !ValidIdentifier(table) {
		return 0, errors.Errorf("archive store: invalid table name %q", table)
	}
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM `+quoteIdentifier(table)).Scan(&n)
	if err != nil {
		return 0, storageUnavailable(errors.Wrap(err, "archive store: table count"))
	}
	return n, nil
}

// TableRows reads every row of a physical table as column→value maps.
// Values come back as strings or nil; callers parse JSON columns themselves.
func (s *Store) TableRows(ctx context.Context, table string) ([]string, []map[string]any, error) {
	return s.queryRows(ctx, `SELECT * FROM `+quoteIdentifier(table), table)
}

// RowsByIDPrefix reads the rows of a physical table whose id column starts
// with prefix.
func (s *Store) RowsByIDPrefix(ctx context.Context, table, idColumn, prefix string) ([]string, []map[string]any, error) {
	if !ValidIdentifier(idColumn) {
		return nil, nil, errors.Errorf("archive store: invalid column name %q", idColumn)
	}
	query := fmt.Sprintf(`SELECT * FROM %s WHERE %s LIKE ? ESCAPE '\'`,
		quoteIdentifier(table), quoteIdentifier(idColumn))
	return s.queryRows(ctx, query, table, escapeLikePrefix(prefix)+"%")
}

func escapeLikePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix)
}

func (s *Store) queryRows(ctx context.Context, query, table string, args ...any) ([]string, []map[string]any, error) {
	if !ValidIdentifier(table) {
		return nil, nil, errors.Errorf("archive store: invalid table name %q", table)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, storageUnavailable(errors.Wrapf(err, "archive store: query %s", table))
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, storageUnavailable(err)
	}

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		scan := make([]any, len(columns))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, nil, storageUnavailable(err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, storageUnavailable(err)
	}
	return columns, out, nil
}

// createTable creates a physical table whose columns are all TEXT, with the
// primary-key column first. IF NOT EXISTS keeps resolve idempotent against
// a pre-existing table of the same name.
func createTable(ctx context.Context, tx *sql.Tx, name, pkColumn string, columns []string) error {
	if !ValidIdentifier(name) {
		return errors.Errorf("archive store: invalid table name %q", name)
	}
	parts := []string{quoteIdentifier(pkColumn) + " TEXT PRIMARY KEY"}
	for _, col := range columns {
		if col == pkColumn {
			continue
		}
		if !ValidIdentifier(col) {
			return errors.Errorf("archive store: invalid column name %q", col)
		}
		parts = append(parts, quoteIdentifier(col)+" TEXT")
	}
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s)`,
		quoteIdentifier(name), strings.Join(parts, ", "))
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return storageUnavailable(errors.Wrapf(err, "archive store: create table %s", name))
	}
	return nil
}

// addColumn widens a physical table with a nullable TEXT column.
func addColumn(ctx context.Context, tx *sql.Tx, table, column string) error {
	if !ValidIdentifier(table) || !ValidIdentifier(column) {
		return errors.Errorf("archive store: invalid identifier %q.%q", table, column)
	}
	stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s TEXT`,
		quoteIdentifier(table), quoteIdentifier(column))
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return storageUnavailable(errors.Wrapf(err, "archive store: add column %s.%s", table, column))
	}
	return nil
}

// insertOrIgnore inserts one row, ignoring primary-key conflicts. It
// reports whether the row was actually written.
func (s *Store) insertOrIgnore(ctx context.Context, table string, columns []string, values []any) (bool, error) {
	if !ValidIdentifier(table) {
		return false, errors.Errorf("archive store: invalid table name %q", table)
	}
	quoted := make([]string, len(columns))
	for i, col := range columns {
		if !ValidIdentifier(col) {
			return false, errors.Errorf("archive store: invalid column name %q", col)
		}
		quoted[i] = quoteIdentifier(col)
	}
	stmt := fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s) VALUES (%s)`,
		quoteIdentifier(table),
		strings.Join(quoted, ", "),
		strings.TrimSuffix(strings.Repeat("?,", len(columns)), ","))
	res, err := s.db.ExecContext(ctx, stmt, values...)
	if err != nil {
		return false, storageUnavailable(errors.Wrapf(err, "archive store: insert into %s", table))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageUnavailable(err)
	}
	return n > 0, nil
}
