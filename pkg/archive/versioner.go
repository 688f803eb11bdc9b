package archive

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DecisionKind tags the outcome of comparing an incoming record shape with
// the registered shapes of its basename.
type DecisionKind int

const (
	// DecisionReuse: the exact fingerprint is already registered.
	DecisionReuse DecisionKind = iota
	// DecisionWiden: the new shape is a strict superset of a registered
	// one; the existing table gains nullable columns.
	DecisionWiden
	// DecisionNewVersion: the shapes are incompatible; a fresh versioned
	// table is allocated.
	DecisionNewVersion
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionReuse:
		return "reuse"
	case DecisionWiden:
		return "widen"
	case DecisionNewVersion:
		return "new-version"
	}
	return fmt.Sprintf("DecisionKind(%d)", int(k))
}

// Decision is the pure outcome of shape comparison. Store mutation happens
// separately in ResolveTable.
type Decision struct {
	Kind DecisionKind

	// Entry is the matched registry entry for Reuse and Widen.
	Entry *SchemaEntry
	// AddColumns lists the columns a widening adds, sorted.
	AddColumns []string
	// Version is the allocated version number for NewVersion.
	Version int
}

// PhysicalTableName maps (basename, version) to the table actually used:
// the bare basename for version 1, basename_v{N} afterwards.
func PhysicalTableName(basename string, version int) string {
	if version <= 1 {
		return basename
	}
	return fmt.Sprintf("%s_v%d", basename, version)
}

// Decide compares an incoming shape against the registered entries of its
// basename. entries must be ordered by ascending version (AllVersions
// order). Newer versions are preferred as widening targets; anything that
// is not a strict superset of some registered shape gets a new version.
func Decide(entries []SchemaEntry, fingerprint string, columns []string) Decision {
	for i := range entries {
		if entries[i].Fingerprint == fingerprint {
			return Decision{Kind: DecisionReuse, Entry: &entries[i]}
		}
	}

	maxVersion := 0
	for _, entry := range entries {
		if entry.Version > maxVersion {
			maxVersion = entry.Version
		}
	}

	incoming := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		incoming[col] = struct{}{}
	}
	for i := len(entries) - 1; i >= 0; i-- {
		entry := &entries[i]
		if added, ok := strictSupersetOf(incoming, entry.Columns); ok {
			return Decision{Kind: DecisionWiden, Entry: entry, AddColumns: added}
		}
	}

	return Decision{Kind: DecisionNewVersion, Version: maxVersion + 1}
}

// strictSupersetOf reports whether incoming strictly contains existing, and
// returns the extra columns sorted.
func strictSupersetOf(incoming map[string]struct{}, existing []string) ([]string, bool) {
	if len(incoming) <= len(existing) {
		return nil, false
	}
	seen := make(map[string]struct{}, len(existing))
	for _, col := range existing {
		if _, ok := incoming[col]; !ok {
			return nil, false
		}
		seen[col] = struct{}{}
	}
	added := make([]string, 0, len(incoming)-len(existing))
	for col := range incoming {
		if _, ok := seen[col]; !ok {
			added = append(added, col)
		}
	}
	sort.Strings(added)
	return added, true
}

// ResolveTable maps a record shape to its physical table, creating or
// evolving storage as needed. Registry writes and table DDL commit in one
// transaction, so registry and tables never diverge. Calling it twice with
// identical inputs returns the same table without further mutation.
func (s *Store) ResolveTable(ctx context.Context, basename, fingerprint string, columns []string, pkColumn string) (string, error) {
	if entry, err := s.LookupSchema(ctx, fingerprint, basename); err == nil {
		return entry.TableName, nil
	} else if !errors.Is(err, ErrSchemaNotFound) {
		return "", err
	}

	entries, err := s.AllVersions(ctx, basename)
	if err != nil {
		return "", err
	}
	decision := Decide(entries, fingerprint, columns)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", storageUnavailable(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var tableName string
	switch decision.Kind {
	case DecisionReuse:
		tableName = decision.Entry.TableName

	case DecisionWiden:
		tableName = decision.Entry.TableName
		for _, col := range decision.AddColumns {
			if err := addColumn(ctx, tx, tableName, col); err != nil {
				return "", err
			}
		}
		widened := make([]string, len(columns))
		copy(widened, columns)
		sort.Strings(widened)
		if err := updateSchemaColumns(ctx, tx, decision.Entry.Fingerprint, basename, widened); err != nil {
			return "", err
		}
		// The new fingerprint resolves to the same table; the superseded
		// row stays so both reverse lookups keep working.
		if err := registerSchema(ctx, tx, SchemaEntry{
			Fingerprint: fingerprint,
			Basename:    basename,
			Version:     decision.Entry.Version,
			TableName:   tableName,
			Columns:     widened,
		}); err != nil {
			return "", err
		}
		log.Info().
			Str("basename", basename).
			Str("table", tableName).
			Strs("added_columns", decision.AddColumns).
			Msg("widened table for superset schema")

	case DecisionNewVersion:
		tableName = PhysicalTableName(basename, decision.Version)
		sorted := make([]string, len(columns))
		copy(sorted, columns)
		sort.Strings(sorted)
		if err := createTable(ctx, tx, tableName, pkColumn, sorted); err != nil {
			return "", err
		}
		if err := registerSchema(ctx, tx, SchemaEntry{
			Fingerprint: fingerprint,
			Basename:    basename,
			Version:     decision.Version,
			TableName:   tableName,
			Columns:     sorted,
		}); err != nil {
			return "", err
		}
		if decision.Version > 1 {
			log.Info().
				Str("basename", basename).
				Str("table", tableName).
				Int("version", decision.Version).
				Msg("created new table version for incompatible schema")
		}
	}

	if err := tx.Commit(); err != nil {
		return "", storageUnavailable(err)
	}
	committed = true
	return tableName, nil
}
