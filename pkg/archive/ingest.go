package archive

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Summary aggregates the per-record outcomes of one import batch.
type Summary struct {
	Inserted  int
	Skipped   int
	Malformed int
}

func (s Summary) add(other Summary) Summary {
	return Summary{
		Inserted:  s.Inserted + other.Inserted,
		Skipped:   s.Skipped + other.Skipped,
		Malformed: s.Malformed + other.Malformed,
	}
}

// ImportBatch ingests a sequence of records under one basename. Records
// are processed in input order and committed independently, so a re-run is
// idempotent: duplicate primary keys are ignored and counted as skipped.
// Malformed records (no primary key field, unusable field names) are
// counted and never abort the batch; only store-level failures do.
func (s *Store) ImportBatch(ctx context.Context, basename string, records []Record) (Summary, error) {
	startedAt := time.Now()
	summary := Summary{}

	for _, record := range records {
		outcome, err := s.importRecord(ctx, basename, record)
		summary = summary.add(outcome)
		if err != nil {
			s.recordImportRun(ctx, basename, startedAt, summary)
			return summary, err
		}
	}

	s.recordImportRun(ctx, basename, startedAt, summary)
	log.Debug().
		Str("basename", basename).
		Int("inserted", summary.Inserted).
		Int("skipped", summary.Skipped).
		Int("malformed", summary.Malformed).
		Msg("import batch done")
	return summary, nil
}

func (s *Store) importRecord(ctx context.Context, basename string, record Record) (Summary, error) {
	pkColumn, ok := primaryKeyField(record)
	if !ok {
		log.Debug().Str("basename", basename).Err(errors.Wrap(ErrMalformedRecord, "no id field")).Msg("skipping record")
		return Summary{Malformed: 1}, nil
	}
	columns := record.ColumnNames()
	for _, col := range columns {
		if !ValidIdentifier(col) {
			log.Debug().Str("basename", basename).Str("field", col).Err(errors.Wrapf(ErrMalformedRecord, "field %q unusable as column", col)).Msg("skipping record")
			return Summary{Malformed: 1}, nil
		}
	}

	fingerprint := FingerprintColumns(columns)
	table, err := s.ResolveTable(ctx, basename, fingerprint, columns, pkColumn)
	if err != nil {
		return Summary{}, err
	}

	values := make([]any, 0, len(columns))
	for _, col := range columns {
		flat, err := flattenValue(record[col])
		if err != nil {
			log.Debug().Str("basename", basename).Str("field", col).Err(err).Msg("record value not storable, skipping")
			return Summary{Malformed: 1}, nil
		}
		values = append(values, flat)
	}

	inserted, err := s.insertOrIgnore(ctx, table, columns, values)
	if err != nil {
		return Summary{}, err
	}
	if inserted {
		return Summary{Inserted: 1}, nil
	}
	return Summary{Skipped: 1}, nil
}

// primaryKeyField finds the record's id field, case-insensitively.
func primaryKeyField(record Record) (string, bool) {
	for name := range record {
		if strings.EqualFold(name, "id") {
			return name, true
		}
	}
	return "", false
}

// flattenValue maps a decoded JSON value onto a TEXT column. Nested
// structures are stored as canonical JSON so the read path can parse them
// back.
func flattenValue(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case bool:
		if x {
			return "true", nil
		}
		return "false", nil
	case json.Number:
		return x.String(), nil
	case float64, float32, int, int64:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, errors.Wrap(err, "marshal number")
		}
		return string(b), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(err, "marshal nested value")
		}
		return string(b), nil
	}
}

// recordImportRun writes the audit row for one batch. Audit failures are
// logged, not returned; the batch outcome stands either way.
func (s *Store) recordImportRun(ctx context.Context, basename string, startedAt time.Time, summary Summary) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_runs(id, basename, started_at_ms, finished_at_ms, inserted, skipped, malformed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.NewString(), basename,
		startedAt.UnixMilli(), time.Now().UnixMilli(),
		summary.Inserted, summary.Skipped, summary.Malformed,
	)
	if err != nil {
		log.Warn().Err(err).Str("basename", basename).Msg("failed to record import run")
	}
}
