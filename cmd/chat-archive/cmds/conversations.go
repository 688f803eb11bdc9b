package cmds

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chat-archive/pkg/archive"
	"github.com/go-go-golems/chat-archive/pkg/render"
)

const conversationsBasename = "conversations"

// conversationRows gathers conversation rows across every schema version of
// the conversations table. With prefixes given, only rows whose id starts
// with one of them are returned, deduplicated across overlapping prefixes.
func conversationRows(ctx context.Context, s *archive.Store, prefixes []string) ([]map[string]any, error) {
	tables, err := s.VersionedTables(ctx, conversationsBasename)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, errors.New("no conversations imported yet")
	}

	out := []map[string]any{}
	seen := map[string]struct{}{}
	for _, table := range tables {
		if len(prefixes) == 0 {
			_, rows, err := s.TableRows(ctx, table)
			if err != nil {
				return nil, err
			}
			out = append(out, rows...)
			continue
		}
		idColumn, found, err := idColumnOf(ctx, s, table)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		for _, prefix := range prefixes {
			_, rows, err := s.RowsByIDPrefix(ctx, table, idColumn, prefix)
			if err != nil {
				return nil, err
			}
			for _, row := range rows {
				id, _ := row[idColumn].(string)
				key := table + "\x00" + id
				if _, dup := seen[key]; dup && id != "" {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, row)
			}
		}
	}
	return out, nil
}

func idColumnOf(ctx context.Context, s *archive.Store, table string) (string, bool, error) {
	columns, err := s.TableColumns(ctx, table)
	if err != nil {
		return "", false, err
	}
	for _, col := range columns {
		if strings.EqualFold(col, "id") {
			return col, true, nil
		}
	}
	return "", false, nil
}

// transcriptsOf renders rows into transcripts. A corrupt conversation tree
// is reported and skipped; it never aborts the surrounding batch.
func transcriptsOf(rows []map[string]any) []render.Transcript {
	transcripts := make([]render.Transcript, 0, len(rows))
	for _, row := range rows {
		t, err := render.FromConversation(row)
		if err != nil {
			id, _ := row["id"].(string)
			log.Warn().Str("conversation_id", id).Err(err).Msg("skipping conversation")
			continue
		}
		transcripts = append(transcripts, t)
	}
	return transcripts
}
