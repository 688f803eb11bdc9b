package cmds

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/chat-archive/pkg/render"
)

func newShowCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "show [table...]",
		Short: "Dump tables: column list plus rows truncated to the terminal width",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			width := render.TerminalWidth(80)

			tables := args
			if len(tables) == 0 {
				tables, err = s.TableNames(ctx)
				if err != nil {
					return err
				}
			}

			for i, table := range tables {
				if i > 0 {
					fmt.Fprintln(out)
				}
				columns, rows, err := s.TableRows(ctx, table)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s (%s)\n", table, strings.Join(columns, ", "))
				if limit > 0 && len(rows) > limit {
					rows = rows[:limit]
				}
				for _, row := range rows {
					line, err := json.Marshal(row)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "  %s\n", render.Truncate(string(line), width-2))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum rows shown per table (0 = all)")
	return cmd
}
