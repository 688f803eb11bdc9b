package cmds

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show archive overview: tables, row counts, schema versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n\n", cfg.DBPath)

			tables, err := s.TableNames(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Tables:")
			for _, table := range tables {
				count, err := s.TableCount(ctx, table)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %-32s %8d rows\n", table, count)
			}

			entries, err := s.RegistryEntries(ctx)
			if err != nil {
				return err
			}
			if len(entries) > 0 {
				fmt.Fprintln(out, "\nSchema versions:")
			}
			for _, entry := range entries {
				fmt.Fprintf(out, "  %s v%d -> %s (%d columns)\n",
					entry.Basename, entry.Version, entry.TableName, len(entry.Columns))
			}
			return nil
		},
	}
}
