package cmds

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/chat-archive/pkg/archive"
	"github.com/go-go-golems/chat-archive/pkg/importer"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>...",
		Short: "Import ChatGPT export files (json, html, zip, or directories)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			ctx := cmd.Context()
			total := archive.Summary{}
			for _, path := range args {
				batches, err := importer.LoadPath(path)
				if err != nil {
					return err
				}
				for _, batch := range batches {
					summary, err := s.ImportBatch(ctx, batch.Basename, batch.Records)
					total.Inserted += summary.Inserted
					total.Skipped += summary.Skipped
					total.Malformed += summary.Malformed
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: inserted %d, skipped %d, malformed %d\n",
						batch.Basename, summary.Inserted, summary.Skipped, summary.Malformed)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total: inserted %d, skipped %d, malformed %d\n",
				total.Inserted, total.Skipped, total.Malformed)
			return nil
		},
	}
}
