package cmds

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/chat-archive/pkg/archive"
	"github.com/go-go-golems/chat-archive/pkg/importer"
)

// inspect is a dry run: it decodes export files and reports their shapes
// without opening the store.
func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <path>...",
		Short: "Report record shapes of export files without importing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				batches, err := importer.LoadPath(path)
				if err != nil {
					return err
				}
				for _, batch := range batches {
					fmt.Fprintf(out, "%s: %d records\n", batch.Basename, len(batch.Records))

					shapes := map[string][]string{}
					counts := map[string]int{}
					order := []string{}
					for _, record := range batch.Records {
						columns := record.ColumnNames()
						fp := archive.FingerprintColumns(columns)
						if _, ok := shapes[fp]; !ok {
							shapes[fp] = columns
							order = append(order, fp)
						}
						counts[fp]++
					}
					for _, fp := range order {
						fmt.Fprintf(out, "  %s  x%d  [%s]\n",
							fp[:12], counts[fp], strings.Join(shapes[fp], ", "))
					}
				}
			}
			return nil
		},
	}
}
