package cmds

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chat-archive/pkg/archive"
	"github.com/go-go-golems/chat-archive/pkg/render"
)

func newExportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export <output-dir> [id-prefix...]",
		Short: "Write one transcript file per conversation (json, txt, or html)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir := args[0]
			prefixes := args[1:]

			style, err := currentStyle()
			if err != nil {
				return err
			}
			s, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			rows, err := conversationRows(cmd.Context(), s, prefixes)
			if err != nil {
				return err
			}
			transcripts := transcriptsOf(rows)
			if len(transcripts) == 0 {
				return errors.New("no conversations matched")
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return errors.Wrapf(err, "create export dir %s", outDir)
			}
			for i, t := range transcripts {
				name := archive.SanitizeTableName(t.ID)
				if name == "" {
					name = fmt.Sprintf("conversation_%d", i+1)
				}
				path := filepath.Join(outDir, name+"."+format)
				if err := render.Export(path, format, []render.Transcript{t}, style); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d conversations to %s\n", len(transcripts), outDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "export format (json, txt, html)")
	return cmd
}
