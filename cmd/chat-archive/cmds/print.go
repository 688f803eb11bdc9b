package cmds

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/chat-archive/pkg/render"
)

func newPrintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print [id-prefix...]",
		Short: "Print conversation transcripts in the configured style",
		RunE: func(cmd *cobra.Command, args []string) error {
			style, err := currentStyle()
			if err != nil {
				return err
			}
			s, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			rows, err := conversationRows(cmd.Context(), s, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, t := range transcriptsOf(rows) {
				if i > 0 {
					fmt.Fprintln(out)
				}
				if err := render.Render(out, t, style); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
