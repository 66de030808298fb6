package snippet

import (
	"io"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/internal/app/client/output"
	domain "bugsentinel/internal/domain/snippet"
)

var GetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one snippet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}
		ref, err := domain.ParseRef(args[0])
		if err != nil {
			return err
		}

		v, err := cmdutil.Check(app.Service.GetSnippet(cmd.Context(), ref))
		if err != nil {
			return err
		}
		return cmdutil.Print(cmd, v, func(w io.Writer, p output.Palette) error {
			return output.SnippetDetail(w, p, v)
		})
	},
}
