package snippet

import (
	"io"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/internal/app/client/output"
	domain "bugsentinel/internal/domain/snippet"
)

var updateFlags struct {
	title    string
	language string
	code     string
	file     string
}

var UpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a snippet's title, language or code",
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

		var req domain.UpdateRequest
		if cmd.Flags().Changed("title") {
			req.Title = &updateFlags.title
		}
		if cmd.Flags().Changed("language") {
			lang, err := parseLanguage(updateFlags.language)
			if err != nil {
				return err
			}
			req.Language = &lang
		}
		code, given, err := cmdutil.ReadCode(cmd, updateFlags.code, updateFlags.file)
		if err != nil {
			return err
		}
		if given {
			req.Code = &code
		}

		ctx, cancel := cmdutil.Timeout(cmd)
		defer cancel()

		v, err := cmdutil.Check(app.Service.UpdateSnippet(ctx, ref, req))
		if err != nil {
			return err
		}
		return cmdutil.Print(cmd, v, func(w io.Writer, p output.Palette) error {
			return output.SnippetDetail(w, p, v)
		})
	},
}

func init() {
	f := UpdateCmd.Flags()
	f.StringVarP(&updateFlags.title, "title", "t", "", "new title")
	f.StringVarP(&updateFlags.language, "language", "l", "", "new language")
	f.StringVarP(&updateFlags.code, "code", "c", "", "new code")
	f.StringVarP(&updateFlags.file, "file", "f", "", "read new code from file, - for stdin")
}
