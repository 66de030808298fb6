package snippet

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/internal/app/client/output"
	domain "bugsentinel/internal/domain/snippet"
)

var createFlags struct {
	title    string
	language string
	code     string
	file     string
}

var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Save a new snippet",
	Example: `  bugsentinel snippet create --language go --file main.go
  cat query.sql | bugsentinel snippet create -l sql -f - -t "Report query"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		lang, err := parseLanguage(createFlags.language)
		if err != nil {
			return err
		}
		code, given, err := cmdutil.ReadCode(cmd, createFlags.code, createFlags.file)
		if err != nil {
			return err
		}
		if !given {
			return errors.New("provide the snippet with --code or --file")
		}

		ctx, cancel := cmdutil.Timeout(cmd)
		defer cancel()

		v, err := cmdutil.Check(app.Service.CreateSnippet(ctx, domain.CreateRequest{
			Title:    createFlags.title,
			Language: lang,
			Code:     code,
		}))
		if err != nil {
			return err
		}

		return cmdutil.Print(cmd, v, func(w io.Writer, p output.Palette) error {
			return output.SnippetDetail(w, p, v)
		})
	},
}

func init() {
	f := CreateCmd.Flags()
	f.StringVarP(&createFlags.title, "title", "t", "", "snippet title (defaults to language and date)")
	f.StringVarP(&createFlags.language, "language", "l", "", "snippet language")
	f.StringVarP(&createFlags.code, "code", "c", "", "snippet code")
	f.StringVarP(&createFlags.file, "file", "f", "", "read code from file, - for stdin")
	_ = CreateCmd.MarkFlagRequired("language")
}
