package snippet

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/internal/app/client/output"
	domain "bugsentinel/internal/domain/snippet"
)

var listFlags struct {
	since     string
	language  string
	localOnly bool
}

var ListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List snippets",
	Example: `  bugsentinel snippet list --since yesterday
  bugsentinel snippet list -l python --local`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		since, err := parseSince(listFlags.since, time.Now())
		if err != nil {
			return err
		}
		var lang domain.Language
		if listFlags.language != "" {
			if lang, err = parseLanguage(listFlags.language); err != nil {
				return err
			}
		}

		ctx, cancel := cmdutil.Timeout(cmd)
		defer cancel()

		loading := app.Service.LoadSnippets(ctx)
		res := loading.Local
		if !listFlags.localOnly {
			res = loading.Wait(ctx)
		}
		list, err := cmdutil.Check(res)
		if err != nil && list == nil {
			return err
		}

		list = filter(list, since, lang)
		return cmdutil.Print(cmd, list, func(w io.Writer, p output.Palette) error {
			return output.SnippetTable(w, p, list)
		})
	},
}

func init() {
	f := ListCmd.Flags()
	f.StringVar(&listFlags.since, "since", "", `only snippets changed since, e.g. "2024-05-01", "48h", "last monday"`)
	f.StringVarP(&listFlags.language, "language", "l", "", "only snippets in this language")
	f.BoolVar(&listFlags.localOnly, "local", false, "skip refreshing from the server")
}
