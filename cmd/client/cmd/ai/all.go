package ai

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/internal/app/client/output"
)

var allSrc source

// AllCmd runs analysis, refactoring and suggestions in one request.
var AllCmd = &cobra.Command{
	Use:   "all [id]",
	Short: "Run every analysis at once",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}
		if err := requireAI(app); err != nil {
			return err
		}
		code, lang, err := allSrc.resolve(cmd, app, args)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*cmdutil.DefaultTimeout)
		defer cancel()

		report, err := app.AI.AnalyzeAll(ctx, code, lang)
		if err != nil {
			return err
		}
		return cmdutil.Print(cmd, report, func(w io.Writer, p output.Palette) error {
			fmt.Fprintln(w, p.Title.Sprint("Issues"))
			if err := output.Issues(w, p, report.Issues); err != nil {
				return err
			}
			if report.Refactor != nil {
				fmt.Fprintln(w)
				if err := printRefactor(w, p, report.Refactor); err != nil {
					return err
				}
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, p.Title.Sprint("Suggestions"))
			return printSuggestions(w, p, report.Suggestions)
		})
	},
}

func init() {
	allSrc.bind(AllCmd)
}
