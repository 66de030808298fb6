package ai

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	aiclient "bugsentinel/internal/app/client/ai"
	"bugsentinel/internal/app/client/output"
)

var refactorSrc source

var RefactorCmd = &cobra.Command{
	Use:   "refactor [id]",
	Short: "Suggest a cleaner version of the code",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}
		if err := requireAI(app); err != nil {
			return err
		}
		code, lang, err := refactorSrc.resolve(cmd, app, args)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*cmdutil.DefaultTimeout)
		defer cancel()

		res, err := app.AI.GetRefactoringSuggestions(ctx, code, lang)
		if err != nil {
			return err
		}
		return cmdutil.Print(cmd, res, func(w io.Writer, p output.Palette) error {
			return printRefactor(w, p, res)
		})
	},
}

func init() {
	refactorSrc.bind(RefactorCmd)
}

func printRefactor(w io.Writer, p output.Palette, r *aiclient.RefactorResult) error {
	fmt.Fprintln(w, p.Title.Sprint("Refactored code"))
	fmt.Fprintln(w, r.RefactoredCode)
	if r.Explanation != "" {
		fmt.Fprintf(w, "\n%s\n", r.Explanation)
	}
	for _, imp := range r.Improvements {
		fmt.Fprintf(w, "  %s %s\n", p.OK.Sprint("+"), imp)
	}
	return nil
}
