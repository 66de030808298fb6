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

var (
	suggestSrc  source
	suggestHint string
)

var SuggestCmd = &cobra.Command{
	Use:   "suggest [id]",
	Short: "Suggest completions and improvements",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}
		if err := requireAI(app); err != nil {
			return err
		}
		code, lang, err := suggestSrc.resolve(cmd, app, args)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*cmdutil.DefaultTimeout)
		defer cancel()

		list, err := app.AI.GetCodeSuggestions(ctx, code, lang, suggestHint)
		if err != nil {
			return err
		}
		return cmdutil.Print(cmd, list, func(w io.Writer, p output.Palette) error {
			return printSuggestions(w, p, list)
		})
	},
}

func init() {
	suggestSrc.bind(SuggestCmd)
	SuggestCmd.Flags().StringVar(&suggestHint, "hint", "", "what you are trying to do")
}

func printSuggestions(w io.Writer, p output.Palette, list []aiclient.Suggestion) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, p.Muted.Sprint("No suggestions."))
		return err
	}
	for i, s := range list {
		fmt.Fprintf(w, "%s %s\n", p.Title.Sprintf("%d.", i+1), s.Suggestion)
		if s.Explanation != "" {
			fmt.Fprintf(w, "   %s\n", p.Muted.Sprint(s.Explanation))
		}
		if s.Code != "" {
			fmt.Fprintf(w, "%s\n", s.Code)
		}
		fmt.Fprintln(w)
	}
	return nil
}
