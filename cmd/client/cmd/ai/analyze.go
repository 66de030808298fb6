package ai

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	aiclient "bugsentinel/internal/app/client/ai"
	"bugsentinel/internal/app/client/output"
	domain "bugsentinel/internal/domain/snippet"
)

var (
	analyzeSrc    source
	analyzePrompt string
	analyzeSave   bool
)

// AnalyzeCmd lists bugs and code smells. For a saved snippet --save
// stores the findings with it.
var AnalyzeCmd = &cobra.Command{
	Use:   "analyze [id]",
	Short: "Find bugs and issues",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}
		if err := requireAI(app); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*cmdutil.DefaultTimeout)
		defer cancel()

		var issues []domain.Issue
		if len(args) == 1 {
			ref, err := domain.ParseRef(args[0])
			if err != nil {
				return err
			}
			issues, err = cmdutil.Check(app.Service.AnalyzeSnippet(ctx, ref, analyzePrompt, analyzeSave))
			if err != nil {
				return err
			}
		} else {
			code, lang, err := analyzeSrc.resolve(cmd, app, nil)
			if err != nil {
				return err
			}
			issues, err = cmdutil.Check(app.Service.AnalyzeCode(ctx, aiclient.AnalyzeRequest{
				Code:     code,
				Language: lang,
				Prompt:   analyzePrompt,
			}))
			if err != nil {
				return err
			}
		}

		return cmdutil.Print(cmd, issues, func(w io.Writer, p output.Palette) error {
			return output.Issues(w, p, issues)
		})
	},
}

func init() {
	analyzeSrc.bind(AnalyzeCmd)
	AnalyzeCmd.Flags().StringVarP(&analyzePrompt, "prompt", "p", "", "extra instructions for the analysis")
	AnalyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "store the findings with the snippet")
}
