package snippet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/internal/app/client/watch"
	domain "bugsentinel/internal/domain/snippet"
)

var watchDebounce time.Duration

// WatchCmd keeps a snippet in step with a file on disk. Each save becomes
// an update; background sync uploads them when the server is reachable.
var WatchCmd = &cobra.Command{
	Use:   "watch <id> <file>",
	Short: "Update a snippet whenever a file changes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}
		ref, err := domain.ParseRef(args[0])
		if err != nil {
			return err
		}
		path := args[1]
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		if _, err := cmdutil.Check(app.Service.SetCurrentSnippet(cmd.Context(), ref)); err != nil {
			return err
		}

		app.StartBackground()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Watching %s for snippet %s, Ctrl+C to stop\n", path, ref)

		w, err := watch.New(path, watchDebounce, app.Log)
		if err != nil {
			return err
		}
		err = w.Run(cmd.Context(), func(code string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), cmdutil.DefaultTimeout)
			defer cancel()

			v, err := cmdutil.Check(app.Service.UpdateSnippet(ctx, ref, domain.UpdateRequest{Code: &code}))
			if err != nil {
				fmt.Fprintf(out, "%s  update failed: %v\n", time.Now().Format("15:04:05"), err)
				return nil
			}
			// An offline update of a remote snippet continues under its local copy.
			ref = v.Ref
			fmt.Fprintf(out, "%s  saved (%s)\n", time.Now().Format("15:04:05"), v.SyncStatus)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	WatchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "wait this long after the last write")
}
