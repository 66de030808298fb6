package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/internal/app/client"
	"bugsentinel/internal/app/client/engine"
	"bugsentinel/internal/app/client/local"
	"bugsentinel/internal/app/client/output"
	"bugsentinel/internal/app/client/state"
)

const (
	reprobeTimeout = 10 * time.Second
	pollInterval   = 100 * time.Millisecond
)

var (
	forceSync  bool
	syncStatus bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload pending changes and refresh from the server",
	Long: `sync replays changes saved while offline and downloads the server's
snippets. With --force an offline client re-checks the connection first.`,
	Annotations: map[string]string{cmdutil.SkipCatchUp: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}
		if syncStatus {
			return printStatus(cmd, app)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*cmdutil.DefaultTimeout)
		defer cancel()

		res, err := run(ctx, app)
		if res != nil {
			if perr := printResult(cmd, res); perr != nil {
				return perr
			}
		}
		if errors.Is(err, engine.ErrOffline) {
			return fmt.Errorf("%w: server %s is unreachable, try --force later", err, app.Config.ServerAddress)
		}
		return err
	},
}

func init() {
	SyncCmd.Flags().BoolVarP(&forceSync, "force", "f", false, "re-check the connection when offline")
	SyncCmd.Flags().BoolVarP(&syncStatus, "status", "s", false, "show sync status instead of syncing")
}

func run(ctx context.Context, app *client.App) (*engine.Result, error) {
	if app.Engine.IsOnline() || !forceSync {
		return app.Engine.SyncNow(ctx)
	}

	if !engine.Probe(ctx, app.Gateway, reprobeTimeout) {
		return nil, engine.ErrOffline
	}
	// Coming online starts a pass on its own; wait for it to settle.
	app.Engine.SetOnline(true)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for app.Engine.Status().SyncInProgress {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	res := app.Engine.LastResult()
	if res == nil {
		// Nothing ran: the pass was refused, typically for lack of a session.
		return app.Engine.SyncNow(ctx)
	}
	return res, outcome(res, app.Engine.LastErr())
}

// outcome turns a finished background pass into the command's error.
func outcome(res *engine.Result, passErr error) error {
	if passErr != nil {
		return passErr
	}
	if res.Failed > 0 {
		return engine.ErrIncomplete
	}
	return nil
}

func printResult(cmd *cobra.Command, res *engine.Result) error {
	return cmdutil.Print(cmd, res, func(w io.Writer, p output.Palette) error {
		fmt.Fprintf(w, "Uploaded %d, downloaded %d in %s\n", res.Uploaded, res.Downloaded, res.Duration.Round(time.Millisecond))
		if res.Orphaned > 0 {
			fmt.Fprintf(w, "%s\n", p.Muted.Sprintf("Dropped %d changes for snippets that no longer exist", res.Orphaned))
		}
		if res.OK() {
			_, err := fmt.Fprintln(w, p.OK.Sprint("Everything is in sync."))
			return err
		}
		if res.Error != "" {
			fmt.Fprintln(w, p.Warn.Sprintf("Sync failed: %s", res.Error))
		}
		if res.Failed == 0 {
			return nil
		}
		fmt.Fprintln(w, p.Warn.Sprintf("%d changes are still pending:", res.Failed))
		for _, e := range res.Errors {
			kind := "rejected"
			if e.Transient {
				kind = "will retry"
			}
			fmt.Fprintf(w, "  %-16s %-26s %s (%s)\n", e.Kind, e.LocalID, e.Error, kind)
		}
		return nil
	})
}

type statusView struct {
	Connection state.Connection `json:"connection" yaml:"connection"`
	RetryCount int              `json:"retry_count" yaml:"retry_count"`
	History    local.SyncMeta   `json:"history" yaml:"history"`
}

func printStatus(cmd *cobra.Command, app *client.App) error {
	v := statusView{
		Connection: app.Engine.Status(),
		RetryCount: app.Engine.RetryCount(),
		History:    app.Store.SyncMeta(),
	}
	return cmdutil.Print(cmd, v, func(w io.Writer, p output.Palette) error {
		online := p.Error.Sprint("offline")
		if v.Connection.IsOnline {
			online = p.OK.Sprint("online")
		}
		fmt.Fprintf(w, "Connection:  %s\n", online)
		fmt.Fprintf(w, "Pending:     %d\n", v.Connection.PendingChanges)
		last := "never"
		if v.History.LastSync != nil {
			last = v.History.LastSync.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "Last sync:   %s\n", last)
		fmt.Fprintf(w, "Total syncs: %d (uploaded %d, downloaded %d, failed %d)\n",
			v.History.TotalSyncs, v.History.Uploaded, v.History.Downloaded, v.History.Failed)
		if v.History.LastError != "" {
			fmt.Fprintf(w, "Last error:  %s\n", p.Warn.Sprint(v.History.LastError))
		}
		return nil
	})
}
