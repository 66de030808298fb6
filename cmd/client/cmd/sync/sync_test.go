package sync

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugsentinel/internal/app/client/engine"
	"bugsentinel/internal/app/client/gateway"
)

func TestOutcome(t *testing.T) {
	pullErr := errors.Join(errors.New("pull snippets"), gateway.ErrTransient)

	tests := []struct {
		name    string
		res     *engine.Result
		passErr error
		wantErr error
	}{
		{name: "clean pass", res: &engine.Result{Uploaded: 2}},
		{name: "rejected entry", res: &engine.Result{Failed: 1}, wantErr: engine.ErrIncomplete},
		{name: "pull failed with nothing queued", res: &engine.Result{Error: pullErr.Error()}, passErr: pullErr, wantErr: gateway.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := outcome(tt.res, tt.passErr)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPrintResult(t *testing.T) {
	render := func(t *testing.T, res *engine.Result) string {
		t.Helper()
		var buf bytes.Buffer
		cmd := &cobra.Command{Use: "sync"}
		cmd.SetContext(context.Background())
		cmd.SetOut(&buf)
		require.NoError(t, printResult(cmd, res))
		return buf.String()
	}

	t.Run("in sync", func(t *testing.T) {
		out := render(t, &engine.Result{Uploaded: 1, Downloaded: 3})
		assert.Contains(t, out, "Everything is in sync.")
	})

	t.Run("failed pass is not reported as in sync", func(t *testing.T) {
		out := render(t, &engine.Result{Error: "pull snippets: remote temporarily unavailable"})
		assert.NotContains(t, out, "Everything is in sync.")
		assert.Contains(t, out, "Sync failed: pull snippets")
	})
}
