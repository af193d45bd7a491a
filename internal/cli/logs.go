package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/watchfire-io/dropdeck/internal/models"
	"github.com/watchfire-io/dropdeck/internal/poller"
	"github.com/watchfire-io/dropdeck/internal/store"
)

func newLogsCmd(opts *rootOptions) *cobra.Command {
	var (
		follow   bool
		lines    int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the engine's execution log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(opts, sessionOptions{logLines: lines})
			if err != nil {
				return err
			}
			defer sess.Close()

			w := cmd.OutOrStdout()
			if follow {
				if interval <= 0 {
					interval = sess.settings.LogsInterval()
				}
				followLogs(cmd.Context(), w, sess.store, interval)
				return nil
			}

			mark := sess.store.DiagnosticSeq()
			sess.store.RefreshLogs(cmd.Context())
			if err := remoteFailure(sess.store, mark, store.OpRefreshLogs); err != nil {
				return err
			}
			if !sess.store.LogsLoaded() {
				return errors.New("engine logs unknown")
			}
			logs := sess.store.Logs()
			if len(logs) == 0 {
				fmt.Fprintln(w, styleHint.Render("No logs yet."))
				return nil
			}
			printLogLines(w, logs, 1)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep polling and print new lines")
	cmd.Flags().IntVarP(&lines, "lines", "n", 0, "number of lines to request (0 = configured default)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll period with --follow (default from settings)")
	return cmd
}

// followLogs prints lines as the polled log window advances, until ctx is
// done.
func followLogs(ctx context.Context, w io.Writer, st *store.Store, interval time.Duration) {
	var (
		mu      sync.Mutex
		printed []models.LogEntry
		count   int
	)
	unsubscribe := st.Subscribe(func(ev store.Event) {
		if ev.Slice != store.SliceLogs {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		next := st.Logs()
		fresh := newLines(printed, next)
		printLogLines(w, fresh, count+1)
		count += len(fresh)
		printed = next
	})
	defer unsubscribe()

	stop := poller.New("logs", interval, st.RefreshLogs).Start(ctx)
	<-ctx.Done()
	stop()
}

// newLines returns the lines of next that follow the longest suffix of prev
// that is also a prefix of next. With no overlap the whole window is new.
func newLines(prev, next []models.LogEntry) []models.LogEntry {
	for k := min(len(prev), len(next)); k > 0; k-- {
		if equalEntries(prev[len(prev)-k:], next[:k]) {
			return next[k:]
		}
	}
	return next
}

func equalEntries(a, b []models.LogEntry) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func printLogLines(w io.Writer, entries []models.LogEntry, first int) {
	width := len(fmt.Sprint(first + len(entries) - 1))
	for i, entry := range entries {
		style := logLine
		if entry.IsError() {
			style = logError
		}
		fmt.Fprintf(w, "%s %s\n", logNumber.Render(fmt.Sprintf("%*d.", width, first+i)), style.Render(entry.Text()))
	}
}
