package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/watchfire-io/dropdeck/internal/models"
	"github.com/watchfire-io/dropdeck/internal/store"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show engine status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, opts)
		},
	}
}

func runStatus(cmd *cobra.Command, opts *rootOptions) error {
	sess, err := openSession(opts, sessionOptions{})
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()
	mark := sess.store.DiagnosticSeq()
	sess.store.RefreshStatus(ctx)
	sess.store.RefreshConfig(ctx)

	snap := sess.store.Snapshot()
	if snap.Status == nil {
		if err := remoteFailure(sess.store, mark, store.OpRefreshStatus); err != nil {
			return err
		}
		return errors.New("engine status unknown")
	}

	printStatus(cmd.OutOrStdout(), sess.serverURL, snap)
	if snap.Config == nil {
		if err := remoteFailure(sess.store, mark, store.OpRefreshConfig); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), styleWarning.Render("Warning:")+" "+err.Error())
		}
	}
	return nil
}

func printStatus(w io.Writer, serverURL string, snap store.Snapshot) {
	engine := badgeStopped.Render("Stopped")
	if snap.Status.Running {
		engine = badgeRunning.Render("Running")
	}

	rows := [][2]string{
		{"Engine", engine},
		{"Next run", styleValue.Render(snap.Status.NextRunLabel())},
	}
	if cfg := snap.Config; cfg != nil {
		rows = append(rows,
			[2]string{"Folder", styleValue.Render(formatFolder(cfg.MonitorFolder))},
			[2]string{"Schedule", styleValue.Render(formatSchedule(cfg.Schedule))},
		)
	}
	rows = append(rows, [2]string{"Server", styleHint.Render(serverURL)})

	for _, row := range rows {
		fmt.Fprintf(w, "%s %s\n", styleLabel.Render(fmt.Sprintf("%-9s", row[0])), row[1])
	}
}

func formatFolder(folder string) string {
	if strings.TrimSpace(folder) == "" {
		return "not configured"
	}
	return folder
}

func formatSchedule(s models.ScheduleConfig) string {
	switch {
	case !s.Enabled:
		return "disabled"
	case s.Frequency == models.FrequencyHourly:
		return fmt.Sprintf("hourly (from %s)", s.Time)
	default:
		return fmt.Sprintf("daily at %s", s.Time)
	}
}
