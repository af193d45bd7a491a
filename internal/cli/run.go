package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var tail int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Trigger an on-demand run",
		Long: `Ask the engine to process the monitored folder now.

After the run is accepted the latest log lines are printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts, tail)
		},
	}
	cmd.Flags().IntVarP(&tail, "tail", "t", 5, "log lines to print afterwards (0 = none)")
	return cmd
}

func runRun(cmd *cobra.Command, opts *rootOptions, tail int) error {
	sess, err := openSession(opts, sessionOptions{})
	if err != nil {
		return err
	}
	defer sess.Close()

	out, err := sess.dispatcher.RunNow(cmd.Context())
	if err != nil {
		return err
	}
	if err := outcomeError(out); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, styleSuccess.Render("Run triggered."))

	if tail <= 0 {
		return nil
	}
	logs := sess.store.Logs()
	start := len(logs) - tail
	if start < 0 {
		start = 0
	}
	if start < len(logs) {
		fmt.Fprintln(w)
		printLogLines(w, logs[start:], start+1)
	}
	return nil
}
