// Package cli implements the dropdeck CLI commands.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/watchfire-io/dropdeck/internal/tui"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	server  string
	verbose bool
}

// NewRootCmd builds the dropdeck command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "dropdeck",
		Short: "Operator console for the file-drop automation engine",
		Long: `Dropdeck watches and steers a remote file-drop automation engine.

Without a subcommand it opens the interactive console when attached to a
terminal, and prints the engine status otherwise.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.server, "server", "s", "",
		"engine base URL (default from settings or $DROPDECK_SERVER)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"write debug logs to stderr")

	// Add subcommands (alphabetical)
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newLogsCmd(opts))
	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newSettingsCmd())
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newUploadCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func runRoot(cmd *cobra.Command, opts *rootOptions) error {
	if !isInteractive() {
		return runStatus(cmd, opts)
	}

	sess, err := openSession(opts, sessionOptions{interactive: true})
	if err != nil {
		return err
	}
	defer sess.Close()

	return tui.Run(tui.Options{
		Store:          sess.store,
		Dispatcher:     sess.dispatcher,
		ServerURL:      sess.serverURL,
		StatusInterval: sess.settings.StatusInterval(),
		LogsInterval:   sess.settings.LogsInterval(),
	})
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
