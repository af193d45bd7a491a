package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/watchfire-io/dropdeck/internal/buildinfo"
)

func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Show version information",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(w, buildinfo.String())
				return
			}
			fmt.Fprintf(w, "%s %s\n", styleBrand.Render("Dropdeck"), styleVersion.Render(buildinfo.Version))
			fmt.Fprintf(w, "  Commit: %s\n", buildinfo.CommitHash)
			fmt.Fprintf(w, "  Built: %s\n", buildinfo.BuildDate)
			fmt.Fprintf(w, "  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(w, "  Go: %s\n", runtime.Version())
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print a single line")
	return cmd
}
