package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/watchfire-io/dropdeck/internal/dispatch"
	"github.com/watchfire-io/dropdeck/internal/watcher"
)

func newUploadCmd(opts *rootOptions) *cobra.Command {
	var (
		watchDir string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "upload [file...]",
		Short: "Upload files into the monitored folder",
		Long: `Upload local files into the engine's monitored folder.

With --watch, keep running and upload every file that settles in DIR.
Hidden files and partial downloads (.tmp, .part, .crdownload, .swp) are
skipped. Press Ctrl+C to stop watching.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watchDir == "" && len(args) == 0 {
				return errors.New("nothing to upload: pass files or --watch DIR")
			}

			sess, err := openSession(opts, sessionOptions{})
			if err != nil {
				return err
			}
			defer sess.Close()

			w := cmd.OutOrStdout()
			if len(args) > 0 {
				if err := uploadFiles(cmd.Context(), w, sess.dispatcher, args); err != nil {
					return err
				}
			}
			if watchDir != "" {
				return watchAndUpload(cmd.Context(), w, sess.dispatcher, watchDir, debounce)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&watchDir, "watch", "w", "", "watch DIR and upload files as they appear")
	cmd.Flags().DurationVar(&debounce, "debounce", watcher.DefaultDebounce, "quiet period before a watched file is uploaded")
	return cmd
}

func uploadFiles(ctx context.Context, w io.Writer, d *dispatch.Dispatcher, paths []string) error {
	failed := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := d.UploadPath(ctx, path)
		if err != nil {
			failed++
		}
		reportUpload(w, watcher.Result{Path: path, Err: err})
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(paths))
	}
	return nil
}

func watchAndUpload(ctx context.Context, w io.Writer, d *dispatch.Dispatcher, dir string, debounce time.Duration) error {
	wt, err := watcher.New(dir, watcher.WithDebounce(debounce))
	if err != nil {
		return err
	}
	if err := wt.Start(); err != nil {
		return err
	}
	defer wt.Stop()

	fmt.Fprintf(w, "Watching %s %s\n", wt.Dir(), styleHint.Render("(Ctrl+C to stop)"))
	watcher.Forward(ctx, wt, d.UploadPath, func(r watcher.Result) {
		reportUpload(w, r)
	})
	return nil
}

func reportUpload(w io.Writer, r watcher.Result) {
	name := filepath.Base(r.Path)
	if r.Err != nil {
		fmt.Fprintf(w, "%s %s: %s\n", styleError.Render("✗"), name, r.Err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", styleSuccess.Render("✓"), name)
}
