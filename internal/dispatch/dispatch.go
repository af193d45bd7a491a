// Package dispatch turns one user gesture into exactly one Store mutation.
//
// The in-flight guard is advisory. It mirrors a disabled control and
// rejects a second submission while the shared sync flag is raised, but it
// is not a lock: two callers can still race past the check.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/watchfire-io/dropdeck/internal/models"
	"github.com/watchfire-io/dropdeck/internal/store"
)

var (
	// ErrBusy is returned when a mutation is already shown as in flight.
	ErrBusy = errors.New("another operation is in progress")
	// ErrNotDraft is returned when SaveConfig is given no draft.
	ErrNotDraft = store.ErrNoDraft
)

// Store is the subset of *store.Store the dispatcher drives.
type Store interface {
	Syncing() bool
	SaveConfig(ctx context.Context, draft *models.Config)
	TriggerRun(ctx context.Context)
	UploadFile(ctx context.Context, name string, r io.Reader) error
	DiagnosticSeq() uint64
	DiagnosticsSince(seq uint64, op string) []store.Diagnostic
}

// Outcome reports how a swallowed mutation settled.
type Outcome struct {
	// Changed is true when the remote write succeeded.
	Changed bool
	// Failure is the diagnostic recorded for the write when it failed.
	Failure *store.Diagnostic
}

// Dispatcher issues Store mutations on behalf of presentation surfaces.
type Dispatcher struct {
	store Store
}

// New creates a dispatcher over s.
func New(s Store) *Dispatcher {
	return &Dispatcher{store: s}
}

// Busy reports whether controls that mutate should be disabled.
func (d *Dispatcher) Busy() bool {
	return d.store.Syncing()
}

// SaveConfig commits draft. The mutation is detached from ctx's
// cancellation so navigating away does not abort a write already sent.
func (d *Dispatcher) SaveConfig(ctx context.Context, draft *models.Config) (Outcome, error) {
	if draft == nil {
		return Outcome{}, ErrNotDraft
	}
	if d.store.Syncing() {
		return Outcome{}, ErrBusy
	}
	mark := d.store.DiagnosticSeq()
	d.store.SaveConfig(context.WithoutCancel(ctx), draft)
	return d.outcome(mark, store.OpSaveConfig), nil
}

// RunNow triggers an on-demand run.
func (d *Dispatcher) RunNow(ctx context.Context) (Outcome, error) {
	if d.store.Syncing() {
		return Outcome{}, ErrBusy
	}
	mark := d.store.DiagnosticSeq()
	d.store.TriggerRun(context.WithoutCancel(ctx))
	return d.outcome(mark, store.OpTriggerRun), nil
}

// Upload sends r into the monitored folder as name. Upload failures are
// returned as-is so the caller can show the remote's message.
func (d *Dispatcher) Upload(ctx context.Context, name string, r io.Reader) error {
	if d.store.Syncing() {
		return ErrBusy
	}
	return d.store.UploadFile(context.WithoutCancel(ctx), name, r)
}

// UploadPath uploads the local file at path under its base name.
func (d *Dispatcher) UploadPath(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return d.Upload(ctx, filepath.Base(path), f)
}

func (d *Dispatcher) outcome(mark uint64, op string) Outcome {
	failures := d.store.DiagnosticsSince(mark, op)
	if len(failures) == 0 {
		return Outcome{Changed: true}
	}
	return Outcome{Failure: &failures[0]}
}
