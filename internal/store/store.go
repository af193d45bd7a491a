// Package store holds the console's mirror of remote state: the last-known
// Status, Config and Logs, plus the shared in-flight flag for mutations.
//
// Reads (Refresh*) never fail: a failed fetch leaves the slice unchanged and
// becomes a diagnostic. Writes commit first and reconcile after. SaveConfig
// and TriggerRun swallow their errors; UploadFile returns its error.
package store

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/watchfire-io/dropdeck/internal/client"
	"github.com/watchfire-io/dropdeck/internal/models"
)

// Remote is the transport the Store reads and writes through.
// *client.Client satisfies it.
type Remote interface {
	Status(ctx context.Context) (*models.Status, error)
	Config(ctx context.Context) (*models.Config, error)
	UpdateConfig(ctx context.Context, cfg *models.Config) (*client.Ack, error)
	Run(ctx context.Context) (*client.Ack, error)
	Logs(ctx context.Context) ([]models.LogEntry, error)
	Upload(ctx context.Context, name string, r io.Reader) (*client.UploadAck, error)
}

// Tracker receives one event per settled mutation.
type Tracker interface {
	Track(event string, props map[string]any)
}

// Store is the single owner of remote data for a console session.
// It is safe for concurrent use.
type Store struct {
	remote  Remote
	logger  *slog.Logger
	tracker Tracker
	now     func() time.Time

	mu         sync.RWMutex
	status     *models.Status
	config     *models.Config
	logs       []models.LogEntry
	logsLoaded bool
	syncing    bool
	diags      *diagnosticRing
	diagSeq    uint64

	subs subscribers
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger diagnostics are written to.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracker reports settled mutations to t.
func WithTracker(t Tracker) Option {
	return func(s *Store) {
		s.tracker = t
	}
}

// WithClock overrides the diagnostic timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty Store. Every slice starts unknown.
func New(remote Remote, opts ...Option) *Store {
	s := &Store{
		remote: remote,
		logger: slog.Default(),
		now:    time.Now,
		diags:  newDiagnosticRing(MaxDiagnostics),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ── Read access ──────────────────────────────────────────────────

// Status returns the last-known status. ok is false until the first
// successful fetch.
func (s *Store) Status() (status *models.Status, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status == nil {
		return nil, false
	}
	return s.status.Clone(), true
}

// Config returns a copy of the last-known config, suitable as an edit
// draft. ok is false until the first successful fetch or save.
func (s *Store) Config() (cfg *models.Config, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return nil, false
	}
	return s.config.Clone(), true
}

// Logs returns a copy of the last-known log collection.
func (s *Store) Logs() []models.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// LogsLoaded reports whether logs have been fetched at least once.
func (s *Store) LogsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logsLoaded
}

// Syncing reports whether a mutating operation is presented as in flight.
func (s *Store) Syncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncing
}

// Snapshot is a consistent copy of every slice.
type Snapshot struct {
	Status     *models.Status
	Config     *models.Config
	Logs       []models.LogEntry
	LogsLoaded bool
	Syncing    bool
}

// Snapshot returns a copy of every slice taken under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Status:     s.status.Clone(),
		Config:     s.config.Clone(),
		Logs:       make([]models.LogEntry, len(s.logs)),
		LogsLoaded: s.logsLoaded,
		Syncing:    s.syncing,
	}
	copy(snap.Logs, s.logs)
	return snap
}

// ── Reads ────────────────────────────────────────────────────────

// RefreshStatus fetches the status and replaces the stored value.
func (s *Store) RefreshStatus(ctx context.Context) {
	status, err := s.remote.Status(ctx)
	if err != nil {
		s.recordFailure(OpRefreshStatus, err)
		return
	}
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.subs.notify(Event{Slice: SliceStatus})
}

// RefreshConfig fetches the config and replaces the stored value.
func (s *Store) RefreshConfig(ctx context.Context) {
	cfg, err := s.remote.Config(ctx)
	if err != nil {
		s.recordFailure(OpRefreshConfig, err)
		return
	}
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
	s.subs.notify(Event{Slice: SliceConfig})
}

// RefreshLogs fetches the log collection and replaces the stored value.
func (s *Store) RefreshLogs(ctx context.Context) {
	logs, err := s.remote.Logs(ctx)
	if err != nil {
		s.recordFailure(OpRefreshLogs, err)
		return
	}
	s.mu.Lock()
	s.logs = logs
	s.logsLoaded = true
	s.mu.Unlock()
	s.subs.notify(Event{Slice: SliceLogs})
}

// ── Mutations ────────────────────────────────────────────────────

// SaveConfig writes draft and, once the write succeeds, stores draft as the
// authoritative config and refreshes the status, since a schedule change
// may restart the remote scheduler. A failed write leaves the config
// unchanged and is recorded as a diagnostic only. A nil draft is recorded
// the same way without contacting the engine.
func (s *Store) SaveConfig(ctx context.Context, draft *models.Config) {
	if draft == nil {
		s.recordFailure(OpSaveConfig, ErrNoDraft)
		return
	}
	release := s.acquireSync()
	defer release()

	committed := draft.Clone()
	if _, err := s.remote.UpdateConfig(ctx, committed); err != nil {
		s.recordFailure(OpSaveConfig, err)
		s.track("config_save_failed", nil)
		return
	}

	s.mu.Lock()
	s.config = committed
	s.mu.Unlock()
	s.subs.notify(Event{Slice: SliceConfig})
	s.track("config_saved", map[string]any{"schedule_enabled": committed.Schedule.Enabled})

	s.RefreshStatus(ctx)
}

// TriggerRun starts an on-demand run and, once it succeeds, refreshes the
// logs so the run's output becomes visible. A failed run leaves the logs
// unchanged and is recorded as a diagnostic only.
func (s *Store) TriggerRun(ctx context.Context) {
	release := s.acquireSync()
	defer release()

	if _, err := s.remote.Run(ctx); err != nil {
		s.recordFailure(OpTriggerRun, err)
		s.track("run_failed", nil)
		return
	}
	s.track("run_triggered", nil)

	s.RefreshLogs(ctx)
}

// UploadFile sends r into the monitored folder as name. No slice changes on
// success. Unlike the other mutations, a failure is returned to the caller.
func (s *Store) UploadFile(ctx context.Context, name string, r io.Reader) error {
	release := s.acquireSync()
	defer release()

	if _, err := s.remote.Upload(ctx, name, r); err != nil {
		s.recordFailure(OpUploadFile, err)
		s.track("upload_failed", nil)
		return err
	}
	s.track("file_uploaded", nil)
	return nil
}

// acquireSync raises the shared in-flight flag and returns its release.
// The flag is a single boolean: overlapping mutations each lower it when
// they settle, so it can read idle while another is still outstanding.
func (s *Store) acquireSync() (release func()) {
	s.setSyncing(true)
	return func() { s.setSyncing(false) }
}

func (s *Store) setSyncing(v bool) {
	s.mu.Lock()
	s.syncing = v
	s.mu.Unlock()
	s.subs.notify(Event{Slice: SliceSync})
}

func (s *Store) track(event string, props map[string]any) {
	if s.tracker != nil {
		s.tracker.Track(event, props)
	}
}
