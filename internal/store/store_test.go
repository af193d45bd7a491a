package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchfire-io/dropdeck/internal/client"
	"github.com/watchfire-io/dropdeck/internal/config"
	"github.com/watchfire-io/dropdeck/internal/models"
)

// fakeRemote records the order of calls and returns canned results.
type fakeRemote struct {
	mu    sync.Mutex
	calls []string

	status    *models.Status
	statusErr error
	config    *models.Config
	configErr error
	updateErr error
	runErr    error
	logs      []models.LogEntry
	logsErr   error
	uploadErr error

	uploaded map[string]string

	// onCall, when set, runs inside each call before it returns.
	onCall func(name string)
}

func (f *fakeRemote) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	hook := f.onCall
	f.mu.Unlock()
	if hook != nil {
		hook(name)
	}
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) Status(ctx context.Context) (*models.Status, error) {
	f.record("status")
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	cp := *f.status
	return &cp, nil
}

func (f *fakeRemote) Config(ctx context.Context) (*models.Config, error) {
	f.record("config")
	if f.configErr != nil {
		return nil, f.configErr
	}
	return f.config.Clone(), nil
}

func (f *fakeRemote) UpdateConfig(ctx context.Context, cfg *models.Config) (*client.Ack, error) {
	f.record("update_config")
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.config = cfg.Clone()
	return &client.Ack{Status: "ok"}, nil
}

func (f *fakeRemote) Run(ctx context.Context) (*client.Ack, error) {
	f.record("run")
	if f.runErr != nil {
		return nil, f.runErr
	}
	return &client.Ack{Status: "ok"}, nil
}

func (f *fakeRemote) Logs(ctx context.Context) ([]models.LogEntry, error) {
	f.record("logs")
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	return append([]models.LogEntry(nil), f.logs...), nil
}

func (f *fakeRemote) Upload(ctx context.Context, name string, r io.Reader) (*client.UploadAck, error) {
	f.record("upload")
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if f.uploaded == nil {
		f.uploaded = make(map[string]string)
	}
	f.uploaded[name] = string(data)
	return &client.UploadAck{Filename: name, Status: "success"}, nil
}

func transportErr(op string) error {
	return &client.RemoteRequestError{Op: op, Message: "connection refused", Err: errors.New("connection refused")}
}

func newTestStore(remote Remote) *Store {
	return New(remote, WithLogger(config.DiscardLogger()))
}

func sampleConfig() *models.Config {
	cfg := models.NewConfig()
	cfg.MonitorFolder = "/data/watch"
	cfg.WeCom.CorpID = "ww1"
	cfg.WeCom.AgentID = "1000002"
	return cfg
}

func strPtr(s string) *string { return &s }

func TestNew_StartsUnknown(t *testing.T) {
	s := newTestStore(&fakeRemote{})

	_, ok := s.Status()
	assert.False(t, ok)
	_, ok = s.Config()
	assert.False(t, ok)
	assert.Empty(t, s.Logs())
	assert.False(t, s.LogsLoaded())
	assert.False(t, s.Syncing())
	assert.Empty(t, s.Diagnostics())
}

func TestRefreshStatus_StoresVerbatim(t *testing.T) {
	tests := []struct {
		name   string
		status models.Status
	}{
		{name: "scheduled", status: models.Status{Running: true, NextRun: strPtr("2024-01-01T09:00:00Z")}},
		{name: "null next run", status: models.Status{Running: true, NextRun: nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := &fakeRemote{status: &tt.status}
			s := newTestStore(remote)

			s.RefreshStatus(context.Background())

			got, ok := s.Status()
			require.True(t, ok)
			assert.Equal(t, tt.status, *got)
		})
	}
}

func TestRefreshStatus_FailureKeepsLastKnown(t *testing.T) {
	remote := &fakeRemote{status: &models.Status{Running: true, NextRun: strPtr("2024-01-01T09:00:00Z")}}
	s := newTestStore(remote)
	s.RefreshStatus(context.Background())

	remote.statusErr = transportErr("read status")
	s.RefreshStatus(context.Background())
	s.RefreshStatus(context.Background())

	got, ok := s.Status()
	require.True(t, ok)
	assert.True(t, got.Running)
	assert.Equal(t, "2024-01-01T09:00:00Z", *got.NextRun)

	diags := s.Diagnostics()
	require.Len(t, diags, 2)
	assert.Equal(t, "refresh status", diags[0].Op)
}

func TestRefreshConfig_Idempotent(t *testing.T) {
	remote := &fakeRemote{config: sampleConfig()}
	s := newTestStore(remote)

	s.RefreshConfig(context.Background())
	first, ok := s.Config()
	require.True(t, ok)

	s.RefreshConfig(context.Background())
	second, ok := s.Config()
	require.True(t, ok)

	assert.Equal(t, first, second)
}

func TestRefreshConfig_FailureKeepsLastKnown(t *testing.T) {
	remote := &fakeRemote{config: sampleConfig()}
	s := newTestStore(remote)
	s.RefreshConfig(context.Background())

	remote.configErr = transportErr("read config")
	s.RefreshConfig(context.Background())

	got, ok := s.Config()
	require.True(t, ok)
	assert.Equal(t, "/data/watch", got.MonitorFolder)
}

func TestConfig_ReturnsDraftCopy(t *testing.T) {
	remote := &fakeRemote{config: sampleConfig()}
	s := newTestStore(remote)
	s.RefreshConfig(context.Background())

	draft, _ := s.Config()
	draft.MonitorFolder = "/elsewhere"
	draft.Schedule.Enabled = true

	got, _ := s.Config()
	assert.Equal(t, "/data/watch", got.MonitorFolder)
	assert.False(t, got.Schedule.Enabled)
}

func TestRefreshLogs_ReplacesWholesale(t *testing.T) {
	remote := &fakeRemote{logs: []models.LogEntry{"a", "b", "c"}}
	s := newTestStore(remote)
	s.RefreshLogs(context.Background())
	assert.Equal(t, []models.LogEntry{"a", "b", "c"}, s.Logs())
	assert.True(t, s.LogsLoaded())

	remote.logs = []models.LogEntry{"d"}
	s.RefreshLogs(context.Background())
	assert.Equal(t, []models.LogEntry{"d"}, s.Logs())
}

func TestSaveConfig_Success(t *testing.T) {
	remote := &fakeRemote{
		config: sampleConfig(),
		status: &models.Status{Running: true},
	}
	s := newTestStore(remote)
	s.RefreshConfig(context.Background())

	draft, _ := s.Config()
	draft.MonitorFolder = "/data/in"

	s.SaveConfig(context.Background(), draft)

	got, ok := s.Config()
	require.True(t, ok)
	assert.Equal(t, "/data/in", got.MonitorFolder)
	assert.Equal(t, []string{"config", "update_config", "status"}, remote.Calls())
	assert.False(t, s.Syncing())

	_, ok = s.Status()
	assert.True(t, ok)
}

func TestSaveConfig_DraftIsNotAliased(t *testing.T) {
	remote := &fakeRemote{status: &models.Status{}}
	s := newTestStore(remote)

	draft := sampleConfig()
	s.SaveConfig(context.Background(), draft)
	draft.MonitorFolder = "/mutated/after/save"

	got, _ := s.Config()
	assert.Equal(t, "/data/watch", got.MonitorFolder)
}

func TestSaveConfig_StatusRefreshAfterWrite(t *testing.T) {
	remote := &fakeRemote{status: &models.Status{}}
	s := newTestStore(remote)

	var writeResolved bool
	remote.onCall = func(name string) {
		switch name {
		case "update_config":
			writeResolved = true
		case "status":
			assert.True(t, writeResolved, "status refreshed before write resolved")
			assert.True(t, s.Syncing(), "sync flag lowered before reconciliation")
		}
	}

	s.SaveConfig(context.Background(), sampleConfig())
	assert.Equal(t, []string{"update_config", "status"}, remote.Calls())
}

func TestSaveConfig_FailureSwallowed(t *testing.T) {
	remote := &fakeRemote{
		config:    sampleConfig(),
		status:    &models.Status{},
		updateErr: &client.RemoteRequestError{Op: "write config", StatusCode: 500, Message: "status 500"},
	}
	s := newTestStore(remote)
	s.RefreshConfig(context.Background())

	draft, _ := s.Config()
	draft.MonitorFolder = "/data/in"
	s.SaveConfig(context.Background(), draft)

	got, _ := s.Config()
	assert.Equal(t, "/data/watch", got.MonitorFolder)
	assert.Equal(t, []string{"config", "update_config"}, remote.Calls())
	assert.False(t, s.Syncing())

	last, ok := s.LastDiagnostic()
	require.True(t, ok)
	assert.Equal(t, "save config", last.Op)
	assert.Equal(t, 500, last.StatusCode)
}

func TestTriggerRun_Success(t *testing.T) {
	remote := &fakeRemote{logs: []models.LogEntry{"2024-01-01 09:00:00 - INFO - done"}}
	s := newTestStore(remote)

	var runResolved bool
	remote.onCall = func(name string) {
		switch name {
		case "run":
			runResolved = true
		case "logs":
			assert.True(t, runResolved, "logs refreshed before run resolved")
		}
	}

	s.TriggerRun(context.Background())

	assert.Equal(t, []string{"run", "logs"}, remote.Calls())
	assert.Equal(t, remote.logs, s.Logs())
	assert.False(t, s.Syncing())
}

func TestTriggerRun_FailureLeavesLogs(t *testing.T) {
	remote := &fakeRemote{logs: []models.LogEntry{"old line"}}
	s := newTestStore(remote)
	s.RefreshLogs(context.Background())

	remote.logs = []models.LogEntry{"new line"}
	remote.runErr = transportErr("trigger run")
	s.TriggerRun(context.Background())

	assert.Equal(t, []models.LogEntry{"old line"}, s.Logs())
	assert.Equal(t, []string{"logs", "run"}, remote.Calls())
	assert.False(t, s.Syncing())
}

func TestUploadFile_Success(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestStore(remote)

	var events []Slice
	s.Subscribe(func(ev Event) { events = append(events, ev.Slice) })

	err := s.UploadFile(context.Background(), "report.xlsx", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, "payload", remote.uploaded["report.xlsx"])
	assert.False(t, s.Syncing())
	assert.Equal(t, []Slice{SliceSync, SliceSync}, events)
}

func TestUploadFile_FailurePropagates(t *testing.T) {
	remote := &fakeRemote{uploadErr: &client.RemoteRequestError{
		Op:         "upload file",
		StatusCode: 507,
		Message:    "disk full",
	}}
	s := newTestStore(remote)

	err := s.UploadFile(context.Background(), "report.xlsx", strings.NewReader("payload"))
	require.Error(t, err)
	assert.Equal(t, "disk full", err.Error())
	assert.False(t, s.Syncing())
}

func TestSyncReleasedOnEveryPath(t *testing.T) {
	failing := transportErr("any")
	tests := []struct {
		name   string
		remote *fakeRemote
		call   func(s *Store)
	}{
		{"save ok", &fakeRemote{status: &models.Status{}}, func(s *Store) { s.SaveConfig(context.Background(), sampleConfig()) }},
		{"save fails", &fakeRemote{updateErr: failing}, func(s *Store) { s.SaveConfig(context.Background(), sampleConfig()) }},
		{"save ok status fails", &fakeRemote{statusErr: failing}, func(s *Store) { s.SaveConfig(context.Background(), sampleConfig()) }},
		{"run ok", &fakeRemote{}, func(s *Store) { s.TriggerRun(context.Background()) }},
		{"run fails", &fakeRemote{runErr: failing}, func(s *Store) { s.TriggerRun(context.Background()) }},
		{"upload ok", &fakeRemote{}, func(s *Store) { _ = s.UploadFile(context.Background(), "a", strings.NewReader("x")) }},
		{"upload fails", &fakeRemote{uploadErr: failing}, func(s *Store) { _ = s.UploadFile(context.Background(), "a", strings.NewReader("x")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(tt.remote)
			var raised bool
			tt.remote.onCall = func(name string) {
				if name == "update_config" || name == "run" || name == "upload" {
					raised = s.Syncing()
				}
			}
			tt.call(s)
			assert.True(t, raised, "sync flag not raised during the write")
			assert.False(t, s.Syncing())
		})
	}
}

func TestSharedSyncFlag_ReadsIdleWhileOneOutstanding(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	remote := &fakeRemote{}
	remote.onCall = func(name string) {
		if name == "upload" {
			close(entered)
			<-release
		}
	}
	s := newTestStore(remote)

	done := make(chan error)
	go func() {
		done <- s.UploadFile(context.Background(), "slow", strings.NewReader("x"))
	}()
	<-entered

	// A second mutation settles first and lowers the shared flag.
	s.TriggerRun(context.Background())
	assert.False(t, s.Syncing())

	close(release)
	require.NoError(t, <-done)
	assert.False(t, s.Syncing())
}

func TestSubscribe_ListenerCanReadStore(t *testing.T) {
	remote := &fakeRemote{status: &models.Status{Running: true}}
	s := newTestStore(remote)

	var seen bool
	unsubscribe := s.Subscribe(func(ev Event) {
		if ev.Slice == SliceStatus {
			st, ok := s.Status()
			seen = ok && st.Running
		}
	})
	s.RefreshStatus(context.Background())
	assert.True(t, seen)

	unsubscribe()
	unsubscribe()
	seen = false
	s.RefreshStatus(context.Background())
	assert.False(t, seen)
}

func TestDiagnostics_Bounded(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestStore(remote)
	for i := 0; i < MaxDiagnostics+10; i++ {
		remote.statusErr = fmt.Errorf("failure %d", i)
		s.RefreshStatus(context.Background())
	}

	diags := s.Diagnostics()
	require.Len(t, diags, MaxDiagnostics)
	assert.EqualError(t, diags[0].Err, fmt.Sprintf("failure %d", MaxDiagnostics+9))
	assert.EqualError(t, diags[MaxDiagnostics-1].Err, "failure 10")
}

type recordingTracker struct {
	events []string
}

func (r *recordingTracker) Track(event string, props map[string]any) {
	r.events = append(r.events, event)
}

func TestTracker(t *testing.T) {
	tracker := &recordingTracker{}
	remote := &fakeRemote{status: &models.Status{}, runErr: transportErr("trigger run")}
	s := New(remote, WithLogger(config.DiscardLogger()), WithTracker(tracker))

	s.SaveConfig(context.Background(), sampleConfig())
	s.TriggerRun(context.Background())
	_ = s.UploadFile(context.Background(), "a", strings.NewReader("x"))

	assert.Equal(t, []string{"config_saved", "run_failed", "file_uploaded"}, tracker.events)
}

func TestSnapshot(t *testing.T) {
	remote := &fakeRemote{
		status: &models.Status{Running: true},
		config: sampleConfig(),
		logs:   []models.LogEntry{"line"},
	}
	s := newTestStore(remote)
	s.RefreshStatus(context.Background())
	s.RefreshConfig(context.Background())
	s.RefreshLogs(context.Background())

	snap := s.Snapshot()
	require.NotNil(t, snap.Status)
	require.NotNil(t, snap.Config)
	assert.True(t, snap.Status.Running)
	assert.Equal(t, "/data/watch", snap.Config.MonitorFolder)
	assert.Equal(t, []models.LogEntry{"line"}, snap.Logs)
	assert.True(t, snap.LogsLoaded)
	assert.False(t, snap.Syncing)

	snap.Logs[0] = "changed"
	assert.Equal(t, []models.LogEntry{"line"}, s.Logs())
}

func TestStatus_CallerCannotMutateStore(t *testing.T) {
	remote := &fakeRemote{status: &models.Status{Running: true, NextRun: strPtr("2024-01-01T09:00:00Z")}}
	s := newTestStore(remote)
	s.RefreshStatus(context.Background())

	got, ok := s.Status()
	require.True(t, ok)
	*got.NextRun = "changed"
	got.Running = false

	snap := s.Snapshot()
	*snap.Status.NextRun = "changed again"

	again, _ := s.Status()
	require.NotNil(t, again.NextRun)
	assert.Equal(t, "2024-01-01T09:00:00Z", *again.NextRun)
	assert.True(t, again.Running)
}

func TestSaveConfig_NilDraft(t *testing.T) {
	remote := &fakeRemote{config: sampleConfig()}
	s := newTestStore(remote)
	s.RefreshConfig(context.Background())

	require.NotPanics(t, func() { s.SaveConfig(context.Background(), nil) })

	assert.Equal(t, []string{"config"}, remote.Calls())
	assert.False(t, s.Syncing())
	got, _ := s.Config()
	assert.Equal(t, "/data/watch", got.MonitorFolder)

	last, ok := s.LastDiagnostic()
	require.True(t, ok)
	assert.Equal(t, OpSaveConfig, last.Op)
	assert.ErrorIs(t, last.Err, ErrNoDraft)
}

func TestRecordFailure_LogsRequestLine(t *testing.T) {
	var buf bytes.Buffer
	remote := &fakeRemote{statusErr: &client.RemoteRequestError{
		Op: "read status", Method: "GET", Path: "/status", StatusCode: 502, Message: "status 502",
	}}
	s := New(remote, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	s.RefreshStatus(context.Background())

	out := buf.String()
	assert.Contains(t, out, "remote request failed")
	assert.Contains(t, out, "op=\"refresh status\"")
	assert.Contains(t, out, "status=502")
	assert.Contains(t, out, "GET /status")
}

func TestDiagnosticsSince(t *testing.T) {
	remote := &fakeRemote{statusErr: transportErr("read status"), runErr: transportErr("trigger run")}
	s := newTestStore(remote)

	s.RefreshStatus(context.Background())
	mark := s.DiagnosticSeq()
	assert.Equal(t, uint64(1), mark)

	s.TriggerRun(context.Background())
	s.RefreshStatus(context.Background())

	all := s.DiagnosticsSince(mark, "")
	require.Len(t, all, 2)
	assert.Equal(t, OpRefreshStatus, all[0].Op)

	runs := s.DiagnosticsSince(mark, OpTriggerRun)
	require.Len(t, runs, 1)
	assert.Equal(t, uint64(2), runs[0].Seq)
	assert.Empty(t, s.DiagnosticsSince(s.DiagnosticSeq(), ""))
}
