package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchfire-io/dropdeck/internal/client"
	"github.com/watchfire-io/dropdeck/internal/config"
	"github.com/watchfire-io/dropdeck/internal/dispatch"
	"github.com/watchfire-io/dropdeck/internal/models"
	"github.com/watchfire-io/dropdeck/internal/store"
)

// stubRemote serves a fixed engine state.
type stubRemote struct {
	mu     sync.Mutex
	status    *models.Status
	statusErr error
	config    *models.Config
	logs   []models.LogEntry
	calls  []string
}

func (r *stubRemote) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *stubRemote) Status(context.Context) (*models.Status, error) {
	r.record("status")
	if r.statusErr != nil {
		return nil, r.statusErr
	}
	return r.status, nil
}

func (r *stubRemote) Config(context.Context) (*models.Config, error) {
	r.record("config")
	return r.config.Clone(), nil
}

func (r *stubRemote) UpdateConfig(_ context.Context, cfg *models.Config) (*client.Ack, error) {
	r.record("update_config")
	r.config = cfg.Clone()
	return &client.Ack{}, nil
}

func (r *stubRemote) Run(context.Context) (*client.Ack, error) {
	r.record("run")
	return &client.Ack{}, nil
}

func (r *stubRemote) Logs(context.Context) ([]models.LogEntry, error) {
	r.record("logs")
	return r.logs, nil
}

func (r *stubRemote) Upload(_ context.Context, name string, _ io.Reader) (*client.UploadAck, error) {
	r.record("upload " + name)
	return &client.UploadAck{}, nil
}

func newTestModel(t *testing.T) (Model, *store.Store) {
	t.Helper()
	next := "2026-10-15 09:00:00"
	remote := &stubRemote{
		status: &models.Status{Running: true, NextRun: &next},
		config: testConfig(),
		logs:   models.LogEntries([]string{"a - INFO - started", "b - ERROR - boom"}),
	}
	s := store.New(remote, store.WithLogger(config.DiscardLogger()))
	m := NewModel(Options{Store: s, Dispatcher: dispatch.New(s), ServerURL: "http://engine/api"}, nil)
	t.Cleanup(m.shutdown)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model), s
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_LoadingUntilStatusAndConfig(t *testing.T) {
	m, s := newTestModel(t)
	assert.Contains(t, m.View(), "Loading")

	s.RefreshStatus(context.Background())
	m, _ = update(t, m, StoreChangedMsg{Slice: store.SliceStatus})
	assert.Contains(t, m.View(), "Loading")

	s.RefreshConfig(context.Background())
	m, _ = update(t, m, StoreChangedMsg{Slice: store.SliceConfig})
	view := m.View()
	assert.NotContains(t, view, "Loading")
	assert.Contains(t, view, "Running")
	assert.Contains(t, view, "/srv/drop")
	assert.Contains(t, view, "2026-10-15 09:00:00")
}

func TestModel_LoadingShowsLastFailure(t *testing.T) {
	remote := &stubRemote{
		statusErr: &client.RemoteRequestError{Op: "read status", StatusCode: 502, Message: "status 502"},
		config:    testConfig(),
	}
	s := store.New(remote, store.WithLogger(config.DiscardLogger()))
	m := NewModel(Options{Store: s, Dispatcher: dispatch.New(s), ServerURL: "http://engine/api"}, nil)
	t.Cleanup(m.shutdown)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.NotContains(t, m.View(), "Last error")

	s.RefreshStatus(context.Background())
	m, _ = update(t, m, StoreChangedMsg{Slice: store.SliceDiagnostics})
	view := m.View()
	assert.Contains(t, view, "Loading")
	assert.Contains(t, view, "Last error: refresh status: status 502")
}

func TestModel_StoreChangeLoadsChildren(t *testing.T) {
	m, s := newTestModel(t)

	s.RefreshConfig(context.Background())
	s.RefreshLogs(context.Background())
	m, _ = update(t, m, StoreChangedMsg{Slice: store.SliceLogs})

	assert.True(t, m.settingsForm.Loaded())
	assert.True(t, m.logViewer.Loaded())
	assert.Equal(t, 2, m.logViewer.Len())
}

func TestModel_ViewSwitching(t *testing.T) {
	m, _ := newTestModel(t)

	m, cmd := update(t, m, runes("2"))
	assert.Equal(t, viewSettings, m.view)
	assert.NotNil(t, cmd, "entering settings fetches the config")
	assert.False(t, m.scopes[viewDashboard].Active())

	m, cmd = update(t, m, runes("3"))
	assert.Equal(t, viewLogs, m.view)
	assert.Nil(t, cmd)
	assert.True(t, m.scopes[viewLogs].Active())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, viewDashboard, m.view)
	assert.False(t, m.scopes[viewLogs].Active())
	assert.True(t, m.scopes[viewDashboard].Active())

	// Switching to the current view does nothing.
	_, cmd = update(t, m, runes("1"))
	assert.Nil(t, cmd)
}

func TestModel_ConfigSavedNotice(t *testing.T) {
	m, _ := newTestModel(t)

	m, cmd := update(t, m, ConfigSavedMsg{Outcome: dispatch.Outcome{Changed: false}})
	assert.Nil(t, cmd)
	assert.Empty(t, m.notice)
	assert.NoError(t, m.err)

	m, cmd = update(t, m, ConfigSavedMsg{Outcome: dispatch.Outcome{Changed: true}})
	assert.NotNil(t, cmd)
	assert.Equal(t, "Saved", m.notice)

	m, _ = update(t, m, ClearSavedMsg{})
	assert.Empty(t, m.notice)
}

func TestModel_RunSettled(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = update(t, m, RunSettledMsg{Outcome: dispatch.Outcome{Failure: &store.Diagnostic{Op: store.OpTriggerRun}}})
	assert.Empty(t, m.notice)
	assert.NoError(t, m.err)

	m, _ = update(t, m, RunSettledMsg{Outcome: dispatch.Outcome{Changed: true}})
	assert.Equal(t, "Run triggered", m.notice)
}

func TestModel_UploadFailureShowsDetail(t *testing.T) {
	m, _ := newTestModel(t)

	err := &client.RemoteRequestError{Op: "upload file", StatusCode: 500, Message: "disk full"}
	m, cmd := update(t, m, UploadFailedMsg{Name: "report.xlsx", Err: err})
	require.Error(t, m.err)
	assert.NotNil(t, cmd)
	assert.Equal(t, "upload of report.xlsx failed: disk full", m.err.Error())
	assert.Contains(t, m.View(), "disk full")

	m, _ = update(t, m, ClearErrorMsg{})
	assert.NoError(t, m.err)
}

func TestModel_UploadFailureWithoutDetail(t *testing.T) {
	m, _ := newTestModel(t)

	err := &client.RemoteRequestError{Message: client.DefaultUploadError}
	m, _ = update(t, m, UploadFailedMsg{Name: "a.csv", Err: err})
	assert.Equal(t, "upload of a.csv failed", m.err.Error())
}

func TestModel_UploadedNotice(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = update(t, m, UploadedMsg{Name: "a.csv"})
	assert.Equal(t, "Uploaded a.csv", m.notice)
}

func TestModel_BusyErrorShown(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = update(t, m, ErrorMsg{Err: dispatch.ErrBusy})
	assert.ErrorIs(t, m.err, dispatch.ErrBusy)
}

func TestModel_UploadOverlay(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = update(t, m, runes("u"))
	require.Equal(t, overlayUpload, m.activeOverlay)
	require.NotNil(t, m.uploadPrompt)

	// A missing file keeps the prompt open.
	m, _ = update(t, m, runes("/no/such/file"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, overlayUpload, m.activeOverlay)
	assert.Contains(t, m.uploadPrompt.View(), "file not found")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEscape})
	assert.Equal(t, overlayNone, m.activeOverlay)
	assert.Nil(t, m.uploadPrompt)
}

func TestModel_HelpOverlay(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = update(t, m, runes("?"))
	require.Equal(t, overlayHelp, m.activeOverlay)
	assert.Contains(t, m.View(), "Toggle help")

	// Keys other than close are swallowed.
	m, _ = update(t, m, runes("2"))
	assert.Equal(t, viewDashboard, m.view)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEscape})
	assert.Equal(t, overlayNone, m.activeOverlay)
}

func TestModel_QuitConfirmsWhileSyncing(t *testing.T) {
	m, _ := newTestModel(t)
	m.snap.Syncing = true

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlQ})
	assert.Nil(t, cmd)
	assert.Equal(t, confirmQuit, m.confirmMode)
	assert.Contains(t, m.View(), "Quit anyway?")

	m, _ = update(t, m, runes("n"))
	assert.Equal(t, confirmNone, m.confirmMode)
}

func TestModel_QuitConfirmsDirtySettings(t *testing.T) {
	m, s := newTestModel(t)
	s.RefreshConfig(context.Background())
	m, _ = update(t, m, StoreChangedMsg{Slice: store.SliceConfig})

	m, _ = update(t, m, runes("2"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.settingsForm.IsEditing())
	m, _ = update(t, m, runes("x"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.settingsForm.Dirty())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlQ})
	assert.Equal(t, confirmDiscard, m.confirmMode)

	_, cmd := update(t, m, runes("y"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_QuitWhenIdle(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlQ})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_SaveKeyDispatches(t *testing.T) {
	m, s := newTestModel(t)
	s.RefreshConfig(context.Background())
	m, _ = update(t, m, StoreChangedMsg{Slice: store.SliceConfig})
	m, _ = update(t, m, runes("2"))

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	msg := cmd()
	saved, ok := msg.(ConfigSavedMsg)
	require.True(t, ok, "got %T", msg)
	assert.True(t, saved.Outcome.Changed)
}

func TestModel_SaveIgnoredBeforeConfigLoads(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = update(t, m, runes("2"))

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Nil(t, cmd)
}

func TestModel_TooSmall(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 10})
	assert.Contains(t, m.View(), "Terminal too small")
}

func TestUploadError_Busy(t *testing.T) {
	err := uploadError("a", dispatch.ErrBusy)
	assert.True(t, errors.Is(err, dispatch.ErrBusy))
}

func TestLogViewer_Render(t *testing.T) {
	l := NewLogViewer()
	l.SetSize(100, 20)
	assert.Contains(t, l.View(), "Loading logs...")

	l.SetLogs(nil, true)
	assert.Contains(t, l.View(), "No logs yet.")

	l.SetLogs(models.LogEntries([]string{"one\n", "two ERROR", "three"}), true)
	view := l.View()
	assert.Contains(t, view, "1. one")
	assert.Contains(t, view, "2. two ERROR")
	assert.Contains(t, view, "3 lines")
	assert.NotContains(t, view, "one\n\n")
}

func TestDashboardFormatting(t *testing.T) {
	assert.Equal(t, "not configured", formatFolder(""))
	assert.Equal(t, "/srv", formatFolder("/srv"))

	assert.Equal(t, "daily at 09:00", formatSchedule(models.ScheduleConfig{Enabled: true, Time: "09:00", Frequency: models.FrequencyDaily}))
	assert.Equal(t, "hourly (from 08:30)", formatSchedule(models.ScheduleConfig{Enabled: true, Time: "08:30", Frequency: models.FrequencyHourly}))
	assert.Contains(t, formatSchedule(models.ScheduleConfig{}), "disabled")

	w := models.WeComConfig{CorpID: "c", AgentID: "7", ToUser: "@all"}
	assert.Equal(t, "agent 7, users @all", formatRecipients(w))
	assert.Contains(t, formatRecipients(models.WeComConfig{}), "not configured")
}

func TestRenderDashboard_BusyDisablesActions(t *testing.T) {
	next := "2026-10-15 09:00:00"
	snap := store.Snapshot{
		Status: &models.Status{NextRun: &next},
		Config: testConfig(),
	}
	idle := renderDashboard(dashboardData{snap: snap}, 120)
	assert.Contains(t, idle, "Run task now")
	assert.Contains(t, idle, "Stopped")

	busy := renderDashboard(dashboardData{snap: snap, busy: true, spinner: "*"}, 120)
	assert.NotContains(t, busy, "Run task now")
	assert.True(t, strings.Contains(busy, "Running..."))
}
