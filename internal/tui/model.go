package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/watchfire-io/dropdeck/internal/client"
	"github.com/watchfire-io/dropdeck/internal/dispatch"
	"github.com/watchfire-io/dropdeck/internal/poller"
	"github.com/watchfire-io/dropdeck/internal/store"
)

// Views.
const (
	viewDashboard = iota
	viewSettings
	viewLogs
	viewCount
)

// Status bar timings.
const (
	errorDisplayTime  = 5 * time.Second
	noticeDisplayTime = 3 * time.Second
)

// Minimum terminal size.
const (
	minWidth  = 60
	minHeight = 18
)

// Model is the root Bubbletea model for the TUI.
type Model struct {
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	serverURL  string

	// Session context; cancelled on quit.
	ctx    context.Context
	cancel context.CancelFunc

	// Pollers owned by each view. Only the active view's scope runs.
	scopes [viewCount]*poller.Scope

	// Last rendered Store state
	snap store.Snapshot

	// UI state
	view          int
	activeOverlay overlayKind
	confirmMode   int
	width         int
	height        int

	// Status display
	err         error
	notice      string
	lastFailure string // most recent absorbed remote failure

	// Child components
	settingsForm *SettingsForm
	logViewer    *LogViewer
	uploadPrompt *UploadPrompt
	spinner      spinner.Model
	spinning     bool

	// Program reference for goroutine Send()
	program *programRef
}

// NewModel creates the initial TUI model.
func NewModel(opts Options, program *programRef) Model {
	opts = opts.withDefaults()
	if program == nil {
		program = &programRef{}
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := opts.Store
	m := Model{
		store:        s,
		dispatcher:   opts.Dispatcher,
		serverURL:    opts.ServerURL,
		ctx:          ctx,
		cancel:       cancel,
		settingsForm: NewSettingsForm(),
		logViewer:    NewLogViewer(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(badgeSyncStyle),
		),
		program: program,
	}
	m.scopes[viewDashboard] = poller.NewScope(poller.New("status", opts.StatusInterval, s.RefreshStatus))
	m.scopes[viewSettings] = poller.NewScope()
	m.scopes[viewLogs] = poller.NewScope(poller.New("logs", opts.LogsInterval, s.RefreshLogs))
	m.syncFromStore()
	return m
}

// Init activates the first view.
func (m Model) Init() tea.Cmd {
	poller.Switch(m.ctx, nil, m.scopes[m.view])
	return m.enterViewCmd(m.view)
}

// Update processes messages and returns an updated model and commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	// ── Window resize ──────────────────────────────────────────────
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateDimensions()
		return m, nil

	// ── Key events ─────────────────────────────────────────────────
	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		return m, cmd

	// ── Store changes ──────────────────────────────────────────────
	case StoreChangedMsg:
		m.syncFromStore()
		if m.snap.Syncing && !m.spinning {
			m.spinning = true
			return m, m.spinner.Tick
		}
		return m, nil

	case spinner.TickMsg:
		if !m.snap.Syncing {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	// ── Mutation results ───────────────────────────────────────────
	case ConfigSavedMsg:
		// A failed save is diagnostic only; the draft stays dirty.
		if !msg.Outcome.Changed {
			return m, nil
		}
		m.settingsForm.MarkSaved()
		m.notice = "Saved"
		return m, clearSavedAfter(noticeDisplayTime)

	case RunSettledMsg:
		if !msg.Outcome.Changed {
			return m, nil
		}
		m.notice = "Run triggered"
		return m, clearSavedAfter(noticeDisplayTime)

	case UploadedMsg:
		m.notice = "Uploaded " + msg.Name
		return m, clearSavedAfter(noticeDisplayTime)

	case UploadFailedMsg:
		m.err = uploadError(msg.Name, msg.Err)
		return m, clearErrorAfter(errorDisplayTime)

	// ── Error handling ─────────────────────────────────────────────
	case ErrorMsg:
		m.err = msg.Err
		return m, clearErrorAfter(errorDisplayTime)

	case ClearErrorMsg:
		m.err = nil
		return m, nil

	case ClearSavedMsg:
		m.notice = ""
		return m, nil
	}

	return m, nil
}

func uploadError(name string, err error) error {
	if errors.Is(err, dispatch.ErrBusy) {
		return err
	}
	var rerr *client.RemoteRequestError
	if errors.As(err, &rerr) && rerr.Message == client.DefaultUploadError {
		return fmt.Errorf("upload of %s failed", name)
	}
	return fmt.Errorf("upload of %s failed: %w", name, err)
}

// syncFromStore copies Store state into the model and its children.
func (m *Model) syncFromStore() {
	m.snap = m.store.Snapshot()
	m.lastFailure = ""
	if d, ok := m.store.LastDiagnostic(); ok {
		m.lastFailure = d.Op + ": " + d.Err.Error()
	}
	m.settingsForm.LoadFromConfig(m.snap.Config)
	m.logViewer.SetLogs(m.snap.Logs, m.snap.LogsLoaded)
}

// ── View switching ───────────────────────────────────────────────

// switchView deactivates the current view's pollers before activating the
// next view's.
func (m *Model) switchView(to int) tea.Cmd {
	if to == m.view {
		return nil
	}
	if m.view == viewSettings && m.settingsForm.IsEditing() {
		m.settingsForm.CancelEdit()
	}
	poller.Switch(m.ctx, m.scopes[m.view], m.scopes[to])
	m.view = to
	return m.enterViewCmd(to)
}

// enterViewCmd fetches the one-shot data a view needs on entry. Polled
// slices are refreshed by the scope's immediate tick.
func (m *Model) enterViewCmd(view int) tea.Cmd {
	switch view {
	case viewDashboard, viewSettings:
		return refreshConfigCmd(m.ctx, m.store)
	}
	return nil
}

// ── Key handling ─────────────────────────────────────────────────

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	// Confirm mode captures everything
	if m.confirmMode != confirmNone {
		return m.handleConfirmKey(msg)
	}

	if m.activeOverlay != overlayNone {
		return m.handleOverlayKey(msg)
	}

	// Text input captures everything but quit
	if m.view == viewSettings && m.settingsForm.IsEditing() {
		if msg.Type == tea.KeyCtrlQ || msg.Type == tea.KeyCtrlC {
			return m.requestQuit()
		}
		return m.handleSettingsKey(msg)
	}

	switch {
	case key.Matches(msg, globalKeys.Quit):
		return m.requestQuit()
	case key.Matches(msg, globalKeys.Help):
		m.activeOverlay = overlayHelp
		return nil
	case key.Matches(msg, globalKeys.Tab):
		return m.switchView((m.view + 1) % viewCount)
	case key.Matches(msg, viewSwitchKeys.Dashboard):
		return m.switchView(viewDashboard)
	case key.Matches(msg, viewSwitchKeys.Settings):
		return m.switchView(viewSettings)
	case key.Matches(msg, viewSwitchKeys.Logs):
		return m.switchView(viewLogs)
	}

	switch m.view {
	case viewDashboard:
		return m.handleDashboardKey(msg)
	case viewSettings:
		return m.handleSettingsKey(msg)
	case viewLogs:
		return m.handleLogKey(msg)
	}
	return nil
}

func (m *Model) handleDashboardKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, dashboardKeys.Run):
		return runNowCmd(m.ctx, m.dispatcher)
	case key.Matches(msg, dashboardKeys.Upload):
		m.openUploadPrompt()
	case key.Matches(msg, dashboardKeys.Refresh):
		return tea.Batch(refreshStatusCmd(m.ctx, m.store), refreshConfigCmd(m.ctx, m.store))
	}
	return nil
}

func (m *Model) handleSettingsKey(msg tea.KeyMsg) tea.Cmd {
	if m.settingsForm.IsEditing() {
		switch msg.Type {
		case tea.KeyEnter:
			m.settingsForm.FinishEdit()
			return nil
		case tea.KeyEscape:
			m.settingsForm.CancelEdit()
			return nil
		default:
			// Forward to text input
			ti := m.settingsForm.InputModel()
			newTI, _ := ti.Update(msg)
			*ti = newTI
			return nil
		}
	}

	switch {
	case key.Matches(msg, settingsKeys.Up):
		m.settingsForm.MoveUp()
	case key.Matches(msg, settingsKeys.Down):
		m.settingsForm.MoveDown()
	case key.Matches(msg, settingsKeys.Toggle):
		m.settingsForm.Toggle()
	case key.Matches(msg, settingsKeys.Enter):
		if !m.settingsForm.StartEdit() {
			m.settingsForm.Toggle()
		}
	case key.Matches(msg, settingsKeys.Save):
		if !m.settingsForm.Loaded() {
			return nil
		}
		return saveConfigCmd(m.ctx, m.dispatcher, m.settingsForm.Draft())
	case key.Matches(msg, settingsKeys.Revert):
		m.settingsForm.Revert()
	}
	return nil
}

func (m *Model) handleLogKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, logKeys.Up):
		m.logViewer.MoveUp()
	case key.Matches(msg, logKeys.Down):
		m.logViewer.MoveDown()
	case key.Matches(msg, logKeys.PageUp):
		m.logViewer.PageUp()
	case key.Matches(msg, logKeys.PageDown):
		m.logViewer.PageDown()
	case key.Matches(msg, logKeys.Top):
		m.logViewer.GotoTop()
	case key.Matches(msg, logKeys.Bottom):
		m.logViewer.GotoBottom()
	case key.Matches(msg, logKeys.Refresh):
		return refreshLogsCmd(m.ctx, m.store)
	}
	return nil
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, confirmKeys.Yes):
		m.confirmMode = confirmNone
		return m.doQuit()
	case key.Matches(msg, confirmKeys.No), key.Matches(msg, confirmKeys.Cancel):
		m.confirmMode = confirmNone
	}
	return nil
}

func (m *Model) handleOverlayKey(msg tea.KeyMsg) tea.Cmd {
	switch m.activeOverlay {
	case overlayHelp:
		if key.Matches(msg, overlayKeys.Cancel) || key.Matches(msg, globalKeys.Help) {
			m.activeOverlay = overlayNone
		}
		return nil

	case overlayUpload:
		return m.handleUploadKey(msg)
	}
	return nil
}

func (m *Model) handleUploadKey(msg tea.KeyMsg) tea.Cmd {
	if m.uploadPrompt == nil {
		m.activeOverlay = overlayNone
		return nil
	}

	switch {
	case key.Matches(msg, overlayKeys.Cancel):
		m.closeUploadPrompt()
		return nil
	case key.Matches(msg, overlayKeys.Submit):
		path, ok := m.uploadPrompt.Path()
		if !ok {
			return nil
		}
		m.closeUploadPrompt()
		return uploadPathCmd(m.ctx, m.dispatcher, path)
	}

	ti := m.uploadPrompt.Input()
	newTI, _ := ti.Update(msg)
	*ti = newTI
	return nil
}

func (m *Model) openUploadPrompt() {
	w := m.width - 10
	if w > 70 {
		w = 70
	}
	if w < 30 {
		w = 30
	}
	m.uploadPrompt = NewUploadPrompt(w)
	m.activeOverlay = overlayUpload
}

func (m *Model) closeUploadPrompt() {
	m.uploadPrompt = nil
	m.activeOverlay = overlayNone
}

// requestQuit asks for confirmation when quitting would abandon work.
func (m *Model) requestQuit() tea.Cmd {
	switch {
	case m.snap.Syncing:
		m.confirmMode = confirmQuit
		return nil
	case m.settingsForm.Dirty():
		m.confirmMode = confirmDiscard
		return nil
	}
	return m.doQuit()
}

// doQuit stops the pollers, clears the program ref and quits.
func (m *Model) doQuit() tea.Cmd {
	m.shutdown()
	m.program.Clear()
	return tea.Quit
}

// shutdown stops every poller and cancels the session context. Safe to
// call more than once.
func (m Model) shutdown() {
	for _, scope := range m.scopes {
		if scope != nil {
			scope.Deactivate()
		}
	}
	m.cancel()
}

// ── Dimension helpers ────────────────────────────────────────────

func (m *Model) updateDimensions() {
	layout := computeLayout(m.width, m.height)
	m.settingsForm.SetSize(layout.innerWidth, layout.innerHeight)
	m.logViewer.SetSize(layout.innerWidth, layout.innerHeight)
}

// ── View ─────────────────────────────────────────────────────────

// View renders the TUI.
func (m Model) View() string {
	if m.width < minWidth || m.height < minHeight {
		sizeStr := fmt.Sprintf("%dx%d", m.width, m.height)
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(colorYellow).
			Render(lipgloss.JoinVertical(lipgloss.Center,
				"Terminal too small",
				lipgloss.NewStyle().Foreground(colorDim).Render(
					fmt.Sprintf("Need %dx%d, have ", minWidth, minHeight)+lipgloss.NewStyle().Bold(true).Render(sizeStr),
				),
			))
	}

	layout := computeLayout(m.width, m.height)

	header := renderHeader(m.snap.Status, m.view, m.width)
	panel := renderPanel(m.renderContent(layout.innerWidth), layout)
	statusBar := renderStatusBar(&m, m.width)

	view := lipgloss.JoinVertical(lipgloss.Left, header, panel, statusBar)

	if m.activeOverlay != overlayNone {
		var overlayContent string
		switch m.activeOverlay {
		case overlayHelp:
			overlayContent = renderHelp(m.width)
		case overlayUpload:
			if m.uploadPrompt != nil {
				overlayContent = m.uploadPrompt.View()
			}
		}
		if overlayContent != "" {
			view = renderOverlay(view, overlayContent, m.width, m.height)
		}
	}

	return view
}

func (m Model) renderContent(width int) string {
	switch m.view {
	case viewDashboard:
		return renderDashboard(dashboardData{
			snap:      m.snap,
			busy:      m.snap.Syncing,
			spinner:   m.spinner.View(),
			serverURL: m.serverURL,
			failure:   m.lastFailure,
		}, width)
	case viewSettings:
		return m.settingsForm.View()
	case viewLogs:
		return m.logViewer.View()
	}
	return ""
}
