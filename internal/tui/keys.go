package tui

import "github.com/charmbracelet/bubbles/key"

// GlobalKeys are always active.
type GlobalKeys struct {
	Quit key.Binding
	Help key.Binding
	Tab  key.Binding
}

var globalKeys = GlobalKeys{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+q", "ctrl+c"),
		key.WithHelp("Ctrl+q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("ctrl+h", "?"),
		key.WithHelp("?", "help"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "next view"),
	),
}

// ViewSwitchKeys select a view directly.
type ViewSwitchKeys struct {
	Dashboard key.Binding
	Settings  key.Binding
	Logs      key.Binding
}

var viewSwitchKeys = ViewSwitchKeys{
	Dashboard: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "Dashboard"),
	),
	Settings: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "Settings"),
	),
	Logs: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "Logs"),
	),
}

// DashboardKeys are active on the dashboard.
type DashboardKeys struct {
	Run     key.Binding
	Upload  key.Binding
	Refresh key.Binding
}

var dashboardKeys = DashboardKeys{
	Run: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "run now"),
	),
	Upload: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "upload file"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "refresh"),
	),
}

// SettingsKeys are active when the settings form is focused.
type SettingsKeys struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Enter  key.Binding
	Save   key.Binding
	Revert key.Binding
}

var settingsKeys = SettingsKeys{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("j/k", "navigate"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("j/k", "navigate"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("Space", "toggle"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "edit"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("Ctrl+s", "save"),
	),
	Revert: key.NewBinding(
		key.WithKeys("ctrl+z"),
		key.WithHelp("Ctrl+z", "revert"),
	),
}

// LogKeys are active on the logs view.
type LogKeys struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Refresh  key.Binding
}

var logKeys = LogKeys{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("j/k", "scroll"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("j/k", "scroll"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("PgUp", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("PgDn", "page down"),
	),
	Top: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
}

// OverlayKeys are active when an overlay is shown.
type OverlayKeys struct {
	Submit key.Binding
	Cancel key.Binding
}

var overlayKeys = OverlayKeys{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "upload"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "cancel"),
	),
}

// ConfirmKeys for inline confirmation prompts.
type ConfirmKeys struct {
	Yes    key.Binding
	No     key.Binding
	Cancel key.Binding
}

var confirmKeys = ConfirmKeys{
	Yes: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "confirm"),
	),
	No: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "cancel"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "cancel"),
	),
}
