package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// confirmMode values.
const (
	confirmNone    = 0
	confirmQuit    = 1
	confirmDiscard = 2
)

func renderStatusBar(m *Model, width int) string {
	switch m.confirmMode {
	case confirmQuit:
		return renderConfirmBar("Operation in progress. Quit anyway? (y/n)", width)
	case confirmDiscard:
		return renderConfirmBar("Discard unsaved settings and quit? (y/n)", width)
	}

	// Error display
	if m.err != nil {
		return renderErrorBar(m.err.Error(), width)
	}

	// Saved indicator
	if m.notice != "" {
		return renderNoticeBar(m.notice, width)
	}

	left := " " + getKeyHints(m)

	var right string
	if m.snap.Syncing {
		right = badgeSyncStyle.Render(m.spinner.View()+" Syncing") + " "
	} else {
		right = hintStyle.Render(m.serverURL) + " "
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return statusBarStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func getKeyHints(m *Model) string {
	if m.activeOverlay == overlayUpload {
		return keyHint("Enter", "upload") + "  " + keyHint("Esc", "cancel")
	}

	base := keyHint("Ctrl+q", "quit") + "  " + keyHint("?", "help") + "  " + keyHint("Tab", "view")

	switch m.view {
	case viewDashboard:
		if m.snap.Syncing {
			return base + "  " + keyHint("R", "refresh")
		}
		return base + "  " + keyHint("r", "run now") + "  " + keyHint("u", "upload") + "  " + keyHint("R", "refresh")
	case viewSettings:
		if m.settingsForm.IsEditing() {
			return keyHint("Enter", "confirm") + "  " + keyHint("Esc", "cancel")
		}
		hints := base + "  " + keyHint("j/k", "navigate") + "  " +
			keyHint("Enter", "edit") + "  " + keyHint("Space", "toggle")
		if !m.snap.Syncing {
			hints += "  " + keyHint("Ctrl+s", "save")
		}
		return hints
	case viewLogs:
		return base + "  " + keyHint("j/k", "scroll") + "  " + keyHint("g/G", "top/bottom") + "  " + keyHint("r", "refresh")
	}

	return base
}

func keyHint(k, desc string) string {
	if k == "" {
		return hintStyle.Render(desc)
	}
	return keyStyle.Render(k) + " " + hintStyle.Render(desc)
}

func renderConfirmBar(msg string, width int) string {
	return statusBarStyle.
		Background(colorYellow).
		Foreground(lipgloss.AdaptiveColor{Light: "0", Dark: "0"}).
		Width(width).
		Render(" " + msg)
}

func renderErrorBar(msg string, width int) string {
	return statusBarStyle.
		Background(colorRed).
		Width(width).
		Render(" " + msg)
}

func renderNoticeBar(msg string, width int) string {
	return statusBarStyle.
		Width(width).
		Render(" " + lipgloss.NewStyle().Foreground(colorGreen).Render(msg))
}
