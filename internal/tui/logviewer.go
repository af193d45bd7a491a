package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/watchfire-io/dropdeck/internal/models"
)

// LogViewer shows the remote execution log, oldest line first, with line
// numbers. Error lines are red. It keeps following the tail while the view
// is scrolled to the bottom.
type LogViewer struct {
	logs     []models.LogEntry
	loaded   bool // whether logs have been fetched at least once
	viewport viewport.Model
	width    int
	height   int
}

// NewLogViewer creates a new log viewer.
func NewLogViewer() *LogViewer {
	vp := viewport.New(80, 24)
	return &LogViewer{
		viewport: vp,
	}
}

// SetSize updates dimensions.
func (l *LogViewer) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.viewport.Width = width
	l.viewport.Height = l.viewportHeight()
	l.viewport.SetContent(l.render())
}

func (l *LogViewer) viewportHeight() int {
	// Title line plus rule.
	h := l.height - 2
	if h < 1 {
		h = 1
	}
	return h
}

// SetLogs replaces the log collection.
func (l *LogViewer) SetLogs(logs []models.LogEntry, loaded bool) {
	follow := l.viewport.AtBottom() || !l.loaded
	l.logs = logs
	l.loaded = loaded
	l.viewport.SetContent(l.render())
	if follow {
		l.viewport.GotoBottom()
	}
}

// Loaded returns whether logs have been fetched at least once.
func (l *LogViewer) Loaded() bool {
	return l.loaded
}

// Len returns the number of lines held.
func (l *LogViewer) Len() int {
	return len(l.logs)
}

// MoveUp scrolls up one line.
func (l *LogViewer) MoveUp() { l.viewport.LineUp(1) }

// MoveDown scrolls down one line.
func (l *LogViewer) MoveDown() { l.viewport.LineDown(1) }

// PageUp scrolls up half a page.
func (l *LogViewer) PageUp() { l.viewport.HalfViewUp() }

// PageDown scrolls down half a page.
func (l *LogViewer) PageDown() { l.viewport.HalfViewDown() }

// GotoTop scrolls to the first line.
func (l *LogViewer) GotoTop() { l.viewport.GotoTop() }

// GotoBottom scrolls to the last line.
func (l *LogViewer) GotoBottom() { l.viewport.GotoBottom() }

func (l *LogViewer) render() string {
	if len(l.logs) == 0 {
		return ""
	}
	numWidth := len(fmt.Sprint(len(l.logs)))
	lines := make([]string, len(l.logs))
	for i, entry := range l.logs {
		num := logNumberStyle.Render(fmt.Sprintf("%*d.", numWidth, i+1))
		style := logLineStyle
		if entry.IsError() {
			style = logErrorStyle
		}
		lines[i] = num + " " + style.Render(entry.Text())
	}
	return strings.Join(lines, "\n")
}

// View renders the log viewer.
func (l *LogViewer) View() string {
	title := sectionHeaderStyle.Render("System log")
	count := hintStyle.Render(fmt.Sprintf("%d lines · r to refresh", len(l.logs)))
	gap := l.width - lipgloss.Width(title) - lipgloss.Width(count)
	if gap < 1 {
		gap = 1
	}
	header := title + strings.Repeat(" ", gap) + count + "\n" +
		lipgloss.NewStyle().Foreground(colorDim).Render(strings.Repeat("─", max(l.width, 1)))

	if !l.loaded {
		return header + "\n" + lipgloss.NewStyle().Foreground(colorDim).Width(l.width).Align(lipgloss.Center).
			Render("\nLoading logs...")
	}
	if len(l.logs) == 0 {
		return header + "\n" + lipgloss.NewStyle().Foreground(colorDim).Width(l.width).Align(lipgloss.Center).
			Render("\nNo logs yet.")
	}
	return header + "\n" + l.viewport.View()
}
