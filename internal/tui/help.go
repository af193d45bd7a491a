package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type helpSection struct {
	title string
	keys  []helpKey
}

type helpKey struct {
	key  string
	desc string
}

var helpSections = []helpSection{
	{
		title: "Global",
		keys: []helpKey{
			{"Ctrl+q", "Quit"},
			{"? / Ctrl+h", "Toggle help"},
			{"Tab", "Next view"},
			{"1/2/3", "Dashboard / Settings / Logs"},
		},
	},
	{
		title: "Dashboard",
		keys: []helpKey{
			{"r", "Run task now"},
			{"u", "Upload a file"},
			{"R", "Refresh status and config"},
		},
	},
	{
		title: "Settings",
		keys: []helpKey{
			{"j/k", "Navigate fields"},
			{"Enter", "Edit text field"},
			{"Space", "Toggle / cycle"},
			{"Ctrl+s", "Save draft"},
			{"Ctrl+z", "Revert draft"},
		},
	},
	{
		title: "Logs",
		keys: []helpKey{
			{"j/k ↑/↓", "Scroll"},
			{"PgUp/PgDn", "Scroll half a page"},
			{"g/G", "Top / bottom"},
			{"r", "Refresh now"},
		},
	},
}

// renderHelp renders the help overlay content.
func renderHelp(width int) string {
	maxWidth := 60
	if width-4 < maxWidth {
		maxWidth = width - 4
	}
	if maxWidth < 30 {
		maxWidth = 30
	}

	title := overlayTitleStyle.Render("Keyboard Shortcuts")
	sections := make([]string, 0, len(helpSections)*4+3)
	sections = append(sections, title)

	for _, sec := range helpSections {
		header := lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Render(sec.title)
		sections = append(sections, "", header)

		for _, k := range sec.keys {
			keyCol := lipgloss.NewStyle().
				Width(14).
				Foreground(colorWhite).
				Bold(true).
				Render(k.key)
			descCol := lipgloss.NewStyle().
				Foreground(colorDim).
				Render(k.desc)
			sections = append(sections, "  "+keyCol+descCol)
		}
	}

	sections = append(sections, "", lipgloss.NewStyle().Foreground(colorDim).Render("Press Esc or ? to close"))

	content := strings.Join(sections, "\n")
	return overlayStyle.Width(maxWidth).Render(content)
}
