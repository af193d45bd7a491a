package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/watchfire-io/dropdeck/internal/models"
)

var viewNames = []string{"Dashboard", "Settings", "Logs"}

func renderHeader(status *models.Status, active int, width int) string {
	dot := lipgloss.NewStyle().Foreground(colorBlue).Render("●")
	name := lipgloss.NewStyle().Bold(true).Render("dropdeck")

	tabs := renderTabs(viewNames, active)
	badge := renderEngineBadge(status)

	left := fmt.Sprintf(" %s %s  %s", dot, name, tabs)
	right := badge + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return headerStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func renderTabs(tabs []string, active int) string {
	var parts []string
	for i, tab := range tabs {
		label := fmt.Sprintf("%d %s", i+1, tab)
		if i == active {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, inactiveTabStyle.Render(label))
		}
	}
	return strings.Join(parts, tabSepStyle.Render(" | "))
}

func renderEngineBadge(status *models.Status) string {
	switch {
	case status == nil:
		return badgeUnknownStyle.Render("○ Unknown")
	case status.Running:
		return badgeRunningStyle.Render("● Running")
	default:
		return badgeStoppedStyle.Render("● Stopped")
	}
}
