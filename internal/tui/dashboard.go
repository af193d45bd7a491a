package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/watchfire-io/dropdeck/internal/models"
	"github.com/watchfire-io/dropdeck/internal/store"
)

// dashboardData is what the dashboard renders from.
type dashboardData struct {
	snap      store.Snapshot
	busy      bool
	spinner   string
	serverURL string
	failure   string // shown while loading
}

func renderDashboard(d dashboardData, width int) string {
	if d.snap.Status == nil || d.snap.Config == nil {
		text := "\nLoading...\n\n" + d.serverURL
		if d.failure != "" {
			text += "\n\n" + logErrorStyle.Render("Last error: "+d.failure)
		}
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Align(lipgloss.Center).
			Render(text)
	}

	status := d.snap.Status
	cfg := d.snap.Config

	cardWidth := (width - 6) / 3
	if cardWidth < 18 {
		cardWidth = 18
	}

	statusValue := badgeStoppedStyle.Render("Stopped")
	if status.Running {
		statusValue = badgeRunningStyle.Render("Running")
	}
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		renderCard("Engine", statusValue, cardWidth),
		" ",
		renderCard("Next run", cardValueStyle.Render(status.NextRunLabel()), cardWidth),
		" ",
		renderCard("Monitor folder", cardValueStyle.Render(formatFolder(cfg.MonitorFolder)), cardWidth),
	)

	lines := []string{
		cards,
		"",
		sectionHeaderStyle.Render("Schedule"),
		"  " + formatSchedule(cfg.Schedule),
		"",
		sectionHeaderStyle.Render("Notifications"),
		"  " + formatRecipients(cfg.WeCom),
		"",
		sectionHeaderStyle.Render("Actions"),
		"  " + renderAction("r", "Run task now", "Running...", d.busy, d.spinner),
		"  " + renderAction("u", "Upload a file into the monitored folder", "Uploading...", d.busy, d.spinner),
	}
	return strings.Join(lines, "\n")
}

func renderCard(title, value string, width int) string {
	return cardStyle.Width(width).Render(cardTitleStyle.Render(title) + "\n" + value)
}

func renderAction(k, label, busyLabel string, busy bool, spinner string) string {
	if busy {
		return actionDisabledStyle.Render(fmt.Sprintf("[%s] ", k)) + spinner + " " + actionDisabledStyle.Render(busyLabel)
	}
	return actionStyle.Render(fmt.Sprintf("[%s]", k)) + " " + label
}

func formatFolder(folder string) string {
	if folder == "" {
		return "not configured"
	}
	return folder
}

func formatSchedule(s models.ScheduleConfig) string {
	if !s.Enabled {
		return hintStyle.Render("disabled")
	}
	if s.Frequency == models.FrequencyHourly {
		return fmt.Sprintf("hourly (from %s)", s.Time)
	}
	return fmt.Sprintf("daily at %s", s.Time)
}

func formatRecipients(w models.WeComConfig) string {
	if w.CorpID == "" || w.AgentID == "" {
		return hintStyle.Render("WeCom not configured")
	}
	parts := []string{"agent " + w.AgentID}
	if w.ToUser != "" {
		parts = append(parts, "users "+w.ToUser)
	}
	if w.ToParty != "" {
		parts = append(parts, "parties "+w.ToParty)
	}
	return strings.Join(parts, ", ")
}
