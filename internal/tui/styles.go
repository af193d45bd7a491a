package tui

import "github.com/charmbracelet/lipgloss"

// Colors using AdaptiveColor for light/dark terminal support.
var (
	colorWhite  = lipgloss.AdaptiveColor{Light: "0", Dark: "15"}
	colorDim    = lipgloss.AdaptiveColor{Light: "242", Dark: "240"}
	colorGreen  = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
	colorRed    = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	colorYellow = lipgloss.AdaptiveColor{Light: "136", Dark: "220"}
	colorBlue   = lipgloss.AdaptiveColor{Light: "25", Dark: "33"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "30", Dark: "45"}
)

// Layout styles.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Background(lipgloss.AdaptiveColor{Light: "235", Dark: "236"})

	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim)
)

// Tab styles.
var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(colorWhite)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorDim)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

// Engine badge styles.
var (
	badgeRunningStyle = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	badgeStoppedStyle = lipgloss.NewStyle().Foreground(colorDim)
	badgeUnknownStyle = lipgloss.NewStyle().Foreground(colorYellow)
	badgeSyncStyle    = lipgloss.NewStyle().Foreground(colorCyan)
)

// Dashboard card styles.
var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	cardTitleStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	cardValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorWhite)

	actionStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	actionDisabledStyle = lipgloss.NewStyle().
				Foreground(colorDim)
)

// Log viewer styles.
var (
	logNumberStyle = lipgloss.NewStyle().Foreground(colorDim)
	logLineStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	logErrorStyle  = lipgloss.NewStyle().Foreground(colorRed)
)

// Overlay styles.
var (
	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorWhite).
			Padding(1, 2)

	overlayTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorWhite).
				MarginBottom(1)

	overlayDimStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

// Key hint styles for status bar.
var (
	keyStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	hintStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// Settings form styles.
var (
	settingsLabelStyle = lipgloss.NewStyle().
				Width(20).
				Foreground(colorDim)

	settingsValueStyle = lipgloss.NewStyle().
				Foreground(colorWhite)

	settingsToggleOn = lipgloss.NewStyle().
				Foreground(colorGreen).
				Bold(true)

	settingsToggleOff = lipgloss.NewStyle().
				Foreground(colorRed)

	settingsCursorStyle = lipgloss.NewStyle().
				Background(lipgloss.AdaptiveColor{Light: "254", Dark: "237"})

	settingsWarnStyle = lipgloss.NewStyle().
				Foreground(colorYellow)
)
