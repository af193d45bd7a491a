package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// panelLayout holds computed dimensions for the content panel.
type panelLayout struct {
	width       int // including border
	height      int // including border
	innerWidth  int
	innerHeight int
}

func computeLayout(width, height int) panelLayout {
	// Reserve: 1 line header, 1 line status bar
	contentHeight := height - 2
	if contentHeight < 3 {
		contentHeight = 3
	}
	if width < 3 {
		width = 3
	}
	return panelLayout{
		width:       width,
		height:      contentHeight,
		innerWidth:  width - 2,
		innerHeight: contentHeight - 2,
	}
}

func renderPanel(content string, layout panelLayout) string {
	return panelBorderStyle.
		Width(layout.innerWidth).
		Height(layout.innerHeight).
		Render(truncateContent(content, layout.innerWidth, layout.innerHeight))
}

// truncateContent ensures content fits within the given dimensions.
func truncateContent(content string, width, height int) string {
	lines := strings.Split(content, "\n")

	if len(lines) > height {
		lines = lines[:height]
	}

	// Truncate long lines (ANSI-aware)
	for i, line := range lines {
		if lipgloss.Width(line) > width {
			lines[i] = ansi.Truncate(line, width, "…")
		}
	}

	return strings.Join(lines, "\n")
}
