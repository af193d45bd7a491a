package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// overlayKind identifies the modal drawn above the current view.
type overlayKind int

const (
	overlayNone overlayKind = iota
	overlayHelp
	overlayUpload
)

// renderOverlay dims base and draws box centered over it, clamped to
// one cell from the top-left edge.
func renderOverlay(base, box string, width, height int) string {
	rows := strings.Split(base, "\n")
	for i, row := range rows {
		rows[i] = overlayDimStyle.Render(row)
	}

	boxRows := strings.Split(box, "\n")
	top := max((height-len(boxRows))/2, 1)
	left := max((width-lipgloss.Width(box))/2, 1)

	for i, boxRow := range boxRows {
		if top+i >= len(rows) {
			break
		}
		rows[top+i] = spliceRow(rows[top+i], boxRow, left)
	}
	return strings.Join(rows, "\n")
}

// spliceRow replaces the cells of bg starting at column left with fg,
// keeping the styled background on either side.
func spliceRow(bg, fg string, left int) string {
	bgWidth := lipgloss.Width(bg)
	tail := ""
	if end := left + lipgloss.Width(fg); end < bgWidth {
		tail = ansi.Cut(bg, end, bgWidth)
	}
	return ansi.Truncate(bg, left, "") + ansi.ResetStyle + fg + ansi.ResetStyle + tail
}
