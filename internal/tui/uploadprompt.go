package tui

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
)

// UploadPrompt asks for a local file path to upload.
type UploadPrompt struct {
	input textinput.Model
	err   string
	width int
}

// NewUploadPrompt creates a focused prompt.
func NewUploadPrompt(width int) *UploadPrompt {
	ti := textinput.New()
	ti.Placeholder = "/path/to/report.xlsx"
	ti.CharLimit = 1024
	ti.Width = width - 8
	ti.Focus()
	return &UploadPrompt{input: ti, width: width}
}

// Input returns the text input for Update forwarding.
func (u *UploadPrompt) Input() *textinput.Model {
	return &u.input
}

// Path validates and returns the entered path with ~ expanded. ok is false
// when the path does not name a regular file; the reason is shown in the
// prompt.
func (u *UploadPrompt) Path() (path string, ok bool) {
	path = expandHome(strings.TrimSpace(u.input.Value()))
	if path == "" {
		u.err = "enter a file path"
		return "", false
	}
	info, err := os.Stat(path)
	switch {
	case err != nil:
		u.err = "file not found: " + path
		return "", false
	case !info.Mode().IsRegular():
		u.err = "not a regular file: " + path
		return "", false
	}
	u.err = ""
	return path, true
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// View renders the prompt.
func (u *UploadPrompt) View() string {
	lines := []string{
		overlayTitleStyle.Render("Upload file"),
		hintStyle.Render("The file is copied into the monitored folder."),
		"",
		u.input.View(),
	}
	if u.err != "" {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(colorRed).Render(u.err))
	}
	lines = append(lines, "", keyHint("Enter", "upload")+"  "+keyHint("Esc", "cancel"))
	return overlayStyle.Width(u.width).Render(strings.Join(lines, "\n"))
}
