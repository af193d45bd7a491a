package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/watchfire-io/dropdeck/internal/models"
)

// FieldType defines the type of a settings field.
type FieldType int

const (
	fieldText FieldType = iota
	fieldToggle
	fieldChoice
)

// SettingsField is a single field in the settings form, bound to one
// attribute of the config draft.
type SettingsField struct {
	Label   string
	Type    FieldType
	Masked  bool
	Choices []string

	get     func(*models.Config) string
	set     func(*models.Config, string)
	getBool func(*models.Config) bool
	setBool func(*models.Config, bool)
	visible func(*models.Config) bool
}

func scheduleEnabled(c *models.Config) bool { return c.Schedule.Enabled }

var settingsFields = []SettingsField{
	{
		Label: "Monitor folder", Type: fieldText,
		get: func(c *models.Config) string { return c.MonitorFolder },
		set: func(c *models.Config, v string) { c.MonitorFolder = v },
	},
	{
		Label: "Corp ID", Type: fieldText,
		get: func(c *models.Config) string { return c.WeCom.CorpID },
		set: func(c *models.Config, v string) { c.WeCom.CorpID = v },
	},
	{
		Label: "Agent ID", Type: fieldText,
		get: func(c *models.Config) string { return c.WeCom.AgentID },
		set: func(c *models.Config, v string) { c.WeCom.AgentID = v },
	},
	{
		Label: "Secret", Type: fieldText, Masked: true,
		get: func(c *models.Config) string { return c.WeCom.Secret },
		set: func(c *models.Config, v string) { c.WeCom.Secret = v },
	},
	{
		Label: "To users", Type: fieldText,
		get: func(c *models.Config) string { return c.WeCom.ToUser },
		set: func(c *models.Config, v string) { c.WeCom.ToUser = v },
	},
	{
		Label: "To parties", Type: fieldText,
		get: func(c *models.Config) string { return c.WeCom.ToParty },
		set: func(c *models.Config, v string) { c.WeCom.ToParty = v },
	},
	{
		Label: "Token", Type: fieldText,
		get: func(c *models.Config) string { return c.WeCom.Token },
		set: func(c *models.Config, v string) { c.WeCom.Token = v },
	},
	{
		Label: "EncodingAESKey", Type: fieldText,
		get: func(c *models.Config) string { return c.WeCom.AESKey },
		set: func(c *models.Config, v string) { c.WeCom.AESKey = v },
	},
	{
		Label: "Schedule", Type: fieldToggle,
		getBool: scheduleEnabled,
		setBool: func(c *models.Config, v bool) { c.Schedule.Enabled = v },
	},
	{
		Label: "Frequency", Type: fieldChoice,
		Choices: []string{models.FrequencyDaily, models.FrequencyHourly},
		get:     func(c *models.Config) string { return c.Schedule.Frequency },
		set:     func(c *models.Config, v string) { c.Schedule.Frequency = v },
		visible: scheduleEnabled,
	},
	{
		Label: "Time (HH:MM)", Type: fieldText,
		get:     func(c *models.Config) string { return c.Schedule.Time },
		set:     func(c *models.Config, v string) { c.Schedule.Time = v },
		visible: scheduleEnabled,
	},
}

// SettingsForm edits a local draft of the remote config. The draft is a
// copy; the Store's config only changes when a save succeeds.
type SettingsForm struct {
	base    *models.Config
	draft   *models.Config
	dirty   bool
	cursor  int
	editing bool
	input   textinput.Model
	width   int
	height  int
}

// NewSettingsForm creates a new settings form.
func NewSettingsForm() *SettingsForm {
	ti := textinput.New()
	ti.CharLimit = 256
	return &SettingsForm{
		input: ti,
	}
}

// LoadFromConfig replaces the draft with cfg unless there are unsaved
// edits.
func (s *SettingsForm) LoadFromConfig(cfg *models.Config) {
	if cfg == nil {
		return
	}
	s.base = cfg.Clone()
	if s.dirty {
		return
	}
	s.draft = cfg.Clone()
	s.clampCursor()
}

// Loaded reports whether a config has been received.
func (s *SettingsForm) Loaded() bool {
	return s.draft != nil
}

// Dirty reports whether the draft has unsaved edits.
func (s *SettingsForm) Dirty() bool {
	return s.dirty
}

// Draft returns a copy of the current draft.
func (s *SettingsForm) Draft() *models.Config {
	return s.draft.Clone()
}

// MarkSaved records that the draft was committed.
func (s *SettingsForm) MarkSaved() {
	s.dirty = false
	s.base = s.draft.Clone()
}

// Revert discards unsaved edits.
func (s *SettingsForm) Revert() {
	s.CancelEdit()
	s.dirty = false
	s.draft = s.base.Clone()
	s.clampCursor()
}

// SetSize updates dimensions.
func (s *SettingsForm) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.input.Width = width - 24
}

func (s *SettingsForm) visibleFields() []*SettingsField {
	if s.draft == nil {
		return nil
	}
	var out []*SettingsField
	for i := range settingsFields {
		f := &settingsFields[i]
		if f.visible == nil || f.visible(s.draft) {
			out = append(out, f)
		}
	}
	return out
}

func (s *SettingsForm) current() *SettingsField {
	fields := s.visibleFields()
	if s.cursor < 0 || s.cursor >= len(fields) {
		return nil
	}
	return fields[s.cursor]
}

func (s *SettingsForm) clampCursor() {
	n := len(s.visibleFields())
	if s.cursor >= n {
		s.cursor = n - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// MoveUp moves cursor up.
func (s *SettingsForm) MoveUp() {
	if !s.editing && s.cursor > 0 {
		s.cursor--
	}
}

// MoveDown moves cursor down.
func (s *SettingsForm) MoveDown() {
	if !s.editing && s.cursor < len(s.visibleFields())-1 {
		s.cursor++
	}
}

// Toggle flips a boolean field or cycles a choice field.
func (s *SettingsForm) Toggle() bool {
	f := s.current()
	if f == nil {
		return false
	}
	switch f.Type {
	case fieldToggle:
		f.setBool(s.draft, !f.getBool(s.draft))
	case fieldChoice:
		f.set(s.draft, nextChoice(f.Choices, f.get(s.draft)))
	default:
		return false
	}
	s.dirty = true
	s.clampCursor()
	return true
}

func nextChoice(choices []string, current string) string {
	for i, c := range choices {
		if c == current {
			return choices[(i+1)%len(choices)]
		}
	}
	return choices[0]
}

// StartEdit begins inline editing of the current text field.
func (s *SettingsForm) StartEdit() bool {
	f := s.current()
	if f == nil || f.Type != fieldText {
		return false
	}
	s.editing = true
	if f.Masked {
		s.input.EchoMode = textinput.EchoPassword
	} else {
		s.input.EchoMode = textinput.EchoNormal
	}
	s.input.SetValue(f.get(s.draft))
	s.input.CursorEnd()
	s.input.Focus()
	return true
}

// FinishEdit writes the edited value into the draft.
func (s *SettingsForm) FinishEdit() bool {
	if !s.editing {
		return false
	}
	s.editing = false
	s.input.Blur()

	f := s.current()
	if f == nil {
		return false
	}
	newVal := strings.TrimSpace(s.input.Value())
	if newVal == f.get(s.draft) {
		return false
	}
	f.set(s.draft, newVal)
	s.dirty = true
	return true
}

// CancelEdit cancels the current edit.
func (s *SettingsForm) CancelEdit() {
	s.editing = false
	s.input.Blur()
}

// IsEditing returns whether a field is being edited.
func (s *SettingsForm) IsEditing() bool {
	return s.editing
}

// InputModel returns the text input model for Update forwarding.
func (s *SettingsForm) InputModel() *textinput.Model {
	return &s.input
}

// View renders the settings form.
func (s *SettingsForm) View() string {
	if s.draft == nil {
		return lipgloss.NewStyle().Foreground(colorDim).Render("Loading settings...")
	}

	var lines []string
	for i, f := range s.visibleFields() {
		label := settingsLabelStyle.Render(f.Label + ":")

		var val string
		switch {
		case f.Type == fieldToggle:
			if f.getBool(s.draft) {
				val = settingsToggleOn.Render("[ON]")
			} else {
				val = settingsToggleOff.Render("[OFF]")
			}
		case f.Type == fieldChoice:
			val = settingsValueStyle.Render("< " + f.get(s.draft) + " >")
		case s.editing && i == s.cursor:
			val = s.input.View()
		default:
			v := f.get(s.draft)
			switch {
			case v == "":
				val = lipgloss.NewStyle().Foreground(colorDim).Render("(empty)")
			case f.Masked:
				val = settingsValueStyle.Render(strings.Repeat("•", min(len(v), 12)))
			default:
				val = settingsValueStyle.Render(v)
			}
		}

		line := label + " " + val
		if i == s.cursor {
			line = settingsCursorStyle.Width(s.width).Render(line)
		}
		lines = append(lines, line)
	}

	lines = append(lines, "")
	if s.dirty {
		lines = append(lines, settingsWarnStyle.Render("Unsaved changes. Ctrl+s to save, Ctrl+z to revert."))
	}
	for _, err := range s.draft.Validate() {
		lines = append(lines, settingsWarnStyle.Render("⚠ "+err.Error()))
	}

	return strings.Join(lines, "\n")
}
