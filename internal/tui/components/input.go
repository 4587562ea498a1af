package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"coursehub/internal/tui/styles"
)

// Input is a labeled text field with required/validator checks and an
// inline error line under the box.
type Input struct {
	field    textinput.Model
	label    string
	errMsg   string
	required bool
	disabled bool
	validate func(string) error
}

// NewInput creates a labeled text input.
func NewInput(label, placeholder string) Input {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 200
	ti.Width = 40
	return Input{field: ti, label: label}
}

// NewPasswordInput creates a masked input.
func NewPasswordInput(label string) Input {
	in := NewInput(label, "••••••••")
	in.field.EchoMode = textinput.EchoPassword
	in.field.EchoCharacter = '•'
	in.field.CharLimit = 100
	return in
}

// SetRequired makes empty values fail Validate.
func (i *Input) SetRequired(required bool) { i.required = required }

// SetValidator adds a check run by Validate on non-empty values.
func (i *Input) SetValidator(fn func(string) error) { i.validate = fn }

// SetDisabled greys the field out and makes Update a no-op.
func (i *Input) SetDisabled(disabled bool) { i.disabled = disabled }

func (i *Input) Focus() tea.Cmd { return i.field.Focus() }
func (i *Input) Blur()          { i.field.Blur() }
func (i *Input) Focused() bool  { return i.field.Focused() }

// Value returns the trimmed field content.
func (i *Input) Value() string { return strings.TrimSpace(i.field.Value()) }

// Reset clears the content and any validation error.
func (i *Input) Reset() {
	i.field.Reset()
	i.errMsg = ""
}

// Validate checks required-ness, then the custom validator. The failure
// sticks to the field so View can render it inline.
func (i *Input) Validate() error {
	v := i.Value()
	if i.required && v == "" {
		err := fmt.Errorf("%s is required", strings.ToLower(i.label))
		i.errMsg = err.Error()
		return err
	}
	if i.validate != nil && v != "" {
		if err := i.validate(v); err != nil {
			i.errMsg = err.Error()
			return err
		}
	}
	i.errMsg = ""
	return nil
}

// Update forwards to the wrapped textinput. Typing clears a stale
// validation error.
func (i *Input) Update(msg tea.Msg) tea.Cmd {
	if i.disabled {
		return nil
	}
	var cmd tea.Cmd
	i.field, cmd = i.field.Update(msg)
	if _, typed := msg.(tea.KeyMsg); typed {
		i.errMsg = ""
	}
	return cmd
}

// View renders label, field and error line.
func (i Input) View() string {
	label := i.label
	if i.required {
		label += " " + styles.ErrorStyle.Render("*")
	}

	var labelStyle, boxStyle lipgloss.Style
	switch {
	case i.disabled:
		labelStyle, boxStyle = styles.HelpStyle, styles.HelpStyle
	case i.field.Focused():
		labelStyle, boxStyle = styles.InputFocusedStyle, styles.InputFocusedStyle
	default:
		labelStyle, boxStyle = styles.InputPromptStyle, styles.InputStyle
	}

	out := labelStyle.Render(label) + "\n" + boxStyle.Render(i.field.View())
	if i.errMsg != "" {
		out += "\n" + styles.ErrorStyle.Render("✗ "+i.errMsg)
	}
	return out
}
