package components

import "coursehub/internal/tui/styles"

// ButtonState selects how a Button renders.
type ButtonState int

const (
	ButtonNormal ButtonState = iota
	ButtonActive
	ButtonDisabled
	ButtonLoading
	ButtonSuccess
)

// Button is a focusable action label. Submission itself stays in the
// owning view, the button only tracks presentation state.
type Button struct {
	label string
	state ButtonState
}

func NewButton(label string) Button {
	return Button{label: label}
}

func (b *Button) SetState(state ButtonState) { b.state = state }
func (b *Button) SetLabel(label string)      { b.label = label }

// Enabled reports whether the button accepts activation.
func (b Button) Enabled() bool {
	return b.state != ButtonDisabled && b.state != ButtonLoading
}

func (b Button) View() string {
	switch b.state {
	case ButtonActive:
		return styles.ButtonActiveStyle.Render("[ " + b.label + " ]")
	case ButtonDisabled:
		return styles.HelpStyle.Render("[ " + b.label + " ]")
	case ButtonLoading:
		return styles.ButtonActiveStyle.Render("[ ⟳ " + b.label + "... ]")
	case ButtonSuccess:
		return styles.ButtonSuccessStyle.Render("[ ✓ " + b.label + " ]")
	default:
		return styles.ButtonStyle.Render("[ " + b.label + " ]")
	}
}
