package components

import (
	"coursehub/internal/tui/styles"
)

// ErrorDialog is the modal box views show when a load or submit fails.
// While it is visible the root model keeps the keyboard in dialog mode,
// so only retry/dismiss keys reach the view.
type ErrorDialog struct {
	title string
	hint  string
	err   error
}

// NewErrorDialog creates a hidden dialog. The hint names the retry and
// dismiss keys, e.g. "r retry • esc back".
func NewErrorDialog(title, hint string) ErrorDialog {
	return ErrorDialog{title: title, hint: hint}
}

// Show makes the dialog visible with the given failure.
func (d *ErrorDialog) Show(err error) { d.err = err }

// Clear hides the dialog.
func (d *ErrorDialog) Clear() { d.err = nil }

// Visible reports whether a failure is being shown.
func (d ErrorDialog) Visible() bool { return d.err != nil }

func (d ErrorDialog) View() string {
	if d.err == nil {
		return ""
	}
	body := styles.DialogTitleStyle.Render("⚠ "+d.title) + "\n\n" +
		styles.CardContentStyle.Render(d.err.Error())
	if d.hint != "" {
		body += "\n\n" + styles.HelpStyle.Render(d.hint)
	}
	return styles.DialogStyle.Render(body)
}
