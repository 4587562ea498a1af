// Package focus tracks which layer of the TUI owns the keyboard: list
// navigation, a focused text field, or a modal dialog.
package focus

// Mode says who gets a keypress first.
type Mode int

const (
	// ModeNavigation routes keys to lists and global shortcuts.
	ModeNavigation Mode = iota
	// ModeInput routes keys to a focused text field.
	ModeInput
	// ModeDialog routes keys to a modal dialog.
	ModeDialog
)

// Manager holds the current mode. The root model derives the mode from
// the active view before every keypress, so this is just the latest
// reading, there is no enter/exit bookkeeping to balance.
type Manager struct {
	mode Mode
}

// NewManager starts in navigation mode.
func NewManager() *Manager {
	return &Manager{mode: ModeNavigation}
}

// Set records the derived mode.
func (m *Manager) Set(mode Mode) {
	m.mode = mode
}

// Mode returns the last derived mode.
func (m *Manager) Mode() Mode {
	return m.mode
}

// InputActive reports whether a text field or dialog has the keyboard.
func (m *Manager) InputActive() bool {
	return m.mode != ModeNavigation
}
