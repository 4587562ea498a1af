package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"coursehub/internal/tui/focus"
)

// KeyMap lists the bindings the help view shows. Views match on the
// key string directly, this map exists for the global shortcuts and
// the help overlay.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	Enter   key.Binding
	Back    key.Binding
	Quit    key.Binding
	Help    key.Binding
	Refresh key.Binding

	Dashboard key.Binding
	Browse    key.Binding
	Search    key.Binding
	Chat      key.Binding
	Stats     key.Binding

	NextTab key.Binding
	PrevTab key.Binding

	// ForceQuit works even while a text field has the keyboard. It is
	// not listed in the help views.
	ForceQuit key.Binding
}

// AllowGlobal reports whether a keypress may trigger a global
// shortcut. While a text field or dialog owns the keyboard only
// ctrl+c stays global, everything else goes to the view.
func (k KeyMap) AllowGlobal(mode focus.Mode, msg tea.KeyMsg) bool {
	if mode == focus.ModeNavigation {
		return true
	}
	return key.Matches(msg, k.ForceQuit)
}

// bind builds a binding whose help entry shows label.
func bind(label, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(label, desc))
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       bind("↑/k", "up", "up", "k"),
		Down:     bind("↓/j", "down", "down", "j"),
		PageUp:   bind("p", "prev page", "pgup", "p"),
		PageDown: bind("n", "next page", "pgdown", "n"),

		Enter:   bind("enter", "select", "enter"),
		Back:    bind("esc", "back", "esc", "backspace"),
		Quit:    bind("q", "quit", "q"),
		Help:    bind("?", "help", "?"),
		Refresh: bind("r", "refresh", "r"),

		Dashboard: bind("1", "dashboard", "1"),
		Browse:    bind("2", "browse", "2"),
		Search:    bind("3", "search", "3"),
		Chat:      bind("4", "study rooms", "4"),
		Stats:     bind("5", "stats", "5"),

		NextTab: bind("tab", "next tab", "tab"),
		PrevTab: bind("shift+tab", "prev tab", "shift+tab"),

		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

// ShortHelp is the single-line hint strip.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Enter, k.Back, k.Help, k.Quit,
	}
}

// FullHelp is the expanded overlay, one slice per column.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Enter, k.Back, k.NextTab, k.PrevTab},
		{k.Dashboard, k.Browse, k.Search, k.Chat, k.Stats},
		{k.Refresh, k.Help, k.Quit},
	}
}
