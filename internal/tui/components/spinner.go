package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"coursehub/internal/tui/styles"
)

// Spinner pairs the bubbles spinner with a status message.
type Spinner struct {
	model   spinner.Model
	message string
}

func NewSpinner(message string) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SpinnerStyle
	return Spinner{model: s, message: message}
}

func (s *Spinner) SetMessage(msg string) { s.message = msg }

// Tick starts the animation. Views return it from Init or when they
// enter a loading state, the spinner does not animate without it.
func (s Spinner) Tick() tea.Cmd { return s.model.Tick }

func (s *Spinner) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	s.model, cmd = s.model.Update(msg)
	return cmd
}

func (s Spinner) View() string {
	return s.model.View() + " " + styles.InfoStyle.Render(s.message)
}
