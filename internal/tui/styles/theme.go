// Package styles defines the Dracula-flavored lipgloss styles shared by
// the terminal UI and the CLI output helpers.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Dracula palette, https://draculatheme.com
const (
	Background  = "#282a36"
	CurrentLine = "#44475a"
	Foreground  = "#f8f8f2"
	Comment     = "#6272a4"
	Cyan        = "#8be9fd"
	Green       = "#50fa7b"
	Orange      = "#ffb86c"
	Pink        = "#ff79c6"
	Purple      = "#bd93f9"
	Red         = "#ff5555"
	Yellow      = "#f1fa8c"
)

func fg(c string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
}

func accent(c string) lipgloss.Style {
	return fg(c).Bold(true)
}

// onLine puts a style on the current-line background, the hover surface
// shared by inputs, tabs, table headers and the status bar.
func onLine(s lipgloss.Style) lipgloss.Style {
	return s.Background(lipgloss.Color(CurrentLine))
}

// invert renders background-colored text on a colored fill.
func invert(c string) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(Background)).
		Background(lipgloss.Color(c)).
		Bold(true)
}

func badge(c string) lipgloss.Style {
	return invert(c).Padding(0, 1)
}

func button(s lipgloss.Style) lipgloss.Style {
	return s.Padding(0, 2).MarginRight(2)
}

var (
	// App chrome
	AppStyle      = fg(Foreground).Background(lipgloss.Color(Background)).Padding(1, 2)
	TitleStyle    = accent(Purple).Background(lipgloss.Color(Background)).Padding(0, 1)
	SubtitleStyle = fg(Cyan).Background(lipgloss.Color(Background))

	StatusBarStyle       = onLine(fg(Foreground)).Padding(0, 1)
	StatusBarActiveStyle = onLine(accent(Green)).Padding(0, 1)

	// Inputs
	InputStyle        = onLine(fg(Foreground)).Padding(0, 1)
	InputFocusedStyle = onLine(accent(Pink)).Padding(0, 1)
	InputPromptStyle  = accent(Purple)

	// Lists
	ListItemStyle = fg(Foreground).PaddingLeft(2)

	ListItemSelectedStyle = onLine(accent(Pink)).
				PaddingLeft(1).
				Border(lipgloss.NormalBorder(), false, false, false, true).
				BorderForeground(lipgloss.Color(Purple))

	ListItemTitleStyle = accent(Cyan)
	ListItemDescStyle  = fg(Comment)

	// Buttons
	ButtonStyle        = button(onLine(fg(Foreground)))
	ButtonActiveStyle  = button(invert(Purple))
	ButtonSuccessStyle = button(invert(Green))

	// Cards
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(Purple)).
			Padding(1, 2).
			MarginBottom(1)

	CardTitleStyle   = accent(Pink)
	CardContentStyle = fg(Foreground)

	// Alerts
	InfoStyle    = accent(Cyan)
	SuccessStyle = accent(Green)
	WarningStyle = accent(Yellow)
	ErrorStyle   = accent(Red)

	// Help bar
	HelpStyle    = fg(Comment).Italic(true)
	HelpKeyStyle = accent(Purple)

	// Tables
	TableHeaderStyle      = onLine(accent(Pink)).Padding(0, 1).Align(lipgloss.Center)
	TableCellStyle        = fg(Foreground).Padding(0, 1)
	TableRowSelectedStyle = onLine(accent(Yellow)).Padding(0, 1)

	// Badges
	BadgePrimaryStyle = badge(Purple)
	BadgeSuccessStyle = badge(Green)
	BadgeWarningStyle = badge(Yellow)
	BadgeDangerStyle  = badge(Red)

	// Emphasis
	LinkStyle      = fg(Cyan).Underline(true)
	HighlightStyle = accent(Yellow)

	DividerStyle = fg(CurrentLine)
	SpinnerStyle = fg(Purple)

	ProgressBarFilled = fg(Green)
	ProgressBarEmpty  = fg(CurrentLine)

	// Key/value metadata
	MetaKeyStyle   = accent(Purple)
	MetaValueStyle = fg(Cyan)

	// Ratings
	RatingStarFilledStyle = accent(Yellow)
	RatingStarEmptyStyle  = fg(Comment)

	// Tabs
	TabStyle       = fg(Comment).Padding(0, 2)
	TabActiveStyle = onLine(accent(Pink)).Padding(0, 2)

	// Dialogs
	DialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(Pink)).
			Padding(1, 2).
			Background(lipgloss.Color(Background))

	DialogTitleStyle = accent(Pink).Align(lipgloss.Center)
)

// Truncate shortens s to maxLen runes, replacing the tail with "...".
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}

// RenderStars renders a star rating, filled stars first.
func RenderStars(rating float64, max int) string {
	filled := int(rating)
	// Clamp before Repeat, which panics on negative counts.
	if filled < 0 {
		filled = 0
	}
	if filled > max {
		filled = max
	}
	return RatingStarFilledStyle.Render(strings.Repeat("★", filled)) +
		RatingStarEmptyStyle.Render(strings.Repeat("★", max-filled))
}

// RenderDivider renders a horizontal rule.
func RenderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return DividerStyle.Render(strings.Repeat("─", width))
}

// RenderProgressBar renders current/total as a fixed-width bar.
func RenderProgressBar(current, total, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		filled = width * current / total
		if filled < 0 {
			filled = 0
		}
		if filled > width {
			filled = width
		}
	}
	return ProgressBarFilled.Render(strings.Repeat("█", filled)) +
		ProgressBarEmpty.Render(strings.Repeat("░", width-filled))
}

// RenderKeyValue renders "key: value" with metadata styling.
func RenderKeyValue(key, value string) string {
	return MetaKeyStyle.Render(key+":") + " " + MetaValueStyle.Render(value)
}

// RenderHelp renders alternating key, action pairs as a footer help bar.
func RenderHelp(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		if i > 0 {
			b.WriteString(HelpStyle.Render(" • "))
		}
		b.WriteString(HelpKeyStyle.Render(pairs[i]))
		b.WriteString(HelpStyle.Render(" " + pairs[i+1]))
	}
	return b.String()
}
