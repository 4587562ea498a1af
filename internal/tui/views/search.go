package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"coursehub/internal/tui/api"
	"coursehub/internal/tui/components"
	"coursehub/internal/tui/styles"
	"coursehub/pkg/models"
	"coursehub/pkg/utils"
)

// SearchModel is the full-text course search screen. The query field
// and the result list share the keyboard, "/" always returns to the
// field and moving past the top of the list does too.
type SearchModel struct {
	apiClient *api.Client

	input     textinput.Model
	lastQuery string

	results  []models.CourseWithCategories
	total    int
	page     int
	pageSize int
	cursor   int

	searched bool
	loading  bool
	spin     components.Spinner
	dialog   components.ErrorDialog

	width  int
	height int
}

func NewSearchModel(apiClient *api.Client, pageSize int) SearchModel {
	if pageSize <= 0 {
		pageSize = 20
	}

	input := textinput.New()
	input.Placeholder = "Search courses by title or description..."
	input.CharLimit = 100
	input.Width = 50
	input.Focus()

	return SearchModel{
		apiClient: apiClient,
		input:     input,
		page:      1,
		pageSize:  pageSize,
		spin:      components.NewSpinner("Searching..."),
		dialog:    components.NewErrorDialog("Search failed", "r retry • esc dismiss"),
	}
}

func (m SearchModel) Init() tea.Cmd {
	return textinput.Blink
}

// InputFocused reports whether typed keys belong to the query field.
func (m SearchModel) InputFocused() bool { return m.input.Focused() }

// HasDialog reports whether the error dialog owns the keyboard.
func (m SearchModel) HasDialog() bool { return m.dialog.Visible() }

func (m SearchModel) Update(msg tea.Msg) (SearchModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case SearchResultsMsg:
		m.loading = false
		m.results = msg.Results
		m.total = msg.Total
		m.cursor = 0
		return m, nil

	case SearchErrorMsg:
		m.loading = false
		m.dialog.Show(msg.Err)
		return m, nil
	}

	if m.loading {
		return m, m.spin.Update(msg)
	}
	return m, nil
}

func (m SearchModel) handleKeys(msg tea.KeyMsg) (SearchModel, tea.Cmd) {
	if m.dialog.Visible() {
		switch msg.String() {
		case "r":
			m.dialog.Clear()
			if m.lastQuery != "" {
				return m.search()
			}
		case "esc", "enter":
			m.dialog.Clear()
		}
		return m, nil
	}

	if m.input.Focused() {
		switch msg.String() {
		case "enter":
			query := strings.TrimSpace(m.input.Value())
			if query == "" {
				return m, nil
			}
			m.lastQuery = query
			m.searched = true
			m.page = 1
			return m.search()
		case "down":
			if len(m.results) > 0 {
				m.input.Blur()
			}
			return m, nil
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() == "" && m.searched {
			// Stale results under an empty query read as current ones.
			m.results = nil
			m.total = 0
			m.searched = false
		}
		return m, cmd
	}

	switch msg.String() {
	case "/":
		m.input.Focus()
		return m, textinput.Blink
	case "down", "j":
		if m.cursor < len(m.results)-1 {
			m.cursor++
		}
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		} else {
			// Past the top, the keyboard goes back to the query field.
			m.input.Focus()
			return m, textinput.Blink
		}
	case "n", "pgdown":
		if m.page < m.totalPages() {
			m.page++
			m.cursor = 0
			return m.search()
		}
	case "p", "pgup":
		if m.page > 1 {
			m.page--
			m.cursor = 0
			return m.search()
		}
	case "enter":
		if len(m.results) > 0 {
			courseID := m.results[m.cursor].ID
			return m, func() tea.Msg {
				return SelectCourseMsg{CourseID: courseID}
			}
		}
	}
	return m, nil
}

// search runs the query for the current page.
func (m SearchModel) search() (SearchModel, tea.Cmd) {
	m.loading = true
	client := m.apiClient
	query := m.lastQuery
	page := m.page
	limit := m.pageSize
	return m, tea.Batch(m.spin.Tick(), func() tea.Msg {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()
		resp, err := client.SearchCourses(ctx, query, page, limit)
		if err != nil {
			return SearchErrorMsg{Err: err}
		}
		return SearchResultsMsg{Results: resp.Data, Total: resp.Total}
	})
}

func (m SearchModel) totalPages() int {
	if m.total == 0 {
		return 1
	}
	pages := m.total / m.pageSize
	if m.total%m.pageSize > 0 {
		pages++
	}
	return pages
}

func (m SearchModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("🔍 Search Courses"))
	b.WriteString("\n\n")

	prompt := styles.InputStyle
	if m.input.Focused() {
		prompt = styles.InputFocusedStyle
	}
	b.WriteString(prompt.Render("Search:"))
	b.WriteString(" ")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.spin.View())
		return b.String()
	case m.dialog.Visible():
		b.WriteString(m.dialog.View())
		return b.String()
	case !m.searched:
		b.WriteString(styles.HelpStyle.Render("Enter a search term and press Enter"))
		return b.String()
	case len(m.results) == 0:
		b.WriteString(styles.InfoStyle.Render("No results found for: "))
		b.WriteString(styles.HighlightStyle.Render(m.lastQuery))
		return b.String()
	}

	header := fmt.Sprintf("Found %d results (page %d/%d)", m.total, m.page, m.totalPages())
	b.WriteString(styles.SubtitleStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(styles.RenderDivider(40))
	b.WriteString("\n\n")

	for i, course := range m.results {
		prefix := "  "
		style := styles.ListItemStyle
		if i == m.cursor && !m.input.Focused() {
			prefix = "▸ "
			style = styles.ListItemSelectedStyle
		}

		title := styles.ListItemTitleStyle.Render(styles.Truncate(course.Title, 40))
		level := renderLevelBadge(course.Level)
		price := renderPrice(course.PriceCents, course.Currency)
		b.WriteString(style.Render(fmt.Sprintf("%s%s %s %s", prefix, title, level, price)))

		if i == m.cursor && !m.input.Focused() && course.Instructor != "" {
			b.WriteString("\n    ")
			b.WriteString(styles.ListItemDescStyle.Render("by " + course.Instructor))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	pairs := []string{"/", "focus search", "↑/↓", "navigate", "enter", "open"}
	if m.page > 1 {
		pairs = append(pairs, "p", "prev page")
	}
	if m.page < m.totalPages() {
		pairs = append(pairs, "n", "next page")
	}
	b.WriteString(styles.RenderHelp(pairs...))

	return b.String()
}

// Messages

// SearchResultsMsg delivers one page of matches.
type SearchResultsMsg struct {
	Results []models.CourseWithCategories
	Total   int
}

// SearchErrorMsg reports a failed search.
type SearchErrorMsg struct {
	Err error
}
