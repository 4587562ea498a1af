package views

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"coursehub/internal/tui/api"
	"coursehub/internal/tui/components"
	"coursehub/internal/tui/styles"
	"coursehub/pkg/models"
	"coursehub/pkg/utils"
)

// catalogCategory pairs a category id with its display name. The ids
// match the rows seeded by scripts/schema.sql. The zero entry clears
// the filter.
type catalogCategory struct {
	id   string
	name string
}

var catalogCategories = []catalogCategory{
	{"", "All"},
	{"programming", "Programming"},
	{"web-development", "Web Development"},
	{"data-science", "Data Science"},
	{"design", "Design"},
	{"business", "Business"},
	{"marketing", "Marketing"},
	{"music", "Music"},
	{"photography", "Photography"},
	{"language", "Language"},
	{"personal-development", "Personal Development"},
}

// BrowseModel is the paginated course catalog. "g" opens a category
// picker overlay that narrows the listing.
type BrowseModel struct {
	apiClient *api.Client

	courses []models.CourseWithCategories
	total   int

	category catalogCategory
	page     int
	pageSize int
	cursor   int

	picker    bool
	pickerIdx int

	loading bool
	spin    components.Spinner
	dialog  components.ErrorDialog

	width  int
	height int
}

func NewBrowseModel(apiClient *api.Client, pageSize int) BrowseModel {
	if pageSize <= 0 {
		pageSize = 20
	}
	return BrowseModel{
		apiClient: apiClient,
		page:      1,
		pageSize:  pageSize,
		spin:      components.NewSpinner("Loading courses..."),
		dialog:    components.NewErrorDialog("Catalog unavailable", "r retry • esc dismiss"),
	}
}

func (m BrowseModel) Init() tea.Cmd {
	return m.loadCourses()
}

// HasDialog reports whether a modal, the error dialog or the category
// picker, owns the keyboard.
func (m BrowseModel) HasDialog() bool { return m.dialog.Visible() || m.picker }

func (m BrowseModel) Update(msg tea.Msg) (BrowseModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case CourseListLoadedMsg:
		m.loading = false
		m.courses = msg.Courses
		m.total = msg.Total
		return m, nil

	case BrowseErrorMsg:
		m.loading = false
		m.dialog.Show(msg.Err)
		return m, nil
	}

	if m.loading {
		return m, m.spin.Update(msg)
	}
	return m, nil
}

func (m BrowseModel) handleKeys(msg tea.KeyMsg) (BrowseModel, tea.Cmd) {
	if m.dialog.Visible() {
		switch msg.String() {
		case "r":
			m.dialog.Clear()
			return m.refresh()
		case "esc", "enter":
			m.dialog.Clear()
		}
		return m, nil
	}

	if m.picker {
		switch msg.String() {
		case "esc", "g":
			m.picker = false
		case "down", "j":
			if m.pickerIdx < len(catalogCategories)-1 {
				m.pickerIdx++
			}
		case "up", "k":
			if m.pickerIdx > 0 {
				m.pickerIdx--
			}
		case "enter":
			m.category = catalogCategories[m.pickerIdx]
			m.picker = false
			m.page = 1
			m.cursor = 0
			return m.refresh()
		}
		return m, nil
	}

	switch msg.String() {
	case "g":
		m.picker = true
	case "down", "j":
		if m.cursor < len(m.courses)-1 {
			m.cursor++
		}
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "n", "pgdown":
		if m.page < m.totalPages() {
			m.page++
			m.cursor = 0
			return m.refresh()
		}
	case "p", "pgup":
		if m.page > 1 {
			m.page--
			m.cursor = 0
			return m.refresh()
		}
	case "r":
		return m.refresh()
	case "enter":
		if len(m.courses) > 0 {
			courseID := m.courses[m.cursor].ID
			return m, func() tea.Msg {
				return SelectCourseMsg{CourseID: courseID}
			}
		}
	}
	return m, nil
}

func (m BrowseModel) refresh() (BrowseModel, tea.Cmd) {
	m.loading = true
	return m, tea.Batch(m.spin.Tick(), m.loadCourses())
}

func (m BrowseModel) loadCourses() tea.Cmd {
	client := m.apiClient
	categoryID := m.category.id
	page := m.page
	limit := m.pageSize
	return func() tea.Msg {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()

		var resp *models.CourseListResponse
		var err error
		if categoryID != "" {
			resp, err = client.ListCoursesByCategory(ctx, categoryID, page, limit)
		} else {
			resp, err = client.ListCourses(ctx, page, limit)
		}
		if err != nil {
			return BrowseErrorMsg{Err: err}
		}
		return CourseListLoadedMsg{Courses: resp.Data, Total: resp.Total}
	}
}

func (m BrowseModel) totalPages() int {
	if m.total == 0 {
		return 1
	}
	pages := m.total / m.pageSize
	if m.total%m.pageSize > 0 {
		pages++
	}
	return pages
}

func (m BrowseModel) View() string {
	if m.picker {
		return m.renderPicker()
	}

	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("📚 Browse Courses"))
	b.WriteString("  ")
	b.WriteString(styles.SubtitleStyle.Render(fmt.Sprintf("Page %d/%d", m.page, m.totalPages())))
	if m.category.id != "" {
		b.WriteString("  ")
		b.WriteString(styles.BadgePrimaryStyle.Render(m.category.name))
	}
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.spin.View())
		return b.String()
	case m.dialog.Visible():
		b.WriteString(m.dialog.View())
		return b.String()
	case len(m.courses) == 0:
		b.WriteString(styles.InfoStyle.Render("No courses found"))
		return b.String()
	}

	for i, course := range m.courses {
		prefix := "  "
		style := styles.ListItemStyle
		if i == m.cursor {
			prefix = "▸ "
			style = styles.ListItemSelectedStyle
		}

		title := styles.ListItemTitleStyle.Render(styles.Truncate(course.Title, 40))
		level := renderLevelBadge(course.Level)
		price := renderPrice(course.PriceCents, course.Currency)
		b.WriteString(style.Render(fmt.Sprintf("%s%s %s %s", prefix, title, level, price)))

		if i == m.cursor && course.Instructor != "" {
			info := "by " + course.Instructor
			if course.Description != "" {
				info += " • " + styles.Truncate(course.Description, 40)
			}
			b.WriteString("\n    ")
			b.WriteString(styles.ListItemDescStyle.Render(info))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.RenderDivider(40))
	b.WriteString("\n")

	pairs := []string{"↑/↓", "navigate", "enter", "open", "g", "category"}
	if m.page > 1 {
		pairs = append(pairs, "p", "prev page")
	}
	if m.page < m.totalPages() {
		pairs = append(pairs, "n", "next page")
	}
	pairs = append(pairs, "r", "refresh")
	b.WriteString(styles.RenderHelp(pairs...))

	return b.String()
}

func (m BrowseModel) renderPicker() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("🏷️ Select Category"))
	b.WriteString("\n\n")

	for i, cat := range catalogCategories {
		prefix := "  "
		style := styles.ListItemStyle
		if i == m.pickerIdx {
			prefix = "▸ "
			style = styles.ListItemSelectedStyle
		}

		name := cat.name
		if cat.id == m.category.id {
			name = "✓ " + name
		}
		b.WriteString(style.Render(prefix + name))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.RenderHelp("↑/↓", "navigate", "enter", "apply", "esc", "cancel"))

	return b.String()
}

// Messages

// CourseListLoadedMsg delivers one catalog page.
type CourseListLoadedMsg struct {
	Courses []models.CourseWithCategories
	Total   int
}

// BrowseErrorMsg reports a failed catalog load.
type BrowseErrorMsg struct {
	Err error
}
