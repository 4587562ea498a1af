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

const dashboardRows = 10

// DashboardModel is the landing screen: trending courses on one tab,
// the marketplace activity feed on the other.
type DashboardModel struct {
	apiClient *api.Client

	trending   []models.Course
	activities []models.ActivityResponse

	tab    int // 0 trending, 1 activity
	cursor int
	// pending counts in-flight loads after a refresh.
	pending int
	spin    components.Spinner
	dialog  components.ErrorDialog

	width  int
	height int
}

func NewDashboardModel(apiClient *api.Client) DashboardModel {
	return DashboardModel{
		apiClient: apiClient,
		spin:      components.NewSpinner("Loading dashboard..."),
		dialog:    components.NewErrorDialog("Dashboard unavailable", "r retry • esc dismiss"),
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.loadTrending(), m.loadActivity())
}

// HasDialog reports whether the error dialog owns the keyboard.
func (m DashboardModel) HasDialog() bool { return m.dialog.Visible() }

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.dialog.Visible() {
			switch msg.String() {
			case "r":
				m.dialog.Clear()
				return m.reload()
			case "esc", "enter":
				m.dialog.Clear()
			}
			return m, nil
		}

		switch msg.String() {
		case "tab", "shift+tab":
			m.tab = 1 - m.tab
			m.cursor = 0
		case "down", "j":
			if m.cursor < m.listLen()-1 {
				m.cursor++
			}
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "r":
			return m.reload()
		case "enter":
			if m.tab == 0 && len(m.trending) > 0 {
				courseID := m.trending[m.cursor].ID
				return m, func() tea.Msg {
					return SelectCourseMsg{CourseID: courseID}
				}
			}
		}
		return m, nil

	case TrendingLoadedMsg:
		m.settle()
		m.trending = msg.Courses
		return m, nil

	case ActivityLoadedMsg:
		m.settle()
		m.activities = msg.Activities
		return m, nil

	case DashboardErrorMsg:
		m.settle()
		m.dialog.Show(msg.Err)
		return m, nil
	}

	if m.pending > 0 {
		return m, m.spin.Update(msg)
	}
	return m, nil
}

func (m *DashboardModel) settle() {
	if m.pending > 0 {
		m.pending--
	}
}

func (m DashboardModel) listLen() int {
	if m.tab == 0 {
		return len(m.trending)
	}
	return len(m.activities)
}

func (m DashboardModel) reload() (DashboardModel, tea.Cmd) {
	m.pending = 2
	m.cursor = 0
	return m, tea.Batch(m.spin.Tick(), m.loadTrending(), m.loadActivity())
}

func (m DashboardModel) loadTrending() tea.Cmd {
	client := m.apiClient
	return func() tea.Msg {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()
		courses, err := client.GetTrending(ctx, dashboardRows)
		if err != nil {
			return DashboardErrorMsg{Err: err}
		}
		return TrendingLoadedMsg{Courses: courses}
	}
}

func (m DashboardModel) loadActivity() tea.Cmd {
	client := m.apiClient
	return func() tea.Msg {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()
		activities, err := client.GetRecentActivity(ctx, dashboardRows)
		if err != nil {
			return DashboardErrorMsg{Err: err}
		}
		return ActivityLoadedMsg{Activities: activities}
	}
}

func (m DashboardModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("📊 Dashboard"))
	b.WriteString("\n\n")

	trendingTab := styles.TabStyle.Render("🔥 Trending")
	activityTab := styles.TabStyle.Render("📰 Activity")
	if m.tab == 0 {
		trendingTab = styles.TabActiveStyle.Render("🔥 Trending")
	} else {
		activityTab = styles.TabActiveStyle.Render("📰 Activity")
	}
	b.WriteString(trendingTab + " " + activityTab)
	b.WriteString("\n")
	b.WriteString(styles.RenderDivider(40))
	b.WriteString("\n\n")

	switch {
	case m.pending > 0:
		b.WriteString(m.spin.View())
		return b.String()
	case m.dialog.Visible():
		b.WriteString(m.dialog.View())
		return b.String()
	}

	if m.tab == 0 {
		b.WriteString(m.renderTrending())
	} else {
		b.WriteString(m.renderActivity())
	}

	b.WriteString("\n\n")
	b.WriteString(styles.RenderHelp("↑/↓", "navigate", "tab", "switch", "enter", "open", "r", "refresh"))

	return b.String()
}

func (m DashboardModel) renderTrending() string {
	if len(m.trending) == 0 {
		return styles.InfoStyle.Render("No trending courses found")
	}

	var b strings.Builder
	for i, course := range m.trending {
		if i >= dashboardRows {
			break
		}

		prefix := "  "
		style := styles.ListItemStyle
		if i == m.cursor {
			prefix = "▸ "
			style = styles.ListItemSelectedStyle
		}

		rank := styles.BadgePrimaryStyle.Render(fmt.Sprintf("#%d", i+1))
		title := styles.ListItemTitleStyle.Render(styles.Truncate(course.Title, 30))
		level := renderLevelBadge(course.Level)
		price := renderPrice(course.PriceCents, course.Currency)

		b.WriteString(style.Render(fmt.Sprintf("%s%s %s %s %s", prefix, rank, title, level, price)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m DashboardModel) renderActivity() string {
	if len(m.activities) == 0 {
		return styles.InfoStyle.Render("No recent activity")
	}

	var b strings.Builder
	for i, activity := range m.activities {
		if i >= dashboardRows {
			break
		}

		prefix := "  "
		style := styles.ListItemStyle
		if i == m.cursor {
			prefix = "▸ "
			style = styles.ListItemSelectedStyle
		}

		text := activityIcon(activity.Type) + " " + activity.Type
		if activity.User != nil {
			text += " by " + activity.User.Username
		}
		if activity.Course != nil {
			text += " on " + styles.Truncate(activity.Course.Title, 20)
		}

		b.WriteString(style.Render(prefix + text))
		b.WriteString(" ")
		b.WriteString(styles.HelpStyle.Render(utils.TimeAgo(activity.CreatedAt)))
		b.WriteString("\n")
	}

	return b.String()
}

func activityIcon(activityType string) string {
	switch activityType {
	case models.ActivityTypeReview:
		return "⭐"
	case models.ActivityTypeDiscussion:
		return "💬"
	case models.ActivityTypeEnrollment:
		return "🎓"
	case models.ActivityTypeCourseUpdate:
		return "📖"
	}
	return "📌"
}

// renderLevelBadge renders a course level badge, shared by the list views.
func renderLevelBadge(level string) string {
	switch models.CourseLevel(level) {
	case models.CourseLevelBeginner:
		return styles.BadgeSuccessStyle.Render(level)
	case models.CourseLevelIntermediate:
		return styles.BadgePrimaryStyle.Render(level)
	default:
		return styles.BadgeWarningStyle.Render(level)
	}
}

// renderPrice formats a price in cents for list display.
func renderPrice(cents int, currency string) string {
	if cents == 0 {
		return styles.SuccessStyle.Render("Free")
	}
	if currency == "" {
		currency = "USD"
	}
	return styles.MetaValueStyle.Render(fmt.Sprintf("%.2f %s", float64(cents)/100, currency))
}

// Messages

// TrendingLoadedMsg delivers the trending course list.
type TrendingLoadedMsg struct {
	Courses []models.Course
}

// ActivityLoadedMsg delivers the recent activity feed.
type ActivityLoadedMsg struct {
	Activities []models.ActivityResponse
}

// DashboardErrorMsg reports either dashboard load failing.
type DashboardErrorMsg struct {
	Err error
}

// SelectCourseMsg asks the root model to open a course detail page.
type SelectCourseMsg struct {
	CourseID string
}
