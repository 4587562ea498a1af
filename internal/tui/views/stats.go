package views

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"coursehub/internal/tui/api"
	"coursehub/internal/tui/components"
	"coursehub/internal/tui/styles"
	"coursehub/pkg/models"
	"coursehub/pkg/utils"
)

const leaderboardSize = 10

type statsTab int

const (
	tabMyStats statsTab = iota
	tabLeaderboard
	tabMarketplace
	statsTabCount
)

// StatsModel shows three tabs: the user's own learning numbers, the
// course leaderboard and the marketplace-wide dashboard.
type StatsModel struct {
	apiClient *api.Client
	userID    string

	userStats   *models.UserStatistics
	leaderboard []models.RankedCourse
	market      *models.StatsResponse

	tab    statsTab
	cursor int
	// pending counts in-flight loads after a refresh.
	pending int
	spin    components.Spinner
	dialog  components.ErrorDialog

	width  int
	height int
}

func NewStatsModel(apiClient *api.Client, userID string) StatsModel {
	return StatsModel{
		apiClient: apiClient,
		userID:    userID,
		spin:      components.NewSpinner("Loading statistics..."),
		dialog:    components.NewErrorDialog("Statistics unavailable", "r retry • esc dismiss"),
	}
}

// SetUserID is called after login, before the first Init.
func (m *StatsModel) SetUserID(userID string) {
	m.userID = userID
}

func (m StatsModel) Init() tea.Cmd {
	return tea.Batch(m.loadUserStats(), m.loadLeaderboard(), m.loadMarket())
}

// HasDialog reports whether the error dialog owns the keyboard.
func (m StatsModel) HasDialog() bool { return m.dialog.Visible() }

func (m StatsModel) Update(msg tea.Msg) (StatsModel, tea.Cmd) {
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
		case "tab":
			m.tab = (m.tab + 1) % statsTabCount
			m.cursor = 0
		case "shift+tab":
			m.tab = (m.tab + statsTabCount - 1) % statsTabCount
			m.cursor = 0
		case "down", "j":
			if m.tab == tabLeaderboard && m.cursor < len(m.leaderboard)-1 {
				m.cursor++
			}
		case "up", "k":
			if m.tab == tabLeaderboard && m.cursor > 0 {
				m.cursor--
			}
		case "r":
			return m.reload()
		}
		return m, nil

	case UserStatsLoadedMsg:
		m.settle()
		m.userStats = msg.Stats
		return m, nil

	case LeaderboardLoadedMsg:
		m.settle()
		m.leaderboard = msg.Entries
		return m, nil

	case MarketStatsLoadedMsg:
		m.settle()
		m.market = msg.Stats
		return m, nil

	case StatsErrorMsg:
		m.settle()
		m.dialog.Show(msg.Err)
		return m, nil
	}

	if m.pending > 0 {
		return m, m.spin.Update(msg)
	}
	return m, nil
}

func (m *StatsModel) settle() {
	if m.pending > 0 {
		m.pending--
	}
}

func (m StatsModel) reload() (StatsModel, tea.Cmd) {
	m.pending = 3
	return m, tea.Batch(m.spin.Tick(), m.loadUserStats(), m.loadLeaderboard(), m.loadMarket())
}

func (m StatsModel) loadUserStats() tea.Cmd {
	client := m.apiClient
	userID := m.userID
	return func() tea.Msg {
		if userID == "" {
			return StatsErrorMsg{Err: errors.New("user ID not set")}
		}
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()
		stats, err := client.GetUserStatistics(ctx, userID)
		if err != nil {
			return StatsErrorMsg{Err: err}
		}
		return UserStatsLoadedMsg{Stats: stats}
	}
}

func (m StatsModel) loadLeaderboard() tea.Cmd {
	client := m.apiClient
	return func() tea.Msg {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()
		resp, err := client.GetTopCourses(ctx, leaderboardSize)
		if err != nil {
			return StatsErrorMsg{Err: err}
		}
		return LeaderboardLoadedMsg{Entries: resp.Data}
	}
}

func (m StatsModel) loadMarket() tea.Cmd {
	client := m.apiClient
	return func() tea.Msg {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()
		stats, err := client.GetMarketplaceStats(ctx)
		if err != nil {
			return StatsErrorMsg{Err: err}
		}
		return MarketStatsLoadedMsg{Stats: stats}
	}
}

func (m StatsModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("📈 Statistics"))
	b.WriteString("\n\n")
	b.WriteString(m.tabBar())
	b.WriteString("\n")
	b.WriteString(styles.RenderDivider(52))
	b.WriteString("\n\n")

	switch {
	case m.pending > 0:
		b.WriteString(m.spin.View())
		return b.String()
	case m.dialog.Visible():
		b.WriteString(m.dialog.View())
		return b.String()
	}

	switch m.tab {
	case tabLeaderboard:
		b.WriteString(m.renderLeaderboard())
	case tabMarketplace:
		b.WriteString(m.renderMarketplace())
	default:
		b.WriteString(m.renderMyStats())
	}

	b.WriteString("\n\n")
	if m.tab == tabLeaderboard {
		b.WriteString(styles.RenderHelp("↑/↓", "navigate", "tab", "switch", "r", "refresh"))
	} else {
		b.WriteString(styles.RenderHelp("tab", "switch", "r", "refresh"))
	}

	return b.String()
}

func (m StatsModel) tabBar() string {
	labels := []string{"📊 My Stats", "🏆 Leaderboard", "🛒 Marketplace"}
	parts := make([]string, len(labels))
	for i, label := range labels {
		if statsTab(i) == m.tab {
			parts[i] = styles.TabActiveStyle.Render(label)
		} else {
			parts[i] = styles.TabStyle.Render(label)
		}
	}
	return strings.Join(parts, " ")
}

func (m StatsModel) renderMyStats() string {
	if m.userStats == nil {
		return styles.InfoStyle.Render("No statistics available")
	}

	var card strings.Builder
	card.WriteString(styles.CardTitleStyle.Render("Your Learning"))
	card.WriteString("\n\n")

	rows := []struct {
		icon, label, value string
	}{
		{"🎓", "Courses Enrolled", strconv.Itoa(m.userStats.CoursesEnrolled)},
		{"✅", "Courses Completed", strconv.Itoa(m.userStats.CoursesCompleted)},
		{"📖", "Chapters Completed", strconv.Itoa(m.userStats.ChaptersCompleted)},
		{"⭐", "Reviews Written", strconv.Itoa(m.userStats.TotalReviews)},
	}
	for _, row := range rows {
		card.WriteString(row.icon + " " + styles.RenderKeyValue(row.label, row.value) + "\n")
	}

	if m.userStats.TotalReviews > 0 {
		card.WriteString(fmt.Sprintf("   %s: %s %.1f\n",
			styles.MetaKeyStyle.Render("Average Rating Given"),
			styles.RenderStars(m.userStats.AverageRating, 5),
			m.userStats.AverageRating,
		))
	}

	var b strings.Builder
	b.WriteString(styles.CardStyle.Render(card.String()))

	if len(m.userStats.TopCategories) > 0 {
		b.WriteString("\n\n")
		b.WriteString(styles.MetaKeyStyle.Render("Top Categories:"))
		b.WriteString("\n")
		for _, category := range m.userStats.TopCategories {
			b.WriteString("  • ")
			b.WriteString(styles.BadgePrimaryStyle.Render(category.Name))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// renderLeaderboard draws the top-courses table, medals for the podium.
func (m StatsModel) renderLeaderboard() string {
	if len(m.leaderboard) == 0 {
		return styles.InfoStyle.Render("No leaderboard data available")
	}

	var b strings.Builder

	b.WriteString(styles.TableHeaderStyle.Width(6).Render("Rank"))
	b.WriteString(styles.TableHeaderStyle.Width(34).Render("Course"))
	b.WriteString(styles.TableHeaderStyle.Width(10).Render("Score"))
	b.WriteString(styles.TableHeaderStyle.Width(10).Render("Learners"))
	b.WriteString("\n")

	for i, entry := range m.leaderboard {
		if i >= leaderboardSize {
			break
		}

		rank := fmt.Sprintf("#%d", entry.Rank)
		switch entry.Rank {
		case 1:
			rank = "🥇"
		case 2:
			rank = "🥈"
		case 3:
			rank = "🥉"
		}

		cell := styles.TableCellStyle
		if i == m.cursor {
			cell = styles.TableRowSelectedStyle
		}
		b.WriteString(cell.Width(6).Render(rank))
		b.WriteString(cell.Width(34).Render(styles.Truncate(entry.Course.Title, 30)))
		b.WriteString(cell.Width(10).Render(fmt.Sprintf("%d pts", entry.Stats.WeeklyScore)))
		b.WriteString(cell.Width(10).Render(strconv.Itoa(entry.Stats.EnrollmentCount)))
		b.WriteString("\n")
	}

	return b.String()
}

// renderMarketplace shows totals, the daily activity sparkline and the
// rooms with the most discussion this week.
func (m StatsModel) renderMarketplace() string {
	if m.market == nil {
		return styles.InfoStyle.Render("No marketplace data available")
	}

	var b strings.Builder

	b.WriteString(styles.RenderKeyValue("Total reviews", strconv.Itoa(m.market.TotalReviews)))
	b.WriteString("   ")
	b.WriteString(styles.RenderKeyValue("Total discussions", strconv.Itoa(m.market.TotalDiscussions)))
	b.WriteString("\n\n")

	if len(m.market.DailyActivity) > 0 {
		b.WriteString(styles.CardTitleStyle.Render("Activity, last 7 days"))
		b.WriteString("\n")

		days := make([]string, 0, len(m.market.DailyActivity))
		peak := 0
		for day, count := range m.market.DailyActivity {
			days = append(days, day)
			if count > peak {
				peak = count
			}
		}
		sort.Strings(days)

		for _, day := range days {
			count := m.market.DailyActivity[day]
			b.WriteString("  ")
			b.WriteString(styles.HelpStyle.Render(day + " "))
			b.WriteString(styles.RenderProgressBar(count, peak, 24))
			b.WriteString(styles.MetaValueStyle.Render(fmt.Sprintf(" %d", count)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(m.market.ActiveRooms) > 0 {
		b.WriteString(styles.CardTitleStyle.Render("Busy study rooms"))
		b.WriteString("\n")
		for i, room := range m.market.ActiveRooms {
			if i >= 5 {
				break
			}
			b.WriteString("  • ")
			b.WriteString(styles.ListItemTitleStyle.Render(styles.Truncate(room.Title, 40)))
			b.WriteString(styles.HelpStyle.Render(fmt.Sprintf("  %d events / %s", room.ActivityCount, room.Timeframe)))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// Messages

// UserStatsLoadedMsg delivers the user's own numbers.
type UserStatsLoadedMsg struct {
	Stats *models.UserStatistics
}

// LeaderboardLoadedMsg delivers the ranked course list.
type LeaderboardLoadedMsg struct {
	Entries []models.RankedCourse
}

// MarketStatsLoadedMsg delivers the marketplace dashboard.
type MarketStatsLoadedMsg struct {
	Stats *models.StatsResponse
}

// StatsErrorMsg reports any of the three loads failing.
type StatsErrorMsg struct {
	Err error
}
