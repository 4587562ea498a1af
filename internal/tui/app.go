package tui

import (
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"coursehub/internal/tui/api"
	"coursehub/internal/tui/config"
	"coursehub/internal/tui/focus"
	"coursehub/internal/tui/styles"
	"coursehub/internal/tui/views"
)

// View identifies a screen.
type View int

const (
	ViewAuth View = iota
	ViewDashboard
	ViewBrowse
	ViewSearch
	ViewDetail
	ViewChat
	ViewStats
)

// Model is the root Bubble Tea model. It owns view switching, the
// global shortcuts, and the announcement banner; everything else lives
// in the per-screen models.
type Model struct {
	config    *config.Config
	apiClient *api.Client

	focusManager *focus.Manager
	keys         KeyMap
	help         help.Model
	showHelp     bool

	currentView  View
	previousView View

	width  int
	height int

	isAuthenticated bool
	currentUser     string

	// announceConn is nil when UDP is disabled or the port was taken.
	announceConn *net.UDPConn
	announcement string
	announcedAt  time.Time

	authModel      views.AuthModel
	dashboardModel views.DashboardModel
	browseModel    views.BrowseModel
	searchModel    views.SearchModel
	detailModel    views.DetailModel
	chatModel      views.ChatModel
	statsModel     views.StatsModel
}

// New creates the TUI application.
func New(cfg *config.Config) *Model {
	apiClient := api.NewClient(cfg.GetHTTPBaseURL())

	h := help.New()
	h.ShowAll = true

	m := &Model{
		config:       cfg,
		apiClient:    apiClient,
		focusManager: focus.NewManager(),
		keys:         DefaultKeyMap(),
		help:         h,
		currentView:  ViewAuth,
	}

	if cfg.Protocol.EnableUDP {
		m.announceConn = listenAnnouncements(cfg.Server.UDP.Port)
	}

	m.authModel = views.NewAuthModel(apiClient)
	m.dashboardModel = views.NewDashboardModel(apiClient)
	m.browseModel = views.NewBrowseModel(apiClient, cfg.UI.PageSize)
	m.searchModel = views.NewSearchModel(apiClient, cfg.UI.PageSize)
	m.detailModel = views.NewDetailModel(apiClient)
	m.chatModel = views.NewChatModel(apiClient, cfg.GetWebSocketURL(), "")
	m.statsModel = views.NewStatsModel(apiClient, "")

	return m
}

// Init starts on the auth screen and, when the broadcast port could be
// bound, begins reading announcements.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.authModel.Init()}
	if m.announceConn != nil {
		cmds = append(cmds, waitAnnouncement(m.announceConn))
	}
	return tea.Batch(cmds...)
}

// deriveFocus reads the active view's state. Focus is recomputed per
// keypress instead of tracked through enter/exit calls, so it cannot
// drift out of sync with the views.
func (m Model) deriveFocus() focus.Mode {
	switch m.currentView {
	case ViewAuth:
		return focus.ModeInput
	case ViewSearch:
		if m.searchModel.HasDialog() {
			return focus.ModeDialog
		}
		if m.searchModel.InputFocused() {
			return focus.ModeInput
		}
	case ViewChat:
		if m.chatModel.InputFocused() {
			return focus.ModeInput
		}
	case ViewDetail:
		if m.detailModel.InputFocused() {
			return focus.ModeInput
		}
	case ViewDashboard:
		if m.dashboardModel.HasDialog() {
			return focus.ModeDialog
		}
	case ViewBrowse:
		if m.browseModel.HasDialog() {
			return focus.ModeDialog
		}
	case ViewStats:
		if m.statsModel.HasDialog() {
			return focus.ModeDialog
		}
	}
	return focus.ModeNavigation
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

		m.authModel, _ = m.authModel.Update(msg)
		m.dashboardModel, _ = m.dashboardModel.Update(msg)
		m.browseModel, _ = m.browseModel.Update(msg)
		m.searchModel, _ = m.searchModel.Update(msg)
		m.detailModel, _ = m.detailModel.Update(msg)
		m.chatModel, _ = m.chatModel.Update(msg)
		m.statsModel, _ = m.statsModel.Update(msg)
		return m, nil

	case tea.KeyMsg:
		mode := m.deriveFocus()
		m.focusManager.Set(mode)

		if m.keys.AllowGlobal(mode, msg) {
			switch {
			case key.Matches(msg, m.keys.ForceQuit), key.Matches(msg, m.keys.Quit):
				m.chatModel.Close()
				if m.announceConn != nil {
					m.announceConn.Close()
				}
				return m, tea.Quit

			case key.Matches(msg, m.keys.Help):
				m.showHelp = !m.showHelp
				return m, nil

			case key.Matches(msg, m.keys.Back) && m.currentView == ViewDetail:
				m.currentView = m.previousView
				return m, nil

			case key.Matches(msg, m.keys.Dashboard):
				return m.switchTo(ViewDashboard)

			case key.Matches(msg, m.keys.Browse):
				return m.switchTo(ViewBrowse)

			case key.Matches(msg, m.keys.Search):
				return m.switchTo(ViewSearch)

			case key.Matches(msg, m.keys.Chat):
				return m.switchTo(ViewChat)

			case key.Matches(msg, m.keys.Stats):
				return m.switchTo(ViewStats)
			}
		}

	case views.AuthSuccessMsg:
		// The auth view flips its button to the success state.
		m.authModel, _ = m.authModel.Update(msg)

		m.isAuthenticated = true
		m.currentUser = msg.Username
		m.chatModel.SetToken(msg.Token)
		if msg.User != nil {
			m.statsModel.SetUserID(msg.User.ID)
		}
		m.previousView = m.currentView
		m.currentView = ViewDashboard
		return m, m.dashboardModel.Init()

	case views.SelectCourseMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		return m, m.detailModel.SetCourse(msg.CourseID)

	case announcementMsg:
		m.announcement = msg.note.Message
		if msg.note.Title != "" {
			m.announcement = msg.note.Title + ": " + msg.note.Message
		}
		m.announcedAt = time.Now()
		at := m.announcedAt
		return m, tea.Batch(
			waitAnnouncement(m.announceConn),
			tea.Tick(announceTTL, func(time.Time) tea.Msg { return announcementGoneMsg{at: at} }),
		)

	case announcementGoneMsg:
		// A newer banner has a newer timestamp and outlives this timer.
		if msg.at.Equal(m.announcedAt) {
			m.announcement = ""
		}
		return m, nil
	}

	return m.updateCurrentView(msg)
}

// switchTo re-inits the target view so its data is fresh. Pressing the
// key for the screen already up does nothing, that would wipe its
// state.
func (m Model) switchTo(v View) (tea.Model, tea.Cmd) {
	if !m.isAuthenticated || v == m.currentView {
		return m, nil
	}
	if v == ViewChat && !m.config.Protocol.EnableWebSocket {
		return m, nil
	}

	m.previousView = m.currentView
	m.currentView = v

	switch v {
	case ViewDashboard:
		return m, m.dashboardModel.Init()
	case ViewBrowse:
		return m, m.browseModel.Init()
	case ViewSearch:
		return m, m.searchModel.Init()
	case ViewChat:
		return m, m.chatModel.Init()
	case ViewStats:
		return m, m.statsModel.Init()
	}
	return m, nil
}

// updateCurrentView routes a message to the active view.
func (m Model) updateCurrentView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewAuth:
		m.authModel, cmd = m.authModel.Update(msg)
	case ViewDashboard:
		m.dashboardModel, cmd = m.dashboardModel.Update(msg)
	case ViewBrowse:
		m.browseModel, cmd = m.browseModel.Update(msg)
	case ViewSearch:
		m.searchModel, cmd = m.searchModel.Update(msg)
	case ViewDetail:
		m.detailModel, cmd = m.detailModel.Update(msg)
	case ViewChat:
		m.chatModel, cmd = m.chatModel.Update(msg)
	case ViewStats:
		m.statsModel, cmd = m.statsModel.Update(msg)
	}

	return m, cmd
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string
	switch m.currentView {
	case ViewAuth:
		content = m.authModel.View()
	case ViewDashboard:
		content = m.dashboardModel.View()
	case ViewBrowse:
		content = m.browseModel.View()
	case ViewSearch:
		content = m.searchModel.View()
	case ViewDetail:
		content = m.detailModel.View()
	case ViewChat:
		content = m.chatModel.View()
	case ViewStats:
		content = m.statsModel.View()
	default:
		content = "Unknown view"
	}

	sections := []string{content}
	if m.showHelp {
		sections = append(sections, styles.CardStyle.Render(m.help.View(m.keys)))
	}
	if m.announcement != "" {
		banner := "📢 " + styles.Truncate(m.announcement, max(16, m.width-8))
		sections = append(sections, styles.BadgeWarningStyle.Render(banner))
	}
	if m.isAuthenticated {
		sections = append(sections, m.renderStatusBar())
	}

	return styles.AppStyle.Render(strings.Join(sections, "\n\n"))
}

// renderStatusBar renders the bottom status bar.
func (m Model) renderStatusBar() string {
	viewName := ""
	switch m.currentView {
	case ViewDashboard:
		viewName = "Dashboard"
	case ViewBrowse:
		viewName = "Browse"
	case ViewSearch:
		viewName = "Search"
	case ViewDetail:
		viewName = "Detail"
	case ViewChat:
		viewName = "Study Room"
	case ViewStats:
		viewName = "Statistics"
	}

	left := styles.StatusBarActiveStyle.Render("● " + viewName)
	right := styles.StatusBarStyle.Render("👤 "+m.currentUser+" • ? help • q quit") +
		" " + styles.LinkStyle.Render(m.config.GetServerAddr())

	// lipgloss.Width ignores the ANSI escapes, len would not.
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}

	return left + strings.Repeat(" ", gap) + right
}
