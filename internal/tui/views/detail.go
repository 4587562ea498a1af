package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"coursehub/internal/tui/api"
	"coursehub/internal/tui/components"
	"coursehub/internal/tui/styles"
	"coursehub/pkg/models"
	"coursehub/pkg/utils"
)

// DetailTab selects which pane of the course page is shown.
type DetailTab int

const (
	TabInfo DetailTab = iota
	TabCurriculum
	TabReviews
)

// chapterRef is a flattened curriculum entry for cursor navigation.
type chapterRef struct {
	sectionID string
	chapter   models.CourseChapter
}

// DetailModel is the course page: info, curriculum with completion
// marks and the review thread.
type DetailModel struct {
	apiClient *api.Client

	courseID string
	course   *models.CourseDetail

	// progress stays nil until the learner completes a chapter.
	progress  *models.CourseProgress
	completed map[string]bool
	chapters  []chapterRef

	reviews      []models.ReviewResponse
	reviewsTotal int
	reviewsPage  int

	loading bool
	saving  bool
	buying  bool
	owned   bool
	err     error
	notice  string
	tab     DetailTab

	buy  components.Button
	spin components.Spinner

	reviewInput  textinput.Model
	reviewRating int
	inputFocused bool

	viewport viewport.Model

	chapterCursor int
	reviewCursor  int

	width  int
	height int
}

func NewDetailModel(apiClient *api.Client) DetailModel {
	reviewInput := textinput.New()
	reviewInput.Placeholder = "Write a review..."
	reviewInput.CharLimit = 500
	reviewInput.Width = 50

	return DetailModel{
		apiClient:    apiClient,
		reviewsPage:  1,
		reviewInput:  reviewInput,
		reviewRating: 5,
		completed:    make(map[string]bool),
		buy:          components.NewButton("Buy this course"),
		spin:         components.NewSpinner("Loading course..."),
	}
}

// SetCourse switches the page to another course and reloads everything.
func (m *DetailModel) SetCourse(courseID string) tea.Cmd {
	m.courseID = courseID
	m.loading = true
	m.course = nil
	m.progress = nil
	m.completed = make(map[string]bool)
	m.chapters = nil
	m.reviews = nil
	m.reviewsPage = 1
	m.notice = ""
	m.err = nil
	m.tab = TabInfo
	m.chapterCursor = 0
	m.reviewCursor = 0
	m.owned = false
	m.buying = false
	m.buy = components.NewButton("Buy this course")
	return tea.Batch(m.spin.Tick(), m.loadCourse(), m.loadReviews(), m.loadProgress())
}

// InputFocused reports whether typed keys belong to the review field.
func (m DetailModel) InputFocused() bool { return m.inputFocused }

func (m DetailModel) Init() tea.Cmd {
	if m.courseID != "" {
		return tea.Batch(m.loadCourse(), m.loadReviews(), m.loadProgress())
	}
	return nil
}

func (m DetailModel) Update(msg tea.Msg) (DetailModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 10
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case CourseDetailLoadedMsg:
		m.loading = false
		m.course = msg.Course
		m.chapters = flattenCurriculum(msg.Course.Curriculum)
		return m, nil

	case ReviewsLoadedMsg:
		m.loading = false
		if msg.Page > 1 {
			m.reviews = append(m.reviews, msg.Reviews...)
		} else {
			m.reviews = msg.Reviews
		}
		m.reviewsTotal = msg.Total
		return m, nil

	case ProgressLoadedMsg:
		m.progress = msg.Progress
		m.completed = completionIndex(msg.Progress)
		if msg.Progress != nil {
			m.markOwned("Enrolled")
		}
		return m, nil

	case ProgressSavedMsg:
		m.saving = false
		m.progress = msg.Progress
		m.completed = completionIndex(msg.Progress)
		return m, nil

	case ReviewSubmittedMsg:
		m.loading = false
		m.reviewInput.SetValue("")
		m.reviewRating = 5
		m.inputFocused = false
		m.reviewInput.Blur()
		m.reviewsPage = 1
		return m, m.loadReviews()

	case CheckoutDoneMsg:
		m.loading = false
		m.buying = false
		m.notice = fmt.Sprintf("✓ Purchased: %s", msg.Result.Course.Title)
		m.markOwned("Purchased")
		return m, m.loadProgress()

	case DetailErrorMsg:
		m.loading = false
		m.saving = false
		if m.buying {
			m.buying = false
			m.buy.SetState(components.ButtonNormal)
		}
		m.err = msg.Err
		return m, nil
	}

	if m.loading {
		return m, m.spin.Update(msg)
	}
	return m, nil
}

func (m *DetailModel) markOwned(label string) {
	m.owned = true
	m.buy.SetLabel(label)
	m.buy.SetState(components.ButtonSuccess)
}

func (m DetailModel) handleKeys(msg tea.KeyMsg) (DetailModel, tea.Cmd) {
	if m.inputFocused {
		switch msg.String() {
		case "esc":
			m.inputFocused = false
			m.reviewInput.Blur()
			return m, nil
		case "left":
			if m.reviewRating > 1 {
				m.reviewRating--
			}
			return m, nil
		case "right":
			if m.reviewRating < 5 {
				m.reviewRating++
			}
			return m, nil
		case "enter":
			if strings.TrimSpace(m.reviewInput.Value()) != "" {
				m.loading = true
				return m, tea.Batch(m.spin.Tick(), m.submitReview())
			}
			return m, nil
		}

		var cmd tea.Cmd
		m.reviewInput, cmd = m.reviewInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "tab":
		m.tab = (m.tab + 1) % 3
		m.chapterCursor = 0
		m.reviewCursor = 0
	case "down", "j":
		switch m.tab {
		case TabCurriculum:
			if m.chapterCursor < len(m.chapters)-1 {
				m.chapterCursor++
			}
		case TabReviews:
			if m.reviewCursor < len(m.reviews)-1 {
				m.reviewCursor++
			}
		default:
			m.viewport.LineDown(1)
		}
	case "up", "k":
		switch m.tab {
		case TabCurriculum:
			if m.chapterCursor > 0 {
				m.chapterCursor--
			}
		case TabReviews:
			if m.reviewCursor > 0 {
				m.reviewCursor--
			}
		default:
			m.viewport.LineUp(1)
		}
	case " ", "enter":
		if m.tab == TabCurriculum && len(m.chapters) > 0 && !m.saving {
			ref := m.chapters[m.chapterCursor]
			m.saving = true
			m.notice = ""
			return m, m.toggleChapter(ref)
		}
	case "b":
		if m.course != nil && !m.owned && !m.buying {
			m.buying = true
			m.notice = ""
			m.err = nil
			m.buy.SetState(components.ButtonLoading)
			return m, m.buyCourse()
		}
	case "c":
		if m.tab == TabReviews {
			m.inputFocused = true
			m.reviewInput.Focus()
			return m, textinput.Blink
		}
	case "r":
		m.loading = true
		m.reviewsPage = 1
		return m, tea.Batch(m.spin.Tick(), m.loadCourse(), m.loadReviews(), m.loadProgress())
	case "n", "pgdown":
		if m.tab == TabReviews && m.hasMoreReviews() {
			m.reviewsPage++
			m.loading = true
			return m, tea.Batch(m.spin.Tick(), m.loadReviews())
		}
	}
	return m, nil
}

func (m DetailModel) View() string {
	var b strings.Builder

	if m.course == nil {
		switch {
		case m.loading:
			b.WriteString(m.spin.View())
		case m.err != nil:
			b.WriteString(styles.ErrorStyle.Render("Error: " + m.err.Error()))
			b.WriteString("\n")
			b.WriteString(styles.RenderHelp("r", "retry"))
		default:
			b.WriteString(styles.InfoStyle.Render("No course selected"))
		}
		return b.String()
	}

	b.WriteString(styles.TitleStyle.Render("🎓 " + m.course.Title))
	b.WriteString("\n\n")

	infoLabel := "📋 Info"
	currLabel := fmt.Sprintf("📖 Curriculum (%d)", len(m.chapters))
	revLabel := fmt.Sprintf("⭐ Reviews (%d)", m.reviewsTotal)

	infoTab := styles.TabStyle.Render(infoLabel)
	currTab := styles.TabStyle.Render(currLabel)
	revTab := styles.TabStyle.Render(revLabel)
	switch m.tab {
	case TabCurriculum:
		currTab = styles.TabActiveStyle.Render(currLabel)
	case TabReviews:
		revTab = styles.TabActiveStyle.Render(revLabel)
	default:
		infoTab = styles.TabActiveStyle.Render(infoLabel)
	}

	b.WriteString(infoTab + " " + currTab + " " + revTab)
	b.WriteString("\n")
	b.WriteString(styles.RenderDivider(50))
	b.WriteString("\n\n")

	if m.notice != "" {
		b.WriteString(styles.SuccessStyle.Render(m.notice))
		b.WriteString("\n\n")
	}
	if m.err != nil {
		b.WriteString(styles.ErrorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	}

	switch m.tab {
	case TabCurriculum:
		b.WriteString(m.renderCurriculum())
	case TabReviews:
		b.WriteString(m.renderReviews())
	default:
		b.WriteString(m.renderInfo())
	}

	b.WriteString("\n\n")
	switch {
	case m.inputFocused:
		b.WriteString(styles.RenderHelp("←/→", "rating", "enter", "submit", "esc", "cancel"))
	case m.tab == TabCurriculum:
		b.WriteString(styles.RenderHelp("space", "toggle done", "↑/↓", "navigate", "tab", "switch", "r", "refresh"))
	case m.tab == TabReviews:
		pairs := []string{"c", "write review", "↑/↓", "navigate", "tab", "switch"}
		if m.hasMoreReviews() {
			pairs = append(pairs, "n", "more")
		}
		b.WriteString(styles.RenderHelp(pairs...))
	default:
		pairs := []string{"↑/↓", "scroll", "tab", "switch"}
		if !m.owned {
			pairs = append(pairs, "b", "buy")
		}
		pairs = append(pairs, "r", "refresh")
		b.WriteString(styles.RenderHelp(pairs...))
	}

	return b.String()
}

func (m DetailModel) renderInfo() string {
	if m.course == nil {
		return ""
	}

	var b strings.Builder

	b.WriteString(styles.RenderKeyValue("Instructor", m.course.Instructor))
	b.WriteString("\n")
	b.WriteString(styles.MetaKeyStyle.Render("Level:") + " " + renderLevelBadge(m.course.Level))
	b.WriteString("\n")
	b.WriteString(styles.MetaKeyStyle.Render("Price:") + " " + renderPrice(m.course.PriceCents, m.course.Currency))
	b.WriteString("\n")

	if len(m.course.Categories) > 0 {
		names := make([]string, len(m.course.Categories))
		for i, cat := range m.course.Categories {
			names[i] = cat.Name
		}
		b.WriteString(styles.RenderKeyValue("Categories", strings.Join(names, ", ")))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.buy.View())
	b.WriteString("\n\n")

	b.WriteString(styles.MetaKeyStyle.Render("Description:"))
	b.WriteString("\n")
	if m.course.Description != "" {
		b.WriteString(styles.CardContentStyle.Render(m.course.Description))
	} else {
		b.WriteString(styles.HelpStyle.Render("No description available"))
	}
	b.WriteString("\n\n")

	if m.course.Stats != nil {
		stats := m.course.Stats
		b.WriteString(styles.MetaKeyStyle.Render("Engagement:"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("  🎓 %d enrolled   ⭐ %d reviews   💬 %d discussions   🔥 %d weekly score\n",
			stats.EnrollmentCount, stats.ReviewCount, stats.DiscussionCount, stats.WeeklyScore))
		b.WriteString("\n")
	}

	if m.progress != nil {
		done, total := models.CountChapters(m.progress.Sections)
		b.WriteString(styles.MetaKeyStyle.Render("Your progress:") + " ")
		b.WriteString(styles.RenderProgressBar(done, total, 20))
		b.WriteString(fmt.Sprintf(" %.1f%%\n", m.progress.OverallProgress))
		b.WriteString("\n")
	}

	b.WriteString(styles.RenderKeyValue("Added", m.course.CreatedAt.Format("Jan 2, 2006")))

	return b.String()
}

func (m DetailModel) renderCurriculum() string {
	if len(m.course.Curriculum) == 0 {
		return styles.HelpStyle.Render("No curriculum published yet")
	}

	var b strings.Builder

	flatIdx := 0
	for _, section := range m.course.Curriculum {
		b.WriteString(styles.CardTitleStyle.Render(section.Title))
		b.WriteString("\n")

		for _, chapter := range section.Chapters {
			prefix := "   "
			style := styles.ListItemStyle
			if flatIdx == m.chapterCursor {
				prefix = " ▸ "
				style = styles.ListItemSelectedStyle
			}

			mark := "○"
			if m.completed[chapter.ID] {
				mark = styles.SuccessStyle.Render("✓")
			}

			title := styles.Truncate(chapter.Title, 40)
			duration := ""
			if chapter.DurationSeconds > 0 {
				duration = " (" + utils.FormatWatchTime(chapter.DurationSeconds) + ")"
			}
			preview := ""
			if chapter.FreePreview {
				preview = " " + styles.BadgeSuccessStyle.Render("preview")
			}

			b.WriteString(style.Render(fmt.Sprintf("%s%s %s%s%s", prefix, mark, title, duration, preview)))
			b.WriteString("\n")
			flatIdx++
		}
	}

	if m.saving {
		b.WriteString("\n")
		b.WriteString(styles.InfoStyle.Render("Saving progress..."))
	}

	return b.String()
}

func (m DetailModel) renderReviews() string {
	var b strings.Builder

	if m.inputFocused {
		b.WriteString(styles.InputFocusedStyle.Render("New Review:"))
		b.WriteString("  ")
		b.WriteString(styles.RenderStars(float64(m.reviewRating), 5))
		b.WriteString("\n")
		b.WriteString(m.reviewInput.View())
		b.WriteString("\n\n")
	}

	if len(m.reviews) == 0 {
		b.WriteString(styles.HelpStyle.Render("No reviews yet. Press 'c' to add one!"))
		return b.String()
	}

	for i, review := range m.reviews {
		var card strings.Builder
		card.WriteString(styles.CardTitleStyle.Render(review.User.Username))
		card.WriteString("  ")
		card.WriteString(styles.RenderStars(float64(review.Rating), 5))
		card.WriteString("  ")
		card.WriteString(styles.HelpStyle.Render(utils.TimeAgo(review.CreatedAt)))
		if review.HelpfulCount > 0 {
			card.WriteString("  ")
			card.WriteString(styles.HelpStyle.Render(fmt.Sprintf("(%d found helpful)", review.HelpfulCount)))
		}
		card.WriteString("\n")
		card.WriteString(styles.CardContentStyle.Render(review.Content))

		style := styles.CardStyle
		if i == m.reviewCursor {
			style = style.BorderForeground(lipgloss.Color(styles.Pink))
		}
		b.WriteString(style.Render(card.String()))
		b.WriteString("\n")
	}

	if m.hasMoreReviews() {
		b.WriteString(styles.HelpStyle.Render(fmt.Sprintf("Showing %d of %d reviews", len(m.reviews), m.reviewsTotal)))
	}

	return b.String()
}

func (m DetailModel) hasMoreReviews() bool {
	return len(m.reviews) < m.reviewsTotal
}

func (m DetailModel) loadCourse() tea.Cmd {
	client := m.apiClient
	courseID := m.courseID
	return func() tea.Msg {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()
		course, err := client.GetCourse(ctx, courseID)
		if err != nil {
			return DetailErrorMsg{Err: err}
		}
		return CourseDetailLoadedMsg{Course: course}
	}
}

func (m DetailModel) loadReviews() tea.Cmd {
	client := m.apiClient
	courseID := m.courseID
	page := m.reviewsPage
	return func() tea.Msg {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()
		resp, err := client.ListReviews(ctx, courseID, page, 20)
		if err != nil {
			return DetailErrorMsg{Err: err}
		}
		return ReviewsLoadedMsg{Reviews: resp.Data, Total: resp.Total, Page: page}
	}
}

// loadProgress fetches stored progress. A missing record just means
// nothing has been completed yet, so failures are not surfaced.
func (m DetailModel) loadProgress() tea.Cmd {
	client := m.apiClient
	courseID := m.courseID
	return func() tea.Msg {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()
		progress, err := client.GetProgress(ctx, courseID)
		if err != nil {
			return ProgressLoadedMsg{Progress: nil}
		}
		return ProgressLoadedMsg{Progress: progress}
	}
}

// toggleChapter flips one chapter's completion. The server merges the
// single-chapter payload with stored progress, so nothing else moves.
func (m DetailModel) toggleChapter(ref chapterRef) tea.Cmd {
	client := m.apiClient
	courseID := m.courseID
	nowCompleted := !m.completed[ref.chapter.ID]
	return func() tea.Msg {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()
		sections := []models.SectionProgress{
			{
				SectionID: ref.sectionID,
				Chapters: []models.ChapterProgress{
					{ChapterID: ref.chapter.ID, Completed: nowCompleted},
				},
			},
		}
		progress, err := client.UpdateProgress(ctx, courseID, sections)
		if err != nil {
			return DetailErrorMsg{Err: err}
		}
		return ProgressSavedMsg{Progress: progress}
	}
}

func (m DetailModel) buyCourse() tea.Cmd {
	client := m.apiClient
	courseID := m.courseID
	return func() tea.Msg {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()
		result, err := client.Checkout(ctx, courseID)
		if err != nil {
			return DetailErrorMsg{Err: err}
		}
		return CheckoutDoneMsg{Result: result}
	}
}

func (m DetailModel) submitReview() tea.Cmd {
	client := m.apiClient
	courseID := m.courseID
	rating := m.reviewRating
	content := strings.TrimSpace(m.reviewInput.Value())
	return func() tea.Msg {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()
		_, err := client.CreateReview(ctx, courseID, rating, content)
		if err != nil {
			return DetailErrorMsg{Err: err}
		}
		return ReviewSubmittedMsg{}
	}
}

// flattenCurriculum builds the navigable chapter list in outline order.
func flattenCurriculum(curriculum []models.SectionWithChapters) []chapterRef {
	var refs []chapterRef
	for _, section := range curriculum {
		for _, chapter := range section.Chapters {
			refs = append(refs, chapterRef{sectionID: section.ID, chapter: chapter})
		}
	}
	return refs
}

// completionIndex builds a chapter_id -> completed lookup from progress.
func completionIndex(progress *models.CourseProgress) map[string]bool {
	index := make(map[string]bool)
	if progress == nil {
		return index
	}
	for _, section := range progress.Sections {
		for _, chapter := range section.Chapters {
			index[chapter.ChapterID] = chapter.Completed
		}
	}
	return index
}

// Messages

// CourseDetailLoadedMsg delivers the course page payload.
type CourseDetailLoadedMsg struct {
	Course *models.CourseDetail
}

// ReviewsLoadedMsg delivers one page of reviews. Pages past the first
// extend the list instead of replacing it.
type ReviewsLoadedMsg struct {
	Reviews []models.ReviewResponse
	Total   int
	Page    int
}

// ProgressLoadedMsg delivers stored progress, nil when none exists.
type ProgressLoadedMsg struct {
	Progress *models.CourseProgress
}

// ProgressSavedMsg reports a progress update round-trip.
type ProgressSavedMsg struct {
	Progress *models.CourseProgress
}

// ReviewSubmittedMsg reports a posted review.
type ReviewSubmittedMsg struct{}

// CheckoutDoneMsg reports a completed purchase.
type CheckoutDoneMsg struct {
	Result *models.CheckoutResponse
}

// DetailErrorMsg reports any course page operation failing.
type DetailErrorMsg struct {
	Err error
}
