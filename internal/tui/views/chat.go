package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"coursehub/internal/tui/api"
	"coursehub/internal/tui/styles"
	"coursehub/pkg/utils"
)

const (
	// Server reads at most 1KB per frame; the composer stays under that.
	maxChatPayload  = 1024
	chatWindowRows  = 12
	presenceEvery   = 30 * time.Second
	dialHandshake   = 10 * time.Second
	chatSubprotocol = "coursehub.tui-v1"
)

// ChatMessage mirrors the hub's frame format, one JSON object per event.
type ChatMessage struct {
	Type      string    `json:"type"` // "message", "join", "leave", "history", "error"
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CourseID  string    `json:"course_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRoom is one owned course; every library entry doubles as a room.
type ChatRoom struct {
	ID    string
	Title string
}

type connState int

const (
	connIdle connState = iota
	connDialing
	connOpen
)

// ChatModel is the study-room view: a live WebSocket transcript over the
// course the user picked from their library.
type ChatModel struct {
	apiClient *api.Client
	wsURL     string
	token     string

	conn  *websocket.Conn
	state connState
	// gen bumps on every (re)dial; messages from older sockets are dropped.
	gen int64

	rooms       []ChatRoom
	roomsLoaded bool
	room        ChatRoom
	online      int
	away        int

	log        []ChatMessage
	scrollBack int

	input     textinput.Model
	picker    bool
	pickerIdx int

	lastError error

	width  int
	height int
}

// NewChatModel creates the view; rooms load on Init.
func NewChatModel(apiClient *api.Client, wsURL, token string) ChatModel {
	input := textinput.New()
	input.Placeholder = "Type your message... (Enter to send)"
	input.CharLimit = 500
	input.Width = 60
	input.Focus()

	return ChatModel{
		apiClient: apiClient,
		wsURL:     wsURL,
		token:     token,
		input:     input,
	}
}

func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadRooms())
}

// InputFocused reports whether keystrokes land in the message box.
func (m ChatModel) InputFocused() bool {
	return !m.picker && m.input.Focused()
}

// SetToken updates the token used for the next dial.
func (m *ChatModel) SetToken(token string) {
	m.token = token
}

// Close shuts the socket down politely and invalidates pending reads.
func (m *ChatModel) Close() {
	m.gen++
	if m.conn != nil {
		m.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		m.conn.Close()
		m.conn = nil
		m.state = connIdle
	}
}

// sysNote appends a centered system line to the transcript.
func (m *ChatModel) sysNote(content string) {
	m.log = append(m.log, ChatMessage{
		Type:      "system",
		Username:  "System",
		Content:   content,
		Timestamp: time.Now(),
	})
}

func (m ChatModel) Update(msg tea.Msg) (ChatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = min(m.width-10, 60)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case ChatRoomsLoadedMsg:
		m.rooms = msg.Rooms
		m.roomsLoaded = true
		if len(m.rooms) == 0 {
			m.sysNote("No courses in your library. Buy a course first!")
			return m, nil
		}
		m.room = m.rooms[0]
		return m.dial("Joining #" + m.room.Title)

	case ChatConnectedMsg:
		if msg.Gen != m.gen {
			// A newer dial superseded this one.
			msg.Conn.Close()
			return m, nil
		}
		m.state = connOpen
		m.conn = msg.Conn
		m.lastError = nil
		m.online, m.away = 0, 0
		m.sysNote("Connected to #" + m.room.Title)
		return m, tea.Batch(m.listen(msg.Gen), m.fetchPresence(msg.Gen))

	case ChatDisconnectedMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		m.state = connIdle
		m.conn = nil
		m.sysNote("Disconnected from server")
		return m, nil

	case ChatInboundMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		m.log = append(m.log, msg.Message)
		m.scrollBack = 0
		return m, m.listen(msg.Gen)

	case ChatPresenceMsg:
		if msg.Gen != m.gen || m.state != connOpen {
			return m, nil
		}
		if msg.Online >= 0 {
			m.online, m.away = msg.Online, msg.Away
		}
		gen := msg.Gen
		return m, tea.Tick(presenceEvery, func(time.Time) tea.Msg {
			return presenceTickMsg{Gen: gen}
		})

	case presenceTickMsg:
		if msg.Gen != m.gen || m.state != connOpen {
			return m, nil
		}
		return m, m.fetchPresence(msg.Gen)

	case ChatErrorMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		m.lastError = msg.Err
		m.state = connIdle
		m.log = append(m.log, ChatMessage{
			Type:      "error",
			Username:  "Error",
			Content:   msg.Err.Error(),
			Timestamp: time.Now(),
		})
		return m, nil
	}

	var cmd tea.Cmd
	if m.InputFocused() {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m ChatModel) handleKeys(msg tea.KeyMsg) (ChatModel, tea.Cmd) {
	if m.picker {
		switch msg.String() {
		case "esc":
			m.picker = false
		case "down", "j":
			if m.pickerIdx < len(m.rooms)-1 {
				m.pickerIdx++
			}
		case "up", "k":
			if m.pickerIdx > 0 {
				m.pickerIdx--
			}
		case "enter":
			if m.pickerIdx < len(m.rooms) {
				m.room = m.rooms[m.pickerIdx]
				m.picker = false
				m.log = nil
				return m.dial("Joining #" + m.room.Title)
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "enter":
		content := strings.TrimSpace(m.input.Value())
		if content != "" && m.state == connOpen {
			m.input.SetValue("")
			return m, m.send(content)
		}
		return m, nil
	case "tab":
		m.picker = true
		m.pickerIdx = 0
		return m, nil
	case "ctrl+r":
		if m.room.ID != "" {
			return m.dial("Reconnecting")
		}
		return m, nil
	case "pgup":
		if m.scrollBack < len(m.log)-1 {
			m.scrollBack++
		}
		return m, nil
	case "pgdown":
		if m.scrollBack > 0 {
			m.scrollBack--
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// dial tears down any open socket and starts a fresh connection attempt.
func (m ChatModel) dial(note string) (ChatModel, tea.Cmd) {
	m.gen++
	m.state = connDialing
	m.lastError = nil
	m.online, m.away = 0, 0
	if note != "" {
		m.sysNote(note + "…")
	}

	gen := m.gen
	old := m.conn
	m.conn = nil
	roomID := m.room.ID
	target := m.roomURL()

	return m, func() tea.Msg {
		if old != nil {
			old.Close()
		}
		if roomID == "" {
			return ChatErrorMsg{Gen: gen, Err: errors.New("no room selected")}
		}

		dialer := websocket.Dialer{
			HandshakeTimeout: dialHandshake,
			Subprotocols:     []string{chatSubprotocol},
		}
		header := http.Header{
			"Origin":     []string{"http://localhost"},
			"User-Agent": []string{"coursehub-tui/1.0"},
		}

		conn, resp, err := dialer.Dial(target, header)
		if err != nil {
			return ChatErrorMsg{Gen: gen, Err: dialError(err, resp)}
		}
		return ChatConnectedMsg{Gen: gen, Conn: conn}
	}
}

func (m ChatModel) roomURL() string {
	u := strings.TrimRight(m.wsURL, "/") + "/" + m.room.ID
	if m.token != "" {
		u += "?token=" + url.QueryEscape(m.token)
	}
	return u
}

// dialError folds the handshake response into the error; the body usually
// names the auth problem.
func dialError(err error, resp *http.Response) error {
	if resp == nil || resp.Body == nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if len(body) == 0 {
		return fmt.Errorf("connection failed: %w (status=%d)", err, resp.StatusCode)
	}
	return fmt.Errorf("connection failed: %w (status=%d body=%s)",
		err, resp.StatusCode, strings.TrimSpace(string(body)))
}

// listen blocks on the next frame. Each delivered ChatInboundMsg re-arms
// the read from Update.
func (m ChatModel) listen(gen int64) tea.Cmd {
	conn := m.conn
	return func() tea.Msg {
		if conn == nil {
			return ChatDisconnectedMsg{Gen: gen}
		}
		var msg ChatMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if closedNormally(err) {
				return ChatDisconnectedMsg{Gen: gen}
			}
			return ChatErrorMsg{Gen: gen, Err: fmt.Errorf("read failed: %w", err)}
		}
		if msg.Username == "" {
			msg.Username = "Unknown"
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}
		return ChatInboundMsg{Gen: gen, Message: msg}
	}
}

func (m ChatModel) send(content string) tea.Cmd {
	conn := m.conn
	gen := m.gen
	return func() tea.Msg {
		if conn == nil {
			return ChatErrorMsg{Gen: gen, Err: errors.New("not connected")}
		}
		data, err := json.Marshal(map[string]string{"content": content})
		if err != nil {
			return ChatErrorMsg{Gen: gen, Err: fmt.Errorf("send failed: %w", err)}
		}
		if len(data) > maxChatPayload {
			return ChatErrorMsg{Gen: gen, Err: fmt.Errorf("message too large (%d bytes > %d)", len(data), maxChatPayload)}
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			if closedNormally(err) {
				return ChatDisconnectedMsg{Gen: gen}
			}
			return ChatErrorMsg{Gen: gen, Err: fmt.Errorf("send failed: %w", err)}
		}
		return nil
	}
}

// loadRooms fetches the library; every owned course is a study room.
func (m ChatModel) loadRooms() tea.Cmd {
	client := m.apiClient
	return func() tea.Msg {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()

		entries, err := client.GetLibrary(ctx)
		if err != nil {
			return ChatErrorMsg{Err: fmt.Errorf("failed to load rooms: %w", err)}
		}

		rooms := make([]ChatRoom, 0, len(entries))
		for _, entry := range entries {
			rooms = append(rooms, ChatRoom{ID: entry.Course.ID, Title: entry.Course.Title})
		}
		return ChatRoomsLoadedMsg{Rooms: rooms}
	}
}

// fetchPresence asks the room status endpoint who is online. Failures are
// reported as Online=-1 so the poll keeps its cadence without surfacing
// an error in the transcript.
func (m ChatModel) fetchPresence(gen int64) tea.Cmd {
	client := m.apiClient
	roomID := m.room.ID
	return func() tea.Msg {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()

		status, err := client.GetRoomStatus(ctx, roomID)
		if err != nil {
			return ChatPresenceMsg{Gen: gen, Online: -1}
		}

		online, away := 0, 0
		for _, p := range status.Presence {
			if p.Status == "away" {
				away++
			} else {
				online++
			}
		}
		if online+away == 0 {
			online = status.ClientCount
		}
		return ChatPresenceMsg{Gen: gen, Online: online, Away: away}
	}
}

func closedNormally(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return true
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure,
	) {
		return true
	}
	var ce *websocket.CloseError
	return errors.As(err, &ce) || strings.Contains(err.Error(), "use of closed network connection")
}

func (m ChatModel) View() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n")

	if m.picker {
		b.WriteString(m.roomPicker())
		b.WriteString("\n")
		b.WriteString(styles.RenderHelp("↑/↓", "select", "enter", "join", "esc", "cancel"))
		return b.String()
	}

	b.WriteString(m.transcript())
	b.WriteString("\n")
	b.WriteString(styles.RenderDivider(min(m.width-4, 70)))
	b.WriteString("\n")
	b.WriteString(m.composer())
	b.WriteString("\n\n")
	b.WriteString(styles.RenderHelp(
		"enter", "send",
		"tab", "rooms",
		"ctrl+r", "reconnect",
		"pgup/pgdn", "scroll",
	))

	return b.String()
}

func (m ChatModel) header() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("💬 Study Room"))
	b.WriteString("  ")

	name := m.room.Title
	if name == "" {
		name = "no room selected"
	}
	b.WriteString(styles.BadgePrimaryStyle.Render("#" + name))
	b.WriteString("  ")

	switch m.state {
	case connOpen:
		b.WriteString(styles.SuccessStyle.Render("● connected"))
		if m.online > 0 {
			b.WriteString("  ")
			b.WriteString(styles.BadgeSuccessStyle.Render(fmt.Sprintf("%d online", m.online)))
		}
		if m.away > 0 {
			b.WriteString(" ")
			b.WriteString(styles.BadgeWarningStyle.Render(fmt.Sprintf("%d away", m.away)))
		}
	case connDialing:
		b.WriteString(styles.WarningStyle.Render("○ connecting..."))
	default:
		b.WriteString(styles.BadgeDangerStyle.Render("offline"))
	}
	b.WriteString("\n")

	return b.String()
}

// transcript renders the visible slice of the log, newest at the bottom.
func (m ChatModel) transcript() string {
	if len(m.log) == 0 {
		return styles.HelpStyle.Render("\n  No messages yet. Be the first to say something!\n")
	}

	var b strings.Builder

	start := len(m.log) - chatWindowRows - m.scrollBack
	if start < 0 {
		start = 0
	}
	end := len(m.log) - m.scrollBack
	if end > len(m.log) {
		end = len(m.log)
	}
	if end < start {
		end = start
	}

	if start > 0 {
		b.WriteString(styles.HelpStyle.Render(fmt.Sprintf("  ↑ %d earlier", start)))
		b.WriteString("\n")
	}
	for _, msg := range m.log[start:end] {
		b.WriteString(m.msgLine(msg))
		b.WriteString("\n")
	}
	if m.scrollBack > 0 {
		b.WriteString(styles.HelpStyle.Render(fmt.Sprintf("  ↓ %d newer", m.scrollBack)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m ChatModel) msgLine(msg ChatMessage) string {
	stamp := msg.Timestamp.Format("15:04:05")

	switch msg.Type {
	case "system":
		return "  " + styles.HelpStyle.Render("━━━ "+msg.Content+" ━━━")
	case "error":
		return "  " + styles.ErrorStyle.Render("━━━ "+msg.Content+" ━━━")
	case "join":
		return "  " + styles.SuccessStyle.Render("→ ") +
			styles.MetaKeyStyle.Render(msg.Username) +
			styles.HelpStyle.Render(" joined the room")
	case "leave":
		return "  " + styles.WarningStyle.Render("← ") +
			styles.MetaKeyStyle.Render(msg.Username) +
			styles.HelpStyle.Render(" left the room")
	case "history":
		return "  " + styles.HelpStyle.Render("["+stamp+"] ") +
			styles.MetaKeyStyle.Render(msg.Username) +
			styles.HelpStyle.Render(": "+msg.Content)
	default:
		return "  " + styles.HelpStyle.Render("["+stamp+"] ") +
			styles.HighlightStyle.Render(msg.Username) +
			styles.CardContentStyle.Render(": "+msg.Content)
	}
}

func (m ChatModel) roomPicker() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styles.CardTitleStyle.Render("  Select Study Room"))
	b.WriteString("\n\n")

	if len(m.rooms) == 0 {
		b.WriteString(styles.HelpStyle.Render("  No courses in your library. Buy a course first!"))
		return b.String()
	}

	for i, room := range m.rooms {
		prefix, style := "    ", styles.ListItemStyle
		if i == m.pickerIdx {
			prefix, style = "  ▸ ", styles.ListItemSelectedStyle
		}
		label := room.Title
		if room.ID == m.room.ID {
			label += " (current)"
		}
		b.WriteString(style.Render(prefix + "#" + label))
		b.WriteString("\n")
	}

	return b.String()
}

func (m ChatModel) composer() string {
	if m.state != connOpen {
		return styles.HelpStyle.Render("  [Not connected - press Ctrl+R to reconnect]")
	}
	return "  " + styles.InputFocusedStyle.Render("> ") + m.input.View()
}

// Messages

// ChatConnectedMsg delivers a freshly dialed socket.
type ChatConnectedMsg struct {
	Gen  int64
	Conn *websocket.Conn
}

// ChatDisconnectedMsg signals the socket closed.
type ChatDisconnectedMsg struct{ Gen int64 }

// ChatInboundMsg carries one decoded room frame.
type ChatInboundMsg struct {
	Gen     int64
	Message ChatMessage
}

// ChatErrorMsg carries a dial, read or send failure.
type ChatErrorMsg struct {
	Gen int64
	Err error
}

// ChatRoomsLoadedMsg delivers the user's library as joinable rooms.
type ChatRoomsLoadedMsg struct {
	Rooms []ChatRoom
}

// ChatPresenceMsg carries a room status snapshot; Online is -1 when the
// poll failed.
type ChatPresenceMsg struct {
	Gen    int64
	Online int
	Away   int
}

type presenceTickMsg struct{ Gen int64 }
