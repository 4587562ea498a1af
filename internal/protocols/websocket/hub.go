// Package websocket - WebSocket Study Room Protocol Handler
// Implements real-time per-course study rooms with message persistence
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	tcpProtocol "coursehub/internal/protocols/tcp"
	"coursehub/internal/repository"
	"coursehub/pkg/models"
)

const (
	maxMessageSize  = 1024                // 1KB max frame size
	writeWait       = 10 * time.Second    // Time allowed to write a message
	pongWait        = 60 * time.Second    // Time allowed to read the next pong
	pingPeriod      = (pongWait * 9) / 10 // Send pings to client
	historyLimit    = 50                  // Max room history messages to send
	maxRoomSize     = 1000                // Max clients per room
	cleanupInterval = 5 * time.Minute     // Room sweep interval
	awayAfter       = 5 * time.Minute     // Presence flips to "away" past this idle time
)

// Hub owns the set of live study rooms, one per course.
type Hub struct {
	roomsMu        sync.RWMutex
	rooms          map[string]*Room // course_id -> Room
	discussionRepo repository.DiscussionRepository
	activityRepo   repository.ActivityRepository
	statsAddr      string // TCP engagement aggregator address
	stop           chan struct{}
	wg             sync.WaitGroup
}

// Room fans messages out to every client studying one course. All state
// transitions run on the room's own goroutine; the channels are the only
// way in.
type Room struct {
	courseID   string
	clientsMu  sync.RWMutex
	clients    map[*Client]bool
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	stopped    bool
	stop       chan struct{}
}

// Client is one WebSocket connection bound to a room.
type Client struct {
	hub          *Hub
	room         *Room
	conn         *websocket.Conn
	send         chan *Message
	userID       string
	username     string
	courseID     string
	lastActive   atomic.Int64 // unix nanos, touched from the pong handler
	onDisconnect func()
}

func (c *Client) touch()          { c.lastActive.Store(time.Now().UnixNano()) }
func (c *Client) seen() time.Time { return time.Unix(0, c.lastActive.Load()) }

// Message is the room wire format, shared with the TUI chat client.
type Message struct {
	Type      string    `json:"type"` // "message", "join", "leave", "history"
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CourseID  string    `json:"course_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHub creates a study room hub and starts its room sweeper.
func NewHub(discussionRepo repository.DiscussionRepository, activityRepo repository.ActivityRepository) *Hub {
	hub := &Hub{
		rooms:          make(map[string]*Room),
		discussionRepo: discussionRepo,
		activityRepo:   activityRepo,
		stop:           make(chan struct{}),
	}

	hub.wg.Add(1)
	go hub.sweepEmptyRooms()

	return hub
}

// SetStatsAddr sets the TCP engagement aggregator address
func (h *Hub) SetStatsAddr(addr string) {
	h.statsAddr = addr
}

// sweepEmptyRooms drops rooms nobody is in, so an idle server holds no
// room goroutines.
func (h *Hub) sweepEmptyRooms() {
	defer h.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.roomsMu.Lock()
			for courseID, room := range h.rooms {
				room.clientsMu.RLock()
				empty := len(room.clients) == 0
				room.clientsMu.RUnlock()

				if empty {
					close(room.stop)
					delete(h.rooms, courseID)
					logrus.Infof("🧹 Cleaned up empty room: %s", courseID)
				}
			}
			h.roomsMu.Unlock()

		case <-h.stop:
			return
		}
	}
}

// GetOrCreateRoom returns the room for a course, starting one if needed.
func (h *Hub) GetOrCreateRoom(courseID string) *Room {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()

	if room, exists := h.rooms[courseID]; exists {
		return room
	}

	room := &Room{
		courseID:   courseID,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
	}

	h.rooms[courseID] = room
	go room.run()

	logrus.Infof("🆕 Created new study room: %s", courseID)
	return room
}

// run is the room's event loop and the only goroutine that mutates
// membership.
func (r *Room) run() {
	for {
		select {
		case client := <-r.register:
			r.admit(client)
		case client := <-r.unregister:
			r.evict(client, true)
		case message := <-r.broadcast:
			if !r.stopped {
				r.fanOut(message)
			}
		case <-r.stop:
			r.shutdown()
			return
		}
	}
}

func (r *Room) admit(client *Client) {
	if r.stopped {
		return
	}

	r.clientsMu.Lock()
	if len(r.clients) >= maxRoomSize {
		r.clientsMu.Unlock()
		logrus.Warnf("Room %s full, rejecting client %s", r.courseID, client.userID)
		return
	}
	r.clients[client] = true
	r.clientsMu.Unlock()

	logrus.Debugf("✅ Client %s joined room %s", client.userID, r.courseID)
	r.fanOut(presenceNote("join", client))
}

// evict removes a client. announce is false while draining a dead
// client found mid-broadcast, where a leave note would echo forever.
func (r *Room) evict(client *Client, announce bool) {
	if r.stopped {
		return
	}

	r.clientsMu.Lock()
	_, present := r.clients[client]
	if present {
		delete(r.clients, client)
		close(client.send)
	}
	r.clientsMu.Unlock()

	if !present {
		return
	}

	logrus.Debugf("👋 Client %s left room %s", client.userID, r.courseID)
	if announce {
		r.fanOut(presenceNote("leave", client))
	}
}

func (r *Room) shutdown() {
	r.stopped = true

	r.clientsMu.Lock()
	for client := range r.clients {
		close(client.send)
		client.conn.Close()
	}
	r.clients = nil
	r.clientsMu.Unlock()

	logrus.Infof("🛑 Room stopped: %s", r.courseID)
}

// fanOut delivers one message to every member. A client whose buffer
// stays full has stopped draining, so it is cut loose here instead of
// stalling the whole room. Runs only on the room goroutine.
func (r *Room) fanOut(message *Message) {
	var stale []*Client

	r.clientsMu.RLock()
	for client := range r.clients {
		select {
		case client.send <- message:
		default:
			stale = append(stale, client)
		}
	}
	r.clientsMu.RUnlock()

	for _, client := range stale {
		logrus.Warnf("Client %s send buffer full, disconnecting", client.userID)
		r.evict(client, false)
		client.conn.Close()
	}
}

func presenceNote(kind string, client *Client) *Message {
	return &Message{
		Type:      kind,
		UserID:    client.userID,
		Username:  client.username,
		CourseID:  client.courseID,
		Timestamp: time.Now(),
	}
}

// reportDiscussion records the feed row and tells the engagement
// aggregator one message happened.
func (h *Hub) reportDiscussion(courseID, userID string, eventTime time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	activity := &models.Activity{
		Type:      models.ActivityTypeDiscussion,
		UserID:    &userID,
		CourseID:  &courseID,
		CreatedAt: eventTime,
	}
	if err := h.activityRepo.Create(ctx, activity); err != nil {
		logrus.Errorf("Failed to log discussion activity: %v", err)
	}

	if h.statsAddr == "" {
		return
	}
	event := tcpProtocol.StatsEvent{
		Type:      tcpProtocol.EventTypeDiscussion,
		CourseID:  courseID,
		UserID:    &userID,
		EventTime: eventTime,
		Source:    "websocket",
	}
	if err := tcpProtocol.SendStatsEvent(h.statsAddr, event); err != nil {
		logrus.Errorf("Failed to emit TCP stats event: %v", err)
	}
}

// readPump pulls frames off the socket until the peer goes away.
func (c *Client) readPump() {
	defer func() {
		if c.onDisconnect != nil {
			c.onDisconnect()
		}
		c.room.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.touch()
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Warnf("WebSocket read error: %v", err)
			}
			return
		}
		c.handleInbound(raw)
	}
}

// handleInbound persists one chat message and hands it to the room.
// Only the content survives from the client payload; identity and
// timestamps are stamped server-side.
func (c *Client) handleInbound(raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		logrus.Warnf("Invalid message format from client %s: %v", c.userID, err)
		c.sendError("invalid_format", "Invalid JSON format")
		return
	}

	if strings.TrimSpace(msg.Content) == "" {
		c.sendError("empty_message", "Message content is required")
		return
	}

	msg.UserID = c.userID
	msg.Username = c.username
	msg.CourseID = c.courseID
	msg.Timestamp = time.Now()
	msg.Type = "message"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	discMsg := &models.DiscussionMessage{
		CourseID:  c.courseID,
		UserID:    c.userID,
		Content:   msg.Content,
		CreatedAt: msg.Timestamp,
	}
	if _, err := c.hub.discussionRepo.Create(ctx, discMsg); err != nil {
		logrus.Errorf("Failed to save discussion message: %v", err)
		c.sendError("database_error", "Failed to save message")
		return
	}

	c.hub.reportDiscussion(c.courseID, c.userID, msg.Timestamp)
	c.room.broadcast <- &msg
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed means the room evicted us
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				logrus.Errorf("Failed to marshal message: %v", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.room.stop:
			return
		}
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(code, message string) {
	errMsg := &Message{
		Type:      "error",
		UserID:    "system",
		Username:  "System",
		CourseID:  c.courseID,
		Content:   fmt.Sprintf("Error [%s]: %s", code, message),
		Timestamp: time.Now(),
	}

	select {
	case c.send <- errMsg:
	default:
	}
}

// ServeClient binds an upgraded connection to its course room and
// starts the pumps.
func (h *Hub) ServeClient(conn *websocket.Conn, userID, username, courseID string, onDisconnect func()) {
	room := h.GetOrCreateRoom(courseID)

	client := &Client{
		hub:          h,
		room:         room,
		conn:         conn,
		send:         make(chan *Message, 256),
		userID:       userID,
		username:     username,
		courseID:     courseID,
		onDisconnect: onDisconnect,
	}
	client.touch()

	room.register <- client

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()

	go h.replayHistory(client)
}

// replayHistory sends the room's recent messages to a fresh client,
// oldest first.
func (h *Hub) replayHistory(client *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, _, err := h.discussionRepo.ListByCourseID(ctx, client.courseID, historyLimit, 0)
	if err != nil {
		logrus.Warnf("Failed to get room history for %s: %v", client.courseID, err)
		return
	}

	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]

		historyMsg := &Message{
			Type:      "history",
			UserID:    msg.User.ID,
			Username:  msg.User.Username,
			CourseID:  msg.CourseID,
			Content:   msg.Content,
			Timestamp: msg.CreatedAt,
		}

		select {
		case client.send <- historyMsg:
		case <-time.After(2 * time.Second):
			// Slow client, drop the rest of the replay
			return
		}
	}

	logrus.Debugf("📨 Sent %d history messages to client %s", len(messages), client.userID)
}

// GetRoomClientCount returns number of clients in a room
func (h *Hub) GetRoomClientCount(courseID string) int {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()

	if room, exists := h.rooms[courseID]; exists {
		room.clientsMu.RLock()
		defer room.clientsMu.RUnlock()
		return len(room.clients)
	}
	return 0
}

// GetRoomPresence lists who is in the room right now. A client idle
// past awayAfter shows as "away".
func (h *Hub) GetRoomPresence(courseID string) ([]*models.UserPresence, error) {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()

	room, exists := h.rooms[courseID]
	if !exists {
		return []*models.UserPresence{}, nil
	}

	room.clientsMu.RLock()
	defer room.clientsMu.RUnlock()

	presence := make([]*models.UserPresence, 0, len(room.clients))
	now := time.Now()

	for client := range room.clients {
		seen := client.seen()
		status := "online"
		if now.Sub(seen) > awayAfter {
			status = "away"
		}

		presence = append(presence, &models.UserPresence{
			UserID:     client.userID,
			Username:   client.username,
			CourseID:   courseID,
			Status:     status,
			LastActive: seen,
		})
	}

	return presence, nil
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	logrus.Info("🛑 Stopping WebSocket hub...")

	close(h.stop)

	h.roomsMu.Lock()
	for _, room := range h.rooms {
		close(room.stop)
	}
	h.roomsMu.Unlock()

	h.wg.Wait()
	logrus.Info("✅ WebSocket hub stopped")
}
