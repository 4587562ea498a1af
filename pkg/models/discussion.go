package models

import (
	"time"
	"github.com/gorilla/websocket"
)

// DiscussionMessage represents a study-room message - EXACTLY matches schema.sql
type DiscussionMessage struct {
	ID        string    `json:"id" db:"id"`
	CourseID  string    `json:"course_id" db:"course_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SendDiscussionMessageRequest - includes course_id for per-course rooms
type SendDiscussionMessageRequest struct {
	CourseID string `json:"course_id" validate:"required"` // Can also be derived from connection
	Content  string `json:"content" validate:"required,min=1,max=5000"`
}

// DiscussionUser - minimal user info
type DiscussionUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// DiscussionMessageResponse represents a message with minimal user info
type DiscussionMessageResponse struct {
	ID        string         `json:"id"`
	CourseID  string         `json:"course_id"`
	User      DiscussionUser `json:"user"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

// DiscussionHistoryResponse represents paginated room history
type DiscussionHistoryResponse struct {
	Data    []DiscussionMessageResponse `json:"data"`
	Total   int                         `json:"total"`
	Limit   int                         `json:"limit"`
	Offset  int                         `json:"offset"`
	HasMore bool                        `json:"has_more"`
}

// StudyRoomInfo - for listing active study rooms
type StudyRoomInfo struct {
	CourseID     string `json:"course_id"`
	CourseTitle  string `json:"course_title"`
	ActiveUsers  int    `json:"active_users"`
	LastMessage  string `json:"last_message,omitempty"`
	LastActivity time.Time `json:"last_activity"`
}

// ==== WEBSOCKET SPECIFIC MODELS (Critical for protocol implementation) ====

// WebSocketConnection manages individual WebSocket connections
type WebSocketConnection struct {
	ID          string
	UserID      string
	Username    string
	CourseID    string
	Connection  *websocket.Conn
	SendChannel chan []byte
	Closed      bool
	LastActive  time.Time
}

// StudyRoom manages per-course discussion rooms
type StudyRoom struct {
	CourseID   string
	Name       string
	Users      map[string]*WebSocketConnection // UserID -> Connection
	Broadcast  chan []byte
	Register   chan *WebSocketConnection
	Unregister chan *WebSocketConnection
}

// UserPresence for presence tracking inside a study room
type UserPresence struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	CourseID    string    `json:"course_id"`
	CourseTitle string    `json:"course_title"`
	Status      string    `json:"status"` // "online", "away"
	LastActive  time.Time `json:"last_active"`
}

// DiscussionActivityEvent for the TCP engagement aggregator
type DiscussionActivityEvent struct {
	Type      string    `json:"type"` // "discussion_message"
	CourseID  string    `json:"course_id"`
	UserID    string    `json:"user_id"`
	MessageID string    `json:"message_id"`
	Content   string    `json:"content"` // For keyword analysis
	Timestamp time.Time `json:"timestamp"`
}

const MaxDiscussionMessageLength = 5000
