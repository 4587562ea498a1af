package websocket

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"coursehub/internal/core"
	"coursehub/internal/repository"
	"coursehub/pkg/logger"
)

// Handler upgrades HTTP requests into study room connections.
type Handler struct {
	hub            *Hub
	authSvc        core.AuthService
	courseRepo     repository.CourseRepository
	discussionRepo repository.DiscussionRepository
	activityRepo   repository.ActivityRepository
	statsSvc       core.StatsService
	allowedOrigins []string
	upgrader       websocket.Upgrader
	metrics        struct {
		sync.Mutex
		totalConnections uint64
		activeRooms      map[string]int
	}
}

// NewHandler creates a new WebSocket handler with proper dependencies
func NewHandler(
	hub *Hub,
	authSvc core.AuthService,
	courseRepo repository.CourseRepository,
	discussionRepo repository.DiscussionRepository,
	activityRepo repository.ActivityRepository,
	statsSvc core.StatsService,
	allowedOrigins []string,
) *Handler {
	if allowedOrigins == nil {
		allowedOrigins = []string{"*"}
	}

	handler := &Handler{
		hub:            hub,
		authSvc:        authSvc,
		courseRepo:     courseRepo,
		discussionRepo: discussionRepo,
		activityRepo:   activityRepo,
		statsSvc:       statsSvc,
		allowedOrigins: allowedOrigins,
	}
	handler.metrics.activeRooms = make(map[string]int)
	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       handler.checkOrigin,
		EnableCompression: true,
		// Subprotocols let the TUI client negotiate its flavor
		Subprotocols: []string{"coursehub.tui-v1", "coursehub.web-v1"},
	}
	return handler
}

// HandleWebSocket upgrades HTTP connection to WebSocket for a course study room
func (h *Handler) HandleWebSocket(c *gin.Context) {
	courseID := c.Param("course_id")
	if courseID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "course_id parameter is required"})
		return
	}

	// The room only exists for real courses
	ctx := c.Request.Context()
	if _, err := h.courseRepo.GetByID(ctx, courseID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		return
	}

	token, err := extractToken(c)
	if err != nil {
		h.rejectUpgrade(c, http.StatusUnauthorized, "authentication_required", err.Error())
		return
	}

	user, err := h.authSvc.ValidateToken(ctx, token)
	if err != nil {
		h.rejectUpgrade(c, http.StatusUnauthorized, "invalid_token", err.Error())
		return
	}

	clientInfo := h.parseClientInfo(c)
	logrus.Infof("WebSocket connection attempt: course_id=%s user_id=%s client=%s",
		courseID, user.ID, clientInfo.UserAgent)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Errorf("WebSocket upgrade failed: %v", err)
		// NOTE: gorilla/websocket writes its own HTTP response (often 403) when CheckOrigin fails.
		// Writing JSON here can cause confusing double-write behavior, so just return.
		return
	}

	h.updateMetrics(courseID, true)

	userID := user.ID
	h.hub.ServeClient(conn, user.ID, user.Username, courseID, func() {
		h.updateMetrics(courseID, false)
		logger.WebSocket(courseID, "disconnected", userID)
	})

	logger.WebSocket(courseID, "connected", user.ID)
}

// GetRoomStatus returns status of a study room
func (h *Handler) GetRoomStatus(c *gin.Context) {
	courseID := c.Param("course_id")
	if courseID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "course_id parameter is required"})
		return
	}

	clientCount := h.hub.GetRoomClientCount(courseID)

	// Last few messages give the status payload a preview
	ctx := c.Request.Context()
	messages, _, err := h.discussionRepo.ListByCourseID(ctx, courseID, 5, 0)
	if err != nil {
		logrus.Warnf("Failed to get discussion preview for course %s: %v", courseID, err)
	}

	presence, err := h.hub.GetRoomPresence(courseID)
	if err != nil {
		logrus.Warnf("Failed to get room presence for course %s: %v", courseID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"course_id":    courseID,
		"client_count": clientCount,
		"active":       clientCount > 0,
		"messages":     messages,
		"online_users": presence,
	})
}

// GetGlobalStatus returns hub-wide connection statistics
func (h *Handler) GetGlobalStatus(c *gin.Context) {
	h.metrics.Lock()
	defer h.metrics.Unlock()

	topRooms := make([]gin.H, 0, 5)
	for courseID, count := range h.metrics.activeRooms {
		if count > 0 {
			topRooms = append(topRooms, gin.H{
				"course_id": courseID,
				"clients":   count,
			})
		}
		if len(topRooms) >= 5 {
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_connections": h.metrics.totalConnections,
		"active_rooms":      len(h.metrics.activeRooms),
		"top_active_rooms":  topRooms,
		"server_time":       time.Now().UTC(),
	})
}

// extractToken finds the auth token wherever the client put it: query
// parameter (TUI), Authorization header, or cookie (web).
func extractToken(c *gin.Context) (string, error) {
	if token := c.Query("token"); token != "" {
		return token, nil
	}

	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") && token != "" {
			return token, nil
		}
	}

	if cookie, err := c.Request.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	return "", fmt.Errorf("no authentication token provided")
}

// checkOrigin accepts local clients unconditionally and everything else
// only when the configured origin list says so.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	// Non-browser clients may omit Origin; treat as allowed.
	if origin == "" {
		return true
	}

	if u, err := url.Parse(origin); err == nil {
		host := strings.ToLower(u.Hostname())
		if host == "localhost" || host == "127.0.0.1" || host == "0.0.0.0" {
			return true
		}
	}

	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// rejectUpgrade refuses the connection before the protocol switch.
func (h *Handler) rejectUpgrade(c *gin.Context, status int, code, message string) {
	logrus.Warnf("WebSocket rejected: status=%d code=%s message=%s",
		status, code, message)

	c.JSON(status, gin.H{
		"error":     code,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// updateMetrics updates connection metrics
func (h *Handler) updateMetrics(courseID string, connected bool) {
	h.metrics.Lock()
	defer h.metrics.Unlock()

	if connected {
		h.metrics.totalConnections++
		h.metrics.activeRooms[courseID]++
		return
	}

	if count, exists := h.metrics.activeRooms[courseID]; exists {
		count--
		if count <= 0 {
			delete(h.metrics.activeRooms, courseID)
		} else {
			h.metrics.activeRooms[courseID] = count
		}
	}
}

// ClientInfo describes what connected, mostly for the logs.
type ClientInfo struct {
	UserAgent    string
	TerminalSize *TerminalSize
	Protocol     string // "tui-v1", "web-v1"
}

// TerminalSize represents terminal dimensions
type TerminalSize struct {
	Width  int
	Height int
}

// parseClientInfo extracts client information from request
func (h *Handler) parseClientInfo(c *gin.Context) *ClientInfo {
	userAgent := c.GetHeader("User-Agent")

	// TUI clients announce their terminal size in headers
	var termSize *TerminalSize
	width, _ := strconv.Atoi(c.GetHeader("X-Terminal-Width"))
	height, _ := strconv.Atoi(c.GetHeader("X-Terminal-Height"))
	if width > 0 && height > 0 {
		termSize = &TerminalSize{Width: width, Height: height}
	}

	protocol := c.GetHeader("Sec-WebSocket-Protocol")
	if protocol == "" {
		protocol = "unknown"
	}

	return &ClientInfo{
		UserAgent:    userAgent,
		TerminalSize: termSize,
		Protocol:     protocol,
	}
}
