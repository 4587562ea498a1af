package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	tcpProtocol "coursehub/internal/protocols/tcp"
	"coursehub/pkg/logger"
	"coursehub/pkg/models"
)

// createDiscussion posts a message to a course study room over REST.
// Most traffic arrives over WebSocket, this endpoint exists for clients
// without a socket connection.
func (s *Server) createDiscussion(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	courseID := c.Param("id")
	if courseID == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "course_id is required",
			Timestamp: time.Now(),
		})
		return
	}

	var req models.SendDiscussionMessageRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "invalid request body",
			Timestamp: time.Now(),
		})
		return
	}

	message, err := s.discussionSvc.SendMessage(c.Request.Context(), courseID, userID, req)
	if err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	// CROSS-PROTOCOL INTEGRATION:
	// 1. Record activity to activity_feed
	_ = s.activitySvc.CreateActivity(c.Request.Context(), "discussion", &userID, &courseID)

	// 2. Emit TCP stats event for real-time aggregation
	if s.tcpAddr != "" {
		go func() {
			event := tcpProtocol.StatsEvent{
				Type:      tcpProtocol.EventTypeDiscussion,
				CourseID:  courseID,
				UserID:    &userID,
				EventTime: time.Now(),
				Weight:    2,
				Source:    "http",
			}
			if err := tcpProtocol.SendStatsEvent(s.tcpAddr, event); err != nil {
				logger.Warnf("Failed to emit TCP stats event: %v", err)
			}
		}()
	}

	c.JSON(201, models.APIResponse{
		Success:   true,
		Message:   "Message posted successfully",
		Data:      message,
		Timestamp: time.Now(),
	})
}

// listDiscussions returns the message history for a course study room
func (s *Server) listDiscussions(c *gin.Context) {
	courseID := c.Param("id")
	if courseID == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "course_id is required",
			Timestamp: time.Now(),
		})
		return
	}

	// Parse pagination (higher default for room history)
	page := 1
	limit := 50

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	offset := (page - 1) * limit

	result, err := s.discussionSvc.GetHistory(c.Request.Context(), courseID, limit, offset)
	if err != nil {
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to get discussion history",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Data:      result,
		Timestamp: time.Now(),
	})
}

// getRoomPresence returns who is currently active in a study room
func (s *Server) getRoomPresence(c *gin.Context) {
	courseID := c.Param("id")
	if courseID == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "course_id is required",
			Timestamp: time.Now(),
		})
		return
	}

	presence, err := s.discussionSvc.GetPresence(c.Request.Context(), courseID)
	if err != nil {
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to get room presence",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success: true,
		Data: gin.H{
			"course_id": courseID,
			"users":     presence,
			"total":     len(presence),
		},
		Timestamp: time.Now(),
	})
}

// getActiveRooms returns study rooms with recent discussion activity
func (s *Server) getActiveRooms(c *gin.Context) {
	// Parse limit
	limit := 10
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 50 {
			limit = v
		}
	}

	rooms, err := s.discussionSvc.ListActiveRooms(c.Request.Context(), limit)
	if err != nil {
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to list active rooms",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success: true,
		Data: gin.H{
			"rooms": rooms,
			"total": len(rooms),
		},
		Timestamp: time.Now(),
	})
}

// deleteDiscussion deletes a discussion message (only owner can delete)
func (s *Server) deleteDiscussion(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	messageID := c.Param("message_id")
	if messageID == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "message_id is required",
			Timestamp: time.Now(),
		})
		return
	}

	if err := s.discussionSvc.DeleteMessage(c.Request.Context(), messageID, userID); err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Message:   "Message deleted successfully",
		Timestamp: time.Now(),
	})
}
