package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	tcpProtocol "coursehub/internal/protocols/tcp"
	"coursehub/pkg/logger"
	"coursehub/pkg/models"
)

// checkout purchases a course (or enrolls directly when it is free)
func (s *Server) checkout(c *gin.Context) {
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

	// Body is optional, the provider is inferred from the course price
	var req models.CheckoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, models.APIResponse{
				Success:   false,
				Error:     "invalid request body",
				Timestamp: time.Now(),
			})
			return
		}
	}

	result, err := s.checkoutSvc.Checkout(c.Request.Context(), userID, courseID, req)
	if err != nil {
		if errors.Is(err, models.ErrCourseNotFound) {
			c.JSON(404, models.APIResponse{
				Success:   false,
				Error:     "course not found",
				Timestamp: time.Now(),
			})
			return
		}
		if errors.Is(err, models.ErrAlreadyOwned) {
			c.JSON(409, models.APIResponse{
				Success:   false,
				Error:     err.Error(),
				Timestamp: time.Now(),
			})
			return
		}
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	// CROSS-PROTOCOL INTEGRATION:
	// 1. Record activity to activity_feed
	_ = s.activitySvc.CreateActivity(c.Request.Context(), "enrollment", &userID, &courseID)

	// 2. Emit TCP stats event for real-time aggregation
	if s.tcpAddr != "" {
		go func() {
			event := tcpProtocol.StatsEvent{
				Type:      tcpProtocol.EventTypeEnrollment,
				CourseID:  courseID,
				UserID:    &userID,
				EventTime: time.Now(),
				Weight:    3,
				Source:    "http",
			}
			if err := tcpProtocol.SendStatsEvent(s.tcpAddr, event); err != nil {
				logger.Warnf("Failed to emit TCP stats event: %v", err)
			}
		}()
	}

	c.JSON(201, models.APIResponse{
		Success:   true,
		Message:   "Checkout completed successfully",
		Data:      result,
		Timestamp: time.Now(),
	})
}

// getLibrary returns the authenticated user's owned courses with progress
func (s *Server) getLibrary(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	entries, err := s.checkoutSvc.GetLibrary(c.Request.Context(), userID)
	if err != nil {
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to get library",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success: true,
		Data: gin.H{
			"data":  entries,
			"total": len(entries),
		},
		Timestamp: time.Now(),
	})
}

// listTransactions returns the authenticated user's purchase history
func (s *Server) listTransactions(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	// Parse pagination
	page := 1
	limit := 20

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

	result, err := s.checkoutSvc.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to list transactions",
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
