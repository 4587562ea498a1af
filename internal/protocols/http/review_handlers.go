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

// createReview creates a new review
func (s *Server) createReview(c *gin.Context) {
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

	var req models.CreateReviewRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "invalid request body",
			Timestamp: time.Now(),
		})
		return
	}

	review, err := s.reviewSvc.Create(c.Request.Context(), courseID, userID, req)
	if err != nil {
		// Only owners of the course may review it
		if errors.Is(err, models.ErrCourseNotOwned) {
			c.JSON(403, models.APIResponse{
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
	_ = s.activitySvc.CreateActivity(c.Request.Context(), "review", &userID, &courseID)

	// 2. Emit TCP stats event for real-time aggregation
	if s.tcpAddr != "" {
		go func() {
			event := tcpProtocol.StatsEvent{
				Type:      tcpProtocol.EventTypeReview,
				CourseID:  courseID,
				UserID:    &userID,
				EventTime: time.Now(),
				Weight:    1,
				Source:    "http",
			}
			if err := tcpProtocol.SendStatsEvent(s.tcpAddr, event); err != nil {
				logger.Warnf("Failed to emit TCP stats event: %v", err)
			}
		}()
	}

	c.JSON(201, models.APIResponse{
		Success:   true,
		Message:   "Review created successfully",
		Data:      review,
		Timestamp: time.Now(),
	})
}

// listReviews returns reviews for a course
func (s *Server) listReviews(c *gin.Context) {
	courseID := c.Param("id")
	if courseID == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "course_id is required",
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

	result, err := s.reviewSvc.ListByCourseID(c.Request.Context(), courseID, limit, offset)
	if err != nil {
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to list reviews",
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

// getCourseRating returns the aggregate rating for a course
func (s *Server) getCourseRating(c *gin.Context) {
	courseID := c.Param("id")
	if courseID == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "course_id is required",
			Timestamp: time.Now(),
		})
		return
	}

	average, count, err := s.reviewSvc.GetCourseRating(c.Request.Context(), courseID)
	if err != nil {
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to get course rating",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success: true,
		Data: gin.H{
			"course_id":      courseID,
			"average_rating": average,
			"review_count":   count,
		},
		Timestamp: time.Now(),
	})
}

// markReviewHelpful increments the helpful count for a review
func (s *Server) markReviewHelpful(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	reviewID := c.Param("review_id")
	if reviewID == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "review_id is required",
			Timestamp: time.Now(),
		})
		return
	}

	review, err := s.reviewSvc.MarkHelpful(c.Request.Context(), reviewID, userID)
	if err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	// Record activity
	_ = s.activitySvc.CreateActivity(c.Request.Context(), "review", &userID, nil)

	c.JSON(200, models.APIResponse{
		Success:   true,
		Message:   "Review marked as helpful",
		Data:      review,
		Timestamp: time.Now(),
	})
}

// deleteReview deletes a review (only owner can delete)
func (s *Server) deleteReview(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	reviewID := c.Param("review_id")
	if reviewID == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "review_id is required",
			Timestamp: time.Now(),
		})
		return
	}

	// Get review to verify ownership
	review, err := s.reviewSvc.GetByID(c.Request.Context(), reviewID)
	if err != nil {
		c.JSON(404, models.APIResponse{
			Success:   false,
			Error:     "review not found",
			Timestamp: time.Now(),
		})
		return
	}

	if review.UserID != userID {
		c.JSON(403, models.APIResponse{
			Success:   false,
			Error:     "you can only delete your own reviews",
			Timestamp: time.Now(),
		})
		return
	}

	if err := s.reviewSvc.Delete(c.Request.Context(), reviewID, userID); err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Message:   "Review deleted successfully",
		Timestamp: time.Now(),
	})
}
