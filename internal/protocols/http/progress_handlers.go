package http

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"coursehub/pkg/models"
)

// updateProgress merges a progress snapshot from a learner's device into the
// stored record and returns the merged result
func (s *Server) updateProgress(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	courseID := c.Param("course_id")
	if courseID == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "course_id is required",
			Timestamp: time.Now(),
		})
		return
	}

	var req models.UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "invalid request body",
			Timestamp: time.Now(),
		})
		return
	}

	progress, err := s.progressSvc.UpdateProgress(c.Request.Context(), userID, courseID, req.Sections)
	if err != nil {
		// Service errors carry their HTTP status (400 validation, 409 conflict)
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.StatusCode != 0 {
			c.JSON(appErr.StatusCode, models.APIResponse{
				Success:   false,
				Error:     appErr.Message,
				Timestamp: time.Now(),
			})
			return
		}
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to update progress",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Message:   "Progress updated successfully",
		Data:      progress,
		Timestamp: time.Now(),
	})
}

// getProgress returns the stored progress for one course
func (s *Server) getProgress(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	courseID := c.Param("course_id")
	if courseID == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "course_id is required",
			Timestamp: time.Now(),
		})
		return
	}

	progress, err := s.progressSvc.GetProgress(c.Request.Context(), userID, courseID)
	if err != nil {
		if errors.Is(err, models.ErrProgressNotFound) {
			c.JSON(404, models.APIResponse{
				Success:   false,
				Error:     "progress not found",
				Timestamp: time.Now(),
			})
			return
		}
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to get progress",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Data:      progress,
		Timestamp: time.Now(),
	})
}

// listUserProgress returns progress records across all of a learner's courses
func (s *Server) listUserProgress(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	records, err := s.progressSvc.ListUserProgress(c.Request.Context(), userID)
	if err != nil {
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to list progress",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success: true,
		Data: gin.H{
			"data":  records,
			"total": len(records),
		},
		Timestamp: time.Now(),
	})
}
