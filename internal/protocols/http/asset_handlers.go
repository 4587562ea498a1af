package http

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"coursehub/pkg/models"
)

// getChapterPlayback returns a short-lived signed URL for a chapter video.
// Free preview chapters are available to any authenticated user, everything
// else requires ownership of the course.
func (s *Server) getChapterPlayback(c *gin.Context) {
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
	chapterID := c.Param("chapter_id")
	if courseID == "" || chapterID == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "course id and chapter id are required",
			Timestamp: time.Now(),
		})
		return
	}

	playback, err := s.assetSvc.GetPlaybackURL(c.Request.Context(), userID, courseID, chapterID)
	if err != nil {
		if errors.Is(err, models.ErrCourseNotOwned) {
			c.JSON(403, models.APIResponse{
				Success:   false,
				Error:     "purchase the course to unlock this chapter",
				Timestamp: time.Now(),
			})
			return
		}
		if errors.Is(err, models.ErrChapterNotFound) || errors.Is(err, models.ErrCourseNotFound) {
			c.JSON(404, models.APIResponse{
				Success:   false,
				Error:     "chapter not found",
				Timestamp: time.Now(),
			})
			return
		}
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to generate playback url",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Data:      playback,
		Timestamp: time.Now(),
	})
}
