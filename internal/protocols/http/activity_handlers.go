package http

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Unlike the rest of the API these endpoints return the feed object bare,
// without the response envelope. The TUI and CLI decode them that way.

// feedPage reads ?page/?limit into an offset/limit pair, capping limit at 100
func feedPage(c *gin.Context) (limit, offset int) {
	page := 1
	limit = 50

	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	return limit, (page - 1) * limit
}

// getGlobalFeed returns the site-wide activity feed
func (s *Server) getGlobalFeed(c *gin.Context) {
	limit, offset := feedPage(c)

	result, err := s.activitySvc.GetGlobalFeed(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(500, gin.H{"error": "failed to get global feed"})
		return
	}
	c.JSON(200, result)
}

// getUserFeed returns one learner's activity
func (s *Server) getUserFeed(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(400, gin.H{"error": "user_id is required"})
		return
	}
	limit, offset := feedPage(c)

	result, err := s.activitySvc.GetUserFeed(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(500, gin.H{"error": "failed to get user feed"})
		return
	}
	c.JSON(200, result)
}

// getCourseFeed returns the activity around one course
func (s *Server) getCourseFeed(c *gin.Context) {
	courseID := c.Param("course_id")
	if courseID == "" {
		c.JSON(400, gin.H{"error": "course_id is required"})
		return
	}
	limit, offset := feedPage(c)

	result, err := s.activitySvc.GetCourseFeed(c.Request.Context(), courseID, limit, offset)
	if err != nil {
		c.JSON(500, gin.H{"error": "failed to get course feed"})
		return
	}
	c.JSON(200, result)
}
