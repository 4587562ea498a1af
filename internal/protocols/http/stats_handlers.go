package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"coursehub/pkg/models"
)

// getTopCourses returns top courses by weekly score
func (s *Server) getTopCourses(c *gin.Context) {
	// Parse limit parameter
	limit := 10
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	topCourses, err := s.statsSvc.GetTopCourses(c.Request.Context(), limit, 0)
	if err != nil {
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to get top courses",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Data:      topCourses,
		Timestamp: time.Now(),
	})
}

// getTrendingStats returns courses with engagement spikes in a recent window
func (s *Server) getTrendingStats(c *gin.Context) {
	// Parse window and limit parameters
	hours := 24
	if h := c.Query("hours"); h != "" {
		if v, err := strconv.Atoi(h); err == nil && v > 0 && v <= 168 {
			hours = v
		}
	}

	limit := 10
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	trending, err := s.statsSvc.GetTrendingCourses(c.Request.Context(), hours, limit)
	if err != nil {
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to get trending courses",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success: true,
		Data: gin.H{
			"hours":   hours,
			"courses": trending,
		},
		Timestamp: time.Now(),
	})
}

// getLeaderboard returns the most active learners
func (s *Server) getLeaderboard(c *gin.Context) {
	limit := 10
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	leaderboard, err := s.statsSvc.GetLeaderboard(c.Request.Context(), limit)
	if err != nil {
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to get leaderboard",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Data:      leaderboard,
		Timestamp: time.Now(),
	})
}

// getMarketplaceStats returns the aggregate marketplace dashboard
func (s *Server) getMarketplaceStats(c *gin.Context) {
	stats, err := s.statsSvc.GetMarketplaceStats(c.Request.Context())
	if err != nil {
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to get marketplace stats",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Data:      stats,
		Timestamp: time.Now(),
	})
}

// rebuildStats recounts all course stats from the source tables.
// Slow on a large catalog; admins run it to repair counter drift.
func (s *Server) rebuildStats(c *gin.Context) {
	if err := s.statsSvc.RebuildStats(c.Request.Context()); err != nil {
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to rebuild stats",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Message:   "course stats rebuilt",
		Timestamp: time.Now(),
	})
}

// getUserStatistics returns statistics for a specific user
func (s *Server) getUserStatistics(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "user id is required",
			Timestamp: time.Now(),
		})
		return
	}

	stats, err := s.statsSvc.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(404, models.APIResponse{
			Success:   false,
			Error:     "user statistics not found",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Data:      stats,
		Timestamp: time.Now(),
	})
}
