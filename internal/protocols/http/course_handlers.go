package http

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	tcpProtocol "coursehub/internal/protocols/tcp"
	udpProtocol "coursehub/internal/protocols/udp"
	"coursehub/pkg/models"
)

// createCourse handles course creation
func (s *Server) createCourse(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	user, ok := GetUser(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}
	if user.Role != models.UserRoleAdmin {
		c.JSON(403, models.APIResponse{
			Success:   false,
			Error:     "forbidden: admin access required",
			Timestamp: time.Now(),
		})
		return
	}

	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "invalid request body",
			Timestamp: time.Now(),
		})
		return
	}

	course, err := s.courseSvc.Create(c.Request.Context(), req)
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
	_ = s.activitySvc.CreateActivity(c.Request.Context(), "course_update", &userID, &course.ID)

	// 2. UDP broadcast notification (admin action broadcast)
	if s.udpServer != nil {
		courseID := course.ID
		notification := udpProtocol.Notification{
			Type:     "course_update",
			CourseID: &courseID,
			Title:    course.Title,
			Message:  fmt.Sprintf("New course '%s' added by %s", course.Title, user.Username),
		}
		s.udpServer.Broadcast(notification)
	}

	// 3. TCP stats event
	if s.tcpAddr != "" {
		event := tcpProtocol.StatsEvent{
			Type:      tcpProtocol.EventTypeUpdate,
			CourseID:  course.ID,
			UserID:    &userID,
			EventTime: time.Now(),
			Weight:    5,
			Source:    "http",
		}
		_ = tcpProtocol.SendStatsEvent(s.tcpAddr, event)
	}

	c.JSON(201, models.APIResponse{
		Success:   true,
		Message:   "Course created successfully",
		Data:      course,
		Timestamp: time.Now(),
	})
}

// getCourse retrieves a single course with curriculum and stats
func (s *Server) getCourse(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "course id is required",
			Timestamp: time.Now(),
		})
		return
	}

	course, err := s.courseSvc.GetDetail(c.Request.Context(), id)
	if err != nil {
		c.JSON(404, models.APIResponse{
			Success:   false,
			Error:     "course not found",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Data:      course,
		Timestamp: time.Now(),
	})
}

// listCourses returns a paginated list of courses
func (s *Server) listCourses(c *gin.Context) {
	// Parse pagination parameters
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

	// Get filter parameters
	status := c.Query("status")
	level := c.Query("level")
	category := c.Query("category")

	// Build search request
	req := models.CourseSearchRequest{
		Query:      "",
		Categories: []string{},
		Status:     status,
		Level:      level,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}

	if category != "" {
		req.Categories = []string{category}
	}

	result, err := s.courseSvc.List(c.Request.Context(), req)
	if err != nil {
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to list courses",
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

// searchCourses searches for courses by title and description
func (s *Server) searchCourses(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "search query is required",
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

	result, err := s.courseSvc.Search(c.Request.Context(), query, limit, offset)
	if err != nil {
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "search failed",
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

// getTrendingCourses returns trending courses (top courses by weekly score)
func (s *Server) getTrendingCourses(c *gin.Context) {
	// Parse limit
	limit := 10
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	// Use GetTopCourses from stats service which returns top courses by weekly score
	result, err := s.statsSvc.GetTopCourses(c.Request.Context(), limit, 0)
	if err != nil {
		c.JSON(500, models.APIResponse{
			Success:   false,
			Error:     "failed to get trending courses",
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

// getCourseStats returns engagement stats for a single course
func (s *Server) getCourseStats(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "course id is required",
			Timestamp: time.Now(),
		})
		return
	}

	stats, err := s.statsSvc.GetCourseStats(c.Request.Context(), id)
	if err != nil {
		c.JSON(404, models.APIResponse{
			Success:   false,
			Error:     "course stats not found",
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

// updateCourse updates course information
func (s *Server) updateCourse(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	user, ok := GetUser(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}
	if user.Role != models.UserRoleAdmin {
		c.JSON(403, models.APIResponse{
			Success:   false,
			Error:     "forbidden: admin access required",
			Timestamp: time.Now(),
		})
		return
	}

	id := c.Param("id")
	if id == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "course id is required",
			Timestamp: time.Now(),
		})
		return
	}

	var req models.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "invalid request body",
			Timestamp: time.Now(),
		})
		return
	}

	course, err := s.courseSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	// Record activity
	_ = s.activitySvc.CreateActivity(c.Request.Context(), "course_update", &userID, &course.ID)

	c.JSON(200, models.APIResponse{
		Success:   true,
		Message:   "Course updated successfully",
		Data:      course,
		Timestamp: time.Now(),
	})
}

// deleteCourse deletes a course
func (s *Server) deleteCourse(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	user, ok := GetUser(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}
	if user.Role != models.UserRoleAdmin {
		c.JSON(403, models.APIResponse{
			Success:   false,
			Error:     "forbidden: admin access required",
			Timestamp: time.Now(),
		})
		return
	}

	id := c.Param("id")
	if id == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "course id is required",
			Timestamp: time.Now(),
		})
		return
	}

	if err := s.courseSvc.Delete(c.Request.Context(), id); err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	// Record activity
	_ = s.activitySvc.CreateActivity(c.Request.Context(), "course_update", &userID, &id)

	c.JSON(200, models.APIResponse{
		Success:   true,
		Message:   "Course deleted successfully",
		Timestamp: time.Now(),
	})
}

// addSection adds a curriculum section to a course
func (s *Server) addSection(c *gin.Context) {
	_, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	user, ok := GetUser(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}
	if user.Role != models.UserRoleAdmin {
		c.JSON(403, models.APIResponse{
			Success:   false,
			Error:     "forbidden: admin access required",
			Timestamp: time.Now(),
		})
		return
	}

	courseID := c.Param("id")
	if courseID == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "course id is required",
			Timestamp: time.Now(),
		})
		return
	}

	var req models.CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "invalid request body",
			Timestamp: time.Now(),
		})
		return
	}

	section, err := s.courseSvc.AddSection(c.Request.Context(), courseID, req)
	if err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(201, models.APIResponse{
		Success:   true,
		Message:   "Section added successfully",
		Data:      section,
		Timestamp: time.Now(),
	})
}

// addChapter adds a chapter to a curriculum section
func (s *Server) addChapter(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}

	user, ok := GetUser(c)
	if !ok {
		c.JSON(401, models.APIResponse{
			Success:   false,
			Error:     "unauthorized",
			Timestamp: time.Now(),
		})
		return
	}
	if user.Role != models.UserRoleAdmin {
		c.JSON(403, models.APIResponse{
			Success:   false,
			Error:     "forbidden: admin access required",
			Timestamp: time.Now(),
		})
		return
	}

	courseID := c.Param("id")
	sectionID := c.Param("section_id")
	if courseID == "" || sectionID == "" {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "course id and section id are required",
			Timestamp: time.Now(),
		})
		return
	}

	var req models.CreateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     "invalid request body",
			Timestamp: time.Now(),
		})
		return
	}

	chapter, err := s.courseSvc.AddChapter(c.Request.Context(), courseID, sectionID, req)
	if err != nil {
		c.JSON(400, models.APIResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	// New content counts as a course update for subscribers
	_ = s.activitySvc.CreateActivity(c.Request.Context(), "course_update", &userID, &courseID)

	c.JSON(201, models.APIResponse{
		Success:   true,
		Message:   "Chapter added successfully",
		Data:      chapter,
		Timestamp: time.Now(),
	})
}
