package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"

	"coursehub/internal/core"
	udpProtocol "coursehub/internal/protocols/udp"
	"coursehub/pkg/config"
	"coursehub/pkg/database"
)

// Server manages HTTP REST API server
type Server struct {
	router        *gin.Engine
	httpSrv       *nethttp.Server
	config        *config.Config
	authSvc       core.AuthService
	courseSvc     core.CourseService
	reviewSvc     core.ReviewService
	discussionSvc core.DiscussionService
	activitySvc   core.ActivityService
	statsSvc      core.StatsService
	progressSvc   core.ProgressService
	checkoutSvc   core.CheckoutService
	assetSvc      core.AssetService
	udpServer     *udpProtocol.Server // For broadcasting admin events
	tcpAddr       string              // TCP server address for engagement events
	opsDB         *database.DB        // nil outside cmd/server; /health degrades gracefully
}

// NewServer creates a new HTTP server with all handlers
func NewServer(
	cfg *config.Config,
	authSvc core.AuthService,
	courseSvc core.CourseService,
	reviewSvc core.ReviewService,
	discussionSvc core.DiscussionService,
	activitySvc core.ActivityService,
	statsSvc core.StatsService,
	progressSvc core.ProgressService,
	checkoutSvc core.CheckoutService,
	assetSvc core.AssetService,
) *Server {
	// Set Gin to release mode by default
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(corsMiddleware())

	s := &Server{
		router:        router,
		config:        cfg,
		authSvc:       authSvc,
		courseSvc:     courseSvc,
		reviewSvc:     reviewSvc,
		discussionSvc: discussionSvc,
		activitySvc:   activitySvc,
		statsSvc:      statsSvc,
		progressSvc:   progressSvc,
		checkoutSvc:   checkoutSvc,
		assetSvc:      assetSvc,
	}

	s.setupRoutes()
	return s
}

// SetCrossProtocolServers sets UDP and TCP servers for cross-protocol event emission
func (s *Server) SetCrossProtocolServers(udpServer *udpProtocol.Server, tcpAddr string) {
	s.udpServer = udpServer
	s.tcpAddr = tcpAddr
}

// SetOpsDB attaches the operational database handle so /health can probe
// connectivity and report pool usage
func (s *Server) SetOpsDB(db *database.DB) {
	s.opsDB = db
}

// setupRoutes registers all HTTP routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.healthCheck)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// Auth routes (public, rate limited)
		auth := v1.Group("/auth", RateLimitMiddleware(
			s.config.Server.AuthRateLimit.PerSecond,
			s.config.Server.AuthRateLimit.Burst,
		))
		{
			auth.POST("/register", s.register)
			auth.POST("/login", s.login)
		}

		// Admin routes (requires admin role)
		admin := v1.Group("/admin", AuthMiddleware(s.authSvc), AdminMiddleware())
		{
			admin.PUT("/users/:id/role", s.updateUserRole) // Update user role
			admin.POST("/stats/rebuild", s.rebuildStats)   // Recount course stats
		}

		// Course catalog routes
		v1.GET("/courses", s.listCourses)                 // Public: list courses
		v1.GET("/courses/search", s.searchCourses)        // Public: search
		v1.GET("/courses/trending", s.getTrendingCourses) // Public: trending courses
		v1.GET("/courses/:id", s.getCourse)               // Public: course detail page
		v1.GET("/courses/:id/stats", s.getCourseStats)    // Public: engagement stats
		v1.GET("/courses/:id/rating", s.getCourseRating)  // Public: rating summary

		// Protected catalog authoring routes
		protected := v1.Group("", AuthMiddleware(s.authSvc))
		{
			protected.POST("/courses", s.createCourse)                                      // Create course
			protected.PUT("/courses/:id", s.updateCourse)                                   // Update course
			protected.DELETE("/courses/:id", s.deleteCourse)                                // Delete course
			protected.POST("/courses/:id/sections", s.addSection)                           // Add curriculum section
			protected.POST("/courses/:id/sections/:section_id/chapters", s.addChapter)      // Add chapter to section
		}

		// Review routes (use same parameter name :id to avoid conflicts)
		v1.GET("/courses/:id/reviews", s.listReviews) // Public: list reviews

		protectedReviews := v1.Group("", AuthMiddleware(s.authSvc))
		{
			protectedReviews.POST("/courses/:id/reviews", s.createReview)                            // Create review
			protectedReviews.POST("/courses/:id/reviews/:review_id/helpful", s.markReviewHelpful)   // Mark review helpful
			protectedReviews.DELETE("/courses/:id/reviews/:review_id", s.deleteReview)              // Delete own review
		}

		// Discussion routes
		v1.GET("/courses/:id/discussions", s.listDiscussions)           // Public: room history
		v1.GET("/courses/:id/discussions/presence", s.getRoomPresence)  // Public: who is in the room
		v1.GET("/discussions/rooms", s.getActiveRooms)                  // Public: active study rooms

		protectedDiscussions := v1.Group("", AuthMiddleware(s.authSvc))
		{
			protectedDiscussions.POST("/courses/:id/discussions", s.createDiscussion)                  // Post message
			protectedDiscussions.DELETE("/courses/:id/discussions/:message_id", s.deleteDiscussion)    // Delete own message
		}

		// Checkout and learner routes (all require auth)
		learner := v1.Group("", AuthMiddleware(s.authSvc))
		{
			learner.POST("/courses/:id/checkout", s.checkout)                                // Purchase or enroll
			learner.GET("/courses/:id/chapters/:chapter_id/playback", s.getChapterPlayback)  // Signed video URL
			learner.GET("/users/library", s.getLibrary)                                      // Owned courses
			learner.GET("/users/transactions", s.listTransactions)                           // Purchase history
			learner.GET("/users/progress", s.listUserProgress)                               // Progress across courses
			learner.GET("/users/progress/:course_id", s.getProgress)                         // Progress for one course
			learner.PUT("/users/progress/:course_id", s.updateProgress)                      // Merge progress update
		}

		// Activity routes
		activity := v1.Group("/activity")
		{
			activity.GET("/global", s.getGlobalFeed)             // Public: global feed
			activity.GET("/recent", s.getGlobalFeed)             // Alias for global feed
			activity.GET("/course/:course_id", s.getCourseFeed)  // Public: course feed

			protected := activity.Group("", AuthMiddleware(s.authSvc))
			{
				protected.GET("/user/:user_id", s.getUserFeed) // Get user feed
			}
		}

		// Stats routes (public)
		stats := v1.Group("/stats")
		{
			stats.GET("/top", s.getTopCourses)                // Top courses by weekly score
			stats.GET("/trending", s.getTrendingStats)        // Recent engagement spikes
			stats.GET("/leaderboard", s.getLeaderboard)       // Most active learners
			stats.GET("/marketplace", s.getMarketplaceStats)  // Dashboard aggregate
		}

		// Statistics and leaderboard routes (public)
		v1.GET("/statistics/user/:id", s.getUserStatistics) // User statistics
	}
}

// Start serves until Shutdown is called or the listener fails
func (s *Server) Start(addr string) error {
	s.httpSrv = &nethttp.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, nethttp.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests up to the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// healthCheck reports liveness, and database health when the ops handle
// is attached
func (s *Server) healthCheck(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}
	if s.opsDB == nil {
		c.JSON(200, body)
		return
	}

	if err := s.opsDB.HealthCheck(c.Request.Context()); err != nil {
		body["status"] = "degraded"
		body["database"] = "down"
		c.JSON(503, body)
		return
	}
	body["database"] = "up"
	body["pool"] = s.opsDB.PoolStats()
	c.JSON(200, body)
}
