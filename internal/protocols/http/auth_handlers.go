package http

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"coursehub/internal/core"
	"coursehub/pkg/models"
)

// fail writes the error envelope with the right status. Service errors
// carrying an AppError keep their own status code.
func fail(c *gin.Context, status int, err error, fallback string) {
	msg := fallback
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		if appErr.StatusCode != 0 {
			status = appErr.StatusCode
		}
		msg = appErr.Message
	} else if err != nil && status < 500 {
		msg = err.Error()
	}
	c.JSON(status, models.APIResponse{
		Success:   false,
		Error:     msg,
		Timestamp: time.Now(),
	})
}

// register handles user registration
func (s *Server) register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, 400, nil, "invalid request body")
		return
	}

	user, err := s.authSvc.Register(c.Request.Context(), req)
	if errors.Is(err, core.ErrUsernameTaken) {
		fail(c, 409, err, "username already taken")
		return
	}
	if err != nil {
		fail(c, 400, err, "registration failed")
		return
	}

	c.JSON(201, models.APIResponse{
		Success:   true,
		Message:   "User registered successfully",
		Data:      gin.H{"user": user},
		Timestamp: time.Now(),
	})
}

// login handles user authentication
func (s *Server) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, 400, nil, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		fail(c, 400, nil, "username and password are required")
		return
	}

	resp, err := s.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		// Always the same message, so the endpoint does not leak whether
		// the username exists
		fail(c, 401, nil, "invalid credentials")
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Message:   "Login successful",
		Data:      resp,
		Timestamp: time.Now(),
	})
}

// updateUserRole allows admins to change user roles
func (s *Server) updateUserRole(c *gin.Context) {
	userID := c.Param("id")

	var req models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, 400, nil, "invalid request body")
		return
	}

	if err := s.authSvc.UpdateUserRole(c.Request.Context(), userID, req.Role); err != nil {
		fail(c, 400, err, "failed to update role")
		return
	}

	user, err := s.authSvc.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		fail(c, 500, nil, "role updated but failed to fetch user")
		return
	}

	c.JSON(200, models.APIResponse{
		Success:   true,
		Message:   "User role updated successfully",
		Data:      gin.H{"user": user},
		Timestamp: time.Now(),
	})
}
