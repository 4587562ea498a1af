package models

import (
	"time"
)

// Review represents a course review - EXACTLY matches schema.sql
type Review struct {
	ID           string    `json:"id" db:"id"`
	CourseID     string    `json:"course_id" db:"course_id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Rating       int       `json:"rating" db:"rating"`
	Content      string    `json:"content" db:"content"`
	HelpfulCount int       `json:"helpful_count" db:"helpful_count"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// CreateReviewRequest - one review per user per course, enforced by the store
type CreateReviewRequest struct {
	CourseID string `json:"course_id" validate:"required"` // Can also be in URL path
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Content  string `json:"content" validate:"required,min=1,max=5000"`
}

// MarkHelpfulRequest - required for the "found this helpful" functionality
type MarkHelpfulRequest struct {
	ReviewID string `json:"review_id" validate:"required"`
}

// ReviewUser - minimal user info for review responses
type ReviewUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ReviewResponse represents a review with user info for API responses
type ReviewResponse struct {
	ID           string     `json:"id"`
	CourseID     string     `json:"course_id"`
	User         ReviewUser `json:"user"`
	Rating       int        `json:"rating"`
	Content      string     `json:"content"`
	HelpfulCount int        `json:"helpful_count"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ReviewListResponse is paginated list of reviews - standard format
type ReviewListResponse struct {
	Data    []ReviewResponse `json:"data"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
	HasMore bool             `json:"has_more"`
}

// ReviewActivityEvent - for emitting to the TCP engagement aggregator
type ReviewActivityEvent struct {
	Type      string    `json:"type"` // "review_created" or "review_helpful"
	ReviewID  string    `json:"review_id"`
	CourseID  string    `json:"course_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

const MaxReviewLength = 5000
