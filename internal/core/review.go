// Package core - Review Business Logic
// Protocol-agnostic review management service
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"coursehub/internal/repository"
	"coursehub/pkg/models"
	"coursehub/pkg/utils"
)

// ReviewService defines review operations
type ReviewService interface {
	Create(ctx context.Context, courseID, userID string, req models.CreateReviewRequest) (*models.ReviewResponse, error)
	GetByID(ctx context.Context, id string) (*models.Review, error)
	ListByCourseID(ctx context.Context, courseID string, limit, offset int) (*models.ReviewListResponse, error)
	MarkHelpful(ctx context.Context, id, userID string) (*models.ReviewResponse, error)
	GetCourseRating(ctx context.Context, courseID string) (float64, int, error)
	Delete(ctx context.Context, id, userID string) error
}

type reviewService struct {
	reviewRepo repository.ReviewRepository
	txnRepo    repository.TransactionRepository
	userRepo   repository.UserRepository
}

// NewReviewService creates a new review service
func NewReviewService(reviewRepo repository.ReviewRepository, txnRepo repository.TransactionRepository, userRepo repository.UserRepository) ReviewService {
	return &reviewService{
		reviewRepo: reviewRepo,
		txnRepo:    txnRepo,
		userRepo:   userRepo,
	}
}

// Create creates a new review
func (s *reviewService) Create(ctx context.Context, courseID, userID string, req models.CreateReviewRequest) (*models.ReviewResponse, error) {
	// Validate input
	if err := utils.ValidateRating(req.Rating); err != nil {
		return nil, fmt.Errorf("rating must be between 1 and 5: %w", err)
	}
	if req.Content == "" {
		return nil, fmt.Errorf("content is required")
	}
	if len(req.Content) > models.MaxReviewLength {
		return nil, fmt.Errorf("content exceeds maximum length of %d characters", models.MaxReviewLength)
	}

	// Only learners who bought the course can review it
	owned, err := s.txnRepo.HasCompleted(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify purchase: %w", err)
	}
	if !owned {
		return nil, fmt.Errorf("purchase the course before reviewing it: %w", models.ErrCourseNotOwned)
	}

	review := &models.Review{
		ID:           uuid.New().String(),
		CourseID:     courseID,
		UserID:       userID,
		Rating:       req.Rating,
		Content:      req.Content,
		HelpfulCount: 0,
		CreatedAt:    time.Now(),
	}

	return s.reviewRepo.Create(ctx, review)
}

// GetByID retrieves a review by ID
func (s *reviewService) GetByID(ctx context.Context, id string) (*models.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("review not found: %w", err)
	}
	return review, nil
}

// ListByCourseID retrieves reviews for a course with pagination
func (s *reviewService) ListByCourseID(ctx context.Context, courseID string, limit, offset int) (*models.ReviewListResponse, error) {
	// Set defaults
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	reviews, total, err := s.reviewRepo.ListByCourseID(ctx, courseID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	// Repository already returns ReviewResponse with user info
	responses := make([]models.ReviewResponse, 0, len(reviews))
	for _, review := range reviews {
		if review == nil {
			continue
		}
		responses = append(responses, *review)
	}

	return &models.ReviewListResponse{
		Data:    responses,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}, nil
}

// MarkHelpful increments the helpful count for a review
func (s *reviewService) MarkHelpful(ctx context.Context, id, userID string) (*models.ReviewResponse, error) {
	return s.reviewRepo.MarkHelpful(ctx, id, userID)
}

// GetCourseRating returns the average rating and review count for a course
func (s *reviewService) GetCourseRating(ctx context.Context, courseID string) (float64, int, error) {
	avg, count, err := s.reviewRepo.GetCourseRating(ctx, courseID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load course rating: %w", err)
	}
	return avg, count, nil
}

// Delete removes a review (only by owner or admin)
func (s *reviewService) Delete(ctx context.Context, id, userID string) error {
	// Get review to verify ownership
	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("review not found: %w", err)
	}

	// Check if user is owner
	if review.UserID != userID {
		// Get user to check if admin
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil || user.Role != "admin" {
			return fmt.Errorf("permission denied: only review owner or admin can delete")
		}
	}

	if err := s.reviewRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	return nil
}
