// Package core - Discussion Business Logic
// Protocol-agnostic study room message management service
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"coursehub/internal/repository"
	"coursehub/pkg/models"
)

// DiscussionService defines study room operations
type DiscussionService interface {
	SendMessage(ctx context.Context, courseID, userID string, req models.SendDiscussionMessageRequest) (*models.DiscussionMessageResponse, error)
	GetHistory(ctx context.Context, courseID string, limit, offset int) (*models.DiscussionHistoryResponse, error)
	GetPresence(ctx context.Context, courseID string) ([]*models.UserPresence, error)
	ListActiveRooms(ctx context.Context, limit int) ([]*models.StudyRoomInfo, error)
	DeleteMessage(ctx context.Context, id, userID string) error
}

type discussionService struct {
	discussionRepo repository.DiscussionRepository
	userRepo       repository.UserRepository
}

// NewDiscussionService creates a new discussion service
func NewDiscussionService(discussionRepo repository.DiscussionRepository, userRepo repository.UserRepository) DiscussionService {
	return &discussionService{
		discussionRepo: discussionRepo,
		userRepo:       userRepo,
	}
}

// SendMessage posts a new message to a course study room
func (s *discussionService) SendMessage(ctx context.Context, courseID, userID string, req models.SendDiscussionMessageRequest) (*models.DiscussionMessageResponse, error) {
	// Validate input
	if req.Content == "" {
		return nil, fmt.Errorf("content is required")
	}
	if len(req.Content) > 5000 {
		return nil, fmt.Errorf("content exceeds maximum length of 5000 characters")
	}

	// Create message
	message := &models.DiscussionMessage{
		ID:        uuid.New().String(),
		CourseID:  courseID,
		UserID:    userID,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}

	return s.discussionRepo.Create(ctx, message)
}

// GetHistory retrieves study room history for a course with pagination
func (s *discussionService) GetHistory(ctx context.Context, courseID string, limit, offset int) (*models.DiscussionHistoryResponse, error) {
	// Set defaults
	if limit <= 0 || limit > 100 {
		limit = 50 // Higher default for room history
	}
	if offset < 0 {
		offset = 0
	}

	messages, total, err := s.discussionRepo.ListByCourseID(ctx, courseID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get room history: %w", err)
	}

	// Build response with user info
	responses := make([]models.DiscussionMessageResponse, 0, len(messages))
	for _, m := range messages {
		if m != nil {
			responses = append(responses, *m)
		}
	}

	return &models.DiscussionHistoryResponse{
		Data:    responses,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}, nil
}

// GetPresence lists users recently active in a course study room
func (s *discussionService) GetPresence(ctx context.Context, courseID string) ([]*models.UserPresence, error) {
	presence, err := s.discussionRepo.GetRoomPresence(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room presence: %w", err)
	}
	return presence, nil
}

// ListActiveRooms lists study rooms with recent traffic
func (s *discussionService) ListActiveRooms(ctx context.Context, limit int) ([]*models.StudyRoomInfo, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	rooms, err := s.discussionRepo.GetActiveRooms(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list active rooms: %w", err)
	}
	return rooms, nil
}

// DeleteMessage removes a discussion message (only by owner or admin)
func (s *discussionService) DeleteMessage(ctx context.Context, id, userID string) error {
	// Get message to verify ownership
	message, err := s.discussionRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("message not found: %w", err)
	}

	// Check if user is owner
	if message.UserID != userID {
		// Get user to check if admin
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil || user.Role != "admin" {
			return fmt.Errorf("permission denied: only message owner or admin can delete")
		}
	}

	if err := s.discussionRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	return nil
}
