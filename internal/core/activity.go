// Package core - Activity Feed Business Logic
// Protocol-agnostic activity feed management service
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"coursehub/internal/repository"
	"coursehub/pkg/models"
)

// ActivityService defines activity feed operations
type ActivityService interface {
	CreateActivity(ctx context.Context, activityType string, userID *string, courseID *string) error
	GetGlobalFeed(ctx context.Context, limit, offset int) (*models.ActivityFeedResponse, error)
	GetUserFeed(ctx context.Context, userID string, limit, offset int) (*models.ActivityFeedResponse, error)
	GetCourseFeed(ctx context.Context, courseID string, limit, offset int) (*models.ActivityFeedResponse, error)
}

type activityService struct {
	activityRepo repository.ActivityRepository
}

// NewActivityService creates a new activity service
func NewActivityService(activityRepo repository.ActivityRepository) ActivityService {
	return &activityService{activityRepo: activityRepo}
}

// CreateActivity records one feed event
func (s *activityService) CreateActivity(ctx context.Context, activityType string, userID *string, courseID *string) error {
	switch activityType {
	case models.ActivityTypeReview, models.ActivityTypeDiscussion, models.ActivityTypeCourseUpdate, models.ActivityTypeEnrollment:
	default:
		return fmt.Errorf("invalid activity type: must be one of [review, discussion, course_update, enrollment]")
	}

	return s.activityRepo.Create(ctx, &models.Activity{
		ID:        uuid.New().String(),
		Type:      activityType,
		UserID:    userID,
		CourseID:  courseID,
		CreatedAt: time.Now(),
	})
}

// clampWindow normalizes pagination to the feed's allowed range
func clampWindow(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// assembleFeed flattens the repo rows into the feed payload
func assembleFeed(rows []*models.ActivityResponse, total, limit, offset int) *models.ActivityFeedResponse {
	items := make([]models.ActivityResponse, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			items = append(items, *row)
		}
	}
	return &models.ActivityFeedResponse{
		Data:    items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

// GetGlobalFeed retrieves the site-wide feed
func (s *activityService) GetGlobalFeed(ctx context.Context, limit, offset int) (*models.ActivityFeedResponse, error) {
	limit, offset = clampWindow(limit, offset)

	rows, total, err := s.activityRepo.ListGlobal(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get global feed: %w", err)
	}
	return assembleFeed(rows, total, limit, offset), nil
}

// GetUserFeed retrieves one learner's activity
func (s *activityService) GetUserFeed(ctx context.Context, userID string, limit, offset int) (*models.ActivityFeedResponse, error) {
	limit, offset = clampWindow(limit, offset)

	rows, total, err := s.activityRepo.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get user feed: %w", err)
	}
	return assembleFeed(rows, total, limit, offset), nil
}

// GetCourseFeed retrieves the activity around one course
func (s *activityService) GetCourseFeed(ctx context.Context, courseID string, limit, offset int) (*models.ActivityFeedResponse, error) {
	limit, offset = clampWindow(limit, offset)

	rows, total, err := s.activityRepo.ListByCourseID(ctx, courseID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get course feed: %w", err)
	}
	return assembleFeed(rows, total, limit, offset), nil
}
