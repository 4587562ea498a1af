// Package core - Progress Business Logic
// Protocol-agnostic course progress service
// Serializes per-user-per-course updates and retries on version conflicts
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursehub/internal/repository"
	"coursehub/pkg/logger"
	"coursehub/pkg/models"
	"coursehub/pkg/utils"
)

// maxProgressRetries bounds the re-read/re-merge loop when a concurrent
// writer bumps the record version between our read and our write
const maxProgressRetries = 5

// ProgressService defines course progress operations
type ProgressService interface {
	UpdateProgress(ctx context.Context, userID, courseID string, incoming []models.SectionProgress) (*models.CourseProgress, error)
	GetProgress(ctx context.Context, userID, courseID string) (*models.CourseProgress, error)
	ListUserProgress(ctx context.Context, userID string) ([]models.CourseProgress, error)
}

type progressService struct {
	progressRepo repository.ProgressRepository
	statsRepo    repository.StatsRepository
	locks        *utils.KeyedMutex
}

// NewProgressService creates a new progress service
func NewProgressService(progressRepo repository.ProgressRepository, statsRepo repository.StatsRepository) ProgressService {
	return &progressService{
		progressRepo: progressRepo,
		statsRepo:    statsRepo,
		locks:        utils.NewKeyedMutex(),
	}
}

// UpdateProgress merges an incoming partial sections payload into the stored
// record for (userID, courseID), creating the record on first update. The
// per-key lock serializes updates within this process; the version check in
// UpdateCAS protects against writers on other instances.
func (s *progressService) UpdateProgress(ctx context.Context, userID, courseID string, incoming []models.SectionProgress) (*models.CourseProgress, error) {
	if userID == "" {
		return nil, models.NewHTTPError(models.ErrCodeValidation, "userId is required", 400, models.ErrInvalidInput)
	}
	if courseID == "" {
		return nil, models.NewHTTPError(models.ErrCodeValidation, "courseId is required", 400, models.ErrInvalidInput)
	}
	if err := models.ValidateIncomingSections(incoming); err != nil {
		return nil, models.NewHTTPError(models.ErrCodeValidation, err.Error(), 400, err)
	}

	key := userID + ":" + courseID
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	for attempt := 0; attempt < maxProgressRetries; attempt++ {
		stored, err := s.progressRepo.Get(ctx, userID, courseID)

		if err != nil && errors.Is(err, models.ErrProgressNotFound) {
			// First update for this pair: create lazily, no merge needed
			now := time.Now().UTC()
			record := &models.CourseProgress{
				UserID:                userID,
				CourseID:              courseID,
				EnrollmentDate:        now,
				Sections:              models.CloneSections(incoming),
				LastAccessedTimestamp: now,
			}
			record.OverallProgress = CalculateOverallProgress(record.Sections)

			err = s.progressRepo.Create(ctx, record)
			if err != nil && errors.Is(err, models.ErrVersionConflict) {
				// Lost the creation race to another instance; re-read and merge
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to create progress: %w", err)
			}

			s.applyLearningStats(ctx, userID, 0, 0, record)
			return record, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load progress: %w", err)
		}

		prevCompleted, _ := models.CountChapters(stored.Sections)
		prevOverall := stored.OverallProgress

		updated := *stored
		updated.Sections = MergeSections(stored.Sections, incoming)
		updated.OverallProgress = CalculateOverallProgress(updated.Sections)
		updated.LastAccessedTimestamp = time.Now().UTC()

		err = s.progressRepo.UpdateCAS(ctx, &updated, stored.Version)
		if err != nil && errors.Is(err, models.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save progress: %w", err)
		}

		s.applyLearningStats(ctx, userID, prevCompleted, prevOverall, &updated)
		return &updated, nil
	}

	return nil, models.NewHTTPError(models.ErrCodeConflict, "concurrent update conflict - please retry", 409, models.ErrVersionConflict)
}

// GetProgress retrieves the stored progress record for a pair
func (s *progressService) GetProgress(ctx context.Context, userID, courseID string) (*models.CourseProgress, error) {
	progress, err := s.progressRepo.Get(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// ListUserProgress retrieves all progress records for a user, most recently
// accessed first
func (s *progressService) ListUserProgress(ctx context.Context, userID string) ([]models.CourseProgress, error) {
	records, err := s.progressRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return records, nil
}

// applyLearningStats folds the completed-chapter delta into user_stats.
// The progress record is already persisted at this point, so stats failures
// must not surface to the caller.
func (s *progressService) applyLearningStats(ctx context.Context, userID string, prevCompleted int, prevOverall float64, updated *models.CourseProgress) {
	newCompleted, newTotal := models.CountChapters(updated.Sections)
	delta := newCompleted - prevCompleted
	courseCompleted := newTotal > 0 && updated.OverallProgress >= 100 && prevOverall < 100

	if delta == 0 && !courseCompleted {
		return
	}

	if err := s.statsRepo.ApplyProgressDelta(ctx, userID, delta, courseCompleted); err != nil {
		logger.Warnf("failed to update learning stats: %v", err)
	}
}
