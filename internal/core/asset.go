// Package core - Asset Delivery Business Logic
// Issues playback URLs for chapter videos, gated on course ownership
package core

import (
	"context"
	"fmt"
	"time"

	"coursehub/internal/repository"
	"coursehub/pkg/models"
	"coursehub/pkg/objectstore"
)

// AssetService defines video delivery operations
type AssetService interface {
	GetPlaybackURL(ctx context.Context, userID, courseID, chapterID string) (*models.PlaybackResponse, error)
}

type assetService struct {
	courseRepo repository.CourseRepository
	txnRepo    repository.TransactionRepository
	assets     objectstore.Store
	urlTTL     time.Duration
}

// NewAssetService creates a new asset delivery service
func NewAssetService(courseRepo repository.CourseRepository, txnRepo repository.TransactionRepository, assets objectstore.Store, urlTTL time.Duration) AssetService {
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &assetService{
		courseRepo: courseRepo,
		txnRepo:    txnRepo,
		assets:     assets,
		urlTTL:     urlTTL,
	}
}

// GetPlaybackURL signs a playback URL for a chapter video. Free preview
// chapters are open to everyone, the rest require a completed purchase.
func (s *assetService) GetPlaybackURL(ctx context.Context, userID, courseID, chapterID string) (*models.PlaybackResponse, error) {
	chapter, err := s.courseRepo.GetChapter(ctx, courseID, chapterID)
	if err != nil {
		return nil, fmt.Errorf("chapter not found: %w", err)
	}

	if !chapter.FreePreview {
		owned, err := s.txnRepo.HasCompleted(ctx, userID, courseID)
		if err != nil {
			return nil, fmt.Errorf("failed to verify ownership: %w", err)
		}
		if !owned {
			return nil, fmt.Errorf("playback denied: %w", models.ErrCourseNotOwned)
		}
	}

	if chapter.VideoKey == "" {
		return nil, fmt.Errorf("chapter has no video attached")
	}

	url, err := s.assets.SignedPlaybackURL(chapter.VideoKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign playback URL: %w", err)
	}

	return &models.PlaybackResponse{
		ChapterID: chapter.ID,
		URL:       url,
		ExpiresAt: time.Now().Add(s.urlTTL),
	}, nil
}
