package core

import (
	"context"
	"fmt"

	"coursehub/internal/repository"
	"coursehub/pkg/logger"
	"coursehub/pkg/models"
)

// StatsService defines statistics operations
type StatsService interface {
	GetCourseStats(ctx context.Context, courseID string) (*models.CourseStats, error)
	GetUserStats(ctx context.Context, userID string) (*models.UserStats, error)
	IncrementReviewCount(ctx context.Context, courseID string) error
	IncrementEnrollmentCount(ctx context.Context, courseID string) error
	IncrementDiscussionCount(ctx context.Context, courseID string) error
	GetTopCourses(ctx context.Context, limit, offset int) (*models.RankedCourseResponse, error)
	GetTrendingCourses(ctx context.Context, hours, limit int) ([]*models.TrendingCourse, error)
	GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
	GetMarketplaceStats(ctx context.Context) (*models.StatsResponse, error)
	DecayWeeklyScores(ctx context.Context) error
	RebuildStats(ctx context.Context) error
}

type statsService struct {
	statsRepo    repository.StatsRepository
	courseRepo   repository.CourseRepository
	activityRepo repository.ActivityRepository
}

// NewStatsService creates a new statistics service
func NewStatsService(
	statsRepo repository.StatsRepository,
	courseRepo repository.CourseRepository,
	activityRepo repository.ActivityRepository,
) StatsService {
	return &statsService{
		statsRepo:    statsRepo,
		courseRepo:   courseRepo,
		activityRepo: activityRepo,
	}
}

// GetCourseStats retrieves statistics for a course
func (s *statsService) GetCourseStats(ctx context.Context, courseID string) (*models.CourseStats, error) {
	stats, err := s.statsRepo.GetByCourseID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course stats: %w", err)
	}
	return stats, nil
}

// GetUserStats retrieves learning statistics for a user
func (s *statsService) GetUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	stats, err := s.statsRepo.GetUserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return stats, nil
}

// bumpCounter applies one counter increment. The repository adds the
// event's weight to the weekly score in the same transaction.
func (s *statsService) bumpCounter(ctx context.Context, courseID, counter string, inc func(context.Context, string) error) error {
	if err := inc(ctx, courseID); err != nil {
		return fmt.Errorf("failed to increment %s count: %w", counter, err)
	}
	return nil
}

// IncrementReviewCount increments the review count for a course
func (s *statsService) IncrementReviewCount(ctx context.Context, courseID string) error {
	return s.bumpCounter(ctx, courseID, "review", s.statsRepo.IncrementReviewCount)
}

// IncrementEnrollmentCount increments the enrollment count for a course
func (s *statsService) IncrementEnrollmentCount(ctx context.Context, courseID string) error {
	return s.bumpCounter(ctx, courseID, "enrollment", s.statsRepo.IncrementEnrollmentCount)
}

// IncrementDiscussionCount increments the discussion count for a course
func (s *statsService) IncrementDiscussionCount(ctx context.Context, courseID string) error {
	return s.bumpCounter(ctx, courseID, "discussion", s.statsRepo.IncrementDiscussionCount)
}

// GetTopCourses retrieves top ranked courses by weekly score
func (s *statsService) GetTopCourses(ctx context.Context, limit, offset int) (*models.RankedCourseResponse, error) {
	// Set defaults
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	statsList, total, err := s.statsRepo.GetTopByWeeklyScore(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get top courses: %w", err)
	}

	var rankedCourses []models.RankedCourse
	rank := offset + 1

	for _, stats := range statsList {
		course, err := s.courseRepo.GetByID(ctx, stats.CourseID)
		if err != nil {
			continue
		}

		rankedCourses = append(rankedCourses, models.RankedCourse{
			Course: *course,
			Stats:  *stats,
			Rank:   rank,
		})
		rank++
	}

	return &models.RankedCourseResponse{
		Data:    rankedCourses,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}, nil
}

// GetTrendingCourses retrieves courses trending over the given window
func (s *statsService) GetTrendingCourses(ctx context.Context, hours, limit int) ([]*models.TrendingCourse, error) {
	if hours <= 0 {
		hours = 24
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	trending, err := s.statsRepo.GetTrendingCourses(ctx, hours, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get trending courses: %w", err)
	}
	return trending, nil
}

// GetLeaderboard retrieves the learner leaderboard
func (s *statsService) GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	entries, err := s.statsRepo.GetLeaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return entries, nil
}

// GetMarketplaceStats aggregates the storefront dashboard payload
func (s *statsService) GetMarketplaceStats(ctx context.Context) (*models.StatsResponse, error) {
	response := &models.StatsResponse{
		TopCourses:     []models.TopCourse{},
		ActiveRooms:    []models.TrendingCourse{},
		RecentActivity: []models.ActivityEvent{},
	}

	top, err := s.courseRepo.GetTrendingCourses(ctx, 5)
	if err != nil {
		logger.Warnf("failed to load top courses: %v", err)
	} else {
		for _, course := range top {
			response.TopCourses = append(response.TopCourses, *course)
		}
	}

	rooms, err := s.statsRepo.GetTrendingCourses(ctx, 24, 5)
	if err != nil {
		logger.Warnf("failed to load active rooms: %v", err)
	} else {
		for _, room := range rooms {
			response.ActiveRooms = append(response.ActiveRooms, *room)
		}
	}

	events, err := s.activityRepo.GetRecentActivity(ctx, 24)
	if err != nil {
		logger.Warnf("failed to load recent activity: %v", err)
	} else {
		if len(events) > 20 {
			events = events[:20]
		}
		for _, event := range events {
			response.RecentActivity = append(response.RecentActivity, *event)
		}
	}

	daily, err := s.activityRepo.GetDailyActivityCounts(ctx, 7)
	if err != nil {
		logger.Warnf("failed to load daily activity counts: %v", err)
	} else {
		response.DailyActivity = daily
	}

	reviews, discussions, err := s.statsRepo.GetEngagementTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get engagement totals: %w", err)
	}
	response.TotalReviews = reviews
	response.TotalDiscussions = discussions

	return response, nil
}

// scoreDecayFactor is how much of the previous weekly score survives a
// refresh. The refresh re-adds points for the trailing seven days of
// feed rows, so the factor only controls how long older surges echo.
const scoreDecayFactor = 0.25

// DecayWeeklyScores refreshes every course's weekly score: decay the
// old score, then re-add points for feed activity in the trailing week.
// Runs on a timer from the server process.
func (s *statsService) DecayWeeklyScores(ctx context.Context) error {
	if err := s.statsRepo.RecalculateWeeklyScores(ctx, scoreDecayFactor); err != nil {
		return fmt.Errorf("failed to refresh weekly scores: %w", err)
	}
	return nil
}

// RebuildStats recounts every course's counters from the source tables.
// Admin-triggered repair for counter drift.
func (s *statsService) RebuildStats(ctx context.Context) error {
	if err := s.statsRepo.RebuildAllStats(ctx); err != nil {
		return fmt.Errorf("failed to rebuild stats: %w", err)
	}
	return nil
}
