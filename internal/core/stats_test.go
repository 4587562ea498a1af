package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursehub/internal/repository"
	"coursehub/pkg/models"
)

// fakeRankingRepo serves canned stats rows and records maintenance calls;
// the embedded interface covers methods the stats tests never reach
type fakeRankingRepo struct {
	repository.StatsRepository
	rows        []*models.CourseStats
	total       int
	decayFactor float64
	rebuilt     bool
	failTotals  bool
}

func (f *fakeRankingRepo) GetTopByWeeklyScore(ctx context.Context, limit, offset int) ([]*models.CourseStats, int, error) {
	end := offset + limit
	if offset > len(f.rows) {
		return nil, f.total, nil
	}
	if end > len(f.rows) {
		end = len(f.rows)
	}
	return f.rows[offset:end], f.total, nil
}

func (f *fakeRankingRepo) GetTrendingCourses(ctx context.Context, hours, limit int) ([]*models.TrendingCourse, error) {
	return nil, nil
}

func (f *fakeRankingRepo) GetEngagementTotals(ctx context.Context) (int, int, error) {
	if f.failTotals {
		return 0, 0, errors.New("totals query failed")
	}
	return 42, 17, nil
}

func (f *fakeRankingRepo) RecalculateWeeklyScores(ctx context.Context, decayFactor float64) error {
	f.decayFactor = decayFactor
	return nil
}

func (f *fakeRankingRepo) RebuildAllStats(ctx context.Context) error {
	f.rebuilt = true
	return nil
}

// GetTrendingCourses fails on purpose; the marketplace aggregate must
// tolerate a missing catalog block.
func (f *fakeCourseRepo) GetTrendingCourses(ctx context.Context, limit int) ([]*models.TopCourse, error) {
	return nil, errors.New("catalog trending unavailable")
}

// fakeActivityFeed serves empty feed reads
type fakeActivityFeed struct {
	repository.ActivityRepository
}

func (f *fakeActivityFeed) GetRecentActivity(ctx context.Context, hours int) ([]*models.ActivityEvent, error) {
	return nil, nil
}

func (f *fakeActivityFeed) GetDailyActivityCounts(ctx context.Context, days int) (map[string]int, error) {
	return map[string]int{"2026-01-01": 3}, nil
}

func statsRow(courseID string, score int) *models.CourseStats {
	return &models.CourseStats{CourseID: courseID, WeeklyScore: score}
}

func TestGetTopCoursesRanksAndPages(t *testing.T) {
	statsRepo := &fakeRankingRepo{
		rows: []*models.CourseStats{
			statsRow("course-1", 30),
			statsRow("course-2", 20),
			statsRow("course-3", 10),
		},
		total: 3,
	}
	courseRepo := &fakeCourseRepo{courses: map[string]*models.Course{
		"course-1": publishedCourse("course-1", 0),
		"course-2": publishedCourse("course-2", 0),
		"course-3": publishedCourse("course-3", 0),
	}}
	svc := NewStatsService(statsRepo, courseRepo, &fakeActivityFeed{})

	resp, err := svc.GetTopCourses(context.Background(), 2, 0)
	require.NoError(t, err)

	require.Len(t, resp.Data, 2)
	assert.Equal(t, 1, resp.Data[0].Rank)
	assert.Equal(t, "course-1", resp.Data[0].Course.ID)
	assert.Equal(t, 30, resp.Data[0].Stats.WeeklyScore)
	assert.Equal(t, 2, resp.Data[1].Rank)
	assert.True(t, resp.HasMore)

	// Second page ranks continue where the first left off
	resp, err = svc.GetTopCourses(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 3, resp.Data[0].Rank)
	assert.False(t, resp.HasMore)
}

func TestGetTopCoursesSkipsMissingCatalogRows(t *testing.T) {
	statsRepo := &fakeRankingRepo{
		rows: []*models.CourseStats{
			statsRow("course-1", 30),
			statsRow("course-gone", 20),
		},
		total: 2,
	}
	courseRepo := &fakeCourseRepo{courses: map[string]*models.Course{
		"course-1": publishedCourse("course-1", 0),
	}}
	svc := NewStatsService(statsRepo, courseRepo, &fakeActivityFeed{})

	resp, err := svc.GetTopCourses(context.Background(), 10, 0)
	require.NoError(t, err)

	// A stats row whose course was deleted drops out of the page
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "course-1", resp.Data[0].Course.ID)
}

func TestGetMarketplaceStatsSurvivesPartialFailures(t *testing.T) {
	statsRepo := &fakeRankingRepo{}
	courseRepo := &fakeCourseRepo{courses: map[string]*models.Course{}}
	svc := NewStatsService(statsRepo, courseRepo, &fakeActivityFeed{})

	resp, err := svc.GetMarketplaceStats(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, resp.TopCourses)
	assert.NotNil(t, resp.ActiveRooms)
	assert.NotNil(t, resp.RecentActivity)
	assert.Equal(t, 42, resp.TotalReviews)
	assert.Equal(t, 17, resp.TotalDiscussions)
	assert.Equal(t, map[string]int{"2026-01-01": 3}, resp.DailyActivity)
}

func TestGetMarketplaceStatsFailsWithoutTotals(t *testing.T) {
	statsRepo := &fakeRankingRepo{failTotals: true}
	courseRepo := &fakeCourseRepo{courses: map[string]*models.Course{}}
	svc := NewStatsService(statsRepo, courseRepo, &fakeActivityFeed{})

	_, err := svc.GetMarketplaceStats(context.Background())
	require.Error(t, err)
}

func TestDecayWeeklyScoresUsesConfiguredFactor(t *testing.T) {
	statsRepo := &fakeRankingRepo{}
	svc := NewStatsService(statsRepo, &fakeCourseRepo{}, &fakeActivityFeed{})

	require.NoError(t, svc.DecayWeeklyScores(context.Background()))
	assert.Equal(t, scoreDecayFactor, statsRepo.decayFactor)
}

func TestRebuildStats(t *testing.T) {
	statsRepo := &fakeRankingRepo{}
	svc := NewStatsService(statsRepo, &fakeCourseRepo{}, &fakeActivityFeed{})

	require.NoError(t, svc.RebuildStats(context.Background()))
	assert.True(t, statsRepo.rebuilt)
}
