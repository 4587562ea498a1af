package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursehub/internal/repository"
	"coursehub/pkg/models"
)

// fakeProgressRepo is an in-memory ProgressRepository with injectable
// version conflicts and stale reads
type fakeProgressRepo struct {
	mu         sync.Mutex
	records    map[string]*models.CourseProgress
	conflicts  int // CAS attempts to reject before accepting
	staleReads int // Gets that report not-found despite a stored record
	casCalls   int
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{records: make(map[string]*models.CourseProgress)}
}

func progressKey(userID, courseID string) string {
	return userID + "/" + courseID
}

func copyProgress(p *models.CourseProgress) *models.CourseProgress {
	out := *p
	out.Sections = models.CloneSections(p.Sections)
	return &out
}

func (f *fakeProgressRepo) Get(ctx context.Context, userID, courseID string) (*models.CourseProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.staleReads > 0 {
		f.staleReads--
		return nil, fmt.Errorf("get_progress: %w", models.ErrProgressNotFound)
	}

	stored, ok := f.records[progressKey(userID, courseID)]
	if !ok {
		return nil, fmt.Errorf("get_progress: %w", models.ErrProgressNotFound)
	}
	return copyProgress(stored), nil
}

func (f *fakeProgressRepo) ListByUser(ctx context.Context, userID string) ([]models.CourseProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.CourseProgress
	for _, stored := range f.records {
		if stored.UserID == userID {
			out = append(out, *copyProgress(stored))
		}
	}
	return out, nil
}

func (f *fakeProgressRepo) Create(ctx context.Context, progress *models.CourseProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := progressKey(progress.UserID, progress.CourseID)
	if _, ok := f.records[key]; ok {
		return fmt.Errorf("create_progress: %w", models.ErrVersionConflict)
	}

	progress.Version = 1
	f.records[key] = copyProgress(progress)
	return nil
}

func (f *fakeProgressRepo) UpdateCAS(ctx context.Context, progress *models.CourseProgress, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.casCalls++
	if f.conflicts > 0 {
		f.conflicts--
		return fmt.Errorf("update_progress: %w", models.ErrVersionConflict)
	}

	key := progressKey(progress.UserID, progress.CourseID)
	stored, ok := f.records[key]
	if !ok || stored.Version != expectedVersion {
		return fmt.Errorf("update_progress: %w", models.ErrVersionConflict)
	}

	progress.Version = expectedVersion + 1
	f.records[key] = copyProgress(progress)
	return nil
}

// fakeStatsRepo records progress deltas; the embedded interface covers the
// methods the progress service never calls
type fakeStatsRepo struct {
	repository.StatsRepository
	mu     sync.Mutex
	deltas []int
}

func (f *fakeStatsRepo) ApplyProgressDelta(ctx context.Context, userID string, chaptersDelta int, courseCompleted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deltas = append(f.deltas, chaptersDelta)
	return nil
}

func newProgressServiceForTest() (ProgressService, *fakeProgressRepo, *fakeStatsRepo) {
	progressRepo := newFakeProgressRepo()
	statsRepo := &fakeStatsRepo{}
	return NewProgressService(progressRepo, statsRepo), progressRepo, statsRepo
}

func TestUpdateProgressCreatesRecordLazily(t *testing.T) {
	svc, repo, _ := newProgressServiceForTest()

	incoming := []models.SectionProgress{
		section("s1", chapter("c1", true), chapter("c2", false)),
	}

	before := time.Now().UTC()
	record, err := svc.UpdateProgress(context.Background(), "user-1", "course-1", incoming)
	require.NoError(t, err)

	assert.Equal(t, "user-1", record.UserID)
	assert.Equal(t, "course-1", record.CourseID)
	assert.Equal(t, float64(50), record.OverallProgress)
	require.WithinDuration(t, before, record.EnrollmentDate, 2*time.Second)
	require.WithinDuration(t, record.EnrollmentDate, record.LastAccessedTimestamp, time.Second)

	stored, err := repo.Get(context.Background(), "user-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
}

func TestUpdateProgressMergesIntoExistingRecord(t *testing.T) {
	svc, repo, _ := newProgressServiceForTest()

	enrolled := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	repo.records[progressKey("user-1", "course-1")] = &models.CourseProgress{
		UserID:                "user-1",
		CourseID:              "course-1",
		EnrollmentDate:        enrolled,
		OverallProgress:       0,
		LastAccessedTimestamp: enrolled,
		Sections: []models.SectionProgress{
			section("s1", chapter("c1", false), chapter("c2", false)),
		},
		Version: 3,
	}

	record, err := svc.UpdateProgress(context.Background(), "user-1", "course-1", []models.SectionProgress{
		section("s1", chapter("c1", true)),
	})
	require.NoError(t, err)

	assert.Equal(t, float64(50), record.OverallProgress)
	assert.Equal(t, enrolled, record.EnrollmentDate, "enrollment date is immutable")
	assert.True(t, record.LastAccessedTimestamp.After(enrolled))
	assert.Equal(t, int64(4), record.Version)
}

func TestUpdateProgressRetriesOnVersionConflict(t *testing.T) {
	svc, repo, _ := newProgressServiceForTest()

	repo.records[progressKey("user-1", "course-1")] = &models.CourseProgress{
		UserID:   "user-1",
		CourseID: "course-1",
		Sections: []models.SectionProgress{section("s1", chapter("c1", false))},
		Version:  1,
	}
	repo.conflicts = 2

	record, err := svc.UpdateProgress(context.Background(), "user-1", "course-1", []models.SectionProgress{
		section("s1", chapter("c1", true)),
	})
	require.NoError(t, err)
	assert.Equal(t, float64(100), record.OverallProgress)
	assert.Equal(t, 3, repo.casCalls, "two conflicted attempts plus the winning one")
}

func TestUpdateProgressReturnsConflictAfterRetriesExhausted(t *testing.T) {
	svc, repo, _ := newProgressServiceForTest()

	repo.records[progressKey("user-1", "course-1")] = &models.CourseProgress{
		UserID:   "user-1",
		CourseID: "course-1",
		Sections: []models.SectionProgress{section("s1", chapter("c1", false))},
		Version:  1,
	}
	repo.conflicts = 100

	_, err := svc.UpdateProgress(context.Background(), "user-1", "course-1", []models.SectionProgress{
		section("s1", chapter("c1", true)),
	})
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.StatusCode)
	assert.Equal(t, "concurrent update conflict - please retry", appErr.Message)
}

func TestUpdateProgressRecoversFromCreationRace(t *testing.T) {
	svc, repo, _ := newProgressServiceForTest()

	// Another instance wrote the record after our first (stale) read
	repo.records[progressKey("user-1", "course-1")] = &models.CourseProgress{
		UserID:   "user-1",
		CourseID: "course-1",
		Sections: []models.SectionProgress{section("s1", chapter("c1", true))},
		Version:  1,
	}
	repo.staleReads = 1

	record, err := svc.UpdateProgress(context.Background(), "user-1", "course-1", []models.SectionProgress{
		section("s1", chapter("c2", true)),
	})
	require.NoError(t, err)

	require.Len(t, record.Sections, 1)
	assert.Len(t, record.Sections[0].Chapters, 2, "merge must include the racing writer's chapters")
	assert.Equal(t, float64(100), record.OverallProgress)
}

func TestUpdateProgressRejectsMissingChapterID(t *testing.T) {
	svc, repo, _ := newProgressServiceForTest()

	_, err := svc.UpdateProgress(context.Background(), "user-1", "course-1", []models.SectionProgress{
		{SectionID: "s1", Chapters: []models.ChapterProgress{{Completed: true}}},
	})
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.StatusCode)
	assert.Empty(t, repo.records, "validation must reject before any state is touched")
}

func TestUpdateProgressSerializesConcurrentWriters(t *testing.T) {
	svc, repo, _ := newProgressServiceForTest()

	const writers = 20
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.UpdateProgress(context.Background(), "user-1", "course-1", []models.SectionProgress{
				section("s1", chapter(fmt.Sprintf("c%d", i), true)),
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "writer %d", i)
	}

	stored, err := repo.Get(context.Background(), "user-1", "course-1")
	require.NoError(t, err)
	require.Len(t, stored.Sections, 1)
	assert.Len(t, stored.Sections[0].Chapters, writers, "every writer's chapter must survive")
	assert.Equal(t, float64(100), stored.OverallProgress)
}

func TestGetProgressNotFound(t *testing.T) {
	svc, _, _ := newProgressServiceForTest()

	_, err := svc.GetProgress(context.Background(), "user-1", "course-none")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrProgressNotFound))
}

func TestListUserProgress(t *testing.T) {
	svc, repo, _ := newProgressServiceForTest()

	repo.records[progressKey("user-1", "course-1")] = &models.CourseProgress{
		UserID: "user-1", CourseID: "course-1", Version: 1,
	}
	repo.records[progressKey("user-1", "course-2")] = &models.CourseProgress{
		UserID: "user-1", CourseID: "course-2", Version: 1,
	}
	repo.records[progressKey("user-2", "course-1")] = &models.CourseProgress{
		UserID: "user-2", CourseID: "course-1", Version: 1,
	}

	records, err := svc.ListUserProgress(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestUpdateProgressRecordsLearningStats(t *testing.T) {
	svc, _, stats := newProgressServiceForTest()

	_, err := svc.UpdateProgress(context.Background(), "user-1", "course-1", []models.SectionProgress{
		section("s1", chapter("c1", true), chapter("c2", false)),
	})
	require.NoError(t, err)

	_, err = svc.UpdateProgress(context.Background(), "user-1", "course-1", []models.SectionProgress{
		section("s1", chapter("c1", false)),
	})
	require.NoError(t, err)

	stats.mu.Lock()
	defer stats.mu.Unlock()
	require.Len(t, stats.deltas, 2)
	assert.Equal(t, 1, stats.deltas[0], "first update completes one chapter")
	assert.Equal(t, -1, stats.deltas[1], "un-completing must subtract")
}
