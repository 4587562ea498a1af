package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursehub/internal/core"
	"coursehub/internal/repository"
	"coursehub/pkg/config"
	"coursehub/pkg/models"
)

// stubAuthService resolves fixed bearer tokens; the embedded interface
// covers the methods the progress routes never call
type stubAuthService struct {
	core.AuthService
	users map[string]*models.User // token -> user
}

func (s *stubAuthService) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	user, ok := s.users[token]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return user, nil
}

// memProgressRepo is an in-memory ProgressRepository with an injectable
// CAS conflict count
type memProgressRepo struct {
	mu        sync.Mutex
	records   map[string]*models.CourseProgress
	conflicts int
}

func newMemProgressRepo() *memProgressRepo {
	return &memProgressRepo{records: make(map[string]*models.CourseProgress)}
}

func (r *memProgressRepo) key(userID, courseID string) string {
	return userID + "/" + courseID
}

func (r *memProgressRepo) clone(p *models.CourseProgress) *models.CourseProgress {
	out := *p
	out.Sections = models.CloneSections(p.Sections)
	return &out
}

func (r *memProgressRepo) Get(ctx context.Context, userID, courseID string) (*models.CourseProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[r.key(userID, courseID)]
	if !ok {
		return nil, fmt.Errorf("get_progress: %w", models.ErrProgressNotFound)
	}
	return r.clone(stored), nil
}

func (r *memProgressRepo) ListByUser(ctx context.Context, userID string) ([]models.CourseProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.CourseProgress
	for _, stored := range r.records {
		if stored.UserID == userID {
			out = append(out, *r.clone(stored))
		}
	}
	return out, nil
}

func (r *memProgressRepo) Create(ctx context.Context, progress *models.CourseProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.key(progress.UserID, progress.CourseID)
	if _, ok := r.records[key]; ok {
		return fmt.Errorf("create_progress: %w", models.ErrVersionConflict)
	}
	progress.Version = 1
	r.records[key] = r.clone(progress)
	return nil
}

func (r *memProgressRepo) UpdateCAS(ctx context.Context, progress *models.CourseProgress, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflicts > 0 {
		r.conflicts--
		return fmt.Errorf("update_progress: %w", models.ErrVersionConflict)
	}

	key := r.key(progress.UserID, progress.CourseID)
	stored, ok := r.records[key]
	if !ok || stored.Version != expectedVersion {
		return fmt.Errorf("update_progress: %w", models.ErrVersionConflict)
	}
	progress.Version = expectedVersion + 1
	r.records[key] = r.clone(progress)
	return nil
}

type noopStatsRepo struct {
	repository.StatsRepository
}

func (noopStatsRepo) ApplyProgressDelta(ctx context.Context, userID string, chaptersDelta int, courseCompleted bool) error {
	return nil
}

// envelope mirrors models.APIResponse with raw Data for per-test decoding
type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Timestamp time.Time       `json:"timestamp"`
}

func newProgressTestServer(t *testing.T) (*Server, *memProgressRepo) {
	t.Helper()

	repo := newMemProgressRepo()
	progressSvc := core.NewProgressService(repo, noopStatsRepo{})

	auth := &stubAuthService{users: map[string]*models.User{
		"token-1": {ID: "user-1", Username: "thuc", Role: models.UserRoleUser},
	}}

	cfg := config.Default()
	server := NewServer(cfg, auth, nil, nil, nil, nil, nil, progressSvc, nil, nil)
	return server, repo
}

func doJSON(server *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestUpdateProgressRequiresAuth(t *testing.T) {
	server, _ := newProgressTestServer(t)

	rec := doJSON(server, "PUT", "/api/v1/users/progress/course-1", "", models.UpdateProgressRequest{})
	assert.Equal(t, 401, rec.Code)

	rec = doJSON(server, "PUT", "/api/v1/users/progress/course-1", "bogus", models.UpdateProgressRequest{})
	assert.Equal(t, 401, rec.Code)
}

func TestUpdateProgressRoundTrip(t *testing.T) {
	server, _ := newProgressTestServer(t)

	rec := doJSON(server, "PUT", "/api/v1/users/progress/course-1", "token-1", models.UpdateProgressRequest{
		Sections: []models.SectionProgress{
			{SectionID: "s1", Chapters: []models.ChapterProgress{
				{ChapterID: "c1", Completed: true},
				{ChapterID: "c2", Completed: false},
			}},
		},
	})
	require.Equal(t, 200, rec.Code, rec.Body.String())

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Progress updated successfully", resp.Message)

	// Progress payloads keep the original camelCase key casing
	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(resp.Data, &wire))
	assert.Contains(t, wire, "overallProgress")
	assert.Contains(t, wire, "enrollmentDate")
	assert.Contains(t, wire, "sections")
	assert.NotContains(t, wire, "overall_progress")

	var progress models.CourseProgress
	require.NoError(t, json.Unmarshal(resp.Data, &progress))
	assert.Equal(t, "user-1", progress.UserID)
	assert.Equal(t, "course-1", progress.CourseID)
	assert.Equal(t, float64(50), progress.OverallProgress)

	// GET returns the stored record
	rec = doJSON(server, "GET", "/api/v1/users/progress/course-1", "token-1", nil)
	require.Equal(t, 200, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NoError(t, json.Unmarshal(resp.Data, &progress))
	require.Len(t, progress.Sections, 1)
	assert.Len(t, progress.Sections[0].Chapters, 2)
}

func TestUpdateProgressMergesSingleChapterPayload(t *testing.T) {
	server, _ := newProgressTestServer(t)

	rec := doJSON(server, "PUT", "/api/v1/users/progress/course-1", "token-1", models.UpdateProgressRequest{
		Sections: []models.SectionProgress{
			{SectionID: "s1", Chapters: []models.ChapterProgress{
				{ChapterID: "c1", Completed: true},
				{ChapterID: "c2", Completed: false},
			}},
		},
	})
	require.Equal(t, 200, rec.Code)

	// A payload naming only c2 must not erase c1
	rec = doJSON(server, "PUT", "/api/v1/users/progress/course-1", "token-1", models.UpdateProgressRequest{
		Sections: []models.SectionProgress{
			{SectionID: "s1", Chapters: []models.ChapterProgress{
				{ChapterID: "c2", Completed: true},
			}},
		},
	})
	require.Equal(t, 200, rec.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	var progress models.CourseProgress
	require.NoError(t, json.Unmarshal(resp.Data, &progress))
	require.Len(t, progress.Sections, 1)
	require.Len(t, progress.Sections[0].Chapters, 2)
	assert.Equal(t, float64(100), progress.OverallProgress)
}

func TestGetProgressNotFound(t *testing.T) {
	server, _ := newProgressTestServer(t)

	rec := doJSON(server, "GET", "/api/v1/users/progress/course-none", "token-1", nil)
	require.Equal(t, 404, rec.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "progress not found", resp.Error)
}

func TestUpdateProgressRejectsMalformedBody(t *testing.T) {
	server, _ := newProgressTestServer(t)

	req := httptest.NewRequest("PUT", "/api/v1/users/progress/course-1", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer token-1")

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, 400, rec.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid request body", resp.Error)
}

func TestUpdateProgressRejectsMissingChapterID(t *testing.T) {
	server, _ := newProgressTestServer(t)

	rec := doJSON(server, "PUT", "/api/v1/users/progress/course-1", "token-1", models.UpdateProgressRequest{
		Sections: []models.SectionProgress{
			{SectionID: "s1", Chapters: []models.ChapterProgress{{Completed: true}}},
		},
	})
	require.Equal(t, 400, rec.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "chapterId")
}

func TestUpdateProgressConflictAfterRetriesExhausted(t *testing.T) {
	server, repo := newProgressTestServer(t)

	require.NoError(t, repo.Create(context.Background(), &models.CourseProgress{
		UserID:   "user-1",
		CourseID: "course-1",
		Sections: []models.SectionProgress{
			{SectionID: "s1", Chapters: []models.ChapterProgress{{ChapterID: "c1", Completed: false}}},
		},
	}))
	repo.conflicts = 100

	rec := doJSON(server, "PUT", "/api/v1/users/progress/course-1", "token-1", models.UpdateProgressRequest{
		Sections: []models.SectionProgress{
			{SectionID: "s1", Chapters: []models.ChapterProgress{{ChapterID: "c1", Completed: true}}},
		},
	})
	require.Equal(t, 409, rec.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "concurrent update conflict - please retry", resp.Error)
}

func TestListUserProgress(t *testing.T) {
	server, _ := newProgressTestServer(t)

	for _, courseID := range []string{"course-1", "course-2"} {
		rec := doJSON(server, "PUT", "/api/v1/users/progress/"+courseID, "token-1", models.UpdateProgressRequest{
			Sections: []models.SectionProgress{
				{SectionID: "s1", Chapters: []models.ChapterProgress{{ChapterID: "c1", Completed: true}}},
			},
		})
		require.Equal(t, 200, rec.Code)
	}

	rec := doJSON(server, "GET", "/api/v1/users/progress", "token-1", nil)
	require.Equal(t, 200, rec.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	var listing struct {
		Data  []models.CourseProgress `json:"data"`
		Total int                     `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &listing))
	assert.Equal(t, 2, listing.Total)
	assert.Len(t, listing.Data, 2)
}
