package core

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursehub/pkg/models"
)

// fakeAssetStore signs predictable URLs without touching GCS
type fakeAssetStore struct {
	signed []string
}

func (f *fakeAssetStore) Upload(ctx context.Context, key string, r io.Reader) error { return nil }
func (f *fakeAssetStore) Delete(ctx context.Context, key string) error              { return nil }
func (f *fakeAssetStore) PublicURL(key string) string                               { return "https://cdn.test/" + key }
func (f *fakeAssetStore) Close() error                                              { return nil }

func (f *fakeAssetStore) SignedPlaybackURL(key string) (string, error) {
	f.signed = append(f.signed, key)
	return "https://signed.test/" + key, nil
}

func assetFixture() (*fakeCourseRepo, *fakeTxnRepo, *fakeAssetStore) {
	courseRepo := &fakeCourseRepo{
		courses: map[string]*models.Course{
			"course-1": publishedCourse("course-1", 4999),
		},
		chapters: map[string]*models.CourseChapter{
			"course-1/ch-intro": {
				ID:          "ch-intro",
				SectionID:   "sec-1",
				Title:       "Welcome",
				VideoKey:    "videos/course-1/intro.mp4",
				FreePreview: true,
			},
			"course-1/ch-deep": {
				ID:        "ch-deep",
				SectionID: "sec-1",
				Title:     "Deep Dive",
				VideoKey:  "videos/course-1/deep.mp4",
			},
		},
	}
	return courseRepo, newFakeTxnRepo(), &fakeAssetStore{}
}

func TestGetPlaybackURLFreePreviewSkipsOwnership(t *testing.T) {
	courseRepo, txnRepo, store := assetFixture()
	svc := NewAssetService(courseRepo, txnRepo, store, 10*time.Minute)

	resp, err := svc.GetPlaybackURL(context.Background(), "stranger", "course-1", "ch-intro")
	require.NoError(t, err)

	assert.Equal(t, "ch-intro", resp.ChapterID)
	assert.Equal(t, "https://signed.test/videos/course-1/intro.mp4", resp.URL)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
}

func TestGetPlaybackURLRequiresOwnership(t *testing.T) {
	courseRepo, txnRepo, store := assetFixture()
	svc := NewAssetService(courseRepo, txnRepo, store, 10*time.Minute)

	_, err := svc.GetPlaybackURL(context.Background(), "stranger", "course-1", "ch-deep")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrCourseNotOwned))
	assert.Empty(t, store.signed, "no URL may be signed for unowned content")
}

func TestGetPlaybackURLForOwner(t *testing.T) {
	courseRepo, txnRepo, store := assetFixture()
	txnRepo.owned[ownershipKey("buyer", "course-1")] = true
	svc := NewAssetService(courseRepo, txnRepo, store, 10*time.Minute)

	resp, err := svc.GetPlaybackURL(context.Background(), "buyer", "course-1", "ch-deep")
	require.NoError(t, err)
	assert.Equal(t, "https://signed.test/videos/course-1/deep.mp4", resp.URL)
}

func TestGetPlaybackURLUnknownChapter(t *testing.T) {
	courseRepo, txnRepo, store := assetFixture()
	svc := NewAssetService(courseRepo, txnRepo, store, 10*time.Minute)

	_, err := svc.GetPlaybackURL(context.Background(), "buyer", "course-1", "ch-none")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrChapterNotFound))
}
