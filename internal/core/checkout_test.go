package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursehub/internal/repository"
	"coursehub/pkg/models"
)

// fakeCourseRepo serves a fixed catalog; the embedded interface covers
// methods the tests never reach
type fakeCourseRepo struct {
	repository.CourseRepository
	courses  map[string]*models.Course
	chapters map[string]*models.CourseChapter
}

func (f *fakeCourseRepo) GetByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := f.courses[id]
	if !ok {
		return nil, fmt.Errorf("get_course_by_id: %w", models.ErrCourseNotFound)
	}
	out := *course
	return &out, nil
}

func (f *fakeCourseRepo) GetChapter(ctx context.Context, courseID, chapterID string) (*models.CourseChapter, error) {
	chapter, ok := f.chapters[courseID+"/"+chapterID]
	if !ok {
		return nil, fmt.Errorf("get_chapter: %w", models.ErrChapterNotFound)
	}
	out := *chapter
	return &out, nil
}

// fakeTxnRepo tracks ownership in memory
type fakeTxnRepo struct {
	repository.TransactionRepository
	mu      sync.Mutex
	owned   map[string]bool
	created []*models.Transaction
}

func newFakeTxnRepo() *fakeTxnRepo {
	return &fakeTxnRepo{owned: make(map[string]bool)}
}

func ownershipKey(userID, courseID string) string {
	return userID + "/" + courseID
}

func (f *fakeTxnRepo) HasCompleted(ctx context.Context, userID, courseID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owned[ownershipKey(userID, courseID)], nil
}

func (f *fakeTxnRepo) CreateCompleted(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := ownershipKey(txn.UserID, txn.CourseID)
	if f.owned[key] {
		return nil, fmt.Errorf("create_transaction: %w", models.ErrAlreadyOwned)
	}

	txn.ID = "txn-test"
	txn.Status = string(models.TransactionStatusCompleted)
	f.owned[key] = true
	f.created = append(f.created, txn)
	return txn, nil
}

func publishedCourse(id string, priceCents int) *models.Course {
	return &models.Course{
		ID:         id,
		Title:      "Course " + id,
		Instructor: "Ada",
		PriceCents: priceCents,
		Currency:   "USD",
		Status:     string(models.CourseStatusPublished),
		Level:      string(models.CourseLevelBeginner),
		CreatedAt:  time.Now(),
	}
}

func TestCheckoutFreeCourseEnrollsDirectly(t *testing.T) {
	courseRepo := &fakeCourseRepo{courses: map[string]*models.Course{
		"course-1": publishedCourse("course-1", 0),
	}}
	txnRepo := newFakeTxnRepo()
	svc := NewCheckoutService(txnRepo, courseRepo)

	resp, err := svc.Checkout(context.Background(), "user-1", "course-1", models.CheckoutRequest{})
	require.NoError(t, err)

	assert.Equal(t, models.ProviderFree, resp.Transaction.Provider)
	assert.Equal(t, string(models.TransactionStatusCompleted), resp.Transaction.Status)
	assert.Equal(t, 0, resp.Transaction.AmountCents)
	assert.Empty(t, resp.Transaction.ProviderRef)

	owned, err := svc.VerifyOwnership(context.Background(), "user-1", "course-1")
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestCheckoutPaidCourseCapturesCard(t *testing.T) {
	courseRepo := &fakeCourseRepo{courses: map[string]*models.Course{
		"course-1": publishedCourse("course-1", 4999),
	}}
	txnRepo := newFakeTxnRepo()
	svc := NewCheckoutService(txnRepo, courseRepo)

	resp, err := svc.Checkout(context.Background(), "user-1", "course-1", models.CheckoutRequest{})
	require.NoError(t, err)

	assert.Equal(t, models.ProviderCard, resp.Transaction.Provider)
	assert.Equal(t, 4999, resp.Transaction.AmountCents)
	assert.Equal(t, "USD", resp.Transaction.Currency)
	assert.True(t, strings.HasPrefix(resp.Transaction.ProviderRef, "ch_"))
}

func TestCheckoutRejectsDoublePurchase(t *testing.T) {
	courseRepo := &fakeCourseRepo{courses: map[string]*models.Course{
		"course-1": publishedCourse("course-1", 0),
	}}
	txnRepo := newFakeTxnRepo()
	svc := NewCheckoutService(txnRepo, courseRepo)

	_, err := svc.Checkout(context.Background(), "user-1", "course-1", models.CheckoutRequest{})
	require.NoError(t, err)

	_, err = svc.Checkout(context.Background(), "user-1", "course-1", models.CheckoutRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrAlreadyOwned))
}

func TestCheckoutRejectsUnpublishedCourse(t *testing.T) {
	draft := publishedCourse("course-1", 0)
	draft.Status = string(models.CourseStatusDraft)
	courseRepo := &fakeCourseRepo{courses: map[string]*models.Course{"course-1": draft}}
	svc := NewCheckoutService(newFakeTxnRepo(), courseRepo)

	_, err := svc.Checkout(context.Background(), "user-1", "course-1", models.CheckoutRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not available")
}

func TestCheckoutRejectsFreeProviderOnPaidCourse(t *testing.T) {
	courseRepo := &fakeCourseRepo{courses: map[string]*models.Course{
		"course-1": publishedCourse("course-1", 2500),
	}}
	svc := NewCheckoutService(newFakeTxnRepo(), courseRepo)

	_, err := svc.Checkout(context.Background(), "user-1", "course-1", models.CheckoutRequest{Provider: models.ProviderFree})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires payment")
}

func TestCheckoutUnknownCourse(t *testing.T) {
	courseRepo := &fakeCourseRepo{courses: map[string]*models.Course{}}
	svc := NewCheckoutService(newFakeTxnRepo(), courseRepo)

	_, err := svc.Checkout(context.Background(), "user-1", "course-none", models.CheckoutRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrCourseNotFound))
}
