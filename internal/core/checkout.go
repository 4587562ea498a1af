// Package core - Checkout Business Logic
// Protocol-agnostic purchase and course ownership service
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"coursehub/internal/repository"
	"coursehub/pkg/models"
)

// CheckoutService defines purchase operations
type CheckoutService interface {
	Checkout(ctx context.Context, userID, courseID string, req models.CheckoutRequest) (*models.CheckoutResponse, error)
	GetLibrary(ctx context.Context, userID string) ([]*models.LibraryEntry, error)
	ListTransactions(ctx context.Context, userID string, limit, offset int) (*models.TransactionListResponse, error)
	VerifyOwnership(ctx context.Context, userID, courseID string) (bool, error)
}

type checkoutService struct {
	txnRepo    repository.TransactionRepository
	courseRepo repository.CourseRepository
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(txnRepo repository.TransactionRepository, courseRepo repository.CourseRepository) CheckoutService {
	return &checkoutService{
		txnRepo:    txnRepo,
		courseRepo: courseRepo,
	}
}

// Checkout purchases a course for the user. Free courses enroll directly,
// paid courses run a simulated card capture before the ownership record is
// written. The completed transaction IS the enrollment.
func (s *checkoutService) Checkout(ctx context.Context, userID, courseID string, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("course not found: %w", err)
	}

	if course.Status != string(models.CourseStatusPublished) {
		return nil, fmt.Errorf("course is not available for purchase")
	}

	owned, err := s.txnRepo.HasCompleted(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ownership: %w", err)
	}
	if owned {
		return nil, fmt.Errorf("checkout rejected: %w", models.ErrAlreadyOwned)
	}

	provider := req.Provider
	if provider == "" {
		if course.IsFree() {
			provider = models.ProviderFree
		} else {
			provider = models.ProviderCard
		}
	}
	if provider == models.ProviderFree && !course.IsFree() {
		return nil, fmt.Errorf("course requires payment")
	}

	txn := &models.Transaction{
		UserID:      userID,
		CourseID:    courseID,
		AmountCents: course.PriceCents,
		Currency:    course.Currency,
		Provider:    provider,
		CreatedAt:   time.Now(),
	}

	if provider == models.ProviderCard {
		// Simulated synchronous capture. A real integration would hold a
		// pending transaction until the provider webhook lands.
		txn.ProviderRef = "ch_" + uuid.New().String()
	}

	completed, err := s.txnRepo.CreateCompleted(ctx, txn)
	if err != nil {
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	return &models.CheckoutResponse{
		Transaction: *completed,
		Course:      *course,
	}, nil
}

// GetLibrary lists every course the user owns with progress attached
func (s *checkoutService) GetLibrary(ctx context.Context, userID string) ([]*models.LibraryEntry, error) {
	entries, err := s.txnRepo.ListLibrary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}
	return entries, nil
}

// ListTransactions retrieves the user's purchase history
func (s *checkoutService) ListTransactions(ctx context.Context, userID string, limit, offset int) (*models.TransactionListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	txns, total, err := s.txnRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	data := make([]models.Transaction, 0, len(txns))
	for _, txn := range txns {
		if txn != nil {
			data = append(data, *txn)
		}
	}

	return &models.TransactionListResponse{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}, nil
}

// VerifyOwnership reports whether the user owns the course
func (s *checkoutService) VerifyOwnership(ctx context.Context, userID, courseID string) (bool, error) {
	owned, err := s.txnRepo.HasCompleted(ctx, userID, courseID)
	if err != nil {
		return false, fmt.Errorf("failed to verify ownership: %w", err)
	}
	return owned, nil
}
