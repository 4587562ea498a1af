package models

import (
	"time"
)

// TransactionStatus represents valid transaction states
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusRefunded  TransactionStatus = "refunded"
)

// Payment providers recorded on transactions
const (
	ProviderCard = "card"
	ProviderFree = "free"
)

// Transaction represents a course purchase record. Ownership of a course is
// the existence of a completed transaction for the (user, course) pair.
type Transaction struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	CourseID    string    `json:"course_id" db:"course_id"`
	AmountCents int       `json:"amount_cents" db:"amount_cents"`
	Currency    string    `json:"currency" db:"currency"`
	Status      string    `json:"status" db:"status"` // pending, completed, failed, refunded
	Provider    string    `json:"provider" db:"provider"`
	ProviderRef string    `json:"provider_ref,omitempty" db:"provider_ref"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CheckoutRequest represents a request to purchase a course
type CheckoutRequest struct {
	Provider string `json:"provider" validate:"omitempty,oneof=card free"`
}

// CheckoutResponse returns the recorded transaction plus the purchased course
type CheckoutResponse struct {
	Transaction Transaction `json:"transaction"`
	Course      Course      `json:"course"`
}

// TransactionListResponse represents paginated transaction history
type TransactionListResponse struct {
	Data    []Transaction `json:"data"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	HasMore bool          `json:"has_more"`
}

// IsValidTransactionStatus validates status against schema constraints
func IsValidTransactionStatus(status string) bool {
	switch TransactionStatus(status) {
	case TransactionStatusPending, TransactionStatusCompleted,
		TransactionStatusFailed, TransactionStatusRefunded:
		return true
	default:
		return false
	}
}
