package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"coursehub/pkg/models"
)

// TransactionRepository handles purchase records and course ownership
type TransactionRepository interface {
	// CreateCompleted records a finished purchase and grants ownership
	CreateCompleted(ctx context.Context, txn *models.Transaction) (*models.Transaction, error)
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Transaction, int, error)

	// Ownership checks for content gating
	HasCompleted(ctx context.Context, userID, courseID string) (bool, error)
	ListLibrary(ctx context.Context, userID string) ([]*models.LibraryEntry, error)

	// Transaction support
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type transactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(pool *pgxpool.Pool) TransactionRepository {
	return &transactionRepository{pool: pool}
}

// CreateCompleted inserts a completed transaction with enrollment side effects.
// The partial unique index on (user_id, course_id) WHERE status = 'completed'
// rejects double purchases.
func (r *transactionRepository) CreateCompleted(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	err := r.WithTransaction(ctx, func(tx pgx.Tx) error {
		if txn.ID == "" {
			txn.ID = rowID("txn")
		}
		txn.Status = string(models.TransactionStatusCompleted)

		insertQuery := `
			INSERT INTO transactions (id, user_id, course_id, amount_cents, currency, provider, provider_ref, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, CURRENT_TIMESTAMP))
			RETURNING id, created_at
		`

		err := tx.QueryRow(ctx, insertQuery,
			txn.ID,
			txn.UserID,
			txn.CourseID,
			txn.AmountCents,
			txn.Currency,
			txn.Provider,
			txn.ProviderRef,
			txn.Status,
			txn.CreatedAt,
		).Scan(&txn.ID, &txn.CreatedAt)

		if err != nil {
			return r.mapDBError(err, "create_transaction")
		}

		// Log enrollment to activity feed
		activity := &models.Activity{
			ID:        rowID("act"),
			Type:      models.ActivityTypeEnrollment,
			UserID:    &txn.UserID,
			CourseID:  &txn.CourseID,
			CreatedAt: txn.CreatedAt,
		}

		activityQuery := `
			INSERT INTO activity_feed (id, type, user_id, course_id, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`

		_, err = tx.Exec(ctx, activityQuery,
			activity.ID,
			activity.Type,
			activity.UserID,
			activity.CourseID,
			activity.CreatedAt,
		)
		if err != nil {
			return r.mapDBError(err, "log_enrollment_activity")
		}

		// Update course stats - enrollments carry the heaviest weekly weight
		statsQuery := `
			INSERT INTO course_stats (course_id, enrollment_count, weekly_score, updated_at)
			VALUES ($1, 1, 3, CURRENT_TIMESTAMP)
			ON CONFLICT (course_id) DO UPDATE
			SET enrollment_count = course_stats.enrollment_count + 1,
				weekly_score = course_stats.weekly_score + 3,
				updated_at = CURRENT_TIMESTAMP
		`
		_, err = tx.Exec(ctx, statsQuery, txn.CourseID)
		if err != nil {
			return r.mapDBError(err, "update_enrollment_stats")
		}

		// Bump the buyer's learning stats
		userStatsQuery := `
			INSERT INTO user_stats (user_id, courses_enrolled, updated_at)
			VALUES ($1, 1, CURRENT_TIMESTAMP)
			ON CONFLICT (user_id) DO UPDATE
			SET courses_enrolled = user_stats.courses_enrolled + 1,
				updated_at = CURRENT_TIMESTAMP
		`
		_, err = tx.Exec(ctx, userStatsQuery, txn.UserID)
		if err != nil {
			return r.mapDBError(err, "update_user_stats")
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return txn, nil
}

// GetByID retrieves a transaction by ID
func (r *transactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	query := `
		SELECT id, user_id, course_id, amount_cents, currency, provider, provider_ref, status, created_at
		FROM transactions
		WHERE id = $1
	`
	txn := &models.Transaction{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&txn.ID,
		&txn.UserID,
		&txn.CourseID,
		&txn.AmountCents,
		&txn.Currency,
		&txn.Provider,
		&txn.ProviderRef,
		&txn.Status,
		&txn.CreatedAt,
	)

	if err != nil {
		return nil, r.mapDBError(err, "get_transaction_by_id")
	}
	return txn, nil
}

// ListByUser retrieves a user's purchase history with pagination
func (r *transactionRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Transaction, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM transactions WHERE user_id = $1`
	err := r.pool.QueryRow(ctx, countQuery, userID).Scan(&total)
	if err != nil {
		return nil, 0, r.mapDBError(err, "count_transactions")
	}

	query := `
		SELECT id, user_id, course_id, amount_cents, currency, provider, provider_ref, status, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, r.mapDBError(err, "list_transactions")
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		txn := &models.Transaction{}
		err := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&txn.CourseID,
			&txn.AmountCents,
			&txn.Currency,
			&txn.Provider,
			&txn.ProviderRef,
			&txn.Status,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, 0, r.mapDBError(err, "scan_transaction")
		}
		txns = append(txns, txn)
	}

	return txns, total, nil
}

// HasCompleted reports whether the user owns the course
func (r *transactionRepository) HasCompleted(ctx context.Context, userID, courseID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM transactions
			WHERE user_id = $1 AND course_id = $2 AND status = 'completed'
		)
	`
	var owned bool
	err := r.pool.QueryRow(ctx, query, userID, courseID).Scan(&owned)
	if err != nil {
		return false, r.mapDBError(err, "check_ownership")
	}
	return owned, nil
}

// ListLibrary retrieves every course the user owns, newest purchase first,
// with progress joined in when the user has started the course
func (r *transactionRepository) ListLibrary(ctx context.Context, userID string) ([]*models.LibraryEntry, error) {
	query := `
		SELECT
			c.id, c.title, c.description, c.instructor, c.price_cents, c.currency,
			c.status, c.level, c.thumbnail_key, c.created_at, c.updated_at,
			t.created_at AS purchased_at,
			cp.overall_progress,
			cp.last_accessed
		FROM transactions t
		INNER JOIN courses c ON t.course_id = c.id
		LEFT JOIN course_progress cp ON cp.course_id = c.id AND cp.user_id = t.user_id
		WHERE t.user_id = $1 AND t.status = 'completed'
		ORDER BY t.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, r.mapDBError(err, "list_library")
	}
	defer rows.Close()

	var entries []*models.LibraryEntry
	for rows.Next() {
		entry := &models.LibraryEntry{}
		var overall *float64
		var lastAccessed *time.Time

		err := rows.Scan(
			&entry.Course.ID,
			&entry.Course.Title,
			&entry.Course.Description,
			&entry.Course.Instructor,
			&entry.Course.PriceCents,
			&entry.Course.Currency,
			&entry.Course.Status,
			&entry.Course.Level,
			&entry.Course.ThumbnailKey,
			&entry.Course.CreatedAt,
			&entry.Course.UpdatedAt,
			&entry.PurchasedAt,
			&overall,
			&lastAccessed,
		)
		if err != nil {
			return nil, r.mapDBError(err, "scan_library_entry")
		}

		if overall != nil {
			entry.OverallProgress = *overall
		}
		entry.LastAccessed = lastAccessed
		entries = append(entries, entry)
	}

	return entries, nil
}

// WithTransaction executes a function within a database transaction
func (r *transactionRepository) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return r.mapDBError(err, "begin_transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

// mapDBError maps database errors to application errors
func (r *transactionRepository) mapDBError(err error, operation string) error {
	if err == pgx.ErrNoRows {
		return fmt.Errorf("%s: %w", operation, models.ErrNotFound)
	}

	if pgErr, ok := err.(*pgconn.PgError); ok {
		switch pgErr.Code {
		case "23505": // unique_violation - course already owned
			return fmt.Errorf("%s: %w", operation, models.ErrAlreadyOwned)
		case "23503": // foreign_key_violation
			return fmt.Errorf("invalid user or course reference: %w", err)
		case "23514": // check_violation
			return fmt.Errorf("invalid transaction data: %w", err)
		}
	}

	return fmt.Errorf("database error during %s: %w", operation, err)
}
