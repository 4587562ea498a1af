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

// ReviewRepository handles review data persistence with protocol integration
type ReviewRepository interface {
	// Core CRUD operations
	Create(ctx context.Context, review *models.Review) (*models.ReviewResponse, error)
	GetByID(ctx context.Context, id string) (*models.Review, error)
	ListByCourseID(ctx context.Context, courseID string, limit, offset int) ([]*models.ReviewResponse, int, error)
	MarkHelpful(ctx context.Context, reviewID string, userID string) (*models.ReviewResponse, error)
	Delete(ctx context.Context, id string) error

	// Protocol-specific methods
	GetReviewActivity(ctx context.Context, since time.Time) ([]*models.ReviewActivityEvent, error)

	// Stats & Ranking integration
	GetCourseRating(ctx context.Context, courseID string) (float64, int, error)

	// Transaction support
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type reviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository creates a new PostgreSQL review repository
func NewReviewRepository(pool *pgxpool.Pool) ReviewRepository {
	return &reviewRepository{pool: pool}
}

// Create inserts a new review with activity logging and stats events
func (r *reviewRepository) Create(ctx context.Context, review *models.Review) (*models.ReviewResponse, error) {
	var response *models.ReviewResponse

	err := r.WithTransaction(ctx, func(tx pgx.Tx) error {
		if review.ID == "" {
			review.ID = rowID("rev")
		}

		// Insert review - unique (course_id, user_id) enforces one per user
		insertQuery := `
			INSERT INTO reviews (id, course_id, user_id, rating, content, helpful_count, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, CURRENT_TIMESTAMP))
			RETURNING id, created_at
		`

		err := tx.QueryRow(ctx, insertQuery,
			review.ID,
			review.CourseID,
			review.UserID,
			review.Rating,
			review.Content,
			review.HelpfulCount,
			review.CreatedAt,
		).Scan(&review.ID, &review.CreatedAt)

		if err != nil {
			return r.mapDBError(err, "create_review")
		}

		// Log to activity feed
		activity := &models.Activity{
			ID:        rowID("act"),
			Type:      models.ActivityTypeReview,
			UserID:    &review.UserID,
			CourseID:  &review.CourseID,
			CreatedAt: review.CreatedAt,
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
			return r.mapDBError(err, "log_review_activity")
		}

		// Update course stats
		statsQuery := `
			INSERT INTO course_stats (course_id, review_count, weekly_score, updated_at)
			VALUES ($1, 1, 1, CURRENT_TIMESTAMP)
			ON CONFLICT (course_id) DO UPDATE
			SET review_count = course_stats.review_count + 1,
				weekly_score = course_stats.weekly_score + 1,
				updated_at = CURRENT_TIMESTAMP
		`
		_, err = tx.Exec(ctx, statsQuery, review.CourseID)
		if err != nil {
			return r.mapDBError(err, "update_review_stats")
		}

		// Get user info for response
		userQuery := `SELECT username FROM users WHERE id = $1`
		var username string
		err = tx.QueryRow(ctx, userQuery, review.UserID).Scan(&username)
		if err != nil {
			return r.mapDBError(err, "get_review_user")
		}

		response = &models.ReviewResponse{
			ID:           review.ID,
			CourseID:     review.CourseID,
			User:         models.ReviewUser{ID: review.UserID, Username: username},
			Rating:       review.Rating,
			Content:      review.Content,
			HelpfulCount: review.HelpfulCount,
			CreatedAt:    review.CreatedAt,
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return response, nil
}

// GetByID retrieves a review by ID
func (r *reviewRepository) GetByID(ctx context.Context, id string) (*models.Review, error) {
	query := `
		SELECT id, course_id, user_id, rating, content, helpful_count, created_at
		FROM reviews
		WHERE id = $1
	`
	review := &models.Review{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&review.ID,
		&review.CourseID,
		&review.UserID,
		&review.Rating,
		&review.Content,
		&review.HelpfulCount,
		&review.CreatedAt,
	)

	if err != nil {
		return nil, r.mapDBError(err, "get_review_by_id")
	}
	return review, nil
}

// ListByCourseID retrieves reviews for a course with user info and pagination
func (r *reviewRepository) ListByCourseID(ctx context.Context, courseID string, limit, offset int) ([]*models.ReviewResponse, int, error) {
	// Get total count
	var total int
	countQuery := `SELECT COUNT(*) FROM reviews WHERE course_id = $1`
	err := r.pool.QueryRow(ctx, countQuery, courseID).Scan(&total)
	if err != nil {
		return nil, 0, r.mapDBError(err, "count_reviews")
	}

	// Get paginated results with user info
	query := `
		SELECT
			rv.id, rv.course_id, rv.user_id, rv.rating, rv.content, rv.helpful_count, rv.created_at,
			u.username
		FROM reviews rv
		INNER JOIN users u ON rv.user_id = u.id
		WHERE rv.course_id = $1
		ORDER BY rv.helpful_count DESC, rv.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, courseID, limit, offset)
	if err != nil {
		return nil, 0, r.mapDBError(err, "list_reviews")
	}
	defer rows.Close()

	var reviews []*models.ReviewResponse
	for rows.Next() {
		var review models.ReviewResponse
		var username string

		err := rows.Scan(
			&review.ID,
			&review.CourseID,
			&review.User.ID,
			&review.Rating,
			&review.Content,
			&review.HelpfulCount,
			&review.CreatedAt,
			&username,
		)
		if err != nil {
			return nil, 0, r.mapDBError(err, "scan_review")
		}

		review.User.Username = username
		reviews = append(reviews, &review)
	}

	return reviews, total, nil
}

// MarkHelpful increments the helpful count for a review with activity logging
func (r *reviewRepository) MarkHelpful(ctx context.Context, reviewID string, userID string) (*models.ReviewResponse, error) {
	var response *models.ReviewResponse

	err := r.WithTransaction(ctx, func(tx pgx.Tx) error {
		// Lock the review row to log activity against the right course
		var courseID string
		getQuery := `SELECT course_id FROM reviews WHERE id = $1 FOR UPDATE`
		err := tx.QueryRow(ctx, getQuery, reviewID).Scan(&courseID)
		if err != nil {
			return r.mapDBError(err, "mark_review_helpful")
		}

		// Atomic helpful count increment
		updateQuery := `
			UPDATE reviews
			SET helpful_count = helpful_count + 1
			WHERE id = $1
			RETURNING id, course_id, user_id, rating, content, helpful_count, created_at
		`

		review := &models.Review{}
		err = tx.QueryRow(ctx, updateQuery, reviewID).Scan(
			&review.ID,
			&review.CourseID,
			&review.UserID,
			&review.Rating,
			&review.Content,
			&review.HelpfulCount,
			&review.CreatedAt,
		)
		if err != nil {
			return r.mapDBError(err, "update_review_helpful")
		}

		// Helpful votes feed the trending score but not the review count
		statsQuery := `
			INSERT INTO course_stats (course_id, weekly_score, updated_at)
			VALUES ($1, 1, CURRENT_TIMESTAMP)
			ON CONFLICT (course_id) DO UPDATE
			SET weekly_score = course_stats.weekly_score + 1,
				updated_at = CURRENT_TIMESTAMP
		`
		_, err = tx.Exec(ctx, statsQuery, courseID)
		if err != nil {
			return r.mapDBError(err, "update_helpful_stats")
		}

		// Get user info for the review author (not the voter)
		userQuery := `SELECT username FROM users WHERE id = $1`
		var username string
		err = tx.QueryRow(ctx, userQuery, review.UserID).Scan(&username)
		if err != nil {
			return r.mapDBError(err, "get_review_user_for_helpful")
		}

		response = &models.ReviewResponse{
			ID:           review.ID,
			CourseID:     review.CourseID,
			User:         models.ReviewUser{ID: review.UserID, Username: username},
			Rating:       review.Rating,
			Content:      review.Content,
			HelpfulCount: review.HelpfulCount,
			CreatedAt:    review.CreatedAt,
		}

		// Log helpful activity against the affected course
		helpfulActivity := &models.Activity{
			ID:        rowID("act"),
			Type:      models.ActivityTypeReview,
			UserID:    &userID, // voter, not the review author
			CourseID:  &review.CourseID,
			CreatedAt: time.Now(),
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO activity_feed (id, type, user_id, course_id, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`,
			helpfulActivity.ID,
			helpfulActivity.Type,
			helpfulActivity.UserID,
			helpfulActivity.CourseID,
			helpfulActivity.CreatedAt,
		)
		if err != nil {
			return r.mapDBError(err, "log_review_helpful_activity")
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return response, nil
}

// GetReviewActivity gets recent review activity for the engagement aggregator
func (r *reviewRepository) GetReviewActivity(ctx context.Context, since time.Time) ([]*models.ReviewActivityEvent, error) {
	query := `
		SELECT id, course_id, user_id, created_at
		FROM reviews
		WHERE created_at >= $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, r.mapDBError(err, "get_review_activity")
	}
	defer rows.Close()

	var events []*models.ReviewActivityEvent
	for rows.Next() {
		var event models.ReviewActivityEvent

		err := rows.Scan(
			&event.ReviewID,
			&event.CourseID,
			&event.UserID,
			&event.Timestamp,
		)
		if err != nil {
			return nil, r.mapDBError(err, "scan_review_activity")
		}

		event.Type = "review_created"
		events = append(events, &event)
	}

	return events, nil
}

// GetCourseRating returns the average rating and review count for a course
func (r *reviewRepository) GetCourseRating(ctx context.Context, courseID string) (float64, int, error) {
	query := `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews
		WHERE course_id = $1
	`
	var avg float64
	var count int
	err := r.pool.QueryRow(ctx, query, courseID).Scan(&avg, &count)
	if err != nil {
		return 0, 0, r.mapDBError(err, "get_course_rating")
	}
	return avg, count, nil
}

// Delete removes a review and associated stats contributions
func (r *reviewRepository) Delete(ctx context.Context, id string) error {
	return r.WithTransaction(ctx, func(tx pgx.Tx) error {
		// Get review first to adjust the right course's stats
		var courseID, userID string
		getQuery := `SELECT course_id, user_id FROM reviews WHERE id = $1`
		err := tx.QueryRow(ctx, getQuery, id).Scan(&courseID, &userID)
		if err != nil {
			return r.mapDBError(err, "delete_review")
		}

		// Delete review
		deleteQuery := `DELETE FROM reviews WHERE id = $1`
		result, err := tx.Exec(ctx, deleteQuery, id)
		if err != nil {
			return r.mapDBError(err, "delete_review")
		}

		rowsAffected := result.RowsAffected()
		if rowsAffected == 0 {
			return r.mapDBError(pgx.ErrNoRows, "delete_review")
		}

		// Update course stats
		statsQuery := `
			UPDATE course_stats
			SET review_count = GREATEST(review_count - 1, 0),
				weekly_score = GREATEST(weekly_score - 1, 0),
				updated_at = CURRENT_TIMESTAMP
			WHERE course_id = $1
		`
		_, err = tx.Exec(ctx, statsQuery, courseID)
		if err != nil {
			return r.mapDBError(err, "update_review_stats")
		}

		return nil
	})
}

// WithTransaction executes a function within a database transaction
func (r *reviewRepository) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
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
func (r *reviewRepository) mapDBError(err error, operation string) error {
	if err == pgx.ErrNoRows {
		switch operation {
		case "get_review_by_id", "delete_review", "mark_review_helpful":
			return fmt.Errorf("%s: %w", operation, models.ErrNotFound)
		default:
			return fmt.Errorf("resource not found: %w", err)
		}
	}

	if pgErr, ok := err.(*pgconn.PgError); ok {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			if operation == "create_review" {
				return fmt.Errorf("invalid course or user reference: %w", err)
			}
			return fmt.Errorf("foreign key violation: %w", err)
		case "22001": // string_data_right_truncation
			return fmt.Errorf("review content too long: %w", err)
		case "23505": // unique_violation - one review per user per course
			return models.NewHTTPError(models.ErrCodeConflict, "you have already reviewed this course", 409, err)
		case "23514": // check_violation - rating out of range
			return fmt.Errorf("rating must be between 1 and 5: %w", err)
		}
	}

	return fmt.Errorf("database error during %s: %w", operation, err)
}
