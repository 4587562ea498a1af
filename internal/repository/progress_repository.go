package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"coursehub/pkg/models"
)

// ProgressRepository persists per-user per-course progress records. Writes
// are conditional on the stored version so concurrent updates from other
// instances surface as models.ErrVersionConflict instead of silently losing
// merged chapters.
type ProgressRepository interface {
	Get(ctx context.Context, userID, courseID string) (*models.CourseProgress, error)
	ListByUser(ctx context.Context, userID string) ([]models.CourseProgress, error)
	Create(ctx context.Context, progress *models.CourseProgress) error
	UpdateCAS(ctx context.Context, progress *models.CourseProgress, expectedVersion int64) error
}

type progressRepository struct {
	pool *pgxpool.Pool
}

// NewProgressRepository creates a new PostgreSQL progress repository
func NewProgressRepository(pool *pgxpool.Pool) ProgressRepository {
	return &progressRepository{pool: pool}
}

// Get retrieves the progress record for one (user, course) pair
func (r *progressRepository) Get(ctx context.Context, userID, courseID string) (*models.CourseProgress, error) {
	query := `
		SELECT user_id, course_id, enrollment_date, overall_progress, last_accessed, sections, version
		FROM course_progress
		WHERE user_id = $1 AND course_id = $2
	`
	progress := &models.CourseProgress{}
	var sectionsJSON []byte

	err := r.pool.QueryRow(ctx, query, userID, courseID).Scan(
		&progress.UserID,
		&progress.CourseID,
		&progress.EnrollmentDate,
		&progress.OverallProgress,
		&progress.LastAccessedTimestamp,
		&sectionsJSON,
		&progress.Version,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("get_progress: %w", models.ErrProgressNotFound)
	}
	if err != nil {
		return nil, r.mapDBError(err, "get_progress")
	}

	if err := json.Unmarshal(sectionsJSON, &progress.Sections); err != nil {
		return nil, fmt.Errorf("decode progress sections: %w", err)
	}

	return progress, nil
}

// ListByUser retrieves every progress record a user has, most recent first
func (r *progressRepository) ListByUser(ctx context.Context, userID string) ([]models.CourseProgress, error) {
	query := `
		SELECT user_id, course_id, enrollment_date, overall_progress, last_accessed, sections, version
		FROM course_progress
		WHERE user_id = $1
		ORDER BY last_accessed DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, r.mapDBError(err, "list_progress")
	}
	defer rows.Close()

	var records []models.CourseProgress
	for rows.Next() {
		var progress models.CourseProgress
		var sectionsJSON []byte
		if err := rows.Scan(
			&progress.UserID,
			&progress.CourseID,
			&progress.EnrollmentDate,
			&progress.OverallProgress,
			&progress.LastAccessedTimestamp,
			&sectionsJSON,
			&progress.Version,
		); err != nil {
			return nil, r.mapDBError(err, "scan_progress")
		}
		if err := json.Unmarshal(sectionsJSON, &progress.Sections); err != nil {
			return nil, fmt.Errorf("decode progress sections: %w", err)
		}
		records = append(records, progress)
	}

	return records, nil
}

// Create inserts the first progress record for a (user, course) pair.
// A concurrent create from another request loses the insert race and gets
// models.ErrVersionConflict so the caller can re-read and merge instead.
func (r *progressRepository) Create(ctx context.Context, progress *models.CourseProgress) error {
	sectionsJSON, err := json.Marshal(progress.Sections)
	if err != nil {
		return fmt.Errorf("encode progress sections: %w", err)
	}

	query := `
		INSERT INTO course_progress (user_id, course_id, enrollment_date, overall_progress, last_accessed, sections, version)
		VALUES ($1, $2, $3, $4, $5, $6, 1)
		RETURNING version
	`
	err = r.pool.QueryRow(ctx, query,
		progress.UserID,
		progress.CourseID,
		progress.EnrollmentDate,
		progress.OverallProgress,
		progress.LastAccessedTimestamp,
		sectionsJSON,
	).Scan(&progress.Version)

	if err != nil {
		return r.mapDBError(err, "create_progress")
	}
	return nil
}

// UpdateCAS writes merged progress only if the stored version still matches
// what the caller read. Zero rows affected means another writer got there
// first and the caller must re-read and re-merge.
func (r *progressRepository) UpdateCAS(ctx context.Context, progress *models.CourseProgress, expectedVersion int64) error {
	sectionsJSON, err := json.Marshal(progress.Sections)
	if err != nil {
		return fmt.Errorf("encode progress sections: %w", err)
	}

	query := `
		UPDATE course_progress
		SET overall_progress = $3, last_accessed = $4, sections = $5, version = version + 1
		WHERE user_id = $1 AND course_id = $2 AND version = $6
	`
	tag, err := r.pool.Exec(ctx, query,
		progress.UserID,
		progress.CourseID,
		progress.OverallProgress,
		progress.LastAccessedTimestamp,
		sectionsJSON,
		expectedVersion,
	)
	if err != nil {
		return r.mapDBError(err, "update_progress")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update_progress: %w", models.ErrVersionConflict)
	}

	progress.Version = expectedVersion + 1
	return nil
}

// mapDBError maps database errors to application errors
func (r *progressRepository) mapDBError(err error, operation string) error {
	if err == pgx.ErrNoRows {
		return fmt.Errorf("%s: %w", operation, models.ErrProgressNotFound)
	}

	if pgErr, ok := err.(*pgconn.PgError); ok {
		switch pgErr.Code {
		case "23505": // unique_violation - lost a concurrent create race
			return fmt.Errorf("%s: %w", operation, models.ErrVersionConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("invalid user or course reference: %w", err)
		case "40001": // serialization_failure
			return fmt.Errorf("%s: %w", operation, models.ErrVersionConflict)
		}
	}

	return fmt.Errorf("database error during %s: %w", operation, err)
}
