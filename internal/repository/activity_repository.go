package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"coursehub/pkg/models"
)

// ActivityRepository persists the append-only activity feed. Rows land
// here from three paths (HTTP handlers, the study room hub, and the TCP
// aggregator) and are read back joined with user and course names.
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	ListGlobal(ctx context.Context, limit, offset int) ([]*models.ActivityResponse, int, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.ActivityResponse, int, error)
	ListByCourseID(ctx context.Context, courseID string, limit, offset int) ([]*models.ActivityResponse, int, error)

	// LogNotificationEvent writes an announcement row and, when the event
	// carries a course, mirrors it into the feed in one transaction.
	LogNotificationEvent(ctx context.Context, notification *models.NotificationEvent) error

	// GetRecentActivity feeds the engagement scorer.
	GetRecentActivity(ctx context.Context, hours int) ([]*models.ActivityEvent, error)
	// GetDailyActivityCounts returns per-day feed volume for the platform
	// stats panel.
	GetDailyActivityCounts(ctx context.Context, days int) (map[string]int, error)

	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository creates a new PostgreSQL activity repository
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

// Create inserts a feed row. Blank id and zero timestamp fall back to
// the column defaults.
func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	query := `
		INSERT INTO activity_feed (id, type, user_id, course_id, created_at)
		VALUES (COALESCE($1, uuid_generate_v4()::text), $2, $3, $4, COALESCE($5, CURRENT_TIMESTAMP))
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		nullIfEmpty(activity.ID),
		activity.Type,
		activity.UserID,
		activity.CourseID,
		nullIfZeroTime(activity.CreatedAt),
	).Scan(&activity.ID, &activity.CreatedAt)
	if err != nil {
		return r.mapDBError(err, "create_activity")
	}
	return nil
}

// feedSelect joins each row with the names the feed renders. The joins
// stay LEFT so rows survive user or course deletion.
const feedSelect = `
	SELECT
		a.id, a.type, a.user_id, a.course_id, a.created_at,
		u.username AS user_username,
		c.title AS course_title
	FROM activity_feed a
	LEFT JOIN users u ON a.user_id = u.id
	LEFT JOIN courses c ON a.course_id = c.id
`

func (r *activityRepository) ListGlobal(ctx context.Context, limit, offset int) ([]*models.ActivityResponse, int, error) {
	return r.listFeed(ctx, "", nil, limit, offset)
}

func (r *activityRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.ActivityResponse, int, error) {
	return r.listFeed(ctx, "WHERE a.user_id = $1", []any{userID}, limit, offset)
}

func (r *activityRepository) ListByCourseID(ctx context.Context, courseID string, limit, offset int) ([]*models.ActivityResponse, int, error) {
	return r.listFeed(ctx, "WHERE a.course_id = $1", []any{courseID}, limit, offset)
}

// listFeed runs one shaped feed query: total count first, then the page,
// newest rows first.
func (r *activityRepository) listFeed(ctx context.Context, where string, args []any, limit, offset int) ([]*models.ActivityResponse, int, error) {
	var total int
	countQuery := "SELECT COUNT(*) FROM activity_feed a " + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, r.mapDBError(err, "count_feed")
	}

	query := fmt.Sprintf("%s %s ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d",
		feedSelect, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, r.mapDBError(err, "list_feed")
	}
	defer rows.Close()

	var page []*models.ActivityResponse
	for rows.Next() {
		entry, err := scanFeedRow(rows)
		if err != nil {
			return nil, 0, r.mapDBError(err, "scan_feed_row")
		}
		page = append(page, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, r.mapDBError(err, "read_feed")
	}

	return page, total, nil
}

// scanFeedRow folds the nullable join columns into the nested response
// shape. A dangling user_id or course_id leaves the nested struct nil.
func scanFeedRow(rows pgx.Rows) (*models.ActivityResponse, error) {
	var entry models.ActivityResponse
	var userID, courseID, username, courseTitle *string

	err := rows.Scan(
		&entry.ID,
		&entry.Type,
		&userID,
		&courseID,
		&entry.CreatedAt,
		&username,
		&courseTitle,
	)
	if err != nil {
		return nil, err
	}

	if userID != nil && username != nil {
		entry.User = &models.ActivityUser{ID: *userID, Username: *username}
	}
	if courseID != nil && courseTitle != nil {
		entry.Course = &models.ActivityCourse{ID: *courseID, Title: *courseTitle}
	}
	return &entry, nil
}

// LogNotificationEvent writes the announcement and its feed mirror
// atomically, so the broadcaster and the feed never disagree.
func (r *activityRepository) LogNotificationEvent(ctx context.Context, notification *models.NotificationEvent) error {
	return r.WithTransaction(ctx, func(tx pgx.Tx) error {
		notifQuery := `
			INSERT INTO notifications (id, message, created_at)
			VALUES ($1, $2, $3)
		`
		_, err := tx.Exec(ctx, notifQuery,
			rowID("notif"),
			notification.Message,
			notification.Timestamp,
		)
		if err != nil {
			return r.mapDBError(err, "log_notification_event")
		}

		if notification.CourseID == nil {
			return nil
		}

		feedQuery := `
			INSERT INTO activity_feed (id, type, user_id, course_id, created_at)
			VALUES ($1, $2, NULL, $3, $4)
		`
		_, err = tx.Exec(ctx, feedQuery,
			rowID("act"),
			models.ActivityTypeCourseUpdate,
			notification.CourseID,
			notification.Timestamp,
		)
		if err != nil {
			return r.mapDBError(err, "log_notification_activity")
		}
		return nil
	})
}

// activityWeight scores a feed row for trending. Enrollments and course
// updates move the needle more than chat.
func activityWeight(activityType string) int {
	switch activityType {
	case models.ActivityTypeDiscussion:
		return 2
	case models.ActivityTypeEnrollment:
		return 3
	case models.ActivityTypeCourseUpdate:
		return 5
	default:
		return 1
	}
}

// GetRecentActivity returns scored events from the last N hours for the
// engagement aggregator.
func (r *activityRepository) GetRecentActivity(ctx context.Context, hours int) ([]*models.ActivityEvent, error) {
	query := `
		SELECT id, type, user_id, course_id, created_at
		FROM activity_feed
		WHERE created_at >= NOW() - INTERVAL '1 hour' * $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, hours)
	if err != nil {
		return nil, r.mapDBError(err, "get_recent_activity")
	}
	defer rows.Close()

	var events []*models.ActivityEvent
	for rows.Next() {
		var event models.ActivityEvent
		if err := rows.Scan(&event.ID, &event.Type, &event.UserID, &event.CourseID, &event.Timestamp); err != nil {
			return nil, r.mapDBError(err, "scan_activity_event")
		}

		event.Weight = activityWeight(event.Type)
		if event.Type == models.ActivityTypeCourseUpdate {
			event.EventType = "update"
		} else {
			event.EventType = "create"
		}

		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapDBError(err, "read_recent_activity")
	}

	return events, nil
}

// GetDailyActivityCounts buckets feed volume by calendar day.
func (r *activityRepository) GetDailyActivityCounts(ctx context.Context, days int) (map[string]int, error) {
	query := `
		SELECT TO_CHAR(created_at, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM activity_feed
		WHERE created_at >= NOW() - INTERVAL '1 day' * $1
		GROUP BY 1
		ORDER BY 1 DESC
	`

	rows, err := r.pool.Query(ctx, query, days)
	if err != nil {
		return nil, r.mapDBError(err, "get_daily_activity_counts")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, r.mapDBError(err, "scan_daily_count")
		}
		counts[day] = count
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapDBError(err, "read_daily_counts")
	}

	return counts, nil
}

// WithTransaction executes a function within a database transaction
func (r *activityRepository) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
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
func (r *activityRepository) mapDBError(err error, operation string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", operation, models.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502": // not_null_violation
			return fmt.Errorf("required field missing in activity: %w", err)
		case "23514": // check_violation
			return fmt.Errorf("invalid activity type: %w", err)
		}
	}

	return fmt.Errorf("database error during %s: %w", operation, err)
}
