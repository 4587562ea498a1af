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

// StatsRepository persists the engagement counters behind the course
// rankings. Writes arrive from the HTTP handlers and the TCP aggregator;
// both paths fold the event's points into the weekly score in the same
// transaction as the counter bump.
type StatsRepository interface {
	// Course counters
	GetByCourseID(ctx context.Context, courseID string) (*models.CourseStats, error)
	IncrementReviewCount(ctx context.Context, courseID string) error
	IncrementEnrollmentCount(ctx context.Context, courseID string) error
	IncrementDiscussionCount(ctx context.Context, courseID string) error

	// Rankings
	GetTopByWeeklyScore(ctx context.Context, limit, offset int) ([]*models.CourseStats, int, error)
	GetTrendingCourses(ctx context.Context, hours int, limit int) ([]*models.TrendingCourse, error)
	GetEngagementTotals(ctx context.Context) (int, int, error)

	// Engagement aggregator
	ProcessActivityEvent(ctx context.Context, event *models.ActivityEvent) error
	RecalculateWeeklyScores(ctx context.Context, decayFactor float64) error

	// Learning stats per user
	GetUserStats(ctx context.Context, userID string) (*models.UserStats, error)
	ApplyProgressDelta(ctx context.Context, userID string, chaptersDelta int, courseCompleted bool) error
	GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)

	// Maintenance
	RebuildAllStats(ctx context.Context) error

	// Transaction support
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository creates a new PostgreSQL stats repository
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

// GetByCourseID retrieves statistics for a course. A course with no
// recorded engagement gets a zero row, created lazily so it shows up in
// the rankings from then on.
func (r *statsRepository) GetByCourseID(ctx context.Context, courseID string) (*models.CourseStats, error) {
	query := `
		SELECT course_id, enrollment_count, review_count, discussion_count, weekly_score, updated_at
		FROM course_stats
		WHERE course_id = $1
	`
	stats := &models.CourseStats{}
	err := r.pool.QueryRow(ctx, query, courseID).Scan(
		&stats.CourseID,
		&stats.EnrollmentCount,
		&stats.ReviewCount,
		&stats.DiscussionCount,
		&stats.WeeklyScore,
		&stats.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		stats.CourseID = courseID
		stats.UpdatedAt = time.Now()

		insertQuery := `
			INSERT INTO course_stats (course_id)
			VALUES ($1)
			ON CONFLICT (course_id) DO NOTHING
		`
		if _, err := r.pool.Exec(ctx, insertQuery, courseID); err != nil {
			return nil, r.mapDBError(err, "initialize_course_stats")
		}
		return stats, nil
	}
	if err != nil {
		return nil, r.mapDBError(err, "get_course_stats")
	}
	return stats, nil
}

// bumpCounter adds one to a counter column and the event's points to the
// weekly score. The column name comes from the fixed callers below,
// never from input.
func (r *statsRepository) bumpCounter(ctx context.Context, courseID, column string, points int) error {
	return r.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := r.getStatsForUpdate(ctx, tx, courseID); err != nil {
			return err
		}

		query := fmt.Sprintf(`
			UPDATE course_stats
			SET %[1]s = %[1]s + 1,
			    weekly_score = weekly_score + $2,
			    updated_at = CURRENT_TIMESTAMP
			WHERE course_id = $1
		`, column)

		if _, err := tx.Exec(ctx, query, courseID, points); err != nil {
			return r.mapDBError(err, "increment_"+column)
		}
		return nil
	})
}

// addScorePoints adds points to the weekly score without touching a
// counter. Course updates score engagement but have no count column.
func (r *statsRepository) addScorePoints(ctx context.Context, courseID string, points int) error {
	return r.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := r.getStatsForUpdate(ctx, tx, courseID); err != nil {
			return err
		}

		query := `
			UPDATE course_stats
			SET weekly_score = weekly_score + $2,
			    updated_at = CURRENT_TIMESTAMP
			WHERE course_id = $1
		`
		if _, err := tx.Exec(ctx, query, courseID, points); err != nil {
			return r.mapDBError(err, "add_score_points")
		}
		return nil
	})
}

// IncrementReviewCount records one new review for a course
func (r *statsRepository) IncrementReviewCount(ctx context.Context, courseID string) error {
	return r.bumpCounter(ctx, courseID, "review_count", activityWeight(models.ActivityTypeReview))
}

// IncrementEnrollmentCount records one new enrollment for a course
func (r *statsRepository) IncrementEnrollmentCount(ctx context.Context, courseID string) error {
	return r.bumpCounter(ctx, courseID, "enrollment_count", activityWeight(models.ActivityTypeEnrollment))
}

// IncrementDiscussionCount records one new discussion message for a course
func (r *statsRepository) IncrementDiscussionCount(ctx context.Context, courseID string) error {
	return r.bumpCounter(ctx, courseID, "discussion_count", activityWeight(models.ActivityTypeDiscussion))
}

// GetTopByWeeklyScore retrieves top course stats by weekly score
func (r *statsRepository) GetTopByWeeklyScore(ctx context.Context, limit, offset int) ([]*models.CourseStats, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM course_stats`
	if err := r.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, r.mapDBError(err, "count_top_courses")
	}

	query := `
		SELECT
			s.course_id, s.enrollment_count, s.review_count, s.discussion_count, s.weekly_score, s.updated_at
		FROM course_stats s
		ORDER BY s.weekly_score DESC, s.updated_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, r.mapDBError(err, "get_top_courses")
	}
	defer rows.Close()

	var statsList []*models.CourseStats
	for rows.Next() {
		var stats models.CourseStats
		if err := rows.Scan(
			&stats.CourseID,
			&stats.EnrollmentCount,
			&stats.ReviewCount,
			&stats.DiscussionCount,
			&stats.WeeklyScore,
			&stats.UpdatedAt,
		); err != nil {
			return nil, 0, r.mapDBError(err, "scan_top_course")
		}
		statsList = append(statsList, &stats)
	}

	return statsList, total, nil
}

// GetTrendingCourses ranks courses by feed activity inside the window
func (r *statsRepository) GetTrendingCourses(ctx context.Context, hours int, limit int) ([]*models.TrendingCourse, error) {
	query := `
		SELECT
			a.course_id,
			COUNT(*) as activity_count
		FROM activity_feed a
		WHERE a.created_at >= NOW() - INTERVAL '1 hour' * $1
			AND a.type IN ('review', 'discussion', 'enrollment')
			AND a.course_id IS NOT NULL
		GROUP BY a.course_id
		ORDER BY activity_count DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, hours, limit)
	if err != nil {
		return nil, r.mapDBError(err, "get_trending_courses")
	}
	defer rows.Close()

	var trending []*models.TrendingCourse
	for rows.Next() {
		var course models.TrendingCourse
		err := rows.Scan(
			&course.CourseID,
			&course.ActivityCount,
		)
		if err != nil {
			return nil, r.mapDBError(err, "scan_trending_course")
		}
		trending = append(trending, &course)
	}

	return trending, nil
}

// ProcessActivityEvent folds one aggregator event into the course's
// counters. Events without a course score nothing.
func (r *statsRepository) ProcessActivityEvent(ctx context.Context, event *models.ActivityEvent) error {
	if event.CourseID == nil {
		return nil
	}
	courseID := *event.CourseID

	switch event.Type {
	case models.ActivityTypeReview:
		return r.bumpCounter(ctx, courseID, "review_count", activityWeight(event.Type))
	case models.ActivityTypeDiscussion:
		return r.bumpCounter(ctx, courseID, "discussion_count", activityWeight(event.Type))
	case models.ActivityTypeEnrollment:
		return r.bumpCounter(ctx, courseID, "enrollment_count", activityWeight(event.Type))
	case models.ActivityTypeCourseUpdate:
		return r.addScorePoints(ctx, courseID, activityWeight(event.Type))
	default:
		return r.addScorePoints(ctx, courseID, event.Weight)
	}
}

// RecalculateWeeklyScores refreshes every weekly score: multiply the old
// score by the decay factor, then re-add points for the trailing seven
// days of feed rows. With a factor of zero the score becomes exactly the
// week's activity; a small factor lets older surges fade out gradually.
func (r *statsRepository) RecalculateWeeklyScores(ctx context.Context, decayFactor float64) error {
	return r.WithTransaction(ctx, func(tx pgx.Tx) error {
		decayQuery := `
			UPDATE course_stats
			SET weekly_score = GREATEST(weekly_score * $1, 0),
			    updated_at = CURRENT_TIMESTAMP
		`
		if _, err := tx.Exec(ctx, decayQuery, decayFactor); err != nil {
			return r.mapDBError(err, "apply_score_decay")
		}

		activityQuery := `
			SELECT
				a.course_id,
				a.type,
				COUNT(*) as count
			FROM activity_feed a
			WHERE a.created_at >= NOW() - INTERVAL '7 days'
				AND a.course_id IS NOT NULL
			GROUP BY a.course_id, a.type
		`
		rows, err := tx.Query(ctx, activityQuery)
		if err != nil {
			return r.mapDBError(err, "get_recent_activity")
		}
		defer rows.Close()

		// Collect first, then update - the row lock in getStatsForUpdate
		// cannot run while this result set is open
		type activityRow struct {
			courseID string
			actType  string
			count    int
		}
		var activityRows []activityRow

		for rows.Next() {
			var row activityRow
			if err := rows.Scan(&row.courseID, &row.actType, &row.count); err != nil {
				return r.mapDBError(err, "scan_activity_row")
			}
			activityRows = append(activityRows, row)
		}
		rows.Close()

		for _, row := range activityRows {
			if _, err := r.getStatsForUpdate(ctx, tx, row.courseID); err != nil {
				return err
			}

			updateQuery := `
				UPDATE course_stats
				SET weekly_score = weekly_score + $2
				WHERE course_id = $1
			`
			points := row.count * activityWeight(row.actType)
			if _, err := tx.Exec(ctx, updateQuery, row.courseID, points); err != nil {
				return r.mapDBError(err, "update_recalculated_score")
			}
		}

		return nil
	})
}

// GetUserStats retrieves learning statistics for a user. A user with no
// recorded progress gets a zero row without touching the table.
func (r *statsRepository) GetUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	query := `
		SELECT user_id, courses_enrolled, courses_completed, chapters_completed, last_activity, updated_at
		FROM user_stats
		WHERE user_id = $1
	`
	stats := &models.UserStats{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&stats.UserID,
		&stats.CoursesEnrolled,
		&stats.CoursesCompleted,
		&stats.ChaptersCompleted,
		&stats.LastActivity,
		&stats.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		stats.UserID = userID
		stats.LastActivity = time.Now()
		stats.UpdatedAt = time.Now()
		return stats, nil
	}
	if err != nil {
		return nil, r.mapDBError(err, "get_user_stats")
	}
	return stats, nil
}

// ApplyProgressDelta folds a progress update into the user's learning stats.
// chaptersDelta may be negative when chapters are marked incomplete.
func (r *statsRepository) ApplyProgressDelta(ctx context.Context, userID string, chaptersDelta int, courseCompleted bool) error {
	return r.WithTransaction(ctx, func(tx pgx.Tx) error {
		completedInc := 0
		if courseCompleted {
			completedInc = 1
		}

		query := `
			INSERT INTO user_stats (user_id, courses_enrolled, courses_completed, chapters_completed, last_activity, updated_at)
			VALUES ($1, 0, $2, GREATEST($3, 0), CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
			ON CONFLICT (user_id) DO UPDATE
			SET chapters_completed = GREATEST(user_stats.chapters_completed + $3, 0),
				courses_completed = user_stats.courses_completed + $2,
				last_activity = CURRENT_TIMESTAMP,
				updated_at = CURRENT_TIMESTAMP
		`

		_, err := tx.Exec(ctx, query, userID, completedInc, chaptersDelta)
		if err != nil {
			return r.mapDBError(err, "apply_progress_delta")
		}
		return nil
	})
}

// GetLeaderboard ranks users by completed chapters
func (r *statsRepository) GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	query := `
		SELECT us.user_id, u.username, us.chapters_completed
		FROM user_stats us
		INNER JOIN users u ON us.user_id = u.id
		ORDER BY us.chapters_completed DESC, us.updated_at ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, r.mapDBError(err, "get_leaderboard")
	}
	defer rows.Close()

	var entries []*models.LeaderboardEntry
	rank := 1
	for rows.Next() {
		var entry models.LeaderboardEntry
		err := rows.Scan(&entry.UserID, &entry.Username, &entry.Score)
		if err != nil {
			return nil, r.mapDBError(err, "scan_leaderboard_entry")
		}
		entry.Rank = rank
		entry.Category = "chapters_completed"
		rank++
		entries = append(entries, &entry)
	}

	return entries, nil
}

// GetEngagementTotals sums review and discussion counts across all courses
func (r *statsRepository) GetEngagementTotals(ctx context.Context) (int, int, error) {
	query := `
		SELECT COALESCE(SUM(review_count), 0), COALESCE(SUM(discussion_count), 0)
		FROM course_stats
	`
	var reviews, discussions int
	err := r.pool.QueryRow(ctx, query).Scan(&reviews, &discussions)
	if err != nil {
		return 0, 0, r.mapDBError(err, "get_engagement_totals")
	}
	return reviews, discussions, nil
}

// rebuildSources names, for each counter column, the table that is its
// source of truth and the score points one row is worth.
var rebuildSources = []struct {
	countQuery string
	column     string
	points     int
}{
	{
		countQuery: `SELECT course_id, COUNT(*) FROM reviews GROUP BY course_id`,
		column:     "review_count",
		points:     activityWeight(models.ActivityTypeReview),
	},
	{
		countQuery: `SELECT course_id, COUNT(*) FROM discussion_messages GROUP BY course_id`,
		column:     "discussion_count",
		points:     activityWeight(models.ActivityTypeDiscussion),
	},
	{
		countQuery: `SELECT course_id, COUNT(*) FROM transactions WHERE status = 'completed' GROUP BY course_id`,
		column:     "enrollment_count",
		points:     activityWeight(models.ActivityTypeEnrollment),
	},
}

// RebuildAllStats zeroes every counter and recounts from the source
// tables. The weekly score comes back as the all-time weighted total;
// the next refresh narrows it to the trailing week again.
func (r *statsRepository) RebuildAllStats(ctx context.Context) error {
	return r.WithTransaction(ctx, func(tx pgx.Tx) error {
		resetQuery := `
			UPDATE course_stats
			SET enrollment_count = 0, review_count = 0, discussion_count = 0, weekly_score = 0, updated_at = CURRENT_TIMESTAMP
		`
		if _, err := tx.Exec(ctx, resetQuery); err != nil {
			return r.mapDBError(err, "reset_all_stats")
		}

		type countRow struct {
			courseID string
			count    int
		}

		for _, src := range rebuildSources {
			rows, err := tx.Query(ctx, src.countQuery)
			if err != nil {
				return r.mapDBError(err, "count_"+src.column)
			}

			var counts []countRow
			for rows.Next() {
				var row countRow
				if err := rows.Scan(&row.courseID, &row.count); err != nil {
					rows.Close()
					return r.mapDBError(err, "scan_"+src.column)
				}
				counts = append(counts, row)
			}
			rows.Close()

			updateQuery := fmt.Sprintf(`
				UPDATE course_stats
				SET %s = $2, weekly_score = weekly_score + ($2 * %d)
				WHERE course_id = $1
			`, src.column, src.points)

			for _, row := range counts {
				if _, err := tx.Exec(ctx, updateQuery, row.courseID, row.count); err != nil {
					return r.mapDBError(err, "update_"+src.column)
				}
			}
		}

		return nil
	})
}

// WithTransaction executes a function within a database transaction
func (r *statsRepository) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
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

// getStatsForUpdate locks the course's stats row, creating it on first
// touch. The no-op conflict update makes RETURNING yield the existing
// row, already locked, when two writers race over a new course.
func (r *statsRepository) getStatsForUpdate(ctx context.Context, tx pgx.Tx, courseID string) (*models.CourseStats, error) {
	query := `
		INSERT INTO course_stats (course_id)
		VALUES ($1)
		ON CONFLICT (course_id) DO UPDATE SET course_id = EXCLUDED.course_id
		RETURNING course_id, enrollment_count, review_count, discussion_count, weekly_score, updated_at
	`

	stats := &models.CourseStats{}
	err := tx.QueryRow(ctx, query, courseID).Scan(
		&stats.CourseID,
		&stats.EnrollmentCount,
		&stats.ReviewCount,
		&stats.DiscussionCount,
		&stats.WeeklyScore,
		&stats.UpdatedAt,
	)
	if err != nil {
		return nil, r.mapDBError(err, "get_stats_for_update")
	}

	return stats, nil
}

// mapDBError maps database errors to application errors
func (r *statsRepository) mapDBError(err error, operation string) error {
	if err == pgx.ErrNoRows {
		return fmt.Errorf("%s: %w", operation, models.ErrNotFound)
	}

	if pgErr, ok := err.(*pgconn.PgError); ok {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			return fmt.Errorf("invalid course reference: %w", err)
		case "40001": // serialization_failure
			return fmt.Errorf("concurrent update conflict - please retry: %w", err)
		}
	}

	return fmt.Errorf("database error during %s: %w", operation, err)
}
