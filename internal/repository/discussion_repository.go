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

// DiscussionRepository handles study room message persistence with protocol integration
type DiscussionRepository interface {
	// Core CRUD operations
	Create(ctx context.Context, message *models.DiscussionMessage) (*models.DiscussionMessageResponse, error)
	GetByID(ctx context.Context, id string) (*models.DiscussionMessage, error)
	ListByCourseID(ctx context.Context, courseID string, limit, offset int) ([]*models.DiscussionMessageResponse, int, error)
	Delete(ctx context.Context, id string) error

	// Protocol-specific methods
	StreamMessages(ctx context.Context, courseID string, lastMessageID *string) (<-chan *models.DiscussionMessageResponse, error)
	GetRoomPresence(ctx context.Context, courseID string) ([]*models.UserPresence, error)
	GetActiveRooms(ctx context.Context, limit int) ([]*models.StudyRoomInfo, error)
	BroadcastMessage(ctx context.Context, message *models.DiscussionMessage) error

	// Stats & Activity integration
	GetDiscussionStats(ctx context.Context, courseID string) (*models.CourseStats, error)

	// Transaction support
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type discussionRepository struct {
	pool *pgxpool.Pool
}

// NewDiscussionRepository creates a new PostgreSQL discussion repository
func NewDiscussionRepository(pool *pgxpool.Pool) DiscussionRepository {
	return &discussionRepository{pool: pool}
}

// Create inserts a new discussion message with activity logging and stats events
func (r *discussionRepository) Create(ctx context.Context, message *models.DiscussionMessage) (*models.DiscussionMessageResponse, error) {
	var response *models.DiscussionMessageResponse

	err := r.WithTransaction(ctx, func(tx pgx.Tx) error {
		if message.ID == "" {
			message.ID = rowID("disc")
		}

		// Insert discussion message
		insertQuery := `
			INSERT INTO discussion_messages (id, course_id, user_id, content, created_at)
			VALUES ($1, $2, $3, $4, COALESCE($5, CURRENT_TIMESTAMP))
			RETURNING id, created_at
		`

		err := tx.QueryRow(ctx, insertQuery,
			message.ID,
			message.CourseID,
			message.UserID,
			message.Content,
			message.CreatedAt,
		).Scan(&message.ID, &message.CreatedAt)

		if err != nil {
			return r.mapDBError(err, "create_discussion_message")
		}

		// Log to activity feed
		activity := &models.Activity{
			ID:        rowID("act"),
			Type:      models.ActivityTypeDiscussion,
			UserID:    &message.UserID,
			CourseID:  &message.CourseID,
			CreatedAt: message.CreatedAt,
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
			return r.mapDBError(err, "log_discussion_activity")
		}

		statsQuery := `
			INSERT INTO course_stats (course_id, discussion_count, weekly_score, updated_at)
			VALUES ($1, 1, 2, CURRENT_TIMESTAMP)
			ON CONFLICT (course_id) DO UPDATE
			SET discussion_count = course_stats.discussion_count + 1,
				weekly_score = course_stats.weekly_score + 2,
				updated_at = CURRENT_TIMESTAMP
		`
		_, err = tx.Exec(ctx, statsQuery, message.CourseID)
		if err != nil {
			return r.mapDBError(err, "update_discussion_stats")
		}

		// Get user info for response
		userQuery := `SELECT username FROM users WHERE id = $1`
		var username string
		err = tx.QueryRow(ctx, userQuery, message.UserID).Scan(&username)
		if err != nil {
			return r.mapDBError(err, "get_discussion_user")
		}

		response = &models.DiscussionMessageResponse{
			ID:        message.ID,
			CourseID:  message.CourseID,
			User:      models.DiscussionUser{ID: message.UserID, Username: username},
			Content:   message.Content,
			CreatedAt: message.CreatedAt,
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return response, nil
}

// GetByID retrieves a discussion message by ID
func (r *discussionRepository) GetByID(ctx context.Context, id string) (*models.DiscussionMessage, error) {
	query := `
		SELECT id, course_id, user_id, content, created_at
		FROM discussion_messages
		WHERE id = $1
	`
	message := &models.DiscussionMessage{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&message.ID,
		&message.CourseID,
		&message.UserID,
		&message.Content,
		&message.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, r.mapDBError(err, "get_discussion_message_by_id")
	}
	if err != nil {
		return nil, r.mapDBError(err, "get_discussion_message_by_id")
	}
	return message, nil
}

// ListByCourseID retrieves room history for a course with user info and pagination
func (r *discussionRepository) ListByCourseID(ctx context.Context, courseID string, limit, offset int) ([]*models.DiscussionMessageResponse, int, error) {
	// Get total count
	var total int
	countQuery := `SELECT COUNT(*) FROM discussion_messages WHERE course_id = $1`
	err := r.pool.QueryRow(ctx, countQuery, courseID).Scan(&total)
	if err != nil {
		return nil, 0, r.mapDBError(err, "count_discussion_messages")
	}

	// Get paginated results with user info
	query := `
		SELECT
			dm.id, dm.course_id, dm.user_id, dm.content, dm.created_at,
			u.username
		FROM discussion_messages dm
		INNER JOIN users u ON dm.user_id = u.id
		WHERE dm.course_id = $1
		ORDER BY dm.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, courseID, limit, offset)
	if err != nil {
		return nil, 0, r.mapDBError(err, "list_discussion_messages")
	}
	defer rows.Close()

	var messages []*models.DiscussionMessageResponse
	for rows.Next() {
		var msg models.DiscussionMessageResponse
		var username string

		err := rows.Scan(
			&msg.ID,
			&msg.CourseID,
			&msg.User.ID,
			&msg.Content,
			&msg.CreatedAt,
			&username,
		)
		if err != nil {
			return nil, 0, r.mapDBError(err, "scan_discussion_message")
		}

		msg.User.Username = username
		messages = append(messages, &msg)
	}

	return messages, total, nil
}

// StreamMessages provides a channel for real-time message streaming (WebSocket optimized)
func (r *discussionRepository) StreamMessages(ctx context.Context, courseID string, lastMessageID *string) (<-chan *models.DiscussionMessageResponse, error) {
	// This would typically use LISTEN/NOTIFY or a cursor-based approach
	// For simplicity, we'll create a channel that can be used by the study room hub
	messageChan := make(chan *models.DiscussionMessageResponse, 100)

	// In production, this would set up a PostgreSQL LISTEN on a channel
	// For now, we'll close the channel immediately as this is repository-only
	go func() {
		defer close(messageChan)
		// In production: listen for new messages and push to channel
	}()

	return messageChan, nil
}

// GetRoomPresence gets current user presence for a course study room
func (r *discussionRepository) GetRoomPresence(ctx context.Context, courseID string) ([]*models.UserPresence, error) {
	// Live presence is tracked by the WebSocket hub; this derives a fallback
	// view from recent messages for HTTP clients

	query := `
		SELECT DISTINCT ON (dm.user_id)
			dm.user_id, u.username, dm.created_at as last_active
		FROM discussion_messages dm
		INNER JOIN users u ON dm.user_id = u.id
		WHERE dm.course_id = $1
			AND dm.created_at >= NOW() - INTERVAL '5 minutes'
		ORDER BY dm.user_id, dm.created_at DESC
		LIMIT 50
	`

	rows, err := r.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, r.mapDBError(err, "get_room_presence")
	}
	defer rows.Close()

	var presences []*models.UserPresence
	for rows.Next() {
		var presence models.UserPresence
		var lastActive time.Time

		err := rows.Scan(
			&presence.UserID,
			&presence.Username,
			&lastActive,
		)
		if err != nil {
			return nil, r.mapDBError(err, "scan_presence")
		}

		presence.CourseID = courseID
		presence.Status = "online"
		presence.LastActive = lastActive
		presences = append(presences, &presence)
	}

	return presences, nil
}

// GetActiveRooms lists study rooms ranked by recent message volume
func (r *discussionRepository) GetActiveRooms(ctx context.Context, limit int) ([]*models.StudyRoomInfo, error) {
	query := `
		SELECT
			dm.course_id, c.title,
			COUNT(DISTINCT dm.user_id) as active_users,
			MAX(dm.created_at) as last_activity
		FROM discussion_messages dm
		INNER JOIN courses c ON dm.course_id = c.id
		WHERE dm.created_at >= NOW() - INTERVAL '1 hour'
		GROUP BY dm.course_id, c.title
		ORDER BY COUNT(*) DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, r.mapDBError(err, "get_active_rooms")
	}
	defer rows.Close()

	var rooms []*models.StudyRoomInfo
	for rows.Next() {
		var room models.StudyRoomInfo

		err := rows.Scan(
			&room.CourseID,
			&room.CourseTitle,
			&room.ActiveUsers,
			&room.LastActivity,
		)
		if err != nil {
			return nil, r.mapDBError(err, "scan_active_room")
		}

		rooms = append(rooms, &room)
	}

	return rooms, nil
}

// BroadcastMessage broadcasts a message to all connected clients (admin use)
func (r *discussionRepository) BroadcastMessage(ctx context.Context, message *models.DiscussionMessage) error {
	_, err := r.Create(ctx, message)
	return err
}

// GetDiscussionStats gets discussion statistics for a course
func (r *discussionRepository) GetDiscussionStats(ctx context.Context, courseID string) (*models.CourseStats, error) {
	query := `
		SELECT discussion_count, updated_at
		FROM course_stats
		WHERE course_id = $1
	`

	stats := &models.CourseStats{CourseID: courseID}
	err := r.pool.QueryRow(ctx, query, courseID).Scan(
		&stats.DiscussionCount,
		&stats.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		// Initialize stats if not exists
		stats.DiscussionCount = 0
		stats.UpdatedAt = time.Now()
		return stats, nil
	}
	if err != nil {
		return nil, r.mapDBError(err, "get_discussion_stats")
	}

	return stats, nil
}

// Delete removes a discussion message and associated activity
func (r *discussionRepository) Delete(ctx context.Context, id string) error {
	return r.WithTransaction(ctx, func(tx pgx.Tx) error {
		// Get message first to log proper activity
		var courseID, userID string
		getQuery := `SELECT course_id, user_id FROM discussion_messages WHERE id = $1`
		err := tx.QueryRow(ctx, getQuery, id).Scan(&courseID, &userID)
		if err == pgx.ErrNoRows {
			return r.mapDBError(err, "delete_discussion_message")
		}
		if err != nil {
			return r.mapDBError(err, "delete_discussion_message")
		}

		// Delete discussion message
		deleteQuery := `DELETE FROM discussion_messages WHERE id = $1`
		result, err := tx.Exec(ctx, deleteQuery, id)
		if err != nil {
			return r.mapDBError(err, "delete_discussion_message")
		}

		rowsAffected := result.RowsAffected()
		if rowsAffected == 0 {
			return r.mapDBError(pgx.ErrNoRows, "delete_discussion_message")
		}

		statsQuery := `
			UPDATE course_stats
			SET discussion_count = GREATEST(discussion_count - 1, 0),
				weekly_score = GREATEST(weekly_score - 2, 0),
				updated_at = CURRENT_TIMESTAMP
			WHERE course_id = $1
		`
		_, err = tx.Exec(ctx, statsQuery, courseID)
		if err != nil {
			return r.mapDBError(err, "update_discussion_stats")
		}

		return nil
	})
}

// WithTransaction executes a function within a database transaction
func (r *discussionRepository) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
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
func (r *discussionRepository) mapDBError(err error, operation string) error {
	if err == pgx.ErrNoRows {
		switch operation {
		case "get_discussion_message_by_id", "delete_discussion_message":
			return fmt.Errorf("%s: %w", operation, models.ErrNotFound)
		default:
			return fmt.Errorf("resource not found: %w", err)
		}
	}

	if pgErr, ok := err.(*pgconn.PgError); ok {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			if operation == "create_discussion_message" {
				return fmt.Errorf("invalid course or user reference: %w", err)
			}
			return fmt.Errorf("foreign key violation: %w", err)
		case "22001": // string_data_right_truncation
			return fmt.Errorf("message content too long: %w", err)
		}
	}

	return fmt.Errorf("database error during %s: %w", operation, err)
}
