package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"coursehub/pkg/models"
)

// NotificationRepository stores announcement rows for the UDP broadcaster.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	// Since returns rows with an id after the cursor, oldest first.
	Since(ctx context.Context, lastID string) ([]*models.Notification, error)
	// ListRecent returns the newest rows. The broadcaster seeds its poll
	// cursor from ListRecent(ctx, 1) so a restart does not replay history.
	ListRecent(ctx context.Context, limit int) ([]*models.Notification, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

const notificationColumns = "id, message, created_at"

// Create inserts an announcement row. A blank ID or zero timestamp falls
// back to the column defaults.
func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	query := `
		INSERT INTO notifications (id, message, created_at)
		VALUES (COALESCE($1, uuid_generate_v4()::text), $2, COALESCE($3, CURRENT_TIMESTAMP))
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		nullIfEmpty(notification.ID),
		notification.Message,
		nullIfZeroTime(notification.CreatedAt),
	).Scan(&notification.ID, &notification.CreatedAt)
	if err != nil {
		return r.mapDBError(err, "create_notification")
	}
	return nil
}

func (r *notificationRepository) Since(ctx context.Context, lastID string) ([]*models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE id > $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, lastID)
	if err != nil {
		return nil, r.mapDBError(err, "notifications_since")
	}
	return r.collect(rows)
}

func (r *notificationRepository) ListRecent(ctx context.Context, limit int) ([]*models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, r.mapDBError(err, "list_recent_notifications")
	}
	return r.collect(rows)
}

func (r *notificationRepository) collect(rows pgx.Rows) ([]*models.Notification, error) {
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.Message, &n.CreatedAt); err != nil {
			return nil, r.mapDBError(err, "scan_notification")
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapDBError(err, "read_notifications")
	}
	return out, nil
}

func (r *notificationRepository) mapDBError(err error, operation string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewHTTPError(models.ErrCodeNotFound, "resource not found", 404, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			return models.NewHTTPError(models.ErrCodeBadRequest, "invalid relationship", 400, err)
		case "22P02": // invalid_text_representation
			return models.NewHTTPError(models.ErrCodeBadRequest, "invalid input format", 400, err)
		}
	}

	return models.NewHTTPError(models.ErrCodeInternal, "database error during "+operation, 500, err)
}
