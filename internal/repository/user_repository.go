package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"coursehub/pkg/models"
)

// UserRepository handles account persistence
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, user *models.User) error
	UpdateRole(ctx context.Context, id string, role models.UserRole) error
	Delete(ctx context.Context, id string) error

	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = "id, username, email, password_hash, role, created_at"

// scanUser reads one account row
func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = models.UserRole(role)
	return &u, nil
}

// Create inserts the account. A nil ID or zero CreatedAt falls back to
// the database defaults; both are written back into user.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, role, created_at)
		VALUES (COALESCE($1, uuid_generate_v4()::text), $2, $3, $4, $5, COALESCE($6, CURRENT_TIMESTAMP))
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		nullIfEmpty(user.ID),
		user.Username,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		nullIfZeroTime(user.CreatedAt),
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return r.mapDBError(err, "create_user")
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NewHTTPError(models.ErrCodeNotFound, "user not found", 404, err)
	}
	if err != nil {
		return nil, r.mapDBError(err, "get_user_by_id")
	}
	return user, nil
}

// GetByUsername retrieves a user by username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE username = $1", username)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NewHTTPError(models.ErrCodeNotFound, "user not found", 404, err)
	}
	if err != nil {
		return nil, r.mapDBError(err, "get_user_by_username")
	}
	return user, nil
}

// UsernameExists checks if a username is already taken
func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)", username,
	).Scan(&exists)
	if err != nil {
		return false, r.mapDBError(err, "check_username_exists")
	}
	return exists, nil
}

// Update rewrites the mutable account columns
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, role = $5
		WHERE id = $1
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, string(user.Role),
	).Scan(&user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewHTTPError(models.ErrCodeNotFound, "user not found", 404, err)
	}
	if err != nil {
		return r.mapDBError(err, "update_user")
	}
	return nil
}

// UpdateRole changes only the role column (admin operation)
func (r *userRepository) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	tag, err := r.pool.Exec(ctx, "UPDATE users SET role = $2 WHERE id = $1", id, string(role))
	if err != nil {
		return r.mapDBError(err, "update_user_role")
	}
	if tag.RowsAffected() == 0 {
		return models.NewHTTPError(models.ErrCodeNotFound, "user not found", 404, pgx.ErrNoRows)
	}
	return nil
}

// Delete removes a user; dependent rows follow the schema's ON DELETE rules
func (r *userRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return r.mapDBError(err, "delete_user")
	}
	if tag.RowsAffected() == 0 {
		return models.NewHTTPError(models.ErrCodeNotFound, "user not found", 404, pgx.ErrNoRows)
	}
	return nil
}

// WithTransaction executes fn inside one transaction
func (r *userRepository) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
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

// mapDBError translates driver errors into the API error taxonomy.
// Unique violations name the conflicting field via the constraint.
func (r *userRepository) mapDBError(err error, operation string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewHTTPError(models.ErrCodeNotFound, "resource not found", 404, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			switch pgErr.ConstraintName {
			case "users_username_key":
				return models.NewHTTPError(models.ErrCodeConflict, "username already exists", 409, err)
			case "users_email_key":
				return models.NewHTTPError(models.ErrCodeConflict, "email already registered", 409, err)
			}
			return models.NewHTTPError(models.ErrCodeConflict, "resource already exists", 409, err)
		case "23503":
			return models.NewHTTPError(models.ErrCodeBadRequest, "invalid relationship", 400, err)
		case "22P02":
			return models.NewHTTPError(models.ErrCodeBadRequest, "invalid input format", 400, err)
		}
	}

	return models.NewHTTPError(models.ErrCodeInternal, "database error during "+operation, 500, err)
}
