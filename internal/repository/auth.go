// Package repository provides persistence implementations for users and
// events over database/sql. Every statement binds its values as parameters.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/studymate/studymate/internal/models"
)

// SQLUserRepository implements user persistence over a SQL database.
type SQLUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewSQLUserRepository creates a new SQLUserRepository with the given database connection.
func NewSQLUserRepository(db *sql.DB) *SQLUserRepository {
	return &SQLUserRepository{DB: db}
}

// CreateUser inserts a user and returns its id.
// A taken email yields ErrDuplicateEmail; the driver error is not exposed.
func (r *SQLUserRepository) CreateUser(ctx context.Context, email, passwordHash string) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(
		ctx,
		`INSERT INTO users (email, password) VALUES ($1, $2) RETURNING id`,
		email, passwordHash,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateEmail
		}
		return 0, fmt.Errorf("CreateUser: %w", err)
	}
	return id, nil
}

// GetUserByEmail fetches the user registered with email.
func (r *SQLUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, email, password, reset_token, reset_expiry FROM users WHERE email = $1
	`, email)
	return scanUser(row)
}

// SetResetToken stores token and expiry for the user with email.
// It reports false when no such user exists.
func (r *SQLUserRepository) SetResetToken(ctx context.Context, email, token string, expiry time.Time) (bool, error) {
	res, err := r.DB.ExecContext(
		ctx,
		`UPDATE users SET reset_token = $1, reset_expiry = $2 WHERE email = $3`,
		token, expiry.UTC(), email,
	)
	if err != nil {
		return false, fmt.Errorf("SetResetToken: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("SetResetToken: %w", err)
	}
	return n > 0, nil
}

// GetUserByResetToken fetches the user holding token while it is still valid at now.
func (r *SQLUserRepository) GetUserByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, email, password, reset_token, reset_expiry FROM users
		WHERE reset_token = $1 AND reset_expiry > $2
	`, token, now.UTC())
	return scanUser(row)
}

// ResetPassword replaces the password of the user holding a valid token and
// clears the token in the same statement. Of two concurrent calls with the
// same token only one matches a row; the other reports false.
func (r *SQLUserRepository) ResetPassword(ctx context.Context, token, passwordHash string, now time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users SET password = $1, reset_token = NULL, reset_expiry = NULL
		WHERE reset_token = $2 AND reset_expiry > $3
	`, passwordHash, token, now.UTC())
	if err != nil {
		return false, fmt.Errorf("ResetPassword: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ResetPassword: %w", err)
	}
	return n == 1, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u      models.User
		token  sql.NullString
		expiry sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &token, &expiry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if token.Valid {
		u.ResetToken = &token.String
	}
	if expiry.Valid {
		t := expiry.Time.UTC()
		u.ResetExpiry = &t
	}
	return &u, nil
}
