// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/aurweb/aurweb/internal/auth"
)

const userColumns = `id, username, email, passwd, salt, reset_key, suspended,
		       last_login, last_login_ip, registered_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (
			id, username, email, passwd, salt, reset_key, suspended,
			last_login, last_login_ip, registered_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		user.ID.String(),
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Salt,
		user.ResetKey,
		user.Suspended,
		user.LastLogin,
		user.LastLoginIP,
		user.RegisteredAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return oops.Code("USER_CONFLICT").
			With("username", user.Username).
			Wrap(auth.ErrConflict)
	}
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())
	return r.get(row, "id", id.String())
}

// GetByUsername retrieves a user by username, ignoring case.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username)
	return r.get(row, "username", username)
}

// GetByEmail retrieves a user by email, ignoring case.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	return r.get(row, "email", email)
}

// GetByLogin retrieves a user whose username or email matches login.
// A username match wins over an email match.
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)
		ORDER BY (LOWER(username) = LOWER($1)) DESC
		LIMIT 1
	`, login)
	return r.get(row, "login", login)
}

// ExistsByUsername reports whether the username is taken.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "check username",
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`, username)
}

// ExistsByEmail reports whether the email is taken.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "check email",
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email)
}

// ResetKeyExists reports whether any user holds resetKey.
func (r *UserRepository) ResetKeyExists(ctx context.Context, resetKey string) (bool, error) {
	return r.exists(ctx, "check reset key",
		`SELECT EXISTS(SELECT 1 FROM users WHERE reset_key = $1 AND reset_key <> '')`, resetKey)
}

// UpdatePassword replaces the password digest and legacy salt.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash, salt string) error {
	return r.update(ctx, id, "update password",
		`UPDATE users SET passwd = $2, salt = $3, updated_at = NOW() WHERE id = $1`,
		passwordHash, salt)
}

// SetSuspended sets the suspended flag.
func (r *UserRepository) SetSuspended(ctx context.Context, id ulid.ULID, suspended bool) error {
	return r.update(ctx, id, "set suspended",
		`UPDATE users SET suspended = $2, updated_at = NOW() WHERE id = $1`,
		suspended)
}

// RecordLogin stores the last-login timestamp and origin address.
func (r *UserRepository) RecordLogin(ctx context.Context, id ulid.ULID, at time.Time, ipAddress string) error {
	return r.update(ctx, id, "record login",
		`UPDATE users SET last_login = $2, last_login_ip = $3 WHERE id = $1`,
		at, ipAddress)
}

// SetResetKey stores a reset key; an empty key clears it.
func (r *UserRepository) SetResetKey(ctx context.Context, id ulid.ULID, resetKey string) error {
	return r.update(ctx, id, "set reset key",
		`UPDATE users SET reset_key = $2, updated_at = NOW() WHERE id = $1`,
		resetKey)
}

func (r *UserRepository) get(row pgx.Row, key, value string) (*auth.User, error) {
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With(key, value).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by "+key).
			With(key, value).
			Wrap(err)
	}
	return user, nil
}

func (r *UserRepository) exists(ctx context.Context, operation, query string, arg any) (bool, error) {
	var found bool
	if err := r.db.QueryRow(ctx, query, arg).Scan(&found); err != nil {
		return false, oops.Code("USER_EXISTS_FAILED").
			With("operation", operation).
			Wrap(err)
	}
	return found, nil
}

func (r *UserRepository) update(ctx context.Context, id ulid.ULID, operation, query string, args ...any) error {
	result, err := r.db.Exec(ctx, query, append([]any{id.String()}, args...)...)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", operation).
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		user  auth.User
		rawID string
	)
	if err := row.Scan(
		&rawID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Salt,
		&user.ResetKey,
		&user.Suspended,
		&user.LastLogin,
		&user.LastLoginIP,
		&user.RegisteredAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	user.ID = id
	return &user, nil
}
