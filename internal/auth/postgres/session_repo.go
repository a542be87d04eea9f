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

// SessionRepository implements auth.SessionRepository using PostgreSQL.
// Expiry is stored as unix seconds.
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetByUser retrieves the session owned by a user.
func (r *SessionRepository) GetByUser(ctx context.Context, userID ulid.ULID) (*auth.Session, error) {
	row := r.db.QueryRow(ctx, `
		SELECT user_id, token, expires_at FROM sessions WHERE user_id = $1
	`, userID.String())

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return session, nil
}

// GetByToken retrieves a session by its token.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*auth.Session, error) {
	row := r.db.QueryRow(ctx, `
		SELECT user_id, token, expires_at FROM sessions WHERE token = $1
	`, token)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by token").
			Wrap(err)
	}
	return session, nil
}

// TokenExists reports whether any session holds token.
func (r *SessionRepository) TokenExists(ctx context.Context, token string) (bool, error) {
	var found bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sessions WHERE token = $1)`, token).Scan(&found)
	if err != nil {
		return false, oops.Code("SESSION_EXISTS_FAILED").
			With("operation", "check token").
			Wrap(err)
	}
	return found, nil
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (user_id, token, expires_at) VALUES ($1, $2, $3)
	`, session.UserID.String(), session.Token, session.ExpiresAt.Unix())
	if isUniqueViolation(err) {
		return oops.Code("SESSION_CONFLICT").
			With("user_id", session.UserID.String()).
			Wrap(auth.ErrConflict)
	}
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	return nil
}

// Renew updates the expiry of the user's session.
func (r *SessionRepository) Renew(ctx context.Context, userID ulid.ULID, expiresAt time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE sessions SET expires_at = $2 WHERE user_id = $1
	`, userID.String(), expiresAt.Unix())
	if err != nil {
		return oops.Code("SESSION_UPDATE_FAILED").
			With("operation", "renew session").
			With("user_id", userID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Replace overwrites the token and expiry of the user's session.
func (r *SessionRepository) Replace(ctx context.Context, userID ulid.ULID, token string, expiresAt time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE sessions SET token = $2, expires_at = $3 WHERE user_id = $1
	`, userID.String(), token, expiresAt.Unix())
	if isUniqueViolation(err) {
		return oops.Code("SESSION_CONFLICT").
			With("user_id", userID.String()).
			Wrap(auth.ErrConflict)
	}
	if err != nil {
		return oops.Code("SESSION_UPDATE_FAILED").
			With("operation", "replace session").
			With("user_id", userID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByToken removes the session holding token, if any.
func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session by token").
			Wrap(err)
	}
	return nil
}

// DeleteByUser removes the user's session, if any.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID.String()); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now.Unix())
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		rawUserID string
		token     string
		expiresAt int64
	)
	if err := row.Scan(&rawUserID, &token, &expiresAt); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	userID, err := parseID(rawUserID)
	if err != nil {
		return nil, err
	}
	return &auth.Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Unix(expiresAt, 0),
	}, nil
}
