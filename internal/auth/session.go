// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session ties one user to one live token. A user owns at most one session.
type Session struct {
	UserID    ulid.ULID
	Token     string
	ExpiresAt time.Time
}

// NewSession creates a validated Session.
func NewSession(userID ulid.ULID, token string, expiresAt time.Time) (*Session, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if token == "" {
		return nil, oops.Code("SESSION_INVALID_TOKEN").Errorf("session token cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}
	return &Session{UserID: userID, Token: token, ExpiresAt: expiresAt}, nil
}

// IsValidAt reports whether the session is still usable at t.
// A session whose expiry equals t is still valid.
func (s *Session) IsValidAt(t time.Time) bool {
	return !s.ExpiresAt.Before(t)
}

// IsExpiredAt reports whether the session expired before t.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return s.ExpiresAt.Before(t)
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// GetByUser retrieves the session owned by a user.
	GetByUser(ctx context.Context, userID ulid.ULID) (*Session, error)

	// GetByToken retrieves a session by its token, regardless of expiry.
	GetByToken(ctx context.Context, token string) (*Session, error)

	// TokenExists reports whether any session holds token.
	TokenExists(ctx context.Context, token string) (bool, error)

	// Create stores a new session. Returns ErrConflict if the user already
	// owns one or the token is taken.
	Create(ctx context.Context, session *Session) error

	// Renew updates the expiry of the user's session, keeping its token.
	Renew(ctx context.Context, userID ulid.ULID, expiresAt time.Time) error

	// Replace overwrites the token and expiry of the user's session in one
	// write. The previous token stops resolving immediately.
	Replace(ctx context.Context, userID ulid.ULID, token string, expiresAt time.Time) error

	// DeleteByToken removes the session holding token. Deleting an unknown
	// token is not an error.
	DeleteByToken(ctx context.Context, token string) error

	// DeleteByUser removes the user's session, if any.
	DeleteByUser(ctx context.Context, userID ulid.ULID) error

	// DeleteExpired removes sessions that expired before now and returns
	// the count of deleted records.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
