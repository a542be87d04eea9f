// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
)

// Principal is the identity attached to one request.
type Principal struct {
	User          *User
	authenticated bool
}

// Anonymous returns an unauthenticated principal.
func Anonymous() *Principal {
	return &Principal{}
}

// Authenticated returns a principal for user.
func Authenticated(user *User) *Principal {
	return &Principal{User: user, authenticated: user != nil}
}

// IsAuthenticated reports whether the request carries a valid session.
func (p *Principal) IsAuthenticated() bool {
	return p != nil && p.authenticated
}

// Resolver maps session tokens to principals.
type Resolver struct {
	users    UserRepository
	sessions SessionRepository
	now      func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverClock sets the time source used for expiry checks.
func WithResolverClock(clock func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if clock != nil {
			r.now = clock
		}
	}
}

// NewResolver creates a Resolver.
func NewResolver(users UserRepository, sessions SessionRepository, opts ...ResolverOption) (*Resolver, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("sessions repository is required")
	}
	r := &Resolver{users: users, sessions: sessions, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve returns the principal for token. Missing, unknown and expired
// tokens yield an anonymous principal. A session whose user no longer
// exists is reported as ErrDataIntegrity.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return Anonymous(), nil
	}

	session, err := r.sessions.GetByToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return Anonymous(), nil
	}
	if err != nil {
		return nil, oops.Code("AUTH_RESOLVE_FAILED").
			With("operation", "get session by token").
			Wrap(err)
	}
	if session.IsExpiredAt(r.now()) {
		return Anonymous(), nil
	}

	user, err := r.users.GetByID(ctx, session.UserID)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_DATA_INTEGRITY").
			With("user_id", session.UserID.String()).
			Wrap(ErrDataIntegrity)
	}
	if err != nil {
		return nil, oops.Code("AUTH_RESOLVE_FAILED").
			With("operation", "get user by id").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}

	return Authenticated(user), nil
}

// Logout deletes the session for token and marks principal unauthenticated.
// Logging out an unknown token is not an error.
func (r *Resolver) Logout(ctx context.Context, principal *Principal, token string) error {
	if token != "" {
		if err := r.sessions.DeleteByToken(ctx, token); err != nil {
			return oops.Code("AUTH_LOGOUT_FAILED").
				With("operation", "delete session").
				Wrap(err)
		}
	}
	if principal != nil {
		principal.authenticated = false
	}
	return nil
}
