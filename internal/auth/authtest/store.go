// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

// Package authtest provides an in-memory credential store for tests.
package authtest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/aurweb/aurweb/internal/auth"
)

// Store implements auth.UserRepository, auth.SessionRepository and
// auth.BanRepository in memory. Use Users, Sessions and Bans to pass it
// where a single repository is expected. Returned records are copies.
type Store struct {
	mu       sync.Mutex
	users    map[ulid.ULID]auth.User
	sessions map[ulid.ULID]auth.Session
	bans     map[string]auth.Ban

	// Err, when set, is returned by every operation.
	Err error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		users:    make(map[ulid.ULID]auth.User),
		sessions: make(map[ulid.ULID]auth.Session),
		bans:     make(map[string]auth.Ban),
	}
}

// Users returns the store as an auth.UserRepository.
func (s *Store) Users() auth.UserRepository { return (*userRepo)(s) }

// Sessions returns the store as an auth.SessionRepository.
func (s *Store) Sessions() auth.SessionRepository { return (*sessionRepo)(s) }

// Bans returns the store as an auth.BanRepository.
func (s *Store) Bans() auth.BanRepository { return (*banRepo)(s) }

// SessionCount returns the number of stored sessions.
func (s *Store) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// DeleteUser removes a user without touching its session.
func (s *Store) DeleteUser(id ulid.ULID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

func notFound(key string, value any) error {
	return oops.Code("NOT_FOUND").With(key, value).Wrap(auth.ErrNotFound)
}

func conflict(key string, value any) error {
	return oops.Code("CONFLICT").With(key, value).Wrap(auth.ErrConflict)
}

type userRepo Store

func (r *userRepo) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for _, u := range r.users {
		if strings.EqualFold(u.Username, user.Username) || strings.EqualFold(u.Email, user.Email) {
			return conflict("username", user.Username)
		}
	}
	r.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	return r.find("id", id, func(u *auth.User) bool { return u.ID == id })
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	return r.find("username", username, func(u *auth.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	return r.find("email", email, func(u *auth.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepo) GetByLogin(ctx context.Context, login string) (*auth.User, error) {
	user, err := r.GetByUsername(ctx, login)
	if !errors.Is(err, auth.ErrNotFound) {
		return user, err
	}
	return r.GetByEmail(ctx, login)
}

func (r *userRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	return r.exists(func(u *auth.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *userRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	return r.exists(func(u *auth.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepo) ResetKeyExists(_ context.Context, resetKey string) (bool, error) {
	return r.exists(func(u *auth.User) bool { return resetKey != "" && u.ResetKey == resetKey })
}

func (r *userRepo) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash, salt string) error {
	return r.update(id, func(u *auth.User) {
		u.PasswordHash = passwordHash
		u.Salt = salt
	})
}

func (r *userRepo) SetSuspended(_ context.Context, id ulid.ULID, suspended bool) error {
	return r.update(id, func(u *auth.User) { u.Suspended = suspended })
}

func (r *userRepo) RecordLogin(_ context.Context, id ulid.ULID, at time.Time, ipAddress string) error {
	return r.update(id, func(u *auth.User) {
		u.LastLogin = &at
		u.LastLoginIP = ipAddress
	})
}

func (r *userRepo) SetResetKey(_ context.Context, id ulid.ULID, resetKey string) error {
	return r.update(id, func(u *auth.User) { u.ResetKey = resetKey })
}

func (r *userRepo) find(key string, value any, match func(*auth.User) bool) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, u := range r.users {
		if match(&u) {
			found := u
			return &found, nil
		}
	}
	return nil, notFound(key, value)
}

func (r *userRepo) exists(match func(*auth.User) bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	for _, u := range r.users {
		if match(&u) {
			return true, nil
		}
	}
	return false, nil
}

func (r *userRepo) update(id ulid.ULID, apply func(*auth.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	u, ok := r.users[id]
	if !ok {
		return notFound("id", id)
	}
	apply(&u)
	r.users[id] = u
	return nil
}

type sessionRepo Store

func (r *sessionRepo) GetByUser(_ context.Context, userID ulid.ULID) (*auth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	session, ok := r.sessions[userID]
	if !ok {
		return nil, notFound("user_id", userID)
	}
	return &session, nil
}

func (r *sessionRepo) GetByToken(_ context.Context, token string) (*auth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	if session, ok := r.byToken(token); ok {
		return &session, nil
	}
	return nil, notFound("token", "redacted")
}

func (r *sessionRepo) TokenExists(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	_, ok := r.byToken(token)
	return ok, nil
}

func (r *sessionRepo) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.sessions[session.UserID]; ok {
		return conflict("user_id", session.UserID)
	}
	if _, ok := r.byToken(session.Token); ok {
		return conflict("token", "redacted")
	}
	r.sessions[session.UserID] = *session
	return nil
}

func (r *sessionRepo) Renew(_ context.Context, userID ulid.ULID, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	session, ok := r.sessions[userID]
	if !ok {
		return notFound("user_id", userID)
	}
	session.ExpiresAt = expiresAt
	r.sessions[userID] = session
	return nil
}

func (r *sessionRepo) Replace(_ context.Context, userID ulid.ULID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	session, ok := r.sessions[userID]
	if !ok {
		return notFound("user_id", userID)
	}
	if other, taken := r.byToken(token); taken && other.UserID != userID {
		return conflict("token", "redacted")
	}
	session.Token = token
	session.ExpiresAt = expiresAt
	r.sessions[userID] = session
	return nil
}

func (r *sessionRepo) DeleteByToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if session, ok := r.byToken(token); ok {
		delete(r.sessions, session.UserID)
	}
	return nil
}

func (r *sessionRepo) DeleteByUser(_ context.Context, userID ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	delete(r.sessions, userID)
	return nil
}

func (r *sessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	var n int64
	for id, session := range r.sessions {
		if session.IsExpiredAt(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// byToken must be called with mu held.
func (r *sessionRepo) byToken(token string) (auth.Session, bool) {
	for _, session := range r.sessions {
		if session.Token == token {
			return session, true
		}
	}
	return auth.Session{}, false
}

type banRepo Store

func (r *banRepo) GetByIP(_ context.Context, ipAddress string) (*auth.Ban, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	ban, ok := r.bans[ipAddress]
	if !ok {
		return nil, notFound("ip_address", ipAddress)
	}
	return &ban, nil
}

func (r *banRepo) Create(_ context.Context, ban *auth.Ban) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.bans[ban.IPAddress] = *ban
	return nil
}

func (r *banRepo) Delete(_ context.Context, ipAddress string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.bans[ipAddress]; !ok {
		return notFound("ip_address", ipAddress)
	}
	delete(r.bans, ipAddress)
	return nil
}
