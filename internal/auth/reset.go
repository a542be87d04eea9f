// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"unicode/utf8"

	"github.com/samber/oops"
)

// ResetRequest carries the fields of a password reset form.
type ResetRequest struct {
	Login    string // username or email
	Key      string
	Password string
	Confirm  string
}

// ResetService issues reset keys and applies password resets.
type ResetService struct {
	users        UserRepository
	hasher       PasswordHasher
	notifier     Notifier
	minPasswdLen int
	logger       *slog.Logger
}

// ResetOption configures a ResetService.
type ResetOption func(*ResetService)

// WithResetLogger sets the logger.
func WithResetLogger(logger *slog.Logger) ResetOption {
	return func(s *ResetService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewResetService creates a ResetService. minPasswdLen must be positive.
func NewResetService(users UserRepository, hasher PasswordHasher, notifier Notifier, minPasswdLen int, opts ...ResetOption) (*ResetService, error) {
	switch {
	case users == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("users repository is required")
	case hasher == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	case notifier == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("notifier is required")
	case minPasswdLen <= 0:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").
			With("passwd_min_len", minPasswdLen).
			Errorf("minimum password length must be positive")
	}
	s := &ResetService{
		users:        users,
		hasher:       hasher,
		notifier:     notifier,
		minPasswdLen: minPasswdLen,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RequestReset stores a fresh reset key for the user named by login and
// sends it to them.
func (s *ResetService) RequestReset(ctx context.Context, login string) error {
	user, err := s.lookup(ctx, login)
	if err != nil {
		return err
	}

	key, err := uniqueRandomString(ctx, TokenLength, DefaultTokenAttempts, s.users.ResetKeyExists)
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").With("operation", "generate reset key").Wrap(err)
	}
	if err := s.users.SetResetKey(ctx, user.ID, key); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "store reset key").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	user.ResetKey = key

	if err := s.notifier.SendResetKey(ctx, user); err != nil {
		return oops.Code("RESET_NOTIFY_FAILED").With("user_id", user.ID.String()).Wrap(err)
	}
	return nil
}

// ResetPassword sets a new password when req carries the user's current
// reset key. The key is consumed and any legacy salt is cleared.
func (s *ResetService) ResetPassword(ctx context.Context, req ResetRequest) error {
	user, err := s.lookup(ctx, req.Login)
	if err != nil {
		return err
	}
	if req.Key == "" || user.ResetKey == "" ||
		subtle.ConstantTimeCompare([]byte(req.Key), []byte(user.ResetKey)) != 1 {
		return errInvalidLogin()
	}

	switch {
	case req.Password == "" || req.Confirm == "":
		return oops.Code("RESET_MISSING_FIELD").Errorf("missing a required field")
	case req.Password != req.Confirm:
		return oops.Code("RESET_PASSWORD_MISMATCH").Errorf("password fields do not match")
	case utf8.RuneCountInString(req.Password) < s.minPasswdLen:
		return oops.Code("RESET_PASSWORD_TOO_SHORT").
			With("min", s.minPasswdLen).
			Errorf("your password must be at least %d characters", s.minPasswdLen)
	case len(req.Password) > MaxPasswordBytes:
		return oops.Code("RESET_PASSWORD_TOO_LONG").
			With("max_bytes", MaxPasswordBytes).
			Errorf("your password must be at most %d bytes", MaxPasswordBytes)
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return oops.Code("RESET_FAILED").With("operation", "hash password").Wrap(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, digest, ""); err != nil {
		return oops.Code("RESET_FAILED").
			With("operation", "update password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	if err := s.users.SetResetKey(ctx, user.ID, ""); err != nil {
		return oops.Code("RESET_FAILED").
			With("operation", "clear reset key").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password reset", "user_id", user.ID.String())
	return nil
}

func (s *ResetService) lookup(ctx context.Context, login string) (*User, error) {
	if login == "" {
		return nil, errInvalidLogin()
	}
	user, err := s.users.GetByLogin(ctx, login)
	if errors.Is(err, ErrNotFound) {
		return nil, errInvalidLogin()
	}
	if err != nil {
		return nil, oops.Code("RESET_FAILED").With("operation", "get user by login").Wrap(err)
	}
	return user, nil
}

func errInvalidLogin() error {
	return oops.Code("RESET_INVALID_LOGIN").Errorf("invalid e-mail")
}
