// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/aurweb/aurweb/pkg/errutil"
)

// RegisterRequest carries the fields of the account registration form.
type RegisterRequest struct {
	Username   string
	Email      string
	RemoteAddr string
}

// RegistrationService creates accounts. New accounts have no password; the
// user sets one through the reset key sent with the welcome notification.
type RegistrationService struct {
	users    UserRepository
	bans     BanRepository
	notifier Notifier
	policy   UsernamePolicy
	logger   *slog.Logger
	now      func() time.Time
}

// RegistrationOption configures a RegistrationService.
type RegistrationOption func(*RegistrationService)

// WithUsernamePolicy overrides DefaultUsernamePolicy.
func WithUsernamePolicy(policy UsernamePolicy) RegistrationOption {
	return func(s *RegistrationService) {
		s.policy = policy
	}
}

// WithRegistrationLogger sets the logger.
func WithRegistrationLogger(logger *slog.Logger) RegistrationOption {
	return func(s *RegistrationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistrationClock sets the time source used for ban checks.
func WithRegistrationClock(clock func() time.Time) RegistrationOption {
	return func(s *RegistrationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewRegistrationService creates a RegistrationService.
func NewRegistrationService(users UserRepository, bans BanRepository, notifier Notifier, opts ...RegistrationOption) (*RegistrationService, error) {
	switch {
	case users == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("users repository is required")
	case bans == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("bans repository is required")
	case notifier == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("notifier is required")
	}
	s := &RegistrationService{
		users:    users,
		bans:     bans,
		notifier: notifier,
		policy:   DefaultUsernamePolicy(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a password-less account and sends its reset key.
func (s *RegistrationService) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	banned, err := isBanned(ctx, s.bans, req.RemoteAddr, s.now())
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").With("operation", "check ban").Wrap(err)
	}
	if banned {
		return nil, oops.Code("REGISTER_BANNED").
			With("remote_addr", req.RemoteAddr).
			Errorf("account registration has been disabled for your IP address")
	}

	username := strings.TrimSpace(req.Username)
	if err := s.policy.Validate(username); err != nil {
		return nil, err //nolint:wrapcheck // carries AUTH_INVALID_USERNAME
	}
	email := strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, "<> ") {
		return nil, oops.Code("AUTH_INVALID_EMAIL").With("email", email).Errorf("the email address is invalid")
	}

	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").With("operation", "check username").Wrap(err)
	}
	if taken {
		return nil, usernameTaken(username)
	}
	taken, err = s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").With("operation", "check email").Wrap(err)
	}
	if taken {
		return nil, oops.Code("REGISTER_EMAIL_TAKEN").With("email", email).
			Errorf("the address %s is already in use", email)
	}

	key, err := uniqueRandomString(ctx, TokenLength, DefaultTokenAttempts, s.users.ResetKeyExists)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").With("operation", "generate reset key").Wrap(err)
	}
	user, err := NewUser(UserOptions{Username: username, Email: email, ResetKey: key}, nil)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, usernameTaken(username)
		}
		return nil, oops.Code("REGISTER_FAILED").With("operation", "create user").Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String(), "username", user.Username)
	if err := s.notifier.SendWelcome(ctx, user); err != nil {
		// The account exists; the user can request another key.
		errutil.LogWarn(s.logger, "failed to send welcome notification",
			oops.With("user_id", user.ID.String()).Wrap(err))
	}
	return user, nil
}

func usernameTaken(username string) error {
	return oops.Code("REGISTER_USERNAME_TAKEN").With("username", username).
		Errorf("the username %s is already in use", username)
}
