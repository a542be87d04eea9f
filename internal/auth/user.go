// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username length defaults, matching aurweb's options.username_{min,max}_len.
const (
	DefaultUsernameMinLength = 3
	DefaultUsernameMaxLength = 16
)

// usernameRegex matches usernames that start and end with a letter or digit
// and contain at most one period, underscore or hyphen.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9]+[.\-_]?[a-zA-Z0-9]+$`)

// User is an aurweb account.
//
// PasswordHash is either empty (no credential set, authentication always
// fails) or a digest accepted by the configured PasswordHasher. Salt is only
// non-empty for accounts still carrying a legacy MD5 digest.
type User struct {
	ID           ulid.ULID
	Username     string
	Email        string
	PasswordHash string
	Salt         string
	ResetKey     string
	Suspended    bool
	LastLogin    *time.Time
	LastLoginIP  string
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

// UserOptions holds the named fields accepted by NewUser. Zero values are the
// defaults: no password, no reset key, not suspended.
type UserOptions struct {
	Username  string
	Email     string
	Password  string // plaintext; hashed by NewUser when non-empty
	ResetKey  string
	Suspended bool
}

// NewUser creates a validated User from opts. A non-empty Password is hashed
// with hasher; otherwise the account is created without a credential.
func NewUser(opts UserOptions, hasher PasswordHasher) (*User, error) {
	username := strings.TrimSpace(opts.Username)
	if username == "" {
		return nil, oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	email := strings.TrimSpace(opts.Email)
	if email == "" {
		return nil, oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}

	var digest string
	if opts.Password != "" {
		if hasher == nil {
			return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required to set a password")
		}
		if len(opts.Password) > MaxPasswordBytes {
			return nil, ErrPasswordTooLong
		}
		var err error
		digest, err = hasher.Hash(opts.Password)
		if err != nil {
			return nil, oops.Code("AUTH_HASH_FAILED").With("username", username).Wrap(err)
		}
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		ResetKey:     opts.ResetKey,
		Suspended:    opts.Suspended,
		RegisteredAt: now,
		UpdatedAt:    now,
	}, nil
}

// HasPassword reports whether a credential has been set for the account.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// UsernamePolicy bounds acceptable username lengths.
type UsernamePolicy struct {
	MinLength int
	MaxLength int
}

// DefaultUsernamePolicy returns aurweb's stock username bounds.
func DefaultUsernamePolicy() UsernamePolicy {
	return UsernamePolicy{MinLength: DefaultUsernameMinLength, MaxLength: DefaultUsernameMaxLength}
}

// Validate checks a username against the policy.
func (p UsernamePolicy) Validate(username string) error {
	if len(username) < p.MinLength || len(username) > p.MaxLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", p.MinLength).
			With("max", p.MaxLength).
			Errorf("username must be between %d and %d characters long", p.MinLength, p.MaxLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_USERNAME").
			Errorf("username must start and end with a letter or number and contain at most one period, underscore or hyphen")
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns ErrConflict if the username or
	// email is already taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByUsername retrieves a user by username, ignoring case.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByEmail retrieves a user by email, ignoring case.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByLogin retrieves a user whose username or email equals login.
	GetByLogin(ctx context.Context, login string) (*User, error)

	// ExistsByUsername reports whether the username is taken.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail reports whether the email is taken.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// UpdatePassword replaces the password digest and legacy salt.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash, salt string) error

	// SetSuspended sets the suspended flag.
	SetSuspended(ctx context.Context, id ulid.ULID, suspended bool) error

	// RecordLogin stores the last-login timestamp and origin address.
	RecordLogin(ctx context.Context, id ulid.ULID, at time.Time, ipAddress string) error

	// SetResetKey stores a reset key; an empty key clears it.
	SetResetKey(ctx context.Context, id ulid.ULID, resetKey string) error

	// ResetKeyExists reports whether any user holds the given reset key.
	ResetKeyExists(ctx context.Context, resetKey string) (bool, error)
}
