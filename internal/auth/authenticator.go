// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package auth

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/aurweb/aurweb/pkg/errutil"
)

// Authenticator verifies passwords against stored credentials and migrates
// legacy digests on first successful use.
type Authenticator struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewAuthenticator creates an Authenticator. A nil logger uses slog.Default().
func NewAuthenticator(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*Authenticator, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{users: users, hasher: hasher, logger: logger}, nil
}

// Authenticate reports whether password matches the user's credential.
//
// A legacy MD5 match (or an outdated bcrypt cost) re-hashes the password,
// clears the legacy salt and persists both; user is updated in place.
// Persisting the upgrade is best effort: the login still succeeds and the
// next login retries it. A legacy password longer than MaxPasswordBytes
// cannot be re-hashed and keeps its legacy digest until the next reset.
func (a *Authenticator) Authenticate(ctx context.Context, user *User, password string) bool {
	if user == nil {
		return false
	}

	result := a.hasher.Verify(password, user.PasswordHash, user.Salt)
	if !result.OK() {
		return false
	}

	if result != VerifyLegacyMatch && !a.hasher.NeedsUpgrade(user.PasswordHash) {
		return true
	}
	if len(password) > MaxPasswordBytes {
		a.logger.DebugContext(ctx, "password too long to re-hash, keeping digest",
			"user_id", user.ID.String(),
			"verification", result.String(),
		)
		return true
	}
	a.upgrade(ctx, user, password, result)
	return true
}

func (a *Authenticator) upgrade(ctx context.Context, user *User, password string, result Verification) {
	digest, err := a.hasher.Hash(password)
	if err != nil {
		errutil.LogWarn(a.logger, "failed to re-hash password", oops.
			With("user_id", user.ID.String()).
			Wrap(err))
		return
	}

	if err := a.users.UpdatePassword(ctx, user.ID, digest, ""); err != nil {
		errutil.LogWarn(a.logger, "failed to persist upgraded password", oops.
			With("user_id", user.ID.String()).
			With("verification", result.String()).
			Wrap(err))
		return
	}

	from := "bcrypt"
	if result == VerifyLegacyMatch {
		from = "md5"
	}
	PasswordMigrations.WithLabelValues(from).Inc()

	user.PasswordHash = digest
	user.Salt = ""
	a.logger.InfoContext(ctx, "password digest upgraded",
		"user_id", user.ID.String(),
		"from", from,
	)
}
