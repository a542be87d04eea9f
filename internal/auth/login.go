// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/aurweb/aurweb/pkg/errutil"
)

// DefaultPersistentLifetime matches aurweb's options.persistent_cookie_timeout.
const DefaultPersistentLifetime = 30 * 24 * time.Hour

// LoginAttempt is one request to log in.
type LoginAttempt struct {
	Username   string
	Password   string
	RemoteAddr string

	// Remember selects the persistent session lifetime.
	Remember bool

	// Duration overrides the session lifetime when positive.
	Duration time.Duration
}

// LoginResult is the uniform outcome of a login. Rejections of any kind are
// the zero value.
type LoginResult struct {
	OK        bool
	Token     string
	ExpiresAt time.Time
}

// GateConfig holds the dependencies and settings of a Gate.
type GateConfig struct {
	Users         UserRepository
	Sessions      SessionRepository
	Bans          BanRepository
	Hasher        PasswordHasher
	Authenticator *Authenticator
	Issuer        *TokenIssuer

	// PersistentLifetime is used for "remember me" logins.
	// Defaults to DefaultPersistentLifetime.
	PersistentLifetime time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Gate decides login eligibility and issues, renews or rotates sessions.
type Gate struct {
	users              UserRepository
	sessions           SessionRepository
	bans               BanRepository
	hasher             PasswordHasher
	authn              *Authenticator
	issuer             *TokenIssuer
	persistentLifetime time.Duration
	logger             *slog.Logger
	now                func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

// NewGate creates a Gate from cfg.
func NewGate(cfg GateConfig) (*Gate, error) {
	switch {
	case cfg.Users == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("users repository is required")
	case cfg.Sessions == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("sessions repository is required")
	case cfg.Bans == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("bans repository is required")
	case cfg.Hasher == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	case cfg.Authenticator == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("authenticator is required")
	case cfg.Issuer == nil:
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("token issuer is required")
	}

	g := &Gate{
		users:              cfg.Users,
		sessions:           cfg.Sessions,
		bans:               cfg.Bans,
		hasher:             cfg.Hasher,
		authn:              cfg.Authenticator,
		issuer:             cfg.Issuer,
		persistentLifetime: cfg.PersistentLifetime,
		logger:             cfg.Logger,
		now:                cfg.Clock,
	}
	if g.persistentLifetime <= 0 {
		g.persistentLifetime = DefaultPersistentLifetime
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g, nil
}

// Login looks the user up by username and delegates to LoginUser.
// Unknown usernames still pay for one password verification so response
// time does not reveal which accounts exist.
func (g *Gate) Login(ctx context.Context, attempt LoginAttempt) (LoginResult, error) {
	user, err := g.users.GetByUsername(ctx, attempt.Username)
	if errors.Is(err, ErrNotFound) {
		g.hasher.Verify(attempt.Password, g.dummy(), "")
		recordLoginAttempt(OutcomeUnknownUser)
		return LoginResult{}, nil
	}
	if err != nil {
		recordLoginAttempt(OutcomeError)
		return LoginResult{}, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by username").
			Wrap(err)
	}

	return g.LoginUser(ctx, user, attempt.Password, attempt.RemoteAddr, g.lifetimeFor(attempt))
}

// LoginUser checks eligibility and credentials for user and, on success,
// returns the session token to hand to the client.
//
// A user without a session gets a new one. An expired session is rotated to
// a fresh token. A valid session keeps its token and has its expiry moved to
// now+duration (or now plus the issuer default when duration is zero).
func (g *Gate) LoginUser(ctx context.Context, user *User, password, remoteAddr string, duration time.Duration) (LoginResult, error) {
	now := g.now()

	banned, err := isBanned(ctx, g.bans, remoteAddr, now)
	if err != nil {
		recordLoginAttempt(OutcomeError)
		return LoginResult{}, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "check ban").
			Wrap(err)
	}
	if banned {
		g.reject(ctx, user, remoteAddr, OutcomeBanned)
		return LoginResult{}, nil
	}
	if user.Suspended {
		g.reject(ctx, user, remoteAddr, OutcomeSuspended)
		return LoginResult{}, nil
	}

	if !g.authn.Authenticate(ctx, user, password) {
		g.reject(ctx, user, remoteAddr, OutcomeBadCredentials)
		return LoginResult{}, nil
	}

	expiresAt := g.issuer.ComputeExpiry(now, duration)
	token, kind, err := g.issueSession(ctx, user.ID, now, expiresAt)
	if err != nil {
		recordLoginAttempt(OutcomeError)
		return LoginResult{}, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue session").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	if err := g.users.RecordLogin(ctx, user.ID, now, remoteAddr); err != nil {
		errutil.LogWarn(g.logger, "failed to record login", oops.
			With("user_id", user.ID.String()).
			Wrap(err))
	} else {
		user.LastLogin = &now
		user.LastLoginIP = remoteAddr
	}

	recordSessionIssued(kind)
	recordLoginAttempt(OutcomeSuccess)
	g.logger.InfoContext(ctx, "login succeeded",
		"user_id", user.ID.String(),
		"session", kind,
		"expires_at", expiresAt.Unix(),
	)

	return LoginResult{OK: true, Token: token, ExpiresAt: expiresAt}, nil
}

// issueSession creates, rotates or renews the user's session and returns
// the token now valid for it.
func (g *Gate) issueSession(ctx context.Context, userID ulid.ULID, now, expiresAt time.Time) (string, string, error) {
	existing, err := g.sessions.GetByUser(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		return g.createSession(ctx, userID, expiresAt)
	case err != nil:
		return "", "", oops.With("operation", "get session by user").Wrap(err)
	case existing.IsExpiredAt(now):
		return g.rotateSession(ctx, userID, expiresAt)
	}

	err = g.sessions.Renew(ctx, userID, expiresAt)
	if errors.Is(err, ErrNotFound) {
		// Logged out between the read and the renewal.
		return g.createSession(ctx, userID, expiresAt)
	}
	if err != nil {
		return "", "", oops.With("operation", "renew session").Wrap(err)
	}
	return existing.Token, SessionRenewed, nil
}

func (g *Gate) createSession(ctx context.Context, userID ulid.ULID, expiresAt time.Time) (string, string, error) {
	token, err := g.issuer.GenerateToken(ctx)
	if err != nil {
		return "", "", err
	}
	session, err := NewSession(userID, token, expiresAt)
	if err != nil {
		return "", "", err
	}

	err = g.sessions.Create(ctx, session)
	if errors.Is(err, ErrConflict) {
		// A concurrent login created the row first; last writer wins.
		if err := g.sessions.Replace(ctx, userID, token, expiresAt); err != nil {
			return "", "", oops.With("operation", "replace session after conflict").Wrap(err)
		}
		return token, SessionRotated, nil
	}
	if err != nil {
		return "", "", oops.With("operation", "create session").Wrap(err)
	}
	return token, SessionCreated, nil
}

func (g *Gate) rotateSession(ctx context.Context, userID ulid.ULID, expiresAt time.Time) (string, string, error) {
	token, err := g.issuer.GenerateToken(ctx)
	if err != nil {
		return "", "", err
	}

	err = g.sessions.Replace(ctx, userID, token, expiresAt)
	if errors.Is(err, ErrNotFound) {
		return g.createSession(ctx, userID, expiresAt)
	}
	if err != nil {
		return "", "", oops.With("operation", "replace expired session").Wrap(err)
	}
	return token, SessionRotated, nil
}

func (g *Gate) reject(ctx context.Context, user *User, remoteAddr, outcome string) {
	recordLoginAttempt(outcome)
	g.logger.DebugContext(ctx, "login rejected",
		"user_id", user.ID.String(),
		"remote_addr", remoteAddr,
		"outcome", outcome,
	)
}

func (g *Gate) lifetimeFor(attempt LoginAttempt) time.Duration {
	if attempt.Duration > 0 {
		return attempt.Duration
	}
	if attempt.Remember {
		return g.persistentLifetime
	}
	return 0
}

// dummy returns a real digest of a throwaway password for timing equalisation.
func (g *Gate) dummy() string {
	g.dummyOnce.Do(func() {
		secret, err := RandomString(TokenLength)
		if err != nil {
			return
		}
		//nolint:errcheck // an empty digest only shortens the dummy check
		g.dummyDigest, _ = g.hasher.Hash(secret)
	})
	return g.dummyDigest
}
