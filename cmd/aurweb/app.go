// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/aurweb/aurweb/internal/auth"
	"github.com/aurweb/aurweb/internal/auth/postgres"
	"github.com/aurweb/aurweb/internal/config"
	"github.com/aurweb/aurweb/internal/store"
)

// repositories bundles the persistence the services run on.
type repositories struct {
	Users    auth.UserRepository
	Sessions auth.SessionRepository
	Bans     auth.BanRepository

	// Ready reports database health. Nil means always ready.
	Ready func(ctx context.Context) error

	// Close releases the connection pool.
	Close func()
}

// openPostgres connects to databaseURL and returns the PostgreSQL
// repositories.
func openPostgres(ctx context.Context, databaseURL string) (*repositories, error) {
	pool, err := store.Open(ctx, databaseURL)
	if err != nil {
		return nil, err //nolint:wrapcheck // store.Open returns oops errors
	}
	return &repositories{
		Users:    postgres.NewUserRepository(pool),
		Sessions: postgres.NewSessionRepository(pool),
		Bans:     postgres.NewBanRepository(pool),
		Ready:    store.Readiness(pool),
		Close:    pool.Close,
	}, nil
}

// services is the authentication graph wired from configuration.
type services struct {
	Gate          *auth.Gate
	Resolver      *auth.Resolver
	Resets        *auth.ResetService
	Registrations *auth.RegistrationService
}

func newServices(cfg *config.Config, repos *repositories, logger *slog.Logger) (*services, error) {
	opts := cfg.Options
	hasher := auth.NewBcryptHasher(opts.BcryptCost)

	authn, err := auth.NewAuthenticator(repos.Users, hasher, logger)
	if err != nil {
		return nil, err //nolint:wrapcheck // constructor errors carry codes
	}
	issuer, err := auth.NewTokenIssuer(repos.Sessions, opts.LoginLifetime())
	if err != nil {
		return nil, err //nolint:wrapcheck // constructor errors carry codes
	}
	gate, err := auth.NewGate(auth.GateConfig{
		Users:              repos.Users,
		Sessions:           repos.Sessions,
		Bans:               repos.Bans,
		Hasher:             hasher,
		Authenticator:      authn,
		Issuer:             issuer,
		PersistentLifetime: opts.PersistentLifetime(),
		Logger:             logger,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // constructor errors carry codes
	}
	resolver, err := auth.NewResolver(repos.Users, repos.Sessions)
	if err != nil {
		return nil, err //nolint:wrapcheck // constructor errors carry codes
	}

	notifier := auth.NewLogNotifier(logger)
	resets, err := auth.NewResetService(repos.Users, hasher, notifier, opts.PasswdMinLen, auth.WithResetLogger(logger))
	if err != nil {
		return nil, err //nolint:wrapcheck // constructor errors carry codes
	}
	registrations, err := auth.NewRegistrationService(repos.Users, repos.Bans, notifier,
		auth.WithUsernamePolicy(auth.UsernamePolicy{MinLength: opts.UsernameMinLen, MaxLength: opts.UsernameMaxLen}),
		auth.WithRegistrationLogger(logger),
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // constructor errors carry codes
	}

	return &services{
		Gate:          gate,
		Resolver:      resolver,
		Resets:        resets,
		Registrations: registrations,
	}, nil
}
