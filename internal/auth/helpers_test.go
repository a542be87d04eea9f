// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aurweb/aurweb/internal/auth"
	"github.com/aurweb/aurweb/internal/auth/authtest"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(sec int64) *fakeClock {
	return &fakeClock{now: time.Unix(sec, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(sec int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Unix(sec, 0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store    *authtest.Store
	hasher   *auth.BcryptHasher
	clock    *fakeClock
	gate     *auth.Gate
	resolver *auth.Resolver
}

func newFixture(t *testing.T, lifetime time.Duration) *fixture {
	t.Helper()
	store := authtest.NewStore()
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	clock := newFakeClock(1000)

	authn, err := auth.NewAuthenticator(store.Users(), hasher, discardLogger())
	require.NoError(t, err)
	issuer, err := auth.NewTokenIssuer(store.Sessions(), lifetime)
	require.NoError(t, err)
	gate, err := auth.NewGate(auth.GateConfig{
		Users:              store.Users(),
		Sessions:           store.Sessions(),
		Bans:               store.Bans(),
		Hasher:             hasher,
		Authenticator:      authn,
		Issuer:             issuer,
		PersistentLifetime: 30 * 24 * time.Hour,
		Logger:             discardLogger(),
		Clock:              clock.Now,
	})
	require.NoError(t, err)
	resolver, err := auth.NewResolver(store.Users(), store.Sessions(), auth.WithResolverClock(clock.Now))
	require.NoError(t, err)

	return &fixture{store: store, hasher: hasher, clock: clock, gate: gate, resolver: resolver}
}

func (f *fixture) createUser(t *testing.T, username, password string) *auth.User {
	t.Helper()
	user, err := auth.NewUser(auth.UserOptions{
		Username: username,
		Email:    username + "@example.org",
		Password: password,
	}, f.hasher)
	require.NoError(t, err)
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	return user
}

func (f *fixture) storedUser(t *testing.T, username string) *auth.User {
	t.Helper()
	user, err := f.store.Users().GetByUsername(context.Background(), username)
	require.NoError(t, err)
	return user
}
