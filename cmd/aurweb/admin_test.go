// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aurweb/aurweb/internal/auth"
	"github.com/aurweb/aurweb/internal/auth/authtest"
	"github.com/aurweb/aurweb/pkg/errutil"
)

func addUser(t *testing.T, store *authtest.Store, username string) *auth.User {
	t.Helper()
	user, err := auth.NewUser(auth.UserOptions{
		Username: username,
		Email:    username + "@example.org",
		Password: "hunter22",
	}, auth.NewBcryptHasher(bcrypt.MinCost))
	require.NoError(t, err)
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

func addSession(t *testing.T, store *authtest.Store, user *auth.User, token string, expiresAt time.Time) {
	t.Helper()
	session, err := auth.NewSession(user.ID, token, expiresAt)
	require.NoError(t, err)
	require.NoError(t, store.Sessions().Create(context.Background(), session))
}

func TestSessionsPrune(t *testing.T) {
	store := useStore(t)
	alice := addUser(t, store, "alice")
	bob := addUser(t, store, "bob")
	addSession(t, store, alice, "EXPIRED0000000000000000000000000", time.Now().Add(-time.Hour))
	addSession(t, store, bob, "LIVE000000000000000000000000000X", time.Now().Add(time.Hour))

	out, err := execute(t, "sessions", "prune")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 expired sessions")
	assert.Equal(t, 1, store.SessionCount())
}

func TestSessionsPruneFailure(t *testing.T) {
	store := useStore(t)
	store.Err = errors.New("database is down")

	_, err := execute(t, "sessions", "prune")
	errutil.AssertErrorCode(t, err, "SESSIONS_PRUNE_FAILED")
}

func TestBanAddAndRemove(t *testing.T) {
	store := useStore(t)
	ctx := context.Background()

	out, err := execute(t, "ban", "add", "203.0.113.7")
	require.NoError(t, err)
	assert.Contains(t, out, "permanently")

	ban, err := store.Bans().GetByIP(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.Nil(t, ban.ExpiresAt)

	out, err = execute(t, "ban", "remove", "203.0.113.7")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed ban on 203.0.113.7")

	_, err = store.Bans().GetByIP(ctx, "203.0.113.7")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestBanAddWithDuration(t *testing.T) {
	store := useStore(t)

	before := time.Now()
	_, err := execute(t, "ban", "add", "203.0.113.8", "--duration", "24h")
	require.NoError(t, err)

	ban, err := store.Bans().GetByIP(context.Background(), "203.0.113.8")
	require.NoError(t, err)
	require.NotNil(t, ban.ExpiresAt)
	assert.WithinDuration(t, before.Add(24*time.Hour), *ban.ExpiresAt, 5*time.Second)
}

func TestBanAddRejectsBadInput(t *testing.T) {
	useStore(t)

	_, err := execute(t, "ban", "add", "not-an-ip")
	errutil.AssertErrorCode(t, err, "BAN_INVALID_ADDRESS")

	_, err = execute(t, "ban", "add", "203.0.113.9", "--duration=-1h")
	errutil.AssertErrorCode(t, err, "BAN_INVALID_EXPIRY")
}

func TestBanStoresCanonicalAddress(t *testing.T) {
	store := useStore(t)
	ctx := context.Background()

	out, err := execute(t, "ban", "add", "2001:DB8:0:0::1")
	require.NoError(t, err)
	assert.Contains(t, out, "Banned 2001:db8::1 permanently")

	_, err = store.Bans().GetByIP(ctx, "2001:db8::1")
	require.NoError(t, err)

	out, err = execute(t, "ban", "remove", "2001:0db8::0001")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed ban on 2001:db8::1")

	_, err = store.Bans().GetByIP(ctx, "2001:db8::1")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestBanRemoveRejectsBadAddress(t *testing.T) {
	useStore(t)

	_, err := execute(t, "ban", "remove", "not-an-ip")
	errutil.AssertErrorCode(t, err, "BAN_INVALID_ADDRESS")
}

func TestBanRemoveUnknown(t *testing.T) {
	useStore(t)

	_, err := execute(t, "ban", "remove", "203.0.113.10")
	errutil.AssertErrorCode(t, err, "BAN_NOT_FOUND")
}

func TestUserSuspendEndsSession(t *testing.T) {
	store := useStore(t)
	alice := addUser(t, store, "alice")
	addSession(t, store, alice, "LIVE000000000000000000000000000X", time.Now().Add(time.Hour))

	out, err := execute(t, "user", "suspend", "ALICE")
	require.NoError(t, err)
	assert.Contains(t, out, "Suspended alice")

	stored, err := store.Users().GetByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.True(t, stored.Suspended)
	assert.Zero(t, store.SessionCount())

	_, err = execute(t, "user", "unsuspend", "alice")
	require.NoError(t, err)
	stored, err = store.Users().GetByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.False(t, stored.Suspended)
}

func TestUserSuspendUnknown(t *testing.T) {
	useStore(t)

	_, err := execute(t, "user", "suspend", "nobody")
	errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
}
