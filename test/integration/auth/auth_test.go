// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

//go:build integration

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/crypto/bcrypt"

	"github.com/aurweb/aurweb/internal/auth"
	"github.com/aurweb/aurweb/internal/auth/postgres"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(sec int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Unix(sec, 0)
}

var _ = Describe("Session authentication on PostgreSQL", func() {
	var (
		ctx      context.Context
		users    *postgres.UserRepository
		sessions *postgres.SessionRepository
		bans     *postgres.BanRepository
		hasher   *auth.BcryptHasher
		clk      *clock
		gate     *auth.Gate
		resolver *auth.Resolver
	)

	createUser := func(username, password string) *auth.User {
		user, err := auth.NewUser(auth.UserOptions{
			Username: username,
			Email:    username + "@example.org",
			Password: password,
		}, hasher)
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(ctx, user)).To(Succeed())
		return user
	}

	login := func(username, password string) auth.LoginResult {
		result, err := gate.Login(ctx, auth.LoginAttempt{Username: username, Password: password, RemoteAddr: "198.51.100.4"})
		Expect(err).NotTo(HaveOccurred())
		return result
	}

	BeforeEach(func() {
		ctx = context.Background()
		truncate(ctx)

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		users = postgres.NewUserRepository(pool)
		sessions = postgres.NewSessionRepository(pool)
		bans = postgres.NewBanRepository(pool)
		hasher = auth.NewBcryptHasher(bcrypt.MinCost)
		clk = &clock{now: time.Unix(1000, 0)}

		authn, err := auth.NewAuthenticator(users, hasher, logger)
		Expect(err).NotTo(HaveOccurred())
		issuer, err := auth.NewTokenIssuer(sessions, 3600*time.Second)
		Expect(err).NotTo(HaveOccurred())
		gate, err = auth.NewGate(auth.GateConfig{
			Users:         users,
			Sessions:      sessions,
			Bans:          bans,
			Hasher:        hasher,
			Authenticator: authn,
			Issuer:        issuer,
			Logger:        logger,
			Clock:         clk.Now,
		})
		Expect(err).NotTo(HaveOccurred())
		resolver, err = auth.NewResolver(users, sessions, auth.WithResolverClock(clk.Now))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("login and resolution", func() {
		It("issues, renews and rotates a single session per user", func() {
			alice := createUser("alice", "hunter22")

			first := login("alice", "hunter22")
			Expect(first.OK).To(BeTrue())
			Expect(first.ExpiresAt.Unix()).To(BeEquivalentTo(4600))

			clk.Set(2000)
			second := login("alice", "hunter22")
			Expect(second.Token).To(Equal(first.Token))
			Expect(second.ExpiresAt.Unix()).To(BeEquivalentTo(5600))

			clk.Set(9000)
			third := login("alice", "hunter22")
			Expect(third.Token).NotTo(Equal(first.Token))
			Expect(third.ExpiresAt.Unix()).To(BeEquivalentTo(12600))

			session, err := sessions.GetByUser(ctx, alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Token).To(Equal(third.Token))

			principal, err := resolver.Resolve(ctx, first.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(principal.IsAuthenticated()).To(BeFalse())

			principal, err = resolver.Resolve(ctx, third.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(principal.IsAuthenticated()).To(BeTrue())
			Expect(principal.User.ID).To(Equal(alice.ID))
		})

		It("treats the expiry second as still valid", func() {
			createUser("alice", "hunter22")
			result := login("alice", "hunter22")

			clk.Set(4600)
			principal, err := resolver.Resolve(ctx, result.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(principal.IsAuthenticated()).To(BeTrue())

			clk.Set(4601)
			principal, err = resolver.Resolve(ctx, result.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(principal.IsAuthenticated()).To(BeFalse())
		})

		It("matches usernames regardless of case", func() {
			createUser("Alice", "hunter22")
			Expect(login("alice", "hunter22").OK).To(BeTrue())
		})

		It("records the last login", func() {
			alice := createUser("alice", "hunter22")
			login("alice", "hunter22")

			stored, err := users.GetByID(ctx, alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.LastLogin).NotTo(BeNil())
			Expect(stored.LastLoginIP).To(Equal("198.51.100.4"))
		})

		It("rejects banned and suspended logins", func() {
			alice := createUser("alice", "hunter22")
			ban, err := auth.NewBan("198.51.100.4", clk.Now(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(bans.Create(ctx, ban)).To(Succeed())
			Expect(login("alice", "hunter22").OK).To(BeFalse())

			Expect(bans.Delete(ctx, "198.51.100.4")).To(Succeed())
			Expect(users.SetSuspended(ctx, alice.ID, true)).To(Succeed())
			Expect(login("alice", "hunter22").OK).To(BeFalse())

			count, err := pool.Exec(ctx, `SELECT 1 FROM sessions`)
			Expect(err).NotTo(HaveOccurred())
			Expect(count.RowsAffected()).To(BeZero())
		})
	})

	Describe("legacy password migration", func() {
		It("upgrades an MD5 digest to bcrypt on first login", func() {
			legacy, err := auth.NewUser(auth.UserOptions{Username: "legacy", Email: "legacy@example.org"}, hasher)
			Expect(err).NotTo(HaveOccurred())
			legacy.Salt = "5f2a"
			legacy.PasswordHash = auth.LegacyDigest("5f2a", "oldpass")
			Expect(users.Create(ctx, legacy)).To(Succeed())

			Expect(login("legacy", "oldpass").OK).To(BeTrue())

			stored, err := users.GetByID(ctx, legacy.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Salt).To(BeEmpty())
			Expect(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("oldpass"))).To(Succeed())
		})
	})

	Describe("logout and data integrity", func() {
		It("deletes the session row on logout", func() {
			createUser("alice", "hunter22")
			result := login("alice", "hunter22")

			principal, err := resolver.Resolve(ctx, result.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(resolver.Logout(ctx, principal, result.Token)).To(Succeed())
			Expect(principal.IsAuthenticated()).To(BeFalse())

			exists, err := sessions.TokenExists(ctx, result.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())
		})

		It("cascades user deletion to the session", func() {
			alice := createUser("alice", "hunter22")
			result := login("alice", "hunter22")

			_, err := pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, alice.ID.String())
			Expect(err).NotTo(HaveOccurred())

			principal, err := resolver.Resolve(ctx, result.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(principal.IsAuthenticated()).To(BeFalse())
		})
	})

	Describe("maintenance", func() {
		It("prunes only expired sessions", func() {
			createUser("alice", "hunter22")
			createUser("bob", "hunter22")
			login("alice", "hunter22")
			clk.Set(5000)
			login("bob", "hunter22")

			deleted, err := sessions.DeleteExpired(ctx, time.Unix(6000, 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeEquivalentTo(1))
		})

		It("rejects a duplicate email regardless of case", func() {
			createUser("alice", "hunter22")
			dup, err := auth.NewUser(auth.UserOptions{Username: "alice2", Email: "ALICE@example.org"}, hasher)
			Expect(err).NotTo(HaveOccurred())
			Expect(users.Create(ctx, dup)).To(MatchError(auth.ErrConflict))
		})
	})
})
