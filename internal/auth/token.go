// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Token configuration.
const (
	// TokenAlphabet is the character set of session tokens and reset keys.
	TokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// TokenLength is the length of session tokens and reset keys.
	TokenLength = 32

	// DefaultTokenAttempts bounds collision retries when drawing a unique token.
	DefaultTokenAttempts = 8

	// DefaultSessionLifetime matches aurweb's options.login_timeout.
	DefaultSessionLifetime = 2 * time.Hour
)

// rejectionLimit is the largest multiple of len(TokenAlphabet) that fits in a
// byte; bytes at or above it are discarded to keep the draw uniform.
const rejectionLimit = 256 - (256 % len(TokenAlphabet))

var errTokenTaken = errors.New("token already in use")

// RandomString returns n characters drawn uniformly from TokenAlphabet using
// crypto/rand.
func RandomString(n int) (string, error) {
	if n <= 0 {
		return "", oops.Code("TOKEN_INVALID_LENGTH").With("length", n).Errorf("token length must be positive")
	}

	out := make([]byte, 0, n)
	buf := make([]byte, n+n/4)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", oops.Code("TOKEN_GENERATE_FAILED").
				With("operation", "crypto/rand.Read").
				With("requested_bytes", len(buf)).
				Wrap(err)
		}
		for _, b := range buf {
			if int(b) >= rejectionLimit {
				continue
			}
			out = append(out, TokenAlphabet[int(b)%len(TokenAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// uniqueRandomString draws strings until exists reports one unused, giving up
// after attempts draws.
func uniqueRandomString(ctx context.Context, length, attempts int, exists func(context.Context, string) (bool, error)) (string, error) {
	if attempts < 1 {
		attempts = 1
	}

	var result string
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(time.Millisecond)) //nolint:gosec // attempts >= 1
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		candidate, err := RandomString(length)
		if err != nil {
			return err
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return oops.Code("TOKEN_LOOKUP_FAILED").Wrap(err)
		}
		if taken {
			return retry.RetryableError(errTokenTaken)
		}
		result = candidate
		return nil
	})
	if errors.Is(err, errTokenTaken) {
		return "", oops.Code("AUTH_TOKEN_EXHAUSTED").
			With("attempts", attempts).
			Wrap(err)
	}
	if err != nil {
		return "", err //nolint:wrapcheck // already carries an oops code
	}
	return result, nil
}

// TokenLookup reports whether a session token is already in use.
type TokenLookup interface {
	TokenExists(ctx context.Context, token string) (bool, error)
}

// TokenIssuer generates collision-checked session tokens and computes
// session expiry.
type TokenIssuer struct {
	lookup          TokenLookup
	defaultLifetime time.Duration
	attempts        int
}

// NewTokenIssuer creates a TokenIssuer. A non-positive lifetime falls back to
// DefaultSessionLifetime.
func NewTokenIssuer(lookup TokenLookup, defaultLifetime time.Duration) (*TokenIssuer, error) {
	if lookup == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("token lookup is required")
	}
	if defaultLifetime <= 0 {
		defaultLifetime = DefaultSessionLifetime
	}
	return &TokenIssuer{
		lookup:          lookup,
		defaultLifetime: defaultLifetime,
		attempts:        DefaultTokenAttempts,
	}, nil
}

// DefaultLifetime returns the lifetime used when no duration is requested.
func (i *TokenIssuer) DefaultLifetime() time.Duration {
	return i.defaultLifetime
}

// GenerateToken returns a TokenLength token not held by any session.
func (i *TokenIssuer) GenerateToken(ctx context.Context) (string, error) {
	return uniqueRandomString(ctx, TokenLength, i.attempts, i.lookup.TokenExists)
}

// ComputeExpiry returns now+requested when requested is positive, otherwise
// now plus the default lifetime. Expiry has whole-second precision.
func (i *TokenIssuer) ComputeExpiry(now time.Time, requested time.Duration) time.Time {
	lifetime := i.defaultLifetime
	if requested > 0 {
		lifetime = requested
	}
	return time.Unix(now.Add(lifetime).Unix(), 0)
}
