// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package auth

import (
	"crypto/md5" //nolint:gosec // G501: legacy digests are only compared, never produced
	"crypto/subtle"
	"encoding/hex"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// ErrPasswordTooLong is returned when a password exceeds MaxPasswordBytes.
var ErrPasswordTooLong = oops.Code("AUTH_PASSWORD_TOO_LONG").
	With("max_bytes", MaxPasswordBytes).
	Errorf("password cannot be longer than %d bytes", MaxPasswordBytes)

// Verification is the outcome of a password check.
type Verification int

// Verification outcomes.
const (
	// VerifyMismatch means the password did not match, or no usable digest exists.
	VerifyMismatch Verification = iota
	// VerifyMatch means the password matched the adaptive digest.
	VerifyMatch
	// VerifyLegacyMatch means the password matched a legacy MD5 digest and
	// must be migrated.
	VerifyLegacyMatch
)

// OK reports whether the password matched in either scheme.
func (v Verification) OK() bool {
	return v == VerifyMatch || v == VerifyLegacyMatch
}

func (v Verification) String() string {
	switch v {
	case VerifyMatch:
		return "match"
	case VerifyLegacyMatch:
		return "legacy_match"
	default:
		return "mismatch"
	}
}

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted adaptive digest of the password.
	Hash(password string) (string, error)

	// Verify checks the password against digest, falling back to
	// MD5(legacySalt || password) when legacySalt is non-empty.
	// Malformed digests are reported as VerifyMismatch.
	Verify(password, digest, legacySalt string) Verification

	// IsLegacy reports whether digest was produced by the legacy scheme.
	IsLegacy(digest string) bool

	// NeedsUpgrade returns true if the digest should be re-hashed after a
	// successful verification.
	NeedsUpgrade(digest string) bool
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher. Costs outside bcrypt's accepted
// range fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Cost returns the work factor used for new digests.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash produces a bcrypt digest of the password with a fresh salt.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").With("cost", h.cost).Wrap(err)
	}
	return string(digest), nil
}

// Verify checks the password against a bcrypt digest, then against a legacy
// MD5 digest when a legacy salt is present.
func (h *BcryptHasher) Verify(password, digest, legacySalt string) Verification {
	if digest == "" {
		return VerifyMismatch
	}

	if err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)); err == nil {
		return VerifyMatch
	}

	if legacySalt == "" {
		return VerifyMismatch
	}

	if subtle.ConstantTimeCompare([]byte(LegacyDigest(legacySalt, password)), []byte(digest)) == 1 {
		return VerifyLegacyMatch
	}
	return VerifyMismatch
}

// IsLegacy reports whether digest is not a bcrypt digest.
func (h *BcryptHasher) IsLegacy(digest string) bool {
	_, err := bcrypt.Cost([]byte(digest))
	return err != nil
}

// NeedsUpgrade returns true for non-bcrypt digests and for bcrypt digests
// produced with a lower cost than the hasher's.
func (h *BcryptHasher) NeedsUpgrade(digest string) bool {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return true
	}
	return cost < h.cost
}

// LegacyDigest computes the predecessor system's hex MD5(salt || password).
func LegacyDigest(salt, password string) string {
	sum := md5.Sum([]byte(salt + password)) //nolint:gosec // G401: legacy format
	return hex.EncodeToString(sum[:])
}

// Compile-time interface check.
var _ PasswordHasher = (*BcryptHasher)(nil)
