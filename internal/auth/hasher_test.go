// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aurweb/aurweb/internal/auth"
	"github.com/aurweb/aurweb/pkg/errutil"
)

func TestBcryptHasher_Hash(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	t.Run("produces bcrypt digest", func(t *testing.T) {
		digest, err := hasher.Hash("hunter22")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(digest, "$2a$"))
	})

	t.Run("same password produces different digests", func(t *testing.T) {
		d1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		d2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, d1, d2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.ErrorIs(t, err, auth.ErrEmptyPassword)
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})

	t.Run("accepts the longest bcrypt password", func(t *testing.T) {
		password := strings.Repeat("a", auth.MaxPasswordBytes)
		digest, err := hasher.Hash(password)
		require.NoError(t, err)
		assert.Equal(t, auth.VerifyMatch, hasher.Verify(password, digest, ""))
	})

	t.Run("rejects longer passwords", func(t *testing.T) {
		_, err := hasher.Hash(strings.Repeat("a", auth.MaxPasswordBytes+1))
		require.ErrorIs(t, err, auth.ErrPasswordTooLong)
		errutil.AssertErrorCode(t, err, "AUTH_PASSWORD_TOO_LONG")
	})
}

func TestNewBcryptHasher_Cost(t *testing.T) {
	assert.Equal(t, 12, auth.NewBcryptHasher(12).Cost())
	assert.Equal(t, bcrypt.DefaultCost, auth.NewBcryptHasher(0).Cost())
	assert.Equal(t, bcrypt.DefaultCost, auth.NewBcryptHasher(bcrypt.MaxCost+1).Cost())
}

func TestBcryptHasher_Verify(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	digest, err := hasher.Hash("correct-horse")
	require.NoError(t, err)
	legacy := auth.LegacyDigest("NaCl", "correct-horse")

	tests := []struct {
		name     string
		password string
		digest   string
		salt     string
		want     auth.Verification
	}{
		{"bcrypt match", "correct-horse", digest, "", auth.VerifyMatch},
		{"bcrypt mismatch", "wrong", digest, "", auth.VerifyMismatch},
		{"bcrypt match ignores salt", "correct-horse", digest, "NaCl", auth.VerifyMatch},
		{"legacy match", "correct-horse", legacy, "NaCl", auth.VerifyLegacyMatch},
		{"legacy mismatch", "wrong", legacy, "NaCl", auth.VerifyMismatch},
		{"legacy digest without salt", "correct-horse", legacy, "", auth.VerifyMismatch},
		{"legacy digest with wrong salt", "correct-horse", legacy, "salt", auth.VerifyMismatch},
		{"empty digest", "correct-horse", "", "", auth.VerifyMismatch},
		{"empty digest with salt", "", "", "NaCl", auth.VerifyMismatch},
		{"malformed digest", "correct-horse", "$2a$garbage", "", auth.VerifyMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hasher.Verify(tt.password, tt.digest, tt.salt)
			assert.Equal(t, tt.want, got, "got %s", got)
		})
	}
}

func TestVerification_OK(t *testing.T) {
	assert.True(t, auth.VerifyMatch.OK())
	assert.True(t, auth.VerifyLegacyMatch.OK())
	assert.False(t, auth.VerifyMismatch.OK())
	assert.Equal(t, "legacy_match", auth.VerifyLegacyMatch.String())
}

func TestBcryptHasher_NeedsUpgrade(t *testing.T) {
	low := auth.NewBcryptHasher(bcrypt.MinCost)
	high := auth.NewBcryptHasher(bcrypt.MinCost + 1)

	digest, err := low.Hash("pw")
	require.NoError(t, err)

	assert.False(t, low.NeedsUpgrade(digest))
	assert.True(t, high.NeedsUpgrade(digest))
	assert.True(t, low.NeedsUpgrade(auth.LegacyDigest("s", "pw")))
}

func TestBcryptHasher_IsLegacy(t *testing.T) {
	h := auth.NewBcryptHasher(bcrypt.MinCost)

	digest, err := h.Hash("pw")
	require.NoError(t, err)

	assert.False(t, h.IsLegacy(digest))
	assert.True(t, h.IsLegacy(auth.LegacyDigest("s", "pw")))
}

func TestLegacyDigest(t *testing.T) {
	// md5("saltpassword")
	assert.Equal(t, "67a1e09bb1f83f5007dc119c14d663aa", auth.LegacyDigest("salt", "password"))
}
