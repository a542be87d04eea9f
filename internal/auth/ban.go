// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package auth

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Ban blocks logins and registrations from an origin address.
// Bans are managed administratively; the login path only reads them.
type Ban struct {
	IPAddress string
	BanTS     time.Time
	ExpiresAt *time.Time // nil for a permanent ban
}

// CanonicalAddress returns ip in the one textual form bans are keyed by:
// lower-case, zero-compressed, zone stripped, IPv4-mapped IPv6 unmapped.
// ok is false when ip is not an IP address.
func CanonicalAddress(ip string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return "", false
	}
	return addr.WithZone("").Unmap().String(), true
}

// NewBan creates a validated Ban starting at now. The address is stored in
// canonical form.
func NewBan(ipAddress string, now time.Time, expiresAt *time.Time) (*Ban, error) {
	canonical, ok := CanonicalAddress(ipAddress)
	if !ok {
		return nil, oops.Code("BAN_INVALID_ADDRESS").
			With("ip_address", ipAddress).
			Errorf("ban requires a valid IP address")
	}
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, oops.Code("BAN_INVALID_EXPIRY").
			With("expires_at", *expiresAt).
			Errorf("ban expiry must be in the future")
	}
	return &Ban{IPAddress: canonical, BanTS: now, ExpiresAt: expiresAt}, nil
}

// IsActiveAt reports whether the ban is in force at t.
func (b *Ban) IsActiveAt(t time.Time) bool {
	return b.ExpiresAt == nil || t.Before(*b.ExpiresAt)
}

// BanRepository manages ban persistence.
type BanRepository interface {
	// GetByIP retrieves the ban for an origin address.
	GetByIP(ctx context.Context, ipAddress string) (*Ban, error)

	// Create stores a ban, replacing any existing ban for the address.
	Create(ctx context.Context, ban *Ban) error

	// Delete removes the ban for an origin address.
	Delete(ctx context.Context, ipAddress string) error
}

// isBanned reports whether an active ban exists for ipAddress at now.
func isBanned(ctx context.Context, bans BanRepository, ipAddress string, now time.Time) (bool, error) {
	if ipAddress == "" {
		return false, nil
	}
	if canonical, ok := CanonicalAddress(ipAddress); ok {
		ipAddress = canonical
	}
	ban, err := bans.GetByIP(ctx, ipAddress)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("BAN_LOOKUP_FAILED").With("ip_address", ipAddress).Wrap(err)
	}
	return ban.IsActiveAt(now), nil
}
