// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/aurweb/aurweb/internal/auth"
)

// BanRepository implements auth.BanRepository using PostgreSQL.
type BanRepository struct {
	db DB
}

// NewBanRepository creates a new BanRepository.
func NewBanRepository(db DB) *BanRepository {
	return &BanRepository{db: db}
}

// GetByIP retrieves the ban for an origin address.
func (r *BanRepository) GetByIP(ctx context.Context, ipAddress string) (*auth.Ban, error) {
	var ban auth.Ban
	err := r.db.QueryRow(ctx, `
		SELECT ip_address, ban_ts, expires_at FROM bans WHERE ip_address = $1
	`, ipAddress).Scan(&ban.IPAddress, &ban.BanTS, &ban.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("BAN_NOT_FOUND").
			With("ip_address", ipAddress).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("BAN_GET_FAILED").
			With("operation", "get ban by ip").
			With("ip_address", ipAddress).
			Wrap(err)
	}
	return &ban, nil
}

// Create stores a ban, replacing any existing ban for the address.
func (r *BanRepository) Create(ctx context.Context, ban *auth.Ban) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bans (ip_address, ban_ts, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (ip_address) DO UPDATE SET ban_ts = EXCLUDED.ban_ts, expires_at = EXCLUDED.expires_at
	`, ban.IPAddress, ban.BanTS, ban.ExpiresAt)
	if err != nil {
		return oops.Code("BAN_CREATE_FAILED").
			With("operation", "upsert ban").
			With("ip_address", ban.IPAddress).
			Wrap(err)
	}
	return nil
}

// Delete removes the ban for an origin address.
func (r *BanRepository) Delete(ctx context.Context, ipAddress string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM bans WHERE ip_address = $1`, ipAddress)
	if err != nil {
		return oops.Code("BAN_DELETE_FAILED").
			With("operation", "delete ban").
			With("ip_address", ipAddress).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("BAN_NOT_FOUND").
			With("ip_address", ipAddress).
			Wrap(auth.ErrNotFound)
	}
	return nil
}
