//go:build integration

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aurweb/aurweb/internal/store"
)

func TestMigratorFullCycle(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("aurweb"),
		postgres.WithUsername("aur"),
		postgres.WithPassword("aur"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrator, err := store.NewMigrator(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = migrator.Close() })

	pending, err := migrator.Pending()
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3}, pending)

	require.NoError(t, migrator.Up())
	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
	assert.False(t, dirty)

	pool, err := store.Open(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, store.Readiness(pool)(ctx))

	var tables int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name IN ('users', 'sessions', 'bans')`).Scan(&tables))
	assert.Equal(t, 3, tables)

	require.NoError(t, migrator.Steps(-1))
	version, _, err = migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	require.NoError(t, migrator.Down())
	version, _, err = migrator.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
}
