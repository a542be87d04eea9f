// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/aurweb/aurweb/internal/store"
)

// schemaMigrator is the part of *store.Migrator the commands use.
type schemaMigrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Force(version int) error
	Pending() ([]uint, error)
	Close() error
}

// newMigrator is replaced in tests.
var newMigrator = func(databaseURL string) (schemaMigrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate command and its subcommands.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, roll back or inspect the embedded database migrations.`,
		RunE:  withMigrator(runMigrateUp),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE:  withMigrator(runMigrateUp),
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration, dropping all account data",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m schemaMigrator, _ []string) error {
			yes, _ := cmd.Flags().GetBool("yes") //nolint:errcheck // flag registered below
			return runMigrateDown(cmd, m, yes)
		}),
	}
	down.Flags().Bool("yes", false, "confirm dropping all data")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE:  withMigrator(runMigrateVersion),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it",
		Long: `Force sets the recorded schema version and clears the dirty flag.
Use it to recover after a failed migration has been fixed by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: withMigrator(runMigrateForce),
	})

	return cmd
}

func withMigrator(run func(cmd *cobra.Command, m schemaMigrator, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return oops.Code("CONFIG_INVALID").Errorf("database URL is required (--database-url or DATABASE_URL)")
		}
		m, err := newMigrator(cfg.Database.URL)
		if err != nil {
			return err //nolint:wrapcheck // migrator errors carry codes
		}
		defer func() {
			if closeErr := m.Close(); closeErr != nil {
				cmd.PrintErrf("warning: %v\n", closeErr)
			}
		}()
		return run(cmd, m, args)
	}
}

func runMigrateUp(cmd *cobra.Command, m schemaMigrator, _ []string) error {
	pending, err := m.Pending()
	if err != nil {
		return err //nolint:wrapcheck // migrator errors carry codes
	}
	if len(pending) == 0 {
		cmd.Println("Schema is up to date")
		return nil
	}
	if err := m.Up(); err != nil {
		return err //nolint:wrapcheck // migrator errors carry codes
	}
	for _, v := range pending {
		name, _ := store.MigrationName(v) //nolint:errcheck // name is cosmetic
		cmd.Printf("Applied %s\n", displayName(v, name))
	}
	return nil
}

func runMigrateDown(cmd *cobra.Command, m schemaMigrator, confirmed bool) error {
	if !confirmed {
		return oops.Code("MIGRATION_CONFIRM_REQUIRED").Errorf("down drops all account data; rerun with --yes")
	}
	if err := m.Down(); err != nil {
		return err //nolint:wrapcheck // migrator errors carry codes
	}
	cmd.Println("Rolled back all migrations")
	return nil
}

func runMigrateVersion(cmd *cobra.Command, m schemaMigrator, _ []string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err //nolint:wrapcheck // migrator errors carry codes
	}
	pending, err := m.Pending()
	if err != nil {
		return err //nolint:wrapcheck // migrator errors carry codes
	}

	status := "clean"
	if dirty {
		status = "dirty"
	}
	cmd.Printf("Version: %d (%s)\n", version, status)
	cmd.Printf("Pending: %d\n", len(pending))
	return nil
}

func runMigrateForce(cmd *cobra.Command, m schemaMigrator, args []string) error {
	version, err := parseForceVersion(args[0])
	if err != nil {
		return err
	}
	if err := m.Force(version); err != nil {
		return err //nolint:wrapcheck // migrator errors carry codes
	}
	cmd.Printf("Forced version %d\n", version)
	return nil
}

// parseForceVersion reads the leading integer of arg.
func parseForceVersion(arg string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(strings.TrimSpace(arg), "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", arg).Wrap(err)
	}
	return version, nil
}

func displayName(version uint, name string) string {
	if name == "" {
		return fmt.Sprintf("%06d", version)
	}
	return name
}
