// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/aurweb/aurweb/internal/config"
)

// NewRootCmd creates the root command for the aurweb CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aurweb",
		Short: "aurweb - AUR account and session service",
		Long: `aurweb serves AUR account logins, sessions, password resets and
registrations, and administers bans and account suspension.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (default: $AUR_CONFIG or XDG_CONFIG_HOME/aurweb/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSessionsCmd())
	cmd.AddCommand(NewBanCmd())
	cmd.AddCommand(NewUserCmd())

	return cmd
}

// loadConfig reads the layered configuration for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err //nolint:wrapcheck // flag is always registered
	}
	return config.Load(cmd.Flags(), path)
}
