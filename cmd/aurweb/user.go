// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package main

import (
	"errors"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/aurweb/aurweb/internal/auth"
)

// NewUserCmd creates the user command.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Administer accounts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "suspend USERNAME",
		Short: "Suspend an account and end its session",
		Args:  cobra.ExactArgs(1),
		RunE: withRepositories(func(cmd *cobra.Command, repos *repositories, args []string) error {
			return runSetSuspended(cmd, repos, args[0], true)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "unsuspend USERNAME",
		Short: "Lift an account suspension",
		Args:  cobra.ExactArgs(1),
		RunE: withRepositories(func(cmd *cobra.Command, repos *repositories, args []string) error {
			return runSetSuspended(cmd, repos, args[0], false)
		}),
	})
	return cmd
}

func runSetSuspended(cmd *cobra.Command, repos *repositories, username string, suspended bool) error {
	ctx := cmd.Context()
	user, err := repos.Users.GetByUsername(ctx, username)
	if errors.Is(err, auth.ErrNotFound) {
		return oops.Code("USER_NOT_FOUND").With("username", username).Errorf("no such user %q", username)
	}
	if err != nil {
		return oops.Code("USER_LOOKUP_FAILED").With("username", username).Wrap(err)
	}

	if err := repos.Users.SetSuspended(ctx, user.ID, suspended); err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("username", username).Wrap(err)
	}
	if !suspended {
		cmd.Printf("Unsuspended %s\n", user.Username)
		return nil
	}

	if err := repos.Sessions.DeleteByUser(ctx, user.ID); err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("username", username).
			With("operation", "delete session").
			Wrap(err)
	}
	cmd.Printf("Suspended %s\n", user.Username)
	return nil
}
