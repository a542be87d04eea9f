// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package main

import (
	"errors"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/aurweb/aurweb/internal/auth"
)

// NewBanCmd creates the ban command.
func NewBanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ban",
		Short: "Administer origin address bans",
	}

	add := &cobra.Command{
		Use:   "add IP",
		Short: "Ban an address from logging in and registering",
		Args:  cobra.ExactArgs(1),
		RunE: withRepositories(func(cmd *cobra.Command, repos *repositories, args []string) error {
			duration, _ := cmd.Flags().GetDuration("duration") //nolint:errcheck // flag registered below
			return runBanAdd(cmd, repos, args[0], duration, time.Now())
		}),
	}
	add.Flags().Duration("duration", 0, "ban length, 0 for permanent")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove IP",
		Short: "Lift the ban on an address",
		Args:  cobra.ExactArgs(1),
		RunE: withRepositories(func(cmd *cobra.Command, repos *repositories, args []string) error {
			return runBanRemove(cmd, repos, args[0])
		}),
	})

	return cmd
}

func runBanAdd(cmd *cobra.Command, repos *repositories, ip string, duration time.Duration, now time.Time) error {
	if duration < 0 {
		return oops.Code("BAN_INVALID_EXPIRY").With("duration", duration).Errorf("duration must not be negative")
	}
	var expiresAt *time.Time
	if duration > 0 {
		t := now.Add(duration)
		expiresAt = &t
	}
	ban, err := auth.NewBan(ip, now, expiresAt)
	if err != nil {
		return err //nolint:wrapcheck // carries BAN_* codes
	}
	if err := repos.Bans.Create(cmd.Context(), ban); err != nil {
		return oops.Code("BAN_ADD_FAILED").With("ip_address", ban.IPAddress).Wrap(err)
	}
	if expiresAt == nil {
		cmd.Printf("Banned %s permanently\n", ban.IPAddress)
	} else {
		cmd.Printf("Banned %s until %s\n", ban.IPAddress, expiresAt.UTC().Format(time.RFC3339))
	}
	return nil
}

func runBanRemove(cmd *cobra.Command, repos *repositories, ip string) error {
	canonical, ok := auth.CanonicalAddress(ip)
	if !ok {
		return oops.Code("BAN_INVALID_ADDRESS").With("ip_address", ip).Errorf("%s is not an IP address", ip)
	}
	ip = canonical
	if err := repos.Bans.Delete(cmd.Context(), ip); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return oops.Code("BAN_NOT_FOUND").With("ip_address", ip).Errorf("%s is not banned", ip)
		}
		return oops.Code("BAN_REMOVE_FAILED").With("ip_address", ip).Wrap(err)
	}
	cmd.Printf("Removed ban on %s\n", ip)
	return nil
}
