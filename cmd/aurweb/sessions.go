// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package main

import (
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewSessionsCmd creates the sessions command.
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Administer login sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete sessions that have expired",
		Long: `Expired sessions are already rejected when presented; prune removes
their rows.`,
		Args: cobra.NoArgs,
		RunE: withRepositories(runSessionsPrune),
	})
	return cmd
}

func runSessionsPrune(cmd *cobra.Command, repos *repositories, _ []string) error {
	deleted, err := repos.Sessions.DeleteExpired(cmd.Context(), time.Now())
	if err != nil {
		return oops.Code("SESSIONS_PRUNE_FAILED").Wrap(err)
	}
	cmd.Printf("Deleted %d expired sessions\n", deleted)
	return nil
}
