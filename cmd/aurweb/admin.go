// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"
)

// openRepositories is replaced in tests.
var openRepositories = openPostgres

// withRepositories loads configuration, opens the database and runs fn.
func withRepositories(fn func(cmd *cobra.Command, repos *repositories, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		repos, err := openRepositories(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		if repos.Close != nil {
			defer repos.Close()
		}
		return fn(cmd, repos, args)
	}
}
