// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package auth

import (
	"context"
	"log/slog"
)

// Notifier delivers account mail. Delivery transport is up to the
// implementation.
type Notifier interface {
	// SendResetKey tells the user how to set a new password with their
	// current reset key.
	SendResetKey(ctx context.Context, user *User) error

	// SendWelcome greets a newly registered user and carries their initial
	// reset key.
	SendWelcome(ctx context.Context, user *User) error
}

// LogNotifier writes notifications to a logger instead of sending mail.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// SendResetKey implements Notifier.
func (n *LogNotifier) SendResetKey(ctx context.Context, user *User) error {
	n.logger.InfoContext(ctx, "password reset requested",
		"user_id", user.ID.String(),
		"username", user.Username,
		"email", user.Email,
		"reset_key", user.ResetKey,
	)
	return nil
}

// SendWelcome implements Notifier.
func (n *LogNotifier) SendWelcome(ctx context.Context, user *User) error {
	n.logger.InfoContext(ctx, "account registered",
		"user_id", user.ID.String(),
		"username", user.Username,
		"email", user.Email,
		"reset_key", user.ResetKey,
	)
	return nil
}
