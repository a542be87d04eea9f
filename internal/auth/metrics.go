// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Login outcome labels.
const (
	OutcomeSuccess        = "success"
	OutcomeBanned         = "banned"
	OutcomeSuspended      = "suspended"
	OutcomeBadCredentials = "bad_credentials"
	OutcomeUnknownUser    = "unknown_user"
	OutcomeError          = "error"
)

// Session issuance labels.
const (
	SessionCreated = "created"
	SessionRenewed = "renewed"
	SessionRotated = "rotated"
)

// LoginAttempts counts login attempts by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var LoginAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "aurweb_login_attempts_total",
		Help: "Total number of login attempts by outcome",
	},
	[]string{"outcome"},
)

// SessionsIssued counts sessions handed out by the login gate.
var SessionsIssued = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "aurweb_sessions_issued_total",
		Help: "Total number of sessions issued by kind (created, renewed, rotated)",
	},
	[]string{"kind"},
)

// PasswordMigrations counts digests upgraded after a successful login.
var PasswordMigrations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "aurweb_password_migrations_total",
		Help: "Total number of password digests re-hashed after login by source scheme",
	},
	[]string{"from"},
)

// RegisterMetrics registers auth metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(LoginAttempts)
	reg.MustRegister(SessionsIssued)
	reg.MustRegister(PasswordMigrations)
}

func recordLoginAttempt(outcome string) {
	LoginAttempts.WithLabelValues(outcome).Inc()
}

func recordSessionIssued(kind string) {
	SessionsIssued.WithLabelValues(kind).Inc()
}
