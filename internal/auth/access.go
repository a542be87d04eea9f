// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package auth

// AccessDecision is the result of a route guard check.
type AccessDecision int

const (
	Allow AccessDecision = iota
	DenyAuthRequired
	DenyAlreadyAuthenticated
)

func (d AccessDecision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyAuthRequired:
		return "auth_required"
	case DenyAlreadyAuthenticated:
		return "already_authenticated"
	default:
		return "unknown"
	}
}

// CheckAccess decides whether a request may proceed. required states whether
// the route needs an authenticated (true) or anonymous (false) caller.
func CheckAccess(isAuthenticated, required bool) AccessDecision {
	switch {
	case isAuthenticated == required:
		return Allow
	case required:
		return DenyAuthRequired
	default:
		return DenyAlreadyAuthenticated
	}
}
