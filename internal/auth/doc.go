// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

// Package auth implements the aurweb session-authentication core.
//
// # Domain Types
//
//   - User - an account; create with NewUser and a UserOptions value
//   - Session - the single live session owned by a user
//   - Ban - an origin address that may not log in or register
//   - Principal - the identity attached to one request
//
// # Services
//
//   - Authenticator - password verification and legacy MD5 migration
//   - TokenIssuer - session token generation and expiry computation
//   - Gate - login eligibility and session creation, renewal and rotation
//   - Resolver - per-request identity resolution and logout
//   - ResetService - reset key issuance and password reset
//   - RegistrationService - account creation without a password
//
// Every login rejection (ban, suspension, unknown user, bad password) is
// reported to callers as the same unsuccessful LoginResult so that account
// state is never revealed. Storage failures are returned as errors.
package auth
