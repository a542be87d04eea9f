// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write collides with a uniqueness constraint.
var ErrConflict = errors.New("conflict")

// ErrDataIntegrity is returned when a stored session references a user that
// no longer exists. It is never folded into an anonymous principal.
var ErrDataIntegrity = errors.New("data integrity violation")
