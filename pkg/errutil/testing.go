// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode fails t unless err is an oops error whose deepest code is
// code. Handlers map these codes to responses, so tests pin them.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	_, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	assert.Equal(t, code, Code(err))
}

// AssertErrorContext fails t unless the merged oops context of err maps key
// to value, e.g. the ip_address a ban failure was raised for.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	got, found := oopsErr.Context()[key]
	require.True(t, found, "context has no %q key", key)
	assert.Equal(t, value, got)
}
