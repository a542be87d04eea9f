// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package errutil_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurweb/aurweb/pkg/errutil"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogError(t *testing.T) {
	t.Run("oops error carries code and context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		err := oops.Code("AUTH_LOGIN_FAILED").
			With("user_id", "01J").
			Errorf("session store unavailable")
		errutil.LogError(logger, "login failed", err)

		entry := decode(t, &buf)
		assert.Equal(t, "ERROR", entry["level"])
		assert.Equal(t, "login failed", entry["msg"])
		assert.Equal(t, "AUTH_LOGIN_FAILED", entry["code"])
		assert.Equal(t, map[string]any{"user_id": "01J"}, entry["context"])
	})

	t.Run("standard error logs its message", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		errutil.LogError(logger, "login failed", errors.New("connection reset"))

		entry := decode(t, &buf)
		assert.Contains(t, entry["error"], "connection reset")
		assert.NotContains(t, entry, "code")
	})
}

func TestLogWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogWarn(logger, "failed to record login", oops.Code("DB").Errorf("timeout"))

	entry := decode(t, &buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "DB", entry["code"])
}

func TestCode(t *testing.T) {
	assert.Equal(t, "RESET_MISSING_FIELD", errutil.Code(oops.Code("RESET_MISSING_FIELD").Errorf("x")))
	assert.Empty(t, errutil.Code(errors.New("plain")))
	assert.Empty(t, errutil.Code(oops.Errorf("no code")))
}
