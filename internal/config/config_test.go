// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurweb/aurweb/pkg/errutil"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("AUR_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DATABASE_URL", "")
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(newFlags(t, "--passwd-min-len=8"), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 7200, cfg.Options.LoginTimeout)
	assert.Equal(t, 2*time.Hour, cfg.Options.LoginLifetime())
	assert.Equal(t, 30*24*time.Hour, cfg.Options.PersistentLifetime())
	assert.Equal(t, 3, cfg.Options.UsernameMinLen)
	assert.Equal(t, 16, cfg.Options.UsernameMaxLen)
	assert.Equal(t, 8, cfg.Options.PasswdMinLen)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
database:
  url: postgres://aur@db/aurweb
server:
  addr: 127.0.0.1:8000
  trusted_proxies: [10.0.0.0/8]
  secure_cookies: true
options:
  login_timeout: 600
  passwd_min_len: 12
`)

	cfg, err := Load(newFlags(t), path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://aur@db/aurweb", cfg.Database.URL)
	assert.Equal(t, "127.0.0.1:8000", cfg.Server.Addr)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Server.TrustedProxies)
	assert.True(t, cfg.Server.SecureCookies)
	assert.Equal(t, 600, cfg.Options.LoginTimeout)
	assert.Equal(t, 12, cfg.Options.PasswdMinLen)
	assert.Equal(t, 2592000, cfg.Options.PersistentCookieTimeout)
}

func TestLoadSetFlagsOverrideFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "options:\n  passwd_min_len: 12\n  login_timeout: 600\n")

	cfg, err := Load(newFlags(t, "--login-timeout=60"), path)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Options.LoginTimeout)
	assert.Equal(t, 12, cfg.Options.PasswdMinLen)
}

func TestLoadUsesXDGConfigFile(t *testing.T) {
	isolate(t)
	dir := os.Getenv("XDG_CONFIG_HOME")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "aurweb"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aurweb", "config.yaml"),
		[]byte("options:\n  passwd_min_len: 10\n"), 0o600))

	cfg, err := Load(newFlags(t), "")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Options.PasswdMinLen)
}

func TestLoadDatabaseURLFallsBackToEnv(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "postgres://env@db/aurweb")

	cfg, err := Load(newFlags(t, "--passwd-min-len=8"), "")
	require.NoError(t, err)
	assert.Equal(t, "postgres://env@db/aurweb", cfg.Database.URL)

	cfg, err = Load(newFlags(t, "--passwd-min-len=8", "--database-url=postgres://flag@db/aurweb"), "")
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag@db/aurweb", cfg.Database.URL)
}

func TestValidateRequiresPasswdMinLen(t *testing.T) {
	isolate(t)

	cfg, err := Load(newFlags(t), "")
	require.NoError(t, err)

	err = cfg.Validate()
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "key", "options.passwd_min_len")
}

func TestLoadMissingFile(t *testing.T) {
	isolate(t)

	_, err := Load(newFlags(t), filepath.Join(t.TempDir(), "absent.yaml"))
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{Addr: ":8080"},
			Options: Options{
				LoginTimeout:            7200,
				PersistentCookieTimeout: 2592000,
				PasswdMinLen:            8,
				UsernameMinLen:          3,
				UsernameMaxLen:          16,
				BcryptCost:              10,
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"login timeout", func(c *Config) { c.Options.LoginTimeout = 0 }, "options.login_timeout"},
		{"persistent timeout", func(c *Config) { c.Options.PersistentCookieTimeout = -1 }, "options.persistent_cookie_timeout"},
		{"username bounds", func(c *Config) { c.Options.UsernameMaxLen = 2 }, "options.username_max_len"},
		{"bcrypt cost", func(c *Config) { c.Options.BcryptCost = 99 }, "options.bcrypt_cost"},
		{"addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			errutil.AssertErrorContext(t, err, "key", tt.key)
		})
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())
}

func TestExampleConfigIsValid(t *testing.T) {
	isolate(t)

	cfg, err := Load(newFlags(t), filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Server.SecureCookies)
	assert.Equal(t, 12, cfg.Options.BcryptCost)
}
