// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

// Package config loads aurweb's settings from flag defaults, a YAML file and
// explicitly set flags, in that order of precedence.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/aurweb/aurweb/internal/xdg"
)

// Config is the complete aurweb configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Options  Options        `koanf:"options"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	Addr           string   `koanf:"addr"`
	MetricsAddr    string   `koanf:"metrics_addr"`
	TrustedProxies []string `koanf:"trusted_proxies"`
	SecureCookies  bool     `koanf:"secure_cookies"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Options mirrors the [options] section of aurweb's config. Timeouts are
// in seconds.
type Options struct {
	LoginTimeout            int `koanf:"login_timeout"`
	PersistentCookieTimeout int `koanf:"persistent_cookie_timeout"`
	PasswdMinLen            int `koanf:"passwd_min_len"`
	UsernameMinLen          int `koanf:"username_min_len"`
	UsernameMaxLen          int `koanf:"username_max_len"`
	BcryptCost              int `koanf:"bcrypt_cost"`
}

// LoginLifetime returns options.login_timeout as a duration.
func (o Options) LoginLifetime() time.Duration {
	return time.Duration(o.LoginTimeout) * time.Second
}

// PersistentLifetime returns options.persistent_cookie_timeout as a duration.
func (o Options) PersistentLifetime() time.Duration {
	return time.Duration(o.PersistentCookieTimeout) * time.Second
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"database-url":              "database.url",
	"addr":                      "server.addr",
	"metrics-addr":              "server.metrics_addr",
	"trusted-proxies":           "server.trusted_proxies",
	"secure-cookies":            "server.secure_cookies",
	"log-format":                "log.format",
	"log-level":                 "log.level",
	"login-timeout":             "options.login_timeout",
	"persistent-cookie-timeout": "options.persistent_cookie_timeout",
	"passwd-min-len":            "options.passwd_min_len",
	"username-min-len":          "options.username_min_len",
	"username-max-len":          "options.username_max_len",
	"bcrypt-cost":               "options.bcrypt_cost",
}

// RegisterFlags defines every configuration flag with its default on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("database-url", "", "PostgreSQL connection URL (default $DATABASE_URL)")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.String("metrics-addr", ":9100", "metrics and health listen address, empty to disable")
	fs.StringSlice("trusted-proxies", nil, "proxy networks trusted for X-Forwarded-For")
	fs.Bool("secure-cookies", false, "mark session cookies Secure")
	fs.String("log-format", "json", "log format (json or text)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.Int("login-timeout", 7200, "session lifetime in seconds")
	fs.Int("persistent-cookie-timeout", 2592000, "remembered session lifetime in seconds")
	fs.Int("passwd-min-len", 0, "minimum password length (required)")
	fs.Int("username-min-len", 3, "minimum username length")
	fs.Int("username-max-len", 16, "maximum username length")
	fs.Int("bcrypt-cost", bcrypt.DefaultCost, "bcrypt work factor")
}

// Load reads the configuration. An empty path uses the XDG config file when
// it exists; a non-empty path must exist. fs must have been passed to
// RegisterFlags and parsed. Load does not validate; call Validate before
// serving.
func Load(fs *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		if candidate := xdg.ConfigFile(); xdg.Exists(candidate) {
			path = candidate
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
	}

	provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	return &cfg, nil
}

// Validate reports the first missing or out-of-range setting needed to serve
// logins.
func (c *Config) Validate() error {
	o := c.Options
	switch {
	case o.PasswdMinLen <= 0:
		return invalid("options.passwd_min_len", "must be set to a positive value")
	case o.LoginTimeout <= 0:
		return invalid("options.login_timeout", "must be positive")
	case o.PersistentCookieTimeout <= 0:
		return invalid("options.persistent_cookie_timeout", "must be positive")
	case o.UsernameMinLen <= 0:
		return invalid("options.username_min_len", "must be positive")
	case o.UsernameMaxLen < o.UsernameMinLen:
		return invalid("options.username_max_len", "must not be less than username_min_len")
	case o.BcryptCost < bcrypt.MinCost || o.BcryptCost > bcrypt.MaxCost:
		return invalid("options.bcrypt_cost", "out of range")
	case c.Server.Addr == "":
		return invalid("server.addr", "is required")
	}
	return nil
}

func invalid(key, reason string) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf("%s %s", key, reason)
}
