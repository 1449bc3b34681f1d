// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

// Package config loads dailypuzzle configuration. Sources are layered in
// order: built-in defaults, an optional YAML file, DAILYPUZZLE_* environment
// variables, then command-line flags.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/dailypuzzle/dailypuzzle/internal/xdg"
)

// EnvPrefix prefixes environment overrides. DAILYPUZZLE_AUTH_SESSION_TTL
// sets auth.session_ttl: the first segment after the prefix is the section.
const EnvPrefix = "DAILYPUZZLE_"

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Rate limiter backends.
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// Mail providers.
const (
	MailConsole = "console"
	MailResend  = "resend"
)

// Config is the complete application configuration.
type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	Database  DatabaseConfig  `koanf:"database"`
	Store     StoreConfig     `koanf:"store"`
	Auth      AuthConfig      `koanf:"auth"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Mail      MailConfig      `koanf:"mail"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Log       LogConfig       `koanf:"log"`
}

// HTTPConfig configures the public listener.
type HTTPConfig struct {
	Addr         string `koanf:"addr"`
	BaseURL      string `koanf:"base_url"`
	CookieSecure bool   `koanf:"cookie_secure"`
	// TrustProxy makes the client IP come from X-Forwarded-For.
	TrustProxy bool `koanf:"trust_proxy"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL            string        `koanf:"url"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	ConnectRetries uint64        `koanf:"connect_retries"`
	// AutoMigrate applies pending migrations when serve starts.
	AutoMigrate bool `koanf:"auto_migrate"`
}

// StoreConfig selects the repository backend.
type StoreConfig struct {
	Backend string `koanf:"backend"`
}

// AuthConfig configures login credentials and sessions.
type AuthConfig struct {
	CredentialTTL   time.Duration `koanf:"credential_ttl"`
	SessionTTL      time.Duration `koanf:"session_ttl"`
	CodeLength      int           `koanf:"code_length"`
	MaxCodeAttempts int           `koanf:"max_code_attempts"`
	SweepInterval   time.Duration `koanf:"sweep_interval"`
	// AdminEmails is a comma-separated list of glob patterns.
	AdminEmails string `koanf:"admin_emails"`
}

// RateLimitConfig configures the login rate limiter.
type RateLimitConfig struct {
	Backend   string        `koanf:"backend"`
	Window    time.Duration `koanf:"window"`
	Max       int           `koanf:"max"`
	Capacity  int           `koanf:"capacity"`
	RedisAddr string        `koanf:"redis_addr"`
}

// MailConfig configures login email delivery.
type MailConfig struct {
	Provider     string `koanf:"provider"`
	From         string `koanf:"from"`
	ResendAPIKey string `koanf:"resend_api_key"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Defaults returns the built-in configuration as a flat koanf map.
func Defaults() map[string]any {
	return map[string]any{
		"http.addr":                ":8080",
		"http.base_url":            "http://localhost:8080",
		"http.cookie_secure":       false,
		"http.trust_proxy":         false,
		"database.url":             "",
		"database.connect_timeout": "5s",
		"database.connect_retries": 5,
		"database.auto_migrate":    true,
		"store.backend":            StorePostgres,
		"auth.credential_ttl":      "15m",
		"auth.session_ttl":         "720h",
		"auth.code_length":         6,
		"auth.max_code_attempts":   5,
		"auth.sweep_interval":      "1h",
		"auth.admin_emails":        "",
		"ratelimit.backend":        RateLimitMemory,
		"ratelimit.window":         "60s",
		"ratelimit.max":            5,
		"ratelimit.capacity":       1000,
		"ratelimit.redis_addr":     "",
		"mail.provider":            MailConsole,
		"mail.from":                "",
		"mail.resend_api_key":      "",
		"metrics.addr":             "127.0.0.1:9100",
		"log.format":               "json",
		"log.level":                "info",
	}
}

// flagKeys maps command-line flag names to config keys. Flags not listed
// are not configuration.
var flagKeys = map[string]string{
	"addr":          "http.addr",
	"base-url":      "http.base_url",
	"database-url":  "database.url",
	"store":         "store.backend",
	"metrics-addr":  "metrics.addr",
	"mail-provider": "mail.provider",
	"log-format":    "log.format",
	"log-level":     "log.level",
}

// FlagKey returns the config key bound to a flag name, or "".
func FlagKey(flag string) string {
	return flagKeys[flag]
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// Path is an explicit config file. It must exist when set. When empty
	// the XDG default is read if present.
	Path string

	// Flags, when set, override every other source for flags the user changed.
	Flags *pflag.FlagSet

	// Environ overrides os.Environ for tests. Only DAILYPUZZLE_* entries are used.
	Environ []string
}

// Load layers every source and validates the result.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	path, required := opts.Path, true
	if path == "" {
		required = false
		if p, err := xdg.ConfigFile(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := loadFile(k, path, required); err != nil {
			return nil, err
		}
	}

	if err := loadEnv(k, opts.Environ); err != nil {
		return nil, err
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			return FlagKey(f.Name), posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "unmarshal").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

// envKey maps DAILYPUZZLE_RATELIMIT_REDIS_ADDR to ratelimit.redis_addr.
func envKey(name string) string {
	rest := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	section, key, ok := strings.Cut(rest, "_")
	if !ok || section == "" || key == "" {
		return ""
	}
	return section + "." + key
}

func loadEnv(k *koanf.Koanf, environ []string) error {
	if environ == nil {
		err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
		if err != nil {
			return oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
		}
		return nil
	}

	values := make(map[string]any)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		if key := envKey(name); key != "" {
			values[key] = value
		}
	}
	if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}
	return nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	invalid := func(key, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	switch c.Store.Backend {
	case StorePostgres:
		if c.Database.URL == "" {
			return invalid("database.url", "database url is required for the postgres store")
		}
	case StoreMemory:
	default:
		return invalid("store.backend", "unknown store backend %q", c.Store.Backend)
	}

	switch c.RateLimit.Backend {
	case RateLimitRedis:
		if c.RateLimit.RedisAddr == "" {
			return invalid("ratelimit.redis_addr", "redis address is required for the redis limiter")
		}
	case RateLimitMemory:
		if c.RateLimit.Capacity <= 0 {
			return invalid("ratelimit.capacity", "capacity must be positive")
		}
	default:
		return invalid("ratelimit.backend", "unknown rate limit backend %q", c.RateLimit.Backend)
	}
	if c.RateLimit.Window <= 0 {
		return invalid("ratelimit.window", "window must be positive")
	}
	if c.RateLimit.Max <= 0 {
		return invalid("ratelimit.max", "max must be positive")
	}

	switch c.Mail.Provider {
	case MailResend:
		if c.Mail.ResendAPIKey == "" {
			return invalid("mail.resend_api_key", "resend api key is required for the resend provider")
		}
		if c.Mail.From == "" {
			return invalid("mail.from", "from address is required for the resend provider")
		}
	case MailConsole:
	default:
		return invalid("mail.provider", "unknown mail provider %q", c.Mail.Provider)
	}

	if c.Auth.CredentialTTL <= 0 {
		return invalid("auth.credential_ttl", "credential ttl must be positive")
	}
	if c.Auth.SessionTTL <= 0 {
		return invalid("auth.session_ttl", "session ttl must be positive")
	}
	if c.Auth.CodeLength < 4 || c.Auth.CodeLength > 16 {
		return invalid("auth.code_length", "code length must be between 4 and 16")
	}
	if c.Auth.MaxCodeAttempts <= 0 {
		return invalid("auth.max_code_attempts", "max code attempts must be positive")
	}
	if c.Auth.SweepInterval <= 0 {
		return invalid("auth.sweep_interval", "sweep interval must be positive")
	}

	if c.HTTP.Addr == "" {
		return invalid("http.addr", "listen address is required")
	}
	if !strings.HasPrefix(c.HTTP.BaseURL, "http://") && !strings.HasPrefix(c.HTTP.BaseURL, "https://") {
		return invalid("http.base_url", "base url must be an absolute http(s) url")
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return invalid("log.format", "log format must be json or text")
	}
	return nil
}
