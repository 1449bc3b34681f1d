// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailypuzzle/dailypuzzle/internal/config"
	"github.com/dailypuzzle/dailypuzzle/pkg/errutil"
)

// memoryEnv makes the defaults valid without a database.
var memoryEnv = []string{"DAILYPUZZLE_STORE_BACKEND=memory"}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := config.Load(config.LoadOptions{Environ: memoryEnv})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "http://localhost:8080", cfg.HTTP.BaseURL)
	assert.Equal(t, config.StoreMemory, cfg.Store.Backend)
	assert.Equal(t, 15*time.Minute, cfg.Auth.CredentialTTL)
	assert.Equal(t, 720*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 6, cfg.Auth.CodeLength)
	assert.Equal(t, 5, cfg.Auth.MaxCodeAttempts)
	assert.Equal(t, time.Hour, cfg.Auth.SweepInterval)
	assert.Equal(t, config.RateLimitMemory, cfg.RateLimit.Backend)
	assert.Equal(t, 60*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 5, cfg.RateLimit.Max)
	assert.Equal(t, 1000, cfg.RateLimit.Capacity)
	assert.Equal(t, config.MailConsole, cfg.Mail.Provider)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, uint64(5), cfg.Database.ConnectRetries)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.False(t, cfg.HTTP.TrustProxy, "peer address unless a proxy is configured")
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_DefaultPostgresNeedsURL(t *testing.T) {
	isolate(t)

	_, err := config.Load(config.LoadOptions{Environ: []string{}})
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "key", "database.url")
}

func TestLoad_LayerPrecedence(t *testing.T) {
	isolate(t)
	path := writeFile(t, `
http:
  addr: ":9000"
  base_url: https://file.example
store:
  backend: memory
auth:
  session_ttl: 48h
  admin_emails: "*@file.example"
log:
  format: text
`)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", ":8080", "")
	flags.String("log-format", "json", "")
	flags.Bool("verbose", false, "")
	require.NoError(t, flags.Parse([]string{"--addr=:7000", "--verbose"}))

	cfg, err := config.Load(config.LoadOptions{
		Path:  path,
		Flags: flags,
		Environ: []string{
			"DAILYPUZZLE_HTTP_ADDR=:6000",
			"DAILYPUZZLE_HTTP_BASE_URL=https://env.example",
			"DAILYPUZZLE_AUTH_MAX_CODE_ATTEMPTS=3",
			"OTHER_HTTP_ADDR=:1",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTP.Addr, "flag beats env and file")
	assert.Equal(t, "https://env.example", cfg.HTTP.BaseURL, "env beats file")
	assert.Equal(t, "text", cfg.Log.Format, "unchanged flag keeps file value")
	assert.Equal(t, 48*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 3, cfg.Auth.MaxCodeAttempts)
	assert.Equal(t, "*@file.example", cfg.Auth.AdminEmails)
}

func TestLoad_XDGDefaultFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dailypuzzle"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dailypuzzle", "config.yaml"),
		[]byte("store:\n  backend: memory\nmetrics:\n  addr: \"\"\n"), 0o600))

	cfg, err := config.Load(config.LoadOptions{Environ: []string{}})
	require.NoError(t, err)
	assert.Equal(t, config.StoreMemory, cfg.Store.Backend)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	isolate(t)

	_, err := config.Load(config.LoadOptions{Path: "/nonexistent/config.yaml", Environ: memoryEnv})
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestLoad_MalformedFile(t *testing.T) {
	isolate(t)

	_, err := config.Load(config.LoadOptions{Path: writeFile(t, "http: [unclosed"), Environ: memoryEnv})
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestLoad_ProcessEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("DAILYPUZZLE_STORE_BACKEND", "memory")
	t.Setenv("DAILYPUZZLE_RATELIMIT_MAX", "9")

	cfg, err := config.Load(config.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.RateLimit.Max)
}

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	isolate(t)
	cfg, err := config.Load(config.LoadOptions{Environ: memoryEnv})
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		key    string
	}{
		{"unknown store", func(c *config.Config) { c.Store.Backend = "sqlite" }, "store.backend"},
		{"redis without addr", func(c *config.Config) { c.RateLimit.Backend = config.RateLimitRedis }, "ratelimit.redis_addr"},
		{"unknown limiter", func(c *config.Config) { c.RateLimit.Backend = "etcd" }, "ratelimit.backend"},
		{"zero capacity", func(c *config.Config) { c.RateLimit.Capacity = 0 }, "ratelimit.capacity"},
		{"zero window", func(c *config.Config) { c.RateLimit.Window = 0 }, "ratelimit.window"},
		{"zero max", func(c *config.Config) { c.RateLimit.Max = 0 }, "ratelimit.max"},
		{"resend without key", func(c *config.Config) { c.Mail.Provider = config.MailResend; c.Mail.From = "a@b.co" }, "mail.resend_api_key"},
		{"resend without from", func(c *config.Config) { c.Mail.Provider = config.MailResend; c.Mail.ResendAPIKey = "k" }, "mail.from"},
		{"unknown mail", func(c *config.Config) { c.Mail.Provider = "smtp" }, "mail.provider"},
		{"zero credential ttl", func(c *config.Config) { c.Auth.CredentialTTL = 0 }, "auth.credential_ttl"},
		{"negative session ttl", func(c *config.Config) { c.Auth.SessionTTL = -time.Hour }, "auth.session_ttl"},
		{"short code", func(c *config.Config) { c.Auth.CodeLength = 3 }, "auth.code_length"},
		{"zero attempts", func(c *config.Config) { c.Auth.MaxCodeAttempts = 0 }, "auth.max_code_attempts"},
		{"zero sweep", func(c *config.Config) { c.Auth.SweepInterval = 0 }, "auth.sweep_interval"},
		{"empty addr", func(c *config.Config) { c.HTTP.Addr = "" }, "http.addr"},
		{"relative base url", func(c *config.Config) { c.HTTP.BaseURL = "/x" }, "http.base_url"},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			errutil.AssertErrorContext(t, err, "key", tt.key)
		})
	}
}

func TestValidate_AcceptsRedisAndResend(t *testing.T) {
	cfg := validConfig(t)
	cfg.RateLimit.Backend = config.RateLimitRedis
	cfg.RateLimit.RedisAddr = "localhost:6379"
	cfg.Mail.Provider = config.MailResend
	cfg.Mail.ResendAPIKey = "re_x"
	cfg.Mail.From = "login@puzzle.example"

	assert.NoError(t, cfg.Validate())
}

func TestFlagKey(t *testing.T) {
	assert.Equal(t, "database.url", config.FlagKey("database-url"))
	assert.Empty(t, config.FlagKey("config"))
}
