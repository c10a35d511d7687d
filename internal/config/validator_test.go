package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"empty store path", func(c *Config) { c.Store.Path = " " }, "store.path"},
		{"negative busy timeout", func(c *Config) { c.Store.BusyTimeoutMs = -1 }, "store.busy_timeout_ms"},
		{"prefix with space", func(c *Config) { c.Session.Prefix = "my squad" }, "session.prefix"},
		{"prefix starting with digit", func(c *Config) { c.Session.Prefix = "1squad" }, "session.prefix"},
		{"narrow pane", func(c *Config) { c.Session.TmuxWidth = 10 }, "session.tmux_width"},
		{"short pane", func(c *Config) { c.Session.TmuxHeight = 2 }, "session.tmux_height"},
		{"zero query timeout", func(c *Config) { c.Session.QueryTimeoutMs = 0 }, "session.query_timeout_ms"},
		{"negative grace", func(c *Config) { c.Session.KillGraceMs = -5 }, "session.kill_grace_ms"},
		{"empty agent command", func(c *Config) { c.Agent.Command = "" }, "agent.command"},
		{"negative ttl", func(c *Config) { c.Messages.DefaultTTLSeconds = -1 }, "messages.default_ttl_seconds"},
		{"ttl past max", func(c *Config) { c.Messages.DefaultTTLSeconds = maxTTLSeconds + 1 }, "messages.default_ttl_seconds"},
		{"tiny poll", func(c *Config) { c.Messages.WatchPollMs = 1 }, "messages.watch_poll_ms"},
		{"default lines above max", func(c *Config) { c.Screen.DefaultLines = 5000 }, "screen.default_lines"},
		{"unknown backend", func(c *Config) { c.Claims.Backend = "etcd" }, "claims.backend"},
		{"redis without port", func(c *Config) {
			c.Claims.Backend = ClaimsBackendRedis
			c.Claims.RedisAddr = "localhost"
		}, "claims.redis_addr"},
		{"bad server addr", func(c *Config) { c.Server.Addr = "7420" }, "server.addr"},
		{"zero rate", func(c *Config) { c.Server.RateLimit = 0 }, "server.rate_limit"},
		{"zero burst", func(c *Config) { c.Server.RateBurst = 0 }, "server.rate_burst"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"zero log size", func(c *Config) { c.Logging.MaxSizeMB = 0 }, "logging.max_size_mb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("Validate() returned %d errors, want 1: %v", len(errs), errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Validate()[0].Field = %q, want %q", errs[0].Field, tt.wantField)
			}
		})
	}
}

func TestValidate_LogLevelCaseInsensitive(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "DEBUG"
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v, want no errors", errs)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	if got := ValidationErrors(nil).Error(); got != "" {
		t.Errorf("empty ValidationErrors.Error() = %q, want empty", got)
	}

	one := ValidationErrors{{Field: "a", Value: 1, Message: "bad"}}
	if got, want := one.Error(), "a: bad (got: 1)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	two := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: "x", Message: "worse"},
	}
	got := two.Error()
	if !strings.HasPrefix(got, "2 validation errors:") {
		t.Errorf("Error() = %q, want prefix %q", got, "2 validation errors:")
	}
	if !strings.Contains(got, "2. b: worse (got: x)") {
		t.Errorf("Error() = %q, missing second entry", got)
	}
}
