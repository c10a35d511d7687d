package config

import (
	"fmt"
	"net"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "session.tmux_width")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// sessionPrefixRegex matches names tmux accepts without quoting
var sessionPrefixRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidClaimsBackends returns the list of supported claim backends
func ValidClaimsBackends() []string {
	return []string{ClaimsBackendSQLite, ClaimsBackendRedis}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateStore()...)
	errors = append(errors, c.validateSession()...)
	errors = append(errors, c.validateAgent()...)
	errors = append(errors, c.validateMessages()...)
	errors = append(errors, c.validateScreen()...)
	errors = append(errors, c.validateClaims()...)
	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateStore() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Store.Path) == "" {
		errors = append(errors, ValidationError{
			Field:   "store.path",
			Value:   c.Store.Path,
			Message: "must not be empty",
		})
	}
	if c.Store.BusyTimeoutMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "store.busy_timeout_ms",
			Value:   c.Store.BusyTimeoutMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateSession() []ValidationError {
	var errors []ValidationError

	if !sessionPrefixRegex.MatchString(c.Session.Prefix) {
		errors = append(errors, ValidationError{
			Field:   "session.prefix",
			Value:   c.Session.Prefix,
			Message: "must start with a letter and contain only letters, digits, '-' or '_'",
		})
	}
	if c.Session.TmuxWidth < 20 {
		errors = append(errors, ValidationError{
			Field:   "session.tmux_width",
			Value:   c.Session.TmuxWidth,
			Message: "must be at least 20",
		})
	}
	if c.Session.TmuxHeight < 5 {
		errors = append(errors, ValidationError{
			Field:   "session.tmux_height",
			Value:   c.Session.TmuxHeight,
			Message: "must be at least 5",
		})
	}
	if c.Session.HistoryLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "session.history_limit",
			Value:   c.Session.HistoryLimit,
			Message: "must be non-negative",
		})
	}
	if c.Session.QueryTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "session.query_timeout_ms",
			Value:   c.Session.QueryTimeoutMs,
			Message: "must be positive",
		})
	}
	if c.Session.KillGraceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "session.kill_grace_ms",
			Value:   c.Session.KillGraceMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateAgent() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Agent.Command) == "" {
		errors = append(errors, ValidationError{
			Field:   "agent.command",
			Value:   c.Agent.Command,
			Message: "must not be empty",
		})
	}

	return errors
}

// maxTTLSeconds matches the message bus limit on lifetimes.
const maxTTLSeconds = 100 * 365 * 24 * 60 * 60

func (c *Config) validateMessages() []ValidationError {
	var errors []ValidationError

	if c.Messages.DefaultTTLSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "messages.default_ttl_seconds",
			Value:   c.Messages.DefaultTTLSeconds,
			Message: "must be non-negative",
		})
	}
	if int64(c.Messages.DefaultTTLSeconds) > maxTTLSeconds {
		errors = append(errors, ValidationError{
			Field:   "messages.default_ttl_seconds",
			Value:   c.Messages.DefaultTTLSeconds,
			Message: "must be at most 100 years",
		})
	}
	if c.Messages.WatchPollMs < 10 {
		errors = append(errors, ValidationError{
			Field:   "messages.watch_poll_ms",
			Value:   c.Messages.WatchPollMs,
			Message: "must be at least 10",
		})
	}

	return errors
}

func (c *Config) validateScreen() []ValidationError {
	var errors []ValidationError

	if c.Screen.MaxLines <= 0 {
		errors = append(errors, ValidationError{
			Field:   "screen.max_lines",
			Value:   c.Screen.MaxLines,
			Message: "must be positive",
		})
	}
	if c.Screen.DefaultLines <= 0 || c.Screen.DefaultLines > c.Screen.MaxLines {
		errors = append(errors, ValidationError{
			Field:   "screen.default_lines",
			Value:   c.Screen.DefaultLines,
			Message: "must be positive and no greater than screen.max_lines",
		})
	}

	return errors
}

func (c *Config) validateClaims() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidClaimsBackends(), c.Claims.Backend) {
		errors = append(errors, ValidationError{
			Field:   "claims.backend",
			Value:   c.Claims.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidClaimsBackends(), ", ")),
		})
	}
	if c.Claims.Backend == ClaimsBackendRedis {
		if _, _, err := net.SplitHostPort(c.Claims.RedisAddr); err != nil {
			errors = append(errors, ValidationError{
				Field:   "claims.redis_addr",
				Value:   c.Claims.RedisAddr,
				Message: "must be host:port",
			})
		}
		if c.Claims.RedisPrefix == "" {
			errors = append(errors, ValidationError{
				Field:   "claims.redis_prefix",
				Value:   c.Claims.RedisPrefix,
				Message: "must not be empty",
			})
		}
	}

	return errors
}

func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errors = append(errors, ValidationError{
			Field:   "server.addr",
			Value:   c.Server.Addr,
			Message: "must be host:port",
		})
	}
	if c.Server.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.rate_limit",
			Value:   c.Server.RateLimit,
			Message: "must be positive",
		})
	}
	if c.Server.RateBurst < 1 {
		errors = append(errors, ValidationError{
			Field:   "server.rate_burst",
			Value:   c.Server.RateBurst,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 1 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be at least 1",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
