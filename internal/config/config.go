package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete squadron configuration
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Session   SessionConfig   `mapstructure:"session"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
	Screen    ScreenConfig    `mapstructure:"screen"`
	Claims    ClaimsConfig    `mapstructure:"claims"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// StoreConfig controls the shared SQLite datastore
type StoreConfig struct {
	// Path is the SQLite database file shared by every squadron process of a mission
	Path string `mapstructure:"path"`
	// BusyTimeoutMs is how long a writer waits on a locked database before failing
	BusyTimeoutMs int `mapstructure:"busy_timeout_ms"`
}

// SessionConfig controls the tmux sessions hosting team members
type SessionConfig struct {
	// Prefix is prepended to every tmux session name (default: "squadron")
	Prefix string `mapstructure:"prefix"`
	// TmuxWidth is the width of the tmux pane (default: 200)
	TmuxWidth int `mapstructure:"tmux_width"`
	// TmuxHeight is the height of the tmux pane (default: 50)
	TmuxHeight int `mapstructure:"tmux_height"`
	// HistoryLimit is the scrollback kept by tmux (default: 50000)
	HistoryLimit int `mapstructure:"history_limit"`
	// QueryTimeoutMs bounds every query to the session manager (default: 2000)
	QueryTimeoutMs int `mapstructure:"query_timeout_ms"`
	// KillGraceMs is the time between Ctrl-C and forced termination (default: 500)
	KillGraceMs int `mapstructure:"kill_grace_ms"`
	// WorkDir is the working directory for new sessions. Empty means the current directory.
	WorkDir string `mapstructure:"work_dir"`
}

// AgentConfig controls how the agent process is launched
type AgentConfig struct {
	// Command is the agent executable and its fixed flags
	Command string `mapstructure:"command"`
	// ModelFlag is the flag used to pass the model name to Command
	ModelFlag string `mapstructure:"model_flag"`
	// PromptDir is where startup prompts are written. Empty means <store dir>/prompts.
	PromptDir string `mapstructure:"prompt_dir"`
	// RolesFile optionally overrides the built-in role bootstrap templates (YAML)
	RolesFile string `mapstructure:"roles_file"`
}

// MessagesConfig controls the message bus
type MessagesConfig struct {
	// DefaultTTLSeconds is applied to messages sent without a TTL. 0 means never expire.
	DefaultTTLSeconds int `mapstructure:"default_ttl_seconds"`
	// WatchPollMs is the fallback poll interval for watchers (default: 500)
	WatchPollMs int `mapstructure:"watch_poll_ms"`
}

// HeartbeatConfig controls team status reporting
type HeartbeatConfig struct {
	// ActiveWindowSeconds is the default window for "recently active" queries (default: 120)
	ActiveWindowSeconds int `mapstructure:"active_window_seconds"`
}

// ScreenConfig controls screen capture
type ScreenConfig struct {
	// DefaultLines is used when a caller does not request a line count (default: 100)
	DefaultLines int `mapstructure:"default_lines"`
	// MaxLines caps any requested line count (default: 2000)
	MaxLines int `mapstructure:"max_lines"`
}

// ClaimsConfig controls the task claim backend
type ClaimsConfig struct {
	// Backend is "sqlite" (default) or "redis"
	Backend string `mapstructure:"backend"`
	// RedisAddr is the host:port of the Redis server when Backend is "redis"
	RedisAddr string `mapstructure:"redis_addr"`
	// RedisPrefix namespaces claim keys in Redis (default: "squadron:claims")
	RedisPrefix string `mapstructure:"redis_prefix"`
	// ReleaseOnKill releases every claim held by a member when it is killed
	ReleaseOnKill bool `mapstructure:"release_on_kill"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	// Addr is the listen address (default: "127.0.0.1:7420")
	Addr string `mapstructure:"addr"`
	// RateLimit is the sustained requests per second allowed (default: 50)
	RateLimit float64 `mapstructure:"rate_limit"`
	// RateBurst is the burst size allowed above RateLimit (default: 100)
	RateBurst int `mapstructure:"rate_burst"`
	// AllowedOrigins lists origins accepted by the event stream. Empty allows same-origin only.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// File is the log file path. Empty logs to stderr.
	File string `mapstructure:"file"`
	// MaxSizeMB is the maximum log file size before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path:          filepath.Join(".squadron", "squadron.db"),
			BusyTimeoutMs: 5000,
		},
		Session: SessionConfig{
			Prefix:         "squadron",
			TmuxWidth:      200,
			TmuxHeight:     50,
			HistoryLimit:   50000,
			QueryTimeoutMs: 2000,
			KillGraceMs:    500,
		},
		Agent: AgentConfig{
			Command:   "claude --dangerously-skip-permissions",
			ModelFlag: "--model",
		},
		Messages: MessagesConfig{
			DefaultTTLSeconds: 0,
			WatchPollMs:       500,
		},
		Heartbeat: HeartbeatConfig{
			ActiveWindowSeconds: 120,
		},
		Screen: ScreenConfig{
			DefaultLines: 100,
			MaxLines:     2000,
		},
		Claims: ClaimsConfig{
			Backend:     ClaimsBackendSQLite,
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "squadron:claims",
		},
		Server: ServerConfig{
			Addr:      "127.0.0.1:7420",
			RateLimit: 50,
			RateBurst: 100,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Claim backends
const (
	ClaimsBackendSQLite = "sqlite"
	ClaimsBackendRedis  = "redis"
)

// BusyTimeout returns the store busy timeout as a Duration
func (c *StoreConfig) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutMs) * time.Millisecond
}

// QueryTimeout returns the session query ceiling as a Duration
func (c *SessionConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutMs) * time.Millisecond
}

// KillGrace returns the Ctrl-C grace period as a Duration
func (c *SessionConfig) KillGrace() time.Duration {
	return time.Duration(c.KillGraceMs) * time.Millisecond
}

// DefaultTTL returns the default message TTL as a Duration (0 = never expire)
func (c *MessagesConfig) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLSeconds) * time.Second
}

// WatchPoll returns the watcher poll interval as a Duration
func (c *MessagesConfig) WatchPoll() time.Duration {
	return time.Duration(c.WatchPollMs) * time.Millisecond
}

// ActiveWindow returns the default heartbeat window as a Duration
func (c *HeartbeatConfig) ActiveWindow() time.Duration {
	return time.Duration(c.ActiveWindowSeconds) * time.Second
}

// ResolvePromptDir returns the directory startup prompts are written to.
func (c *Config) ResolvePromptDir() string {
	if c.Agent.PromptDir != "" {
		return c.Agent.PromptDir
	}
	return filepath.Join(filepath.Dir(c.Store.Path), "prompts")
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Store defaults
	viper.SetDefault("store.path", defaults.Store.Path)
	viper.SetDefault("store.busy_timeout_ms", defaults.Store.BusyTimeoutMs)

	// Session defaults
	viper.SetDefault("session.prefix", defaults.Session.Prefix)
	viper.SetDefault("session.tmux_width", defaults.Session.TmuxWidth)
	viper.SetDefault("session.tmux_height", defaults.Session.TmuxHeight)
	viper.SetDefault("session.history_limit", defaults.Session.HistoryLimit)
	viper.SetDefault("session.query_timeout_ms", defaults.Session.QueryTimeoutMs)
	viper.SetDefault("session.kill_grace_ms", defaults.Session.KillGraceMs)
	viper.SetDefault("session.work_dir", defaults.Session.WorkDir)

	// Agent defaults
	viper.SetDefault("agent.command", defaults.Agent.Command)
	viper.SetDefault("agent.model_flag", defaults.Agent.ModelFlag)
	viper.SetDefault("agent.prompt_dir", defaults.Agent.PromptDir)
	viper.SetDefault("agent.roles_file", defaults.Agent.RolesFile)

	// Messages defaults
	viper.SetDefault("messages.default_ttl_seconds", defaults.Messages.DefaultTTLSeconds)
	viper.SetDefault("messages.watch_poll_ms", defaults.Messages.WatchPollMs)

	// Heartbeat defaults
	viper.SetDefault("heartbeat.active_window_seconds", defaults.Heartbeat.ActiveWindowSeconds)

	// Screen defaults
	viper.SetDefault("screen.default_lines", defaults.Screen.DefaultLines)
	viper.SetDefault("screen.max_lines", defaults.Screen.MaxLines)

	// Claims defaults
	viper.SetDefault("claims.backend", defaults.Claims.Backend)
	viper.SetDefault("claims.redis_addr", defaults.Claims.RedisAddr)
	viper.SetDefault("claims.redis_prefix", defaults.Claims.RedisPrefix)
	viper.SetDefault("claims.release_on_kill", defaults.Claims.ReleaseOnKill)

	// Server defaults
	viper.SetDefault("server.addr", defaults.Server.Addr)
	viper.SetDefault("server.rate_limit", defaults.Server.RateLimit)
	viper.SetDefault("server.rate_burst", defaults.Server.RateBurst)
	viper.SetDefault("server.allowed_origins", defaults.Server.AllowedOrigins)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults when
// the loaded configuration is invalid
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the squadron configuration directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "squadron")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "squadron")
}

// ConfigFile returns the path to the default config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
