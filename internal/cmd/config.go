package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/squadron/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View squadron configuration",
		Long: `View squadron configuration.

Without arguments, displays the effective configuration after defaults,
the config file and SQUADRON_* environment variables are applied.`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration",
			Args:  cobra.NoArgs,
			RunE:  runConfigShow,
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create a default config file",
			Long:  `Create a default config file at ~/.config/squadron/config.yaml.`,
			Args:  cobra.NoArgs,
			RunE:  runConfigInit,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show the config file path",
			Args:  cobra.NoArgs,
			RunE:  runConfigPath,
		},
	)
	return cmd
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	settings := viper.AllSettings()
	if wantJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), settings)
	}
	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

const defaultConfigContent = `# Squadron Configuration

# Shared datastore. Every squadron process of a mission must use the same path.
store:
  path: .squadron/squadron.db
  busy_timeout_ms: 5000

# tmux sessions hosting team members
session:
  prefix: squadron
  tmux_width: 200
  tmux_height: 50
  query_timeout_ms: 2000
  kill_grace_ms: 500

# Agent launched in each session
agent:
  command: claude --dangerously-skip-permissions
  model_flag: --model
  # roles_file: ~/.config/squadron/roles.yaml

messages:
  # 0 means messages never expire
  default_ttl_seconds: 0
  watch_poll_ms: 500

heartbeat:
  active_window_seconds: 120

screen:
  default_lines: 100
  max_lines: 2000

# Task claims. Backend is sqlite or redis.
claims:
  backend: sqlite
  redis_addr: 127.0.0.1:6379
  release_on_kill: false

server:
  addr: 127.0.0.1:7420
  rate_limit: 50
  rate_burst: 100

logging:
  level: info
  # file: .squadron/squadron.log
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s", configFile)
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		if _, err := os.Stat(used); err == nil {
			_, err := fmt.Fprintf(w, "Active config: %s\n", used)
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Default config: %s (not created)\n", config.ConfigFile())
	return err
}
