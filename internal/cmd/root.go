// Package cmd implements the squadron command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/squadron/internal/config"
	"github.com/Iron-Ham/squadron/internal/logging"
	"github.com/Iron-Ham/squadron/internal/orchestrator"
	"github.com/Iron-Ham/squadron/internal/team"
)

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "squadron",
		Short: "Coordinate a team of autonomous agents",
		Long: `Squadron runs a small team of agent processes, each in its own tmux
session, and gives them a shared message bus and a task claim ledger.

One overseer assigns work, workers execute it and helpers assist. Every
squadron invocation of a mission shares one SQLite store, so members can
call the CLI directly from their sessions.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/squadron/config.yaml)")
	root.PersistentFlags().Bool("json", false, "print results as JSON")

	root.AddCommand(
		newDeployCmd(),
		newStatusCmd(),
		newScreenCmd(),
		newInterveneCmd(),
		newKillCmd(),
		newListCmd(),
		newSendCmd(),
		newListenCmd(),
		newBroadcastCmd(),
		newClaimCmd(),
		newReleaseCmd(),
		newClaimsCmd(),
		newHeartbeatCmd(),
		newTeamCmd(),
		newServeCmd(),
		newTopCmd(),
		newConfigCmd(),
	)
	root.SetHelpCommand(newHelpCmd())
	return root
}

func initConfig(cmd *cobra.Command) error {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("SQUADRON")
	// SQUADRON_STORE_PATH for store.path, SQUADRON_CLAIMS_BACKEND for claims.backend
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing default config file is fine; an explicit one must exist.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || cfgFile != "" {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// loadConfig returns the validated configuration for this invocation.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openApp builds the orchestrator for one command. The returned close
// function releases the store and the logger.
func openApp(ctx context.Context) (*orchestrator.App, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Options{
		File:       cfg.Logging.File,
		Level:      cfg.Logging.Level,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	app, err := orchestrator.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Close()
		return nil, nil, err
	}
	return app, func() {
		_ = app.Close()
		_ = logger.Close()
	}, nil
}

// withFacade opens the orchestrator, runs fn against it and closes it.
func withFacade(cmd *cobra.Command, fn func(*orchestrator.Facade) error) error {
	app, closeApp, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer closeApp()
	return fn(app.Facade)
}

// memberFlag registers a member id flag that defaults to the id of the
// session the command runs in.
func memberFlag(cmd *cobra.Command, name, usage string) *string {
	return cmd.Flags().String(name, os.Getenv(team.MemberIDEnv), usage)
}
