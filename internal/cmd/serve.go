package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/squadron/internal/logging"
	"github.com/Iron-Ham/squadron/internal/orchestrator"
	"github.com/Iron-Ham/squadron/internal/server"
	"github.com/Iron-Ham/squadron/internal/tui"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the coordination API over HTTP",
		Long: `Serve exposes every coordination operation as a JSON HTTP API and
streams coordination events over a WebSocket at /api/events.

The server shares the mission store with the CLI, so both can be used at
the same time.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().String("addr", "", "listen address (default from server.addr)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := logging.New(logging.Options{
			File:       cfg.Logging.File,
			Level:      cfg.Logging.Level,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		})
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer func() { _ = logger.Close() }()

		app, err := orchestrator.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = app.Close() }()

		fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", cfg.Server.Addr)
		return server.New(app.Facade, cfg.Server, logger).ListenAndServe(ctx)
	}
	return cmd
}

func newTopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Live dashboard of members, claims and heartbeats",
		Args:  cobra.NoArgs,
	}
	interval := cmd.Flags().Duration("interval", 0, "refresh interval (default 2s)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if !isTerminal(os.Stdout) {
			return fmt.Errorf("top requires an interactive terminal")
		}
		return withFacade(cmd, func(f *orchestrator.Facade) error {
			return tui.Run(cmd.Context(), f, *interval)
		})
	}
	return cmd
}
