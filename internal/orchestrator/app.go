package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Iron-Ham/squadron/internal/claims"
	"github.com/Iron-Ham/squadron/internal/config"
	"github.com/Iron-Ham/squadron/internal/event"
	"github.com/Iron-Ham/squadron/internal/heartbeat"
	"github.com/Iron-Ham/squadron/internal/logging"
	"github.com/Iron-Ham/squadron/internal/mailbox"
	"github.com/Iron-Ham/squadron/internal/session"
	"github.com/Iron-Ham/squadron/internal/store"
	"github.com/Iron-Ham/squadron/internal/team"
	"github.com/Iron-Ham/squadron/internal/tmux"
)

// App is a fully wired Facade together with the resources it owns.
type App struct {
	*Facade

	store *store.Store
	redis *redis.Client
}

// Components overrides parts of the composition. Nil fields are built from
// the configuration.
type Components struct {
	// Sessions replaces the tmux session manager.
	Sessions session.Manager
	// Events replaces the event bus.
	Events *event.Bus
}

// New builds every component described by cfg.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	return NewWithComponents(ctx, cfg, logger, Components{})
}

// NewWithComponents builds every component described by cfg, using the
// overrides in c where set.
func NewWithComponents(ctx context.Context, cfg *config.Config, logger *logging.Logger, c Components) (*App, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	db, err := store.Open(cfg.Store.Path, cfg.Store.BusyTimeout())
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	app := &App{store: db}

	events := c.Events
	if events == nil {
		events = event.NewBus(logger)
	}

	mgr := c.Sessions
	if mgr == nil {
		mgr = session.NewTmuxManager(tmux.NewClient(cfg.Session.Prefix), logger)
	}

	roles, err := team.LoadRoles(cfg.Agent.RolesFile)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	registry := team.NewRegistry(db, mgr,
		team.WithEventBus(events),
		team.WithLogger(logger),
		team.WithHandleOptions(
			session.WithQueryTimeout(cfg.Session.QueryTimeout()),
			session.WithKillGrace(cfg.Session.KillGrace()),
			session.WithLogger(logger.WithComponent("session")),
		),
	)
	deployer := team.NewDeployer(registry, roles, team.DeployerConfig{
		AgentCommand:  strings.Fields(cfg.Agent.Command),
		ModelFlag:     cfg.Agent.ModelFlag,
		PromptDir:     cfg.ResolvePromptDir(),
		WorkDir:       cfg.Session.WorkDir,
		SessionPrefix: cfg.Session.Prefix,
		Width:         cfg.Session.TmuxWidth,
		Height:        cfg.Session.TmuxHeight,
		HistoryLimit:  cfg.Session.HistoryLimit,
	})

	bus := mailbox.NewBus(db,
		mailbox.WithEventBus(events),
		mailbox.WithLogger(logger),
		mailbox.WithDefaultTTL(cfg.Messages.DefaultTTL()),
		mailbox.WithPollInterval(cfg.Messages.WatchPoll()),
		mailbox.WithWatchDir(filepath.Dir(db.Path())),
	)

	backend, err := app.claimsBackend(ctx, cfg.Claims)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.Facade = NewFacade(Deps{
		Registry:       registry,
		Deployer:       deployer,
		Bus:            bus,
		Claims:         claims.NewStore(backend, claims.WithEventBus(events), claims.WithLogger(logger)),
		Heartbeat:      heartbeat.NewTracker(bus, heartbeat.WithActiveWindow(cfg.Heartbeat.ActiveWindow()), heartbeat.WithLogger(logger)),
		Events:         events,
		Logger:         logger,
		ScreenLines:    cfg.Screen.DefaultLines,
		MaxScreenLines: cfg.Screen.MaxLines,
		ReleaseOnKill:  cfg.Claims.ReleaseOnKill,
	})
	return app, nil
}

func (a *App) claimsBackend(ctx context.Context, cfg config.ClaimsConfig) (claims.Backend, error) {
	if cfg.Backend != config.ClaimsBackendRedis {
		return a.store, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
	}
	a.redis = client
	return claims.NewRedisBackend(client, cfg.RedisPrefix), nil
}

// Close releases the store and any Redis connection.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
