package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"skillglide/common/cache"
	"skillglide/common/cache/memory"
	"skillglide/common/cache/redis"
	"skillglide/common/database"
	"skillglide/common/database/schema"
	"skillglide/common/database/schema/migrations"
	"skillglide/common/telemetry"
	"skillglide/services/jobboard/internal/api"
	"skillglide/services/jobboard/internal/auth"
	"skillglide/services/jobboard/internal/config"
	"skillglide/services/jobboard/internal/dashboard"
	"skillglide/services/jobboard/internal/events"
	"skillglide/services/jobboard/internal/filter"
	"skillglide/services/jobboard/internal/listing"
	"skillglide/services/jobboard/internal/logging"
	"skillglide/services/jobboard/internal/metrics"
	"skillglide/services/jobboard/internal/parser"
	"skillglide/services/jobboard/internal/scheduler"
	"skillglide/services/jobboard/internal/server"
)

func newLogger(cfg *config.Config, lc fx.Lifecycle) (*zap.Logger, error) {
	logger, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = logger.Sync()
			return nil
		},
	})
	return logger, nil
}

func newMetrics() *metrics.Metrics {
	return metrics.New("jobboard")
}

func newCache(cfg *config.Config, logger *zap.Logger, lc fx.Lifecycle) (cache.Cache, error) {
	opts := cache.DefaultOptions()
	opts.DefaultTTL = cfg.CacheTTL
	opts.KeyPrefix = "jobboard:"

	var c cache.Cache
	switch cfg.TokenStore {
	case "redis":
		opts.RedisURL = cfg.RedisAddr
		opts.RedisPassword = cfg.RedisPassword
		opts.RedisDB = cfg.RedisDB
		rc := redis.New(opts)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.APITimeout)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			return nil, err
		}
		c = rc
	default:
		c = memory.New(opts)
	}

	logger.Info("session cache ready", zap.String("backend", cfg.TokenStore))
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return c.Close() },
	})
	return c, nil
}

// newTokenStore seeds the store from configuration so a fresh process can
// call authenticated endpoints before anyone signs in interactively.
func newTokenStore(cfg *config.Config, c cache.Cache, logger *zap.Logger) (auth.TokenStore, error) {
	store := auth.NewTokenStore(c, cfg.CacheTTL, logger)
	if cfg.AccessToken == "" && cfg.RefreshToken == "" {
		return store, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.APITimeout)
	defer cancel()
	current, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if current.AccessToken != "" {
		return store, nil
	}
	if err := store.Save(ctx, auth.Tokens{AccessToken: cfg.AccessToken, RefreshToken: cfg.RefreshToken}); err != nil {
		return nil, err
	}
	return store, nil
}

func newFilterStore(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics, lc fx.Lifecycle) *filter.Store {
	store := filter.NewStore(logger, cfg.SearchDebounce, m)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			store.Close()
			return nil
		},
	})
	return store
}

func newListing(cfg *config.Config, client api.JobsClient, store *filter.Store, logger *zap.Logger, m *metrics.Metrics, lc fx.Lifecycle) *listing.Listing {
	l := listing.New(client, store, logger,
		listing.WithServerSideFilters(cfg.ServerSideFilters),
		listing.WithMetrics(m),
	)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			l.Close()
			return nil
		},
	})
	return l
}

func newSnapshotRecorder(cfg *config.Config, logger *zap.Logger, lc fx.Lifecycle) (dashboard.SnapshotRecorder, error) {
	if !cfg.SnapshotsEnabled {
		return dashboard.NewNoopRecorder(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.APITimeout)
	defer cancel()

	db, err := database.New(ctx, database.Options{
		DSN:             cfg.ClickHouseDSN,
		MaxOpenConns:    cfg.ClickHouseMaxOpenConns,
		MaxIdleConns:    cfg.ClickHouseMaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouseConnMaxLife,
		Username:        cfg.ClickHouseUsername,
		Password:        cfg.ClickHousePassword,
		Database:        cfg.ClickHouseDatabase,
	}, logger)
	if err != nil {
		return nil, err
	}
	if _, err := schema.NewMigrator(db.Conn(), logger).Migrate(ctx, migrations.All); err != nil {
		_ = db.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return db.Close() },
	})
	return dashboard.NewClickHouseRecorder(db.Conn(), logger), nil
}

func newDashboardService(client api.JobsClient, recorder dashboard.SnapshotRecorder, logger *zap.Logger) *dashboard.Service {
	return dashboard.NewService(client, recorder, logger)
}

// newNATSConnection returns a nil connection when events are disabled.
func newNATSConnection(cfg *config.Config, lc fx.Lifecycle) (*nats.Conn, error) {
	if !cfg.EventsEnabled {
		return nil, nil
	}
	nc, err := events.Connect(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return nc.Drain() },
	})
	return nc, nil
}

func newPublisher(nc *nats.Conn, logger *zap.Logger) events.Publisher {
	if nc == nil {
		return events.NewNoopPublisher()
	}
	return events.NewPublisher(nc, logger)
}

func newServer(cfg *config.Config, logger *zap.Logger, l *listing.Listing, store *filter.Store,
	client api.JobsClient, dashboards *dashboard.Service, publisher events.Publisher, m *metrics.Metrics) *server.Server {
	return server.New(cfg, logger, server.Deps{
		Listing:    l,
		Store:      store,
		Gateway:    client,
		Dashboards: dashboards,
		Publisher:  publisher,
		Metrics:    m,
	})
}

func startTracing(cfg *config.Config, logger *zap.Logger, lc fx.Lifecycle) error {
	shutdown, err := telemetry.InitTracer(context.Background(), cfg.ServiceName, cfg.OTELCollectorURL)
	if err != nil {
		return err
	}
	if cfg.OTELCollectorURL != "" {
		logger.Info("tracing enabled", zap.String("collector", cfg.OTELCollectorURL))
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			shutdown()
			return nil
		},
	})
	return nil
}

func registerSubscriptions(cfg *config.Config, nc *nats.Conn, l *listing.Listing, logger *zap.Logger, lc fx.Lifecycle) error {
	if nc == nil {
		return nil
	}
	return events.NewHandler(logger, nc, l, cfg).RegisterSubscriptions(lc)
}

func startScheduler(cfg *config.Config, l *listing.Listing, logger *zap.Logger, lc fx.Lifecycle) {
	s := scheduler.NewRefreshScheduler(l, logger, cfg.RefreshInterval)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := s.Start(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("refresh scheduler failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			s.Stop()
			return nil
		},
	})
}

func startServer(srv *server.Server, lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			srv.Start()
			return nil
		},
		OnStop: srv.Stop,
	})
}

func main() {
	app := fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Provide(
			config.LoadConfig,
			newLogger,
			newMetrics,
			newCache,
			newTokenStore,
			parser.New,
			api.NewJobsClient,
			newFilterStore,
			newListing,
			newSnapshotRecorder,
			newDashboardService,
			newNATSConnection,
			newPublisher,
			newServer,
		),
		fx.Invoke(
			startTracing,
			registerSubscriptions,
			startScheduler,
			startServer,
		),
	)

	startCtx := context.Background()
	if err := app.Start(startCtx); err != nil {
		log.Fatal(err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	stopCtx := context.Background()
	if err := app.Stop(stopCtx); err != nil {
		log.Fatal(err)
	}
}
