package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	apperrors "github.com/MojoAuth/connector-identity/internal/errors"
	"github.com/MojoAuth/connector-identity/internal/health"
	"github.com/MojoAuth/connector-identity/internal/identity"
	"github.com/MojoAuth/connector-identity/internal/ledger"
	"github.com/MojoAuth/connector-identity/internal/lifecycle"
	"github.com/MojoAuth/connector-identity/internal/scheduler"
	"github.com/MojoAuth/connector-identity/pkg/config"
	"github.com/MojoAuth/connector-identity/pkg/logger"
	"github.com/MojoAuth/connector-identity/pkg/redis"
)

// app holds the wired components shared by all commands.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	loop     *scheduler.Loop
	tracker  *identity.Tracker
	service  *identity.Service
	errs     *apperrors.Handler
	health   *health.Checker
	shutdown *lifecycle.Shutdown
}

func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	log, err := logger.NewWithWriter(logOut, cfg.Log)
	if err != nil {
		return nil, apperrors.NewConfigurationError("invalid log configuration", err)
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		shutdown: lifecycle.NewShutdown(log.Logger),
		health:   health.NewChecker(log.Logger),
	}
	a.shutdown.Register("logger", lifecycle.Closer(log.Close))

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			SampleRate:       cfg.Sentry.SampleRate,
			AttachStacktrace: true,
		}); err != nil {
			return nil, apperrors.NewConfigurationError("sentry init failed", err)
		}
		a.shutdown.Register("sentry", func(context.Context) error {
			sentry.Flush(2 * time.Second)
			return nil
		})
	}
	a.errs = apperrors.NewHandler(log.Logger, cfg.Sentry.Enabled)

	var store ledger.Store
	if cfg.Ledger.Enabled {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, apperrors.NewStoreError("connect", err)
		}
		a.shutdown.Register("redis", lifecycle.Closer(client.Close))

		redisStore := ledger.NewRedisStore(redis.NewMetricsClient(client), log.Logger,
			ledger.WithKeyPrefix(cfg.Ledger.KeyPrefix),
		)
		a.health.AddCheck("ledger", redisStore)
		store = redisStore
	}

	a.loop = scheduler.NewLoop(log.Logger)
	a.tracker = identity.NewTracker(a.loop, log.Logger)
	a.service = identity.NewService(a.tracker, store, cfg.Ledger.TTL, log.Logger)

	log.Debug("application wired",
		slog.String("env", cfg.AppEnv),
		slog.Bool("ledger", cfg.Ledger.Enabled),
		slog.Bool("sentry", cfg.Sentry.Enabled),
	)
	return a, nil
}

// close runs the shutdown hooks within the configured timeout.
func (a *app) close() error {
	timeout := a.cfg.App.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.shutdown.Execute(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// registerAll registers every config in the current window and reports
// each outcome through report. It returns the number of duplicates.
func (a *app) registerAll(ctx context.Context, configs []namedConfig, report func(source string, id identity.InstanceID, err error)) int {
	duplicates := 0
	for _, nc := range configs {
		id, err := a.service.Register(logger.WithCorrelationID(ctx, ""), nc.Config)
		if err != nil {
			if _, ok := apperrors.DuplicateInstanceID(err); ok {
				duplicates++
			}
			a.errs.Handle(ctx, err)
		}
		report(nc.Source, id, err)
	}
	return duplicates
}
