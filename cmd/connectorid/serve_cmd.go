package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MojoAuth/connector-identity/internal/middleware"
	"github.com/MojoAuth/connector-identity/pkg/config"
	"github.com/MojoAuth/connector-identity/pkg/graceful"
	"github.com/MojoAuth/connector-identity/pkg/logger"
	"github.com/MojoAuth/connector-identity/pkg/metrics"
)

func newServeCmd(load configLoader) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [FILE...]",
		Short: "Track connector configurations continuously and expose /metrics and /healthz",
		Long: "Register the connector configurations in FILE on start and again whenever a file\n" +
			"changes. Each pass is one tracking window. Metrics and health are served over HTTP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, v, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Metrics.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			w := newFileWatcher(a, args)
			if err := w.start(); err != nil {
				return err
			}
			a.shutdown.Register("watcher", func(context.Context) error { return w.close() })
			a.health.AddCheck("scheduler", a.loop)

			if v != nil {
				config.Watch(v, a.log.Logger, func(next *config.Config) {
					if err := a.log.SetLevel(next.Log.Level); err != nil {
						a.log.Error("log level not applied", slog.Any("error", err))
						return
					}
					a.log.Info("log level applied", slog.String("level", next.Log.Level))
				})
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			mux.Handle("/healthz", a.health.Handler())
			srv := graceful.NewServer(a.log.Logger, &http.Server{
				Addr:              cfg.Metrics.Addr,
				Handler:           logger.Middleware(middleware.Logging(a.log.Logger)(mux)),
				ReadHeaderTimeout: 5 * time.Second,
			}, cfg.App.ShutdownTimeout)

			a.log.Info("connectorid serving",
				slog.String("addr", cfg.Metrics.Addr),
				slog.Int("files", len(args)),
			)

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error { return a.loop.Run(egCtx) })
			eg.Go(func() error { return srv.ListenAndServe(egCtx) })
			eg.Go(func() error { return w.run(egCtx) })
			w.requestPass(egCtx)

			runErr := eg.Wait()
			if errors.Is(runErr, context.Canceled) {
				runErr = nil
			}
			return errors.Join(runErr, a.close())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address for /metrics and /healthz, overrides metrics.addr")
	return cmd
}
