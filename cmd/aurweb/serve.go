// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/aurweb/aurweb/internal/auth"
	"github.com/aurweb/aurweb/internal/config"
	"github.com/aurweb/aurweb/internal/logging"
	"github.com/aurweb/aurweb/internal/observability"
	"github.com/aurweb/aurweb/internal/web"
)

const shutdownTimeout = 10 * time.Second

// serveDeps are injectable dependencies of the serve command. Nil fields use
// the defaults.
type serveDeps struct {
	// OpenRepositories defaults to openPostgres.
	OpenRepositories func(ctx context.Context, databaseURL string) (*repositories, error)

	// Listen defaults to net.Listen on tcp.
	Listen func(addr string) (net.Listener, error)

	// LogWriter defaults to the command's stderr.
	LogWriter io.Writer

	// Started, when set, receives the bound web address.
	Started func(addr string)
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the login, session and account endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, cmd, nil)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *serveDeps) error {
	if deps == nil {
		deps = &serveDeps{}
	}
	if deps.OpenRepositories == nil {
		deps.OpenRepositories = openPostgres
	}
	if deps.Listen == nil {
		deps.Listen = func(addr string) (net.Listener, error) { return net.Listen("tcp", addr) }
	}
	if deps.LogWriter == nil {
		deps.LogWriter = cmd.ErrOrStderr()
	}

	if err := cfg.Validate(); err != nil {
		return err //nolint:wrapcheck // CONFIG_INVALID already set
	}
	logger, err := logging.SetDefault(logging.Options{
		Service: "aurweb",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  deps.LogWriter,
	})
	if err != nil {
		return err //nolint:wrapcheck // logging errors carry codes
	}

	repos, err := deps.OpenRepositories(ctx, cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open repositories").Wrap(err)
	}
	if repos.Close != nil {
		defer repos.Close()
	}

	svc, err := newServices(cfg, repos, logger)
	if err != nil {
		return err
	}

	var metrics *observability.Metrics
	if cfg.Server.MetricsAddr != "" {
		obs := observability.NewServer(cfg.Server.MetricsAddr, repos.Ready,
			observability.WithCollectors(auth.RegisterMetrics),
			observability.WithLogger(logger),
		)
		if _, err := obs.Start(); err != nil {
			return err //nolint:wrapcheck // observability errors carry codes
		}
		defer stopWithTimeout(logger, "observability server", obs.Stop)
		metrics = obs.Metrics()
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := web.NewRouter(web.Dependencies{
		Gate:           svc.Gate,
		Resolver:       svc.Resolver,
		Resets:         svc.Resets,
		Registrations:  svc.Registrations,
		Metrics:        metrics,
		Logger:         logger,
		SecureCookies:  cfg.Server.SecureCookies,
		TrustedProxies: cfg.Server.TrustedProxies,
	})
	if err != nil {
		return err //nolint:wrapcheck // web errors carry codes
	}

	listener, err := deps.Listen(cfg.Server.Addr)
	if err != nil {
		return oops.Code("SERVE_LISTEN_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	}
	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	logger.Info("aurweb serving", "addr", listener.Addr().String(), "metrics_addr", cfg.Server.MetricsAddr)
	if deps.Started != nil {
		deps.Started(listener.Addr().String())
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return oops.Code("SERVE_FAILED").Wrap(err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return oops.Code("SERVE_SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}

func stopWithTimeout(logger *slog.Logger, name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		logger.Error("stop failed", "component", name, "error", err)
	}
}

