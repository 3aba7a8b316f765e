package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/upb/tron-node-provider/app"
	"github.com/upb/tron-node-provider/config"
	"github.com/upb/tron-node-provider/internal/observability"
	"github.com/upb/tron-node-provider/routes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "node-gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New(ctx)
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.Observability)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", zap.Error(err))
		return err
	}
	defer func() { _ = deps.Close(context.Background()) }()

	servers := []*http.Server{newServer(cfg.Server, cfg.Server.Address(), routes.SetupRoutes(deps))}
	if metricsAddr, ok := metricsAddress(cfg); ok {
		servers = append(servers, newServer(cfg.Server, metricsAddr, routes.MetricsHandler(deps)))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			logger.Info("listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	// Either a signal or a failed listener stops every server.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown failed", zap.String("addr", srv.Addr), zap.Error(err))
			}
		}
		return nil
	})

	err = g.Wait()
	if err != nil {
		logger.Error("server failed", zap.Error(err))
	}
	logger.Info("node-gateway stopped")
	return err
}

// initLogger builds the process logger from the observability settings
func initLogger(cfg config.ObservabilityConfig) (*zap.Logger, error) {
	level := cfg.LogLevel
	if level == "" {
		level = "info"
	}
	format := cfg.LogFormat
	if format == "" {
		format = "json"
	}
	return observability.NewLogger(level, format)
}

func newServer(cfg config.ServerConfig, addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
}

// metricsAddress returns the dedicated metrics listener address. /metrics is
// always mounted on the main router too, so no listener is needed when the
// ports coincide.
func metricsAddress(cfg *config.Config) (string, bool) {
	obs := cfg.Observability
	if !obs.MetricsEnabled || obs.MetricsPort == 0 || obs.MetricsPort == cfg.Server.Port {
		return "", false
	}
	return cfg.Server.Host + ":" + strconv.Itoa(obs.MetricsPort), true
}
