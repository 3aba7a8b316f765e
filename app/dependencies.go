package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/upb/tron-node-provider/config"
	"github.com/upb/tron-node-provider/internal/observability"
	"github.com/upb/tron-node-provider/services/providers"
	"github.com/upb/tron-node-provider/services/providers/httpnode"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Metrics is never nil; MetricsRegistry is nil when metrics are disabled.
	Metrics         observability.Metrics
	MetricsRegistry *prometheus.Registry

	// Nodes binds one provider to each node role
	Nodes *providers.Registry

	closers []func()
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: observability.OrNop(logger),
	}

	// Initialize metrics
	if err := deps.initMetrics(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Initialize node providers
	if err := deps.initNodes(cfg); err != nil {
		deps.closeNodes()
		return nil, fmt.Errorf("failed to initialize nodes: %w", err)
	}

	deps.Logger.Info("all dependencies initialized successfully",
		zap.Int("nodes", deps.Nodes.Count()),
		zap.Bool("metrics", deps.MetricsRegistry != nil))
	return deps, nil
}

// initMetrics creates the Prometheus registry when metrics are enabled
func (d *Dependencies) initMetrics(cfg *config.Config) error {
	if !cfg.Observability.MetricsEnabled {
		d.Metrics = observability.NopMetrics{}
		return nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := observability.NewPrometheusMetrics(reg)
	if err != nil {
		return err
	}

	d.Metrics = metrics
	d.MetricsRegistry = reg
	return nil
}

// initNodes builds one HTTP provider per configured node role
func (d *Dependencies) initNodes(cfg *config.Config) error {
	registry := providers.NewRegistry()
	urls := cfg.Nodes.URLs()

	for _, role := range providers.Roles {
		nodeURL, ok := urls[role]
		if !ok || nodeURL == "" {
			d.Logger.Warn("node not configured", zap.String("role", string(role)))
			continue
		}

		provider, err := httpnode.New(nodeURL, httpnode.Config{
			Options:    cfg.Nodes.RequestOptions(),
			StatusPage: role.StatusPage(),
			Name:       string(role),
			Logger:     d.Logger.With(zap.String("role", string(role))),
			Metrics:    d.Metrics,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", role, err)
		}
		d.closers = append(d.closers, provider.Close)

		if err := registry.Register(role, provider); err != nil {
			return err
		}

		d.Logger.Info("registered node",
			zap.String("role", string(role)),
			zap.String("url", provider.NodeURL()))
	}

	d.Nodes = registry
	return nil
}

func (d *Dependencies) closeNodes() {
	for _, closeFn := range d.closers {
		closeFn()
	}
	d.closers = nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	d.closeNodes()

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return nil
}
