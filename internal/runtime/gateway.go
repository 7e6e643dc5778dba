// Package runtime assembles the gateway from configuration and owns its
// lifecycle: provider initialization, the optional health checker, the
// audit store and the HTTP server.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/tjfontaine/hvac-ai-gateway/internal/config"
	"github.com/tjfontaine/hvac-ai-gateway/internal/domain"
	"github.com/tjfontaine/hvac-ai-gateway/internal/frontdoor"
	"github.com/tjfontaine/hvac-ai-gateway/internal/gateway"
	"github.com/tjfontaine/hvac-ai-gateway/internal/provider"
	"github.com/tjfontaine/hvac-ai-gateway/internal/registration"
	"github.com/tjfontaine/hvac-ai-gateway/internal/server"
	"github.com/tjfontaine/hvac-ai-gateway/internal/storage"
	"github.com/tjfontaine/hvac-ai-gateway/internal/storage/memory"
	"github.com/tjfontaine/hvac-ai-gateway/internal/storage/sqlite"
	"github.com/tjfontaine/hvac-ai-gateway/internal/telemetry"
	"github.com/tjfontaine/hvac-ai-gateway/internal/tokens"
)

// Gateway is the running HVAC AI gateway.
type Gateway struct {
	// Dependencies (injected via options)
	cfg          *config.Config
	logger       *slog.Logger
	metrics      *telemetry.Metrics
	store        storage.InteractionStore
	adapters     []provider.Adapter
	providerOpts []provider.Option

	// Built by Start
	manager *gateway.Manager
	service *gateway.Service
	health  *gateway.HealthChecker
	server  *server.Server

	mu      sync.Mutex
	started bool
}

// New creates a Gateway. WithConfig is required.
func New(opts ...Option) (*Gateway, error) {
	gw := &Gateway{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(gw); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if gw.cfg == nil {
		return nil, errors.New("config required (use WithConfig)")
	}
	if gw.metrics == nil {
		gw.metrics = telemetry.NewMetrics()
	}

	return gw, nil
}

// Start initializes every provider, then starts the health checker and the
// HTTP server. Provider failures are not fatal: the gateway serves with
// whatever initialized, including nothing.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return errors.New("gateway already started")
	}

	if g.store == nil {
		store, err := openStore(g.cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		g.store = store
	}

	if g.adapters == nil {
		opts := append([]provider.Option{provider.WithLogger(g.logger)}, g.providerOpts...)
		g.adapters = registration.BuildAdapters(g.cfg.Providers, opts...)
	}

	g.manager = gateway.NewManager(g.adapters,
		gateway.WithLogger(g.logger),
		gateway.WithMetrics(g.metrics),
		gateway.WithPrimaryOverride(domain.ProviderName(g.cfg.Gateway.PrimaryProvider)),
	)
	g.manager.InitializeAll(ctx)

	serviceOpts := []gateway.ServiceOption{
		gateway.WithTokenCounter(tokens.NewRegistry()),
		gateway.WithServiceMetrics(g.metrics),
		gateway.WithServiceLogger(g.logger),
	}
	handlerOpts := []frontdoor.Option{
		frontdoor.WithMetricsHandler(g.metrics.Handler()),
		frontdoor.WithLogger(g.logger),
	}
	if g.store != nil {
		serviceOpts = append(serviceOpts, gateway.WithStore(g.store))
		handlerOpts = append(handlerOpts, frontdoor.WithInteractionStore(g.store))
	}
	g.service = gateway.NewService(g.manager, serviceOpts...)

	if interval := g.cfg.Gateway.HealthCheckInterval; interval > 0 {
		g.health = gateway.NewHealthChecker(g.manager, interval,
			gateway.WithProbeTimeout(g.cfg.Gateway.HealthCheckTimeout),
			gateway.WithHealthMetrics(g.metrics),
			gateway.WithHealthLogger(g.logger),
		)
		if err := g.health.Start(); err != nil {
			return fmt.Errorf("start health checker: %w", err)
		}
	}

	g.server = server.New(g.cfg.Server.Port, g.cfg.Server.RequestTimeout, g.logger)
	frontdoor.NewHandler(g.service, handlerOpts...).Mount(g.server.Router)
	if err := g.server.Start(); err != nil {
		if g.health != nil {
			g.health.Stop()
		}
		return fmt.Errorf("start server: %w", err)
	}

	g.started = true
	g.logger.Info("gateway started",
		slog.Int("port", g.cfg.Server.Port),
		slog.Int("providers", len(g.adapters)),
		slog.Int("available", len(g.manager.AvailableProviders())),
		slog.String("storage", storageType(g.cfg.Storage)))

	return nil
}

// Shutdown stops the health checker, drains the HTTP server and closes the
// store. It is safe to call on a gateway that never started.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.logger.Info("shutting down gateway")

	if g.health != nil {
		g.health.Stop()
	}

	var errs []error
	if g.server != nil {
		if err := g.server.Shutdown(ctx); err != nil {
			g.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if g.store != nil {
		if err := g.store.Close(); err != nil {
			g.logger.Error("failed to close storage", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}

	g.started = false
	g.logger.Info("gateway shutdown complete")
	return errors.Join(errs...)
}

// Addr returns the HTTP listen address, or "" before Start.
func (g *Gateway) Addr() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.server == nil {
		return ""
	}
	return g.server.Addr()
}

// Service returns the operation service, or nil before Start.
func (g *Gateway) Service() *gateway.Service {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.service
}

// openStore returns nil for storage type none.
func openStore(cfg config.StorageConfig) (storage.InteractionStore, error) {
	switch storageType(cfg) {
	case "none":
		return nil, nil
	case "memory":
		return memory.New(), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage directory: %w", err)
			}
		}
		return sqlite.New(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage type %q (want none, memory or sqlite)", cfg.Type)
	}
}

func storageType(cfg config.StorageConfig) string {
	if cfg.Type == "" {
		return "none"
	}
	return cfg.Type
}
