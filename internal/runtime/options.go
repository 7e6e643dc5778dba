package runtime

import (
	"errors"
	"log/slog"

	"github.com/tjfontaine/hvac-ai-gateway/internal/config"
	"github.com/tjfontaine/hvac-ai-gateway/internal/provider"
	"github.com/tjfontaine/hvac-ai-gateway/internal/storage"
	"github.com/tjfontaine/hvac-ai-gateway/internal/telemetry"
)

// Option is a functional option for configuring a Gateway.
type Option func(*Gateway) error

// WithConfig sets the gateway configuration (required).
func WithConfig(cfg *config.Config) Option {
	return func(g *Gateway) error {
		if cfg == nil {
			return errors.New("config is nil")
		}
		g.cfg = cfg
		return nil
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		if logger != nil {
			g.logger = logger
		}
		return nil
	}
}

// WithMetrics uses metrics instead of a fresh registry.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(g *Gateway) error {
		g.metrics = metrics
		return nil
	}
}

// WithStore uses store for the audit log instead of the configured storage.
// The gateway closes it on Shutdown.
func WithStore(store storage.InteractionStore) Option {
	return func(g *Gateway) error {
		g.store = store
		return nil
	}
}

// WithAdapters replaces the built-in provider adapters. The slice order is
// the construction order.
func WithAdapters(adapters ...provider.Adapter) Option {
	return func(g *Gateway) error {
		if len(adapters) == 0 {
			return errors.New("at least one adapter required")
		}
		g.adapters = adapters
		return nil
	}
}

// WithProviderOptions passes opts to every built-in adapter.
func WithProviderOptions(opts ...provider.Option) Option {
	return func(g *Gateway) error {
		g.providerOpts = append(g.providerOpts, opts...)
		return nil
	}
}
