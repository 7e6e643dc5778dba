// Package registration constructs the built-in provider adapters.
package registration

import (
	"github.com/tjfontaine/hvac-ai-gateway/internal/config"
	"github.com/tjfontaine/hvac-ai-gateway/internal/domain"
	"github.com/tjfontaine/hvac-ai-gateway/internal/provider"
	"github.com/tjfontaine/hvac-ai-gateway/internal/provider/anthropic"
	"github.com/tjfontaine/hvac-ai-gateway/internal/provider/gemini"
	"github.com/tjfontaine/hvac-ai-gateway/internal/provider/local"
	"github.com/tjfontaine/hvac-ai-gateway/internal/provider/openai"
)

// Constructor builds an adapter from its configuration.
type Constructor func(cfg config.ProviderConfig, opts ...provider.Option) provider.Adapter

// Builtins maps each provider name to its constructor.
var Builtins = map[domain.ProviderName]Constructor{
	domain.ProviderLocal: func(cfg config.ProviderConfig, opts ...provider.Option) provider.Adapter {
		return local.New(cfg, opts...)
	},
	domain.ProviderHostedA: func(cfg config.ProviderConfig, opts ...provider.Option) provider.Adapter {
		return openai.New(cfg, opts...)
	},
	domain.ProviderHostedB: func(cfg config.ProviderConfig, opts ...provider.Option) provider.Adapter {
		return anthropic.New(cfg, opts...)
	},
	domain.ProviderHostedC: func(cfg config.ProviderConfig, opts ...provider.Option) provider.Adapter {
		return gemini.New(cfg, opts...)
	},
}

// BuildAdapters creates one adapter per built-in provider, in construction
// order. The order decides the default primary provider.
func BuildAdapters(cfg config.ProvidersConfig, opts ...provider.Option) []provider.Adapter {
	adapters := make([]provider.Adapter, 0, len(domain.ProviderOrder))
	for _, pc := range cfg.Ordered() {
		build, ok := Builtins[pc.Name]
		if !ok {
			continue
		}
		adapters = append(adapters, build(pc, opts...))
	}
	return adapters
}
