package provider

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/tjfontaine/hvac-ai-gateway/internal/config"
)

const defaultTimeout = 120 * time.Second

// Option configures an adapter.
type Option func(*Options)

// Options holds the collaborators injected into an adapter.
type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// WithHTTPClient sets the HTTP client used for upstream calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = httpClient
	}
}

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// ApplyOptions resolves opts against cfg. Without an explicit client the
// adapter gets its own client carrying the configured per-request timeout.
func ApplyOptions(cfg config.ProviderConfig, opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.HTTPClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		o.HTTPClient = &http.Client{Timeout: timeout}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
