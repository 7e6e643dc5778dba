// Package provider defines the adapter contract every upstream model
// provider implements, and the state and helpers the adapters share.
//
// # Adding a New Provider
//
// Implement Adapter in a subpackage, embed *Base for the configuration and
// availability flag, and delegate AnalyzeHVAC to provider.AnalyzeHVAC so the
// analysis prompt and extraction stay identical across upstreams. Wire the
// constructor into internal/registration so the gateway builds it at startup.
package provider

import (
	"context"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/hvac-ai-gateway/internal/analysis"
	"github.com/tjfontaine/hvac-ai-gateway/internal/config"
	"github.com/tjfontaine/hvac-ai-gateway/internal/domain"
)

// Default generation parameters, applied unless the provider config overrides them.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

// Adapter hides one upstream model API behind the gateway's contract.
// Implementations must be safe for concurrent use.
type Adapter interface {
	Name() domain.ProviderName
	Model() string
	BaseURL() string

	// Available reports the availability flag. Generate and AnalyzeHVAC
	// fail with ProviderNotReady while it is false.
	Available() bool

	// SetAvailable overwrites the availability flag and returns the new value.
	SetAvailable(ok bool) bool

	// Initialize probes the upstream and sets the availability flag from the result.
	Initialize(ctx context.Context) (bool, error)

	// Probe checks the upstream without touching the flag or changing upstream state.
	Probe(ctx context.Context) error

	// Generate returns the upstream completion text, unmodified.
	Generate(ctx context.Context, prompt string, rc domain.RequestContext) (string, error)

	// AnalyzeHVAC returns a StructuredAnalysis, or a RawAnalysis when the
	// reply carried no parseable JSON object.
	AnalyzeHVAC(ctx context.Context, input domain.HVACInput) (domain.Analysis, error)
}

// Base carries the configuration and availability flag shared by all adapters.
// The flag is atomic because the health checker may flip it while requests read it.
type Base struct {
	cfg       config.ProviderConfig
	available atomic.Bool
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewBase creates the shared adapter state. The adapter starts unavailable.
func NewBase(cfg config.ProviderConfig, logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{
		cfg:    cfg,
		logger: logger.With(slog.String("provider", string(cfg.Name))),
		tracer: otel.Tracer("github.com/tjfontaine/hvac-ai-gateway/internal/provider"),
	}
}

func (b *Base) Name() domain.ProviderName     { return b.cfg.Name }
func (b *Base) Model() string                 { return b.cfg.Model }
func (b *Base) BaseURL() string               { return b.cfg.BaseURL }
func (b *Base) Config() config.ProviderConfig { return b.cfg }
func (b *Base) Logger() *slog.Logger          { return b.logger }
func (b *Base) Available() bool               { return b.available.Load() }

// SetAvailable records the result of a probe and returns it.
func (b *Base) SetAvailable(ok bool) bool {
	if prev := b.available.Swap(ok); prev != ok {
		b.logger.Info("provider availability changed", slog.Bool("available", ok))
	}
	return ok
}

// Settle records the outcome of a probe in the availability flag.
func (b *Base) Settle(err error) (bool, error) {
	if err != nil {
		b.SetAvailable(false)
		return false, err
	}
	return b.SetAvailable(true), nil
}

// CheckReady returns ProviderNotReady while the availability flag is false,
// and InvalidRequest for an empty prompt.
func (b *Base) CheckReady(prompt string) error {
	if !b.Available() {
		return domain.ErrProviderNotReady(b.cfg.Name)
	}
	if prompt == "" {
		return domain.ErrInvalidRequest("prompt must not be empty")
	}
	return nil
}

// Temperature returns the configured temperature or DefaultTemperature.
func (b *Base) Temperature() float64 {
	if b.cfg.Temperature > 0 {
		return b.cfg.Temperature
	}
	return DefaultTemperature
}

// TopP returns the configured top-p or the upstream-specific default.
func (b *Base) TopP(upstreamDefault float64) float64 {
	if b.cfg.TopP > 0 {
		return b.cfg.TopP
	}
	return upstreamDefault
}

// MaxTokens returns the configured output limit or DefaultMaxTokens.
func (b *Base) MaxTokens() int {
	if b.cfg.MaxTokens > 0 {
		return b.cfg.MaxTokens
	}
	return DefaultMaxTokens
}

// StartSpan starts a span for an upstream operation.
func (b *Base) StartSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return b.tracer.Start(ctx, "provider."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gateway.provider", string(b.cfg.Name)),
			attribute.String("gateway.model", b.cfg.Model),
		),
	)
}

// EndSpan records err on span and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// AnalyzeHVAC runs the shared analysis flow on a: fixed prompt, Generate
// without caller context, then structured extraction.
func AnalyzeHVAC(ctx context.Context, a Adapter, input domain.HVACInput) (domain.Analysis, error) {
	text, err := a.Generate(ctx, analysis.BuildPrompt(input), nil)
	if err != nil {
		return nil, err
	}
	return analysis.Extract(text, a.Name(), a.Model()), nil
}

// JoinPrompt maps a (system, user) pair onto upstreams that accept a single
// prompt string: system first, a blank line, then the prompt.
func JoinPrompt(systemInfo, prompt string) string {
	if systemInfo == "" {
		return prompt
	}
	return systemInfo + "\n\n" + prompt
}
