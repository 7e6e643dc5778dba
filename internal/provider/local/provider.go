// Package local adapts the on-host inference daemon to the provider contract.
package local

import (
	"context"
	"log/slog"
	"slices"

	"github.com/tjfontaine/hvac-ai-gateway/internal/api/ollama"
	"github.com/tjfontaine/hvac-ai-gateway/internal/config"
	"github.com/tjfontaine/hvac-ai-gateway/internal/domain"
	"github.com/tjfontaine/hvac-ai-gateway/internal/provider"
)

const defaultTopP = 0.9

// Provider implements provider.Adapter for the local daemon.
// The daemon only accepts a single prompt string, so system_info is
// prepended to the prompt.
type Provider struct {
	*provider.Base
	client *ollama.Client
}

var _ provider.Adapter = (*Provider)(nil)

// New creates a local daemon adapter.
func New(cfg config.ProviderConfig, opts ...provider.Option) *Provider {
	o := provider.ApplyOptions(cfg, opts...)

	var clientOpts []ollama.ClientOption
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, ollama.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, ollama.WithHTTPClient(o.HTTPClient))

	return &Provider{
		Base:   provider.NewBase(cfg, o.Logger),
		client: ollama.NewClient(clientOpts...),
	}
}

// Initialize lists installed models and pulls the configured one if it is
// missing, then records the result in the availability flag.
func (p *Provider) Initialize(ctx context.Context) (bool, error) {
	return p.Settle(p.check(ctx, true))
}

// Probe lists installed models and never pulls. A missing model reports the
// daemon unavailable.
func (p *Provider) Probe(ctx context.Context) error {
	return p.check(ctx, false)
}

func (p *Provider) check(ctx context.Context, pull bool) (err error) {
	ctx, span := p.StartSpan(ctx, "probe")
	defer func() { provider.EndSpan(span, err) }()

	models, err := p.client.ListModels(ctx)
	if err != nil {
		return domain.ErrUpstreamUnavailable(p.Name(), "listing models failed", err)
	}
	if hasModel(models, p.Model()) {
		return nil
	}
	if !pull {
		return domain.ErrUpstreamUnavailable(p.Name(), "model "+p.Model()+" not installed", nil)
	}

	p.Logger().Info("model not installed, pulling", slog.String("model", p.Model()))
	if err := p.client.Pull(ctx, p.Model()); err != nil {
		return domain.ErrUpstreamUnavailable(p.Name(), "pulling model failed", err)
	}
	return nil
}

// Generate sends system_info and prompt, joined by a blank line, as one prompt.
func (p *Provider) Generate(ctx context.Context, prompt string, rc domain.RequestContext) (text string, err error) {
	if err := p.CheckReady(prompt); err != nil {
		return "", err
	}

	ctx, span := p.StartSpan(ctx, "generate")
	defer func() { provider.EndSpan(span, err) }()

	resp, err := p.client.Generate(ctx, &ollama.GenerateRequest{
		Model:  p.Model(),
		Prompt: provider.JoinPrompt(rc.SystemInfo(), prompt),
		Stream: false,
		Options: &ollama.Options{
			Temperature: p.Temperature(),
			TopP:        p.TopP(defaultTopP),
			NumPredict:  p.MaxTokens(),
		},
	})
	if err != nil {
		return "", domain.ErrUpstream(p.Name(), err)
	}
	return resp.Response, nil
}

func (p *Provider) AnalyzeHVAC(ctx context.Context, input domain.HVACInput) (domain.Analysis, error) {
	return provider.AnalyzeHVAC(ctx, p, input)
}

// hasModel reports whether model is installed. An untagged name matches its :latest tag.
func hasModel(installed []string, model string) bool {
	return slices.Contains(installed, model) || slices.Contains(installed, model+":latest")
}
