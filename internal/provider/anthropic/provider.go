// Package anthropic adapts hosted-b, an Anthropic Messages upstream, to the provider contract.
package anthropic

import (
	"context"
	"errors"

	anthropicapi "github.com/tjfontaine/hvac-ai-gateway/internal/api/anthropic"
	"github.com/tjfontaine/hvac-ai-gateway/internal/config"
	"github.com/tjfontaine/hvac-ai-gateway/internal/domain"
	"github.com/tjfontaine/hvac-ai-gateway/internal/provider"
)

const (
	defaultTopP    = 0.9
	probeMaxTokens = 10
	probePrompt    = "Hello"
)

// Provider implements provider.Adapter using the Messages API.
// system_info travels in the top-level system field.
type Provider struct {
	*provider.Base
	client *anthropicapi.Client
}

var _ provider.Adapter = (*Provider)(nil)

// New creates a hosted-b adapter.
func New(cfg config.ProviderConfig, opts ...provider.Option) *Provider {
	o := provider.ApplyOptions(cfg, opts...)

	var clientOpts []anthropicapi.ClientOption
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, anthropicapi.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, anthropicapi.WithHTTPClient(o.HTTPClient))

	return &Provider{
		Base:   provider.NewBase(cfg, o.Logger),
		client: anthropicapi.NewClient(cfg.APIKey, clientOpts...),
	}
}

// Initialize probes the upstream and records the result in the availability flag.
func (p *Provider) Initialize(ctx context.Context) (bool, error) {
	return p.Settle(p.Probe(ctx))
}

// Probe sends a 10-token message to verify the credential and reachability.
// A missing credential fails without a request.
func (p *Provider) Probe(ctx context.Context) (err error) {
	if p.Config().APIKey == "" {
		return domain.ErrUpstreamUnavailable(p.Name(), "missing HOSTED_B_API_KEY", nil)
	}

	ctx, span := p.StartSpan(ctx, "probe")
	defer func() { provider.EndSpan(span, err) }()

	if _, err := p.complete(ctx, "", probePrompt, probeMaxTokens); err != nil {
		return domain.ErrUpstreamUnavailable(p.Name(), "probe message failed", err)
	}
	return nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, rc domain.RequestContext) (text string, err error) {
	if err := p.CheckReady(prompt); err != nil {
		return "", err
	}

	ctx, span := p.StartSpan(ctx, "generate")
	defer func() { provider.EndSpan(span, err) }()

	text, err = p.complete(ctx, rc.SystemInfo(), prompt, p.MaxTokens())
	if err != nil {
		return "", domain.ErrUpstream(p.Name(), err)
	}
	return text, nil
}

func (p *Provider) AnalyzeHVAC(ctx context.Context, input domain.HVACInput) (domain.Analysis, error) {
	return provider.AnalyzeHVAC(ctx, p, input)
}

func (p *Provider) complete(ctx context.Context, systemInfo, prompt string, maxTokens int) (string, error) {
	temperature := p.Temperature()
	topP := p.TopP(defaultTopP)
	resp, err := p.client.CreateMessage(ctx, &anthropicapi.MessagesRequest{
		Model:       p.Model(),
		System:      systemInfo,
		Messages:    []anthropicapi.Message{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: &temperature,
		TopP:        &topP,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", errors.New("response contained no content blocks")
	}
	return resp.Text(), nil
}
