// Package gemini adapts hosted-c, a Gemini generateContent upstream, to the provider contract.
package gemini

import (
	"context"
	"errors"

	geminiapi "github.com/tjfontaine/hvac-ai-gateway/internal/api/gemini"
	"github.com/tjfontaine/hvac-ai-gateway/internal/config"
	"github.com/tjfontaine/hvac-ai-gateway/internal/domain"
	"github.com/tjfontaine/hvac-ai-gateway/internal/provider"
)

const (
	defaultTopP    = 0.8
	probeMaxTokens = 10
	probePrompt    = "Hello"
)

// Provider implements provider.Adapter using generateContent.
// system_info travels as systemInstruction.
type Provider struct {
	*provider.Base
	client *geminiapi.Client
}

var _ provider.Adapter = (*Provider)(nil)

// New creates a hosted-c adapter.
func New(cfg config.ProviderConfig, opts ...provider.Option) *Provider {
	o := provider.ApplyOptions(cfg, opts...)

	var clientOpts []geminiapi.ClientOption
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, geminiapi.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, geminiapi.WithHTTPClient(o.HTTPClient))

	return &Provider{
		Base:   provider.NewBase(cfg, o.Logger),
		client: geminiapi.NewClient(cfg.APIKey, clientOpts...),
	}
}

// Initialize probes the upstream and records the result in the availability flag.
func (p *Provider) Initialize(ctx context.Context) (bool, error) {
	return p.Settle(p.Probe(ctx))
}

// Probe sends a 10-token request to verify the credential and reachability.
// A missing credential fails without a request.
func (p *Provider) Probe(ctx context.Context) (err error) {
	if p.Config().APIKey == "" {
		return domain.ErrUpstreamUnavailable(p.Name(), "missing HOSTED_C_API_KEY", nil)
	}

	ctx, span := p.StartSpan(ctx, "probe")
	defer func() { provider.EndSpan(span, err) }()

	if _, err := p.complete(ctx, "", probePrompt, probeMaxTokens); err != nil {
		return domain.ErrUpstreamUnavailable(p.Name(), "probe request failed", err)
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
	req := &geminiapi.GenerateContentRequest{
		Contents: []geminiapi.Content{{
			Role:  "user",
			Parts: []geminiapi.Part{{Text: prompt}},
		}},
		GenerationConfig: &geminiapi.GenerationConfig{
			Temperature:     &temperature,
			TopP:            &topP,
			MaxOutputTokens: maxTokens,
		},
	}
	if systemInfo != "" {
		req.SystemInstruction = &geminiapi.Content{Parts: []geminiapi.Part{{Text: systemInfo}}}
	}

	resp, err := p.client.GenerateContent(ctx, p.Model(), req)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("response contained no candidates")
	}
	return resp.Text(), nil
}
