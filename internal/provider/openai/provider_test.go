package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjfontaine/hvac-ai-gateway/internal/config"
	"github.com/tjfontaine/hvac-ai-gateway/internal/domain"
)

type capture struct {
	calls   atomic.Int32
	auth    string
	request map[string]any
}

func newUpstream(t *testing.T, c *capture, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.calls.Add(1)
		c.auth = r.Header.Get("Authorization")
		assert.Equal(t, "/chat/completions", r.URL.Path)
		c.request = nil
		json.NewDecoder(r.Body).Decode(&c.request)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const okReply = `{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"Use a VRF system."},"finish_reason":"stop"}]}`

func newTestProvider(baseURL, apiKey string) *Provider {
	return New(config.ProviderConfig{
		Name:    domain.ProviderHostedA,
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   "gpt-4o-mini",
	})
}

func TestProvider_InitializeMissingKey(t *testing.T) {
	c := &capture{}
	srv := newUpstream(t, c, okReply)

	p := newTestProvider(srv.URL, "")
	ok, err := p.Initialize(context.Background())
	assert.False(t, ok)
	assert.Equal(t, domain.KindUpstreamUnavailable, domain.KindOf(err))
	assert.Zero(t, c.calls.Load())
}

func TestProvider_InitializeProbe(t *testing.T) {
	c := &capture{}
	srv := newUpstream(t, c, okReply)

	p := newTestProvider(srv.URL, "sk-test")
	ok, err := p.Initialize(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, p.Available())
	assert.Equal(t, "Bearer sk-test", c.auth)
	assert.Equal(t, 10.0, c.request["max_tokens"])
}

func TestProvider_GenerateUsesSystemRole(t *testing.T) {
	c := &capture{}
	srv := newUpstream(t, c, okReply)

	p := newTestProvider(srv.URL, "sk-test")
	_, err := p.Initialize(context.Background())
	require.NoError(t, err)

	text, err := p.Generate(context.Background(), "hi", domain.RequestContext{domain.SystemInfoKey: "SYS"})
	require.NoError(t, err)
	assert.Equal(t, "Use a VRF system.", text)

	messages := c.request["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, map[string]any{"role": "system", "content": "SYS"}, messages[0])
	assert.Equal(t, map[string]any{"role": "user", "content": "hi"}, messages[1])
	assert.Equal(t, 0.7, c.request["temperature"])
	assert.Equal(t, 0.9, c.request["top_p"])
	assert.Equal(t, 2048.0, c.request["max_tokens"])
}

func TestProvider_GenerateConfigOverrides(t *testing.T) {
	c := &capture{}
	srv := newUpstream(t, c, okReply)

	p := New(config.ProviderConfig{
		Name:        domain.ProviderHostedA,
		BaseURL:     srv.URL,
		APIKey:      "sk-test",
		Model:       "gpt-4o",
		MaxTokens:   512,
		Temperature: 0.2,
		TopP:        0.5,
	})
	_, err := p.Initialize(context.Background())
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), "hi", nil)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", c.request["model"])
	assert.Equal(t, 0.2, c.request["temperature"])
	assert.Equal(t, 0.5, c.request["top_p"])
	assert.Equal(t, 512.0, c.request["max_tokens"])
	assert.Len(t, c.request["messages"].([]any), 1, "no system message without system_info")
}

func TestProvider_GenerateNotReady(t *testing.T) {
	c := &capture{}
	srv := newUpstream(t, c, okReply)

	p := newTestProvider(srv.URL, "sk-test")
	_, err := p.Generate(context.Background(), "hi", nil)
	assert.Equal(t, domain.KindProviderNotReady, domain.KindOf(err))
	assert.Zero(t, c.calls.Load())
}

func TestProvider_GenerateUpstreamError(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
			return
		}
		w.Write([]byte(okReply))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, "sk-test")
	_, err := p.Initialize(context.Background())
	require.NoError(t, err)

	fail.Store(true)
	_, err = p.Generate(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
	assert.Contains(t, err.Error(), "Rate limit reached")
}

func TestProvider_AnalyzeHVACRawFallback(t *testing.T) {
	c := &capture{}
	srv := newUpstream(t, c, okReply)

	p := newTestProvider(srv.URL, "sk-test")
	_, err := p.Initialize(context.Background())
	require.NoError(t, err)

	result, err := p.AnalyzeHVAC(context.Background(), domain.HVACInput{"area": 100})
	require.NoError(t, err)
	assert.Equal(t, domain.RawAnalysis{
		Analysis: "Use a VRF system.",
		Provider: domain.ProviderHostedA,
		Model:    "gpt-4o-mini",
	}, result)

	messages := c.request["messages"].([]any)
	assert.Len(t, messages, 1, "analysis runs without caller context")
}
