// Package ollama is a client for the local inference daemon's HTTP API.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tjfontaine/hvac-ai-gateway/internal/api"
)

const defaultBaseURL = "http://localhost:11434"

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client talks to a local inference daemon. It holds no credential.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new local daemon client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Options are the sampling parameters accepted by /api/generate.
type Options struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// GenerateRequest is a single-prompt completion request.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *Options `json:"options,omitempty"`
}

// GenerateResponse is the non-streaming /api/generate reply.
type GenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type pullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

type pullResponse struct {
	Status string `json:"status"`
}

// ListModels returns the names of the models installed on the host.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var raw json.RawMessage
	if err := api.DoJSON(ctx, c.httpClient, http.MethodGet, c.baseURL+"/api/tags", nil, nil, &raw, parseError); err != nil {
		return nil, err
	}

	names := gjson.GetBytes(raw, "models.#.name").Array()
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n.String())
	}
	return out, nil
}

// Pull downloads model onto the host and blocks until the daemon reports success.
func (c *Client) Pull(ctx context.Context, model string) error {
	var resp pullResponse
	req := &pullRequest{Model: model, Stream: false}
	if err := api.DoJSON(ctx, c.httpClient, http.MethodPost, c.baseURL+"/api/pull", nil, req, &resp, parseError); err != nil {
		return err
	}
	if resp.Status != "success" {
		return fmt.Errorf("pull %s: unexpected status %q", model, resp.Status)
	}
	return nil
}

// Generate sends a completion request.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	var resp GenerateResponse
	if err := api.DoJSON(ctx, c.httpClient, http.MethodPost, c.baseURL+"/api/generate", nil, req, &resp, parseError); err != nil {
		return nil, err
	}
	return &resp, nil
}

func parseError(body []byte) string {
	return gjson.GetBytes(body, "error").String()
}
