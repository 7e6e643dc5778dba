package frontdoor

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjfontaine/hvac-ai-gateway/internal/domain"
)

func TestHandleToolCall_Generate(t *testing.T) {
	ops := &stubOps{generateResult: domain.GatewayResult{Success: true, Response: "ok", ProviderUsed: domain.ProviderLocal}}
	rec := do(t, newRouter(t, ops), http.MethodPost, "/tools/call",
		`{"name":"ai_generate","arguments":{"prompt":"hello","context":{"system_info":"custom"}}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"response":"ok","provider_used":"local"}`, rec.Body.String())
	require.Len(t, ops.generate, 1)
	assert.Equal(t, "hello", ops.generate[0].Prompt)
	assert.Equal(t, "custom", ops.generate[0].Context.SystemInfo())
}

func TestHandleToolCall_Analyze(t *testing.T) {
	ops := &stubOps{analyzeResult: domain.GatewayResult{Error: "No AI providers available"}}
	rec := do(t, newRouter(t, ops), http.MethodPost, "/tools/call",
		`{"name":"ai_hvac_analyze","arguments":{"hvac_data":{"area":80},"provider":"hosted-c","analysis_type":"compliance"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"No AI providers available"}`, rec.Body.String())
	require.Len(t, ops.analyze, 1)
	assert.Equal(t, domain.ProviderHostedC, ops.analyze[0].Provider)
	assert.Equal(t, "compliance", ops.analyze[0].AnalysisType)
}

func TestHandleToolCall_StatusWithoutArguments(t *testing.T) {
	h := newRouter(t, &stubOps{status: sampleStatus()})

	for _, body := range []string{`{"name":"ai_providers_status"}`, `{"name":"ai_providers_status","arguments":null}`} {
		rec := do(t, h, http.MethodPost, "/tools/call", body)
		require.Equal(t, http.StatusOK, rec.Code)

		var got map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, true, got["success"])
		assert.Contains(t, got, "recommendations")
	}
}

func TestHandleToolCall_Errors(t *testing.T) {
	ops := &stubOps{}
	h := newRouter(t, ops)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown tool", `{"name":"hvac_sizing","arguments":{}}`, "Unknown tool: hvac_sizing"},
		{"missing name", `{"arguments":{}}`, "Unknown tool: "},
		{"bad arguments", `{"name":"ai_generate","arguments":{"prompt":["x"]}}`, "invalid arguments"},
		{"bad body", `not json`, "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/tools/call", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
	assert.Empty(t, ops.generate)
}

func TestHandleListTools(t *testing.T) {
	rec := do(t, newRouter(t, &stubOps{}), http.MethodGet, "/tools/list", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tools []struct {
			Name        string         `json:"name"`
			Description string         `json:"description"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Tools, 3)

	names := []string{body.Tools[0].Name, body.Tools[1].Name, body.Tools[2].Name}
	assert.Equal(t, []string{"ai_generate", "ai_hvac_analyze", "ai_providers_status"}, names)

	generate := body.Tools[0].InputSchema
	assert.Equal(t, "object", generate["type"])
	assert.Equal(t, []any{"prompt"}, generate["required"])
	props := generate["properties"].(map[string]any)
	assert.Contains(t, props, "context")
	provider := props["provider"].(map[string]any)
	assert.Equal(t, []any{"local", "hosted-a", "hosted-b", "hosted-c"}, provider["enum"])

	analyze := body.Tools[1].InputSchema
	assert.Equal(t, []any{"hvac_data"}, analyze["required"])
	analysisType := analyze["properties"].(map[string]any)["analysis_type"].(map[string]any)
	assert.Equal(t, []any{"basic", "detailed", "compliance"}, analysisType["enum"])

	assert.Equal(t, "object", body.Tools[2].InputSchema["type"])
}
