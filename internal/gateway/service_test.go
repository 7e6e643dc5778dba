package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjfontaine/hvac-ai-gateway/internal/analysis"
	"github.com/tjfontaine/hvac-ai-gateway/internal/domain"
	"github.com/tjfontaine/hvac-ai-gateway/internal/storage"
	"github.com/tjfontaine/hvac-ai-gateway/internal/storage/memory"
	"github.com/tjfontaine/hvac-ai-gateway/internal/telemetry"
	"github.com/tjfontaine/hvac-ai-gateway/internal/tokens"
)

const detailedReply = ` Some preamble {"recommended_system":"VRF","required_capacity_kw":12,"estimated_cost_usd":15000,"energy_efficiency_class":"A","annual_savings_percent":25,"dbn_compliance":true,"recommendations":["R1"]} trailing`

func TestService_Generate(t *testing.T) {
	t.Run("named provider", func(t *testing.T) {
		m, fakes := fourUp(nil)
		svc := NewService(m, WithServiceLogger(discard))

		result := svc.Generate(context.Background(), GenerateRequest{Prompt: "hi", Provider: hostedB})

		assert.Equal(t, domain.GatewayResult{
			Success:      true,
			Response:     "reply from hosted-b",
			ProviderUsed: hostedB,
		}, result)
		assert.Zero(t, fakes[local].callCount())
	})

	t.Run("named provider failure does not fall back", func(t *testing.T) {
		log := &callLog{}
		m, fakes := fourUp(log)
		fakes[hostedB].genErr = errors.New("overloaded")
		svc := NewService(m, WithServiceLogger(discard))

		result := svc.Generate(context.Background(), GenerateRequest{Prompt: "hi", Provider: hostedB})

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "overloaded")
		assert.Equal(t, []domain.ProviderName{hostedB}, log.get())
	})

	t.Run("unknown provider", func(t *testing.T) {
		m, _ := fourUp(nil)
		svc := NewService(m, WithServiceLogger(discard))

		result := svc.Generate(context.Background(), GenerateRequest{Prompt: "hi", Provider: "hosted-z"})

		assert.Equal(t, domain.GatewayResult{Error: "Provider hosted-z not found"}, result)
	})

	t.Run("fallback without provider", func(t *testing.T) {
		m, fakes := fourUp(nil)
		fakes[local].genErr = errors.New("down")
		svc := NewService(m, WithServiceLogger(discard))

		result := svc.Generate(context.Background(), GenerateRequest{Prompt: "hi"})

		assert.True(t, result.Success)
		assert.Equal(t, hostedA, result.ProviderUsed)
	})

	t.Run("empty prompt", func(t *testing.T) {
		log := &callLog{}
		m, _ := fourUp(log)
		svc := NewService(m, WithServiceLogger(discard))

		result := svc.Generate(context.Background(), GenerateRequest{})

		assert.False(t, result.Success)
		assert.Equal(t, "prompt is required", result.Error)
		assert.Empty(t, log.get())
	})
}

func TestService_GenerateContextPreservation(t *testing.T) {
	m, fakes := fourUp(nil)
	svc := NewService(m, WithServiceLogger(discard))

	t.Run("caller system_info replaces the default", func(t *testing.T) {
		caller := domain.RequestContext{domain.SystemInfoKey: "S", "k": "V"}
		svc.Generate(context.Background(), GenerateRequest{Prompt: "hi", Provider: hostedA, Context: caller})

		got := fakes[hostedA].contexts[len(fakes[hostedA].contexts)-1]
		assert.Equal(t, domain.RequestContext{domain.SystemInfoKey: "S", "k": "V"}, got)
		assert.Equal(t, domain.RequestContext{domain.SystemInfoKey: "S", "k": "V"}, caller, "caller context untouched")
	})

	t.Run("default system_info merged", func(t *testing.T) {
		caller := domain.RequestContext{"k": "V"}
		svc.Generate(context.Background(), GenerateRequest{Prompt: "hi", Provider: hostedA, Context: caller})

		got := fakes[hostedA].contexts[len(fakes[hostedA].contexts)-1]
		assert.Equal(t, domain.RequestContext{domain.SystemInfoKey: analysis.SystemContext, "k": "V"}, got)
		assert.NotContains(t, caller, domain.SystemInfoKey)
	})

	t.Run("no cross-request state", func(t *testing.T) {
		svc.Generate(context.Background(), GenerateRequest{Prompt: "one", Provider: hostedC, Context: domain.RequestContext{"first": 1}})
		svc.Generate(context.Background(), GenerateRequest{Prompt: "two", Provider: hostedC, Context: domain.RequestContext{"second": 2}})

		contexts := fakes[hostedC].contexts
		require.Len(t, contexts, 2)
		assert.Equal(t, domain.RequestContext{domain.SystemInfoKey: analysis.SystemContext, "first": 1}, contexts[0])
		assert.Equal(t, domain.RequestContext{domain.SystemInfoKey: analysis.SystemContext, "second": 2}, contexts[1])
	})
}

func TestService_AnalyzeHVAC_NoProviders(t *testing.T) {
	l := newFake(local, nil)
	l.initErr = errors.New("down")
	a := newFake(hostedA, nil)
	a.initErr = errors.New("missing key")
	m := NewManager(adapters(l, a), WithLogger(discard))
	m.InitializeAll(context.Background())
	svc := NewService(m, WithServiceLogger(discard))

	result := svc.AnalyzeHVAC(context.Background(), AnalyzeRequest{
		HVACData: domain.HVACInput{"area": 100, "occupancy": 10, "climate_zone": "temperate"},
	})

	assert.Equal(t, domain.GatewayResult{Error: "No AI providers available"}, result)
}

func TestService_AnalyzeHVAC_Detailed(t *testing.T) {
	m, fakes := fourUp(nil)
	fakes[hostedA].reply = detailedReply
	svc := NewService(m, WithServiceLogger(discard))

	hvacData := domain.HVACInput{"area": 100, "occupancy": 10, "climate_zone": "temperate"}
	result := svc.AnalyzeHVAC(context.Background(), AnalyzeRequest{
		HVACData:     hvacData,
		Provider:     hostedA,
		AnalysisType: AnalysisDetailed,
	})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, hostedA, result.ProviderUsed)
	assert.Equal(t, AnalysisDetailed, result.AnalysisType)

	structured, ok := result.Analysis.(domain.StructuredAnalysis)
	require.True(t, ok, "expected structured analysis, got %T", result.Analysis)
	system, _ := structured.RecommendedSystem()
	assert.Equal(t, "VRF", system)
	capacity, _ := structured.RequiredCapacityKW()
	assert.Equal(t, 12.0, capacity)

	require.Len(t, fakes[hostedA].inputs, 1)
	input := fakes[hostedA].inputs[0]
	assert.Equal(t, "detailed", input["analysis_depth"])
	assert.Equal(t, true, input["include_economics"])
	assert.Equal(t, true, input["include_compliance"])
	assert.Equal(t, 100, input["area"])

	assert.NotContains(t, hvacData, "analysis_depth", "caller input untouched")
}

func TestService_AnalyzeHVAC(t *testing.T) {
	t.Run("first available uses the primary", func(t *testing.T) {
		l := newFake(local, nil)
		l.initErr = errors.New("down")
		b := newFake(hostedB, nil)
		c := newFake(hostedC, nil)
		m := NewManager(adapters(l, b, c), WithLogger(discard))
		m.InitializeAll(context.Background())
		svc := NewService(m, WithServiceLogger(discard))

		result := svc.AnalyzeHVAC(context.Background(), AnalyzeRequest{HVACData: domain.HVACInput{"area": 50}})

		require.True(t, result.Success)
		assert.Equal(t, hostedB, result.ProviderUsed)
		assert.Equal(t, AnalysisBasic, result.AnalysisType)
		assert.Equal(t, domain.RawAnalysis{
			Analysis: "reply from hosted-b",
			Provider: hostedB,
			Model:    "hosted-b-model",
		}, result.Analysis)
	})

	t.Run("analysis failure does not fall back", func(t *testing.T) {
		log := &callLog{}
		m, fakes := fourUp(log)
		fakes[local].genErr = errors.New("timeout")
		svc := NewService(m, WithServiceLogger(discard))

		result := svc.AnalyzeHVAC(context.Background(), AnalyzeRequest{HVACData: domain.HVACInput{"area": 50}})

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "timeout")
		assert.Equal(t, []domain.ProviderName{local}, log.get())
	})

	t.Run("compliance augmentation", func(t *testing.T) {
		m, fakes := fourUp(nil)
		svc := NewService(m, WithServiceLogger(discard))

		svc.AnalyzeHVAC(context.Background(), AnalyzeRequest{
			HVACData:     domain.HVACInput{"area": 50},
			Provider:     hostedC,
			AnalysisType: AnalysisCompliance,
		})

		require.Len(t, fakes[hostedC].inputs, 1)
		assert.Equal(t, domain.HVACInput{
			"area":           50,
			"analysis_depth": "compliance",
			"focus_on_dbn":   true,
		}, fakes[hostedC].inputs[0])
	})

	t.Run("named provider not ready", func(t *testing.T) {
		b := newFake(hostedB, nil)
		m := NewManager(adapters(up(local, nil), b), WithLogger(discard))
		svc := NewService(m, WithServiceLogger(discard))

		result := svc.AnalyzeHVAC(context.Background(), AnalyzeRequest{HVACData: domain.HVACInput{}, Provider: hostedB})

		assert.Equal(t, domain.GatewayResult{Error: "Provider hosted-b not available"}, result)
	})
}

func TestAugmentInput(t *testing.T) {
	tests := []struct {
		name         string
		analysisType string
		want         domain.HVACInput
	}{
		{"basic", AnalysisBasic, domain.HVACInput{"area": 80}},
		{"unknown type", "exhaustive", domain.HVACInput{"area": 80}},
		{"detailed", AnalysisDetailed, domain.HVACInput{
			"area": 80, "analysis_depth": "detailed", "include_economics": true, "include_compliance": true,
		}},
		{"compliance", AnalysisCompliance, domain.HVACInput{
			"area": 80, "analysis_depth": "compliance", "focus_on_dbn": true,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := domain.HVACInput{"area": 80}
			assert.Equal(t, tt.want, AugmentInput(in, tt.analysisType))
			assert.Equal(t, domain.HVACInput{"area": 80}, in)
		})
	}
}

func TestService_Status_NoneAvailable(t *testing.T) {
	m := NewManager(adapters(newFake(local, nil), newFake(hostedA, nil)), WithLogger(discard))
	svc := NewService(m, WithServiceLogger(discard))

	status := svc.Status()

	assert.True(t, status.Success)
	assert.Equal(t, 2, status.Status.TotalProviders)
	assert.Equal(t, 0, status.Status.AvailableProviders)
	assert.Nil(t, status.Status.PrimaryProvider)
	assert.Equal(t, []string{
		"No AI providers are reachable; configure at least one provider",
		"Start the local inference daemon at http://local.test for offline analysis",
		"Set HOSTED_A_API_KEY to enable hosted-a",
	}, status.Recommendations)

	body, err := json.Marshal(status)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": true,
		"status": {
			"total_providers": 2,
			"available_providers": 0,
			"primary_provider": null,
			"providers": {
				"local": {"available": false, "name": "local", "model": "local-model", "base_url": "http://local.test"},
				"hosted-a": {"available": false, "name": "hosted-a", "model": "hosted-a-model", "base_url": "http://hosted-a.test"}
			}
		},
		"recommendations": [
			"No AI providers are reachable; configure at least one provider",
			"Start the local inference daemon at http://local.test for offline analysis",
			"Set HOSTED_A_API_KEY to enable hosted-a"
		]
	}`, string(body))
}

func TestService_Status(t *testing.T) {
	t.Run("all available", func(t *testing.T) {
		m, _ := fourUp(nil)
		status := NewService(m).Status()

		assert.Equal(t, 4, status.Status.AvailableProviders)
		require.NotNil(t, status.Status.PrimaryProvider)
		assert.Equal(t, local, *status.Status.PrimaryProvider)
		assert.Equal(t, []string{"All AI providers are operational"}, status.Recommendations)
	})

	t.Run("some missing", func(t *testing.T) {
		c := newFake(hostedC, nil)
		c.initErr = errors.New("missing key")
		m := NewManager(adapters(newFake(local, nil), c), WithLogger(discard))
		m.InitializeAll(context.Background())

		status := NewService(m).Status()

		assert.Equal(t, 1, status.Status.AvailableProviders)
		assert.Equal(t, []string{"Set HOSTED_C_API_KEY to enable hosted-c"}, status.Recommendations)
		assert.True(t, status.Status.Providers[local].Available)
		assert.False(t, status.Status.Providers[hostedC].Available)
	})
}

func TestService_AuditLog(t *testing.T) {
	m, fakes := fourUp(nil)
	fakes[local].genErr = errors.New("down")
	store := memory.New()
	metrics := telemetry.NewMetrics()
	svc := NewService(m,
		WithServiceLogger(discard),
		WithStore(store),
		WithTokenCounter(tokens.NewRegistry()),
		WithServiceMetrics(metrics),
	)

	svc.Generate(context.Background(), GenerateRequest{Prompt: "size a heat pump"})
	svc.AnalyzeHVAC(context.Background(), AnalyzeRequest{HVACData: domain.HVACInput{"area": 90}, Provider: hostedB})

	records, err := store.ListInteractions(context.Background(), storage.ListOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	analyze, generate := records[0], records[1]
	if analyze.Operation != storage.OperationAnalyzeHVAC {
		analyze, generate = generate, analyze
	}

	assert.Equal(t, storage.OperationGenerate, generate.Operation)
	assert.True(t, generate.Success)
	assert.Equal(t, "hosted-a", generate.ProviderUsed)
	assert.Equal(t, []string{"local", "hosted-a"}, generate.ProvidersTried)
	assert.Positive(t, generate.PromptTokens)
	assert.NotEmpty(t, generate.ID)

	assert.Equal(t, storage.OperationAnalyzeHVAC, analyze.Operation)
	assert.True(t, analyze.Success)
	assert.Equal(t, []string{"hosted-b"}, analyze.ProvidersTried)
	assert.Positive(t, analyze.PromptTokens)

	body := scrape(t, metrics)
	assert.Contains(t, body, `hvac_gateway_operation_requests_total{operation="ai_generate",outcome="success"} 1`)
	assert.Contains(t, body, `hvac_gateway_operation_requests_total{operation="ai_hvac_analyze",outcome="success"} 1`)
}

func TestService_AuditLogUnknownProvider(t *testing.T) {
	m, _ := fourUp(nil)
	store := memory.New()
	svc := NewService(m, WithServiceLogger(discard), WithStore(store))
	ctx := context.Background()

	gen := svc.Generate(ctx, GenerateRequest{Prompt: "size a heat pump", Provider: "hosted-z"})
	assert.False(t, gen.Success)
	assert.Contains(t, gen.Error, "not found")

	analyze := svc.AnalyzeHVAC(ctx, AnalyzeRequest{HVACData: domain.HVACInput{"area": 90}, Provider: "hosted-z"})
	assert.False(t, analyze.Success)

	records, err := store.ListInteractions(ctx, storage.ListOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.False(t, r.Success)
		assert.Empty(t, r.ProvidersTried, "%s names a provider that was never called", r.Operation)
	}
}

func TestMergeContext(t *testing.T) {
	tests := []struct {
		name   string
		caller domain.RequestContext
		want   domain.RequestContext
	}{
		{"nil caller", nil, domain.RequestContext{domain.SystemInfoKey: "D"}},
		{"keeps caller keys", domain.RequestContext{"k": "V"}, domain.RequestContext{domain.SystemInfoKey: "D", "k": "V"}},
		{"caller system_info wins", domain.RequestContext{domain.SystemInfoKey: "S"}, domain.RequestContext{domain.SystemInfoKey: "S"}},
		{"empty caller system_info kept", domain.RequestContext{domain.SystemInfoKey: ""}, domain.RequestContext{domain.SystemInfoKey: ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before domain.RequestContext
			if tt.caller != nil {
				before = domain.RequestContext{}
				for k, v := range tt.caller {
					before[k] = v
				}
			}

			got := MergeContext(tt.caller, "D")

			assert.Equal(t, tt.want, got)
			assert.Equal(t, before, tt.caller)
		})
	}
}
