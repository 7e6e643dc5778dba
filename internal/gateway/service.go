package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/hvac-ai-gateway/internal/analysis"
	"github.com/tjfontaine/hvac-ai-gateway/internal/domain"
	"github.com/tjfontaine/hvac-ai-gateway/internal/storage"
	"github.com/tjfontaine/hvac-ai-gateway/internal/telemetry"
	"github.com/tjfontaine/hvac-ai-gateway/internal/tokens"
)

// Analysis types accepted by AnalyzeHVAC.
const (
	AnalysisBasic      = "basic"
	AnalysisDetailed   = "detailed"
	AnalysisCompliance = "compliance"
)

// GenerateRequest is the ai_generate request.
type GenerateRequest struct {
	Prompt   string                `json:"prompt" jsonschema:"minLength=1"`
	Provider domain.ProviderName   `json:"provider,omitempty" jsonschema:"enum=local,enum=hosted-a,enum=hosted-b,enum=hosted-c" jsonschema_description:"Pin the request to one provider. Omit to let the gateway choose."`
	Context  domain.RequestContext `json:"context,omitempty" jsonschema_description:"Caller context; system_info replaces the default HVAC system context."`
}

// AnalyzeRequest is the ai_hvac_analyze request.
type AnalyzeRequest struct {
	HVACData     domain.HVACInput    `json:"hvac_data" jsonschema_description:"Building description: area, occupancy, climate_zone, current_system, building_type."`
	Provider     domain.ProviderName `json:"provider,omitempty" jsonschema:"enum=local,enum=hosted-a,enum=hosted-b,enum=hosted-c"`
	AnalysisType string              `json:"analysis_type,omitempty" jsonschema:"enum=basic,enum=detailed,enum=compliance"`
}

// StatusResult is the ai_providers_status response.
type StatusResult struct {
	Success         bool           `json:"success"`
	Status          ProvidersState `json:"status"`
	Recommendations []string       `json:"recommendations"`
}

// ProvidersState summarizes the registry.
type ProvidersState struct {
	TotalProviders     int                                   `json:"total_providers"`
	AvailableProviders int                                   `json:"available_providers"`
	PrimaryProvider    *domain.ProviderName                  `json:"primary_provider"`
	Providers          map[domain.ProviderName]ProviderState `json:"providers"`
}

// ProviderState describes one adapter.
type ProviderState struct {
	Available bool                `json:"available"`
	Name      domain.ProviderName `json:"name"`
	Model     string              `json:"model,omitempty"`
	BaseURL   string              `json:"base_url,omitempty"`
}

// Service implements the caller-facing operations on top of a Manager.
type Service struct {
	manager    *Manager
	systemInfo string
	store      storage.InteractionStore
	counter    *tokens.Registry
	metrics    *telemetry.Metrics
	logger     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithStore records every operation in store.
func WithStore(store storage.InteractionStore) ServiceOption {
	return func(s *Service) {
		s.store = store
	}
}

// WithTokenCounter counts prompt tokens for the audit log.
func WithTokenCounter(counter *tokens.Registry) ServiceOption {
	return func(s *Service) {
		s.counter = counter
	}
}

// WithServiceMetrics records operation outcomes on metrics.
func WithServiceMetrics(metrics *telemetry.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithSystemInfo replaces the default system_info merged into ai_generate
// requests.
func WithSystemInfo(systemInfo string) ServiceOption {
	return func(s *Service) {
		s.systemInfo = systemInfo
	}
}

// NewService creates the gateway operations over manager.
func NewService(manager *Manager, opts ...ServiceOption) *Service {
	s := &Service{
		manager:    manager,
		systemInfo: analysis.SystemContext,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Manager returns the underlying registry.
func (s *Service) Manager() *Manager {
	return s.manager
}

// Generate implements ai_generate. A named provider is called directly and
// never falls back; otherwise the fallback chain starts at the primary.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) domain.GatewayResult {
	start := time.Now()

	var result domain.GatewayResult
	rc := MergeContext(req.Context, s.systemInfo)
	switch {
	case req.Prompt == "":
		result = domain.Failure(domain.ErrInvalidRequest("prompt is required"))
	case req.Provider != "":
		text, err := s.manager.GenerateWithProvider(ctx, req.Provider, req.Prompt, rc)
		if err != nil {
			result = domain.Failure(err)
		} else {
			result = domain.GatewayResult{
				Success:      true,
				Response:     text,
				ProviderUsed: req.Provider,
			}
		}
	default:
		result = s.manager.GenerateWithFallback(ctx, req.Prompt, rc, "")
	}

	tried := result.ProvidersTried
	if req.Provider != "" && req.Prompt != "" {
		tried = s.registered(req.Provider)
	}
	s.record(ctx, storage.OperationGenerate, result, tried, rc.SystemInfo()+"\n\n"+req.Prompt, start)
	return result
}

// AnalyzeHVAC implements ai_hvac_analyze. Without a named provider the first
// available provider is used; analysis never falls back.
func (s *Service) AnalyzeHVAC(ctx context.Context, req AnalyzeRequest) domain.GatewayResult {
	start := time.Now()

	analysisType := req.AnalysisType
	if analysisType == "" {
		analysisType = AnalysisBasic
	}
	input := AugmentInput(req.HVACData, analysisType)

	name := req.Provider
	if name == "" {
		if first, ok := s.manager.FirstAvailable(); ok {
			name = first
		}
	}

	var result domain.GatewayResult
	if name == "" {
		result = domain.Failure(domain.ErrNoProviders)
	} else if out, err := s.manager.AnalyzeHVACWithProvider(ctx, name, input); err != nil {
		result = domain.Failure(err)
	} else {
		result = domain.GatewayResult{
			Success:      true,
			Analysis:     out,
			ProviderUsed: name,
			AnalysisType: analysisType,
		}
	}
	s.record(ctx, storage.OperationAnalyzeHVAC, result, s.registered(name), analysis.BuildPrompt(input), start)
	return result
}

// registered returns name as the single tried provider, or nil when no
// adapter is registered under it.
func (s *Service) registered(name domain.ProviderName) []domain.ProviderName {
	if _, ok := s.manager.Adapter(name); !ok {
		return nil
	}
	return []domain.ProviderName{name}
}

// AugmentInput returns a copy of input with the keys implied by analysisType.
func AugmentInput(input domain.HVACInput, analysisType string) domain.HVACInput {
	out := input.Clone()
	if out == nil {
		out = domain.HVACInput{}
	}
	switch analysisType {
	case AnalysisDetailed:
		out["analysis_depth"] = analysis.DepthDetailed
		out["include_economics"] = true
		out["include_compliance"] = true
	case AnalysisCompliance:
		out["analysis_depth"] = analysis.DepthCompliance
		out["focus_on_dbn"] = true
	}
	return out
}

// Status implements ai_providers_status.
func (s *Service) Status() StatusResult {
	state := ProvidersState{
		Providers: make(map[domain.ProviderName]ProviderState),
	}
	var missing []ProviderState
	for _, a := range s.manager.Adapters() {
		ps := ProviderState{
			Available: a.Available(),
			Name:      a.Name(),
			Model:     a.Model(),
			BaseURL:   a.BaseURL(),
		}
		state.TotalProviders++
		if ps.Available {
			state.AvailableProviders++
		} else {
			missing = append(missing, ps)
		}
		state.Providers[a.Name()] = ps
	}
	if primary := s.manager.Primary(); primary != "" {
		state.PrimaryProvider = &primary
	}

	return StatusResult{
		Success:         true,
		Status:          state,
		Recommendations: recommendations(state, missing),
	}
}

func recommendations(state ProvidersState, missing []ProviderState) []string {
	out := make([]string, 0, len(missing)+1)
	if state.AvailableProviders == 0 {
		out = append(out, "No AI providers are reachable; configure at least one provider")
	}
	for _, ps := range missing {
		if ps.Name == domain.ProviderLocal {
			out = append(out, fmt.Sprintf("Start the local inference daemon at %s for offline analysis", ps.BaseURL))
			continue
		}
		envVar := strings.ToUpper(strings.ReplaceAll(string(ps.Name), "-", "_")) + "_API_KEY"
		out = append(out, fmt.Sprintf("Set %s to enable %s", envVar, ps.Name))
	}
	if len(missing) == 0 && state.TotalProviders > 0 {
		out = append(out, "All AI providers are operational")
	}
	return out
}

// record writes the audit entry and operation metric. Failures to persist
// are logged and never change the result.
func (s *Service) record(ctx context.Context, operation string, result domain.GatewayResult, tried []domain.ProviderName, prompt string, start time.Time) {
	s.metrics.ObserveOperation(operation, result.Success)
	if s.store == nil {
		return
	}

	interaction := &storage.Interaction{
		ID:           uuid.NewString(),
		Operation:    operation,
		ProviderUsed: string(result.ProviderUsed),
		Success:      result.Success,
		Error:        result.Error,
		Duration:     time.Since(start),
	}
	for _, name := range tried {
		interaction.ProvidersTried = append(interaction.ProvidersTried, string(name))
	}
	if s.counter != nil {
		model := ""
		if a, ok := s.manager.Adapter(result.ProviderUsed); ok {
			model = a.Model()
		}
		count := s.counter.Count(model, prompt)
		interaction.PromptTokens = count.Tokens
		interaction.TokensEstimated = count.Estimated
	}

	// audit writes outlive a cancelled request
	if err := s.store.SaveInteraction(context.WithoutCancel(ctx), interaction); err != nil {
		s.logger.Error("failed to record interaction",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
	}
}
