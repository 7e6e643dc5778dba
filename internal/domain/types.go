package domain

// ProviderName identifies one upstream model provider.
type ProviderName string

const (
	// ProviderLocal is the on-host inference daemon (Ollama-compatible API).
	ProviderLocal ProviderName = "local"

	// ProviderHostedA speaks the OpenAI Chat Completions wire format.
	ProviderHostedA ProviderName = "hosted-a"

	// ProviderHostedB speaks the Anthropic Messages wire format.
	ProviderHostedB ProviderName = "hosted-b"

	// ProviderHostedC speaks the Gemini generateContent wire format.
	ProviderHostedC ProviderName = "hosted-c"
)

// ProviderOrder is the construction order of the provider registry.
// Fallback and first-available selection both walk providers in this order.
var ProviderOrder = []ProviderName{
	ProviderLocal,
	ProviderHostedA,
	ProviderHostedB,
	ProviderHostedC,
}

// SystemInfoKey is the RequestContext key holding the system context string.
const SystemInfoKey = "system_info"

// RequestContext carries caller-supplied context for a single request.
type RequestContext map[string]any

// SystemInfo returns the system_info entry, or "" if absent or not a string.
func (rc RequestContext) SystemInfo() string {
	if rc == nil {
		return ""
	}
	s, _ := rc[SystemInfoKey].(string)
	return s
}

// HVACInput describes a building to analyze.
//
// Well-known keys: area (m²), occupancy, climate_zone, current_system,
// building_type, analysis_depth. Callers may add more; they are forwarded
// to the model verbatim.
type HVACInput map[string]any

// Clone returns a shallow copy of the input.
func (in HVACInput) Clone() HVACInput {
	out := make(HVACInput, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Analysis is the result of an HVAC analysis: either a StructuredAnalysis
// or a RawAnalysis when the model reply carried no parseable JSON object.
type Analysis interface {
	isAnalysis()
}

// StructuredAnalysis is the JSON object extracted from a model reply.
// It keeps every key the model produced; the accessors cover the documented
// field set and report whether the key was present.
type StructuredAnalysis map[string]any

func (StructuredAnalysis) isAnalysis() {}

// RecommendedSystem returns recommended_system.
func (a StructuredAnalysis) RecommendedSystem() (string, bool) {
	s, ok := a["recommended_system"].(string)
	return s, ok
}

// RequiredCapacityKW returns required_capacity_kw.
func (a StructuredAnalysis) RequiredCapacityKW() (float64, bool) {
	return a.number("required_capacity_kw")
}

// EstimatedCostUSD returns estimated_cost_usd.
func (a StructuredAnalysis) EstimatedCostUSD() (float64, bool) {
	return a.number("estimated_cost_usd")
}

// EnergyEfficiencyClass returns energy_efficiency_class.
func (a StructuredAnalysis) EnergyEfficiencyClass() (string, bool) {
	s, ok := a["energy_efficiency_class"].(string)
	return s, ok
}

// AnnualSavingsPercent returns annual_savings_percent.
func (a StructuredAnalysis) AnnualSavingsPercent() (float64, bool) {
	return a.number("annual_savings_percent")
}

// DBNCompliance returns dbn_compliance.
func (a StructuredAnalysis) DBNCompliance() (bool, bool) {
	b, ok := a["dbn_compliance"].(bool)
	return b, ok
}

// Recommendations returns the string entries of recommendations.
func (a StructuredAnalysis) Recommendations() []string {
	items, _ := a["recommendations"].([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (a StructuredAnalysis) number(key string) (float64, bool) {
	switch v := a[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// RawAnalysis wraps a model reply that could not be parsed as JSON.
// It is still a successful answer.
type RawAnalysis struct {
	Analysis string       `json:"analysis"`
	Provider ProviderName `json:"provider"`
	Model    string       `json:"model"`
}

func (RawAnalysis) isAnalysis() {}

// GatewayResult is the envelope returned by every gateway operation.
type GatewayResult struct {
	Success        bool           `json:"success"`
	Response       string         `json:"response,omitempty"`
	Analysis       Analysis       `json:"analysis,omitempty"`
	Error          string         `json:"error,omitempty"`
	ProviderUsed   ProviderName   `json:"provider_used,omitempty"`
	ProvidersTried []ProviderName `json:"providers_tried,omitempty"`
	AnalysisType   string         `json:"analysis_type,omitempty"`
}

// Failure builds a negative GatewayResult from err.
func Failure(err error) GatewayResult {
	return GatewayResult{Success: false, Error: err.Error()}
}
