package analysis

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tjfontaine/hvac-ai-gateway/internal/domain"
)

// Extract returns the JSON object spanning the first '{' to the last '}' of
// text. Models routinely wrap JSON in prose, so anything outside that span is
// ignored. When no parseable object is found the reply is returned whole as a
// RawAnalysis tagged with provider and model.
func Extract(text string, provider domain.ProviderName, model string) domain.Analysis {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		candidate := text[start : end+1]
		if gjson.Valid(candidate) {
			if obj, ok := gjson.Parse(candidate).Value().(map[string]any); ok {
				return domain.StructuredAnalysis(obj)
			}
		}
	}

	return domain.RawAnalysis{
		Analysis: text,
		Provider: provider,
		Model:    model,
	}
}
