package gateway

import "github.com/tjfontaine/hvac-ai-gateway/internal/domain"

// MergeContext returns a new context carrying every caller key, with
// system_info set to the caller's value when present and to
// defaultSystemInfo otherwise. caller is never modified.
func MergeContext(caller domain.RequestContext, defaultSystemInfo string) domain.RequestContext {
	merged := make(domain.RequestContext, len(caller)+1)
	for k, v := range caller {
		merged[k] = v
	}
	if _, ok := caller[domain.SystemInfoKey]; !ok {
		merged[domain.SystemInfoKey] = defaultSystemInfo
	}
	return merged
}
