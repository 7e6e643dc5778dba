package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tjfontaine/hvac-ai-gateway/internal/telemetry"
)

func scrape(t *testing.T, metrics *telemetry.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}
