// Package frontdoor exposes the gateway operations over HTTP: one JSON
// endpoint per operation, an MCP-style tool dispatcher, and the operational
// endpoints (health, metrics, interaction audit log).
//
// Operation failures are reported in the envelope with HTTP 200 and
// success=false. Only requests the handler cannot decode get a 4xx.
package frontdoor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/hvac-ai-gateway/internal/domain"
	"github.com/tjfontaine/hvac-ai-gateway/internal/gateway"
	"github.com/tjfontaine/hvac-ai-gateway/internal/server"
	"github.com/tjfontaine/hvac-ai-gateway/internal/storage"
)

// maxBodyBytes bounds request bodies. HVAC inputs are small objects.
const maxBodyBytes = 1 << 20

// Operations is the caller-facing surface of the gateway.
type Operations interface {
	Generate(ctx context.Context, req gateway.GenerateRequest) domain.GatewayResult
	AnalyzeHVAC(ctx context.Context, req gateway.AnalyzeRequest) domain.GatewayResult
	Status() gateway.StatusResult
}

// HandlerRegistration represents a registered HTTP handler.
type HandlerRegistration struct {
	Path    string
	Method  string
	Handler http.HandlerFunc
}

type Handler struct {
	ops     Operations
	store   storage.InteractionStore
	metrics http.Handler
	logger  *slog.Logger
	tools   map[string]tool
}

// Option configures a Handler.
type Option func(*Handler)

// WithInteractionStore enables the interaction audit endpoints.
func WithInteractionStore(store storage.InteractionStore) Option {
	return func(h *Handler) {
		h.store = store
	}
}

// WithMetricsHandler serves handler on /metrics.
func WithMetricsHandler(handler http.Handler) Option {
	return func(h *Handler) {
		h.metrics = handler
	}
}

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

func NewHandler(ops Operations, opts ...Option) *Handler {
	h := &Handler{
		ops:    ops,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.tools = h.builtinTools()
	return h
}

// Registrations lists every route the handler serves. Optional endpoints
// appear only when their collaborator is configured.
func (h *Handler) Registrations() []HandlerRegistration {
	regs := []HandlerRegistration{
		{Path: "/v1/ai/generate", Method: http.MethodPost, Handler: h.HandleGenerate},
		{Path: "/v1/ai/hvac-analyze", Method: http.MethodPost, Handler: h.HandleAnalyzeHVAC},
		{Path: "/v1/ai/providers/status", Method: http.MethodGet, Handler: h.HandleStatus},
		{Path: "/tools/list", Method: http.MethodGet, Handler: h.HandleListTools},
		{Path: "/tools/call", Method: http.MethodPost, Handler: h.HandleToolCall},
		{Path: "/healthz", Method: http.MethodGet, Handler: h.HandleHealth},
	}
	if h.store != nil {
		regs = append(regs,
			HandlerRegistration{Path: "/v1/ai/interactions", Method: http.MethodGet, Handler: h.HandleListInteractions},
			HandlerRegistration{Path: "/v1/ai/interactions/{id}", Method: http.MethodGet, Handler: h.HandleGetInteraction},
		)
	}
	if h.metrics != nil {
		regs = append(regs, HandlerRegistration{Path: "/metrics", Method: http.MethodGet, Handler: h.metrics.ServeHTTP})
	}
	return regs
}

// Mount registers every route on r.
func (h *Handler) Mount(r chi.Router) {
	for _, reg := range h.Registrations() {
		method := reg.Method
		if method == "" {
			method = http.MethodPost
		}

		switch method {
		case http.MethodGet:
			r.Get(reg.Path, reg.Handler)
		case http.MethodPost:
			r.Post(reg.Path, reg.Handler)
		default:
			r.Method(method, reg.Path, reg.Handler)
		}

		h.logger.Debug("registered handler",
			slog.String("method", method),
			slog.String("path", reg.Path))
	}
}

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req gateway.GenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.writeResult(w, r, h.ops.Generate(r.Context(), req))
}

func (h *Handler) HandleAnalyzeHVAC(w http.ResponseWriter, r *http.Request) {
	var req gateway.AnalyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.writeResult(w, r, h.ops.AnalyzeHVAC(r.Context(), req))
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ops.Status())
}

// HandleHealth reports liveness. The process is healthy even when no
// provider is available; the counts let probes tell the two apart.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := h.ops.Status().Status
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "ok",
		"total_providers":     status.TotalProviders,
		"available_providers": status.AvailableProviders,
		"primary_provider":    status.PrimaryProvider,
	})
}

func (h *Handler) writeResult(w http.ResponseWriter, r *http.Request, result domain.GatewayResult) {
	server.AddLogField(r.Context(), "provider_used", string(result.ProviderUsed))
	if !result.Success {
		server.AddLogField(r.Context(), "error", result.Error)
	}
	writeJSON(w, http.StatusOK, result)
}

// errorBody is the response for requests rejected before reaching the gateway.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeBody decodes the JSON body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		server.AddError(r.Context(), err)
		writeError(w, http.StatusBadRequest, bodyError(err))
		return false
	}
	return true
}

func bodyError(err error) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)
	}
	return "invalid JSON body: " + err.Error()
}
