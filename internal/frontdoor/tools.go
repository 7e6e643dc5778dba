package frontdoor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/invopop/jsonschema"

	"github.com/tjfontaine/hvac-ai-gateway/internal/gateway"
	"github.com/tjfontaine/hvac-ai-gateway/internal/server"
	"github.com/tjfontaine/hvac-ai-gateway/internal/storage"
)

// ToolProvidersStatus is the status tool; the other two share their names
// with the audit operations.
const ToolProvidersStatus = "ai_providers_status"

// ToolCall is the body of POST /tools/call.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolDescriptor is one entry of GET /tools/list.
type ToolDescriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

type tool struct {
	descriptor ToolDescriptor
	call       func(ctx context.Context, args json.RawMessage) (any, error)
}

var schemaReflector = jsonschema.Reflector{
	AllowAdditionalProperties: true,
	DoNotReference:            true,
	Anonymous:                 true,
}

func inputSchema[T any]() *jsonschema.Schema {
	var v T
	return schemaReflector.Reflect(v)
}

type statusArguments struct{}

func (h *Handler) builtinTools() map[string]tool {
	return map[string]tool{
		storage.OperationGenerate: {
			descriptor: ToolDescriptor{
				Name:        storage.OperationGenerate,
				Description: "Generate a natural-language answer with HVAC domain context, falling back across providers.",
				InputSchema: inputSchema[gateway.GenerateRequest](),
			},
			call: func(ctx context.Context, args json.RawMessage) (any, error) {
				var req gateway.GenerateRequest
				if err := decodeArguments(args, &req); err != nil {
					return nil, err
				}
				return h.ops.Generate(ctx, req), nil
			},
		},
		storage.OperationAnalyzeHVAC: {
			descriptor: ToolDescriptor{
				Name:        storage.OperationAnalyzeHVAC,
				Description: "Analyze a building's HVAC requirements and return a structured recommendation.",
				InputSchema: inputSchema[gateway.AnalyzeRequest](),
			},
			call: func(ctx context.Context, args json.RawMessage) (any, error) {
				var req gateway.AnalyzeRequest
				if err := decodeArguments(args, &req); err != nil {
					return nil, err
				}
				return h.ops.AnalyzeHVAC(ctx, req), nil
			},
		},
		ToolProvidersStatus: {
			descriptor: ToolDescriptor{
				Name:        ToolProvidersStatus,
				Description: "Report which AI providers are configured and available.",
				InputSchema: inputSchema[statusArguments](),
			},
			call: func(context.Context, json.RawMessage) (any, error) {
				return h.ops.Status(), nil
			},
		},
	}
}

// decodeArguments accepts a missing or null arguments field as {}.
func decodeArguments(args json.RawMessage, v any) error {
	args = bytes.TrimSpace(args)
	if len(args) == 0 || bytes.Equal(args, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func (h *Handler) HandleListTools(w http.ResponseWriter, r *http.Request) {
	descriptors := make([]ToolDescriptor, 0, len(h.tools))
	for _, t := range h.tools {
		descriptors = append(descriptors, t.descriptor)
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})
	writeJSON(w, http.StatusOK, map[string]any{"tools": descriptors})
}

// HandleToolCall dispatches {name, arguments} to the named operation and
// returns the operation's envelope unchanged.
func (h *Handler) HandleToolCall(w http.ResponseWriter, r *http.Request) {
	var call ToolCall
	if !decodeBody(w, r, &call) {
		return
	}
	server.AddLogField(r.Context(), "tool", call.Name)

	t, ok := h.tools[call.Name]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown tool: %s", call.Name))
		return
	}

	result, err := t.call(r.Context(), call.Arguments)
	if err != nil {
		server.AddError(r.Context(), err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
