package frontdoor

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/hvac-ai-gateway/internal/server"
	"github.com/tjfontaine/hvac-ai-gateway/internal/storage"
)

// HandleListInteractions serves the audit log, newest first.
// Query parameters: operation, success, limit, offset.
func (h *Handler) HandleListInteractions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := storage.ListOptions{Operation: q.Get("operation")}

	if v := q.Get("success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid success filter: "+v)
			return
		}
		opts.Success = &b
	}
	for name, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid "+name+": "+v)
			return
		}
		*dst = n
	}

	interactions, err := h.store.ListInteractions(r.Context(), opts)
	if err != nil {
		server.AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "failed to list interactions")
		return
	}
	if interactions == nil {
		interactions = []*storage.Interaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"interactions": interactions,
		"count":        len(interactions),
	})
}

func (h *Handler) HandleGetInteraction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	interaction, err := h.store.GetInteraction(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "interaction not found: "+id)
		return
	case err != nil:
		server.AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "failed to load interaction")
		return
	}
	writeJSON(w, http.StatusOK, interaction)
}
