package api

import (
	"encoding/json"
	"net/http"

	"github.com/quintalapp/geoscope/internal/gate"
	"github.com/quintalapp/geoscope/internal/location"
)

// GateCheckRequest is the request body for an access check.
type GateCheckRequest struct {
	City         string `json:"city"`
	Neighborhood string `json:"neighborhood,omitempty"`
	DisplayName  string `json:"display_name,omitempty"`
	Bypass       bool   `json:"bypass,omitempty"`
}

// GateCheckResponse is the outcome of an access check.
type GateCheckResponse struct {
	Outcome gate.Outcome `json:"outcome"`
	Message string       `json:"message,omitempty"`
}

// GateHandlers holds dependencies for gate HTTP handlers.
type GateHandlers struct {
	manager *location.Manager
	metrics *gate.Metrics
}

// NewGateHandlers creates a new GateHandlers instance.
// metrics may be nil.
func NewGateHandlers(manager *location.Manager, metrics *gate.Metrics) *GateHandlers {
	return &GateHandlers{manager: manager, metrics: metrics}
}

// CheckAccess handles POST /gate/check - decides whether the session may
// act on content bound to the given place. Sessions without a resolved
// location are always allowed.
func (h *GateHandlers) CheckAccess(w http.ResponseWriter, r *http.Request) {
	key, authenticated := sessionIdentity(r)
	if key == "" {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeSessionRequired,
			"Provide a bearer token or an X-Session-ID header")
		return
	}

	var req GateCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	viewer := h.manager.Store(r.Context(), key, authenticated).Location()
	decision := gate.Decide(viewer, gate.Content{
		City:         req.City,
		Neighborhood: req.Neighborhood,
		DisplayName:  req.DisplayName,
	}, req.Bypass)

	if h.metrics != nil {
		h.metrics.IncDecisionsTotal(decision.Outcome)
	}

	WriteJSON(w, r.Context(), http.StatusOK, GateCheckResponse{
		Outcome: decision.Outcome,
		Message: decision.Message,
	})
}
