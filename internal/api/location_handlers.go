// Package api provides HTTP handlers for the geoscope API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/quintalapp/geoscope/internal/geocode"
	"github.com/quintalapp/geoscope/internal/location"
	"github.com/quintalapp/geoscope/internal/middleware"
)

// SessionHeader identifies anonymous sessions. Authenticated requests use
// the bearer token's subject instead and the header is ignored.
const SessionHeader = "X-Session-ID"

// ResolveRequest is the request body for resolving device coordinates.
type ResolveRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SearchRequest is the request body for a manual location search.
type SearchRequest struct {
	Query string `json:"query"`
}

// ScopeRequest is the request body for changing the preference scope.
type ScopeRequest struct {
	Scope string `json:"scope"`
}

// NeighborhoodRequest is the request body for overriding the neighborhood.
type NeighborhoodRequest struct {
	Neighborhood string `json:"neighborhood"`
}

// LocationResponse is the session's current location state.
type LocationResponse struct {
	Location *location.ResolvedLocation `json:"location"`
	Scope    location.Scope             `json:"scope"`
	Display  string                     `json:"display"`
}

// LocationHandlers holds dependencies for location HTTP handlers.
type LocationHandlers struct {
	manager  *location.Manager
	resolver *geocode.Resolver
	logger   *slog.Logger
}

// NewLocationHandlers creates a new LocationHandlers instance.
func NewLocationHandlers(manager *location.Manager, resolver *geocode.Resolver, logger *slog.Logger) *LocationHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocationHandlers{
		manager:  manager,
		resolver: resolver,
		logger:   logger,
	}
}

// sessionIdentity extracts the session identity from a request: the
// authenticated user ID when present, the session header otherwise.
// authenticated reports which of the two it was; only authenticated
// identities are durable enough to write history against. Returns an empty
// key when the request carries neither.
func sessionIdentity(r *http.Request) (key string, authenticated bool) {
	if userID := middleware.GetUserID(r.Context()); userID != "" {
		return userID, true
	}
	return strings.TrimSpace(r.Header.Get(SessionHeader)), false
}

// sessionStore resolves the request's location store, writing the error
// response itself when the request has no session identity.
func (h *LocationHandlers) sessionStore(w http.ResponseWriter, r *http.Request) (*location.Store, bool) {
	key, authenticated := sessionIdentity(r)
	if key == "" {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeSessionRequired,
			"Provide a bearer token or an X-Session-ID header")
		return nil, false
	}
	return h.manager.Store(r.Context(), key, authenticated), true
}

func stateResponse(store *location.Store) LocationResponse {
	return LocationResponse{
		Location: store.Location(),
		Scope:    store.Scope(),
		Display:  store.DisplayLocation(),
	}
}

// writeResolveError maps resolution errors onto API error responses.
func writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, geocode.ErrNoAddressFound):
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNoAddressFound,
			"No address found for that position")
	case errors.Is(err, geocode.ErrNoResultsFound):
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNoResultsFound,
			"No results found for that search")
	default:
		WriteError(w, r.Context(), http.StatusServiceUnavailable, ErrCodeProviderUnavailable,
			"Location service is temporarily unavailable")
	}
}

// ResolveLocation handles POST /location/resolve - reverse-geocodes device
// coordinates and stores the result for the session. A resolution that is
// overtaken by a newer update for the same session is discarded; the
// response always reflects the session's current state.
func (h *LocationHandlers) ResolveLocation(w http.ResponseWriter, r *http.Request) {
	store, ok := h.sessionStore(w, r)
	if !ok {
		return
	}

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "Coordinates out of range")
		return
	}

	gen := store.Begin()
	loc, err := h.resolver.ResolveFromCoordinates(r.Context(), req.Latitude, req.Longitude)
	if err != nil {
		writeResolveError(w, r, err)
		return
	}

	if !store.Apply(gen, loc) {
		h.logger.Debug("discarding superseded resolution", "request_id", middleware.GetRequestID(r.Context()))
	}
	WriteJSON(w, r.Context(), http.StatusOK, stateResponse(store))
}

// SearchLocation handles POST /location/search - resolves a free-text
// query or postal code and stores the result for the session.
func (h *LocationHandlers) SearchLocation(w http.ResponseWriter, r *http.Request) {
	store, ok := h.sessionStore(w, r)
	if !ok {
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "Search query is required")
		return
	}

	gen := store.Begin()
	loc, err := h.resolver.ResolveFromQuery(r.Context(), req.Query)
	if err != nil {
		writeResolveError(w, r, err)
		return
	}

	if !store.Apply(gen, loc) {
		h.logger.Debug("discarding superseded resolution", "request_id", middleware.GetRequestID(r.Context()))
	}
	WriteJSON(w, r.Context(), http.StatusOK, stateResponse(store))
}

// GetLocation handles GET /location - returns the session's current state.
func (h *LocationHandlers) GetLocation(w http.ResponseWriter, r *http.Request) {
	store, ok := h.sessionStore(w, r)
	if !ok {
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, stateResponse(store))
}

// SetScope handles PUT /location/scope - changes the preference scope.
func (h *LocationHandlers) SetScope(w http.ResponseWriter, r *http.Request) {
	store, ok := h.sessionStore(w, r)
	if !ok {
		return
	}

	var req ScopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	scope, ok := location.ParseScope(req.Scope)
	if !ok {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation,
			"Scope must be one of: condo, neighborhood, city")
		return
	}

	store.SetScope(scope)
	WriteJSON(w, r.Context(), http.StatusOK, stateResponse(store))
}

// EditNeighborhood handles PUT /location/neighborhood - manually overrides
// the neighborhood label on the current location.
func (h *LocationHandlers) EditNeighborhood(w http.ResponseWriter, r *http.Request) {
	store, ok := h.sessionStore(w, r)
	if !ok {
		return
	}

	var req NeighborhoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(req.Neighborhood) == "" {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "Neighborhood name is required")
		return
	}

	if !store.EditNeighborhood(req.Neighborhood) {
		WriteError(w, r.Context(), http.StatusConflict, ErrCodeLocationRequired,
			"Resolve a location before editing the neighborhood")
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, stateResponse(store))
}
