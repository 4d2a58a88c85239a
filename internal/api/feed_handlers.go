package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/quintalapp/geoscope/internal/gate"
	"github.com/quintalapp/geoscope/internal/listing"
	"github.com/quintalapp/geoscope/internal/location"
)

// MaxFeedLimit caps the number of items one feed request returns.
const MaxFeedLimit = 100

// CreateListingRequest is the request body for creating a listing.
// Empty location fields inherit the session's resolved location.
type CreateListingRequest struct {
	Title        string `json:"title"`
	Body         string `json:"body,omitempty"`
	City         string `json:"city,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	Condo        string `json:"condo,omitempty"`
}

// FeedItem is one listing plus the viewer's access decision for it.
type FeedItem struct {
	Listing *listing.Listing  `json:"listing"`
	Access  GateCheckResponse `json:"access"`
}

// FeedResponse is the scope-filtered feed.
type FeedResponse struct {
	Items []FeedItem     `json:"items"`
	Scope location.Scope `json:"scope"`
}

// FeedHandlers holds dependencies for feed and listing HTTP handlers.
type FeedHandlers struct {
	manager *location.Manager
	repo    listing.Repository
	metrics *gate.Metrics
}

// NewFeedHandlers creates a new FeedHandlers instance.
// metrics may be nil.
func NewFeedHandlers(manager *location.Manager, repo listing.Repository, metrics *gate.Metrics) *FeedHandlers {
	return &FeedHandlers{manager: manager, repo: repo, metrics: metrics}
}

// GetFeed handles GET /feed - returns listings narrowed to the session's
// location at its preference scope, each annotated with the gate decision
// the viewer would get when acting on it.
func (h *FeedHandlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	key, authenticated := sessionIdentity(r)
	if key == "" {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeSessionRequired,
			"Provide a bearer token or an X-Session-ID header")
		return
	}

	limit := MaxFeedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > MaxFeedLimit {
			WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation,
				"limit must be between 1 and 100")
			return
		}
		limit = n
	}

	store := h.manager.Store(r.Context(), key, authenticated)
	viewer := store.Location()
	scope := store.Scope()

	all, err := h.repo.List(r.Context(), 0)
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load feed")
		return
	}

	matched := listing.FilterFor(all, viewer, scope)
	if len(matched) > limit {
		matched = matched[:limit]
	}

	items := make([]FeedItem, 0, len(matched))
	for _, l := range matched {
		bypass := l.OwnerID != "" && l.OwnerID == key
		decision := gate.Decide(viewer, gate.Content{
			City:         l.City,
			Neighborhood: l.Neighborhood,
			DisplayName:  l.Title,
		}, bypass)

		if h.metrics != nil {
			h.metrics.IncDecisionsTotal(decision.Outcome)
		}

		items = append(items, FeedItem{
			Listing: l,
			Access: GateCheckResponse{
				Outcome: decision.Outcome,
				Message: decision.Message,
			},
		})
	}

	WriteJSON(w, r.Context(), http.StatusOK, FeedResponse{Items: items, Scope: scope})
}

// CreateListing handles POST /listings - creates a listing owned by the
// session, defaulting its location binding to the session's resolved
// location.
func (h *FeedHandlers) CreateListing(w http.ResponseWriter, r *http.Request) {
	key, authenticated := sessionIdentity(r)
	if key == "" {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeSessionRequired,
			"Provide a bearer token or an X-Session-ID header")
		return
	}

	var req CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "Listing title is required")
		return
	}

	input := listing.Input{
		OwnerID:      key,
		Title:        strings.TrimSpace(req.Title),
		Body:         strings.TrimSpace(req.Body),
		City:         strings.TrimSpace(req.City),
		Neighborhood: strings.TrimSpace(req.Neighborhood),
		Condo:        strings.TrimSpace(req.Condo),
	}

	// Inherit the seller's own place when the request does not pin one.
	if input.City == "" {
		if viewer := h.manager.Store(r.Context(), key, authenticated).Location(); viewer != nil {
			if viewer.City != location.UnknownCity {
				input.City = viewer.City
			}
			if input.Neighborhood == "" && viewer.HasNeighborhood() {
				input.Neighborhood = viewer.Neighborhood
			}
		}
	}

	created, err := h.repo.Create(r.Context(), input)
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to create listing")
		return
	}

	WriteJSON(w, r.Context(), http.StatusCreated, created)
}

// GetListing handles GET /listings/{id}.
func (h *FeedHandlers) GetListing(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Listing ID is required")
		return
	}

	l, err := h.repo.Get(r.Context(), id)
	if err != nil {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Listing not found")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, l)
}
