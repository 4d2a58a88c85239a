package api

import (
	"net/http"
	"strconv"

	"github.com/quintalapp/geoscope/internal/geo"
	"github.com/quintalapp/geoscope/internal/history"
	"github.com/quintalapp/geoscope/internal/middleware"
)

// DefaultHistoryLimit bounds one history page.
const DefaultHistoryLimit = 50

// HistoryResponse is a user's recent visits, newest first.
type HistoryResponse struct {
	Visits []*history.Visit `json:"visits"`
}

// HistoryHandlers holds dependencies for history HTTP handlers.
type HistoryHandlers struct {
	repo history.Repository
}

// NewHistoryHandlers creates a new HistoryHandlers instance.
func NewHistoryHandlers(repo history.Repository) *HistoryHandlers {
	return &HistoryHandlers{repo: repo}
}

// GetHistory handles GET /location/history - returns the authenticated
// user's own visit history. Anonymous sessions have no durable identity to
// query, so a bearer token is required here. An optional precision query
// parameter coarsens the returned geohash cells for export to less trusted
// consumers.
func (h *HistoryHandlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeSessionRequired,
			"Location history requires a bearer token")
		return
	}

	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > DefaultHistoryLimit {
			WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation,
				"limit must be between 1 and 50")
			return
		}
		limit = n
	}

	precision := 0
	if raw := r.URL.Query().Get("precision"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > geo.DefaultPrecision {
			WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation,
				"precision must be between 1 and 6")
			return
		}
		precision = n
	}

	visits, err := h.repo.QueryByUser(r.Context(), userID, limit)
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load history")
		return
	}
	if visits == nil {
		visits = []*history.Visit{}
	}

	// Round on copies so the stored records keep their full cells.
	if precision > 0 {
		rounded := make([]*history.Visit, len(visits))
		for i, v := range visits {
			c := *v
			c.Geohash = geo.RoundGeohash(c.Geohash, precision)
			rounded[i] = &c
		}
		visits = rounded
	}

	WriteJSON(w, r.Context(), http.StatusOK, HistoryResponse{Visits: visits})
}
