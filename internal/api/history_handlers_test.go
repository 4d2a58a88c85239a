package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quintalapp/geoscope/internal/geo"
	"github.com/quintalapp/geoscope/internal/history"
	"github.com/quintalapp/geoscope/internal/location"
	"github.com/quintalapp/geoscope/internal/middleware"
)

func seededHistoryHandlers(t *testing.T) *HistoryHandlers {
	t.Helper()
	repo := history.NewInMemoryRepository()
	w := history.NewWriter(history.WriterConfig{}, repo)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	w.RecordVisit("user-1", location.ResolvedLocation{
		City:         "São Paulo",
		Neighborhood: "Consolação",
		Latitude:     -23.55,
		Longitude:    -46.63,
	})
	w.RecordVisit("user-2", location.ResolvedLocation{
		City:      "Campinas",
		Latitude:  -22.90,
		Longitude: -47.06,
	})
	// Stop drains the queue so every visit is stored before querying.
	w.Stop()

	return NewHistoryHandlers(repo)
}

func TestGetHistory(t *testing.T) {
	h := seededHistoryHandlers(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/location/history", nil)
	req = req.WithContext(middleware.SetUserID(req.Context(), "user-1"))
	h.GetHistory(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if len(resp.Visits) != 1 {
		t.Fatalf("visits = %d, want only own visits", len(resp.Visits))
	}
	if resp.Visits[0].City != "São Paulo" {
		t.Errorf("City = %q", resp.Visits[0].City)
	}
	if resp.Visits[0].Geohash == "" {
		t.Error("visit has no geohash")
	}
}

func TestGetHistoryRequiresAuth(t *testing.T) {
	h := seededHistoryHandlers(t)

	// A session header is not enough for history.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/location/history", nil)
	req.Header.Set(SessionHeader, "session-1")
	h.GetHistory(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestGetHistoryEmpty(t *testing.T) {
	h := NewHistoryHandlers(history.NewInMemoryRepository())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/location/history", nil)
	req = req.WithContext(middleware.SetUserID(req.Context(), "user-9"))
	h.GetHistory(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.Visits == nil || len(resp.Visits) != 0 {
		t.Errorf("visits = %v, want empty list", resp.Visits)
	}
}

func TestGetHistoryPrecision(t *testing.T) {
	h := seededHistoryHandlers(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/location/history?precision=3", nil)
	req = req.WithContext(middleware.SetUserID(req.Context(), "user-1"))
	h.GetHistory(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if len(resp.Visits) != 1 {
		t.Fatalf("visits = %d, want 1", len(resp.Visits))
	}
	if want := geo.Encode(-23.55, -46.63, 3); resp.Visits[0].Geohash != want {
		t.Errorf("geohash = %q, want %q", resp.Visits[0].Geohash, want)
	}

	// A second read without the parameter still sees the full cell.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/location/history", nil)
	req = req.WithContext(middleware.SetUserID(req.Context(), "user-1"))
	h.GetHistory(rec, req)
	resp = HistoryResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if len(resp.Visits) != 1 || len(resp.Visits[0].Geohash) != geo.DefaultPrecision {
		t.Errorf("stored geohash was coarsened: %+v", resp.Visits)
	}
}

func TestGetHistoryPrecisionValidation(t *testing.T) {
	h := seededHistoryHandlers(t)

	for _, raw := range []string{"0", "7", "abc"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/location/history?precision="+raw, nil)
		req = req.WithContext(middleware.SetUserID(req.Context(), "user-1"))
		h.GetHistory(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("precision=%s status = %d, want 400", raw, rec.Code)
		}
	}
}

func TestGetHistoryLimitValidation(t *testing.T) {
	h := seededHistoryHandlers(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/location/history?limit=0", nil)
	req = req.WithContext(middleware.SetUserID(req.Context(), "user-1"))
	h.GetHistory(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
