package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quintalapp/geoscope/internal/gate"
	"github.com/quintalapp/geoscope/internal/listing"
	"github.com/quintalapp/geoscope/internal/location"
	"github.com/quintalapp/geoscope/internal/persist"
)

func seedFeedRepo(t *testing.T) listing.Repository {
	t.Helper()
	repo := listing.NewInMemoryRepository()
	ctx := context.Background()

	inputs := []listing.Input{
		{OwnerID: "seller-1", Title: "Bazar da Consolação", City: "São Paulo", Neighborhood: "Consolação"},
		{OwnerID: "seller-2", Title: "Feira de Moema", City: "São Paulo", Neighborhood: "Moema"},
		{OwnerID: "seller-3", Title: "Feira do Cambuí", City: "Campinas", Neighborhood: "Cambuí"},
	}
	for _, in := range inputs {
		if _, err := repo.Create(ctx, in); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	return repo
}

func getFeed(t *testing.T, h *FeedHandlers, target string) (*httptest.ResponseRecorder, FeedResponse) {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(SessionHeader, "session-1")
	h.GetFeed(rec, req)

	var resp FeedResponse
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("response is not JSON: %v", err)
		}
	}
	return rec, resp
}

func TestGetFeedNeighborhoodScope(t *testing.T) {
	manager := managerWithViewer(t, "São Paulo", "Consolação")
	h := NewFeedHandlers(manager, seedFeedRepo(t), gate.NewMetrics())

	rec, resp := getFeed(t, h, "/feed")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(resp.Items))
	}
	if resp.Items[0].Listing.Title != "Bazar da Consolação" {
		t.Errorf("item = %q", resp.Items[0].Listing.Title)
	}
	if resp.Items[0].Access.Outcome != gate.OutcomeAllow {
		t.Errorf("access = %v", resp.Items[0].Access.Outcome)
	}
	if resp.Scope != location.ScopeNeighborhood {
		t.Errorf("scope = %v", resp.Scope)
	}
}

func TestGetFeedCityScope(t *testing.T) {
	manager := managerWithViewer(t, "São Paulo", "Consolação")
	manager.Store(context.Background(), "session-1", false).SetScope(location.ScopeCity)
	h := NewFeedHandlers(manager, seedFeedRepo(t), nil)

	rec, resp := getFeed(t, h, "/feed")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("items = %d, want both city listings", len(resp.Items))
	}
	// The other-neighborhood listing is visible at city scope but carries
	// the advisory decision.
	for _, item := range resp.Items {
		want := gate.OutcomeAllow
		if item.Listing.Neighborhood == "Moema" {
			want = gate.OutcomeWarn
		}
		if item.Access.Outcome != want {
			t.Errorf("%q access = %v, want %v", item.Listing.Title, item.Access.Outcome, want)
		}
	}
}

func TestGetFeedWithoutLocation(t *testing.T) {
	manager := location.NewManager(persist.NewInMemoryKV(), nil, nil)
	h := NewFeedHandlers(manager, seedFeedRepo(t), nil)

	rec, resp := getFeed(t, h, "/feed")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(resp.Items) != 3 {
		t.Errorf("items = %d, want all listings for unresolved viewer", len(resp.Items))
	}
}

func TestGetFeedLimitValidation(t *testing.T) {
	manager := managerWithViewer(t, "São Paulo", "Consolação")
	h := NewFeedHandlers(manager, seedFeedRepo(t), nil)

	rec, _ := getFeed(t, h, "/feed?limit=0")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want 400", rec.Code)
	}

	rec, _ = getFeed(t, h, "/feed?limit=101")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("limit=101 status = %d, want 400", rec.Code)
	}
}

func TestCreateListingInheritsViewerLocation(t *testing.T) {
	manager := managerWithViewer(t, "São Paulo", "Consolação")
	repo := listing.NewInMemoryRepository()
	h := NewFeedHandlers(manager, repo, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/listings", strings.NewReader(`{"title": "Bicicleta usada"}`))
	req.Header.Set(SessionHeader, "session-1")
	h.CreateListing(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created listing.Listing
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if created.City != "São Paulo" || created.Neighborhood != "Consolação" {
		t.Errorf("binding = %q / %q, want viewer's place", created.City, created.Neighborhood)
	}
	if created.OwnerID != "session-1" {
		t.Errorf("owner = %q", created.OwnerID)
	}
}

func TestCreateListingExplicitLocation(t *testing.T) {
	manager := managerWithViewer(t, "São Paulo", "Consolação")
	h := NewFeedHandlers(manager, listing.NewInMemoryRepository(), nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/listings",
		strings.NewReader(`{"title": "Sofá", "city": "Campinas", "neighborhood": "Cambuí"}`))
	req.Header.Set(SessionHeader, "session-1")
	h.CreateListing(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	var created listing.Listing
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if created.City != "Campinas" {
		t.Errorf("city = %q, want explicit binding preserved", created.City)
	}
}

func TestCreateListingRequiresTitle(t *testing.T) {
	manager := location.NewManager(persist.NewInMemoryKV(), nil, nil)
	h := NewFeedHandlers(manager, listing.NewInMemoryRepository(), nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/listings", strings.NewReader(`{"title": "  "}`))
	req.Header.Set(SessionHeader, "session-1")
	h.CreateListing(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetListing(t *testing.T) {
	manager := location.NewManager(persist.NewInMemoryKV(), nil, nil)
	repo := listing.NewInMemoryRepository()
	created, err := repo.Create(context.Background(), listing.Input{OwnerID: "seller-1", Title: "Sofá"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	h := NewFeedHandlers(manager, repo, nil)

	// Route through a mux so the path parameter is bound.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /listings/{id}", h.GetListing)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/listings/"+created.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got listing.Listing
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID = %q, want %q", got.ID, created.ID)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/listings/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing listing status = %d, want 404", rec.Code)
	}
}
