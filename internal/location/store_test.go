package location

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/quintalapp/geoscope/internal/persist"
)

// recordingSink captures history sink calls for assertions.
type recordingSink struct {
	mu     sync.Mutex
	visits []ResolvedLocation
}

func (s *recordingSink) RecordVisit(sessionKey string, loc ResolvedLocation) {
	s.mu.Lock()
	s.visits = append(s.visits, loc)
	s.mu.Unlock()
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visits)
}

func testLocation() ResolvedLocation {
	return ResolvedLocation{
		Condo:        "Rua Augusta, 100",
		Neighborhood: "Consolação",
		City:         "São Paulo",
		Latitude:     -23.55,
		Longitude:    -46.63,
	}
}

func newTestStore(t *testing.T, kv persist.KV, sink HistorySink) *Store {
	t.Helper()
	return NewStore(context.Background(), "session-1", kv, sink, nil)
}

func TestStoreStartsEmpty(t *testing.T) {
	s := newTestStore(t, persist.NewInMemoryKV(), nil)

	if loc := s.Location(); loc != nil {
		t.Errorf("new store Location() = %+v, want nil", loc)
	}
	if scope := s.Scope(); scope != DefaultScope {
		t.Errorf("new store Scope() = %v, want %v", scope, DefaultScope)
	}
	if display := s.DisplayLocation(); display != DisplayPlaceholder {
		t.Errorf("new store DisplayLocation() = %q, want %q", display, DisplayPlaceholder)
	}
}

func TestUpdateSetsLocationAndPersists(t *testing.T) {
	kv := persist.NewInMemoryKV()
	sink := &recordingSink{}
	s := newTestStore(t, kv, sink)

	s.Update(testLocation())

	loc := s.Location()
	if loc == nil {
		t.Fatal("Location() = nil after Update")
	}
	if loc.Neighborhood != "Consolação" {
		t.Errorf("Neighborhood = %q", loc.Neighborhood)
	}
	if s.DisplayLocation() != "Consolação" {
		t.Errorf("DisplayLocation() = %q, want Consolação", s.DisplayLocation())
	}
	if sink.count() != 1 {
		t.Errorf("history sink received %d visits, want 1", sink.count())
	}

	// The cache now seeds a fresh store for the same session.
	s2 := newTestStore(t, kv, nil)
	loc2 := s2.Location()
	if loc2 == nil {
		t.Fatal("reloaded store has no location")
	}
	if *loc2 != *loc {
		t.Errorf("reloaded location = %+v, want %+v", *loc2, *loc)
	}
	if s2.Scope() != ScopeNeighborhood {
		t.Errorf("reloaded scope = %v, want %v", s2.Scope(), ScopeNeighborhood)
	}
}

func TestUpdateScopeDowngrade(t *testing.T) {
	tests := []struct {
		name      string
		initial   Scope
		wantScope Scope
	}{
		{"from neighborhood", ScopeNeighborhood, ScopeCity},
		{"from condo", ScopeCondo, ScopeCity},
		{"from city", ScopeCity, ScopeCity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, persist.NewInMemoryKV(), nil)
			s.SetScope(tt.initial)

			loc := testLocation()
			loc.Neighborhood = ""
			s.Update(loc)

			if got := s.Scope(); got != tt.wantScope {
				t.Errorf("scope after sentinel update = %v, want %v", got, tt.wantScope)
			}
			if got := s.Location().Neighborhood; got != UnknownNeighborhood {
				t.Errorf("neighborhood = %q, want sentinel", got)
			}
			if got := s.DisplayLocation(); got != "São Paulo" {
				t.Errorf("DisplayLocation() = %q, want city label", got)
			}
		})
	}
}

func TestUpdateIdempotent(t *testing.T) {
	kv := persist.NewInMemoryKV()
	s := newTestStore(t, kv, nil)

	loc := testLocation()
	s.Update(loc)
	first := s.Location()
	firstDisplay := s.DisplayLocation()

	s.Update(loc)
	second := s.Location()

	if *first != *second {
		t.Errorf("double update changed location: %+v vs %+v", *first, *second)
	}
	if s.DisplayLocation() != firstDisplay {
		t.Errorf("double update changed display: %q vs %q", s.DisplayLocation(), firstDisplay)
	}

	// Persisted state is also identical: a fresh store sees the same value.
	s2 := newTestStore(t, kv, nil)
	if *s2.Location() != *first {
		t.Errorf("persisted location differs after double update")
	}
}

func TestUpdateSurvivesPersistenceFailure(t *testing.T) {
	kv := &persist.FailingKV{Err: errors.New("disk full")}
	s := NewStore(context.Background(), "session-1", kv, nil, nil)

	s.Update(testLocation())

	// In-memory state is correct despite every cache write failing.
	if loc := s.Location(); loc == nil || loc.City != "São Paulo" {
		t.Errorf("Location() = %+v, want in-memory state intact", loc)
	}
}

func TestSetScopeChangesDisplay(t *testing.T) {
	s := newTestStore(t, persist.NewInMemoryKV(), nil)
	s.Update(testLocation())

	s.SetScope(ScopeCity)
	if got := s.DisplayLocation(); got != "São Paulo" {
		t.Errorf("DisplayLocation() = %q, want city", got)
	}

	s.SetScope(ScopeCondo)
	if got := s.DisplayLocation(); got != "Rua Augusta, 100" {
		t.Errorf("DisplayLocation() = %q, want condo", got)
	}
}

func TestEditNeighborhood(t *testing.T) {
	sink := &recordingSink{}
	s := newTestStore(t, persist.NewInMemoryKV(), sink)

	// No base location yet: no-op.
	if s.EditNeighborhood("Centro") {
		t.Error("EditNeighborhood succeeded with no base location")
	}

	s.Update(testLocation())
	s.SetScope(ScopeCity)

	// Blank names are no-ops.
	if s.EditNeighborhood("   ") {
		t.Error("EditNeighborhood succeeded with blank name")
	}

	if !s.EditNeighborhood("  Bela Vista ") {
		t.Fatal("EditNeighborhood failed with valid name")
	}
	if got := s.Location().Neighborhood; got != "Bela Vista" {
		t.Errorf("neighborhood = %q, want Bela Vista", got)
	}
	if got := s.Scope(); got != ScopeNeighborhood {
		t.Errorf("scope after edit = %v, want neighborhood", got)
	}
	// One visit for the update, one for the edit.
	if sink.count() != 2 {
		t.Errorf("history sink received %d visits, want 2", sink.count())
	}
}

func TestStaleResolutionDiscarded(t *testing.T) {
	s := newTestStore(t, persist.NewInMemoryKV(), nil)

	// First resolution starts, then a second starts and lands.
	genStale := s.Begin()
	genFresh := s.Begin()

	fresh := testLocation()
	if !s.Apply(genFresh, fresh) {
		t.Fatal("fresh resolution was not applied")
	}

	stale := testLocation()
	stale.City = "Rio de Janeiro"
	if s.Apply(genStale, stale) {
		t.Error("stale resolution was applied over fresher state")
	}
	if got := s.Location().City; got != "São Paulo" {
		t.Errorf("City = %q, want São Paulo", got)
	}
}

func TestManualUpdateInvalidatesInFlightResolution(t *testing.T) {
	s := newTestStore(t, persist.NewInMemoryKV(), nil)

	gen := s.Begin()
	s.Update(testLocation())

	late := testLocation()
	late.City = "Campinas"
	if s.Apply(gen, late) {
		t.Error("resolution applied after a manual update superseded it")
	}
}

func TestCorruptCacheYieldsEmptyStore(t *testing.T) {
	kv := persist.NewInMemoryKV()
	ctx := context.Background()
	if err := kv.Set(ctx, "geoscope:location:session-1", []byte("garbage")); err != nil {
		t.Fatal(err)
	}
	if err := kv.Set(ctx, "geoscope:scope:session-1", []byte("galaxy")); err != nil {
		t.Fatal(err)
	}

	s := newTestStore(t, kv, nil)
	if s.Location() != nil {
		t.Error("corrupt cached location was not discarded")
	}
	if s.Scope() != DefaultScope {
		t.Errorf("corrupt cached scope yielded %v, want default", s.Scope())
	}
}

func TestManagerReusesStores(t *testing.T) {
	m := NewManager(persist.NewInMemoryKV(), nil, nil)
	ctx := context.Background()

	a := m.Store(ctx, "user-1", true)
	b := m.Store(ctx, "user-1", true)
	c := m.Store(ctx, "user-2", true)

	if a != b {
		t.Error("same session key returned different stores")
	}
	if a == c {
		t.Error("different session keys share a store")
	}
	if m.Sessions() != 2 {
		t.Errorf("Sessions() = %d, want 2", m.Sessions())
	}
}

func TestManagerSessionsIsolated(t *testing.T) {
	m := NewManager(persist.NewInMemoryKV(), nil, nil)
	ctx := context.Background()

	m.Store(ctx, "user-1", true).Update(testLocation())

	if loc := m.Store(ctx, "user-2", true).Location(); loc != nil {
		t.Errorf("user-2 sees user-1's location: %+v", loc)
	}
}

func TestManagerSkipsHistoryForAnonymousSessions(t *testing.T) {
	sink := &recordingSink{}
	m := NewManager(persist.NewInMemoryKV(), sink, nil)
	ctx := context.Background()

	// Device sessions have no durable identity to attribute visits to.
	m.Store(ctx, "device-1", false).Update(testLocation())
	if sink.count() != 0 {
		t.Errorf("anonymous session recorded %d visits, want 0", sink.count())
	}

	m.Store(ctx, "user-1", true).Update(testLocation())
	if sink.count() != 1 {
		t.Errorf("authenticated session recorded %d visits, want 1", sink.count())
	}
}
