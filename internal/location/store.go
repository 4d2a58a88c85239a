package location

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/quintalapp/geoscope/internal/persist"
)

// DisplayPlaceholder is returned by DisplayLocation before any location has
// been resolved for the session.
const DisplayPlaceholder = "Set your location"

// Persistence key prefixes. Each session stores two keys: the serialized
// location and the scope string.
const (
	locationKeyPrefix = "geoscope:location:"
	scopeKeyPrefix    = "geoscope:scope:"
)

// persistTimeout bounds each cache read/write so a slow backend cannot
// stall an update.
const persistTimeout = 2 * time.Second

// HistorySink receives a best-effort record of every applied location
// update. Implementations must not block; failures stay internal.
type HistorySink interface {
	RecordVisit(sessionKey string, loc ResolvedLocation)
}

// Store holds the current ResolvedLocation and Scope for one session.
//
// The store is the single writer for this state. Mutation granularity is one
// full struct replacement; readers always see a complete location. Persisted
// copies are a seed cache, not a second source of truth: they are read once
// at construction, after which the in-memory state is authoritative.
type Store struct {
	sessionKey string
	kv         persist.KV
	sink       HistorySink
	logger     *slog.Logger

	mu    sync.RWMutex
	loc   *ResolvedLocation
	scope Scope
	gen   uint64
}

// NewStore creates a session store and seeds it from the persistence cache.
// Missing or corrupt cached values silently yield "no location yet" and the
// default scope; a broken cache never breaks a session.
func NewStore(ctx context.Context, sessionKey string, kv persist.KV, sink HistorySink, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		sessionKey: sessionKey,
		kv:         kv,
		sink:       sink,
		logger:     logger,
		scope:      DefaultScope,
	}

	if data, err := kv.Get(ctx, locationKeyPrefix+sessionKey); err == nil {
		if loc, decErr := DecodeLocation(data); decErr == nil {
			s.loc = &loc
		} else {
			logger.Debug("discarding corrupt cached location", "session", sessionKey, "error", decErr)
		}
	} else if !errors.Is(err, persist.ErrNotFound) {
		logger.Debug("location cache read failed", "session", sessionKey, "error", err)
	}

	if data, err := kv.Get(ctx, scopeKeyPrefix+sessionKey); err == nil {
		if scope, ok := ParseScope(string(data)); ok {
			s.scope = scope
		}
	} else if !errors.Is(err, persist.ErrNotFound) {
		logger.Debug("scope cache read failed", "session", sessionKey, "error", err)
	}

	return s
}

// Location returns a copy of the current location, or nil if none has been
// resolved yet.
func (s *Store) Location() *ResolvedLocation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loc == nil {
		return nil
	}
	loc := *s.loc
	return &loc
}

// Scope returns the active scope.
func (s *Store) Scope() Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}

// DisplayLocation projects the current location through the active scope.
// Pure projection, recomputed on every call.
func (s *Store) DisplayLocation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loc == nil {
		return DisplayPlaceholder
	}
	return s.loc.Label(s.scope)
}

// Begin issues a resolution generation token. A resolution started with this
// token only lands through Apply if no newer resolution or manual update has
// happened in between, so a slow geocoding response cannot overwrite fresher
// state.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

// Apply installs a resolution started at generation gen. Returns false if
// the resolution was superseded, in which case nothing changes.
func (s *Store) Apply(gen uint64, loc ResolvedLocation) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.updateLocked(loc)
	s.mu.Unlock()
	return true
}

// Update replaces the current location wholesale and bumps the generation,
// invalidating any in-flight resolution.
func (s *Store) Update(loc ResolvedLocation) {
	s.mu.Lock()
	s.gen++
	s.updateLocked(loc)
	s.mu.Unlock()
}

// updateLocked applies the scope-downgrade invariant, installs the new
// location, persists both values, and fires the history sink.
// Caller must hold s.mu.
func (s *Store) updateLocked(loc ResolvedLocation) {
	loc = loc.Normalized()

	// A scope pointing at a sentinel neighborhood is meaningless: downgrade
	// to city so display and filtering stay coherent.
	if !loc.HasNeighborhood() {
		s.scope = ScopeCity
	}

	s.loc = &loc

	s.persistLocationLocked()
	s.persistScopeLocked()
	s.recordVisitLocked()
}

// SetScope changes the scope preference. Always legal regardless of the
// current location; the caller is responsible for only offering scopes that
// make sense. No network effect.
func (s *Store) SetScope(scope Scope) {
	s.mu.Lock()
	s.scope = scope
	s.persistScopeLocked()
	s.mu.Unlock()
}

// EditNeighborhood is the manual override: it derives a new location from
// the current one with the neighborhood replaced, forces the scope to
// Neighborhood, persists, and records history. Returns false (a no-op) when
// no base location exists or the name is blank.
func (s *Store) EditNeighborhood(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loc == nil {
		return false
	}

	s.gen++
	loc := s.loc.WithNeighborhood(trimmed)
	s.loc = &loc
	s.scope = ScopeNeighborhood

	s.persistLocationLocked()
	s.persistScopeLocked()
	s.recordVisitLocked()
	return true
}

// persistLocationLocked writes the current location to the cache. A failed
// write is deliberately ignored beyond logging: in-memory state remains
// correct for the session, and the cache will heal on the next update.
func (s *Store) persistLocationLocked() {
	data, err := EncodeLocation(*s.loc)
	if err != nil {
		s.logger.Warn("failed to encode location for cache", "session", s.sessionKey, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.kv.Set(ctx, locationKeyPrefix+s.sessionKey, data); err != nil {
		s.logger.Warn("location cache write failed", "session", s.sessionKey, "error", err)
	}
}

// persistScopeLocked writes the current scope to the cache, with the same
// ignore-on-failure policy as persistLocationLocked.
func (s *Store) persistScopeLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.kv.Set(ctx, scopeKeyPrefix+s.sessionKey, []byte(s.scope)); err != nil {
		s.logger.Warn("scope cache write failed", "session", s.sessionKey, "error", err)
	}
}

// recordVisitLocked hands the new location to the history sink, if any.
// The sink contract is fire-and-forget; this never blocks the update.
func (s *Store) recordVisitLocked() {
	if s.sink == nil {
		return
	}
	s.sink.RecordVisit(s.sessionKey, *s.loc)
}
