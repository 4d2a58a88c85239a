package listing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quintalapp/geoscope/internal/geo"
	"github.com/quintalapp/geoscope/internal/location"
)

// ErrListingNotFound is returned when a listing does not exist.
var ErrListingNotFound = errors.New("listing not found")

// Repository defines the interface for listing storage.
type Repository interface {
	// Create persists a new listing and returns it.
	Create(ctx context.Context, input Input) (*Listing, error)

	// Get retrieves a listing by ID.
	Get(ctx context.Context, id string) (*Listing, error)

	// List retrieves listings, sorted by time (newest first).
	// Limit specifies the maximum number of entries to return (0 = no limit).
	List(ctx context.Context, limit int) ([]*Listing, error)
}

// FilterFor narrows listings to a viewer's location at a preference scope.
// Comparison ignores case and diacritics. A nil viewer location returns
// everything: filtering only applies once the viewer is resolvable.
//
// City scope matches on city. Narrower scopes additionally match on
// neighborhood, unless the viewer's neighborhood is unknown, in which case
// they degrade to the city match.
func FilterFor(listings []*Listing, viewer *location.ResolvedLocation, scope location.Scope) []*Listing {
	if viewer == nil {
		return listings
	}

	viewerCity := viewer.City
	if viewerCity == location.UnknownCity {
		return listings
	}

	byNeighborhood := scope != location.ScopeCity && viewer.HasNeighborhood()

	var out []*Listing
	for _, l := range listings {
		if !geo.SameLabel(l.City, viewerCity) {
			continue
		}
		if byNeighborhood && !geo.SameLabel(l.Neighborhood, viewer.Neighborhood) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu       sync.RWMutex
	listings map[string]*Listing
	// Maintain insertion order for queries
	order []string
}

// NewInMemoryRepository creates a new in-memory listing repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		listings: make(map[string]*Listing),
		order:    make([]string, 0),
	}
}

// Create persists a new listing and returns it.
func (r *InMemoryRepository) Create(_ context.Context, input Input) (*Listing, error) {
	l := &Listing{
		ID:           uuid.New().String(),
		OwnerID:      input.OwnerID,
		Title:        input.Title,
		Body:         input.Body,
		City:         input.City,
		Neighborhood: input.Neighborhood,
		Condo:        input.Condo,
		CreatedAt:    time.Now().UTC(),
	}

	r.mu.Lock()
	r.listings[l.ID] = l
	r.order = append(r.order, l.ID)
	r.mu.Unlock()

	// Return a copy to prevent external modification
	listingCopy := *l
	return &listingCopy, nil
}

// Get retrieves a listing by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.listings[id]
	if !ok {
		return nil, ErrListingNotFound
	}

	listingCopy := *l
	return &listingCopy, nil
}

// List retrieves listings, sorted by time (newest first).
func (r *InMemoryRepository) List(_ context.Context, limit int) ([]*Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*Listing

	// Iterate in reverse order (newest first)
	for i := len(r.order) - 1; i >= 0; i-- {
		listingCopy := *r.listings[r.order[i]]
		results = append(results, &listingCopy)

		if limit > 0 && len(results) >= limit {
			break
		}
	}

	return results, nil
}
