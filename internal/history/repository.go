package history

import (
	"context"
	"sync"
)

// Repository defines the interface for visit storage.
type Repository interface {
	// RecordVisit persists one visit.
	RecordVisit(ctx context.Context, visit *Visit) error

	// QueryByUser retrieves a user's visits, sorted by time (newest first).
	// Limit specifies the maximum number of entries to return (0 = no limit).
	QueryByUser(ctx context.Context, userID string, limit int) ([]*Visit, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu     sync.RWMutex
	visits map[string]*Visit
	// Maintain insertion order for queries
	order []string
}

// NewInMemoryRepository creates a new in-memory visit repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		visits: make(map[string]*Visit),
		order:  make([]string, 0),
	}
}

// RecordVisit persists one visit.
func (r *InMemoryRepository) RecordVisit(_ context.Context, visit *Visit) error {
	visitCopy := *visit

	r.mu.Lock()
	r.visits[visitCopy.ID] = &visitCopy
	r.order = append(r.order, visitCopy.ID)
	r.mu.Unlock()

	return nil
}

// QueryByUser retrieves a user's visits, sorted by time (newest first).
func (r *InMemoryRepository) QueryByUser(_ context.Context, userID string, limit int) ([]*Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*Visit

	// Iterate in reverse order (newest first)
	for i := len(r.order) - 1; i >= 0; i-- {
		visit := r.visits[r.order[i]]

		if visit.UserID == userID {
			// Copy to prevent external modification
			visitCopy := *visit
			results = append(results, &visitCopy)

			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}

	return results, nil
}
