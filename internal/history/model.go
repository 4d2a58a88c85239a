// Package history records where users have been. Visits are written
// asynchronously so location updates never wait on storage, and positions
// are coarsened to a geohash cell before persistence.
package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/quintalapp/geoscope/internal/geo"
)

// Visit is one recorded location event.
type Visit struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// Geohash is the coarsened cell the visit happened in. Exact
	// coordinates are also kept for the owner's own timeline.
	Geohash   string  `json:"geohash"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	City         string `json:"city"`
	Neighborhood string `json:"neighborhood"`

	CreatedAt time.Time `json:"created_at"`
}

// Entry is the input for recording a visit.
type Entry struct {
	UserID       string
	Latitude     float64
	Longitude    float64
	City         string
	Neighborhood string
}

// newVisit stamps an entry with identity, geohash cell, and time.
func newVisit(entry Entry) *Visit {
	return &Visit{
		ID:           uuid.New().String(),
		UserID:       entry.UserID,
		Geohash:      geo.Encode(entry.Latitude, entry.Longitude, geo.DefaultPrecision),
		Latitude:     entry.Latitude,
		Longitude:    entry.Longitude,
		City:         entry.City,
		Neighborhood: entry.Neighborhood,
		CreatedAt:    time.Now().UTC(),
	}
}
