// Package listing provides the location-bound feed items that scope
// filtering and access gating operate on.
package listing

import (
	"time"
)

// Listing is one feed item pinned to a place. Empty City or Neighborhood
// means the listing's binding is unknown at that level.
type Listing struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Title   string `json:"title"`
	Body    string `json:"body,omitempty"`

	City         string `json:"city"`
	Neighborhood string `json:"neighborhood,omitempty"`
	Condo        string `json:"condo,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Input is the payload for creating a listing.
type Input struct {
	OwnerID      string
	Title        string
	Body         string
	City         string
	Neighborhood string
	Condo        string
}
