// Package geocode resolves device coordinates and free-text queries into
// normalized addresses using external geocoding providers. Providers are
// polymorphic: the resolver is configured with one at startup and callers
// never learn which is in use.
package geocode

import "context"

// Address is the raw field extraction from one provider response, before
// sentinel substitution. Empty fields mean the provider had no usable value.
type Address struct {
	Condo        string
	Neighborhood string
	City         string

	Latitude       float64
	Longitude      float64
	HasCoordinates bool
}

// Provider converts between coordinates and structured addresses.
// Implementations map their own tag vocabulary onto Address fields using
// ordered preference lists; the most specific available tag wins.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// ReverseGeocode converts coordinates into an address.
	ReverseGeocode(ctx context.Context, lat, lng float64) (Address, error)

	// ForwardGeocode converts a free-text query into an address,
	// considering only the best match.
	ForwardGeocode(ctx context.Context, query string) (Address, error)
}

// PostalProvider looks up national postal codes. Postal responses are
// authoritative for labels but carry no coordinates.
type PostalProvider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// LookupPostalCode resolves an 8-digit postal code (digits only).
	LookupPostalCode(ctx context.Context, code string) (Address, error)
}
