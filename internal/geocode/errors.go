package geocode

import "errors"

// Resolution errors. All are terminal for the triggering action: the caller
// surfaces a message and keeps the previous location, never retrying
// automatically.
var (
	// ErrProviderUnavailable indicates a transport failure or an
	// unexpected provider response.
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")

	// ErrNoAddressFound indicates the provider answered but had no usable
	// address for the coordinates or postal code.
	ErrNoAddressFound = errors.New("no address found")

	// ErrNoResultsFound indicates a free-text search returned zero results.
	ErrNoResultsFound = errors.New("no results found")
)
