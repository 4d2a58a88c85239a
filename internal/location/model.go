// Package location owns the resolved location state for each session: the
// current address, the active scope, their persisted copies, and the derived
// display string. The store is the single writer; everything else reads.
package location

import (
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Sentinel labels substituted when a geocoding provider cannot resolve a
// field. Labels are never empty: consumers compare against these exact
// strings instead of checking for nil.
const (
	UnknownAddress      = "Unknown Address"
	UnknownNeighborhood = "Unknown Neighborhood"
	UnknownCity         = "Unknown City"
)

// Fallback coordinates used when a resolution source carries no real
// coordinates (postal-code lookups). São Paulo city center.
const (
	FallbackLatitude  = -23.5505
	FallbackLongitude = -46.6333
)

// Scope selects which granularity of the resolved location is used for
// display and content filtering.
type Scope string

// Valid scopes, from most to least specific.
const (
	ScopeCondo        Scope = "condo"
	ScopeNeighborhood Scope = "neighborhood"
	ScopeCity         Scope = "city"
)

// DefaultScope is the scope assumed on first run and whenever a persisted
// scope cannot be parsed.
const DefaultScope = ScopeNeighborhood

// ParseScope parses a persisted or user-supplied scope string.
// Unrecognized values fall back to DefaultScope; ok reports whether the
// input was recognized.
func ParseScope(s string) (scope Scope, ok bool) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeCondo:
		return ScopeCondo, true
	case ScopeNeighborhood:
		return ScopeNeighborhood, true
	case ScopeCity:
		return ScopeCity, true
	default:
		return DefaultScope, false
	}
}

// ResolvedLocation is the normalized output of a resolution. It is an
// immutable value: updates replace the whole struct, never individual
// fields. All three labels are non-empty; sentinels stand in for anything
// the provider could not resolve.
type ResolvedLocation struct {
	Condo        string  `json:"condo" cbor:"condo"`
	Neighborhood string  `json:"neighborhood" cbor:"neighborhood"`
	City         string  `json:"city" cbor:"city"`
	Latitude     float64 `json:"latitude" cbor:"lat"`
	Longitude    float64 `json:"longitude" cbor:"lng"`
}

// Normalized returns a copy with sentinel labels substituted for any empty
// field. Resolver output always passes through here.
func (l ResolvedLocation) Normalized() ResolvedLocation {
	if strings.TrimSpace(l.Condo) == "" {
		l.Condo = UnknownAddress
	} else {
		l.Condo = strings.TrimSpace(l.Condo)
	}
	if strings.TrimSpace(l.Neighborhood) == "" {
		l.Neighborhood = UnknownNeighborhood
	} else {
		l.Neighborhood = strings.TrimSpace(l.Neighborhood)
	}
	if strings.TrimSpace(l.City) == "" {
		l.City = UnknownCity
	} else {
		l.City = strings.TrimSpace(l.City)
	}
	return l
}

// HasNeighborhood reports whether the neighborhood was actually resolved,
// as opposed to carrying the sentinel.
func (l ResolvedLocation) HasNeighborhood() bool {
	return l.Neighborhood != UnknownNeighborhood
}

// WithNeighborhood returns a copy with the neighborhood replaced by the
// trimmed name. The manual-override path in the store uses this; nothing
// else derives partial copies.
func (l ResolvedLocation) WithNeighborhood(name string) ResolvedLocation {
	l.Neighborhood = strings.TrimSpace(name)
	return l
}

// Label returns the field selected by scope.
func (l ResolvedLocation) Label(scope Scope) string {
	switch scope {
	case ScopeCondo:
		return l.Condo
	case ScopeCity:
		return l.City
	default:
		return l.Neighborhood
	}
}

// EncodeLocation serializes a location for the persistence cache.
func EncodeLocation(l ResolvedLocation) ([]byte, error) {
	return cbor.Marshal(l)
}

// DecodeLocation deserializes a cached location. Callers treat any error as
// "no cached location" rather than failing.
func DecodeLocation(data []byte) (ResolvedLocation, error) {
	var l ResolvedLocation
	if err := cbor.Unmarshal(data, &l); err != nil {
		return ResolvedLocation{}, err
	}
	return l, nil
}
