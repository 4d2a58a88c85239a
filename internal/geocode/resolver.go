package geocode

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/quintalapp/geoscope/internal/location"
)

// postalCodeLength is the digit count of a Brazilian CEP.
const postalCodeLength = 8

// Resolver turns coordinates and free-text queries into normalized
// locations. It owns the provider selection made at startup and applies
// sentinel substitution so callers always receive displayable labels.
type Resolver struct {
	provider Provider
	postal   PostalProvider
	metrics  *Metrics
	logger   *slog.Logger
}

// NewResolver creates a resolver over the configured providers.
// metrics and logger may be nil.
func NewResolver(provider Provider, postal PostalProvider, metrics *Metrics, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		provider: provider,
		postal:   postal,
		metrics:  metrics,
		logger:   logger,
	}
}

// ResolveFromCoordinates reverse-geocodes device coordinates. The returned
// location always carries the device coordinates, not the provider's
// geometry, so downstream distance math reflects where the device actually
// is.
func (r *Resolver) ResolveFromCoordinates(ctx context.Context, lat, lng float64) (location.ResolvedLocation, error) {
	addr, err := r.observe(OperationReverse, func() (Address, error) {
		return r.provider.ReverseGeocode(ctx, lat, lng)
	})
	if err != nil {
		r.logger.Warn("reverse geocode failed",
			"provider", r.provider.Name(),
			"error", err,
		)
		return location.ResolvedLocation{}, err
	}

	loc := location.ResolvedLocation{
		Condo:        addr.Condo,
		Neighborhood: addr.Neighborhood,
		City:         addr.City,
		Latitude:     lat,
		Longitude:    lng,
	}
	return loc.Normalized(), nil
}

// ResolveFromQuery resolves a manual search. Queries whose digits form a
// complete postal code take the postal path; everything else is forward
// geocoded. Either way the result carries usable coordinates, falling back
// to a fixed metro-area anchor when the provider has none.
func (r *Resolver) ResolveFromQuery(ctx context.Context, query string) (location.ResolvedLocation, error) {
	if code, ok := postalCode(query); ok && r.postal != nil {
		return r.resolvePostal(ctx, code)
	}
	return r.resolveSearch(ctx, query)
}

func (r *Resolver) resolvePostal(ctx context.Context, code string) (location.ResolvedLocation, error) {
	addr, err := r.observePostal(func() (Address, error) {
		return r.postal.LookupPostalCode(ctx, code)
	})
	if err != nil {
		r.logger.Warn("postal code lookup failed",
			"provider", r.postal.Name(),
			"error", err,
		)
		return location.ResolvedLocation{}, err
	}

	// Postal responses are label-only; anchor them so location-dependent
	// features keep working until the next GPS fix.
	loc := location.ResolvedLocation{
		Condo:        addr.Condo,
		Neighborhood: addr.Neighborhood,
		City:         addr.City,
		Latitude:     location.FallbackLatitude,
		Longitude:    location.FallbackLongitude,
	}
	return loc.Normalized(), nil
}

func (r *Resolver) resolveSearch(ctx context.Context, query string) (location.ResolvedLocation, error) {
	addr, err := r.observe(OperationForward, func() (Address, error) {
		return r.provider.ForwardGeocode(ctx, query)
	})
	if err != nil {
		r.logger.Warn("forward geocode failed",
			"provider", r.provider.Name(),
			"error", err,
		)
		return location.ResolvedLocation{}, err
	}

	loc := location.ResolvedLocation{
		Condo:        addr.Condo,
		Neighborhood: addr.Neighborhood,
		City:         addr.City,
		Latitude:     location.FallbackLatitude,
		Longitude:    location.FallbackLongitude,
	}
	if addr.HasCoordinates {
		loc.Latitude = addr.Latitude
		loc.Longitude = addr.Longitude
	}
	return loc.Normalized(), nil
}

// observe wraps a provider call with duration and outcome metrics.
func (r *Resolver) observe(operation string, call func() (Address, error)) (Address, error) {
	return instrument(r.metrics, r.provider.Name(), operation, call)
}

func (r *Resolver) observePostal(call func() (Address, error)) (Address, error) {
	return instrument(r.metrics, r.postal.Name(), OperationPostal, call)
}

func instrument(m *Metrics, provider, operation string, call func() (Address, error)) (Address, error) {
	start := time.Now()
	addr, err := call()
	if m == nil {
		return addr, err
	}

	m.ObserveRequestDuration(provider, operation, time.Since(start).Seconds())
	if err != nil {
		m.IncRequestsTotal(provider, operation, StatusFailure)
		m.IncErrorsTotal(provider, operation, errorType(err))
	} else {
		m.IncRequestsTotal(provider, operation, StatusSuccess)
	}
	return addr, err
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrNoAddressFound):
		return "no_address_found"
	case errors.Is(err, ErrNoResultsFound):
		return "no_results_found"
	default:
		return "provider_unavailable"
	}
}

// postalCode reports whether the query is a complete postal code after
// stripping formatting, and returns its digits. Queries with any other
// digit count, including partial codes, go to text search instead.
func postalCode(query string) (string, bool) {
	var b strings.Builder
	for _, r := range query {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	return digits, len(digits) == postalCodeLength
}

// IsPostalCode reports whether a query would take the postal code path.
func IsPostalCode(query string) bool {
	_, ok := postalCode(query)
	return ok
}
