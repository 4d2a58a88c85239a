package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

// DefaultGoogleEndpoint is the production geocoding endpoint for the
// key-gated primary provider.
const DefaultGoogleEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// Tag preference lists for the primary provider, most specific first.
// Different tags can name the same real-world concept depending on the
// region, so extraction walks these in order and takes the first hit.
var (
	googleCondoTags = []string{"premise", "street_number", "route", "point_of_interest"}

	googleNeighborhoodTags = []string{"sublocality_level_1", "sublocality", "neighborhood"}

	googleCityTags = []string{"locality", "administrative_area_level_2", "administrative_area_level_1"}
)

// GoogleProvider is the key-gated primary geocoding provider.
type GoogleProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewGoogleProvider creates the primary provider. An empty endpoint falls
// back to the production API; tests point it at a local server.
func NewGoogleProvider(apiKey, endpoint string, client *http.Client) *GoogleProvider {
	if endpoint == "" {
		endpoint = DefaultGoogleEndpoint
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &GoogleProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   client,
	}
}

// Name identifies the provider in logs and metrics.
func (p *GoogleProvider) Name() string { return "google" }

// ReverseGeocode converts coordinates into an address.
func (p *GoogleProvider) ReverseGeocode(ctx context.Context, lat, lng float64) (Address, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("key", p.apiKey)
	params.Set("language", "pt-BR")

	body, err := p.fetch(ctx, params)
	if err != nil {
		return Address{}, err
	}
	return p.parse(body, ErrNoAddressFound)
}

// ForwardGeocode converts a free-text query into an address.
func (p *GoogleProvider) ForwardGeocode(ctx context.Context, query string) (Address, error) {
	params := url.Values{}
	params.Set("address", query)
	params.Set("key", p.apiKey)
	params.Set("language", "pt-BR")

	body, err := p.fetch(ctx, params)
	if err != nil {
		return Address{}, err
	}
	return p.parse(body, ErrNoResultsFound)
}

// fetch issues one GET and returns the raw body. Transport failures and
// non-200 statuses map to ErrProviderUnavailable.
func (p *GoogleProvider) fetch(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return body, nil
}

// parse extracts address fields from a geocode response body.
// emptyErr is returned for a ZERO_RESULTS answer so reverse and forward
// paths surface their own message.
func (p *GoogleProvider) parse(body []byte, emptyErr error) (Address, error) {
	status := gjson.GetBytes(body, "status").String()
	switch status {
	case "OK":
		// Proceed with extraction.
	case "ZERO_RESULTS":
		return Address{}, emptyErr
	default:
		return Address{}, fmt.Errorf("%w: status %q", ErrProviderUnavailable, status)
	}

	results := gjson.GetBytes(body, "results").Array()
	if len(results) == 0 {
		return Address{}, emptyErr
	}

	top := results[0]

	addr := Address{
		Condo: componentFrom(top, googleCondoTags),
		// Reverse geocoders often put the exact street match on top while
		// only a broader candidate carries the neighborhood tag, so the
		// neighborhood scan covers every result before loosening the tag.
		Neighborhood: componentAcross(results, googleNeighborhoodTags),
		City:         componentFrom(top, googleCityTags),
	}

	if loc := top.Get("geometry.location"); loc.Exists() {
		addr.Latitude = loc.Get("lat").Float()
		addr.Longitude = loc.Get("lng").Float()
		addr.HasCoordinates = true
	}

	return addr, nil
}

// componentFrom returns the long name of the first component in result
// matching any tag, walking tags in preference order.
func componentFrom(result gjson.Result, tags []string) string {
	for _, tag := range tags {
		if name := componentByTag(result, tag); name != "" {
			return name
		}
	}
	return ""
}

// componentAcross walks tags in preference order, scanning every result for
// each tag before moving to the next, so the most precise tag wins even
// when it only appears in a secondary result.
func componentAcross(results []gjson.Result, tags []string) string {
	for _, tag := range tags {
		for _, result := range results {
			if name := componentByTag(result, tag); name != "" {
				return name
			}
		}
	}
	return ""
}

// componentByTag returns the long name of the component tagged tag, or "".
func componentByTag(result gjson.Result, tag string) string {
	var name string
	result.Get("address_components").ForEach(func(_, comp gjson.Result) bool {
		for _, t := range comp.Get("types").Array() {
			if t.String() == tag {
				name = comp.Get("long_name").String()
				return false
			}
		}
		return true
	})
	return name
}
