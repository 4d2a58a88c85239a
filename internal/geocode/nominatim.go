package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

// DefaultNominatimEndpoint is the public OSM instance used when no API key
// is configured. Its usage policy requires an identifying User-Agent and
// modest request rates; the shared client's retry ceiling stays within that.
const DefaultNominatimEndpoint = "https://nominatim.openstreetmap.org"

const nominatimUserAgent = "geoscope/1.0 (contact@quintalapp.com)"

// OSM tags name administrative levels differently from the primary
// provider; these lists map its vocabulary onto the same three fields.
var (
	nominatimCondoTags = []string{"amenity", "building", "residential", "road"}

	nominatimNeighborhoodTags = []string{"neighbourhood", "suburb", "city_district", "quarter", "village"}

	nominatimCityTags = []string{"city", "town", "municipality", "village"}
)

// NominatimProvider is the keyless fallback geocoding provider backed by
// OpenStreetMap data.
type NominatimProvider struct {
	endpoint string
	client   *http.Client
}

// NewNominatimProvider creates the fallback provider. An empty endpoint
// falls back to the public OSM instance.
func NewNominatimProvider(endpoint string, client *http.Client) *NominatimProvider {
	if endpoint == "" {
		endpoint = DefaultNominatimEndpoint
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &NominatimProvider{endpoint: endpoint, client: client}
}

// Name identifies the provider in logs and metrics.
func (p *NominatimProvider) Name() string { return "nominatim" }

// ReverseGeocode converts coordinates into an address.
func (p *NominatimProvider) ReverseGeocode(ctx context.Context, lat, lng float64) (Address, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lng))
	params.Set("accept-language", "pt-BR")

	body, err := p.fetch(ctx, "/reverse", params)
	if err != nil {
		return Address{}, err
	}

	result := gjson.ParseBytes(body)
	// Reverse answers with an error object rather than an empty body when
	// the coordinates fall outside mapped data.
	if result.Get("error").Exists() {
		return Address{}, ErrNoAddressFound
	}
	return nominatimAddress(result), nil
}

// ForwardGeocode converts a free-text query into an address, considering
// only the best match.
func (p *NominatimProvider) ForwardGeocode(ctx context.Context, query string) (Address, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("limit", "1")
	params.Set("q", query)
	params.Set("accept-language", "pt-BR")

	body, err := p.fetch(ctx, "/search", params)
	if err != nil {
		return Address{}, err
	}

	results := gjson.ParseBytes(body).Array()
	if len(results) == 0 {
		return Address{}, ErrNoResultsFound
	}
	return nominatimAddress(results[0]), nil
}

func (p *NominatimProvider) fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("User-Agent", nominatimUserAgent)

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

// nominatimAddress maps one result object onto Address. Coordinates arrive
// as JSON strings; gjson coerces them.
func nominatimAddress(result gjson.Result) Address {
	details := result.Get("address")

	addr := Address{
		Condo:        firstTag(details, nominatimCondoTags),
		Neighborhood: firstTag(details, nominatimNeighborhoodTags),
		City:         firstTag(details, nominatimCityTags),
	}

	if lat, lon := result.Get("lat"), result.Get("lon"); lat.Exists() && lon.Exists() {
		addr.Latitude = lat.Float()
		addr.Longitude = lon.Float()
		addr.HasCoordinates = true
	}

	return addr
}

// firstTag returns the first non-empty value among tags in preference order.
func firstTag(details gjson.Result, tags []string) string {
	for _, tag := range tags {
		if v := details.Get(tag).String(); v != "" {
			return v
		}
	}
	return ""
}
