package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

// DefaultViaCEPEndpoint is the public ViaCEP instance. The service is
// keyless and national, covering every Brazilian postal code.
const DefaultViaCEPEndpoint = "https://viacep.com.br"

// ViaCEPProvider resolves Brazilian postal codes (CEPs) into street-level
// addresses. Responses never carry coordinates.
type ViaCEPProvider struct {
	endpoint string
	client   *http.Client
}

// NewViaCEPProvider creates the postal code provider. An empty endpoint
// falls back to the public instance.
func NewViaCEPProvider(endpoint string, client *http.Client) *ViaCEPProvider {
	if endpoint == "" {
		endpoint = DefaultViaCEPEndpoint
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &ViaCEPProvider{endpoint: endpoint, client: client}
}

// Name identifies the provider in logs and metrics.
func (p *ViaCEPProvider) Name() string { return "viacep" }

// LookupPostalCode resolves an 8-digit postal code (digits only).
func (p *ViaCEPProvider) LookupPostalCode(ctx context.Context, code string) (Address, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/ws/%s/json/", p.endpoint, code), nil)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	// ViaCEP answers 400 for malformed codes and flags unknown ones inside
	// a 200 body, so any non-200 other than 400 is a service problem.
	if resp.StatusCode == http.StatusBadRequest {
		return Address{}, ErrNoAddressFound
	}
	if resp.StatusCode != http.StatusOK {
		return Address{}, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	result := gjson.ParseBytes(body)
	if result.Get("erro").Bool() {
		return Address{}, ErrNoAddressFound
	}

	return Address{
		Condo:        result.Get("logradouro").String(),
		Neighborhood: result.Get("bairro").String(),
		City:         result.Get("localidade").String(),
	}, nil
}
