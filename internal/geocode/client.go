package geocode

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout bounds every provider call end to end, including retries.
// Matches the device-side position acquisition timeout so a lookup never
// outlives the loading state the UI shows for it.
const DefaultTimeout = 10 * time.Second

// NewHTTPClient builds the shared provider HTTP client: bounded retries for
// transient transport failures, an overall deadline, and otel-instrumented
// transport. Retries here are transport-level only; resolution errors are
// never retried.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 1 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = timeout
	rc.HTTPClient.Transport = otelhttp.NewTransport(http.DefaultTransport)

	return rc.StandardClient()
}
