package integrations

import (
	"errors"
	"net/http"
	"time"

	"github.com/matzehuels/decrepit/pkg/buildinfo"
)

// DefaultTimeout bounds a single HTTP request. Distribution sites are slow
// and occasionally hang; without a bound one source could stall a batch.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when a page or resource doesn't exist on the remote.
	ErrNotFound = errors.New("not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, non-2xx responses).
	ErrNetwork = errors.New("network error")
)

// UserAgent identifies decrepit to the sites it scrapes.
func UserAgent() string {
	return "decrepit/" + buildinfo.Version + " (+https://github.com/matzehuels/decrepit)"
}

// DefaultHeaders returns the headers every resolver sends.
func DefaultHeaders() map[string]string {
	return map[string]string{"User-Agent": UserAgent()}
}

// NewHTTPClient creates an HTTP client with the given request timeout.
// A timeout of 0 selects [DefaultTimeout].
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
