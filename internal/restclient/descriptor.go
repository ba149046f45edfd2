package restclient

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tinoosan/xfer/internal/transfer"
)

// Descriptor is the REST helper contract spec.md §6 pins for the
// out-of-scope "external API module": everything needed to build one
// request against an external REST endpoint.
type Descriptor struct {
	BaseURLString  string
	Path           string
	Params         map[string]string
	Body           []byte
	Headers        http.Header
	Method         string
	TimeoutSeconds float64
	CookieStorage  http.CookieJar
}

// EndpointURL derives baseUrl ⊕ path with params encoded as query items,
// per spec.md §6.
func (d Descriptor) EndpointURL() (string, error) {
	u, err := url.Parse(d.BaseURLString)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %s", transfer.ErrInvalidURL, d.BaseURLString)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(d.Path, "/")
	if len(d.Params) > 0 {
		q := u.Query()
		for k, v := range d.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (d Descriptor) timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(d.TimeoutSeconds * float64(time.Second))
}

func (d Descriptor) method() string {
	if d.Method == "" {
		return http.MethodGet
	}
	return d.Method
}
