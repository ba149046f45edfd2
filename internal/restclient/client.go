package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tinoosan/xfer/internal/transfer"
)

// RawResponse is what request() → RawResponse returns per spec.md §6: the
// decoded status/header/body triple without any JSON unmarshaling applied.
type RawResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether Status is in [200,300), spec.md's definition of a
// successful response.
func (r RawResponse) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Client issues REST helper requests, generalized from one fixed JSON-RPC
// endpoint to an arbitrary REST descriptor.
type Client struct {
	http *http.Client
}

// NewClient wraps httpClient (nil selects http.DefaultClient).
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{http: httpClient}
}

// Do builds and issues the request described by d, returning the raw
// response. A non-2xx status is classified per spec.md §6/§7 into
// ServerError or ServerErrorHTML and returned alongside the raw response
// (the body is still available to a caller that wants to inspect it).
func (c *Client) Do(ctx context.Context, d Descriptor) (*RawResponse, error) {
	endpoint, err := d.EndpointURL()
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if len(d.Body) > 0 {
		body = bytes.NewReader(d.Body)
	}
	req, err := http.NewRequestWithContext(ctx, d.method(), endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transfer.ErrInvalidURL, err)
	}
	for k, vs := range d.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	httpClient := c.http
	if timeout := d.timeout(); timeout > 0 || d.CookieStorage != nil {
		cp := *c.http
		if timeout > 0 {
			cp.Timeout = timeout
		}
		if d.CookieStorage != nil {
			cp.Jar = d.CookieStorage
		}
		httpClient = &cp
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transfer.ErrDecoding, err)
	}

	raw := &RawResponse{Status: resp.StatusCode, Header: resp.Header, Body: respBody}
	if !raw.OK() {
		return raw, transfer.ClassifyServerError(resp.StatusCode, respBody)
	}
	return raw, nil
}

// Request issues d and decodes the response body as JSON into a T, per
// spec.md §6's request(responseAs: T) → T.
func Request[T any](ctx context.Context, c *Client, d Descriptor) (T, error) {
	var zero T
	raw, err := c.Do(ctx, d)
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(raw.Body, &out); err != nil {
		return zero, fmt.Errorf("%w: %v", transfer.ErrDecoding, err)
	}
	return out, nil
}
