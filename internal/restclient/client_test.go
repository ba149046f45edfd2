package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/tinoosan/xfer/internal/transfer"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestClient(rt http.RoundTripper) *Client {
	return NewClient(&http.Client{Transport: rt})
}

func TestEndpointURLJoinsPathAndParams(t *testing.T) {
	d := Descriptor{
		BaseURLString: "https://api.example.com/v1",
		Path:          "/widgets",
		Params:        map[string]string{"q": "gear"},
	}
	got, err := d.EndpointURL()
	if err != nil {
		t.Fatalf("EndpointURL: %v", err)
	}
	if !strings.HasPrefix(got, "https://api.example.com/v1/widgets?") {
		t.Fatalf("endpoint = %q", got)
	}
	if !strings.Contains(got, "q=gear") {
		t.Fatalf("endpoint %q missing query param", got)
	}
}

type widget struct {
	Name string `json:"name"`
}

func TestRequestDecodesJSONBody(t *testing.T) {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		body := `{"name":"sprocket"}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader([]byte(body))),
			Header:     make(http.Header),
		}, nil
	})
	c := newTestClient(rt)

	got, err := Request[widget](context.Background(), c, Descriptor{
		BaseURLString: "https://api.example.com",
		Path:          "/widgets/1",
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if got.Name != "sprocket" {
		t.Fatalf("got = %+v", got)
	}
}

func TestDoClassifiesServerErrorHTML(t *testing.T) {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		body := `<html><body>502 Bad Gateway</body></html>`
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(bytes.NewReader([]byte(body))),
			Header:     make(http.Header),
		}, nil
	})
	c := newTestClient(rt)

	raw, err := c.Do(context.Background(), Descriptor{BaseURLString: "https://api.example.com", Path: "/x"})
	if err == nil {
		t.Fatal("expected an error")
	}
	var htmlErr *transfer.ServerErrorHTML
	if !errors.As(err, &htmlErr) {
		t.Fatalf("err = %v (%T), want *transfer.ServerErrorHTML", err, err)
	}
	if raw == nil || raw.Status != http.StatusBadGateway {
		t.Fatalf("raw = %+v", raw)
	}
}

func TestDoClassifiesPlainServerError(t *testing.T) {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		body, _ := json.Marshal(map[string]string{"error": "not found"})
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(bytes.NewReader(body)),
			Header:     make(http.Header),
		}, nil
	})
	c := newTestClient(rt)

	_, err := c.Do(context.Background(), Descriptor{BaseURLString: "https://api.example.com", Path: "/x"})
	if !errors.Is(err, transfer.ErrServer) {
		t.Fatalf("err = %v, want wrapping transfer.ErrServer", err)
	}
	var htmlErr *transfer.ServerErrorHTML
	if errors.As(err, &htmlErr) {
		t.Fatal("a JSON error body should not classify as ServerErrorHTML")
	}
}

func TestRestTimeRoundTrip(t *testing.T) {
	type event struct {
		At Time `json:"at"`
	}
	raw := `{"at":"2026-08-03 12:30:00"}`
	var e event
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.At.Std().Hour() != 12 {
		t.Fatalf("hour = %d, want 12", e.At.Std().Hour())
	}

	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), "2026-08-03 12:30:00") {
		t.Fatalf("marshaled = %s", b)
	}
}
