// Package apiclient is the small JSON-over-HTTP client shared by the auth
// and remote-send paths.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBody caps how much of a response body is read.
const maxBody = 1 << 20

// Client posts JSON payloads to the backend API.
type Client struct {
	HTTP *http.Client
}

// New returns a client with the given timeout. A zero timeout disables it.
func New(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// Response is a fully read API response.
type Response struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Message returns the "message" field of a JSON error body, or "".
func (r *Response) Message() string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(r.Body, &body); err != nil {
		return ""
	}
	return body.Message
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// PostJSON marshals data and POSTs it to url. Any status code is returned as
// a Response; only transport failures produce an error.
func (c *Client) PostJSON(ctx context.Context, url string, data any, header http.Header) (*Response, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{Status: resp.StatusCode, Body: body}, nil
}
