package jimeng

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 120 * time.Second

	// maxResponseBytes bounds the envelope size; base64 payloads for ten
	// 2560x1440 images fit comfortably.
	maxResponseBytes = 256 << 20
)

// Request is a fully signed HTTP request ready to dispatch.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the raw 2xx response handed to the response mapper.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport sends one signed request. Implementations make exactly one
// attempt and return *NetworkError or *HTTPStatusError on failure.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// HTTPTransport is the net/http Transport.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport wraps client. A nil client gets a default one with a
// 120 second timeout.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPTransport{client: client}
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("jimeng: create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Method: req.Method, URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Method: req.Method, URL: req.URL, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{Code: resp.StatusCode, Body: body}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
