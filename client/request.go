package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Request describes a single call to the Stratus API. It is a plain
// value that the session never mutates: every send attempt builds a
// fresh transport request from it, so retries always carry identical
// content. Callers must not modify a Request after submitting it.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// NewRequest creates a bodyless request for the given method and URL.
func NewRequest(method, url string) *Request {
	return &Request{
		Method: method,
		URL:    url,
	}
}

// NewJSONRequest creates a request with body marshaled from v and the
// content type set accordingly.
func NewJSONRequest(method, url string, v any) (*Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	return &Request{
		Method:  method,
		URL:     url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	}, nil
}

// WithURL returns a copy of the request targeting a different URL,
// keeping the method, headers, and body. The paged iterator uses this
// to follow next links with the original request context intact.
func (r *Request) WithURL(url string) *Request {
	clone := &Request{
		Method: r.Method,
		URL:    url,
		Body:   r.Body,
	}
	if r.Headers != nil {
		clone.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			clone.Headers[k] = v
		}
	}
	return clone
}

// build materializes the transport request for one send attempt.
func (r *Request) build(ctx context.Context) (*http.Request, error) {
	var body *bytes.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}
