package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// drainLimit caps how much of an unread body Close will consume before
// dropping the connection instead of reusing it.
const drainLimit = 1 << 20

// Response pairs a Request with the transport response it produced.
// The body can be consumed either fully buffered (Bytes, Text, JSON) or
// as a stream (Reader). Close releases the underlying connection and is
// safe to call more than once.
type Response struct {
	req  *Request
	resp *http.Response

	mu       sync.Mutex
	body     []byte
	buffered bool

	closeOnce sync.Once
	closeErr  error
}

func newResponse(req *Request, resp *http.Response) *Response {
	return &Response{req: req, resp: resp}
}

// Request returns the request that produced this response.
func (r *Response) Request() *Request {
	return r.req
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int {
	return r.resp.StatusCode
}

// Header returns the response headers.
func (r *Response) Header() http.Header {
	return r.resp.Header
}

// ContentLength returns the expected body size, or -1 when unknown.
func (r *Response) ContentLength() int64 {
	return r.resp.ContentLength
}

// Bytes reads and caches the full body. Subsequent calls return the
// cached copy without touching the connection again.
func (r *Response) Bytes() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.buffered {
		return r.body, nil
	}

	body, err := io.ReadAll(r.resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	r.body = body
	r.buffered = true
	return r.body, nil
}

// Text reads the full body as a string.
func (r *Response) Text() (string, error) {
	body, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// JSON decodes the full body into v.
func (r *Response) JSON(v any) error {
	body, err := r.Bytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// Reader returns the body for streaming consumption. If the body was
// already buffered the reader replays the cached bytes.
func (r *Response) Reader() io.Reader {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.buffered {
		return bytes.NewReader(r.body)
	}
	return r.resp.Body
}

// Close drains any unread remainder and releases the connection.
// Calling Close again is a no-op.
func (r *Response) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		if !r.buffered {
			io.Copy(io.Discard, io.LimitReader(r.resp.Body, drainLimit)) //nolint:errcheck
		}
		r.mu.Unlock()
		r.closeErr = r.resp.Body.Close()
	})
	return r.closeErr
}
