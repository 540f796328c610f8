package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/stratus-eo/stratus/auth"
)

// Default retry policy for throttled (429) responses.
const (
	DefaultRetryCount = 5
	DefaultRetryWait  = 1 * time.Second
)

const defaultUserAgent = "stratus-client-go"

// ResponseObserver inspects a response immediately after it is
// received. Observers run in order; returning an error aborts the call
// and releases the response.
type ResponseObserver func(req *Request, resp *Response) error

// Session is a single authenticated channel to the Stratus service.
// All API calls route through one session, which owns the transport
// connection pool, injects the credential into every outgoing request,
// and converts bad statuses into typed errors. Throttled requests are
// retried with a fixed wait up to the configured budget.
//
// A session is safe for concurrent requests; individual Request,
// Stream, and Paged values are not.
type Session struct {
	httpClient *http.Client
	cred       auth.Credential
	limiter    *rate.Limiter
	observers  []ResponseObserver
	retryCount int
	retryWait  time.Duration
	userAgent  string
	logger     zerolog.Logger

	closeOnce sync.Once
}

// NewSession creates a session using the given credential. The
// credential is treated as an opaque capability: the session never
// inspects it beyond asking it to sign outgoing requests.
func NewSession(cred auth.Credential, logger zerolog.Logger, opts ...Option) *Session {
	s := &Session{
		httpClient: &http.Client{},
		cred:       cred,
		retryCount: DefaultRetryCount,
		retryWait:  DefaultRetryWait,
		userAgent:  defaultUserAgent,
		logger:     logger,
	}

	var extra []ResponseObserver
	for _, opt := range opts {
		opt(s, &extra)
	}

	// Logging first, status check last, so custom observers see every
	// response before it is converted into an error.
	s.observers = append([]ResponseObserver{s.logResponse}, extra...)
	s.observers = append(s.observers, checkStatus)

	return s
}

// Request submits req and returns its response with the full body
// already read. Throttled attempts are retried up to the session's
// budget; every other failure is returned on first occurrence.
func (s *Session) Request(ctx context.Context, req *Request) (*Response, error) {
	return s.do(ctx, req, false)
}

// Stream prepares a streamed submission of req. Nothing is sent until
// the returned Stream is opened.
func (s *Session) Stream(req *Request) *Stream {
	return &Stream{sess: s, req: req}
}

// Close releases the transport connection pool. It is safe to call
// more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.httpClient.CloseIdleConnections()
	})
}

func (s *Session) do(ctx context.Context, req *Request, stream bool) (*Response, error) {
	attempts := s.retryCount + 1
	for i := 0; i < attempts; i++ {
		resp, err := s.send(ctx, req, stream)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, ErrTooManyRequests) {
			return nil, err
		}

		s.logger.Info().
			Int("attempt", i+1).
			Dur("wait", s.retryWait).
			Msg("Too many requests, waiting before retry")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.retryWait):
		}
	}

	return nil, ErrTooManyThrottles
}

// send performs one attempt: build, authenticate, dispatch, observe.
func (s *Session) send(ctx context.Context, req *Request, stream bool) (*Response, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	hr, err := req.build(ctx)
	if err != nil {
		return nil, err
	}
	hr.Header.Set("User-Agent", s.userAgent)
	if s.cred != nil {
		s.cred.Authorize(hr)
	}

	s.logger.Info().
		Str("method", req.Method).
		Str("url", req.URL).
		Msg("Request sent")

	raw, err := s.httpClient.Do(hr)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	resp := newResponse(req, raw)
	for _, obs := range s.observers {
		if err := obs(req, resp); err != nil {
			resp.Close()
			return nil, err
		}
	}

	if !stream {
		// Non-streamed responses leave this method with the body
		// resident and the connection already released.
		if _, err := resp.Bytes(); err != nil {
			resp.Close()
			return nil, err
		}
		resp.Close()
	}

	return resp, nil
}

func (s *Session) logResponse(req *Request, resp *Response) error {
	s.logger.Info().
		Str("method", req.Method).
		Str("url", req.URL).
		Int("status", resp.StatusCode()).
		Msg("Response received")
	return nil
}

// checkStatus converts bad statuses into typed errors. The body is
// read in full before the check so the 429 quota keyword can be
// inspected even on streamed responses.
func checkStatus(_ *Request, resp *Response) error {
	if resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body, err := resp.Text()
	if err != nil {
		return fmt.Errorf("reading error response: %w", err)
	}

	return statusError(resp.StatusCode(), body)
}
