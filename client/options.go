package client

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Option configures a Session.
type Option func(*Session, *[]ResponseObserver)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session, _ *[]ResponseObserver) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithRetryCount sets how many times a throttled request is retried.
// The first attempt is not counted.
func WithRetryCount(n int) Option {
	return func(s *Session, _ *[]ResponseObserver) {
		if n >= 0 {
			s.retryCount = n
		}
	}
}

// WithRetryWait sets the fixed wait between throttled attempts.
func WithRetryWait(d time.Duration) Option {
	return func(s *Session, _ *[]ResponseObserver) {
		if d >= 0 {
			s.retryWait = d
		}
	}
}

// WithRateLimit caps outgoing requests to rps per second with the
// given burst. Zero or negative rps disables the limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Session, _ *[]ResponseObserver) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(ua string) Option {
	return func(s *Session, _ *[]ResponseObserver) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithResponseObserver registers an observer invoked after every
// received response, before the status check.
func WithResponseObserver(obs ResponseObserver) Option {
	return func(_ *Session, extra *[]ResponseObserver) {
		if obs != nil {
			*extra = append(*extra, obs)
		}
	}
}
