package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratus-eo/stratus/auth"
)

// scriptedServer replies with the given status codes in order,
// repeating the last one, and counts the requests it saw.
func scriptedServer(t *testing.T, statuses []int, bodies []string) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := int(calls.Add(1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		w.WriteHeader(statuses[i])
		if i < len(bodies) {
			w.Write([]byte(bodies[i])) //nolint:errcheck
		}
	}))
	t.Cleanup(server.Close)

	return server, &calls
}

func TestSessionRequest(t *testing.T) {
	server, calls := scriptedServer(t, []int{200}, []string{`{"ok":true}`})

	sess := NewSession(auth.APIKey("test-key"), zerolog.Nop())
	defer sess.Close()

	resp, err := sess.Request(context.Background(), NewRequest(http.MethodGet, server.URL))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.EqualValues(t, 1, calls.Load())

	var body map[string]bool
	require.NoError(t, resp.JSON(&body))
	assert.True(t, body["ok"])
}

func TestSessionAuthInjection(t *testing.T) {
	var gotUser, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _, _ = r.BasicAuth()
		gotAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sess := NewSession(auth.APIKey("secret-key"), zerolog.Nop(), WithUserAgent("stratus-test/1.0"))
	defer sess.Close()

	_, err := sess.Request(context.Background(), NewRequest(http.MethodGet, server.URL))
	require.NoError(t, err)

	assert.Equal(t, "secret-key", gotUser)
	assert.Equal(t, "stratus-test/1.0", gotAgent)
}

func TestSessionRetriesThrottledRequests(t *testing.T) {
	server, calls := scriptedServer(t, []int{429, 429, 200}, nil)

	sess := NewSession(auth.APIKey("k"), zerolog.Nop(),
		WithRetryCount(2),
		WithRetryWait(0),
	)
	defer sess.Close()

	resp, err := sess.Request(context.Background(), NewRequest(http.MethodGet, server.URL))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.EqualValues(t, 3, calls.Load())
}

func TestSessionRetryBudgetExhausted(t *testing.T) {
	server, calls := scriptedServer(t, []int{429}, nil)

	sess := NewSession(auth.APIKey("k"), zerolog.Nop(),
		WithRetryCount(1),
		WithRetryWait(0),
	)
	defer sess.Close()

	_, err := sess.Request(context.Background(), NewRequest(http.MethodGet, server.URL))
	require.Error(t, err)

	// Terminal error, not the per-response throttle kind.
	assert.ErrorIs(t, err, ErrTooManyThrottles)
	assert.NotErrorIs(t, err, ErrTooManyRequests)
	assert.EqualValues(t, 2, calls.Load())
}

func TestSessionDoesNotRetryOverQuota(t *testing.T) {
	server, calls := scriptedServer(t, []int{429}, []string{"monthly quota exceeded"})

	sess := NewSession(auth.APIKey("k"), zerolog.Nop(),
		WithRetryCount(3),
		WithRetryWait(0),
	)
	defer sess.Close()

	_, err := sess.Request(context.Background(), NewRequest(http.MethodGet, server.URL))
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrOverQuota)
	assert.EqualValues(t, 1, calls.Load())
}

func TestSessionDoesNotRetryOtherFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   error
	}{
		{name: "not found", status: 404, kind: ErrMissingResource},
		{name: "unauthorized", status: 401, kind: ErrInvalidAPIKey},
		{name: "server error", status: 500, kind: ErrServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, calls := scriptedServer(t, []int{tt.status}, nil)

			sess := NewSession(auth.APIKey("k"), zerolog.Nop(),
				WithRetryCount(3),
				WithRetryWait(0),
			)
			defer sess.Close()

			_, err := sess.Request(context.Background(), NewRequest(http.MethodGet, server.URL))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.EqualValues(t, 1, calls.Load())
		})
	}
}

func TestSessionRetryRespectsCancellation(t *testing.T) {
	server, _ := scriptedServer(t, []int{429}, nil)

	sess := NewSession(auth.APIKey("k"), zerolog.Nop(),
		WithRetryCount(5),
		WithRetryWait(time.Hour),
	)
	defer sess.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go cancel()

	_, err := sess.Request(ctx, NewRequest(http.MethodGet, server.URL))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionRetriesResendIdenticalBody(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		bodies = append(bodies, string(buf[:n]))
		if len(bodies) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sess := NewSession(auth.APIKey("k"), zerolog.Nop(),
		WithRetryCount(2),
		WithRetryWait(0),
	)
	defer sess.Close()

	req, err := NewJSONRequest(http.MethodPost, server.URL, map[string]string{"q": "v"})
	require.NoError(t, err)

	_, err = sess.Request(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, bodies, 3)
	assert.Equal(t, bodies[0], bodies[1])
	assert.Equal(t, bodies[0], bodies[2])
}

func TestSessionResponseObserverOrder(t *testing.T) {
	server, _ := scriptedServer(t, []int{404}, nil)

	var observed int
	sess := NewSession(auth.APIKey("k"), zerolog.Nop(),
		WithResponseObserver(func(req *Request, resp *Response) error {
			observed = resp.StatusCode()
			return nil
		}),
	)
	defer sess.Close()

	_, err := sess.Request(context.Background(), NewRequest(http.MethodGet, server.URL))
	require.Error(t, err)

	// The custom observer ran before the status check raised.
	assert.Equal(t, 404, observed)
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	sess := NewSession(auth.APIKey("k"), zerolog.Nop())
	sess.Close()
	sess.Close()
}
