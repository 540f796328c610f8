package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedFetcher serves canned page bodies in order and records the URLs
// it was asked for.
type pagedFetcher struct {
	pages []string
	urls  []string
	err   error
}

func (f *pagedFetcher) fetch(_ context.Context, req *Request) (*Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.urls = append(f.urls, req.URL)

	body := f.pages[0]
	f.pages = f.pages[1:]

	return newResponse(req, &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
	}), nil
}

func collect(t *testing.T, p *Paged) []int {
	t.Helper()

	var items []int
	for p.Next(context.Background()) {
		var v int
		require.NoError(t, json.Unmarshal(p.Item(), &v))
		items = append(items, v)
	}
	require.NoError(t, p.Err())
	return items
}

const (
	pageOne = `{"links": {"next": "https://api.test/page2"}, "items": [1, 2]}`
	pageTwo = `{"links": {}, "items": [3, 4]}`
)

func TestPagedIteratesAllPages(t *testing.T) {
	f := &pagedFetcher{pages: []string{pageOne, pageTwo}}
	p := NewPaged(NewRequest(http.MethodGet, "https://api.test/page1"), f.fetch)

	assert.Equal(t, []int{1, 2, 3, 4}, collect(t, p))
	assert.Equal(t, []string{"https://api.test/page1", "https://api.test/page2"}, f.urls)
}

func TestPagedLimitStopsMidPage(t *testing.T) {
	f := &pagedFetcher{pages: []string{pageOne, pageTwo}}
	p := NewPaged(NewRequest(http.MethodGet, "https://api.test/page1"), f.fetch, WithLimit(3))

	// The page containing the cutoff is still fetched; no page after it.
	assert.Equal(t, []int{1, 2, 3}, collect(t, p))
	assert.Len(t, f.urls, 2)
}

func TestPagedLimitWithinFirstPage(t *testing.T) {
	f := &pagedFetcher{pages: []string{pageOne, pageTwo}}
	p := NewPaged(NewRequest(http.MethodGet, "https://api.test/page1"), f.fetch, WithLimit(1))

	assert.Equal(t, []int{1}, collect(t, p))
	assert.Len(t, f.urls, 1)
}

func TestPagedLimitZeroStillFetchesFirstPage(t *testing.T) {
	f := &pagedFetcher{pages: []string{pageOne, pageTwo}}
	p := NewPaged(NewRequest(http.MethodGet, "https://api.test/page1"), f.fetch, WithLimit(0))

	assert.Empty(t, collect(t, p))
	assert.Equal(t, []string{"https://api.test/page1"}, f.urls)
}

func TestPagedSinglePage(t *testing.T) {
	f := &pagedFetcher{pages: []string{pageTwo}}
	p := NewPaged(NewRequest(http.MethodGet, "https://api.test/only"), f.fetch)

	assert.Equal(t, []int{3, 4}, collect(t, p))
	assert.Len(t, f.urls, 1)
}

func TestPagedNextLinkKeepsRequestContext(t *testing.T) {
	var headers []string
	f := &pagedFetcher{pages: []string{pageOne, pageTwo}}

	fetch := func(ctx context.Context, req *Request) (*Response, error) {
		headers = append(headers, req.Headers["X-Custom"])
		return f.fetch(ctx, req)
	}

	req := &Request{
		Method:  http.MethodGet,
		URL:     "https://api.test/page1",
		Headers: map[string]string{"X-Custom": "v"},
	}
	p := NewPaged(req, fetch)
	collect(t, p)

	assert.Equal(t, []string{"v", "v"}, headers)
}

func TestPagedFetchErrorSurfaces(t *testing.T) {
	f := &pagedFetcher{err: ErrServerError}
	p := NewPaged(NewRequest(http.MethodGet, "https://api.test/page1"), f.fetch)

	assert.False(t, p.Next(context.Background()))
	assert.ErrorIs(t, p.Err(), ErrServerError)

	// Iteration stays terminated.
	assert.False(t, p.Next(context.Background()))
}

func TestPagedMalformedPage(t *testing.T) {
	f := &pagedFetcher{pages: []string{"not json"}}
	p := NewPaged(NewRequest(http.MethodGet, "https://api.test/page1"), f.fetch)

	assert.False(t, p.Next(context.Background()))
	assert.Error(t, p.Err())
}
