package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// page is the wire shape of one listing response.
type page struct {
	Links pageLinks         `json:"links"`
	Items []json.RawMessage `json:"items"`
}

type pageLinks struct {
	Next string `json:"next"`
}

// FetchFunc retrieves one page. Session.Request satisfies it.
type FetchFunc func(ctx context.Context, req *Request) (*Response, error)

// Paged lazily iterates the items of a multi-page listing, following
// each page's next link in order. Consumption follows the scanner
// pattern:
//
//	paged := client.NewPaged(req, sess.Request, client.WithLimit(100))
//	for paged.Next(ctx) {
//	    item := paged.Item()
//	    ...
//	}
//	if err := paged.Err(); err != nil {
//	    return err
//	}
//
// Items are yielded in the exact order received and pages are fetched
// strictly on demand: abandoning the loop early fetches nothing more.
// A Paged is single-pass and not safe for concurrent use.
type Paged struct {
	req   *Request
	fetch FetchFunc
	limit int

	started bool
	done    bool
	err     error

	items   []json.RawMessage
	next    string
	item    json.RawMessage
	yielded int
}

// PagedOption configures a Paged iterator.
type PagedOption func(*Paged)

// WithLimit caps the total number of items yielded. A negative limit
// means unlimited. The cap applies at yield time only: the first page
// is always fetched, and a page already holding the cutoff is not
// refetched or skipped.
func WithLimit(n int) PagedOption {
	return func(p *Paged) {
		p.limit = n
	}
}

// NewPaged creates an iterator starting from req.
func NewPaged(req *Request, fetch FetchFunc, opts ...PagedOption) *Paged {
	p := &Paged{
		req:   req,
		fetch: fetch,
		limit: -1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next advances to the next item, fetching further pages as needed.
// It returns false when the listing is exhausted, the limit is
// reached, or an error occurred; check Err after the loop.
func (p *Paged) Next(ctx context.Context) bool {
	if p.done || p.err != nil {
		return false
	}

	if !p.started {
		p.started = true
		// The first fetch always happens, even with a limit of zero.
		if !p.fetchPage(ctx, p.req) {
			return false
		}
	}

	for {
		if p.limit >= 0 && p.yielded >= p.limit {
			p.done = true
			return false
		}
		if len(p.items) > 0 {
			p.item = p.items[0]
			p.items = p.items[1:]
			p.yielded++
			return true
		}
		if p.next == "" {
			p.done = true
			return false
		}
		if !p.fetchPage(ctx, p.req.WithURL(p.next)) {
			return false
		}
	}
}

// Item returns the item produced by the last successful Next call.
func (p *Paged) Item() json.RawMessage {
	return p.item
}

// Err returns the first error encountered during iteration, if any.
func (p *Paged) Err() error {
	return p.err
}

func (p *Paged) fetchPage(ctx context.Context, req *Request) bool {
	resp, err := p.fetch(ctx, req)
	if err != nil {
		p.err = err
		return false
	}
	defer resp.Close()

	var pg page
	if err := resp.JSON(&pg); err != nil {
		p.err = fmt.Errorf("decoding page: %w", err)
		return false
	}

	p.items = pg.Items
	p.next = pg.Links.Next
	return true
}
