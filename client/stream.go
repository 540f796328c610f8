package client

import "context"

// Stream scopes one streamed request. Open sends the request and
// returns the response with its body left unread; Close releases the
// underlying connection. A Stream is single-use: opening it twice or
// after Close fails fast.
//
//	stream := sess.Stream(req)
//	resp, err := stream.Open(ctx)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
type Stream struct {
	sess *Session
	req  *Request
	resp *Response

	opened bool
	closed bool
}

// Open submits the request with a streamed body.
func (st *Stream) Open(ctx context.Context) (*Response, error) {
	if st.opened || st.closed {
		return nil, ErrStreamConsumed
	}
	st.opened = true

	resp, err := st.sess.do(ctx, st.req, true)
	if err != nil {
		st.closed = true
		return nil, err
	}

	st.resp = resp
	return resp, nil
}

// Close releases the response's connection. It is idempotent and safe
// to call whether or not Open succeeded.
func (st *Stream) Close() error {
	if st.closed {
		return nil
	}
	st.closed = true

	if st.resp == nil {
		return nil
	}
	return st.resp.Close()
}
