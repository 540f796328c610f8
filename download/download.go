// Package download persists streamed HTTP response bodies to disk
// without buffering them in memory, with optional progress reporting
// and bounded-concurrency batch downloads.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/stratus-eo/stratus/client"
)

// ErrLengthMismatch indicates the written byte count does not match
// the Content-Length the service announced.
var ErrLengthMismatch = errors.New("content length mismatch")

// Progress receives the running byte count after every chunk. total is
// -1 when the response carried no Content-Length.
type Progress func(written, total int64)

// Option configures a download.
type Option func(*options)

type options struct {
	progress Progress
	bufSize  int
}

// WithProgress reports progress after every written chunk.
func WithProgress(fn Progress) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithBufferSize sets the copy buffer size in bytes.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufSize = n
		}
	}
}

// Write streams body into destPath, writing chunks strictly in the
// order received. total is the expected byte count, or -1 when
// unknown; a completed write that does not match a known total fails
// with ErrLengthMismatch. On any failure, including cancellation, the
// partially written file is left in place for the caller to inspect or
// clean up.
func Write(ctx context.Context, body io.Reader, total int64, destPath string, opts ...Option) (int64, error) {
	o := options{bufSize: 32 * 1024}
	for _, opt := range opts {
		opt(&o)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("creating destination file: %w", err)
	}

	var written int64
	buf := make([]byte, o.bufSize)
	reader := &contextReader{ctx: ctx, r: body}

	for {
		n, rerr := reader.Read(buf)
		if n > 0 {
			wn, werr := file.Write(buf[:n])
			written += int64(wn)
			if o.progress != nil {
				o.progress(written, total)
			}
			if werr != nil {
				file.Close()
				return written, fmt.Errorf("writing chunk: %w", werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			file.Close()
			return written, fmt.Errorf("reading body: %w", rerr)
		}
	}

	if err := file.Close(); err != nil {
		return written, fmt.Errorf("closing destination file: %w", err)
	}

	if total >= 0 && written != total {
		return written, fmt.Errorf("%w: expected %d bytes, wrote %d", ErrLengthMismatch, total, written)
	}

	return written, nil
}

// WriteResponse streams resp's body into destPath, using the
// response's Content-Length as the expected total.
func WriteResponse(ctx context.Context, resp *client.Response, destPath string, opts ...Option) (int64, error) {
	return Write(ctx, resp.Reader(), resp.ContentLength(), destPath, opts...)
}

// contextReader aborts reads once the context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
