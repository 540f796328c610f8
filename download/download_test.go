package download

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkedReader yields data in fixed-size chunks to exercise arbitrary
// chunk boundaries.
type chunkedReader struct {
	data  []byte
	chunk int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.chunk
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func TestWritePreservesContent(t *testing.T) {
	payload := make([]byte, 5273)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	for _, chunk := range []int{1, 7, 100, 4096, len(payload)} {
		dest := filepath.Join(t.TempDir(), "asset.tif")
		reader := &chunkedReader{data: bytes.Clone(payload), chunk: chunk}

		written, err := Write(context.Background(), reader, int64(len(payload)), dest)
		require.NoError(t, err)
		assert.EqualValues(t, len(payload), written)

		got, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	}
}

func TestWriteUnknownTotal(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "asset.bin")

	written, err := Write(context.Background(), bytes.NewReader([]byte("abc")), -1, dest)
	require.NoError(t, err)
	assert.EqualValues(t, 3, written)
}

func TestWriteReportsProgress(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "asset.bin")
	payload := make([]byte, 250)

	type report struct{ written, total int64 }
	var reports []report

	reader := &chunkedReader{data: payload, chunk: 100}
	_, err := Write(context.Background(), reader, 250, dest,
		WithProgress(func(written, total int64) {
			reports = append(reports, report{written, total})
		}),
		WithBufferSize(100),
	)
	require.NoError(t, err)

	require.Equal(t, []report{{100, 250}, {200, 250}, {250, 250}}, reports)
}

func TestWriteLengthMismatch(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "asset.bin")

	written, err := Write(context.Background(), bytes.NewReader([]byte("short")), 100, dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLengthMismatch)
	assert.EqualValues(t, 5, written)

	// The partial file stays on disk for the caller to deal with.
	info, statErr := os.Stat(dest)
	require.NoError(t, statErr)
	assert.EqualValues(t, 5, info.Size())
}

// cancelAfterReader cancels the context once n bytes were served.
type cancelAfterReader struct {
	r      io.Reader
	n      int
	served int
	cancel context.CancelFunc
}

func (r *cancelAfterReader) Read(p []byte) (int, error) {
	if r.served >= r.n {
		r.cancel()
	}
	n, err := r.r.Read(p)
	r.served += n
	return n, err
}

func TestWriteCancellationLeavesPartialFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "asset.bin")
	payload := make([]byte, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	reader := &cancelAfterReader{
		r:      &chunkedReader{data: payload, chunk: 100},
		n:      300,
		cancel: cancel,
	}

	written, err := Write(ctx, reader, 1000, dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Greater(t, written, int64(0))
	assert.Less(t, written, int64(1000))

	info, statErr := os.Stat(dest)
	require.NoError(t, statErr)
	assert.EqualValues(t, written, info.Size())
}
