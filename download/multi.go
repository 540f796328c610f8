package download

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stratus-eo/stratus/client"
)

// DefaultConcurrency is the number of downloads performed in parallel
// by All when the caller does not say otherwise.
const DefaultConcurrency = 4

// Item names one asset to download.
type Item struct {
	URL  string
	Dest string
}

// ItemError records a failed download within a batch.
type ItemError struct {
	URL  string
	Dest string
	Err  error
}

// Error implements the error interface.
func (e ItemError) Error() string {
	return fmt.Sprintf("failed to download %s to %s: %v", e.URL, e.Dest, e.Err)
}

// Result summarizes a batch download.
type Result struct {
	Requested int
	Completed []string
	Failed    []ItemError
}

// All streams every item to disk with bounded concurrency. Individual
// failures do not stop the batch; they are collected in the result.
// Cancelling the context stops all in-flight downloads, leaving any
// partial files in place.
func All(ctx context.Context, sess *client.Session, items []Item, concurrency int, logger zerolog.Logger, opts ...Option) Result {
	result := Result{Requested: len(items)}
	if len(items) == 0 {
		return result
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	doneCh := make(chan string, len(items))
	errCh := make(chan ItemError, len(items))

	for _, item := range items {
		g.Go(func() error {
			if err := one(ctx, sess, item, logger, opts...); err != nil {
				logger.Warn().Err(err).Str("url", item.URL).Msg("Download failed")
				errCh <- ItemError{URL: item.URL, Dest: item.Dest, Err: err}
			} else {
				doneCh <- item.Dest
			}
			return nil // individual failures don't stop the batch
		})
	}

	g.Wait() //nolint:errcheck
	close(doneCh)
	close(errCh)

	for dest := range doneCh {
		result.Completed = append(result.Completed, dest)
	}
	for e := range errCh {
		result.Failed = append(result.Failed, e)
	}

	return result
}

func one(ctx context.Context, sess *client.Session, item Item, logger zerolog.Logger, opts ...Option) error {
	stream := sess.Stream(client.NewRequest(http.MethodGet, item.URL))
	resp, err := stream.Open(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	name := filepath.Base(item.Dest)
	opts = append([]Option{WithProgress(LogProgress(logger, name))}, opts...)

	written, err := WriteResponse(ctx, resp, item.Dest, opts...)
	if err != nil {
		return err
	}

	logger.Info().
		Str("dest", item.Dest).
		Int64("bytes", written).
		Msg("Downloaded file")
	return nil
}
