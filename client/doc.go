// Package client implements the HTTP session core for the Stratus
// satellite-imagery API: authenticated request dispatch with typed
// error mapping, bounded retry on throttling, streamed downloads with
// guaranteed connection release, and lazy pagination over the
// service's next-link protocol.
//
// # Usage
//
//	cred, err := auth.Default()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sess := client.NewSession(cred, logger)
//	defer sess.Close()
//
//	resp, err := sess.Request(ctx, client.NewRequest(http.MethodGet, url))
//	if err != nil {
//	    // errors.Is(err, client.ErrMissingResource), etc.
//	}
//
// Listings are consumed through a Paged iterator, binary assets
// through a Stream handle combined with the download package.
package client
