package download

import (
	"time"

	"github.com/rs/zerolog"
)

// LogProgress returns a Progress that logs the running byte count at
// most once per second, plus a final entry when a known total is
// reached.
func LogProgress(logger zerolog.Logger, name string) Progress {
	start := time.Now()
	var lastLog time.Time

	return func(written, total int64) {
		complete := total >= 0 && written == total
		if !complete && time.Since(lastLog) < time.Second {
			return
		}
		lastLog = time.Now()

		evt := logger.Info().
			Str("file", name).
			Int64("written", written).
			Dur("elapsed", time.Since(start).Round(time.Millisecond))
		if total >= 0 {
			evt = evt.Int64("total", total)
		}

		if complete {
			evt.Msg("Download complete")
			return
		}
		evt.Msg("Downloading")
	}
}
