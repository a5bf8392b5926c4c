package progress

import (
	"context"
	"time"

	"github.com/vm-affekt/ytmux/internal/logging"
)

const oneMB = 1048576

func BytesToMegabytes(bytes int64) float64 {
	return float64(bytes) / float64(oneMB)
}

// Report logs the current state of c once.
func Report(ctx context.Context, c *Counter) {
	log := logging.FromContextS(ctx)
	downloadedMB := BytesToMegabytes(c.CurrentDownloaded())
	if c.ContentLen() <= 0 {
		log.Infof("%s: downloaded %.2fMB of unknown size", c.Name(), downloadedMB)
		return
	}
	eta := "???"
	if d, err := c.EstimatedTime(); err == nil {
		eta = d.Round(time.Second).String()
	}
	log.Infow("Download progress",
		"stream", c.Name(),
		"downloaded_mb", downloadedMB,
		"total_mb", BytesToMegabytes(c.ContentLen()),
		"percent", c.Percentage(),
		"eta", eta,
	)
}

// Watch reports c every interval until the returned stop function is called.
// A non-positive interval disables reporting.
func Watch(ctx context.Context, c *Counter, interval time.Duration) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				Report(ctx, c)
			}
		}
	}()
	return func() { close(done) }
}
