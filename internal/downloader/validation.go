package downloader

import (
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/vm-affekt/ytmux/internal/app"
)

// ValidateLink checks that link points to a YouTube video.
func ValidateLink(link string) error {
	if strings.TrimSpace(link) == "" {
		return app.NewError(app.KindSourceUnavailable, "No URL provided")
	}
	if !strings.Contains(link, "youtu.be/") && !strings.Contains(link, "youtube.com/") {
		return app.NewError(app.KindSourceUnavailable, "URL %q doesn't point to YouTube", link)
	}
	if _, err := youtube.ExtractVideoID(link); err != nil {
		return app.NewError(app.KindSourceUnavailable, "Failed to extract video id from URL %q", link).WithCause(err)
	}
	return nil
}
