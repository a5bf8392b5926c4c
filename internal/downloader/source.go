package downloader

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/vm-affekt/ytmux/internal/logging"
)

// youtubeSource is the Source used in production. It only accepts YouTube links.
type youtubeSource struct {
	client *youtube.Client
}

func newYoutubeSource(debugMode bool) *youtubeSource {
	return &youtubeSource{
		client: &youtube.Client{
			Debug: debugMode,
		},
	}
}

func (s *youtubeSource) GetVideoContext(ctx context.Context, link string) (*youtube.Video, error) {
	if err := ValidateLink(link); err != nil {
		return nil, err
	}
	return s.client.GetVideoContext(ctx, transformLink(ctx, link))
}

func (s *youtubeSource) GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error) {
	return s.client.GetStreamContext(ctx, video, format)
}

// transformLink extracts and returns video id if link has '/live/' path.
// Youtube downloader lib has bug: it doesn't recognize '/live/' links.
func transformLink(ctx context.Context, link string) string {
	const livePath = "/live/"
	log := logging.FromContextS(ctx)
	parsedURL, err := url.Parse(link)
	if err != nil {
		log.Errorf("downloader.transformLink: failed to parse url: %v", err)
		return link
	}
	path := parsedURL.Path
	if !strings.HasPrefix(path, livePath) {
		return link
	}
	startIdx := len(livePath)
	if len(path) == startIdx {
		log.Errorf("downloader.transformLink: no video_id after %s", livePath)
		return link
	}
	return path[startIdx:]
}
