package downloader

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/vm-affekt/ytmux/internal/app"
	"github.com/vm-affekt/ytmux/internal/logging"
	"github.com/vm-affekt/ytmux/internal/progress"
	"github.com/vm-affekt/ytmux/internal/storage"
)

const (
	videoMP4Mime = "video/mp4"
	audioMP4Mime = "audio/mp4"

	videoExt = ".mp4"
	// audio keeps its mp4 payload, only the extension changes
	audioExt = ".mp3"
)

// Source resolves links to video metadata and opens streams. It decides which links it accepts.
type Source interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

type Service struct {
	source           Source
	dir              *storage.Dir
	progressInterval time.Duration
}

func New(dir *storage.Dir, debugMode bool) *Service {
	return NewWithSource(dir, newYoutubeSource(debugMode))
}

func NewWithSource(dir *storage.Dir, source Source) *Service {
	return &Service{
		source: source,
		dir:    dir,
	}
}

// SetProgressInterval enables periodic progress logging of stream downloads.
func (s *Service) SetProgressInterval(d time.Duration) {
	s.progressInterval = d
}

// ListQualityOptions returns the adaptive mp4 video streams of the link, highest resolution first.
func (s *Service) ListQualityOptions(ctx context.Context, link string) ([]app.StreamDescriptor, error) {
	ctx = logging.NewContextS(ctx, "video_link", link)
	log := logging.FromContextS(ctx)

	video, err := s.resolve(ctx, link)
	if err != nil {
		return nil, err
	}

	formats := make([]*youtube.Format, 0, len(video.Formats))
	for i := range video.Formats {
		if isAdaptiveVideo(&video.Formats[i]) {
			formats = append(formats, &video.Formats[i])
		}
	}
	sort.SliceStable(formats, func(i, j int) bool {
		return resolutionHeight(formats[i]) > resolutionHeight(formats[j])
	})

	options := make([]app.StreamDescriptor, 0, len(formats))
	for _, f := range formats {
		mimeType, codec := splitMimeType(f.MimeType)
		options = append(options, app.StreamDescriptor{
			Resolution: resolutionOf(f),
			FrameRate:  f.FPS,
			MimeType:   mimeType,
			VideoCodec: codec,
			StreamID:   strconv.Itoa(f.ItagNo),
		})
	}
	log.Infof("Found %d quality options out of %d formats", len(options), len(video.Formats))
	return options, nil
}

// Fetch downloads the streams for req into the output directory. Streams are selected before
// anything is written, so a missing stream leaves the directory untouched.
func (s *Service) Fetch(ctx context.Context, req app.DownloadRequest, stamp app.Stamp) (app.Fetched, error) {
	ctx = logging.NewContextS(ctx,
		"video_link", req.SourceURL,
		"resolution", req.Resolution,
		"audio_only", req.AudioOnly,
	)
	log := logging.FromContextS(ctx)

	video, err := s.resolve(ctx, req.SourceURL)
	if err != nil {
		return app.Fetched{}, err
	}
	log.Infof("Got video metadata with %d formats", len(video.Formats))

	var videoFormat *youtube.Format
	if !req.AudioOnly {
		videoFormat = selectVideoFormat(video.Formats, req.Resolution)
		if videoFormat == nil {
			return app.Fetched{}, app.NewError(app.KindNoVideoStream, "No adaptive video stream found for resolution %q", req.Resolution)
		}
	}
	audioFormat := selectAudioFormat(video.Formats)
	if audioFormat == nil {
		return app.Fetched{}, app.NewError(app.KindNoAudioStream, "No audio stream found")
	}

	title := video.Title
	if title == "" {
		title = video.ID
	}
	fetched := app.Fetched{Title: Sanitize(title)}
	suffix := storage.StampSuffix(stamp)

	if videoFormat != nil {
		fetched.VideoPath = s.dir.Path(fmt.Sprintf("%s_video_%s%s", fetched.Title, suffix, videoExt))
		if err := s.download(ctx, video, videoFormat, fetched.VideoPath); err != nil {
			return app.Fetched{}, err
		}
	}

	fetched.AudioPath = s.dir.Path(fmt.Sprintf("%s_audio_%s%s", fetched.Title, suffix, audioExt))
	if err := s.download(ctx, video, audioFormat, fetched.AudioPath); err != nil {
		s.dir.Cleanup(ctx, fetched.VideoPath)
		return app.Fetched{}, err
	}
	return fetched, nil
}

func (s *Service) resolve(ctx context.Context, link string) (*youtube.Video, error) {
	video, err := s.source.GetVideoContext(ctx, link)
	if err != nil {
		return nil, app.NewError(app.KindSourceUnavailable, "Failed to get video by link %q", link).WithCause(err)
	}
	return video, nil
}

// download writes one stream to path. The partial file is removed on failure.
func (s *Service) download(ctx context.Context, video *youtube.Video, format *youtube.Format, path string) (err error) {
	name := filepath.Base(path)
	log := logging.FromContextS(ctx)
	log.Infow("Found format for "+name,
		"format_mime_type", format.MimeType,
		"format_quality", format.QualityLabel,
		"format_itag", format.ItagNo,
		"format_bitrate", format.Bitrate,
	)

	stream, contentLen, err := s.source.GetStreamContext(ctx, video, format)
	if err != nil {
		return app.NewError(app.KindFetchFailure, "Failed to start downloading %s", name).WithCause(err)
	}
	defer stream.Close()
	log.Infof("Started downloading %s. Content length is %d", name, contentLen)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return app.NewError(app.KindFetchFailure, "Failed to create file %s", name).WithCause(err)
	}
	defer func() {
		if err != nil {
			s.dir.Cleanup(ctx, path)
		}
	}()

	counter := progress.NewCounter(name, contentLen)
	stop := progress.Watch(ctx, counter, s.progressInterval)
	written, err := io.Copy(io.MultiWriter(file, counter), stream)
	stop()
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return app.NewError(app.KindFetchFailure, "Failed to download %s", name).WithCause(err)
	}
	log.Infof("Downloaded %s: %.2fMB", name, progress.BytesToMegabytes(written))
	return nil
}

func isAdaptiveVideo(f *youtube.Format) bool {
	return strings.HasPrefix(f.MimeType, videoMP4Mime) && f.AudioChannels == 0 && resolutionOf(f) != ""
}

func isAdaptiveAudio(f *youtube.Format) bool {
	return strings.HasPrefix(f.MimeType, audioMP4Mime) && f.Width == 0 && f.Height == 0
}

// selectVideoFormat returns the first adaptive mp4 video stream of the requested resolution.
func selectVideoFormat(formats youtube.FormatList, resolution string) *youtube.Format {
	want := normalizeResolution(resolution)
	if want == "" {
		return nil
	}
	for i := range formats {
		f := &formats[i]
		if isAdaptiveVideo(f) && resolutionOf(f) == want {
			return f
		}
	}
	return nil
}

// selectAudioFormat returns the adaptive mp4 audio stream with the highest bitrate.
func selectAudioFormat(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !isAdaptiveAudio(f) {
			continue
		}
		if best == nil || bitrateOf(f) > bitrateOf(best) {
			best = f
		}
	}
	return best
}

func bitrateOf(f *youtube.Format) int {
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return f.Bitrate
}

// resolutionOf returns labels like "720p". Frame rate suffixes ("720p60") are dropped.
func resolutionOf(f *youtube.Format) string {
	if label := f.QualityLabel; label != "" {
		if i := strings.IndexByte(label, 'p'); i > 0 {
			return label[:i+1]
		}
		return label
	}
	if f.Height > 0 {
		return strconv.Itoa(f.Height) + "p"
	}
	return ""
}

func resolutionHeight(f *youtube.Format) int {
	h, err := strconv.Atoi(strings.TrimSuffix(resolutionOf(f), "p"))
	if err != nil {
		return f.Height
	}
	return h
}

// normalizeResolution accepts "720p", "720" and "720p60".
func normalizeResolution(res string) string {
	res = strings.ToLower(strings.TrimSpace(res))
	if res == "" {
		return ""
	}
	if i := strings.IndexByte(res, 'p'); i > 0 {
		return res[:i+1]
	}
	return res + "p"
}

// splitMimeType turns `video/mp4; codecs="avc1.4d401f"` into "video/mp4" and "avc1.4d401f".
func splitMimeType(raw string) (mimeType, codec string) {
	mediaType, params, err := mime.ParseMediaType(raw)
	if err != nil {
		mediaType, _, _ = strings.Cut(raw, ";")
		return strings.TrimSpace(mediaType), ""
	}
	return mediaType, params["codecs"]
}
