package app

import (
	"context"
)

// StreamDescriptor describes one quality option of a source video.
type StreamDescriptor struct {
	Resolution string `json:"resolution"`
	FrameRate  int    `json:"fps"`
	MimeType   string `json:"mime_type"`
	VideoCodec string `json:"video_codec"`
	StreamID   string `json:"itag"`
}

// DownloadRequest asks for one video at Resolution, or only its audio when AudioOnly is set.
type DownloadRequest struct {
	SourceURL  string
	Resolution string
	AudioOnly  bool
}

// Fetched holds the paths written by a single fetch. VideoPath is empty for audio-only requests.
type Fetched struct {
	Title     string
	VideoPath string
	AudioPath string
}

// Paths returns non-empty fetched paths, video first.
func (f Fetched) Paths() []string {
	paths := make([]string, 0, 2)
	if f.VideoPath != "" {
		paths = append(paths, f.VideoPath)
	}
	if f.AudioPath != "" {
		paths = append(paths, f.AudioPath)
	}
	return paths
}

// DownloadResult is the deliverable of a pipeline run.
type DownloadResult struct {
	// Path is the absolute path of the file.
	Path string
	// Name is Path relative to the output directory.
	Name      string
	AudioOnly bool
}

// Stamp marks every file produced by one call so that names do not collide.
type Stamp struct {
	Time  string
	Token string
}

// Catalog lists the downloadable quality options of a source video.
type Catalog interface {
	ListQualityOptions(ctx context.Context, sourceURL string) ([]StreamDescriptor, error)
}

// Fetcher writes the selected streams of a video into the output directory.
type Fetcher interface {
	Fetch(ctx context.Context, req DownloadRequest, stamp Stamp) (Fetched, error)
}

// Muxer combines a video and an audio file into a new file named after baseName and returns its path.
type Muxer interface {
	Mux(ctx context.Context, videoPath, audioPath, baseName string) (string, error)
}
