// Package muxer combines separately downloaded video and audio streams into one mp4
// container with an external tool (ffmpeg) in stream-copy mode.
package muxer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"github.com/vm-affekt/ytmux/internal/app"
	"github.com/vm-affekt/ytmux/internal/logging"
	"github.com/vm-affekt/ytmux/internal/storage"
)

const (
	DefaultTool = "ffmpeg"

	OutputSuffix = "_NSD.mp4"

	// keep the tail of the tool output in MuxFailure messages
	maxOutputTail = 512
)

type Muxer struct {
	tool string
	dir  *storage.Dir
	now  func() time.Time
}

func New(dir *storage.Dir, tool string) *Muxer {
	if tool == "" {
		tool = DefaultTool
	}
	return &Muxer{
		tool: tool,
		dir:  dir,
		now:  time.Now,
	}
}

// BuildArgs returns the stream-copy arguments: -i <video> -i <audio> -c copy <output>.
func BuildArgs(videoPath, audioPath, outputPath string) []string {
	return []string{
		"-i", videoPath,
		"-i", audioPath,
		"-c", "copy",
		outputPath,
	}
}

// OutputName returns {baseName}_{time}_{token}_NSD.mp4.
func OutputName(baseName string, stamp app.Stamp) string {
	return fmt.Sprintf("%s_%s%s", baseName, storage.StampSuffix(stamp), OutputSuffix)
}

// Mux writes a new file combining videoPath and audioPath and returns its path.
// The inputs are left in place.
func (m *Muxer) Mux(ctx context.Context, videoPath, audioPath, baseName string) (string, error) {
	outputPath := m.dir.Path(OutputName(baseName, storage.NewStamp(m.now())))
	args := BuildArgs(videoPath, audioPath, outputPath)

	ctx, log := logging.NewContextSL(ctx, "mux_output", filepath.Base(outputPath))
	log.Infof("Combining audio and video: %s", shellescape.QuoteCommand(append([]string{m.tool}, args...)))

	cmd := exec.CommandContext(ctx, m.tool, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		m.dir.Cleanup(ctx, outputPath)
		log.Errorw("Mux tool failed", "error", err, "output", string(out))
		return "", app.NewError(app.KindMuxFailure, "Failed to combine audio and video%s", outputTail(out)).WithCause(err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", app.NewError(app.KindMuxFailure, "%s produced no output file", filepath.Base(m.tool))
		}
		return "", app.NewError(app.KindMuxFailure, "Failed to check mux output").WithCause(err)
	}
	log.Infof("Combined file is ready: %d bytes", info.Size())
	return outputPath, nil
}

func outputTail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if s == "" {
		return ""
	}
	if len(s) > maxOutputTail {
		s = "..." + s[len(s)-maxOutputTail:]
	}
	return " (" + s + ")"
}
