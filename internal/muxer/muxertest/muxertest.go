// Package muxertest provides shell-script stand-ins for ffmpeg.
package muxertest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	// concatenates both inputs into the last argument
	scriptCopy = `#!/bin/sh
for last; do :; done
cat "$2" "$4" > "$last"
`
	scriptFail = `#!/bin/sh
echo "Invalid data found when processing input" >&2
exit 1
`
	scriptNoOutput = `#!/bin/sh
exit 0
`
)

// Tool writes an executable script that behaves like a successful stream copy.
func Tool(t testing.TB) string {
	return write(t, "ffmpeg-ok", scriptCopy)
}

// FailingTool exits with status 1 and a message on stderr.
func FailingTool(t testing.TB) string {
	return write(t, "ffmpeg-fail", scriptFail)
}

// SilentTool exits with status 0 without creating the output file.
func SilentTool(t testing.TB) string {
	return write(t, "ffmpeg-silent", scriptNoOutput)
}

func write(t testing.TB, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write fake tool: %v", err)
	}
	return path
}
