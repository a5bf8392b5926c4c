// Package storage owns the output directory shared by all pipeline runs: file naming,
// path resolution and best-effort removal of intermediate files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vm-affekt/ytmux/internal/app"
	"github.com/vm-affekt/ytmux/internal/logging"
)

const (
	DefaultDirPermissions = 0755

	// TimeLayout renders year-month-day_hour-minute-second.
	TimeLayout = "20060102_150405"
	tokenLen   = 8
)

type Dir struct {
	root string
}

// Open makes root absolute and creates it if absent.
func Open(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path of %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create output directory %q: %w", abs, err)
	}
	return &Dir{root: abs}, nil
}

func (d *Dir) Root() string {
	return d.root
}

// Path joins name onto the directory root.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.root, name)
}

// Rel returns path relative to the directory root. Paths outside of the root are rejected.
func (d *Dir) Rel(path string) (string, error) {
	rel, err := filepath.Rel(d.root, path)
	if err != nil {
		return "", fmt.Errorf("failed to make %q relative to %q: %w", path, d.root, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside of output directory %q", path, d.root)
	}
	return filepath.ToSlash(rel), nil
}

// Cleanup deletes every existing path. Missing paths are skipped and removal errors are only
// logged: cleanup never fails the caller.
func (d *Dir) Cleanup(ctx context.Context, paths ...string) {
	log := logging.FromContextS(ctx)
	for _, path := range paths {
		if path == "" {
			continue
		}
		err := os.Remove(path)
		switch {
		case err == nil:
			log.Infof("Deleted: %s", path)
		case errors.Is(err, os.ErrNotExist):
			log.Debugf("Nothing to delete at %s", path)
		default:
			log.Warnw("Failed to delete file", "path", path, "error", err)
		}
	}
}

// NewStamp captures now and a random token. Two stamps taken within the same second differ
// in Token.
func NewStamp(now time.Time) app.Stamp {
	return app.Stamp{
		Time:  now.Format(TimeLayout),
		Token: newToken(),
	}
}

func newToken() string {
	id, err := uuid.NewRandom()
	if err != nil {
		// entropy failure: fall back to the clock
		return fmt.Sprintf("%08x", uint32(time.Now().UnixNano()))
	}
	return strings.ReplaceAll(id.String(), "-", "")[:tokenLen]
}

// StampSuffix renders the stamp as it appears in file names.
func StampSuffix(s app.Stamp) string {
	if s.Token == "" {
		return s.Time
	}
	return s.Time + "_" + s.Token
}
