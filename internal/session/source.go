// Package session runs live recognition sessions: it owns the camera loop,
// the per-session cooldown state, and the integrity gate that turns
// recognition candidates into persisted attendance events.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
)

// Resource errors, fatal to the current session.
var (
	ErrSessionAlreadyActive = errors.New("a recognition session is already active")
	ErrCameraUnavailable    = errors.New("camera unavailable")
)

// ErrEndOfStream is returned by finite frame sources when all frames have
// been read. The loop treats it as a clean stop, not a failure.
var ErrEndOfStream = errors.New("end of frame stream")

// FrameSource produces camera frames. Read blocks until the next frame,
// honoring the context deadline; implementations must make Close safe to
// call after a failed Read.
type FrameSource interface {
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

// DirSource plays image files from a directory in filename order. It stands
// in for a device camera in headless and test setups; a V4L2 or similar
// device source plugs in behind the same interface.
type DirSource struct {
	mu    sync.Mutex
	files []string
	next  int
}

func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png", ".bmp", ".gif":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no frames in %s", ErrCameraUnavailable, dir)
	}
	sort.Strings(files)
	return &DirSource{files: files}, nil
}

func (s *DirSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.files) {
		return nil, ErrEndOfStream
	}
	path := s.files[s.next]
	s.next++

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading frame %s: %w", path, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding frame %s: %w", path, err)
	}
	return img, nil
}

func (s *DirSource) Close() error {
	return nil
}
