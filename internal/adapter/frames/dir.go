// Package frames provides frame sources for the live comparison loop.
package frames

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"sort"
	"time"

	"profilematch/internal/adapter/imaging"
)

// DirSource feeds image files appearing in a directory as a frame stream,
// oldest name first. A camera process dumping frames into a spool directory
// makes this behave like a live feed; tests use it directly.
type DirSource struct {
	dir      string
	interval time.Duration
	served   map[string]bool
}

func NewDirSource(dir string, interval time.Duration) *DirSource {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &DirSource{dir: dir, interval: interval, served: make(map[string]bool)}
}

// Next blocks until an unserved frame file is available or ctx is done.
func (s *DirSource) Next(ctx context.Context) (image.Image, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entries, err := os.ReadDir(s.dir)
		if err != nil {
			return nil, err
		}

		var names []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if !s.served[name] && imaging.IsSupported(name) {
				names = append(names, name)
			}
		}

		if len(names) > 0 {
			sort.Strings(names)
			name := names[0]
			s.served[name] = true
			return imaging.Decode(filepath.Join(s.dir, name))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.interval):
		}
	}
}

func (s *DirSource) Close() error {
	return nil
}
