package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirSamples stores enrollment face samples on disk under
// <root>/<rollNo>/NNN.jpg, one directory per identity.
type DirSamples struct {
	root string
}

func NewDirSamples(root string) (*DirSamples, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating dataset directory: %w", err)
	}
	return &DirSamples{root: root}, nil
}

func (d *DirSamples) Save(ctx context.Context, rollNo string, image []byte) error {
	dir := filepath.Join(d.root, rollNo)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating sample directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("listing samples: %w", err)
	}
	name := fmt.Sprintf("%03d.jpg", len(entries)+1)
	if err := os.WriteFile(filepath.Join(dir, name), image, 0o644); err != nil {
		return fmt.Errorf("writing sample: %w", err)
	}
	return nil
}

func (d *DirSamples) ListByRoll(ctx context.Context, rollNo string) ([][]byte, error) {
	dir := filepath.Join(d.root, rollNo)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing samples: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isImageFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading sample %s: %w", name, err)
		}
		out = append(out, data)
	}
	return out, nil
}

func (d *DirSamples) All(ctx context.Context) (map[string][][]byte, error) {
	entries, err := os.ReadDir(d.root)
	if os.IsNotExist(err) {
		return map[string][][]byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing dataset: %w", err)
	}

	out := make(map[string][][]byte)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		samples, err := d.ListByRoll(ctx, e.Name())
		if err != nil {
			return nil, err
		}
		if len(samples) > 0 {
			out[e.Name()] = samples
		}
	}
	return out, nil
}

func (d *DirSamples) DeleteByRoll(ctx context.Context, rollNo string) error {
	if err := os.RemoveAll(filepath.Join(d.root, rollNo)); err != nil {
		return fmt.Errorf("removing samples: %w", err)
	}
	return nil
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".bmp", ".gif":
		return true
	}
	return false
}
