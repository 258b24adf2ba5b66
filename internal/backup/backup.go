// Package backup snapshots the roster and attendance ledger after mutations.
// Snapshots are best effort: failures are logged and never block or roll back
// the mutation that triggered them.
package backup

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Manager copies store files into the backup directory and keeps a bounded
// number of snapshots per store, rotating strict FIFO.
type Manager struct {
	dir       string
	retention int
	mu        sync.Mutex
	now       func() time.Time
}

func NewManager(dir string, retention int) (*Manager, error) {
	if retention < 1 {
		return nil, fmt.Errorf("retention must be at least 1, got %d", retention)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}
	return &Manager{dir: dir, retention: retention, now: time.Now}, nil
}

// Snapshot copies srcPath into the backup directory under the store's name.
// A missing or empty source is a no-op, not an error.
func (m *Manager) Snapshot(storeName, srcPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if srcPath == "" {
		return nil
	}
	src, err := os.Open(srcPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening %s for snapshot: %w", storeName, err)
	}
	defer src.Close()

	// Nanosecond-precision timestamps keep names sortable by age even for
	// snapshots taken within the same second.
	name := fmt.Sprintf("%s_%s%s",
		storeName,
		m.now().Format("20060102_150405.000000000"),
		filepath.Ext(srcPath),
	)
	dst, err := os.Create(filepath.Join(m.dir, name))
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return fmt.Errorf("copying snapshot: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}

	return m.prune(storeName)
}

// TrySnapshot is the mutation-hook form of Snapshot: failures are logged,
// never returned.
func (m *Manager) TrySnapshot(storeName, srcPath string) {
	if err := m.Snapshot(storeName, srcPath); err != nil {
		log.Printf("backup of %s failed: %v", storeName, err)
	}
}

// List returns the snapshot filenames for a store, oldest first.
func (m *Manager) List(storeName string) ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), storeName+"_") {
			names = append(names, e.Name())
		}
	}
	// Timestamped names sort oldest first lexicographically.
	sort.Strings(names)
	return names, nil
}

// prune removes the oldest snapshots beyond the retention bound.
func (m *Manager) prune(storeName string) error {
	names, err := m.List(storeName)
	if err != nil {
		return err
	}
	for len(names) > m.retention {
		if err := os.Remove(filepath.Join(m.dir, names[0])); err != nil {
			return fmt.Errorf("pruning snapshot %s: %w", names[0], err)
		}
		names = names[1:]
	}
	return nil
}
