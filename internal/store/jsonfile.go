// Package store provides persistence backends for the identity registry.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/classmark/classmark/internal/registry"
)

// JSONFile persists student records as a single JSON document keyed by roll
// number. Writes go through a temp file and rename so a crash mid-write never
// corrupts the roster.
type JSONFile struct {
	path string
	mu   sync.RWMutex
}

func NewJSONFile(path string) (*JSONFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &JSONFile{path: path}, nil
}

func (j *JSONFile) Path() string {
	return j.path
}

func (j *JSONFile) Get(ctx context.Context, rollNo string) (*registry.Student, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	records, err := j.load()
	if err != nil {
		return nil, err
	}
	s, ok := records[rollNo]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (j *JSONFile) Put(ctx context.Context, s *registry.Student) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	records, err := j.load()
	if err != nil {
		return err
	}
	records[s.RollNo] = *s
	return j.save(records)
}

func (j *JSONFile) Delete(ctx context.Context, rollNo string) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	records, err := j.load()
	if err != nil {
		return false, err
	}
	if _, ok := records[rollNo]; !ok {
		return false, nil
	}
	delete(records, rollNo)
	if err := j.save(records); err != nil {
		return false, err
	}
	return true, nil
}

func (j *JSONFile) List(ctx context.Context) ([]registry.Student, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	records, err := j.load()
	if err != nil {
		return nil, err
	}
	out := make([]registry.Student, 0, len(records))
	for _, s := range records {
		out = append(out, s)
	}
	return out, nil
}

func (j *JSONFile) load() (map[string]registry.Student, error) {
	data, err := os.ReadFile(j.path)
	if os.IsNotExist(err) {
		return map[string]registry.Student{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}

	records := map[string]registry.Student{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing roster: %w", err)
	}
	return records, nil
}

func (j *JSONFile) save(records map[string]registry.Student) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding roster: %w", err)
	}

	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing roster: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return fmt.Errorf("replacing roster: %w", err)
	}
	return nil
}
