// Package ledger persists accepted attendance events as an append-oriented
// CSV log. Events are immutable once written; the integrity gate is the sole
// writer and the sole enforcer of the one-mark-per-day rule, with Append
// keeping a second line of defense against same-day duplicates.
package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/classmark/classmark/internal/registry"
)

// ErrDuplicateEvent reports a same roll + session date collision.
var ErrDuplicateEvent = errors.New("attendance already recorded for this day")

// Event is one accepted attendance mark.
type Event struct {
	RollNo     string
	Name       string
	Branch     string
	Section    string
	Timestamp  time.Time
	Confidence float64
}

// Class returns the event's class grouping.
func (e *Event) Class() registry.ClassKey {
	return registry.ClassKey{Branch: e.Branch, Section: e.Section}
}

// SessionDate returns the calendar date the event counts toward.
func (e *Event) SessionDate() string {
	return e.Timestamp.Format("2006-01-02")
}

var csvHeader = []string{"Name", "RollNo", "Branch", "Section", "Date", "Time", "Confidence"}

// CSV is the file-backed ledger. All methods re-read current persisted state,
// so every Query observes all appends completed before the call began.
type CSV struct {
	path string
	mu   sync.Mutex

	// onMutate fires after each successful append so the backup manager
	// can snapshot the ledger.
	onMutate func()
}

func NewCSV(path string) (*CSV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	return &CSV{path: path}, nil
}

// SetMutationHook registers a callback fired after successful appends.
func (l *CSV) SetMutationHook(hook func()) {
	l.onMutate = hook
}

// Path returns the ledger file location for snapshotting.
func (l *CSV) Path() string {
	return l.path
}

// Append writes one event to the log. Fails with ErrDuplicateEvent when the
// roll number already has a mark for the event's session date.
func (l *CSV) Append(ctx context.Context, e Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.readAll()
	if err != nil {
		return err
	}
	for i := range events {
		if events[i].RollNo == e.RollNo && events[i].SessionDate() == e.SessionDate() {
			return fmt.Errorf("%w: %s on %s", ErrDuplicateEvent, e.RollNo, e.SessionDate())
		}
	}

	if err := l.appendRow(e); err != nil {
		return err
	}
	if l.onMutate != nil {
		l.onMutate()
	}
	return nil
}

// HasMark reports whether a roll number already has an event on a date.
func (l *CSV) HasMark(ctx context.Context, rollNo string, date time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.readAll()
	if err != nil {
		return false, err
	}
	day := date.Format("2006-01-02")
	for i := range events {
		if events[i].RollNo == rollNo && events[i].SessionDate() == day {
			return true, nil
		}
	}
	return false, nil
}

// Query returns events filtered by class and/or session date. Each call
// yields a fresh slice from the current persisted state.
func (l *CSV) Query(ctx context.Context, class *registry.ClassKey, date *time.Time) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.readAll()
	if err != nil {
		return nil, err
	}

	var day string
	if date != nil {
		day = date.Format("2006-01-02")
	}

	out := make([]Event, 0, len(events))
	for _, e := range events {
		if class != nil && e.Class() != *class {
			continue
		}
		if date != nil && e.SessionDate() != day {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Export streams matching events as CSV, header included.
func (l *CSV) Export(ctx context.Context, w io.Writer, class *registry.ClassKey, from, to *time.Time) error {
	l.mu.Lock()
	events, err := l.readAll()
	l.mu.Unlock()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing export header: %w", err)
	}
	for _, e := range events {
		if class != nil && e.Class() != *class {
			continue
		}
		if from != nil && e.Timestamp.Before(*from) {
			continue
		}
		if to != nil && e.Timestamp.After(*to) {
			continue
		}
		if err := cw.Write(eventToRow(e)); err != nil {
			return fmt.Errorf("writing export row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing export: %w", err)
	}
	return nil
}

// Import reads an exported CSV stream back into events. Used for round-trip
// verification and administrative restores; it does not write to the log.
func Import(r io.Reader) ([]Event, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	events := make([]Event, 0, len(rows)-1)
	for i, row := range rows[1:] {
		e, err := rowToEvent(row)
		if err != nil {
			return nil, fmt.Errorf("import row %d: %w", i+2, err)
		}
		events = append(events, e)
	}
	return events, nil
}

func (l *CSV) readAll() ([]Event, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	events, err := Import(f)
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	return events, nil
}

func (l *CSV) appendRow(e Event) error {
	newFile := false
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		newFile = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening ledger for append: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if newFile {
		if err := cw.Write(csvHeader); err != nil {
			return fmt.Errorf("writing ledger header: %w", err)
		}
	}
	if err := cw.Write(eventToRow(e)); err != nil {
		return fmt.Errorf("writing ledger row: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing ledger: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing ledger: %w", err)
	}
	return nil
}

func eventToRow(e Event) []string {
	return []string{
		e.Name,
		e.RollNo,
		e.Branch,
		e.Section,
		e.Timestamp.Format("2006-01-02"),
		e.Timestamp.Format("15:04:05"),
		strconv.FormatFloat(e.Confidence, 'f', 4, 64),
	}
}

func rowToEvent(row []string) (Event, error) {
	if len(row) != len(csvHeader) {
		return Event{}, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(row))
	}

	ts, err := time.ParseInLocation("2006-01-02 15:04:05", row[4]+" "+row[5], time.Local)
	if err != nil {
		return Event{}, fmt.Errorf("parsing timestamp: %w", err)
	}
	confidence, err := strconv.ParseFloat(row[6], 64)
	if err != nil {
		return Event{}, fmt.Errorf("parsing confidence: %w", err)
	}

	return Event{
		Name:       row[0],
		RollNo:     row[1],
		Branch:     row[2],
		Section:    row[3],
		Timestamp:  ts,
		Confidence: confidence,
	}, nil
}
