package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/classmark/classmark/internal/ledger"
)

// batchWriter buffers accepted events and appends them to the ledger in
// batches, keeping disk writes off the per-frame path. The loop flushes the
// remainder on stop, so a stopped session never loses accepted marks.
type batchWriter struct {
	led  *ledger.CSV
	size int

	mu  sync.Mutex
	buf []ledger.Event
}

func newBatchWriter(led *ledger.CSV, size int) *batchWriter {
	if size < 1 {
		size = 1
	}
	return &batchWriter{led: led, size: size}
}

// Enqueue buffers one event, flushing when the batch fills.
func (w *batchWriter) Enqueue(e ledger.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, e)
	if len(w.buf) >= w.size {
		return w.flushLocked()
	}
	return nil
}

// Flush appends all buffered events to the ledger.
func (w *batchWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// Pending returns the number of buffered events not yet persisted.
func (w *batchWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buf)
}

func (w *batchWriter) flushLocked() error {
	for len(w.buf) > 0 {
		e := w.buf[0]
		err := w.led.Append(context.Background(), e)
		if errors.Is(err, ledger.ErrDuplicateEvent) {
			// The ledger's own duplicate defense fired; the mark exists,
			// so dropping the buffered copy is correct.
			log.Printf("skipping duplicate attendance event for %s", e.RollNo)
		} else if err != nil {
			return fmt.Errorf("flushing attendance batch: %w", err)
		}
		w.buf = w.buf[1:]
	}
	w.buf = nil
	return nil
}
