package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/classmark/classmark/internal/ledger"
	"github.com/classmark/classmark/internal/registry"
)

// Verdict classifies one gate decision.
type Verdict string

const (
	VerdictAccepted      Verdict = "accepted"
	VerdictWrongClass    Verdict = "wrong_class"
	VerdictAlreadyMarked Verdict = "already_marked_today"
	VerdictCooldown      Verdict = "cooldown"
)

// Candidate is a recognition hit the loop asks the gate to judge.
type Candidate struct {
	Student    registry.Student
	Confidence float64
	Seen       time.Time
}

// Decision is the gate's answer for one candidate. Rejections carry the
// verdict that fired; accepted candidates have had their event emitted.
type Decision struct {
	Verdict Verdict
	RollNo  string
}

func (d Decision) Accepted() bool {
	return d.Verdict == VerdictAccepted
}

// Gate enforces attendance integrity for one session. Checks run in a fixed
// order and the first match wins: wrong class, already marked today, cooldown.
// Only a candidate passing all three produces a ledger event.
//
// The marked-today view is loaded from the ledger once at session start and
// then extended by the session's own accepted marks, so the per-frame checks
// stay in memory. The ledger is consulted once more on the accept path, as
// the last word on the per-day invariant, before the event is emitted. A mark
// accepted during this session counts as "already marked today" only once its
// cooldown window has passed; inside the window the cooldown verdict fires,
// which tells the operator the student was just scanned rather than flagging
// a stale duplicate.
type Gate struct {
	class    registry.ClassKey
	cooldown time.Duration
	led      *ledger.CSV

	// mu guards the mark maps: the loop goroutine admits candidates while
	// Present is read from API goroutines.
	mu          sync.Mutex
	markedToday map[string]bool
	lastMark    map[string]time.Time

	// emit hands an accepted event to the session's batch writer.
	emit func(ledger.Event) error

	now func() time.Time
}

// NewGate builds a gate for one class session. The ledger is consulted once
// here to preload today's marks across all prior sessions.
func NewGate(ctx context.Context, class registry.ClassKey, cooldown time.Duration, led *ledger.CSV, emit func(ledger.Event) error) (*Gate, error) {
	g := &Gate{
		class:       class,
		cooldown:    cooldown,
		led:         led,
		markedToday: make(map[string]bool),
		lastMark:    make(map[string]time.Time),
		emit:        emit,
		now:         time.Now,
	}

	events, err := led.Query(ctx, nil, timePtr(g.now()))
	if err != nil {
		return nil, fmt.Errorf("loading today's marks: %w", err)
	}
	for _, e := range events {
		g.markedToday[e.RollNo] = true
	}
	return g, nil
}

// Admit judges one candidate. An accepted candidate's event is emitted before
// Admit returns; an emit failure surfaces as an error so the mark is never
// silently dropped.
func (g *Gate) Admit(ctx context.Context, c Candidate) (Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c.Student.Class() != g.class {
		return Decision{Verdict: VerdictWrongClass, RollNo: c.Student.RollNo}, nil
	}

	last, seenThisSession := g.lastMark[c.Student.RollNo]
	if g.markedToday[c.Student.RollNo] ||
		(seenThisSession && c.Seen.Sub(last) >= g.cooldown) {
		return Decision{Verdict: VerdictAlreadyMarked, RollNo: c.Student.RollNo}, nil
	}
	if seenThisSession {
		return Decision{Verdict: VerdictCooldown, RollNo: c.Student.RollNo}, nil
	}

	// Final ledger check before the event is emitted. The preload can miss
	// marks written after session start; this read cannot.
	marked, err := g.led.HasMark(ctx, c.Student.RollNo, c.Seen)
	if err != nil {
		return Decision{}, fmt.Errorf("checking today's marks: %w", err)
	}
	if marked {
		g.markedToday[c.Student.RollNo] = true
		return Decision{Verdict: VerdictAlreadyMarked, RollNo: c.Student.RollNo}, nil
	}

	event := ledger.Event{
		RollNo:     c.Student.RollNo,
		Name:       c.Student.Name,
		Branch:     c.Student.Branch,
		Section:    c.Student.Section,
		Timestamp:  c.Seen,
		Confidence: c.Confidence,
	}
	if err := g.emit(event); err != nil {
		return Decision{}, fmt.Errorf("emitting attendance event: %w", err)
	}
	g.lastMark[c.Student.RollNo] = c.Seen

	return Decision{Verdict: VerdictAccepted, RollNo: c.Student.RollNo}, nil
}

// Present returns the number of distinct students this session has accepted.
func (g *Gate) Present() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.lastMark)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
