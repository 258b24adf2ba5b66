package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classmark/classmark/internal/ledger"
	"github.com/classmark/classmark/internal/recognizer"
	"github.com/classmark/classmark/internal/registry"
)

// ErrNoActiveSession reports a stop or query against a session that is not
// the active one.
var ErrNoActiveSession = errors.New("no active session")

// Session is one running (or finished) recognition session.
type Session struct {
	ID        string
	Class     registry.ClassKey
	StartedAt time.Time

	// Uncovered lists enrolled rolls of this class the model cannot return,
	// meaning enrollment changed after the last training run.
	Uncovered []string

	loop   *Loop
	gate   *Gate
	writer *batchWriter
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	runErr error
}

// State reports the session loop's current lifecycle state.
func (s *Session) State() State {
	return s.loop.State()
}

// Err returns the loop's terminal error once the session has finished.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

// Wait blocks until the session loop has exited.
func (s *Session) Wait() {
	<-s.done
}

// ManagerConfig wires a Manager to its collaborators.
type ManagerConfig struct {
	Registry *registry.Registry
	Ledger   *ledger.CSV
	Detector recognizer.Detector

	// Model supplies the current trained predictor. Called at session start
	// so a retrain between sessions is picked up automatically.
	Model func() (recognizer.Predictor, error)

	// Source opens a fresh frame source per session.
	Source func() (FrameSource, error)

	Cooldown      time.Duration
	FrameInterval time.Duration
	ReadTimeout   time.Duration
	BatchSize     int
}

// Manager enforces single-session exclusivity: at most one recognition
// session holds the camera and writes attendance at any time.
type Manager struct {
	cfg ManagerConfig

	mu     sync.Mutex
	active *Session

	// onDecision is fanned into every session's loop. Optional.
	onDecision func(Decision)
}

func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{cfg: cfg}
}

// SetDecisionHook registers a callback receiving every gate decision from
// every session. Must be set before the first Start.
func (m *Manager) SetDecisionHook(hook func(Decision)) {
	m.onDecision = hook
}

// Start begins a session for a class. Fails with ErrSessionAlreadyActive
// while another session is running; the failed attempt does not disturb it.
func (m *Manager) Start(ctx context.Context, class registry.ClassKey) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && m.active.State() != StateStopped {
		return nil, fmt.Errorf("%w: session %s for %s", ErrSessionAlreadyActive, m.active.ID, m.active.Class)
	}

	model, err := m.cfg.Model()
	if err != nil {
		return nil, fmt.Errorf("loading recognition model: %w", err)
	}

	roster, err := m.cfg.Registry.List(ctx, &class)
	if err != nil {
		return nil, fmt.Errorf("listing class roster: %w", err)
	}
	var uncovered []string
	for _, s := range roster {
		if !model.Covers(s.RollNo) {
			uncovered = append(uncovered, s.RollNo)
		}
	}
	if len(uncovered) > 0 {
		log.Printf("%d students of %s are not covered by the trained model, retrain to include them: %v",
			len(uncovered), class, uncovered)
	}

	writer := newBatchWriter(m.cfg.Ledger, m.cfg.BatchSize)
	gate, err := NewGate(ctx, class, m.cfg.Cooldown, m.cfg.Ledger, writer.Enqueue)
	if err != nil {
		return nil, err
	}

	source, err := m.cfg.Source()
	if err != nil {
		return nil, fmt.Errorf("opening frame source: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	sess := &Session{
		ID:        uuid.NewString(),
		Class:     class,
		StartedAt: time.Now(),
		Uncovered: uncovered,
		gate:      gate,
		writer:    writer,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	sess.loop = &Loop{
		class:       class,
		source:      source,
		detector:    m.cfg.Detector,
		model:       model,
		resolve:     m.cfg.Registry.Get,
		gate:        gate,
		writer:      writer,
		interval:    m.cfg.FrameInterval,
		readTimeout: m.cfg.ReadTimeout,
		onDecision:  m.onDecision,
		now:         time.Now,
	}

	m.active = sess
	go func() {
		err := sess.loop.Run(runCtx)
		sess.mu.Lock()
		sess.runErr = err
		sess.mu.Unlock()
		if err != nil {
			log.Printf("session %s stopped: %v", sess.ID, err)
		}
		close(sess.done)
	}()

	return sess, nil
}

// Stop ends the session with the given ID, waits for the loop to flush and
// release the camera, and returns the loop's terminal error if it failed.
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	sess := m.active
	m.mu.Unlock()

	if sess == nil || sess.ID != id {
		return fmt.Errorf("%w with id %s", ErrNoActiveSession, id)
	}

	sess.cancel()
	sess.Wait()

	m.mu.Lock()
	if m.active == sess {
		m.active = nil
	}
	m.mu.Unlock()

	return sess.Err()
}

// Active returns the most recent session, nil when none was started. A
// session that stopped on its own (camera failure, drained source) is still
// returned so its terminal error can be read, but it no longer blocks Start.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// LiveCount reports how many students of the session's class have been
// accepted so far versus the class roster size.
func (m *Manager) LiveCount(ctx context.Context, id string) (present, total int, err error) {
	m.mu.Lock()
	sess := m.active
	m.mu.Unlock()

	if sess == nil || sess.ID != id {
		return 0, 0, fmt.Errorf("%w with id %s", ErrNoActiveSession, id)
	}

	total, err = m.cfg.Registry.Count(ctx, &sess.Class)
	if err != nil {
		return 0, 0, fmt.Errorf("counting class roster: %w", err)
	}
	return sess.gate.Present(), total, nil
}
