package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/classmark/classmark/internal/recognizer"
	"github.com/classmark/classmark/internal/registry"
)

// State is the loop lifecycle. A loop starts Idle, runs, and ends Stopped;
// it never returns to Running once stopped.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Loop drives one recognition session: read a frame, detect faces, predict
// identities, and push candidates through the gate. It owns the frame source
// for its lifetime and releases it on every exit path.
type Loop struct {
	class    registry.ClassKey
	source   FrameSource
	detector recognizer.Detector
	model    recognizer.Predictor
	resolve  func(ctx context.Context, rollNo string) (*registry.Student, error)
	gate     *Gate
	writer   *batchWriter

	interval    time.Duration
	readTimeout time.Duration

	// onDecision receives every gate decision plus loop-level warnings,
	// feeding the operator display. Optional.
	onDecision func(Decision)

	state atomic.Int32
	now   func() time.Time
}

// Run processes frames until the context is canceled, the source drains, or
// the camera fails. Buffered events are flushed and the source closed before
// Run returns, on every path.
func (l *Loop) Run(ctx context.Context) (err error) {
	if !l.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return fmt.Errorf("loop already started (state %s)", l.State())
	}
	defer func() {
		l.state.Store(int32(StateStopped))
		if flushErr := l.writer.Flush(); flushErr != nil && err == nil {
			err = flushErr
		}
		if closeErr := l.source.Close(); closeErr != nil {
			log.Printf("closing frame source: %v", closeErr)
		}
	}()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if l.State() == StatePaused {
				continue
			}
			done, err := l.processFrame(ctx)
			if done || err != nil {
				return err
			}
		}
	}
}

// Pause suspends frame processing without releasing the camera.
func (l *Loop) Pause() {
	l.state.CompareAndSwap(int32(StateRunning), int32(StatePaused))
}

// Resume restarts frame processing after a pause.
func (l *Loop) Resume() {
	l.state.CompareAndSwap(int32(StatePaused), int32(StateRunning))
}

func (l *Loop) State() State {
	return State(l.state.Load())
}

// processFrame handles one tick. The bool result reports a clean end of the
// frame stream.
func (l *Loop) processFrame(ctx context.Context) (bool, error) {
	readCtx, cancel := context.WithTimeout(ctx, l.readTimeout)
	frame, err := l.source.Read(readCtx)
	cancel()
	if errors.Is(err, ErrEndOfStream) {
		return true, nil
	}
	if ctx.Err() != nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	for _, region := range l.detector.Detect(frame) {
		face := recognizer.Crop(frame, region)
		pred, err := l.model.Predict(ctx, face)
		if errors.Is(err, recognizer.ErrNoMatch) || errors.Is(err, recognizer.ErrNoFaceDetected) {
			continue
		}
		if err != nil {
			log.Printf("prediction failed: %v", err)
			continue
		}

		student, err := l.resolve(ctx, pred.RollNo)
		if err != nil {
			log.Printf("resolving %s: %v", pred.RollNo, err)
			continue
		}
		if student == nil {
			// The model still covers a roll that left the roster.
			log.Printf("recognized %s but no enrollment record exists, retrain the model", pred.RollNo)
			continue
		}

		decision, err := l.gate.Admit(ctx, Candidate{
			Student:    *student,
			Confidence: pred.Distance,
			Seen:       l.now(),
		})
		if err != nil {
			return false, err
		}
		if l.onDecision != nil {
			l.onDecision(decision)
		}
	}
	return false, nil
}
