package registry

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Registry is the authoritative identity store. All enrollments and removals
// go through it so uniqueness and format rules hold for every record.
type Registry struct {
	store     Store
	samples   SampleStore
	validator *Validator

	// onMutate fires after every successful enroll or remove so the backup
	// manager can snapshot the roster. Best effort, never blocks the mutation.
	onMutate func()

	// onMembershipChange fires when the set of enrolled rolls changes,
	// marking any trained model's coverage as stale.
	onMembershipChange func()

	now func() time.Time
}

type Option func(*Registry)

// WithMutationHook registers a callback fired after each successful mutation.
func WithMutationHook(hook func()) Option {
	return func(r *Registry) { r.onMutate = hook }
}

// WithMembershipHook registers a callback fired when roster membership changes.
func WithMembershipHook(hook func()) Option {
	return func(r *Registry) { r.onMembershipChange = hook }
}

func withClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func New(store Store, samples SampleStore, validator *Validator, opts ...Option) *Registry {
	r := &Registry{
		store:     store,
		samples:   samples,
		validator: validator,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enroll validates and admits a new student with their face samples.
// A roll-number collision always fails with ErrDuplicateRoll. A same-name
// match within the same class fails with ErrDuplicateName unless the caller
// sets confirmDuplicateName to proceed anyway.
func (r *Registry) Enroll(ctx context.Context, s Student, sampleImages [][]byte, confirmDuplicateName bool) (*Student, error) {
	s, err := r.validator.ValidateStudent(s)
	if err != nil {
		return nil, err
	}

	existing, err := r.store.Get(ctx, s.RollNo)
	if err != nil {
		return nil, fmt.Errorf("checking roll number: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s belongs to %s (%s)", ErrDuplicateRoll, s.RollNo, existing.Name, existing.Class())
	}

	if !confirmDuplicateName {
		if err := r.checkDuplicateName(ctx, s); err != nil {
			return nil, err
		}
	}

	for _, img := range sampleImages {
		if err := r.samples.Save(ctx, s.RollNo, img); err != nil {
			return nil, fmt.Errorf("saving enrollment sample: %w", err)
		}
	}

	s.SampleCount = len(sampleImages)
	s.CreatedAt = r.now()
	if err := r.store.Put(ctx, &s); err != nil {
		return nil, fmt.Errorf("saving student: %w", err)
	}

	r.fireHooks()
	return &s, nil
}

// AddSamples appends enrollment samples to an existing student.
func (r *Registry) AddSamples(ctx context.Context, rollNo string, sampleImages [][]byte) (*Student, error) {
	s, err := r.store.Get(ctx, rollNo)
	if err != nil {
		return nil, fmt.Errorf("loading student: %w", err)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rollNo)
	}

	for _, img := range sampleImages {
		if err := r.samples.Save(ctx, rollNo, img); err != nil {
			return nil, fmt.Errorf("saving enrollment sample: %w", err)
		}
	}
	s.SampleCount += len(sampleImages)
	if err := r.store.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("saving student: %w", err)
	}

	if r.onMutate != nil {
		r.onMutate()
	}
	return s, nil
}

// Get returns the student for a roll number, nil when not enrolled.
func (r *Registry) Get(ctx context.Context, rollNo string) (*Student, error) {
	return r.store.Get(ctx, rollNo)
}

// List returns enrolled students, optionally filtered to one class,
// sorted by roll number.
func (r *Registry) List(ctx context.Context, class *ClassKey) ([]Student, error) {
	students, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing students: %w", err)
	}

	out := students[:0]
	for _, s := range students {
		if class == nil || s.Class() == *class {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RollNo < out[j].RollNo })
	return out, nil
}

// Count returns the number of enrolled students, optionally per class.
func (r *Registry) Count(ctx context.Context, class *ClassKey) (int, error) {
	students, err := r.List(ctx, class)
	if err != nil {
		return 0, err
	}
	return len(students), nil
}

// Remove deletes a student. The identity's samples are orphaned for cleanup
// and any trained model covering the roll becomes stale.
func (r *Registry) Remove(ctx context.Context, rollNo string) (bool, error) {
	removed, err := r.store.Delete(ctx, rollNo)
	if err != nil {
		return false, fmt.Errorf("removing student: %w", err)
	}
	if !removed {
		return false, nil
	}

	if err := r.samples.DeleteByRoll(ctx, rollNo); err != nil {
		// The identity record is gone; orphaned samples are a cleanup
		// concern, not a failed removal.
		return true, fmt.Errorf("removing orphaned samples: %w", err)
	}

	r.fireHooks()
	return true, nil
}

// Samples exposes the underlying sample store for model training.
func (r *Registry) Samples() SampleStore {
	return r.samples
}

// StorePath returns the persisted roster location for snapshotting.
func (r *Registry) StorePath() string {
	return r.store.Path()
}

func (r *Registry) checkDuplicateName(ctx context.Context, s Student) error {
	students, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("checking duplicate name: %w", err)
	}

	normalized := NormalizeName(s.Name)
	for _, other := range students {
		if other.Class() == s.Class() && NormalizeName(other.Name) == normalized {
			return fmt.Errorf("%w: %q is already registered in %s as %s", ErrDuplicateName, s.Name, s.Class(), other.RollNo)
		}
	}
	return nil
}

func (r *Registry) fireHooks() {
	if r.onMutate != nil {
		r.onMutate()
	}
	if r.onMembershipChange != nil {
		r.onMembershipChange()
	}
}
