// Package registry maintains the authoritative roster of enrolled students.
// It owns student identities and their enrollment samples for their full
// lifetime; everything else in the system derives from it.
package registry

import (
	"context"
	"errors"
	"time"
)

// ClassKey identifies one class grouping (branch + section).
type ClassKey struct {
	Branch  string `json:"branch"`
	Section string `json:"section"`
}

func (k ClassKey) String() string {
	return k.Branch + "-" + k.Section
}

// Student is an enrolled identity, keyed by roll number.
type Student struct {
	RollNo      string    `json:"roll_no"`
	Name        string    `json:"name"`
	Branch      string    `json:"branch"`
	Section     string    `json:"section"`
	SampleCount int       `json:"sample_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Class returns the student's class grouping.
func (s *Student) Class() ClassKey {
	return ClassKey{Branch: s.Branch, Section: s.Section}
}

// Validation errors. ErrDuplicateRoll is a hard rejection; ErrDuplicateName
// is soft and can be overridden by the caller's explicit confirmation.
var (
	ErrDuplicateRoll = errors.New("roll number already enrolled")
	ErrDuplicateName = errors.New("name already enrolled in this class")
	ErrInvalidFormat = errors.New("invalid student data")
	ErrNotFound      = errors.New("student not found")
)

// Store persists student records, one per roll number.
type Store interface {
	// Get returns the student for a roll number, nil if not enrolled.
	Get(ctx context.Context, rollNo string) (*Student, error)
	// Put inserts or replaces a student record.
	Put(ctx context.Context, s *Student) error
	// Delete removes a student record, reporting whether it existed.
	Delete(ctx context.Context, rollNo string) (bool, error)
	// List returns all student records.
	List(ctx context.Context) ([]Student, error)
	// Path returns the location of the persisted store for snapshotting,
	// empty for purely in-memory implementations.
	Path() string
}

// SampleStore persists enrollment face samples. Samples hold a weak
// back-reference to their roll number; deleting an identity orphans them.
type SampleStore interface {
	// Save stores one face sample for a roll number.
	Save(ctx context.Context, rollNo string, image []byte) error
	// ListByRoll returns all samples for a roll number.
	ListByRoll(ctx context.Context, rollNo string) ([][]byte, error)
	// All returns every stored sample grouped by roll number.
	All(ctx context.Context) (map[string][][]byte, error)
	// DeleteByRoll removes all samples for a roll number.
	DeleteByRoll(ctx context.Context, rollNo string) error
}
