package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/classmark/classmark/internal/registry"
)

// StudentRepository is the PostgreSQL-backed student store.
type StudentRepository struct {
	pool *Pool
}

func NewStudentRepository(pool *Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// Path returns empty: snapshots of the database are the operator's concern,
// not the file backup manager's.
func (r *StudentRepository) Path() string {
	return ""
}

// Get retrieves a student by roll number, nil when not enrolled.
func (r *StudentRepository) Get(ctx context.Context, rollNo string) (*registry.Student, error) {
	query := `
		SELECT roll_no, name, branch, section, sample_count, created_at
		FROM students
		WHERE roll_no = $1
	`

	var s registry.Student
	err := r.pool.QueryRow(ctx, query, rollNo).Scan(
		&s.RollNo,
		&s.Name,
		&s.Branch,
		&s.Section,
		&s.SampleCount,
		&s.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query student: %w", err)
	}
	return &s, nil
}

// Put stores a student record (upsert).
func (r *StudentRepository) Put(ctx context.Context, s *registry.Student) error {
	query := `
		INSERT INTO students (roll_no, name, branch, section, sample_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (roll_no) DO UPDATE SET
			name = EXCLUDED.name,
			branch = EXCLUDED.branch,
			section = EXCLUDED.section,
			sample_count = EXCLUDED.sample_count
	`

	_, err := r.pool.Exec(ctx, query, s.RollNo, s.Name, s.Branch, s.Section, s.SampleCount, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("save student: %w", err)
	}
	return nil
}

// Delete removes a student, reporting whether a record existed.
func (r *StudentRepository) Delete(ctx context.Context, rollNo string) (bool, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM students WHERE roll_no = $1", rollNo)
	if err != nil {
		return false, fmt.Errorf("delete student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete student result: %w", err)
	}
	return affected > 0, nil
}

// List returns all enrolled students.
func (r *StudentRepository) List(ctx context.Context) ([]registry.Student, error) {
	query := `
		SELECT roll_no, name, branch, section, sample_count, created_at
		FROM students
		ORDER BY roll_no
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var students []registry.Student
	for rows.Next() {
		var s registry.Student
		if err := rows.Scan(&s.RollNo, &s.Name, &s.Branch, &s.Section, &s.SampleCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

// Verify interface compliance.
var _ registry.Store = (*StudentRepository)(nil)
