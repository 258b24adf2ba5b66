package postgres

import (
	"context"
	"fmt"

	"github.com/classmark/classmark/internal/registry"
)

// SampleRepository stores enrollment sample images in PostgreSQL.
type SampleRepository struct {
	pool *Pool
}

func NewSampleRepository(pool *Pool) *SampleRepository {
	return &SampleRepository{pool: pool}
}

// Save appends one sample image for a roll number. Sequence numbers are
// assigned inside a transaction so concurrent saves never collide.
func (r *SampleRepository) Save(ctx context.Context, rollNo string, image []byte) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM enrollment_samples WHERE roll_no = $1 FOR UPDATE",
		rollNo,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("next sample sequence: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO enrollment_samples (roll_no, seq, image) VALUES ($1, $2, $3)",
		rollNo, next, image,
	)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sample: %w", err)
	}
	return nil
}

// ListByRoll returns a roll number's samples in enrollment order.
func (r *SampleRepository) ListByRoll(ctx context.Context, rollNo string) ([][]byte, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT image FROM enrollment_samples WHERE roll_no = $1 ORDER BY seq",
		rollNo,
	)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var images [][]byte
	for rows.Next() {
		var img []byte
		if err := rows.Scan(&img); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return images, nil
}

// All returns every sample grouped by roll number, for model training.
func (r *SampleRepository) All(ctx context.Context) (map[string][][]byte, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT roll_no, image FROM enrollment_samples ORDER BY roll_no, seq",
	)
	if err != nil {
		return nil, fmt.Errorf("query all samples: %w", err)
	}
	defer rows.Close()

	out := make(map[string][][]byte)
	for rows.Next() {
		var roll string
		var img []byte
		if err := rows.Scan(&roll, &img); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out[roll] = append(out[roll], img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return out, nil
}

// DeleteByRoll removes all samples and embeddings for a roll number.
func (r *SampleRepository) DeleteByRoll(ctx context.Context, rollNo string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM enrollment_samples WHERE roll_no = $1", rollNo); err != nil {
		return fmt.Errorf("delete samples: %w", err)
	}
	if _, err := r.pool.Exec(ctx, "DELETE FROM sample_embeddings WHERE roll_no = $1", rollNo); err != nil {
		return fmt.Errorf("delete sample embeddings: %w", err)
	}
	return nil
}

// Verify interface compliance.
var _ registry.SampleStore = (*SampleRepository)(nil)
