package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"

	"github.com/pgvector/pgvector-go"

	"github.com/classmark/classmark/internal/recognizer"
)

// Matcher is a pgvector-backed predictor. Sample embeddings live in the
// database and similarity search runs on its HNSW index, so recognition
// works without loading a trained model file. It satisfies the same
// predictor contract as the in-process model: cosine distance, lower is
// stricter, accepted at or below the threshold.
type Matcher struct {
	pool      *Pool
	threshold float64
}

func NewMatcher(pool *Pool, threshold float64) *Matcher {
	return &Matcher{pool: pool, threshold: threshold}
}

// IndexSamples computes and stores embeddings for every enrollment sample,
// replacing previous rows. The database HNSW index picks them up directly.
func (m *Matcher) IndexSamples(ctx context.Context, samplesByRoll map[string][][]byte) (int, error) {
	tx, err := m.pool.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sample_embeddings"); err != nil {
		return 0, fmt.Errorf("clear sample embeddings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sample_embeddings (roll_no, seq, embedding)
		VALUES ($1, $2, $3::vector)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare embedding insert: %w", err)
	}
	defer stmt.Close()

	var indexed int
	for roll, samples := range samplesByRoll {
		for seq, data := range samples {
			vec, err := recognizer.EmbedBytes(data)
			if err != nil {
				// Undecodable samples are skipped, matching the trainer.
				continue
			}
			if _, err := stmt.ExecContext(ctx, roll, seq+1, pgvector.NewVector(vec)); err != nil {
				return 0, fmt.Errorf("insert embedding %s/%d: %w", roll, seq+1, err)
			}
			indexed++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit embeddings: %w", err)
	}
	return indexed, nil
}

// Predict embeds the face and asks the database for the nearest sample.
func (m *Matcher) Predict(ctx context.Context, face image.Image) (recognizer.Prediction, error) {
	vec := recognizer.Embed(face)

	query := `
		SELECT roll_no, embedding <=> $1::vector AS distance
		FROM sample_embeddings
		ORDER BY distance
		LIMIT 1
	`

	var p recognizer.Prediction
	err := m.pool.QueryRow(ctx, query, pgvector.NewVector(vec)).Scan(&p.RollNo, &p.Distance)
	if errors.Is(err, sql.ErrNoRows) {
		return recognizer.Prediction{}, recognizer.ErrInsufficientData
	}
	if err != nil {
		return recognizer.Prediction{}, fmt.Errorf("query nearest embedding: %w", err)
	}

	if p.Distance > m.threshold {
		return recognizer.Prediction{}, fmt.Errorf("%w: best candidate %s at distance %.4f", recognizer.ErrNoMatch, p.RollNo, p.Distance)
	}
	return p, nil
}

// Covers reports whether the index holds embeddings for a roll number.
func (m *Matcher) Covers(rollNo string) bool {
	var exists bool
	err := m.pool.QueryRow(context.Background(),
		"SELECT EXISTS(SELECT 1 FROM sample_embeddings WHERE roll_no = $1)",
		rollNo,
	).Scan(&exists)
	return err == nil && exists
}

// Count returns the number of indexed sample embeddings.
func (m *Matcher) Count(ctx context.Context) (int, error) {
	var count int
	if err := m.pool.QueryRow(ctx, "SELECT COUNT(*) FROM sample_embeddings").Scan(&count); err != nil {
		return 0, fmt.Errorf("count sample embeddings: %w", err)
	}
	return count, nil
}

// Verify interface compliance.
var _ recognizer.Predictor = (*Matcher)(nil)
