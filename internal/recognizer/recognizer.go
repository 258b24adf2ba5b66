// Package recognizer provides the face recognition capability: training a
// model from enrollment samples and predicting identities for face images.
// The scoring convention is distance-style: lower values mean stricter,
// better matches, and a prediction is accepted when its distance is at or
// below the configured threshold.
package recognizer

import (
	"context"
	"errors"
	"image"
)

// Recognition errors. These are expected outcomes of normal operation,
// not failures of the pipeline.
var (
	ErrNoFaceDetected   = errors.New("no face detected")
	ErrNoMatch          = errors.New("no match above threshold")
	ErrInsufficientData = errors.New("insufficient training data")
)

// Prediction is a candidate identity with its distance score.
// Distance is a cosine distance in [0, 2]; lower is a stronger match.
type Prediction struct {
	RollNo   string
	Distance float64
}

// Predictor maps a face image to a candidate identity. Implemented by Model;
// the live loop depends only on this interface so the matching algorithm can
// be swapped without touching the integrity gate or ledger.
type Predictor interface {
	Predict(ctx context.Context, face image.Image) (Prediction, error)
	Covers(rollNo string) bool
}

// Trainer builds a model from enrollment samples grouped by roll number.
type Trainer interface {
	Train(ctx context.Context, samplesByRoll map[string][][]byte) (*Model, error)
}
