package recognizer

import (
	"context"
	"encoding/gob"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/coder/hnsw"
)

// hnswMaxNeighbors is the M parameter of the HNSW graph.
const hnswMaxNeighbors = 16

// searchK is how many nearest samples are inspected per prediction.
const searchK = 3

// Model is a trained recognition artifact: an HNSW index over every
// enrollment sample embedding, plus the coverage set of roll numbers it was
// trained on. The model is derived and disposable; it can be rebuilt from the
// registry at any time and is never the source of truth. An identity outside
// the coverage set can never be returned by Predict.
type Model struct {
	mu        sync.RWMutex
	graph     *hnsw.Graph[int64]
	rolls     map[int64]string    // HNSW node ID -> roll number
	vecs      map[int64][]float32 // HNSW node ID -> embedding, for persistence
	coverage  map[string]bool
	trainedAt time.Time
	threshold float64
	stale     bool
}

// modelFile is the gob-serialized form of a model. The HNSW graph itself is
// rebuilt from the stored embeddings on load.
type modelFile struct {
	Version    int
	TrainedAt  time.Time
	Rolls      []string
	Embeddings [][]float32
}

const modelFileVersion = 1

// HNSWTrainer builds Models from enrollment samples.
type HNSWTrainer struct {
	// Threshold is the cosine distance ceiling for accepted predictions
	// (lower = stricter).
	Threshold float64

	// OnSample, when set, is called once per embedded sample. Used for
	// progress reporting during training.
	OnSample func(rollNo string)
}

// Train embeds every sample and indexes them. At least one identity with at
// least one decodable sample is required.
func (t *HNSWTrainer) Train(ctx context.Context, samplesByRoll map[string][][]byte) (*Model, error) {
	if len(samplesByRoll) == 0 {
		return nil, fmt.Errorf("%w: no enrolled identities", ErrInsufficientData)
	}

	m := &Model{
		rolls:     make(map[int64]string),
		vecs:      make(map[int64][]float32),
		coverage:  make(map[string]bool),
		trainedAt: time.Now(),
		threshold: t.Threshold,
	}
	m.graph = newGraph()

	rolls := make([]string, 0, len(samplesByRoll))
	for roll := range samplesByRoll {
		rolls = append(rolls, roll)
	}
	sort.Strings(rolls)

	var id int64
	for _, roll := range rolls {
		for _, sample := range samplesByRoll[roll] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			vec, err := EmbedBytes(sample)
			if err != nil {
				// Skip undecodable samples; they are an enrollment-side
				// data problem, not a training failure.
				continue
			}
			m.graph.Add(hnsw.MakeNode(id, vec))
			m.rolls[id] = roll
			m.vecs[id] = vec
			m.coverage[roll] = true
			id++
			if t.OnSample != nil {
				t.OnSample(roll)
			}
		}
	}

	if len(m.rolls) == 0 {
		return nil, fmt.Errorf("%w: no usable samples", ErrInsufficientData)
	}
	return m, nil
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance
	return g
}

// Predict returns the covered identity nearest to the face image.
// Fails with ErrNoMatch when the best distance exceeds the threshold.
func (m *Model) Predict(ctx context.Context, face image.Image) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}

	query := Embed(face)

	m.mu.RLock()
	defer m.mu.RUnlock()

	neighbors := m.graph.Search(query, searchK)
	if len(neighbors) == 0 {
		return Prediction{}, ErrNoMatch
	}

	best := Prediction{Distance: 2.0}
	for _, n := range neighbors {
		dist := CosineDistance(query, n.Value)
		if dist < best.Distance {
			best = Prediction{RollNo: m.rolls[n.Key], Distance: dist}
		}
	}

	// Lower distance = stricter match; accept only at or below the threshold.
	if best.Distance > m.threshold {
		return Prediction{}, fmt.Errorf("%w: best candidate %s at distance %.3f", ErrNoMatch, best.RollNo, best.Distance)
	}
	return best, nil
}

// Covers reports whether the roll number is in the model's coverage set.
func (m *Model) Covers(rollNo string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.coverage[rollNo]
}

// Coverage returns the sorted coverage set.
func (m *Model) Coverage() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.coverage))
	for roll := range m.coverage {
		out = append(out, roll)
	}
	sort.Strings(out)
	return out
}

// TrainedAt returns the training timestamp.
func (m *Model) TrainedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trainedAt
}

// MarkStale flags the model as out of date with registry membership.
// A stale model keeps predicting, but its coverage no longer reflects the
// roster; retraining clears the flag.
func (m *Model) MarkStale() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stale = true
}

// Stale reports whether registry membership changed after training.
func (m *Model) Stale() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stale
}

// Save writes the model artifact to disk.
func (m *Model) Save(path string) error {
	m.mu.RLock()
	file := modelFile{
		Version:   modelFileVersion,
		TrainedAt: m.trainedAt,
	}

	ids := make([]int64, 0, len(m.rolls))
	for id := range m.rolls {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		file.Rolls = append(file.Rolls, m.rolls[id])
		file.Embeddings = append(file.Embeddings, m.vecs[id])
	}
	m.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating trainer directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating model file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(file); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding model: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing model file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing model file: %w", err)
	}
	return nil
}

// LoadModel reads a model artifact and rebuilds its index.
func LoadModel(path string, threshold float64) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model file: %w", err)
	}
	defer f.Close()

	var file modelFile
	if err := gob.NewDecoder(f).Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding model: %w", err)
	}
	if file.Version != modelFileVersion {
		return nil, fmt.Errorf("unsupported model file version %d", file.Version)
	}
	if len(file.Rolls) != len(file.Embeddings) {
		return nil, fmt.Errorf("corrupt model file: %d rolls, %d embeddings", len(file.Rolls), len(file.Embeddings))
	}
	if len(file.Rolls) == 0 {
		return nil, fmt.Errorf("%w: empty model file", ErrInsufficientData)
	}

	m := &Model{
		graph:     newGraph(),
		rolls:     make(map[int64]string, len(file.Rolls)),
		vecs:      make(map[int64][]float32, len(file.Rolls)),
		coverage:  make(map[string]bool),
		trainedAt: file.TrainedAt,
		threshold: threshold,
	}
	for i, roll := range file.Rolls {
		id := int64(i)
		m.graph.Add(hnsw.MakeNode(id, file.Embeddings[i]))
		m.rolls[id] = roll
		m.vecs[id] = file.Embeddings[i]
		m.coverage[roll] = true
	}
	return m, nil
}
