// Package contrast implements InfoNCE-style contrastive batch scoring.
//
// A batch of 2N embeddings holds two augmented views of N underlying samples:
// indices 0..N-1 are view A, indices N..2N-1 are view B, in matching order.
// Scoring turns each anchor's comparisons into a (2N-1)-way classification
// problem: its one positive (the other view of the same sample) placed first,
// followed by the 2N-2 negatives, so a standard cross-entropy with target
// index 0 recovers the contrastive objective.
package contrast

import (
	"errors"
	"math"
	"sync"
)

var (
	// ErrInvalidBatch indicates an odd-length batch or fewer than two
	// sample pairs. With a single pair there are no negatives, so the
	// softmax objective is undefined.
	ErrInvalidBatch = errors.New("contrast: batch must contain 2N embeddings with N >= 2")

	// ErrInvalidTemperature indicates a non-positive or NaN temperature.
	ErrInvalidTemperature = errors.New("contrast: temperature must be positive")

	// ErrDimensionMismatch indicates embeddings of unequal length.
	ErrDimensionMismatch = errors.New("contrast: embeddings must share one dimension")
)

// Result holds the output of scoring one batch.
type Result struct {
	// Logits has one row per anchor, each of length 2N-1: the positive
	// similarity first, then the negatives in their original batch order,
	// all divided by temperature.
	Logits [][]float32

	// Labels is the constant zero sequence of length 2N; the positive
	// always occupies index 0 of its row.
	Labels []int
}

// layout holds the precomputed column indices for one batch size: for each
// anchor row, its positive partner and the negative columns in batch order.
type layout struct {
	positive  []int
	negatives [][]int
}

func newLayout(size int) *layout {
	n := size / 2
	l := &layout{
		positive:  make([]int, size),
		negatives: make([][]int, size),
	}
	for i := 0; i < size; i++ {
		pos := (i + n) % size
		l.positive[i] = pos
		neg := make([]int, 0, size-2)
		for j := 0; j < size; j++ {
			if j == i || j == pos {
				continue
			}
			neg = append(neg, j)
		}
		l.negatives[i] = neg
	}
	return l
}

// Scorer computes contrastive logits for embedding batches. It caches index
// layouts per batch size, so repeated scoring at a fixed batch size avoids
// rebuilding the mask arithmetic. Safe for concurrent use; each call is
// otherwise self-contained.
type Scorer struct {
	mu      sync.RWMutex
	layouts map[int]*layout
}

// NewScorer creates a Scorer with an empty layout cache.
func NewScorer() *Scorer {
	return &Scorer{layouts: make(map[int]*layout)}
}

func (s *Scorer) layoutFor(size int) *layout {
	s.mu.RLock()
	l, ok := s.layouts[size]
	s.mu.RUnlock()
	if ok {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok = s.layouts[size]; ok {
		return l
	}
	l = newLayout(size)
	s.layouts[size] = l
	return l
}

// Score validates the batch, L2-normalizes every embedding, computes the full
// pairwise similarity matrix, and assembles positive-first logits rows scaled
// by 1/temperature. The input is never modified and no partial result is ever
// returned.
func (s *Scorer) Score(embeddings [][]float32, temperature float64) (*Result, error) {
	if err := validate(embeddings, temperature); err != nil {
		return nil, err
	}

	size := len(embeddings)
	l := s.layoutFor(size)

	normalized := make([][]float32, size)
	for i, v := range embeddings {
		normalized[i] = NormalizeL2(v)
	}

	sim := SimilarityMatrix(normalized)
	invT := 1.0 / temperature

	logits := make([][]float32, size)
	labels := make([]int, size)
	for i := 0; i < size; i++ {
		row := make([]float32, 0, size-1)
		row = append(row, float32(float64(sim[i][l.positive[i]])*invT))
		for _, j := range l.negatives[i] {
			row = append(row, float32(float64(sim[i][j])*invT))
		}
		logits[i] = row
	}

	return &Result{Logits: logits, Labels: labels}, nil
}

// Score is a convenience wrapper around a one-shot Scorer.
func Score(embeddings [][]float32, temperature float64) (*Result, error) {
	return NewScorer().Score(embeddings, temperature)
}

func validate(embeddings [][]float32, temperature float64) error {
	if temperature <= 0 || math.IsNaN(temperature) {
		return ErrInvalidTemperature
	}
	size := len(embeddings)
	if size < 4 || size%2 != 0 {
		return ErrInvalidBatch
	}
	dim := len(embeddings[0])
	for _, v := range embeddings[1:] {
		if len(v) != dim {
			return ErrDimensionMismatch
		}
	}
	return nil
}
