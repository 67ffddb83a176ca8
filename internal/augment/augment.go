// Package augment produces stochastic views of embedding vectors for
// contrastive batches. Two independently perturbed views of the same vector
// form a positive pair; views of different vectors are negatives.
package augment

import (
	"errors"
	"math/rand"
)

var (
	// ErrInvalidRate indicates a dropout rate outside [0, 1).
	ErrInvalidRate = errors.New("augment: dropout rate must be in [0, 1)")

	// ErrNegativeScale indicates a negative noise or jitter scale.
	ErrNegativeScale = errors.New("augment: scales must be non-negative")
)

// Augmenter applies gaussian noise, feature dropout, and scale jitter to
// vectors. Randomness comes from the caller-supplied source; there is no
// process-wide seeding, so two Augmenters with equal seeds produce equal
// view streams.
type Augmenter struct {
	noiseStd    float64
	dropoutRate float64
	scaleJitter float64
	rng         *rand.Rand
}

// New creates an Augmenter. noiseStd is the standard deviation of additive
// gaussian noise, dropoutRate the probability of zeroing each feature, and
// scaleJitter the half-width of the multiplicative scale range
// [1-jitter, 1+jitter].
func New(noiseStd, dropoutRate, scaleJitter float64, rng *rand.Rand) (*Augmenter, error) {
	if dropoutRate < 0 || dropoutRate >= 1 {
		return nil, ErrInvalidRate
	}
	if noiseStd < 0 || scaleJitter < 0 {
		return nil, ErrNegativeScale
	}
	return &Augmenter{
		noiseStd:    noiseStd,
		dropoutRate: dropoutRate,
		scaleJitter: scaleJitter,
		rng:         rng,
	}, nil
}

// View returns one perturbed copy of v. The input is never modified.
func (a *Augmenter) View(v []float32) []float32 {
	out := make([]float32, len(v))

	scale := 1.0
	if a.scaleJitter > 0 {
		scale = 1 + (a.rng.Float64()*2-1)*a.scaleJitter
	}

	for i, x := range v {
		if a.dropoutRate > 0 && a.rng.Float64() < a.dropoutRate {
			continue
		}
		val := float64(x) * scale
		if a.noiseStd > 0 {
			val += a.rng.NormFloat64() * a.noiseStd
		}
		out[i] = float32(val)
	}
	return out
}

// Views returns two independent perturbed copies of every input vector, as
// index-aligned streams suitable for contrast.PairBatch.
func (a *Augmenter) Views(vectors [][]float32) (viewA, viewB [][]float32) {
	viewA = make([][]float32, len(vectors))
	viewB = make([][]float32, len(vectors))
	for i, v := range vectors {
		viewA[i] = a.View(v)
		viewB[i] = a.View(v)
	}
	return viewA, viewB
}
