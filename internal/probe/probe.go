// Package probe trains a linear classifier over fixed embeddings to measure
// how linearly separable the classes are. This is the standard linear-probe
// evaluation for representation quality: the embeddings stay frozen and only
// the classifier head is fit.
package probe

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

var (
	// ErrTooFewSamples indicates not enough samples to hold out an
	// evaluation split.
	ErrTooFewSamples = errors.New("probe: too few samples for train/eval split")

	// ErrSingleClass indicates fewer than two distinct labels.
	ErrSingleClass = errors.New("probe: at least two classes required")

	// ErrDimensionMismatch indicates embeddings of unequal length.
	ErrDimensionMismatch = errors.New("probe: embeddings must share one dimension")

	// ErrLabelMismatch indicates embeddings and labels of different lengths.
	ErrLabelMismatch = errors.New("probe: embeddings and labels must align")
)

// Config controls probe training. Zero values are invalid; callers fill in
// defaults from configuration.
type Config struct {
	Epochs    int
	BatchSize int
	LearnRate float64
	L2Penalty float64
	EvalSplit float64
	Seed      int64
}

// Report summarizes one probe run.
type Report struct {
	Accuracy   float64
	TrainLoss  float64
	Samples    int
	Classes    int
	Dimensions int
	Epochs     int
}

// classifier is a multinomial logistic regression head.
type classifier struct {
	weights [][]float64 // [class][feature]
	bias    []float64
	classes int
	dim     int
}

func newClassifier(classes, dim int) *classifier {
	weights := make([][]float64, classes)
	for c := range weights {
		weights[c] = make([]float64, dim)
	}
	return &classifier{
		weights: weights,
		bias:    make([]float64, classes),
		classes: classes,
		dim:     dim,
	}
}

// logits computes the raw class scores for one embedding.
func (m *classifier) logits(x []float32) []float64 {
	z := make([]float64, m.classes)
	for c := 0; c < m.classes; c++ {
		sum := m.bias[c]
		w := m.weights[c]
		for j, v := range x {
			sum += w[j] * float64(v)
		}
		z[c] = sum
	}
	return z
}

// softmax converts logits to probabilities in place, using the max-shift
// trick for stability, and returns the log-sum-exp for loss computation.
func softmax(z []float64) float64 {
	maxZ := z[0]
	for _, v := range z[1:] {
		if v > maxZ {
			maxZ = v
		}
	}

	sumExp := 0.0
	for i, v := range z {
		e := math.Exp(v - maxZ)
		z[i] = e
		sumExp += e
	}
	for i := range z {
		z[i] /= sumExp
	}
	return maxZ + math.Log(sumExp)
}

// predict returns the argmax class for one embedding.
func (m *classifier) predict(x []float32) int {
	z := m.logits(x)
	best := 0
	for c := 1; c < m.classes; c++ {
		if z[c] > z[best] {
			best = c
		}
	}
	return best
}

// Run trains a linear probe on a shuffled train split and reports accuracy
// on the held-out eval split. Deterministic for a fixed Config.Seed.
func Run(embeddings [][]float32, labels []string, cfg Config) (*Report, error) {
	if len(embeddings) != len(labels) {
		return nil, ErrLabelMismatch
	}
	if len(embeddings) == 0 {
		return nil, ErrTooFewSamples
	}

	dim := len(embeddings[0])
	for _, v := range embeddings[1:] {
		if len(v) != dim {
			return nil, ErrDimensionMismatch
		}
	}

	classIndex := indexClasses(labels)
	if len(classIndex) < 2 {
		return nil, ErrSingleClass
	}

	targets := make([]int, len(labels))
	for i, label := range labels {
		targets[i] = classIndex[label]
	}

	// Shuffle once, then carve off the eval split from the tail.
	rng := rand.New(rand.NewSource(cfg.Seed))
	order := rng.Perm(len(embeddings))

	evalCount := int(float64(len(embeddings)) * cfg.EvalSplit)
	if evalCount < 1 || len(embeddings)-evalCount < len(classIndex) {
		return nil, ErrTooFewSamples
	}
	trainIdx := order[:len(order)-evalCount]
	evalIdx := order[len(order)-evalCount:]

	model := newClassifier(len(classIndex), dim)
	lastLoss := 0.0

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		rng.Shuffle(len(trainIdx), func(i, j int) {
			trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i]
		})

		epochLoss := 0.0
		for start := 0; start < len(trainIdx); start += cfg.BatchSize {
			end := start + cfg.BatchSize
			if end > len(trainIdx) {
				end = len(trainIdx)
			}
			epochLoss += model.step(embeddings, targets, trainIdx[start:end], cfg)
		}
		lastLoss = epochLoss / float64(len(trainIdx))
	}

	correct := 0
	for _, i := range evalIdx {
		if model.predict(embeddings[i]) == targets[i] {
			correct++
		}
	}

	return &Report{
		Accuracy:   float64(correct) / float64(len(evalIdx)),
		TrainLoss:  lastLoss,
		Samples:    len(embeddings),
		Classes:    len(classIndex),
		Dimensions: dim,
		Epochs:     cfg.Epochs,
	}, nil
}

// step performs one minibatch gradient update and returns the summed loss.
func (m *classifier) step(embeddings [][]float32, targets []int, batch []int, cfg Config) float64 {
	gradW := make([][]float64, m.classes)
	for c := range gradW {
		gradW[c] = make([]float64, m.dim)
	}
	gradB := make([]float64, m.classes)

	loss := 0.0
	for _, i := range batch {
		z := m.logits(embeddings[i])
		target := targets[i]
		targetLogit := z[target]
		logSumExp := softmax(z)
		loss += logSumExp - targetLogit

		// z now holds probabilities; gradient of CE is (p - onehot).
		for c := 0; c < m.classes; c++ {
			p := z[c]
			if c == target {
				p -= 1
			}
			gradB[c] += p
			gw := gradW[c]
			for j, v := range embeddings[i] {
				gw[j] += p * float64(v)
			}
		}
	}

	scale := cfg.LearnRate / float64(len(batch))
	for c := 0; c < m.classes; c++ {
		w := m.weights[c]
		for j := range w {
			w[j] -= scale*gradW[c][j] + cfg.LearnRate*cfg.L2Penalty*w[j]
		}
		m.bias[c] -= scale * gradB[c]
	}

	return loss
}

// indexClasses maps each distinct label to a stable class index.
func indexClasses(labels []string) map[string]int {
	distinct := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		distinct[label] = struct{}{}
	}

	names := make([]string, 0, len(distinct))
	for name := range distinct {
		names = append(names, name)
	}
	sort.Strings(names)

	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}
	return index
}
