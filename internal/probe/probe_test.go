package probe

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func defaultConfig() Config {
	return Config{
		Epochs:    50,
		BatchSize: 16,
		LearnRate: 0.1,
		L2Penalty: 1e-4,
		EvalSplit: 0.2,
		Seed:      42,
	}
}

// separableData builds two well-separated gaussian clusters.
func separableData(n, dim int, seed int64) ([][]float32, []string) {
	rng := rand.New(rand.NewSource(seed))
	embeddings := make([][]float32, 0, 2*n)
	labels := make([]string, 0, 2*n)
	for i := 0; i < n; i++ {
		a := make([]float32, dim)
		b := make([]float32, dim)
		for j := 0; j < dim; j++ {
			a[j] = float32(rng.NormFloat64()*0.3 + 2.0)
			b[j] = float32(rng.NormFloat64()*0.3 - 2.0)
		}
		embeddings = append(embeddings, a, b)
		labels = append(labels, "positive", "negative")
	}
	return embeddings, labels
}

func TestRun_SeparableClusters(t *testing.T) {
	embeddings, labels := separableData(50, 8, 1)

	report, err := Run(embeddings, labels, defaultConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Accuracy < 0.95 {
		t.Errorf("accuracy = %.3f, want >= 0.95 on separable data", report.Accuracy)
	}
	if report.Classes != 2 {
		t.Errorf("classes = %d, want 2", report.Classes)
	}
	if report.Dimensions != 8 {
		t.Errorf("dimensions = %d, want 8", report.Dimensions)
	}
	if report.Samples != 100 {
		t.Errorf("samples = %d, want 100", report.Samples)
	}
	if math.IsNaN(report.TrainLoss) || math.IsInf(report.TrainLoss, 0) {
		t.Errorf("train loss = %v, want finite", report.TrainLoss)
	}
}

func TestRun_LossDecreases(t *testing.T) {
	embeddings, labels := separableData(50, 8, 2)

	short := defaultConfig()
	short.Epochs = 1
	long := defaultConfig()
	long.Epochs = 50

	first, err := Run(embeddings, labels, short)
	if err != nil {
		t.Fatalf("Run(1 epoch) error = %v", err)
	}
	last, err := Run(embeddings, labels, long)
	if err != nil {
		t.Fatalf("Run(50 epochs) error = %v", err)
	}

	if last.TrainLoss >= first.TrainLoss {
		t.Errorf("loss after 50 epochs = %.4f, want < loss after 1 epoch = %.4f",
			last.TrainLoss, first.TrainLoss)
	}
}

func TestRun_Deterministic(t *testing.T) {
	embeddings, labels := separableData(30, 4, 3)
	cfg := defaultConfig()

	a, err := Run(embeddings, labels, cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	b, err := Run(embeddings, labels, cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if a.Accuracy != b.Accuracy || a.TrainLoss != b.TrainLoss {
		t.Errorf("same seed produced different results: %+v vs %+v", a, b)
	}
}

func TestRun_MultiClass(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	var embeddings [][]float32
	var labels []string
	names := []string{"alpha", "beta", "gamma"}
	for class := 0; class < 3; class++ {
		for i := 0; i < 40; i++ {
			v := make([]float32, 6)
			for j := range v {
				v[j] = float32(rng.NormFloat64() * 0.2)
			}
			v[class*2] += 3.0
			embeddings = append(embeddings, v)
			labels = append(labels, names[class])
		}
	}

	report, err := Run(embeddings, labels, defaultConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Classes != 3 {
		t.Errorf("classes = %d, want 3", report.Classes)
	}
	if report.Accuracy < 0.9 {
		t.Errorf("accuracy = %.3f, want >= 0.9 on separable 3-class data", report.Accuracy)
	}
}

func TestRun_InvalidInputs(t *testing.T) {
	embeddings, labels := separableData(10, 4, 5)

	tests := []struct {
		name       string
		embeddings [][]float32
		labels     []string
		cfg        Config
		wantErr    error
	}{
		{
			name:       "empty input",
			embeddings: nil,
			labels:     nil,
			cfg:        defaultConfig(),
			wantErr:    ErrTooFewSamples,
		},
		{
			name:       "misaligned labels",
			embeddings: embeddings,
			labels:     labels[:len(labels)-1],
			cfg:        defaultConfig(),
			wantErr:    ErrLabelMismatch,
		},
		{
			name:       "single class",
			embeddings: embeddings[:4],
			labels:     []string{"same", "same", "same", "same"},
			cfg:        defaultConfig(),
			wantErr:    ErrSingleClass,
		},
		{
			name: "ragged embeddings",
			embeddings: [][]float32{
				{1, 2, 3}, {4, 5}, {6, 7, 8}, {9, 10, 11},
			},
			labels:  []string{"a", "b", "a", "b"},
			cfg:     defaultConfig(),
			wantErr: ErrDimensionMismatch,
		},
		{
			name:       "eval split leaves no training data",
			embeddings: embeddings[:4],
			labels:     labels[:4],
			cfg: Config{
				Epochs: 1, BatchSize: 2, LearnRate: 0.1,
				EvalSplit: 0.9, Seed: 1,
			},
			wantErr: ErrTooFewSamples,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.embeddings, tt.labels, tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Run() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
