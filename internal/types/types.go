package types

import (
	"encoding/json"
	"time"
)

// RunKind classifies a recorded run.
type RunKind string

const (
	RunKindScore RunKind = "score"
	RunKindProbe RunKind = "probe"
)

// ScoreRequest is the input for a contrastive scoring call. Embeddings hold
// 2N vectors in the paired-view layout: view A of sample k at index k, view B
// at index k+N.
type ScoreRequest struct {
	Embeddings  [][]float32 `json:"embeddings"`
	Temperature float64     `json:"temperature"`
}

// ScoreResult is the output of a contrastive scoring call.
type ScoreResult struct {
	Logits     [][]float32 `json:"logits"`
	Labels     []int       `json:"labels"`
	Loss       float64     `json:"loss"`
	BatchSize  int         `json:"batch_size"`
	Dimensions int         `json:"dimensions"`
	RunID      string      `json:"run_id,omitempty"`
}

// SampleInput is one labeled sample to ingest. Either Embedding is supplied
// directly or Text is embedded server-side.
type SampleInput struct {
	Label     string    `json:"label"`
	Text      string    `json:"text,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// IngestSamplesRequest is a request to add labeled samples.
type IngestSamplesRequest struct {
	Samples []SampleInput `json:"samples"`
}

// IngestSamplesResult reports the outcome of a sample ingest.
type IngestSamplesResult struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors"`
}

// Sample is a stored labeled embedding.
type Sample struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Dimensions int       `json:"dimensions"`
	Embedding  []float32 `json:"embedding,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProbeRequest configures a linear-probe evaluation over stored samples.
// Zero values fall back to configured defaults.
type ProbeRequest struct {
	Epochs    int     `json:"epochs,omitempty"`
	BatchSize int     `json:"batch_size,omitempty"`
	LearnRate float64 `json:"learn_rate,omitempty"`
	Seed      int64   `json:"seed,omitempty"`
}

// ProbeResult reports a linear-probe evaluation.
type ProbeResult struct {
	Accuracy   float64 `json:"accuracy"`
	TrainLoss  float64 `json:"train_loss"`
	Samples    int     `json:"samples"`
	Classes    int     `json:"classes"`
	Dimensions int     `json:"dimensions"`
	Epochs     int     `json:"epochs"`
	RunID      string  `json:"run_id,omitempty"`
}

// RunRecord is a persisted score or probe run.
type RunRecord struct {
	ID          string    `json:"id"`
	Kind        RunKind   `json:"kind"`
	BatchSize   int       `json:"batch_size"`
	Dimensions  int       `json:"dimensions"`
	Temperature float64   `json:"temperature,omitempty"`
	Loss        float64   `json:"loss"`
	Accuracy    float64   `json:"accuracy,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RunsResult wraps a page of run records.
type RunsResult struct {
	Runs []RunRecord `json:"runs"`
}

// StoreStats holds aggregate store statistics.
type StoreStats struct {
	SampleCount int64 `json:"sample_count"`
	RunCount    int64 `json:"run_count"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	EmbeddingModel string `json:"embedding_model"`
	SampleCount    int64  `json:"sample_count"`
	RunCount       int64  `json:"run_count"`
}

// MarshalJSON ensures nil slices in ScoreResult marshal as [] not null.
func (r ScoreResult) MarshalJSON() ([]byte, error) {
	if r.Logits == nil {
		r.Logits = [][]float32{}
	}
	if r.Labels == nil {
		r.Labels = []int{}
	}
	type Alias ScoreResult
	return json.Marshal(Alias(r))
}

// MarshalJSON ensures nil slices in IngestSamplesResult marshal as [] not null.
func (r IngestSamplesResult) MarshalJSON() ([]byte, error) {
	if r.Errors == nil {
		r.Errors = []string{}
	}
	type Alias IngestSamplesResult
	return json.Marshal(Alias(r))
}

// MarshalJSON ensures nil slices in RunsResult marshal as [] not null.
func (r RunsResult) MarshalJSON() ([]byte, error) {
	if r.Runs == nil {
		r.Runs = []RunRecord{}
	}
	type Alias RunsResult
	return json.Marshal(Alias(r))
}
