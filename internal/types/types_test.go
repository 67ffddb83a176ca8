package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestScoreResult_MarshalNilSlices(t *testing.T) {
	data, err := json.Marshal(ScoreResult{})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	s := string(data)
	if !strings.Contains(s, `"logits":[]`) {
		t.Errorf("nil logits should marshal as [], got %s", s)
	}
	if !strings.Contains(s, `"labels":[]`) {
		t.Errorf("nil labels should marshal as [], got %s", s)
	}
}

func TestIngestSamplesResult_MarshalNilErrors(t *testing.T) {
	data, err := json.Marshal(IngestSamplesResult{Accepted: 3})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	if !strings.Contains(string(data), `"errors":[]`) {
		t.Errorf("nil errors should marshal as [], got %s", data)
	}
}

func TestRunsResult_MarshalNilRuns(t *testing.T) {
	data, err := json.Marshal(RunsResult{})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	if !strings.Contains(string(data), `"runs":[]`) {
		t.Errorf("nil runs should marshal as [], got %s", data)
	}
}

func TestScoreRequest_RoundTrip(t *testing.T) {
	req := ScoreRequest{
		Embeddings:  [][]float32{{1, 0}, {0, 1}, {1, 0}, {0, 1}},
		Temperature: 0.1,
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded ScoreRequest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.Temperature != req.Temperature {
		t.Errorf("temperature mismatch: %f", decoded.Temperature)
	}
	if len(decoded.Embeddings) != 4 {
		t.Errorf("expected 4 embeddings, got %d", len(decoded.Embeddings))
	}
}
