package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dan-xie-2022/selfsupervised/internal/store"
	"github.com/dan-xie-2022/selfsupervised/internal/types"
)

// executeCmd executes a subcommand with captured output and optional stdin.
// Package-level flag variables are reset first so stale values from earlier
// tests do not leak through cobra's persistent parse state.
func executeCmd(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	scoreTemperature = 0
	scoreJSONOutput = false
	scoreAugment = false
	scoreNoiseStd = 0.05
	scoreDropout = 0.1
	scoreScaleJitter = 0.1
	scoreSeed = 0
	probeDBPath = ""
	probeEpochs = 50
	probeBatchSize = 32
	probeLearnRate = 0.1
	probeL2Penalty = 1e-4
	probeEvalSplit = 0.2
	probeSeed = 0
	probeJSONOutput = false
	runsDBPath = ""
	runsLimit = 20
	runsJSONOutput = false
	embedModel = "text-embedding-3-small"
	embedDimensions = 0
	embedLabel = ""
	embedDBPath = ""
	embedJSONOutput = false

	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	rootCmd.SetOut(outBuf)
	rootCmd.SetErr(errBuf)
	rootCmd.SetArgs(args)
	if stdin != "" {
		rootCmd.SetIn(strings.NewReader(stdin))
	}

	err = rootCmd.Execute()

	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)
	rootCmd.SetArgs(nil)
	rootCmd.SetIn(nil)

	return outBuf.String(), errBuf.String(), err
}

// seedStore creates a SQLite store with two separable labeled clusters.
func seedStore(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "selfsup.db")
	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer db.Close()

	var samples []types.Sample
	for i := 0; i < 20; i++ {
		samples = append(samples,
			types.Sample{Label: "positive", Embedding: []float32{2, 2, float32(i) * 0.01, 0}},
			types.Sample{Label: "negative", Embedding: []float32{-2, -2, 0, float32(i) * 0.01}},
		)
	}
	if _, err := db.AddSamples(context.Background(), samples); err != nil {
		t.Fatalf("failed to seed samples: %v", err)
	}
	return dbPath
}

// --- score command ---

func TestScoreCmd_JSONOutput(t *testing.T) {
	input := `{"embeddings":[[1,0],[0,1],[1,0],[0,1]],"temperature":1.0}`

	stdout, stderr, err := executeCmd(t, input, "score", "--json")
	if err != nil {
		t.Fatalf("score failed: %v (stderr: %s)", err, stderr)
	}

	var result types.ScoreResult
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}

	if result.BatchSize != 4 {
		t.Errorf("batch_size = %d, want 4", result.BatchSize)
	}
	if len(result.Logits) != 4 || len(result.Logits[0]) != 3 {
		t.Errorf("logits shape = %dx%d, want 4x3", len(result.Logits), len(result.Logits[0]))
	}
	for i, label := range result.Labels {
		if label != 0 {
			t.Errorf("labels[%d] = %d, want 0", i, label)
		}
	}
}

func TestScoreCmd_TableOutput(t *testing.T) {
	input := `{"embeddings":[[1,0],[0,1],[1,0],[0,1]],"temperature":0.5}`

	stdout, _, err := executeCmd(t, input, "score")
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}

	if !strings.Contains(stdout, "LOSS") {
		t.Errorf("output missing header, got: %s", stdout)
	}
}

func TestScoreCmd_TemperatureFlagOverride(t *testing.T) {
	input := `{"embeddings":[[1,0],[0,1],[1,0],[0,1]],"temperature":1.0}`

	stdout, _, err := executeCmd(t, input, "score", "--temperature", "0.25")
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if !strings.Contains(stdout, "0.25") {
		t.Errorf("output should report flag temperature, got: %s", stdout)
	}
}

func TestScoreCmd_InvalidBatch(t *testing.T) {
	input := `{"embeddings":[[1,0],[0,1],[1,0]],"temperature":1.0}`

	_, _, err := executeCmd(t, input, "score")
	if err == nil {
		t.Error("expected error for odd batch, got nil")
	}
}

func TestScoreCmd_AugmentMode(t *testing.T) {
	// Two raw embeddings; --augment expands them into a paired 4-batch.
	input := `{"embeddings":[[1,0,0,0],[0,1,0,0]],"temperature":0.5}`

	stdout, stderr, err := executeCmd(t, input, "score", "--augment", "--seed", "3", "--json")
	if err != nil {
		t.Fatalf("score --augment failed: %v (stderr: %s)", err, stderr)
	}

	var result types.ScoreResult
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if result.BatchSize != 4 {
		t.Errorf("batch_size = %d, want 4 (two views per input)", result.BatchSize)
	}
	if len(result.Logits) != 4 || len(result.Logits[0]) != 3 {
		t.Errorf("logits shape = %dx%d, want 4x3", len(result.Logits), len(result.Logits[0]))
	}
}

func TestScoreCmd_MissingFile(t *testing.T) {
	_, _, err := executeCmd(t, "", "score", "/nonexistent/batch.json")
	if err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

// --- probe command ---

func TestProbeCmd_TrainsAndRecords(t *testing.T) {
	dbPath := seedStore(t)

	stdout, stderr, err := executeCmd(t, "", "probe", "--db", dbPath, "--seed", "1", "--json")
	if err != nil {
		t.Fatalf("probe failed: %v (stderr: %s)", err, stderr)
	}

	var result types.ProbeResult
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}

	if result.Classes != 2 {
		t.Errorf("classes = %d, want 2", result.Classes)
	}
	if result.Accuracy < 0.9 {
		t.Errorf("accuracy = %.3f, want >= 0.9 on separable clusters", result.Accuracy)
	}
	if result.RunID == "" {
		t.Error("run_id is empty, want recorded run")
	}

	// The run must be visible in the run history afterwards.
	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Kind != types.RunKindProbe {
		t.Errorf("runs = %+v, want one probe run", runs)
	}
}

func TestProbeCmd_EmptyStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	db.Close()

	_, _, err = executeCmd(t, "", "probe", "--db", dbPath)
	if err == nil {
		t.Error("expected error for empty store, got nil")
	}
}

// --- runs command ---

func TestRunsCmd_Empty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	db.Close()

	stdout, _, err := executeCmd(t, "", "runs", "--db", dbPath)
	if err != nil {
		t.Fatalf("runs failed: %v", err)
	}
	if !strings.Contains(stdout, "No runs recorded.") {
		t.Errorf("output = %q, want 'No runs recorded.'", stdout)
	}
}

func TestRunsCmd_ListsRecordedRuns(t *testing.T) {
	dbPath := seedStore(t)

	// Record a probe run through the probe command first.
	if _, _, err := executeCmd(t, "", "probe", "--db", dbPath, "--seed", "1"); err != nil {
		t.Fatalf("probe failed: %v", err)
	}

	stdout, _, err := executeCmd(t, "", "runs", "--db", dbPath, "--json")
	if err != nil {
		t.Fatalf("runs failed: %v", err)
	}

	var result types.RunsResult
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(result.Runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(result.Runs))
	}
	if result.Runs[0].Kind != types.RunKindProbe {
		t.Errorf("run kind = %q, want probe", result.Runs[0].Kind)
	}
}
