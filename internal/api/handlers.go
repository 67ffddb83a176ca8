package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dan-xie-2022/selfsupervised/internal/config"
	"github.com/dan-xie-2022/selfsupervised/internal/embedding"
	"github.com/dan-xie-2022/selfsupervised/internal/probe"
	"github.com/dan-xie-2022/selfsupervised/internal/store"
	"github.com/dan-xie-2022/selfsupervised/internal/types"
	"github.com/dan-xie-2022/selfsupervised/internal/validation"
	"github.com/dan-xie-2022/selfsupervised/pkg/contrast"
)

// Handler implements the API handlers
type Handler struct {
	store    store.Store
	embedder embedding.Embedder
	scorer   *contrast.Scorer
	scoring  config.ScoringConfig
	probeCfg config.ProbeConfig
	apiKey   string
	version  string
}

// NewHandler creates a new Handler with store.Store interface
func NewHandler(s store.Store, e embedding.Embedder, cfg *config.Config, version string) *Handler {
	return &Handler{
		store:    s,
		embedder: e,
		scorer:   contrast.NewScorer(),
		scoring:  cfg.Scoring,
		probeCfg: cfg.Probe,
		apiKey:   cfg.Auth.APIKey,
		version:  version,
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	model := "none"
	if h.embedder != nil {
		model = h.embedder.ModelName()
	}

	resp := types.HealthResponse{
		Status:         "healthy",
		Version:        h.version,
		EmbeddingModel: model,
		SampleCount:    stats.SampleCount,
		RunCount:       stats.RunCount,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Score handles POST /api/v1/score. It builds positive-first logits for a
// paired-view batch, computes the mean contrastive loss, and records the
// run in the store.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var req types.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	if errs := validation.ValidateScoreRequest(req, h.scoring.MaxBatchSize); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = h.scoring.Temperature
	}

	result, err := h.scorer.Score(req.Embeddings, temperature)
	if err != nil {
		MapScoreError(w, r, err)
		return
	}

	resp := types.ScoreResult{
		Logits:     result.Logits,
		Labels:     result.Labels,
		Loss:       contrast.InfoNCE(result.Logits),
		BatchSize:  len(req.Embeddings),
		Dimensions: len(req.Embeddings[0]),
	}

	// Run recording is best-effort; scoring output is still valid without it.
	run, err := h.store.RecordRun(r.Context(), types.RunRecord{
		Kind:        types.RunKindScore,
		BatchSize:   resp.BatchSize,
		Dimensions:  resp.Dimensions,
		Temperature: temperature,
		Loss:        resp.Loss,
	})
	if err != nil {
		slog.Warn("failed to record score run", "error", err)
	} else {
		resp.RunID = run.ID
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// IngestSamples handles POST /api/v1/samples. Samples carrying text but no
// embedding are embedded server-side. Invalid samples are rejected
// individually; the rest are stored.
func (h *Handler) IngestSamples(w http.ResponseWriter, r *http.Request) {
	var req types.IngestSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	if len(req.Samples) == 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields",
			validation.ValidateIngestSamplesRequest(req, h.scoring.MaxBatchSize))
		return
	}
	if errs := validation.ValidateMaxBatch("samples", len(req.Samples), h.scoring.MaxBatchSize); errs != nil {
		WriteProblemWithErrors(w, r, "Request contains invalid fields",
			[]validation.ValidationError{*errs})
		return
	}

	// Validate each sample, separate valid from invalid (partial acceptance)
	var valid []types.SampleInput
	var allErrors []string
	for i, s := range req.Samples {
		errs := validation.ValidateSampleInput(i, s)
		if len(errs) > 0 {
			for _, err := range errs {
				allErrors = append(allErrors, fmt.Sprintf("%s: %s", err.Field, err.Message))
			}
			continue
		}
		valid = append(valid, s)
	}

	samples, err := h.resolveEmbeddings(r, valid)
	if err != nil {
		slog.Error("embedding failed during ingest", "error", err)
		MapStoreError(w, r, err)
		return
	}

	var accepted int
	if len(samples) > 0 {
		accepted, err = h.store.AddSamples(r.Context(), samples)
		if err != nil {
			slog.Error("sample ingest failed", "error", err, "count", len(samples))
			MapStoreError(w, r, err)
			return
		}
	}

	resp := types.IngestSamplesResult{
		Accepted: accepted,
		Rejected: len(req.Samples) - len(valid),
		Errors:   allErrors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// resolveEmbeddings converts inputs into storable samples, embedding any
// text-only inputs in one batch call.
func (h *Handler) resolveEmbeddings(r *http.Request, inputs []types.SampleInput) ([]types.Sample, error) {
	var texts []string
	var textIdx []int
	for i, in := range inputs {
		if len(in.Embedding) == 0 {
			texts = append(texts, in.Text)
			textIdx = append(textIdx, i)
		}
	}

	embedded := make([][]float32, 0, len(texts))
	if len(texts) > 0 {
		if h.embedder == nil {
			return nil, store.ErrEmbedderUnavailable
		}
		var err error
		embedded, err = h.embedder.EmbedBatch(r.Context(), texts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrEmbedderUnavailable, err)
		}
	}

	samples := make([]types.Sample, len(inputs))
	for i, in := range inputs {
		samples[i] = types.Sample{Label: in.Label, Embedding: in.Embedding}
	}
	for j, i := range textIdx {
		samples[i].Embedding = embedded[j]
	}
	return samples, nil
}

// Probe handles POST /api/v1/probe. It trains a linear classifier over all
// stored samples and records the resulting accuracy as a probe run. An
// empty body runs with configured defaults.
func (h *Handler) Probe(w http.ResponseWriter, r *http.Request) {
	var req types.ProbeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	cfg := probe.Config{
		Epochs:    h.probeCfg.Epochs,
		BatchSize: h.probeCfg.BatchSize,
		LearnRate: h.probeCfg.LearnRate,
		L2Penalty: h.probeCfg.L2Penalty,
		EvalSplit: h.probeCfg.EvalSplit,
		Seed:      req.Seed,
	}
	if req.Epochs > 0 {
		cfg.Epochs = req.Epochs
	}
	if req.BatchSize > 0 {
		cfg.BatchSize = req.BatchSize
	}
	if req.LearnRate > 0 {
		cfg.LearnRate = req.LearnRate
	}

	samples, err := h.store.ListSamples(r.Context(), 0)
	if err != nil {
		slog.Error("listing samples for probe failed", "error", err)
		MapStoreError(w, r, err)
		return
	}
	if len(samples) == 0 {
		MapStoreError(w, r, store.ErrNoSamples)
		return
	}

	embeddings := make([][]float32, len(samples))
	labels := make([]string, len(samples))
	for i, s := range samples {
		embeddings[i] = s.Embedding
		labels[i] = s.Label
	}

	report, err := probe.Run(embeddings, labels, cfg)
	if err != nil {
		WriteProblem(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := types.ProbeResult{
		Accuracy:   report.Accuracy,
		TrainLoss:  report.TrainLoss,
		Samples:    report.Samples,
		Classes:    report.Classes,
		Dimensions: report.Dimensions,
		Epochs:     report.Epochs,
	}

	run, err := h.store.RecordRun(r.Context(), types.RunRecord{
		Kind:       types.RunKindProbe,
		BatchSize:  cfg.BatchSize,
		Dimensions: report.Dimensions,
		Loss:       report.TrainLoss,
		Accuracy:   report.Accuracy,
	})
	if err != nil {
		slog.Warn("failed to record probe run", "error", err)
	} else {
		resp.RunID = run.ID
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListRuns handles GET /api/v1/runs with an optional ?limit= parameter.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteProblem(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		slog.Error("listing runs failed", "error", err)
		MapStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(types.RunsResult{Runs: runs})
}
