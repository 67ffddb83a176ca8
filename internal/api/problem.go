package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dan-xie-2022/selfsupervised/internal/store"
	"github.com/dan-xie-2022/selfsupervised/internal/validation"
	"github.com/dan-xie-2022/selfsupervised/pkg/contrast"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// problemTypes maps HTTP status codes to RFC 7807 type URIs and titles.
var problemTypes = map[int]struct {
	typeURI string
	title   string
}{
	http.StatusUnauthorized: {
		typeURI: "https://selfsup.dev/errors/unauthorized",
		title:   "Unauthorized",
	},
	http.StatusBadRequest: {
		typeURI: "https://selfsup.dev/errors/bad-request",
		title:   "Bad Request",
	},
	http.StatusNotFound: {
		typeURI: "https://selfsup.dev/errors/not-found",
		title:   "Not Found",
	},
	http.StatusInternalServerError: {
		typeURI: "https://selfsup.dev/errors/internal-error",
		title:   "Internal Server Error",
	},
	http.StatusUnprocessableEntity: {
		typeURI: "https://selfsup.dev/errors/validation-error",
		title:   "Validation Error",
	},
	http.StatusServiceUnavailable: {
		typeURI: "https://selfsup.dev/errors/service-unavailable",
		title:   "Service Unavailable",
	},
	http.StatusConflict: {
		typeURI: "https://selfsup.dev/errors/conflict",
		title:   "Conflict",
	},
	http.StatusTooManyRequests: {
		typeURI: "https://selfsup.dev/errors/rate-limit",
		title:   "Too Many Requests",
	},
}

// WriteProblem writes an RFC 7807 Problem Details response.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	pt, ok := problemTypes[status]
	if !ok {
		pt = struct {
			typeURI string
			title   string
		}{
			typeURI: "https://selfsup.dev/errors/unknown",
			title:   http.StatusText(status),
		}
	}

	p := Problem{
		Type:     pt.typeURI,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		slog.Error("failed to encode problem response", "error", err)
	}
}

// ProblemWithErrors extends Problem with validation error details.
type ProblemWithErrors struct {
	Problem
	Errors []validation.ValidationError `json:"errors,omitempty"`
}

// WriteProblemWithErrors writes a 422 Problem Details response with field errors.
func WriteProblemWithErrors(w http.ResponseWriter, r *http.Request, detail string, errs []validation.ValidationError) {
	pt := problemTypes[http.StatusUnprocessableEntity]

	p := ProblemWithErrors{
		Problem: Problem{
			Type:     pt.typeURI,
			Title:    pt.title,
			Status:   http.StatusUnprocessableEntity,
			Detail:   detail,
			Instance: r.URL.Path,
		},
		Errors: errs,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		slog.Error("failed to encode problem response", "error", err)
	}
}

// MapStoreError converts store errors to Problem Details responses.
func MapStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Resource not found")
	case errors.Is(err, store.ErrNoSamples):
		WriteProblem(w, r, http.StatusConflict, "No samples available")
	case errors.Is(err, store.ErrDimensionMismatch):
		WriteProblem(w, r, http.StatusUnprocessableEntity, "Embedding dimensions do not match stored samples")
	case errors.Is(err, store.ErrEmbedderUnavailable):
		WriteProblem(w, r, http.StatusServiceUnavailable, "Embedding service unavailable")
	default:
		// Never expose internal error details to client
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}

// MapScoreError converts contrastive scoring errors to Problem Details
// responses. Scoring errors are always the caller's input, never server
// state, so everything known maps to 422.
func MapScoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, contrast.ErrInvalidBatch):
		WriteProblem(w, r, http.StatusUnprocessableEntity, "Batch must hold an even number of embeddings, at least 4")
	case errors.Is(err, contrast.ErrInvalidTemperature):
		WriteProblem(w, r, http.StatusUnprocessableEntity, "Temperature must be a positive number")
	case errors.Is(err, contrast.ErrDimensionMismatch):
		WriteProblem(w, r, http.StatusUnprocessableEntity, "All embeddings must share one dimension")
	default:
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}
