package validation

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/dan-xie-2022/selfsupervised/internal/types"
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// ValidateRequired returns an error if the value is empty or whitespace-only.
func ValidateRequired(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Message: "is required",
		}
	}
	return nil
}

// ValidateMaxLength returns an error if the value exceeds max runes.
func ValidateMaxLength(field, value string, max int) *ValidationError {
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", max),
		}
	}
	return nil
}

// ValidateEnum returns an error if the value is not in the allowed list.
func ValidateEnum(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateRange returns an error if the value is outside [min, max].
func ValidateRange(field string, value, min, max float64) *ValidationError {
	if value < min || value > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between %g and %g", min, max),
		}
	}
	return nil
}

// ValidatePositive returns an error if the value is not strictly positive
// or is NaN.
func ValidatePositive(field string, value float64) *ValidationError {
	if math.IsNaN(value) || value <= 0 {
		return &ValidationError{
			Field:   field,
			Message: "must be greater than zero",
		}
	}
	return nil
}

// ValidateBatchShape returns an error unless the batch holds an even count
// of at least four embeddings. A contrastive batch interleaves two views,
// so anything smaller has no negatives to score against.
func ValidateBatchShape(field string, count int) *ValidationError {
	if count < 4 || count%2 != 0 {
		return &ValidationError{
			Field:   field,
			Message: "must contain an even number of embeddings, at least 4",
		}
	}
	return nil
}

// ValidateMaxBatch returns an error if the batch exceeds the configured cap.
func ValidateMaxBatch(field string, count, max int) *ValidationError {
	if max > 0 && count > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("exceeds maximum batch size of %d", max),
		}
	}
	return nil
}

// ValidateScoreRequest validates a contrastive scoring request. The batch
// must be even-sized, within the configured cap, dimensionally consistent,
// and finite; the temperature, if supplied, must be positive.
func ValidateScoreRequest(req types.ScoreRequest, maxBatch int) []ValidationError {
	c := &Collector{}

	c.Add(ValidateBatchShape("embeddings", len(req.Embeddings)))
	c.Add(ValidateMaxBatch("embeddings", len(req.Embeddings), maxBatch))
	if len(req.Embeddings) > 0 {
		c.Add(ValidateEmbeddings("embeddings", req.Embeddings))
	}
	// Zero means "use the configured default"; anything else must be positive.
	if req.Temperature != 0 {
		c.Add(ValidatePositive("temperature", req.Temperature))
	}

	return c.Errors()
}

// MaxLabelLength bounds sample labels; anything longer is almost certainly
// a payload in the wrong field.
const MaxLabelLength = 256

// ValidateSampleInput validates a single sample in an ingest request.
func ValidateSampleInput(index int, s types.SampleInput) []ValidationError {
	c := &Collector{}
	prefix := fmt.Sprintf("samples[%d]", index)

	c.Add(ValidateRequired(prefix+".label", s.Label))
	c.Add(ValidateMaxLength(prefix+".label", s.Label, MaxLabelLength))

	if len(s.Embedding) == 0 && strings.TrimSpace(s.Text) == "" {
		c.Add(&ValidationError{
			Field:   prefix,
			Message: "must supply either an embedding or text",
		})
	}
	if len(s.Embedding) > 0 {
		c.Add(ValidateEmbeddings(prefix+".embedding", [][]float32{s.Embedding}))
	}

	return c.Errors()
}

// ValidateIngestSamplesRequest validates a batch sample ingest request.
func ValidateIngestSamplesRequest(req types.IngestSamplesRequest, maxBatch int) []ValidationError {
	c := &Collector{}

	if len(req.Samples) == 0 {
		c.Add(&ValidationError{
			Field:   "samples",
			Message: "must not be empty",
		})
	}
	c.Add(ValidateMaxBatch("samples", len(req.Samples), maxBatch))

	for i, s := range req.Samples {
		for _, err := range ValidateSampleInput(i, s) {
			e := err
			c.Add(&e)
		}
	}

	return c.Errors()
}

// ValidateEmbeddings returns an error if any embedding is empty, differs in
// length from the first, or contains a NaN or infinite component.
func ValidateEmbeddings(field string, embeddings [][]float32) *ValidationError {
	if len(embeddings) == 0 {
		return &ValidationError{
			Field:   field,
			Message: "must not be empty",
		}
	}

	dim := len(embeddings[0])
	for i, v := range embeddings {
		if len(v) == 0 {
			return &ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: "must not be empty",
			}
		}
		if len(v) != dim {
			return &ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: fmt.Sprintf("has %d dimensions, expected %d", len(v), dim),
			}
		}
		for _, x := range v {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return &ValidationError{
					Field:   fmt.Sprintf("%s[%d]", field, i),
					Message: "must contain only finite values",
				}
			}
		}
	}
	return nil
}
