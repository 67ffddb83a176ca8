package store

import "errors"

var (
	ErrNotFound            = errors.New("record not found")
	ErrNoSamples           = errors.New("no samples stored")
	ErrDimensionMismatch   = errors.New("sample dimensions differ from stored samples")
	ErrEmbedderUnavailable = errors.New("embedding service unavailable")
)
