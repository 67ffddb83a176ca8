package store

import (
	"context"
	"time"

	"github.com/dan-xie-2022/selfsupervised/internal/types"
)

// Store defines the interface contract for sample and run persistence.
type Store interface {
	AddSamples(ctx context.Context, samples []types.Sample) (int, error)
	ListSamples(ctx context.Context, limit int) ([]types.Sample, error)
	CountSamples(ctx context.Context) (int64, error)
	RecordRun(ctx context.Context, run types.RunRecord) (*types.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]types.RunRecord, error)
	PruneRuns(ctx context.Context, before time.Time) (int64, error)
	GetStats(ctx context.Context) (*types.StoreStats, error)
	Close() error
}
