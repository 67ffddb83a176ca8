package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockRetentionStore implements RetentionStore for testing
type mockRetentionStore struct {
	mu       sync.Mutex
	cutoffs  []time.Time
	pruneErr error
	pruned   int64
}

func (m *mockRetentionStore) PruneRuns(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutoffs = append(m.cutoffs, before)
	if m.pruneErr != nil {
		return 0, m.pruneErr
	}
	return m.pruned, nil
}

func (m *mockRetentionStore) getCutoffs() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time{}, m.cutoffs...)
}

func TestRunRetentionWorker_RunsOnSchedule(t *testing.T) {
	store := &mockRetentionStore{pruned: 5}
	worker := NewRunRetentionWorker(store, 50*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())

	go worker.Run(ctx)

	// Wait for at least 2 ticks
	time.Sleep(120 * time.Millisecond)
	cancel()

	if calls := store.getCutoffs(); len(calls) < 2 {
		t.Errorf("Expected at least 2 prune calls, got %d", len(calls))
	}
}

func TestRunRetentionWorker_DoesNotRunImmediately(t *testing.T) {
	store := &mockRetentionStore{pruned: 5}
	worker := NewRunRetentionWorker(store, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())

	go worker.Run(ctx)

	// Wait a short time - should NOT have pruned yet
	time.Sleep(50 * time.Millisecond)
	cancel()

	if calls := store.getCutoffs(); len(calls) != 0 {
		t.Errorf("Expected 0 prune calls (does not run immediately), got %d", len(calls))
	}
}

func TestRunRetentionWorker_GracefulShutdown(t *testing.T) {
	store := &mockRetentionStore{pruned: 5}
	worker := NewRunRetentionWorker(store, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	// Cancel immediately
	cancel()

	select {
	case <-done:
		// Success
	case <-time.After(1 * time.Second):
		t.Error("Worker did not stop within 1 second")
	}
}

func TestRunRetentionWorker_HandlesStoreError(t *testing.T) {
	store := &mockRetentionStore{pruneErr: errors.New("database error")}
	worker := NewRunRetentionWorker(store, 50*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())

	go worker.Run(ctx)

	// Wait for at least 2 ticks (should continue despite errors)
	time.Sleep(120 * time.Millisecond)
	cancel()

	if calls := store.getCutoffs(); len(calls) < 2 {
		t.Errorf("Expected at least 2 prune calls (continues on error), got %d", len(calls))
	}
}

func TestRunRetentionWorker_CalculatesCutoff(t *testing.T) {
	store := &mockRetentionStore{pruned: 5}
	retention := time.Hour
	worker := NewRunRetentionWorker(store, 50*time.Millisecond, retention)

	ctx, cancel := context.WithCancel(context.Background())

	go worker.Run(ctx)

	// Wait for first tick
	time.Sleep(80 * time.Millisecond)
	cancel()

	calls := store.getCutoffs()
	if len(calls) == 0 {
		t.Fatal("Expected at least 1 prune call")
	}

	// Cutoff should be approximately (call time - retention)
	expected := time.Now().Add(-retention)
	diff := calls[0].Sub(expected)
	if diff < -time.Second || diff > time.Second {
		t.Errorf("Cutoff %v not close to expected %v (diff: %v)", calls[0], expected, diff)
	}
}
