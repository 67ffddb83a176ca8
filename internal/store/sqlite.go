package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/dan-xie-2022/selfsupervised/internal/types"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Compile-time interface check
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is the SQLite-backed sample and run database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore instance.
// It initializes the database with WAL mode, applies pragmas, and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable pragmas for performance and safety
	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	// Run goose migrations
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddSamples stores labeled embeddings in a single transaction. All samples
// must share one dimension with any samples already stored; on any failure
// the whole batch is rolled back.
func (s *SQLiteStore) AddSamples(ctx context.Context, samples []types.Sample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	// The probe trains over every stored vector, so a single dimension must
	// hold across the whole table.
	var existingDim sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT dimensions FROM samples LIMIT 1").Scan(&existingDim)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("query sample dimensions: %w", err)
	}

	dim := len(samples[0].Embedding)
	if existingDim.Valid && int(existingDim.Int64) != dim {
		return 0, ErrDimensionMismatch
	}
	for _, sample := range samples {
		if len(sample.Embedding) != dim {
			return 0, ErrDimensionMismatch
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (id, label, dimensions, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, sample := range samples {
		id := ulid.Make().String()
		if _, err := stmt.ExecContext(ctx, id, sample.Label, dim,
			packEmbedding(sample.Embedding), now.Format(time.RFC3339)); err != nil {
			return 0, fmt.Errorf("insert sample: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return len(samples), nil
}

// ListSamples returns stored samples in insertion order. A limit <= 0 returns
// all samples.
func (s *SQLiteStore) ListSamples(ctx context.Context, limit int) ([]types.Sample, error) {
	query := "SELECT id, label, dimensions, embedding, created_at FROM samples ORDER BY id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var samples []types.Sample
	for rows.Next() {
		var (
			sample    types.Sample
			blob      []byte
			createdAt string
		)
		if err := rows.Scan(&sample.ID, &sample.Label, &sample.Dimensions, &blob, &createdAt); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		sample.Embedding = unpackEmbedding(blob)
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			sample.CreatedAt = t
		}
		samples = append(samples, sample)
	}

	return samples, rows.Err()
}

// CountSamples returns the number of stored samples.
func (s *SQLiteStore) CountSamples(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM samples").Scan(&count)
	return count, err
}

// RecordRun persists a score or probe run and returns it with its generated
// id and timestamp.
func (s *SQLiteStore) RecordRun(ctx context.Context, run types.RunRecord) (*types.RunRecord, error) {
	run.ID = ulid.Make().String()
	run.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, batch_size, dimensions, temperature, loss, accuracy, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, string(run.Kind), run.BatchSize, run.Dimensions, run.Temperature,
		run.Loss, run.Accuracy, run.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return &run, nil
}

// ListRuns returns the most recent runs, newest first. A limit <= 0 defaults
// to 50.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]types.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, batch_size, dimensions, temperature, loss, accuracy, created_at
		FROM runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []types.RunRecord
	for rows.Next() {
		var (
			run       types.RunRecord
			kind      string
			createdAt string
		)
		if err := rows.Scan(&run.ID, &kind, &run.BatchSize, &run.Dimensions,
			&run.Temperature, &run.Loss, &run.Accuracy, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Kind = types.RunKind(kind)
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			run.CreatedAt = t
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// PruneRuns deletes run records created before the given time and returns the
// number removed.
func (s *SQLiteStore) PruneRuns(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM runs WHERE created_at < ?", before.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return result.RowsAffected()
}

// GetStats returns aggregate store statistics.
func (s *SQLiteStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	stats := &types.StoreStats{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM samples").Scan(&stats.SampleCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&stats.RunCount); err != nil {
		return nil, err
	}

	return stats, nil
}

func packEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func unpackEmbedding(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
