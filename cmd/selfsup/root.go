package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dan-xie-2022/selfsupervised/internal/api"
	"github.com/dan-xie-2022/selfsupervised/internal/config"
	"github.com/dan-xie-2022/selfsupervised/internal/embedding"
	"github.com/dan-xie-2022/selfsupervised/internal/store"
	"github.com/dan-xie-2022/selfsupervised/internal/worker"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "selfsup",
	Short: "Selfsup - contrastive representation scoring service",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Signal handling first so startup itself is interruptible
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("configuration loaded")

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)
	slog.Info("logger initialized", "level", cfg.Log.Level)

	// Store init runs migrations and enables WAL
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", cfg.Database.Path)

	// Without an API key the server still scores and probes; only
	// server-side embedding of text samples is unavailable.
	var embedder embedding.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder = embedding.NewOpenAI(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)
		slog.Info("embedder initialized", "model", cfg.Embedding.Model)
	} else {
		slog.Warn("no embedding API key; text samples will be rejected")
	}

	handler := api.NewHandler(db, embedder, cfg, Version)
	router := api.NewRouter(handler)
	slog.Info("router initialized")

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	var wg sync.WaitGroup
	retention := worker.NewRunRetentionWorker(db,
		time.Duration(cfg.Worker.RetentionInterval),
		time.Duration(cfg.Worker.RunRetention))
	startWorker(ctx, &wg, "run-retention", retention.Run)

	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is called
		// gracefully. Anything else is a real failure.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	// Drain in-flight requests, then stop workers, then close the store
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	wg.Wait()

	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker launches a background worker goroutine that respects context
// cancellation. Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}

// defaultDBPath mirrors the server's database resolution for offline
// subcommands.
func defaultDBPath() string {
	if v := os.Getenv("SELFSUP_DB_PATH"); v != "" {
		return v
	}
	return "data/selfsup.db"
}

// printJSON marshals v to indented JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}
