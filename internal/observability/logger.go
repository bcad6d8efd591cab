// Package observability provides structured logging helpers for engine runs.
package observability

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldRunID is the field name for run ID.
	LogFieldRunID = "run_id"
	// LogFieldOperation is the field name for the engine operation.
	LogFieldOperation = "operation"
	// LogFieldStoreDir is the field name for the store directory.
	LogFieldStoreDir = "store_dir"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldChunkCount is the field name for chunk counts.
	LogFieldChunkCount = "chunk_count"
)

// NewLogger creates the root slog logger. Dev mode uses text output at
// debug level, prod uses JSON at info level.
func NewLogger(dev bool) *slog.Logger {
	if dev {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// RunContext carries structured logging state for a single engine run
// (one ingest, one retrieval, or one notes generation).
type RunContext struct {
	RunID     string
	Operation string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewRunContext creates a run context with a generated run ID.
func NewRunContext(logger *slog.Logger, operation string) *RunContext {
	return &RunContext{
		RunID:     uuid.New().String(),
		Operation: operation,
		StartTime: time.Now(),
		Logger:    logger,
	}
}

// Info logs an info message with the run attributes.
func (r *RunContext) Info(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, r.withBase(attrs)...)
}

// Debug logs a debug message with the run attributes.
func (r *RunContext) Debug(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, r.withBase(attrs)...)
}

// Warn logs a warning message with the run attributes.
func (r *RunContext) Warn(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelWarn, msg, r.withBase(attrs)...)
}

// Error logs an error message with the run attributes.
func (r *RunContext) Error(msg string, err error, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("error", err.Error()))
	r.Logger.LogAttrs(context.Background(), slog.LevelError, msg, r.withBase(attrs)...)
}

// DurationMs returns the elapsed time since the run started in milliseconds.
func (r *RunContext) DurationMs() int64 {
	return time.Since(r.StartTime).Milliseconds()
}

func (r *RunContext) withBase(attrs []slog.Attr) []slog.Attr {
	base := []slog.Attr{
		slog.String(LogFieldRunID, r.RunID),
		slog.String(LogFieldOperation, r.Operation),
	}
	return append(base, attrs...)
}
