// Package slmdb provides the NVM-resident secondary index (package index) and
// the persistent skiplist segment (package skiplist) that back it, along with
// the ambient logging primitive shared by both.
package slmdb

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with field names shared by the index and skiplist
// packages, so drains, flushes, and node lifecycle events are logged with a
// consistent vocabulary regardless of which package emits them.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // unreachable
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithKey adds the key under operation to the logger.
func (l *Logger) WithKey(key uint32) *Logger {
	return &Logger{Logger: l.Logger.With("key", key)}
}

// WithFileNumber adds a backing-tree file number field to the logger.
func (l *Logger) WithFileNumber(fileNumber uint32) *Logger {
	return &Logger{Logger: l.Logger.With("file_number", fileNumber)}
}

// WithQueueDepth adds the current AddQueue depth to the logger.
func (l *Logger) WithQueueDepth(depth int) *Logger {
	return &Logger{Logger: l.Logger.With("queue_depth", depth)}
}

// LogGet logs a point lookup.
func (l *Logger) LogGet(ctx context.Context, key uint32, found bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "get failed", "key", key, "error", err)
		return
	}
	l.DebugContext(ctx, "get completed", "key", key, "found", found)
}

// LogInsert logs a synchronous insert.
func (l *Logger) LogInsert(ctx context.Context, key uint32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed", "key", key, "error", err)
		return
	}
	l.DebugContext(ctx, "insert completed", "key", key)
}

// LogAsyncInsert logs a queued asynchronous insert.
func (l *Logger) LogAsyncInsert(ctx context.Context, key uint32, queueDepth int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "async insert failed", "key", key, "error", err)
		return
	}
	l.DebugContext(ctx, "async insert queued", "key", key, "queue_depth", queueDepth)
}

// LogFlush logs a cache-line flush of a byte range, identified by its arena
// offset, immediately before the corresponding publish.
func (l *Logger) LogFlush(ctx context.Context, offset uint64, length int) {
	l.DebugContext(ctx, "flushed range", "offset", offset, "length", length)
}

// LogRunnerDrain logs one Runner drain cycle over a batch pulled off the queue.
func (l *Logger) LogRunnerDrain(ctx context.Context, batchSize int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "runner drain aborted", "batch_size", batchSize, "error", err)
		return
	}
	l.DebugContext(ctx, "runner drain completed", "batch_size", batchSize)
}

// LogClose logs graceful shutdown of the background Runner.
func (l *Logger) LogClose(ctx context.Context, err error) {
	if err != nil {
		l.ErrorContext(ctx, "close did not complete cleanly", "error", err)
		return
	}
	l.InfoContext(ctx, "index closed")
}

// LogErase logs physical reclamation of a skiplist node.
func (l *Logger) LogErase(ctx context.Context, offset uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "erase failed", "offset", offset, "error", err)
		return
	}
	l.DebugContext(ctx, "erase completed", "offset", offset)
}

// LogChainPersist logs a SaveChain or LoadChain call.
func (l *Logger) LogChainPersist(ctx context.Context, op string, nodes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "chain persistence failed", "op", op, "error", err)
		return
	}
	l.InfoContext(ctx, "chain persistence completed", "op", op, "nodes", nodes)
}
