package sink

import (
	"context"
	"log/slog"
)

// Log writes records to the logger instead of persisting them.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a sink that logs every record at Info.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Persist implements Sink.
func (s *Log) Persist(_ context.Context, rec Record) error {
	s.logger.Info("💾 Result.", "item", rec.ItemID, "output", rec.Output)
	return nil
}

// Close is a no-op.
func (s *Log) Close() error { return nil }
