package forwarder

import (
	"context"
	"log/slog"
	"time"

	"github.com/loykin/logpush/internal/source"
)

// Sink submits one record per call. Implementations make a single attempt
// and must be safe for concurrent use when more than one worker is configured.
type Sink interface {
	Name() string
	Put(ctx context.Context, data []byte) (Receipt, error)
}

// Receipt describes a record accepted by the sink.
type Receipt struct {
	RecordID  string
	Encrypted bool
}

func (r Receipt) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("record_id", r.RecordID),
		slog.Bool("encrypted", r.Encrypted),
	)
}

// Result is the outcome of delivering one line.
type Result struct {
	Line     source.LogLine
	Receipt  Receipt
	Err      error
	Duration time.Duration
}

func (r Result) OK() bool { return r.Err == nil }

// Summary counts the outcomes of a run.
type Summary struct {
	Lines        int
	Delivered    int
	Failed       int
	DeadLettered int
}

func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("lines", s.Lines),
		slog.Int("delivered", s.Delivered),
		slog.Int("failed", s.Failed),
		slog.Int("dead_lettered", s.DeadLettered),
	)
}
