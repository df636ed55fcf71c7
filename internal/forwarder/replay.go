package forwarder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loykin/logpush/internal/deadletter"
)

// Queue is the part of the dead-letter store used by Replay.
type Queue interface {
	List(limit int) ([]deadletter.Entry, error)
	Delete(id int64) error
}

// Replay sends every queued record once, oldest first, and removes the
// records the sink accepted. Records that fail again stay queued.
func Replay(ctx context.Context, q Queue, sink Sink, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := q.List(0)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, e := range entries {
		if ctx.Err() != nil {
			logger.Warn("replay interrupted", "remaining", len(entries)-sum.Lines)
			break
		}
		sum.Lines++
		receipt, err := sink.Put(ctx, e.Data)
		if err != nil {
			sum.Failed++
			logger.Error("replay failed",
				"id", e.ID, "source", e.Source, "line", e.Line, "sink", sink.Name(), "error", err)
			continue
		}
		if err := q.Delete(e.ID); err != nil {
			return sum, fmt.Errorf("dead letter %d delivered but not removed: %w", e.ID, err)
		}
		sum.Delivered++
		logger.Info("record replayed",
			"id", e.ID, "source", e.Source, "line", e.Line, "sink", sink.Name(), "response", receipt)
	}
	return sum, nil
}
