package forwarder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/loykin/logpush/internal/deadletter"
	"github.com/loykin/logpush/internal/metrics"
	"github.com/loykin/logpush/internal/source"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoSink        = errors.New("sink is required")
	ErrInvalidConfig = errors.New("invalid forwarder config")
)

// DeadLetters receives records whose delivery failed.
type DeadLetters interface {
	Add(e deadletter.Entry) (int64, error)
}

// Forwarder reads a file line by line and hands every line to a Sink.
type Forwarder struct {
	cfg         Config
	sink        Sink
	fs          afero.Fs
	logger      *slog.Logger
	deadLetters DeadLetters
	onResult    func(Result)
}

type Option func(*Forwarder)

// WithFs reads the source from fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(f *Forwarder) { f.fs = fs }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Forwarder) { f.logger = l }
}

// WithDeadLetters captures failed records in d.
func WithDeadLetters(d DeadLetters) Option {
	return func(f *Forwarder) { f.deadLetters = d }
}

// WithResultHook calls fn after every delivery attempt. fn is called
// concurrently when Workers > 1.
func WithResultHook(fn func(Result)) Option {
	return func(f *Forwarder) { f.onResult = fn }
}

// New returns a Forwarder for cfg. The configuration is copied and not
// modified afterwards.
func New(cfg Config, sink Sink, opts ...Option) (*Forwarder, error) {
	if sink == nil {
		return nil, ErrNoSink
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	f := &Forwarder{cfg: cfg, sink: sink}
	for _, opt := range opts {
		opt(f)
	}
	if f.fs == nil {
		f.fs = afero.NewOsFs()
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f, nil
}

type tally struct {
	delivered    atomic.Int64
	failed       atomic.Int64
	deadLettered atomic.Int64
}

// Run forwards every line of the configured file and returns once the file
// is exhausted and all puts have completed. Sink failures are logged and
// counted, never returned. The returned error is non-nil only when the
// source cannot be opened or read.
//
// Cancelling ctx stops reading; puts already started run to completion.
func (f *Forwarder) Run(ctx context.Context) (Summary, error) {
	r, err := source.Open(f.fs, f.cfg.Path, f.cfg.Separator)
	if err != nil {
		return Summary{}, err
	}
	defer func() { _ = r.Close() }()

	f.logger.Info("forwarding started",
		"path", f.cfg.Path, "sink", f.sink.Name(), "workers", f.cfg.Workers)

	putCtx := context.WithoutCancel(ctx)
	var t tally
	g := new(errgroup.Group)
	g.SetLimit(f.cfg.Workers)

	lines := 0
	var readErr error
	for ln, err := range r.All() {
		if err != nil {
			metrics.IncReadErrors()
			readErr = fmt.Errorf("read %s: %w", f.cfg.Path, err)
			break
		}
		if ctx.Err() != nil {
			f.logger.Warn("forwarding interrupted", "path", f.cfg.Path, "line", ln.Number)
			break
		}
		lines++
		metrics.IncLines(1)
		if f.cfg.Workers == 1 {
			f.deliver(putCtx, ln, &t)
			continue
		}
		g.Go(func() error {
			f.deliver(putCtx, ln, &t)
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{
		Lines:        lines,
		Delivered:    int(t.delivered.Load()),
		Failed:       int(t.failed.Load()),
		DeadLettered: int(t.deadLettered.Load()),
	}
	if readErr != nil {
		return sum, readErr
	}
	f.logger.Info("forwarding finished", "path", f.cfg.Path, "summary", sum)
	return sum, nil
}

func (f *Forwarder) deliver(ctx context.Context, ln source.LogLine, t *tally) {
	metrics.IncInflight()
	defer metrics.DecInflight()

	data := []byte(ln.Text)
	metrics.AddBytes(len(data))

	start := time.Now()
	receipt, err := f.sink.Put(ctx, data)
	res := Result{Line: ln, Receipt: receipt, Err: err, Duration: time.Since(start)}

	if err != nil {
		t.failed.Add(1)
		f.logger.Error("record delivery failed",
			"line", ln.Number, "sink", f.sink.Name(), "error", err)
		if f.capture(ln, data, err) {
			t.deadLettered.Add(1)
		}
	} else {
		t.delivered.Add(1)
		f.logger.Info("record delivered",
			"line", ln.Number, "sink", f.sink.Name(), "response", receipt)
	}

	if f.onResult != nil {
		f.onResult(res)
	}
}

func (f *Forwarder) capture(ln source.LogLine, data []byte, cause error) bool {
	if f.deadLetters == nil {
		return false
	}
	_, err := f.deadLetters.Add(deadletter.Entry{
		Source: f.cfg.Path,
		Line:   ln.Number,
		Offset: ln.Offset,
		Data:   data,
		Sink:   f.sink.Name(),
		Error:  cause.Error(),
	})
	if err != nil {
		f.logger.Warn("dead letter capture failed", "line", ln.Number, "error", err)
		return false
	}
	metrics.IncDeadLettered()
	return true
}
