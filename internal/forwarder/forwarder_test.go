package forwarder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loykin/logpush/internal/deadletter"
	"github.com/loykin/logpush/internal/source"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSink records payloads and optionally fails selected ones.
type fakeSink struct {
	mu       sync.Mutex
	payloads []string
	fail     func(data string) error
	delay    time.Duration

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (s *fakeSink) Name() string { return "fake" }

func (s *fakeSink) Put(_ context.Context, data []byte) (Receipt, error) {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		m := s.maxInflight.Load()
		if n <= m || s.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	s.payloads = append(s.payloads, string(data))
	seq := len(s.payloads)
	s.mu.Unlock()

	if s.fail != nil {
		if err := s.fail(string(data)); err != nil {
			return Receipt{}, err
		}
	}
	return Receipt{RecordID: fmt.Sprintf("rec-%d", seq)}, nil
}

func (s *fakeSink) got() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.payloads...)
}

func newLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func setup(t *testing.T, content string, workers int, sink Sink, opts ...Option) (*Forwarder, *bytes.Buffer) {
	t.Helper()
	mfs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mfs, DefaultPath, []byte(content), 0o644))

	var cfg Config
	cfg.Default()
	cfg.Workers = workers

	logger, buf := newLogger()
	opts = append([]Option{WithFs(mfs), WithLogger(logger)}, opts...)
	f, err := New(cfg, sink, opts...)
	require.NoError(t, err)
	return f, buf
}

func TestRun_OneCallPerLineInOrder(t *testing.T) {
	var lines []string
	for i := 0; i < 50; i++ {
		lines = append(lines, fmt.Sprintf("line-%02d", i))
	}
	sink := &fakeSink{}
	f, _ := setup(t, strings.Join(lines, "\n")+"\n", 1, sink)

	sum, err := f.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, lines, sink.got())
	assert.Equal(t, Summary{Lines: 50, Delivered: 50}, sum)
	assert.EqualValues(t, 1, sink.maxInflight.Load())
}

func TestRun_BoundedWorkers(t *testing.T) {
	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, fmt.Sprintf("w-%02d", i))
	}
	sink := &fakeSink{delay: 5 * time.Millisecond}
	f, _ := setup(t, strings.Join(lines, "\n")+"\n", 4, sink)

	sum, err := f.Run(context.Background())
	require.NoError(t, err)

	got := sink.got()
	sort.Strings(got)
	assert.Equal(t, lines, got)
	assert.Equal(t, 40, sum.Delivered)
	assert.LessOrEqual(t, sink.maxInflight.Load(), int32(4))
	assert.Zero(t, sink.inflight.Load())
}

func TestRun_EmptyFile(t *testing.T) {
	sink := &fakeSink{}
	f, _ := setup(t, "", 1, sink)

	sum, err := f.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sink.got())
	assert.Equal(t, Summary{}, sum)
}

func TestRun_WhitespaceLinesForwarded(t *testing.T) {
	sink := &fakeSink{}
	f, _ := setup(t, "a\n   \n\t\nb\n", 1, sink)

	_, err := f.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "   ", "\t", "b"}, sink.got())
}

func TestRun_SingleRequestLine(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		sink := &fakeSink{}
		f, logs := setup(t, "GET / HTTP/1.1\n", 1, sink)

		sum, err := f.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"GET / HTTP/1.1"}, sink.got())
		assert.Equal(t, 1, sum.Delivered)
		assert.Contains(t, logs.String(), "record delivered")
		assert.Contains(t, logs.String(), "response.record_id=rec-1")
	})

	t.Run("failure", func(t *testing.T) {
		sink := &fakeSink{fail: func(string) error { return errors.New("service unavailable") }}
		f, logs := setup(t, "GET / HTTP/1.1\n", 1, sink)

		sum, err := f.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"GET / HTTP/1.1"}, sink.got())
		assert.Equal(t, Summary{Lines: 1, Failed: 1}, sum)
		assert.Contains(t, logs.String(), "record delivery failed")
		assert.Contains(t, logs.String(), "service unavailable")
		assert.Contains(t, logs.String(), "forwarding finished")
	})
}

func TestRun_FailuresDoNotStopLoop(t *testing.T) {
	sink := &fakeSink{fail: func(d string) error {
		if d == "bad" {
			return errors.New("rejected")
		}
		return nil
	}}
	f, _ := setup(t, "ok1\nbad\nok2\nbad\nok3\n", 1, sink)

	sum, err := f.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ok1", "bad", "ok2", "bad", "ok3"}, sink.got())
	assert.Equal(t, Summary{Lines: 5, Delivered: 3, Failed: 2}, sum)
}

func TestRun_ResultHook(t *testing.T) {
	sink := &fakeSink{fail: func(d string) error {
		if d == "b" {
			return errors.New("nope")
		}
		return nil
	}}
	var results []Result
	f, _ := setup(t, "a\nb\n", 1, sink, WithResultHook(func(r Result) { results = append(results, r) }))

	_, err := f.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].OK())
	assert.Equal(t, "rec-1", results[0].Receipt.RecordID)
	assert.Equal(t, 1, results[0].Line.Number)
	assert.False(t, results[1].OK())
	assert.EqualError(t, results[1].Err, "nope")
	assert.Equal(t, int64(2), results[1].Line.Offset)
}

func TestRun_DeadLetters(t *testing.T) {
	store, err := deadletter.NewSQLiteStore(filepath.Join(t.TempDir(), "dead.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	sink := &fakeSink{fail: func(d string) error {
		if strings.HasPrefix(d, "POST") {
			return errors.New("throttled")
		}
		return nil
	}}
	f, _ := setup(t, "GET /a\nPOST /b\nGET /c\nPOST /d\n", 2, sink, WithDeadLetters(store))

	sum, err := f.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Failed)
	assert.Equal(t, 2, sum.DeadLettered)

	entries, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	var data []string
	for _, e := range entries {
		assert.Equal(t, DefaultPath, e.Source)
		assert.Equal(t, "fake", e.Sink)
		assert.Equal(t, "throttled", e.Error)
		data = append(data, string(e.Data))
	}
	sort.Strings(data)
	assert.Equal(t, []string{"POST /b", "POST /d"}, data)
}

type brokenQueue struct{}

func (brokenQueue) Add(deadletter.Entry) (int64, error) { return 0, errors.New("disk full") }

func TestRun_DeadLetterFailureIsLogged(t *testing.T) {
	sink := &fakeSink{fail: func(string) error { return errors.New("down") }}
	f, logs := setup(t, "x\n", 1, sink, WithDeadLetters(brokenQueue{}))

	sum, err := f.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.DeadLettered)
	assert.Contains(t, logs.String(), "dead letter capture failed")
}

func TestRun_MissingFile(t *testing.T) {
	var cfg Config
	cfg.Default()
	cfg.Path = "missing.log"
	logger, _ := newLogger()
	sink := &fakeSink{}
	f, err := New(cfg, sink, WithFs(afero.NewMemMapFs()), WithLogger(logger))
	require.NoError(t, err)

	_, err = f.Run(context.Background())
	require.Error(t, err)
	assert.True(t, source.IsOpenError(err))
	assert.Empty(t, sink.got())
}

func TestRun_CancelledContext(t *testing.T) {
	sink := &fakeSink{}
	f, logs := setup(t, "a\nb\n", 1, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := f.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, sink.got())
	assert.Equal(t, 0, sum.Lines)
	assert.Contains(t, logs.String(), "forwarding interrupted")
}

func TestNew_Errors(t *testing.T) {
	var cfg Config
	cfg.Default()
	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, ErrNoSink)

	cfg.Workers = 0
	_, err = New(cfg, &fakeSink{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "forwarder.workers")
}
