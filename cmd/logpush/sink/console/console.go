package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/loykin/logpush/cmd/logpush/sink/common"
)

const Name = "console"

// Sink prints every record instead of sending it anywhere. Useful as a dry run.
type Sink struct {
	mu  sync.Mutex
	w   io.Writer
	seq uint64
}

// New returns a console sink writing to stdout or stderr depending on stream.
func New(stream string) *Sink {
	var w io.Writer = os.Stdout
	if stream == "stderr" {
		w = os.Stderr
	}
	return NewWriter(w)
}

// NewWriter returns a console sink writing to w.
func NewWriter(w io.Writer) *Sink {
	return &Sink{w: w}
}

func (s *Sink) Name() string { return Name }

func (s *Sink) Put(_ context.Context, data []byte) (rc common.Receipt, err error) {
	start := time.Now()
	defer func() { common.Observe(Name, start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err = fmt.Fprintln(s.w, string(data)); err != nil {
		return rc, err
	}
	s.seq++
	rc.RecordID = strconv.FormatUint(s.seq, 10)
	return rc, nil
}

func (s *Sink) Close() error { return nil }
