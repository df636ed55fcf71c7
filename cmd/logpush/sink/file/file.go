package file

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/loykin/logpush/cmd/logpush/sink/common"

	"gopkg.in/natefinch/lumberjack.v2"
)

const Name = "file"

// Sink appends every record as one line to a size-rotated file.
type Sink struct {
	mu  sync.Mutex
	out *lumberjack.Logger
	seq uint64
}

func New(cfg Config) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sink{out: &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}}, nil
}

func (s *Sink) Name() string { return Name }

func (s *Sink) Put(_ context.Context, data []byte) (rc common.Receipt, err error) {
	start := time.Now()
	defer func() { common.Observe(Name, start, err) }()

	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, data...)
	buf = append(buf, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err = s.out.Write(buf); err != nil {
		return rc, err
	}
	s.seq++
	rc.RecordID = strconv.FormatUint(s.seq, 10)
	return rc, nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Close()
}
