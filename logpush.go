// Package logpush forwards the lines of a log file to a record sink, one
// put-record call per line.
//
// Library users can import the module root instead of the internal packages:
//
//	import "github.com/loykin/logpush"
//
// and use logpush.NewForwarder and logpush.Config directly.
package logpush

import (
	"github.com/loykin/logpush/internal/forwarder"
	"github.com/loykin/logpush/internal/metrics"
	"github.com/loykin/logpush/internal/source"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
)

// Config re-exports forwarder.Config for convenient use from the module root.
type Config = forwarder.Config

// Forwarder re-exports forwarder.Forwarder.
type Forwarder = forwarder.Forwarder

// Sink is the contract a record destination implements.
type Sink = forwarder.Sink

// Receipt is the response descriptor of an accepted record.
type Receipt = forwarder.Receipt

// Result is the outcome of delivering one line.
type Result = forwarder.Result

// Summary counts the outcomes of a run.
type Summary = forwarder.Summary

// Option configures a Forwarder.
type Option = forwarder.Option

// LogLine is one line of the source file.
type LogLine = source.LogLine

// Reader re-exports source.Reader for reading lines without forwarding them.
type Reader = source.Reader

var (
	WithFs          = forwarder.WithFs
	WithLogger      = forwarder.WithLogger
	WithDeadLetters = forwarder.WithDeadLetters
	WithResultHook  = forwarder.WithResultHook
)

// DefaultConfig returns the default forwarding configuration.
func DefaultConfig() Config {
	var c Config
	c.Default()
	return c
}

// NewForwarder constructs a Forwarder that sends every line of cfg.Path to sink.
func NewForwarder(cfg Config, sink Sink, opts ...Option) (*Forwarder, error) {
	return forwarder.New(cfg, sink, opts...)
}

// OpenReader opens path for line-by-line reading. A nil fs means the OS filesystem.
func OpenReader(fs afero.Fs, path, separator string) (*Reader, error) {
	return source.Open(fs, path, separator)
}

// StartMetrics registers the forwarding metrics on the default Prometheus
// registry and starts an HTTP server. It returns a stop function.
func StartMetrics(addr string) (func() error, error) {
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, err
	}
	srv, err := metrics.Start(addr)
	if err != nil {
		return nil, err
	}
	return srv.Stop, nil
}
