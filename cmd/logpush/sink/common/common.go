package common

import (
	"time"

	cmdmetrics "github.com/loykin/logpush/cmd/logpush/metrics"
	"github.com/loykin/logpush/internal/forwarder"
)

// Receipt is the response descriptor returned by a successful put.
type Receipt = forwarder.Receipt

// Sink is a record destination owned by the command: it puts one record
// per call and releases its connections on Close.
type Sink interface {
	forwarder.Sink
	Close() error
}

// Observe records the outcome of a put started at start.
func Observe(sink string, start time.Time, err error) {
	cmdmetrics.SinkPutObserve(sink, time.Since(start), err == nil)
}
