package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	linesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "logpush",
		Name:      "lines_total",
		Help:      "Total number of lines read from the source file.",
	})
	bytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "logpush",
		Name:      "bytes_total",
		Help:      "Total number of payload bytes handed to the sink (excludes separators).",
	})
	readErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "logpush",
		Name:      "read_errors_total",
		Help:      "Total number of errors encountered while reading the source file.",
	})
	inflightPuts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "logpush",
		Name:      "inflight_puts",
		Help:      "Current number of put-record calls in flight.",
	})
	deadLetteredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "logpush",
		Name:      "dead_lettered_total",
		Help:      "Total number of failed records captured in the dead-letter store.",
	})
)

// Register registers all forwarding metrics to the provided Prometheus registerer.
// It is safe to call multiple times; AlreadyRegisteredError will be ignored.
func Register(r prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		linesTotal, bytesTotal, readErrorsTotal, inflightPuts, deadLetteredTotal,
	}
	for _, c := range collectors {
		if err := r.Register(c); err != nil {
			var alreadyRegisteredError prometheus.AlreadyRegisteredError
			if errors.As(err, &alreadyRegisteredError) {
				continue
			}
			return err
		}
	}
	return nil
}

// IncLines increments the lines counter by n.
func IncLines(n int) {
	if n > 0 {
		linesTotal.Add(float64(n))
	}
}

// AddBytes adds n to the bytes counter.
func AddBytes(n int) {
	if n > 0 {
		bytesTotal.Add(float64(n))
	}
}

func IncReadErrors() { readErrorsTotal.Inc() }

func IncInflight() { inflightPuts.Inc() }

func DecInflight() { inflightPuts.Dec() }

func IncDeadLettered() { deadLetteredTotal.Inc() }
