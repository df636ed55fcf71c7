package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	putTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logpush",
			Subsystem: "sink",
			Name:      "put_total",
			Help:      "Total number of put-record calls by outcome.",
		},
		[]string{"sink", "outcome"},
	)
	putDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "logpush",
			Subsystem: "sink",
			Name:      "put_duration_seconds",
			Help:      "Duration of put-record calls in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"sink"},
	)
)

// Register registers sink-related metrics to the provided Prometheus registerer.
// Safe to call multiple times; AlreadyRegistered is ignored.
func Register(r prometheus.Registerer) error {
	collectors := []prometheus.Collector{putTotal, putDuration}
	for _, c := range collectors {
		if err := r.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// SinkPutObserve records the outcome and duration of one put-record call.
func SinkPutObserve(sink string, dur time.Duration, success bool) {
	if sink == "" {
		sink = "unknown"
	}
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeFailure
	}
	putTotal.WithLabelValues(sink, outcome).Inc()
	putDuration.WithLabelValues(sink).Observe(dur.Seconds())
}
