package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/loykin/logpush"
	cmdmetrics "github.com/loykin/logpush/cmd/logpush/metrics"
	"github.com/loykin/logpush/internal/deadletter"
	"github.com/loykin/logpush/internal/forwarder"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(DefaultConfig()).ExecuteContext(ctx); err != nil {
		slog.Error(err.Error())
		stop()
		os.Exit(1)
	}
}

func newRootCmd(config *Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "logpush",
		Short: "Forward every line of a log file to a delivery stream",
		Long: `logpush reads a log file from start to end and submits each line as one
record to a delivery stream (Amazon Data Firehose by default). Every line gets
exactly one put-record attempt; failures are logged and the run continues.

Examples:
  # Forward ./apache.log to the default stream
  logpush

  # Forward another file to a named stream with 8 puts in flight
  logpush --input /var/log/httpd/access_log --stream web-logs --workers 8

  # Dry run: print records instead of sending them
  logpush --sink console

  # Keep failed records and send them again later
  logpush --dead-letter
  logpush replay`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadFromViper(cmd.Flags()); err != nil {
				return err
			}
			return config.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForwarder(cmd.Context(), config)
		},
	}

	config.SetupFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(newReplayCmd(config))
	return rootCmd
}

// session holds what both commands set up before touching the sink.
type session struct {
	logger  *slog.Logger
	cleanup []func() error
}

func (s *session) close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		_ = s.cleanup[i]()
	}
}

func setupSession(config *Config) (*session, error) {
	logger, closeLog, err := setupLogging(config.Log)
	if err != nil {
		return nil, err
	}
	sess := &session{logger: logger, cleanup: []func() error{closeLog}}

	if config.Prometheus.Enable {
		// Register our metrics explicitly to the default registry to avoid library init-time side effects
		if err := cmdmetrics.Register(prometheus.DefaultRegisterer); err != nil {
			sess.close()
			return nil, fmt.Errorf("failed to register prometheus metrics: %w", err)
		}
		stopMetrics, err := logpush.StartMetrics(config.Prometheus.Addr)
		if err != nil {
			sess.close()
			return nil, fmt.Errorf("failed to start prometheus endpoint: %w", err)
		}
		sess.cleanup = append(sess.cleanup, stopMetrics)
	}
	return sess, nil
}

func runForwarder(ctx context.Context, config *Config) error {
	sess, err := setupSession(config)
	if err != nil {
		return err
	}
	defer sess.close()

	sink, err := buildSink(ctx, config)
	if err != nil {
		return fmt.Errorf("error creating sink: %w", err)
	}
	defer func() { _ = sink.Close() }()

	opts := []forwarder.Option{forwarder.WithLogger(sess.logger)}
	if config.DeadLetter.Enable {
		store, err := deadletter.NewSQLiteStore(config.DeadLetter.Path)
		if err != nil {
			return fmt.Errorf("error opening dead-letter store: %w", err)
		}
		defer func() { _ = store.Close() }()
		opts = append(opts, forwarder.WithDeadLetters(store))
	}

	fw, err := forwarder.New(config.Forwarder, sink, opts...)
	if err != nil {
		return fmt.Errorf("error creating forwarder: %w", err)
	}
	_, err = fw.Run(ctx)
	return err
}
