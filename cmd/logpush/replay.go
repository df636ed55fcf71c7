package main

import (
	"context"
	"fmt"

	"github.com/loykin/logpush/internal/deadletter"
	"github.com/loykin/logpush/internal/forwarder"

	"github.com/spf13/cobra"
)

func newReplayCmd(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Send records captured in the dead-letter store once more",
		Long: `replay reads the dead-letter store written by "logpush --dead-letter" and
submits every record to the configured sink once. Accepted records are removed
from the store; records that fail again stay for the next replay.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), config)
		},
	}
}

func runReplay(ctx context.Context, config *Config) error {
	sess, err := setupSession(config)
	if err != nil {
		return err
	}
	defer sess.close()

	store, err := deadletter.NewSQLiteStore(config.DeadLetter.Path)
	if err != nil {
		return fmt.Errorf("error opening dead-letter store: %w", err)
	}
	defer func() { _ = store.Close() }()

	sink, err := buildSink(ctx, config)
	if err != nil {
		return fmt.Errorf("error creating sink: %w", err)
	}
	defer func() { _ = sink.Close() }()

	sum, err := forwarder.Replay(ctx, store, sink, sess.logger)
	if err != nil {
		return err
	}
	left, err := store.Count()
	if err != nil {
		return err
	}
	sess.logger.Info("replay finished", "summary", sum, "remaining", left)
	return nil
}
