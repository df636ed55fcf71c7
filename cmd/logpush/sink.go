package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/loykin/logpush/cmd/logpush/sink/clickhouse"
	"github.com/loykin/logpush/cmd/logpush/sink/common"
	"github.com/loykin/logpush/cmd/logpush/sink/console"
	"github.com/loykin/logpush/cmd/logpush/sink/file"
	"github.com/loykin/logpush/cmd/logpush/sink/firehose"
	"github.com/loykin/logpush/cmd/logpush/sink/opensearch"
)

// Sink is the common sink interface from subpackages.
type Sink = common.Sink

// buildSink constructs the sink selected by cfg.Sink.Type.
func buildSink(ctx context.Context, cfg *Config) (Sink, error) {
	switch cfg.Sink.Type {
	case firehose.Name:
		return firehose.New(ctx, cfg.Sink.Firehose)
	case console.Name:
		return console.New(strings.ToLower(cfg.Sink.Console.Stream)), nil
	case file.Name:
		s, err := file.New(cfg.Sink.File)
		if err != nil {
			return nil, err
		}
		return s, nil
	case opensearch.Name:
		s, err := opensearch.New(cfg.Sink.OpenSearch, sinkHost(cfg), cfg.Sink.Labels)
		if err != nil {
			return nil, err
		}
		return s, nil
	case clickhouse.Name:
		s, err := clickhouse.New(cfg.Sink.ClickHouse, sinkHost(cfg), cfg.Sink.Labels)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported sink: %s", cfg.Sink.Type)
	}
}

func sinkHost(cfg *Config) string {
	if cfg.Sink.Host != "" {
		return cfg.Sink.Host
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return ""
}
