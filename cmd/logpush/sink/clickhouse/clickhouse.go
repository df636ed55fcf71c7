package clickhouse

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/loykin/logpush/cmd/logpush/sink/common"
)

const Name = "clickhouse"

// Sink inserts one row per record.
type Sink struct {
	conn   ch.Conn
	table  string
	host   string
	labels map[string]string
}

// Options translates the configured address into driver options.
// Addresses with a scheme use the HTTP protocol, others the native one.
func Options(cfg Config) (*ch.Options, error) {
	auth := ch.Auth{Username: cfg.User, Password: cfg.Password, Database: cfg.Database}
	if !strings.Contains(cfg.Addr, "://") {
		return &ch.Options{Addr: []string{cfg.Addr}, Auth: auth}, nil
	}
	u, err := url.Parse(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid ch addr: %w", err)
	}
	opts := &ch.Options{Addr: []string{u.Host}, Protocol: ch.HTTP, Auth: auth}
	if u.Scheme == "https" {
		opts.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

func New(cfg Config, host string, labels map[string]string) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(opts, cfg.FullTable()); err != nil {
		return nil, err
	}
	conn, err := ch.Open(opts)
	if err != nil {
		return nil, err
	}
	if labels == nil {
		labels = map[string]string{}
	}
	return &Sink{conn: conn, table: cfg.FullTable(), host: host, labels: labels}, nil
}

func (s *Sink) Name() string { return Name }

func (s *Sink) Put(ctx context.Context, data []byte) (rc common.Receipt, err error) {
	start := time.Now()
	defer func() { common.Observe(Name, start, err) }()

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+s.table+" (ts, host, labels, message)")
	if err != nil {
		return rc, err
	}
	if err = batch.Append(time.Now(), s.host, s.labels, string(data)); err != nil {
		_ = batch.Abort()
		return rc, err
	}
	if err = batch.Send(); err != nil {
		return rc, err
	}
	return rc, nil
}

func (s *Sink) Close() error { return s.conn.Close() }
