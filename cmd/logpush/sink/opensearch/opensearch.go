package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/loykin/logpush/cmd/logpush/sink/common"
	osclient "github.com/opensearch-project/opensearch-go"
	"github.com/opensearch-project/opensearch-go/opensearchapi"
)

const Name = "opensearch"

// Sink indexes one document per record.
type Sink struct {
	client *osclient.Client
	index  string
	host   string
	labels map[string]string
}

type document struct {
	Timestamp string            `json:"@timestamp"`
	Message   string            `json:"message"`
	Host      string            `json:"host,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
}

func New(cfg Config, host string, labels map[string]string) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ocfg := osclient.Config{Addresses: []string{cfg.URL}}
	if cfg.User != "" {
		ocfg.Username = cfg.User
		ocfg.Password = cfg.Password
	}
	cli, err := osclient.NewClient(ocfg)
	if err != nil {
		return nil, err
	}
	return &Sink{client: cli, index: cfg.Index, host: host, labels: labels}, nil
}

func (s *Sink) Name() string { return Name }

func (s *Sink) Put(ctx context.Context, data []byte) (rc common.Receipt, err error) {
	start := time.Now()
	defer func() { common.Observe(Name, start, err) }()

	b, err := json.Marshal(document{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Message:   string(data),
		Host:      s.host,
		Labels:    s.labels,
	})
	if err != nil {
		return rc, err
	}
	req := opensearchapi.IndexRequest{
		Index: s.index,
		Body:  bytes.NewReader(b),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return rc, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return rc, fmt.Errorf("opensearch index failed: %s", res.String())
	}
	var body struct {
		ID     string `json:"_id"`
		Result string `json:"result"`
	}
	if err = json.NewDecoder(res.Body).Decode(&body); err != nil {
		return rc, fmt.Errorf("decode opensearch response: %w", err)
	}
	rc.RecordID = body.ID
	return rc, nil
}

func (s *Sink) Close() error { return nil }
