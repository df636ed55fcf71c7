package firehose

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	fh "github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/aws/aws-sdk-go-v2/service/firehose/types"

	"github.com/loykin/logpush/cmd/logpush/sink/common"
)

const (
	Name = "firehose"

	// MaxRecordSize is the largest record payload the service accepts.
	MaxRecordSize = 1000 * 1024
)

// Client is the part of the Firehose API the sink uses.
type Client interface {
	PutRecord(ctx context.Context, params *fh.PutRecordInput, optFns ...func(*fh.Options)) (*fh.PutRecordOutput, error)
}

var _ Client = (*fh.Client)(nil)

type Sink struct {
	client Client
	stream string
}

// New builds a sink on the default AWS credential chain. The SDK retryer is
// disabled so every record gets exactly one attempt.
func New(ctx context.Context, cfg Config) (common.Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := fh.NewFromConfig(awsCfg, func(o *fh.Options) {
		o.Retryer = aws.NopRetryer{}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithClient(client, cfg.StreamName), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client Client, stream string) *Sink {
	return &Sink{client: client, stream: stream}
}

func (s *Sink) Name() string { return Name }

// Put sends data as the payload of one record.
func (s *Sink) Put(ctx context.Context, data []byte) (rc common.Receipt, err error) {
	start := time.Now()
	defer func() { common.Observe(Name, start, err) }()

	if len(data) > MaxRecordSize {
		return rc, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, len(data))
	}
	out, err := s.client.PutRecord(ctx, &fh.PutRecordInput{
		DeliveryStreamName: aws.String(s.stream),
		Record:             &types.Record{Data: data},
	})
	if err != nil {
		return rc, newPutError(s.stream, err)
	}
	rc.RecordID = aws.ToString(out.RecordId)
	rc.Encrypted = aws.ToBool(out.Encrypted)
	return rc, nil
}

func (s *Sink) Close() error { return nil }
