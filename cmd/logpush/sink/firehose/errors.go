package firehose

import (
	"errors"
	"fmt"
	"log/slog"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
)

// ErrRecordTooLarge is returned for payloads above MaxRecordSize. No request is sent.
var ErrRecordTooLarge = errors.New("record exceeds maximum firehose record size")

// PutError describes a failed PutRecord call with the service diagnostics
// that were available.
type PutError struct {
	Stream     string
	Code       string
	Message    string
	StatusCode int
	RequestID  string
	Err        error
}

func newPutError(stream string, err error) *PutError {
	pe := &PutError{Stream: stream, Err: err}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		pe.Code = apiErr.ErrorCode()
		pe.Message = apiErr.ErrorMessage()
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		pe.StatusCode = respErr.HTTPStatusCode()
		pe.RequestID = respErr.ServiceRequestID()
	}
	return pe
}

func (e *PutError) Error() string {
	return fmt.Sprintf("firehose put record to %s: %v", e.Stream, e.Err)
}

func (e *PutError) Unwrap() error { return e.Err }

func (e *PutError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("msg", e.Error()),
		slog.String("stream", e.Stream),
	}
	if e.Code != "" {
		attrs = append(attrs, slog.String("code", e.Code))
	}
	if e.StatusCode != 0 {
		attrs = append(attrs, slog.Int("status", e.StatusCode))
	}
	if e.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", e.RequestID))
	}
	return slog.GroupValue(attrs...)
}
