package source

import (
	"errors"
	"fmt"
)

// ErrEmptySeparator is returned when a reader is opened with an empty separator.
var ErrEmptySeparator = errors.New("separator must not be empty")

// OpenError indicates that the source file could not be opened for reading.
// It is fatal for a forwarding run.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open source %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// IsOpenError checks if an error is an OpenError.
func IsOpenError(err error) bool {
	var oe *OpenError
	return errors.As(err, &oe)
}
