package forwarder

import (
	"errors"
	"fmt"

	"github.com/loykin/logpush/internal/source"
)

// DefaultPath is the source file read when no path is configured.
const DefaultPath = "apache.log"

type Config struct {
	Path      string `mapstructure:"path"`
	Separator string `mapstructure:"separator"`
	// Workers caps the number of put-record calls in flight.
	// 1 sends one record at a time in file order.
	Workers int `mapstructure:"workers"`
}

func (c *Config) Default() {
	c.Path = DefaultPath
	c.Separator = source.DefaultSeparator
	c.Workers = 1
}

// Validate checks the forwarder configuration.
func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.New("forwarder.path must not be empty")
	}
	if c.Separator == "" {
		return errors.New("forwarder.separator must not be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("forwarder.workers must be >= 1, got %d", c.Workers)
	}
	return nil
}
