package firehose

import "fmt"

// Firehose API version the SDK client speaks.
const APIVersion = "2015-08-04"

// Config identifies the delivery stream. It is built once at startup and
// passed by value.
type Config struct {
	APIVersion string `mapstructure:"api-version"`
	// Endpoint overrides the SDK's regional endpoint
	// (https://firehose.<region>.amazonaws.com), e.g. http://localhost:4566
	// for localstack. Empty follows Region.
	Endpoint   string `mapstructure:"endpoint"`
	Region     string `mapstructure:"region"`
	StreamName string `mapstructure:"stream-name"`
}

// DefaultConfig returns the stock stream settings.
func DefaultConfig() Config {
	return Config{
		APIVersion: APIVersion,
		Region:     "us-east-1",
		StreamName: "apache-access-logs",
	}
}

func (c Config) Validate() error {
	if c.StreamName == "" {
		return fmt.Errorf("sink.firehose.stream-name is required")
	}
	if c.Region == "" {
		return fmt.Errorf("sink.firehose.region is required")
	}
	if c.APIVersion != "" && c.APIVersion != APIVersion {
		return fmt.Errorf("sink.firehose.api-version %q is not supported (want %s)", c.APIVersion, APIVersion)
	}
	return nil
}
