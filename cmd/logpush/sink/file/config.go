package file

import "fmt"

// Config holds file sink options. Rotation settings follow lumberjack.
type Config struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max-size-mb"`
	MaxBackups int    `mapstructure:"max-backups"`
	MaxAgeDays int    `mapstructure:"max-age-days"`
	Compress   bool   `mapstructure:"compress"`
}

func (c Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("sink.file.path must be set when sink.type is 'file'")
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("sink.file rotation settings must not be negative")
	}
	return nil
}
