package main

import (
	"fmt"
	"log/slog"
	"strings"

	cmdmetrics "github.com/loykin/logpush/cmd/logpush/metrics"
	"github.com/loykin/logpush/cmd/logpush/sink/clickhouse"
	"github.com/loykin/logpush/cmd/logpush/sink/console"
	"github.com/loykin/logpush/cmd/logpush/sink/file"
	"github.com/loykin/logpush/cmd/logpush/sink/firehose"
	"github.com/loykin/logpush/cmd/logpush/sink/opensearch"
	"github.com/loykin/logpush/internal/forwarder"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SinkConfig selects the single destination of a run and holds the
// settings of every backend.
type SinkConfig struct {
	Type   string            `mapstructure:"type"`   // "firehose", "console", "file", "opensearch", "clickhouse"
	Host   string            `mapstructure:"host"`   // override host; default os.Hostname()
	Labels map[string]string `mapstructure:"labels"` // optional key-value labels for document sinks

	Firehose   firehose.Config   `mapstructure:"firehose"`
	Console    console.Config    `mapstructure:"console"`
	File       file.Config       `mapstructure:"file"`
	OpenSearch opensearch.Config `mapstructure:"opensearch"`
	ClickHouse clickhouse.Config `mapstructure:"clickhouse"`
}

// DeadLetterConfig enables capture of failed records for later replay.
type DeadLetterConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// LogConfig controls the process log.
type LogConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // text or json
	File       string `mapstructure:"file"`   // empty logs to stderr
	MaxSizeMB  int    `mapstructure:"max-size-mb"`
	MaxBackups int    `mapstructure:"max-backups"`
}

// Config holds all configuration options for logpush.
type Config struct {
	// Optional config file path (flag/env only)
	ConfigFile string
	Forwarder  forwarder.Config  `mapstructure:"forwarder"`
	Sink       SinkConfig        `mapstructure:"sink"`
	DeadLetter DeadLetterConfig  `mapstructure:"dead-letter"`
	Log        LogConfig         `mapstructure:"log"`
	Prometheus cmdmetrics.Config `mapstructure:"prometheus"`
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"input":             "forwarder.path",
	"separator":         "forwarder.separator",
	"workers":           "forwarder.workers",
	"sink":              "sink.type",
	"stream":            "sink.firehose.stream-name",
	"region":            "sink.firehose.region",
	"endpoint":          "sink.firehose.endpoint",
	"dead-letter":       "dead-letter.enable",
	"dead-letter-path":  "dead-letter.path",
	"log-level":         "log.level",
	"log-format":        "log.format",
	"log-file":          "log.file",
	"prometheus.enable": "prometheus.enable",
	"prometheus.addr":   "prometheus.addr",
}

// envKeys can be set through LOGPUSH_* environment variables in addition
// to the keys that have a flag.
var envKeys = []string{
	"sink.host",
	"sink.firehose.api-version",
	"sink.console.stream",
	"sink.file.path",
	"sink.file.max-size-mb",
	"sink.file.max-backups",
	"sink.file.max-age-days",
	"sink.file.compress",
	"sink.opensearch.url",
	"sink.opensearch.index",
	"sink.opensearch.user",
	"sink.opensearch.password",
	"sink.clickhouse.addr",
	"sink.clickhouse.database",
	"sink.clickhouse.table",
	"sink.clickhouse.user",
	"sink.clickhouse.password",
	"log.max-size-mb",
	"log.max-backups",
}

// LoadFromViper layers config file, environment and flags over the current
// values. Precedence: flag > env > file > defaults.
func (c *Config) LoadFromViper(flags *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix("LOGPUSH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}

	// --config flag or LOGPUSH_CONFIG env
	if c.ConfigFile == "" {
		_ = v.BindEnv("config")
		c.ConfigFile = v.GetString("config")
	}
	if c.ConfigFile != "" {
		v.SetConfigFile(c.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v.Unmarshal(c)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	cfg := &Config{
		Sink: SinkConfig{
			Type:     firehose.Name,
			Labels:   map[string]string{},
			Firehose: firehose.DefaultConfig(),
			Console:  console.Config{Stream: "stdout"},
			File:     file.Config{MaxSizeMB: 100, MaxBackups: 3},
		},
		DeadLetter: DeadLetterConfig{Enable: false, Path: "logpush-dead-letters.db"},
		Log:        LogConfig{Level: "info", Format: "text", MaxSizeMB: 50, MaxBackups: 3},
		Prometheus: cmdmetrics.Config{Enable: false, Addr: ":2112"},
	}
	cfg.Forwarder.Default()
	return cfg
}

// SetupFlags adds all command line flags to fs.
func (c *Config) SetupFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "Path to config file (yaml/json/toml)")

	fs.StringVarP(&c.Forwarder.Path, "input", "i", c.Forwarder.Path, "Log file to forward")
	fs.StringVar(&c.Forwarder.Separator, "separator", c.Forwarder.Separator, "Line separator (supports multi-byte like \\r\\n or tokens like <END>)")
	fs.IntVarP(&c.Forwarder.Workers, "workers", "w", c.Forwarder.Workers, "Maximum put-record calls in flight (1 keeps file order)")

	fs.StringVar(&c.Sink.Type, "sink", c.Sink.Type, "Sink type (firehose, console, file, opensearch, clickhouse)")
	fs.StringVar(&c.Sink.Firehose.StreamName, "stream", c.Sink.Firehose.StreamName, "Firehose delivery stream name")
	fs.StringVar(&c.Sink.Firehose.Region, "region", c.Sink.Firehose.Region, "AWS region of the delivery stream")
	fs.StringVar(&c.Sink.Firehose.Endpoint, "endpoint", c.Sink.Firehose.Endpoint, "Firehose endpoint URL (empty uses the SDK default)")

	fs.BoolVar(&c.DeadLetter.Enable, "dead-letter", c.DeadLetter.Enable, "Capture failed records for replay")
	fs.StringVar(&c.DeadLetter.Path, "dead-letter-path", c.DeadLetter.Path, "Path to the dead-letter SQLite DB")

	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "Log level (debug, info, warn, error)")
	fs.StringVar(&c.Log.Format, "log-format", c.Log.Format, "Log format (text or json)")
	fs.StringVar(&c.Log.File, "log-file", c.Log.File, "Write logs to a rotated file instead of stderr")

	// Backend credentials for opensearch/clickhouse are intentionally not
	// exposed as flags; use the config file or LOGPUSH_SINK_* variables.

	fs.BoolVar(&c.Prometheus.Enable, "prometheus.enable", c.Prometheus.Enable, "Enable Prometheus metrics HTTP endpoint")
	fs.StringVar(&c.Prometheus.Addr, "prometheus.addr", c.Prometheus.Addr, "Prometheus metrics listen address (e.g., :2112)")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Sink.Type {
	case firehose.Name:
		if err := c.Sink.Firehose.Validate(); err != nil {
			return err
		}
	case console.Name:
		if err := c.Sink.Console.Validate(); err != nil {
			return err
		}
	case file.Name:
		if err := c.Sink.File.Validate(); err != nil {
			return err
		}
	case opensearch.Name:
		if err := c.Sink.OpenSearch.Validate(); err != nil {
			return err
		}
	case clickhouse.Name:
		if err := c.Sink.ClickHouse.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid sink.type: %q", c.Sink.Type)
	}

	if c.DeadLetter.Enable && c.DeadLetter.Path == "" {
		return fmt.Errorf("dead-letter.path must be set when dead-letter.enable is true")
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}

	if c.Prometheus.Enable && c.Prometheus.Addr == "" {
		return fmt.Errorf("prometheus.addr must be set when prometheus.enable is true")
	}

	if err := c.Forwarder.Validate(); err != nil {
		return fmt.Errorf("invalid forwarder config: %w", err)
	}
	return nil
}
