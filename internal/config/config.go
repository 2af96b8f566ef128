// Package config loads corosyncctl settings from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/corosync/corosync-go/pkg/corosync/cpg"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Config is the top-level corosyncctl configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Trace   TraceConfig   `yaml:"trace"`
	Cpg     CpgConfig     `yaml:"cpg"`
	Cfg     CfgConfig     `yaml:"cfg"`
	Loop    LoopConfig    `yaml:"loop"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// MetricsConfig enables the Prometheus endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`
}

type TraceConfig struct {
	Enabled bool `yaml:"enabled"`
}

type CpgConfig struct {
	Group     string `yaml:"group"`
	Guarantee string `yaml:"guarantee" validate:"oneof=unordered fifo agreed safe"`
}

type CfgConfig struct {
	// ShutdownReply is sent by "cfg watch" when the daemon asks for
	// permission to shut down.
	ShutdownReply string `yaml:"shutdown_reply" validate:"oneof=yes no"`
}

type LoopConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" validate:"gt=0"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:  LogConfig{Level: "info", Format: "text"},
		Cpg:  CpgConfig{Guarantee: "agreed"},
		Cfg:  CfgConfig{ShutdownReply: "yes"},
		Loop: LoopConfig{PollInterval: 200 * time.Millisecond},
	}
}

// Load reads path over the defaults and validates the result. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if len(c.Cpg.Group) > cpg.CpgNameMax {
		return fmt.Errorf("cpg.group: exceeds maximum length of %d bytes", cpg.CpgNameMax)
	}
	if strings.IndexByte(c.Cpg.Group, 0) >= 0 {
		return errors.New("cpg.group: must not contain NUL bytes")
	}
	return nil
}

// SlogLevel maps Log.Level to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var fieldNames = map[string]string{
	"Level":         "log.level",
	"Format":        "log.format",
	"Listen":        "metrics.listen",
	"Guarantee":     "cpg.guarantee",
	"ShutdownReply": "cfg.shutdown_reply",
	"PollInterval":  "loop.poll_interval",
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := e.Field()
		if name, ok := fieldNames[field]; ok {
			field = name
		}
		switch e.Tag() {
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s], got %q", field, e.Param(), e.Value())
		case "hostname_port":
			return fmt.Errorf("%s: must be host:port, got %q", field, e.Value())
		case "gt":
			return fmt.Errorf("%s: must be positive", field)
		default:
			return fmt.Errorf("%s: failed validation '%s'", field, e.Tag())
		}
	}
	return err
}
