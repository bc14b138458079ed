// Package config loads service configuration from YAML or TOML files and
// TOPICWEB_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/TFMV/topicweb/filter"
	"github.com/TFMV/topicweb/interact"
	"github.com/TFMV/topicweb/physics"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when a configuration fails validation
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix prefixes every environment override
const EnvPrefix = "TOPICWEB_"

var validate = validator.New()

// Config holds topicweb configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server" toml:"server"`
	Dataset     DatasetConfig     `yaml:"dataset" toml:"dataset"`
	Filter      filter.Options    `yaml:"filter" toml:"filter"`
	Physics     physics.Params    `yaml:"physics" toml:"physics"`
	Interaction InteractionConfig `yaml:"interaction" toml:"interaction"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr           string        `yaml:"addr" toml:"addr" validate:"required"`
	AllowedOrigins []string      `yaml:"allowed_origins" toml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout" toml:"read_timeout" validate:"gte=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" toml:"write_timeout" validate:"gte=0"`
	StreamBuffer   int           `yaml:"stream_buffer" toml:"stream_buffer" validate:"gt=0"`
}

// DatasetConfig controls where the keyword network is read from.
type DatasetConfig struct {
	Source   string        `yaml:"source" toml:"source" validate:"required"`
	Watch    bool          `yaml:"watch" toml:"watch"`
	Strict   bool          `yaml:"strict" toml:"strict"`
	Debounce time.Duration `yaml:"debounce" toml:"debounce" validate:"gte=0"`
	Timeout  time.Duration `yaml:"timeout" toml:"timeout" validate:"gte=0"`
}

// InteractionConfig bounds the threshold control and sets the tick rate.
type InteractionConfig struct {
	ThresholdMin float64       `yaml:"threshold_min" toml:"threshold_min" validate:"gte=0"`
	ThresholdMax float64       `yaml:"threshold_max" toml:"threshold_max" validate:"gtfield=ThresholdMin"`
	TickInterval time.Duration `yaml:"tick_interval" toml:"tick_interval" validate:"gt=0"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level       string `yaml:"level" toml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Development bool   `yaml:"development" toml:"development"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			StreamBuffer: 16,
		},
		Dataset: DatasetConfig{
			Source:   "data/keyword_network.json",
			Debounce: 500 * time.Millisecond,
			Timeout:  30 * time.Second,
		},
		Filter:  filter.DefaultOptions(),
		Physics: physics.DefaultParams(),
		Interaction: InteractionConfig{
			ThresholdMin: interact.DefaultThresholdMin,
			ThresholdMax: interact.DefaultThresholdMax,
			TickInterval: physics.DefaultTickInterval,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the file at path on top of the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, cfg)
		case ".toml":
			err = toml.Unmarshal(data, cfg)
		default:
			return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from TOPICWEB_* variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("ADDR", &c.Server.Addr)
	str("DATASET", &c.Dataset.Source)
	str("LOG_LEVEL", &c.Logging.Level)

	if v, ok := lookup(EnvPrefix + "ALLOWED_ORIGINS"); ok {
		c.Server.AllowedOrigins = splitList(v)
	}

	bools := map[string]*bool{
		"WATCH":           &c.Dataset.Watch,
		"STRICT":          &c.Dataset.Strict,
		"LOG_DEVELOPMENT": &c.Logging.Development,
	}
	for name, dst := range bools {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, name, err)
			}
			*dst = b
		}
	}

	floats := map[string]*float64{
		"MIN_EDGE_WEIGHT": &c.Filter.MinEdgeWeight,
		"WIDTH":           &c.Physics.Width,
		"HEIGHT":          &c.Physics.Height,
	}
	for name, dst := range floats {
		if v, ok := lookup(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, name, err)
			}
			*dst = f
		}
	}

	if v, ok := lookup(EnvPrefix + "SEED"); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %sSEED: %v", ErrInvalid, EnvPrefix, err)
		}
		c.Physics.Seed = seed
	}
	return nil
}

// Validate checks field constraints and that the starting threshold lies
// inside the threshold control range
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, formatValidationError(err))
	}
	if w := c.Filter.MinEdgeWeight; w < c.Interaction.ThresholdMin || w > c.Interaction.ThresholdMax {
		return fmt.Errorf("%w: filter.min_edge_weight %g outside [%g, %g]",
			ErrInvalid, w, c.Interaction.ThresholdMin, c.Interaction.ThresholdMax)
	}
	return nil
}

// InteractOptions converts the configuration into controller options
func (c *Config) InteractOptions() interact.Options {
	opts := interact.DefaultOptions()
	opts.Filter = c.Filter
	opts.Physics = c.Physics
	opts.ThresholdMin = c.Interaction.ThresholdMin
	opts.ThresholdMax = c.Interaction.ThresholdMax
	opts.TickInterval = c.Interaction.TickInterval
	return opts
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
