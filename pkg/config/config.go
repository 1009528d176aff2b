// Package config loads the optional loom.yaml engine configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the optional loom.yaml configuration.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Trace  TraceConfig  `yaml:"trace"`
}

// EngineConfig contains element tree settings.
type EngineConfig struct {
	// MaxElements is the element arena capacity. Inflating beyond it
	// fails. Defaults to 10000.
	MaxElements int `yaml:"max_elements,omitempty"`
}

// TraceConfig contains frame tracing settings.
type TraceConfig struct {
	// Samples is the size of the frame sample ring buffer. Defaults to 240.
	Samples int `yaml:"samples,omitempty"`
	// SlowFrameMs is the threshold above which a frame is logged as slow,
	// in milliseconds. Defaults to one 60 Hz frame budget.
	SlowFrameMs float64 `yaml:"slow_frame_ms,omitempty"`
}

const (
	defaultMaxElements = 10000
	defaultSamples     = 240
)

// defaultSlowFrame is one frame at 60 Hz.
var defaultSlowFrame = time.Second / 60

// Default returns the configuration used when no loom.yaml is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadOptional reads loom.yaml from dir if present. A missing file yields
// the defaults; a malformed file is an error.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, "loom.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read loom.yaml: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse loom.yaml: %w", err)
	}
	if cfg.Engine.MaxElements < 0 {
		return nil, fmt.Errorf("engine.max_elements must be positive (got %d)", cfg.Engine.MaxElements)
	}
	if cfg.Trace.SlowFrameMs < 0 {
		return nil, fmt.Errorf("trace.slow_frame_ms must be positive (got %g)", cfg.Trace.SlowFrameMs)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.MaxElements == 0 {
		c.Engine.MaxElements = defaultMaxElements
	}
	if c.Trace.Samples == 0 {
		c.Trace.Samples = defaultSamples
	}
	if c.Trace.SlowFrameMs == 0 {
		c.Trace.SlowFrameMs = float64(defaultSlowFrame) / float64(time.Millisecond)
	}
}

// SlowFrame returns the slow frame threshold as a duration.
func (c *Config) SlowFrame() time.Duration {
	return time.Duration(c.Trace.SlowFrameMs * float64(time.Millisecond))
}
