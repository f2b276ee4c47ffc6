// Package config provides configuration loading and management for roitrace.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// ROI drawing parameters
	ROI struct {
		// DefaultColor is the pen colour for new ROIs, as "#rrggbb"
		DefaultColor string `yaml:"defaultColor"`

		// LineWidth is the thickness given to new multi-segment lines
		LineWidth float64 `yaml:"lineWidth"`
	} `yaml:"roi"`

	// Trace display parameters
	Trace struct {
		// RedrawInterval is the pause between partial redraws during a drag
		RedrawInterval time.Duration `yaml:"redrawInterval"`

		// MultipleTraceWindows plots each ROI into its own display
		MultipleTraceWindows bool `yaml:"multipleTraceWindows"`

		// ShowAllFrames is passed through to display surfaces
		ShowAllFrames bool `yaml:"showAllFrames"`
	} `yaml:"trace"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// PlotWidth and PlotHeight size saved trace plots, in inches
		PlotWidth  float64 `yaml:"plotWidth"`
		PlotHeight float64 `yaml:"plotHeight"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.ROI.DefaultColor = "#ffff00"
	cfg.ROI.LineWidth = 1

	cfg.Trace.RedrawInterval = 50 * time.Millisecond
	cfg.Trace.MultipleTraceWindows = false
	cfg.Trace.ShowAllFrames = false

	cfg.Output.Verbose = false
	cfg.Output.PlotWidth = 8
	cfg.Output.PlotHeight = 4

	return cfg
}

// Validate replaces out-of-range values with their defaults and reports
// values that cannot be repaired.
func (c *Config) Validate() error {
	def := DefaultConfig()

	if c.ROI.LineWidth < 1 {
		c.ROI.LineWidth = def.ROI.LineWidth
	}
	if c.Trace.RedrawInterval <= 0 {
		c.Trace.RedrawInterval = def.Trace.RedrawInterval
	}
	if c.Output.PlotWidth <= 0 {
		c.Output.PlotWidth = def.Output.PlotWidth
	}
	if c.Output.PlotHeight <= 0 {
		c.Output.PlotHeight = def.Output.PlotHeight
	}
	if c.ROI.DefaultColor == "" {
		c.ROI.DefaultColor = def.ROI.DefaultColor
	}
	if _, err := ParseHexColor(c.ROI.DefaultColor); err != nil {
		return fmt.Errorf("roi.defaultColor: %w", err)
	}
	return nil
}

// PenColor returns the parsed default ROI colour.
func (c *Config) PenColor() color.Color {
	col, err := ParseHexColor(c.ROI.DefaultColor)
	if err != nil {
		col, _ = ParseHexColor(DefaultConfig().ROI.DefaultColor)
	}
	return col
}

// ParseHexColor parses "#rrggbb" (the leading '#' is optional).
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
