// Package config loads grading settings from YAML and provides defaults.
package config

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"reticulin-grading/internal/algorithms"
	"reticulin-grading/internal/annotate"
	"reticulin-grading/internal/core"
)

// Threshold methods accepted by the segmenter
const (
	MethodFixed = core.MethodFixed
	MethodOtsu  = core.MethodOtsu
)

// Config represents the application configuration loaded from YAML
type Config struct {
	Segmentation struct {
		// Method is "fixed" (global cut at Threshold) or "otsu"
		Method string `yaml:"method"`

		// Threshold is the intensity below which an equalized pixel counts as fiber
		Threshold float64 `yaml:"threshold"`

		// KernelSize is the side of the square opening element
		KernelSize int `yaml:"kernelSize"`
	} `yaml:"segmentation"`

	Overlay struct {
		OffsetX     int     `yaml:"offsetX"`
		OffsetY     int     `yaml:"offsetY"`
		Color       [3]int  `yaml:"color"` // RGB
		FontPath    string  `yaml:"fontPath"`
		FontSize    float64 `yaml:"fontSize"`
		LineSpacing float64 `yaml:"lineSpacing"`
	} `yaml:"overlay"`

	Output struct {
		// Dir receives artifacts; empty means a fresh temp dir
		Dir string `yaml:"dir"`

		// Keep leaves a temp output dir on disk after the run
		Keep bool `yaml:"keep"`

		ArchiveName string `yaml:"archiveName"`
		ReportName  string `yaml:"reportName"`
	} `yaml:"output"`

	Processing struct {
		// Workers bounds how many images are graded at once
		Workers int `yaml:"workers"`
	} `yaml:"processing"`

	Logging struct {
		Debug bool `yaml:"debug"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Segmentation.Method = MethodFixed
	cfg.Segmentation.Threshold = algorithms.DefaultThreshold
	cfg.Segmentation.KernelSize = algorithms.DefaultKernelSize

	style := annotate.DefaultStyle()
	cfg.Overlay.OffsetX = style.Origin.X
	cfg.Overlay.OffsetY = style.Origin.Y
	cfg.Overlay.Color = [3]int{int(style.Color.R), int(style.Color.G), int(style.Color.B)}
	cfg.Overlay.FontPath = "arial.ttf"
	cfg.Overlay.FontSize = style.FontSize
	cfg.Overlay.LineSpacing = style.LineSpacing

	cfg.Output.ArchiveName = "mf_batch_results.zip"
	cfg.Output.ReportName = "mf_batch_report.json"

	cfg.Processing.Workers = 1

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}

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
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	switch c.Segmentation.Method {
	case MethodFixed, MethodOtsu:
	default:
		return fmt.Errorf("segmentation.method must be %q or %q, got %q", MethodFixed, MethodOtsu, c.Segmentation.Method)
	}

	if c.Segmentation.Threshold < 0 || c.Segmentation.Threshold > 256 {
		return fmt.Errorf("segmentation.threshold must be between 0 and 256")
	}
	if c.Segmentation.KernelSize < 1 || c.Segmentation.KernelSize > 15 {
		return fmt.Errorf("segmentation.kernelSize must be between 1 and 15")
	}

	for _, v := range c.Overlay.Color {
		if v < 0 || v > 255 {
			return fmt.Errorf("overlay.color components must be between 0 and 255")
		}
	}
	if c.Overlay.FontSize <= 0 {
		return fmt.Errorf("overlay.fontSize must be positive")
	}

	if c.Output.ArchiveName == "" || c.Output.ReportName == "" {
		return fmt.Errorf("output.archiveName and output.reportName must be set")
	}

	if c.Processing.Workers < 1 {
		return fmt.Errorf("processing.workers must be at least 1")
	}

	return nil
}

// SegmentationParams converts the segmentation section for core.NewPipeline
func (c *Config) SegmentationParams() core.SegmentationParams {
	return core.SegmentationParams{
		Method:     c.Segmentation.Method,
		Threshold:  c.Segmentation.Threshold,
		KernelSize: c.Segmentation.KernelSize,
	}
}

// Style converts the overlay section into an annotate.Style
func (c *Config) Style() annotate.Style {
	return annotate.Style{
		Origin: image.Pt(c.Overlay.OffsetX, c.Overlay.OffsetY),
		Color: color.RGBA{
			R: uint8(c.Overlay.Color[0]),
			G: uint8(c.Overlay.Color[1]),
			B: uint8(c.Overlay.Color[2]),
			A: 255,
		},
		FontSize:    c.Overlay.FontSize,
		LineSpacing: c.Overlay.LineSpacing,
	}
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
	return SaveConfig(DefaultConfig(), configPath)
}
