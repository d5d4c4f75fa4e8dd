// Package config loads run settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/beltcount/internal/counter"
	"github.com/ayusman/beltcount/internal/detector"
	"github.com/ayusman/beltcount/internal/metrics"
)

// Config holds every setting of a counting run.
type Config struct {
	Input    string `yaml:"input"`
	Output   string `yaml:"output"`
	LogFile  string `yaml:"log_file"`
	DBPath   string `yaml:"db_path"` // empty disables run history
	Display  bool   `yaml:"display"`
	HTTPAddr string `yaml:"http_addr"` // empty disables the monitoring server
	LogLevel string `yaml:"log_level"`

	Segmentation SegmentationConfig `yaml:"segmentation"`
	Detection    DetectionConfig    `yaml:"detection"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Counting     CountingConfig     `yaml:"counting"`
}

// SegmentationConfig holds the two HSV bands as [H, S, V] triples.
type SegmentationConfig struct {
	Lower1 []float64 `yaml:"lower1"`
	Upper1 []float64 `yaml:"upper1"`
	Lower2 []float64 `yaml:"lower2"`
	Upper2 []float64 `yaml:"upper2"`
}

// DetectionConfig holds blob filtering settings.
type DetectionConfig struct {
	MinArea float64 `yaml:"min_area"`
}

// MetricsConfig holds metric estimation settings.
type MetricsConfig struct {
	BeltHeight int `yaml:"belt_height"`
}

// CountingConfig holds detection line settings.
type CountingConfig struct {
	LineY       int    `yaml:"line_y"` // 0 means half the frame height
	Tolerance   int    `yaml:"tolerance"`
	Policy      string `yaml:"policy"`
	MatchRadius int    `yaml:"match_radius"`
}

// Default returns the built-in settings.
func Default() Config {
	det := detector.DefaultConfig()
	return Config{
		Input:    "cherries.mp4",
		Output:   "cherries_counted.mp4",
		LogFile:  "count_log.txt",
		LogLevel: "info",
		Segmentation: SegmentationConfig{
			Lower1: triple(det.Ranges[0].Lower),
			Upper1: triple(det.Ranges[0].Upper),
			Lower2: triple(det.Ranges[1].Lower),
			Upper2: triple(det.Ranges[1].Upper),
		},
		Detection: DetectionConfig{MinArea: det.MinArea},
		Metrics:   MetricsConfig{BeltHeight: metrics.DefaultBeltHeight},
		Counting: CountingConfig{
			Tolerance:   counter.DefaultTolerance,
			Policy:      string(counter.PolicyPerFrame),
			MatchRadius: counter.DefaultMatchRadius,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks structure only. Thresholds are trusted as given.
func Validate(cfg *Config) error {
	if cfg.Input == "" {
		return errors.New("input is required")
	}
	if _, err := counter.ParsePolicy(cfg.Counting.Policy); err != nil {
		return err
	}
	if cfg.Counting.Tolerance < 0 {
		return fmt.Errorf("counting.tolerance must be >= 0, got %d", cfg.Counting.Tolerance)
	}
	if cfg.Counting.MatchRadius < 0 {
		return fmt.Errorf("counting.match_radius must be >= 0, got %d", cfg.Counting.MatchRadius)
	}

	bands := map[string][]float64{
		"segmentation.lower1": cfg.Segmentation.Lower1,
		"segmentation.upper1": cfg.Segmentation.Upper1,
		"segmentation.lower2": cfg.Segmentation.Lower2,
		"segmentation.upper2": cfg.Segmentation.Upper2,
	}
	for key, v := range bands {
		if len(v) != 3 {
			return fmt.Errorf("%s must have 3 values [H, S, V], got %d", key, len(v))
		}
	}

	return nil
}

// DetectorConfig converts the segmentation and detection sections. A bound
// without exactly three values falls back to the built-in band.
func (c *Config) DetectorConfig() detector.Config {
	def := detector.DefaultConfig().Ranges
	return detector.Config{
		Ranges: [2]detector.HSVRange{
			{Lower: hsv(c.Segmentation.Lower1, def[0].Lower), Upper: hsv(c.Segmentation.Upper1, def[0].Upper)},
			{Lower: hsv(c.Segmentation.Lower2, def[1].Lower), Upper: hsv(c.Segmentation.Upper2, def[1].Upper)},
		},
		MinArea: c.Detection.MinArea,
	}
}

// CountingLine returns the detection line for a frame of the given height.
func (c *Config) CountingLine(frameHeight int) counter.Line {
	y := c.Counting.LineY
	if y == 0 {
		y = frameHeight / 2
	}
	return counter.Line{Y: y, Tolerance: c.Counting.Tolerance}
}

func triple(c detector.HSV) []float64 {
	return []float64{c.H, c.S, c.V}
}

func hsv(v []float64, fallback detector.HSV) detector.HSV {
	if len(v) != 3 {
		return fallback
	}
	return detector.HSV{H: v[0], S: v[1], V: v[2]}
}
