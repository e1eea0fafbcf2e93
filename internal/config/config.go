package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete palette service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Segmenter SegmenterConfig `yaml:"segmenter"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Palette   PaletteConfig   `yaml:"palette"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Addr             string   `yaml:"addr"`
	MaxUploadMB      int      `yaml:"max_upload_mb"`
	ReadTimeoutS     int      `yaml:"read_timeout_s"`
	WriteTimeoutS    int      `yaml:"write_timeout_s"`
	ShutdownTimeoutS int      `yaml:"shutdown_timeout_s"` // Graceful shutdown timeout in seconds (default: 5)
	CORSOrigins      []string `yaml:"cors_origins"`       // "*" allows any origin
}

// SegmenterConfig contains foreground segmentation settings
type SegmenterConfig struct {
	Threshold  int     `yaml:"threshold"` // seed luminance level, 0-255
	Margin     int     `yaml:"margin"`    // region of interest inset, pixels
	Iterations int     `yaml:"iterations"`
	Components int     `yaml:"components"` // Gaussians per colour model
	Gamma      float64 `yaml:"gamma"`
	MaxSide    int     `yaml:"max_side"` // 0 disables downscaling
}

// ExtractorConfig contains colour clustering settings
type ExtractorConfig struct {
	K             int    `yaml:"k"`
	Seed          int64  `yaml:"seed"`
	MaxSamples    int    `yaml:"max_samples"`
	Algorithm     string `yaml:"algorithm"` // lloyd, muesli
	MaxIterations int    `yaml:"max_iterations"`
}

// PaletteConfig contains deduplication settings
type PaletteConfig struct {
	Threshold float64 `yaml:"threshold"` // CIEDE2000 units
}

// CacheConfig contains image cache settings
type CacheConfig struct {
	ClearSchedule string `yaml:"clear_schedule"` // cron expression, empty disables
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:             ":5000",
			MaxUploadMB:      16,
			ReadTimeoutS:     30,
			WriteTimeoutS:    60,
			ShutdownTimeoutS: 5,
			CORSOrigins:      []string{"*"},
		},
		Segmenter: SegmenterConfig{
			Threshold:  128,
			Margin:     10,
			Iterations: 5,
			Components: 5,
			Gamma:      50,
			MaxSide:    200,
		},
		Extractor: ExtractorConfig{
			K:             1,
			Seed:          42,
			MaxSamples:    50000,
			Algorithm:     "lloyd",
			MaxIterations: 300,
		},
		Palette: PaletteConfig{
			Threshold: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML configuration file on top of Default
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration on top of Default and validates it
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SlogLevel maps the configured level name to a slog.Level
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MaxUploadBytes returns the upload size limit in bytes
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// ShutdownTimeout returns the graceful shutdown deadline
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutS) * time.Second
}

// ReadTimeout returns the HTTP read timeout
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutS) * time.Second
}

// WriteTimeout returns the HTTP write timeout
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutS) * time.Second
}
