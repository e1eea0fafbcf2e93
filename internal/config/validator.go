package config

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/ironsheep/subject-palette/internal/extract"
)

// MaxClusters bounds extractor.k and segmenter.components
const MaxClusters = 16

// MaxClusters is the largest k the configured algorithm accepts.
func (e ExtractorConfig) MaxClusters() int {
	if m := extract.Algorithm(e.Algorithm).MaxK(); m > 0 {
		return min(m, MaxClusters)
	}
	return MaxClusters
}

// Validate checks if the configuration is valid, filling defaults for
// values left empty
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}

	// Validate segmenter
	s := cfg.Segmenter
	if s.Threshold < 0 || s.Threshold > 255 {
		return fmt.Errorf("segmenter.threshold must be in 0-255, got %d", s.Threshold)
	}
	if s.Margin < 0 {
		return fmt.Errorf("segmenter.margin must be >= 0")
	}
	if s.Iterations < 1 {
		return fmt.Errorf("segmenter.iterations must be >= 1")
	}
	if s.Components < 1 || s.Components > MaxClusters {
		return fmt.Errorf("segmenter.components must be in 1-%d, got %d", MaxClusters, s.Components)
	}
	if s.Gamma <= 0 {
		return fmt.Errorf("segmenter.gamma must be > 0")
	}
	if s.MaxSide < 0 {
		return fmt.Errorf("segmenter.max_side must be >= 0")
	}

	// Validate extractor
	e := &cfg.Extractor
	if e.Algorithm == "" {
		e.Algorithm = string(extract.AlgorithmLloyd)
	}
	if !extract.IsValidAlgorithm(extract.Algorithm(e.Algorithm)) {
		return fmt.Errorf("extractor.algorithm must be one of %v, got %q", extract.ValidAlgorithms(), e.Algorithm)
	}
	if maxK := e.MaxClusters(); e.K < 1 || e.K > maxK {
		return fmt.Errorf("extractor.k must be in 1-%d for algorithm %s, got %d", maxK, e.Algorithm, e.K)
	}
	if e.MaxSamples < 0 {
		return fmt.Errorf("extractor.max_samples must be >= 0")
	}
	if e.MaxIterations <= 0 {
		e.MaxIterations = 300 // default
	}

	// Validate palette
	if math.IsNaN(cfg.Palette.Threshold) || cfg.Palette.Threshold < 0 {
		return fmt.Errorf("palette.threshold must be >= 0")
	}

	// Validate cache schedule
	if cfg.Cache.ClearSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Cache.ClearSchedule); err != nil {
			return fmt.Errorf("cache.clear_schedule: %w", err)
		}
	}

	return validateLog(&cfg.Log)
}

func validateServer(s *ServerConfig) error {
	if s.Addr == "" {
		s.Addr = ":5000"
	}
	if s.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be > 0")
	}
	if s.ReadTimeoutS < 0 || s.WriteTimeoutS < 0 {
		return fmt.Errorf("server timeouts must be >= 0")
	}
	if s.ShutdownTimeoutS <= 0 {
		s.ShutdownTimeoutS = 5 // default
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = []string{"*"}
	}
	for _, o := range s.CORSOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("server.cors_origins: %q must be \"*\" or an http(s) origin", o)
		}
	}
	return nil
}

var logLevels = []string{"debug", "info", "warn", "warning", "error"}

func validateLog(l *LogConfig) error {
	if l.Level == "" {
		l.Level = "info"
	}
	if !slices.Contains(logLevels, strings.ToLower(l.Level)) {
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", l.Level)
	}
	switch l.Format {
	case "":
		l.Format = "json"
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", l.Format)
	}
	return nil
}
