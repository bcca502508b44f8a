package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/soilsense/internal/classifier"
	"github.com/MeKo-Tech/soilsense/internal/decision"
	"github.com/MeKo-Tech/soilsense/internal/models"
	"github.com/MeKo-Tech/soilsense/internal/onnx"
	"github.com/MeKo-Tech/soilsense/internal/pipeline"
	"github.com/MeKo-Tech/soilsense/internal/utils"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	pre := classifier.DefaultPreprocessConfig()
	return Config{
		ModelsDir: models.DefaultModelsDir,
		LogLevel:  "info",
		Verbose:   false,
		Model: ModelConfig{
			NumThreads:       0,
			Sessions:         1,
			WarmupIterations: 0,
		},
		Preprocess: PreprocessConfig{
			Width:     pre.Width,
			Height:    pre.Height,
			Channels:  pre.Channels,
			Layout:    string(pre.Layout),
			Filter:    pre.Filter,
			MaxPixels: utils.DefaultMaxPixels,
		},
		Decision: DecisionConfig{
			Threshold: decision.DefaultThreshold,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     16,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				MaxRequestsPerDay: 10000,
				MaxDataPerDayMB:   1024,
			},
		},
		GPU: GPUConfig{
			Enabled:     false,
			Device:      0,
			MemoryLimit: "auto",
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if c.Decision.Threshold < 0 || c.Decision.Threshold > 100 {
		return fmt.Errorf("invalid decision.threshold: %.2f (must be between 0 and 100)", c.Decision.Threshold)
	}

	if c.Preprocess.Width <= 0 || c.Preprocess.Height <= 0 {
		return fmt.Errorf("invalid preprocess size: %dx%d (must be positive)", c.Preprocess.Width, c.Preprocess.Height)
	}
	if c.Preprocess.Channels != 1 && c.Preprocess.Channels != 3 {
		return fmt.Errorf("invalid preprocess channels: %d (must be 1 or 3)", c.Preprocess.Channels)
	}
	if _, err := onnx.ParseLayout(c.Preprocess.Layout); err != nil {
		return fmt.Errorf("invalid preprocess layout: %w", err)
	}
	if _, err := utils.ParseResampleFilter(c.Preprocess.Filter); err != nil {
		return fmt.Errorf("invalid preprocess filter: %w", err)
	}
	if c.Preprocess.MaxPixels <= 0 {
		return fmt.Errorf("invalid preprocess max_pixels: %d (must be positive)", c.Preprocess.MaxPixels)
	}

	if c.Model.NumThreads < 0 {
		return fmt.Errorf("invalid model num_threads: %d (must not be negative)", c.Model.NumThreads)
	}
	if c.Model.Sessions <= 0 {
		return fmt.Errorf("invalid model sessions: %d (must be positive)", c.Model.Sessions)
	}
	if c.Model.WarmupIterations < 0 {
		return fmt.Errorf("invalid model warmup_iterations: %d (must not be negative)", c.Model.WarmupIterations)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDayMB < 0 {
		return fmt.Errorf("invalid rate limit: values must not be negative")
	}

	if _, err := onnx.ParseMemoryLimit(c.GPU.MemoryLimit); err != nil {
		return fmt.Errorf("invalid GPU memory limit: %w", err)
	}
	if c.GPU.Device < 0 {
		return fmt.Errorf("invalid GPU device: %d", c.GPU.Device)
	}

	return nil
}

// ModelPath resolves the classifier path from the explicit setting, the
// precision choice and the models directory.
func (c *Config) ModelPath() string {
	return models.GetClassifierModelPath(c.ModelsDir, c.Model.Path, c.Model.FP16)
}

// ToPipelineConfig converts the config to the internal pipeline configuration format.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.ModelsDir = c.ModelsDir
	cfg.Threshold = c.Decision.Threshold
	cfg.CatalogPath = c.Catalog.Path
	cfg.WarmupIterations = c.Model.WarmupIterations
	cfg.MaxPixels = c.Preprocess.MaxPixels
	cfg.Preprocess = c.toPreprocessConfig()
	cfg.Classifier = c.toClassifierConfig()
	return cfg
}

func (c *Config) toPreprocessConfig() classifier.PreprocessConfig {
	return classifier.PreprocessConfig{
		Width:    c.Preprocess.Width,
		Height:   c.Preprocess.Height,
		Channels: c.Preprocess.Channels,
		Layout:   onnx.Layout(strings.ToLower(c.Preprocess.Layout)),
		Filter:   strings.ToLower(c.Preprocess.Filter),
	}
}

func (c *Config) toClassifierConfig() classifier.Config {
	cfg := classifier.DefaultConfig()
	cfg.ModelPath = c.ModelPath()
	cfg.NumThreads = c.Model.NumThreads
	cfg.Sessions = c.Model.Sessions
	cfg.Width = c.Preprocess.Width
	cfg.Height = c.Preprocess.Height
	cfg.Channels = c.Preprocess.Channels
	cfg.Layout = onnx.Layout(strings.ToLower(c.Preprocess.Layout))
	cfg.GPU = c.toGPUConfig()
	return cfg
}

// toGPUConfig converts to onnx.GPUConfig. Validate rejects bad memory limits,
// so a parse failure here falls back to unlimited.
func (c *Config) toGPUConfig() onnx.GPUConfig {
	cfg := onnx.DefaultGPUConfig()
	cfg.UseGPU = c.GPU.Enabled
	cfg.DeviceID = c.GPU.Device
	if limit, err := onnx.ParseMemoryLimit(c.GPU.MemoryLimit); err == nil {
		cfg.GPUMemLimit = limit
	}
	return cfg
}
