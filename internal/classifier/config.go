package classifier

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/soilsense/internal/models"
	"github.com/MeKo-Tech/soilsense/internal/onnx"
)

// ErrConfiguration marks a model artifact that cannot serve the classifier
// contract. It is fatal at startup.
var ErrConfiguration = errors.New("classifier configuration error")

// Config holds configuration for the ONNX-backed classifier.
type Config struct {
	ModelPath  string
	NumThreads int
	// Sessions is the number of independent inference sessions. Each Predict
	// call holds one session exclusively, so 1 serializes all inference.
	Sessions int
	// Expected input geometry. Fixed model dimensions must match these.
	Width    int
	Height   int
	Channels int
	Layout   onnx.Layout
	GPU      onnx.GPUConfig
}

// DefaultConfig returns the default classifier configuration.
func DefaultConfig() Config {
	return Config{
		ModelPath:  models.GetClassifierModelPath("", "", false),
		NumThreads: 0,
		Sessions:   1,
		Width:      1024,
		Height:     1024,
		Channels:   3,
		Layout:     onnx.LayoutNHWC,
		GPU:        onnx.DefaultGPUConfig(),
	}
}

func validateConfig(cfg Config) error {
	if cfg.ModelPath == "" {
		return fmt.Errorf("%w: model path cannot be empty", ErrConfiguration)
	}
	if cfg.NumThreads < 0 {
		return fmt.Errorf("%w: num threads cannot be negative, got %d", ErrConfiguration, cfg.NumThreads)
	}
	if cfg.Sessions < 1 {
		return fmt.Errorf("%w: sessions must be at least 1, got %d", ErrConfiguration, cfg.Sessions)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: invalid input size %dx%d", ErrConfiguration, cfg.Width, cfg.Height)
	}
	if cfg.Channels != 1 && cfg.Channels != 3 {
		return fmt.Errorf("%w: channels must be 1 or 3, got %d", ErrConfiguration, cfg.Channels)
	}
	if _, err := onnx.ParseLayout(string(cfg.Layout)); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if err := onnx.ValidateGPUConfig(cfg.GPU); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}
