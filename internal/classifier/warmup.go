package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/soilsense/internal/onnx"
)

// Warmup runs iterations forward passes on a blank tensor of the configured
// geometry through every session, reducing first-request latency.
func (c *Classifier) Warmup(ctx context.Context, iterations int) error {
	if iterations <= 0 {
		return nil
	}
	cfg := c.config
	data := make([]float32, cfg.Width*cfg.Height*cfg.Channels)
	tensor, err := onnx.NewImageTensor(data, cfg.Layout, cfg.Channels, cfg.Height, cfg.Width)
	if err != nil {
		return err
	}

	start := time.Now()
	for i := range iterations * cfg.Sessions {
		if _, err := c.Predict(ctx, tensor); err != nil {
			return fmt.Errorf("warmup iteration %d: %w", i, err)
		}
	}
	slog.Debug("classifier warmup complete", "iterations", iterations, "duration", time.Since(start))
	return nil
}
