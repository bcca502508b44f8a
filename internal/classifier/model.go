// Package classifier turns preprocessed soil images into per-category
// probability vectors.
package classifier

import (
	"context"

	"github.com/MeKo-Tech/soilsense/internal/onnx"
)

// Model predicts one probability per soil type, in soil.Types() order.
// Implementations must be deterministic and safe for concurrent use.
type Model interface {
	Predict(ctx context.Context, input onnx.Tensor) ([]float32, error)
	Close() error
}

// InfoProvider is implemented by models that can describe themselves.
type InfoProvider interface {
	GetModelInfo() map[string]interface{}
}
