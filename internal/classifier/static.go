package classifier

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/MeKo-Tech/soilsense/internal/onnx"
)

// PredictFunc computes a probability vector from an input tensor.
type PredictFunc func(onnx.Tensor) ([]float32, error)

// StaticModel is an in-process Model backed by a fixed vector or a function.
// It stands in for the ONNX classifier in tests and dry runs.
type StaticModel struct {
	fn     PredictFunc
	calls  atomic.Int64
	closed atomic.Bool
}

// NewStaticModel always returns a copy of probs.
func NewStaticModel(probs []float32) *StaticModel {
	fixed := append([]float32(nil), probs...)
	return NewFuncModel(func(onnx.Tensor) ([]float32, error) {
		return append([]float32(nil), fixed...), nil
	})
}

// NewFuncModel delegates prediction to fn.
func NewFuncModel(fn PredictFunc) *StaticModel {
	return &StaticModel{fn: fn}
}

// Predict implements Model.
func (m *StaticModel) Predict(ctx context.Context, input onnx.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.closed.Load() {
		return nil, errors.New("model is closed")
	}
	if err := onnx.VerifyImageTensor(input); err != nil {
		return nil, fmt.Errorf("invalid tensor: %w", err)
	}
	m.calls.Add(1)
	return m.fn(input)
}

// Calls reports how many predictions were served.
func (m *StaticModel) Calls() int64 { return m.calls.Load() }

// Close implements Model.
func (m *StaticModel) Close() error {
	m.closed.Store(true)
	return nil
}

// GetModelInfo implements InfoProvider.
func (m *StaticModel) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"model_path": "static",
		"calls":      m.Calls(),
	}
}
