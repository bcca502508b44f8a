package onnx

import (
	"errors"
	"fmt"
	"strings"
)

// Layout names the axis order of a rank-4 image tensor.
type Layout string

const (
	// LayoutNHWC is [N, H, W, C], the channels-last order used by Keras exports.
	LayoutNHWC Layout = "nhwc"
	// LayoutNCHW is [N, C, H, W].
	LayoutNCHW Layout = "nchw"
)

// ParseLayout resolves a layout name, case-insensitively.
func ParseLayout(s string) (Layout, error) {
	switch Layout(strings.ToLower(strings.TrimSpace(s))) {
	case LayoutNHWC:
		return LayoutNHWC, nil
	case LayoutNCHW:
		return LayoutNCHW, nil
	default:
		return "", fmt.Errorf("unknown tensor layout: %q", s)
	}
}

// Tensor represents a float32 tensor prepared for ONNX input.
// Data layout is row-major in the axis order given by Shape.
type Tensor struct {
	Data  []float32
	Shape []int64
}

// NewImageTensor builds a single-image tensor. data must hold c*h*w values
// already arranged in the requested layout.
func NewImageTensor(data []float32, layout Layout, c, h, w int) (Tensor, error) {
	if data == nil {
		return Tensor{}, errors.New("nil data")
	}
	if c <= 0 || h <= 0 || w <= 0 {
		return Tensor{}, fmt.Errorf("invalid dimensions c=%d h=%d w=%d", c, h, w)
	}
	expected := c * h * w
	if len(data) != expected {
		return Tensor{}, fmt.Errorf("unexpected data length: got %d, want %d", len(data), expected)
	}
	var shape []int64
	switch layout {
	case LayoutNHWC:
		shape = []int64{1, int64(h), int64(w), int64(c)}
	case LayoutNCHW:
		shape = []int64{1, int64(c), int64(h), int64(w)}
	default:
		return Tensor{}, fmt.Errorf("unknown tensor layout: %q", layout)
	}
	return Tensor{Data: data, Shape: shape}, nil
}

// ValidateImageShape ensures a shape is rank 4 with positive dimensions.
func ValidateImageShape(shape []int64) error {
	if len(shape) != 4 {
		return fmt.Errorf("shape rank %d != 4", len(shape))
	}
	for i, v := range shape {
		if v <= 0 {
			return fmt.Errorf("dimension %d must be > 0, got %d", i, v)
		}
	}
	return nil
}

// ImageDims extracts (n, c, h, w) from a rank-4 shape in the given layout.
// Dimensions are returned as is, so dynamic (<= 0) model dimensions pass
// through for the caller to interpret.
func ImageDims(shape []int64, layout Layout) (int64, int64, int64, int64, error) {
	if len(shape) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("shape rank %d != 4", len(shape))
	}
	l, err := ParseLayout(string(layout))
	if err != nil {
		return 0, 0, 0, 0, err
	}
	if l == LayoutNHWC {
		return shape[0], shape[3], shape[1], shape[2], nil
	}
	return shape[0], shape[1], shape[2], shape[3], nil
}

// TensorStats computes min, max and mean for debug output.
func TensorStats(data []float32) (float32, float32, float32) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	minVal, maxVal := data[0], data[0]
	var sum float64
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
		sum += float64(v)
	}
	return minVal, maxVal, float32(sum / float64(len(data)))
}

// VerifyImageTensor checks data length against the rank-4 shape.
func VerifyImageTensor(t Tensor) error {
	if err := ValidateImageShape(t.Shape); err != nil {
		return err
	}
	expected := t.Shape[0] * t.Shape[1] * t.Shape[2] * t.Shape[3]
	if int64(len(t.Data)) != expected {
		return fmt.Errorf("tensor data length %d != expected %d for shape %v", len(t.Data), expected, t.Shape)
	}
	return nil
}

// VerifyUnitRange checks that every value lies in [0,1].
func VerifyUnitRange(data []float32) error {
	for i, v := range data {
		if !(v >= 0 && v <= 1) {
			return fmt.Errorf("value %v at index %d outside [0,1]", v, i)
		}
	}
	return nil
}
