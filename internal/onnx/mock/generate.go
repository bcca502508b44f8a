// Package mock builds synthetic classifier outputs for tests.
package mock

import (
	"math"
)

// NewPeakedVector returns an n-class probability vector with peak at index
// idx and the remainder spread evenly over the other classes. peak is
// clamped to [0,1]. Returns nil for invalid arguments.
func NewPeakedVector(n, idx int, peak float32) []float32 {
	if n <= 0 || idx < 0 || idx >= n {
		return nil
	}
	peak = clamp01(peak)
	out := make([]float32, n)
	if n == 1 {
		out[0] = 1
		return out
	}
	rest := (1 - peak) / float32(n-1)
	for i := range out {
		out[i] = rest
	}
	out[idx] = peak
	return out
}

// NewUniformVector returns n equal probabilities.
func NewUniformVector(n int) []float32 {
	if n <= 0 {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = 1 / float32(n)
	}
	return out
}

// Softmax converts raw logits to probabilities.
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxV := logits[0]
	for _, v := range logits[1:] {
		if v > maxV {
			maxV = v
		}
	}
	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxV))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// Sum adds the entries of v.
func Sum(v []float32) float32 {
	var s float64
	for _, x := range v {
		s += float64(x)
	}
	return float32(s)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
