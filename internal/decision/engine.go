// Package decision applies the confidence policy to classifier output.
package decision

import (
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/soilsense/internal/soil"
)

// DefaultThreshold is the minimum confidence, in percent, for acceptance.
const DefaultThreshold = 70.0

// RejectReason is reported when the winning category is not confident enough.
const RejectReason = "Unable to classify the image confidently"

// ErrContract reports a probability vector that does not match the soil
// type enumeration. It indicates a broken model, not a bad photo.
var ErrContract = errors.New("probability vector does not match soil types")

// Confidences maps each soil type to a percentage rounded to two decimals.
type Confidences map[soil.Type]float64

// Ordered returns the confidences in soil type order.
func (c Confidences) Ordered() []float64 {
	out := make([]float64, 0, len(c))
	for _, t := range soil.Types() {
		out = append(out, c[t])
	}
	return out
}

// Decision is the outcome of applying the policy to one prediction.
type Decision struct {
	Accepted    bool
	Type        soil.Type
	Confidence  float64
	Confidences Confidences
	Reason      string
}

// Engine holds the acceptance policy.
type Engine struct {
	// Threshold is a percentage in [0,100]; equality counts as accepted.
	Threshold float64
}

// NewEngine returns an engine with the given threshold.
func NewEngine(threshold float64) (*Engine, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 100 {
		return nil, fmt.Errorf("threshold must be within [0,100], got %v", threshold)
	}
	return &Engine{Threshold: threshold}, nil
}

// Percent converts a probability to a percentage rounded to two decimals.
func Percent(p float32) float64 {
	return math.Round(float64(p)*10000) / 100
}

// Argmax returns the index of the largest value; ties go to the lowest index.
func Argmax(v []float32) int {
	if len(v) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// Decide selects the most probable soil type and accepts it when its rounded
// confidence reaches the threshold. It is pure and deterministic.
func (e *Engine) Decide(probs []float32) (Decision, error) {
	if len(probs) != soil.Count() {
		return Decision{}, fmt.Errorf("%w: got %d values, expected %d", ErrContract, len(probs), soil.Count())
	}
	for i, p := range probs {
		if math.IsNaN(float64(p)) {
			return Decision{}, fmt.Errorf("%w: NaN at index %d", ErrContract, i)
		}
	}

	idx := Argmax(probs)
	winner, err := soil.FromIndex(idx)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %w", ErrContract, err)
	}

	conf := make(Confidences, len(probs))
	for i, p := range probs {
		conf[soil.Type(i)] = Percent(p)
	}

	d := Decision{
		Type:        winner,
		Confidence:  conf[winner],
		Confidences: conf,
	}
	if winner.Valid() && d.Confidence >= e.Threshold {
		d.Accepted = true
		return d, nil
	}
	d.Reason = RejectReason
	return d, nil
}
