package pipeline

import (
	"github.com/MeKo-Tech/soilsense/internal/decision"
	"github.com/MeKo-Tech/soilsense/internal/soil"
)

// Status is the terminal state of one pipeline run.
type Status string

const (
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
	StatusDecodeError Status = "decode_error"
	StatusFailed      Status = "failed"
)

// Statuses lists every status in reporting order.
func Statuses() []Status {
	return []Status{StatusAccepted, StatusRejected, StatusDecodeError, StatusFailed}
}

// DecodeErrorSuffix follows the decoder message in user-facing output.
const DecodeErrorSuffix = "Please upload a valid image file."

// ImageInfo describes the decoded upload.
type ImageInfo struct {
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int64  `json:"size_bytes"`
}

// Timings holds per-stage durations in nanoseconds.
type Timings struct {
	DecodeNs     int64 `json:"decode_ns"`
	PreprocessNs int64 `json:"preprocess_ns"`
	InferenceNs  int64 `json:"inference_ns"`
	TotalNs      int64 `json:"total_ns"`
}

// Result is the outcome of classifying one photo. Exactly one of the
// accepted fields (SoilType, Crops), Reason or Message is meaningful,
// selected by Status.
type Result struct {
	Status      Status               `json:"status"`
	SoilType    string               `json:"soil_type,omitempty"`
	Confidence  float64              `json:"confidence,omitempty"`
	Confidences decision.Confidences `json:"confidences,omitempty"`
	Crops       []soil.Crop          `json:"crops,omitempty"`
	Reason      string               `json:"reason,omitempty"`
	Message     string               `json:"message,omitempty"`
	Image       *ImageInfo           `json:"image,omitempty"`
	Processing  Timings              `json:"processing"`
}

// Accepted reports whether a soil type was identified with enough confidence.
func (r *Result) Accepted() bool { return r != nil && r.Status == StatusAccepted }

// Type returns the accepted soil type.
func (r *Result) Type() (soil.Type, bool) {
	if !r.Accepted() {
		return 0, false
	}
	t, err := soil.ParseType(r.SoilType)
	return t, err == nil
}
