package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/soilsense/internal/common"
	"github.com/MeKo-Tech/soilsense/internal/decision"
	"github.com/MeKo-Tech/soilsense/internal/onnx"
	"github.com/MeKo-Tech/soilsense/internal/utils"
)

const (
	stageDecode     = "decode"
	stagePreprocess = "preprocess"
	stageInference  = "inference"
)

// Run classifies one uploaded photo. It never returns nil and never panics:
// undecodable input yields StatusDecodeError, and model or configuration
// faults yield StatusFailed.
func (p *Pipeline) Run(ctx context.Context, data []byte) (res *Result) {
	start := time.Now()
	stages := common.NewStageTimes()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Pipeline panic recovered", "panic", r)
			res = failed(fmt.Sprintf("internal error: %v", r))
		}
		res.Processing = Timings{
			DecodeNs:     stages.Get(stageDecode).Nanoseconds(),
			PreprocessNs: stages.Get(stagePreprocess).Nanoseconds(),
			InferenceNs:  stages.Get(stageInference).Nanoseconds(),
			TotalNs:      time.Since(start).Nanoseconds(),
		}
		p.profiler.Record(res)
	}()

	if p.closed.Load() {
		return failed("pipeline is closed")
	}

	var (
		decoded image.Image
		meta    utils.ImageMetadata
	)
	err := stages.Time(stageDecode, func() error {
		var derr error
		decoded, meta, derr = utils.DecodeImageWithLimit(data, p.cfg.MaxPixels)
		return derr
	})
	if err != nil {
		slog.Debug("Image decode failed", "error", err, "bytes", len(data))
		return &Result{
			Status:  StatusDecodeError,
			Message: fmt.Sprintf("%v. %s", err, DecodeErrorSuffix),
		}
	}
	info := &ImageInfo{Format: meta.Format, Width: meta.Width, Height: meta.Height, SizeBytes: meta.SizeBytes}

	var tensor onnx.Tensor
	err = stages.Time(stagePreprocess, func() error {
		var perr error
		tensor, perr = p.pre.Preprocess(decoded)
		return perr
	})
	if err != nil {
		slog.Warn("Preprocessing failed", "error", err)
		return withImage(failed(fmt.Sprintf("preprocess: %v", err)), info)
	}
	defer p.pre.Release(tensor)
	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		minV, maxV, mean := onnx.TensorStats(tensor.Data)
		slog.Debug("Input tensor prepared", "shape", tensor.Shape, "min", minV, "max", maxV, "mean", mean)
	}

	if err := ctx.Err(); err != nil {
		return withImage(failed(fmt.Sprintf("canceled before inference: %v", err)), info)
	}

	var probs []float32
	err = stages.Time(stageInference, func() error {
		var ierr error
		probs, ierr = p.model.Predict(ctx, tensor)
		return ierr
	})
	if err != nil {
		slog.Warn("Inference failed", "error", err)
		return withImage(failed(fmt.Sprintf("inference: %v", err)), info)
	}

	d, err := p.engine.Decide(probs)
	if err != nil {
		slog.Error("Model output rejected", "error", err, "values", len(probs))
		return withImage(failed(err.Error()), info)
	}

	if !d.Accepted {
		slog.Debug("Classification rejected",
			"best", d.Type.String(), "confidence", d.Confidence, "threshold", p.engine.Threshold)
		return &Result{
			Status:      StatusRejected,
			Confidence:  d.Confidence,
			Confidences: d.Confidences,
			Reason:      d.Reason,
			Image:       info,
		}
	}

	crops, err := p.catalog.Lookup(d.Type)
	if err != nil {
		slog.Error("Catalog lookup failed", "soil_type", d.Type.String(), "error", err)
		return withImage(failed(err.Error()), info)
	}

	slog.Debug("Classification accepted",
		"soil_type", d.Type.String(), "confidence", d.Confidence,
		"decode", stages.Get(stageDecode), "preprocess", stages.Get(stagePreprocess),
		"inference", stages.Get(stageInference))
	return &Result{
		Status:      StatusAccepted,
		SoilType:    d.Type.String(),
		Confidence:  d.Confidence,
		Confidences: d.Confidences,
		Crops:       crops,
		Image:       info,
	}
}

// RunFile reads path and classifies its contents. Read errors are returned;
// everything after reading is reported through the Result.
func (p *Pipeline) RunFile(ctx context.Context, path string) (*Result, error) {
	data, err := utils.ReadImageFile(path)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, data), nil
}

// Classify exposes the bare decision for an already decoded probability
// vector, bypassing image handling.
func (p *Pipeline) Classify(probs []float32) (decision.Decision, error) {
	return p.engine.Decide(probs)
}

func failed(msg string) *Result {
	return &Result{Status: StatusFailed, Message: msg}
}

func withImage(r *Result, info *ImageInfo) *Result {
	r.Image = info
	return r
}
