package classifier

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/soilsense/internal/onnx"
	"github.com/MeKo-Tech/soilsense/internal/soil"
	ort "github.com/yalue/onnxruntime_go"
)

// validateModelInfo reads the model signature and checks it against the
// classifier contract: one rank-4 image input, one output whose class
// dimension equals the number of soil types.
func validateModelInfo(cfg Config) (ort.InputOutputInfo, ort.InputOutputInfo, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return ort.InputOutputInfo{}, ort.InputOutputInfo{},
			fmt.Errorf("%w: failed to get model input/output info: %w", ErrConfiguration, err)
	}
	if len(inputs) != 1 {
		return ort.InputOutputInfo{}, ort.InputOutputInfo{},
			fmt.Errorf("%w: expected 1 input, got %d", ErrConfiguration, len(inputs))
	}
	if len(outputs) != 1 {
		return ort.InputOutputInfo{}, ort.InputOutputInfo{},
			fmt.Errorf("%w: expected 1 output, got %d", ErrConfiguration, len(outputs))
	}

	in, out := inputs[0], outputs[0]
	if err := checkInputDims(in.Dimensions, cfg); err != nil {
		return ort.InputOutputInfo{}, ort.InputOutputInfo{}, err
	}
	if err := checkOutputDims(out.Dimensions); err != nil {
		return ort.InputOutputInfo{}, ort.InputOutputInfo{}, err
	}
	return in, out, nil
}

// checkInputDims compares fixed (positive) model dimensions with the
// configured geometry. Dynamic dimensions (<= 0) are accepted.
func checkInputDims(dims ort.Shape, cfg Config) error {
	_, c, h, w, err := onnx.ImageDims(dims, cfg.Layout)
	if err != nil {
		return fmt.Errorf("%w: model input: %w", ErrConfiguration, err)
	}
	check := func(name string, got int64, want int) error {
		if got > 0 && got != int64(want) {
			return fmt.Errorf("%w: model input %s is %d, configured %d", ErrConfiguration, name, got, want)
		}
		return nil
	}
	if err := check("height", h, cfg.Height); err != nil {
		return err
	}
	if err := check("width", w, cfg.Width); err != nil {
		return err
	}
	return check("channels", c, cfg.Channels)
}

func checkOutputDims(dims ort.Shape) error {
	if len(dims) == 0 {
		return fmt.Errorf("%w: model output has no dimensions", ErrConfiguration)
	}
	classes := dims[len(dims)-1]
	if classes > 0 && classes != int64(soil.Count()) {
		return fmt.Errorf("%w: model emits %d classes, expected %d (%v)",
			ErrConfiguration, classes, soil.Count(), soil.Names())
	}
	return nil
}

// createSession creates one ONNX session with the given configuration.
func createSession(cfg Config, in, out ort.InputOutputInfo) (*ort.DynamicAdvancedSession, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		if err := opts.Destroy(); err != nil {
			slog.Warn("failed to destroy session options", "error", err)
		}
	}()

	if err := onnx.ConfigureSessionForGPU(opts, cfg.GPU); err != nil {
		return nil, fmt.Errorf("failed to configure GPU: %w", err)
	}
	if cfg.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, []string{in.Name}, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return session, nil
}
