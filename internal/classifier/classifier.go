package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/MeKo-Tech/soilsense/internal/models"
	"github.com/MeKo-Tech/soilsense/internal/onnx"
	"github.com/MeKo-Tech/soilsense/internal/soil"
	ort "github.com/yalue/onnxruntime_go"
)

// Classifier runs the soil classification network with ONNX Runtime.
type Classifier struct {
	config     Config
	inputInfo  ort.InputOutputInfo
	outputInfo ort.InputOutputInfo
	sessions   chan *ort.DynamicAdvancedSession

	mu     sync.RWMutex
	closed bool
}

// New loads the model once and prepares the session pool. Any failure here
// wraps ErrConfiguration and should abort startup.
func New(cfg Config) (*Classifier, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if err := models.ValidateModelExists(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	slog.Debug("Initializing classifier",
		"model_path", cfg.ModelPath,
		"sessions", cfg.Sessions,
		"layout", cfg.Layout,
		"input", fmt.Sprintf("%dx%dx%d", cfg.Width, cfg.Height, cfg.Channels),
		"gpu_enabled", cfg.GPU.UseGPU)

	if err := onnx.InitializeRuntime(cfg.GPU.UseGPU); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	in, out, err := validateModelInfo(cfg)
	if err != nil {
		return nil, err
	}

	c := &Classifier{
		config:     cfg,
		inputInfo:  in,
		outputInfo: out,
		sessions:   make(chan *ort.DynamicAdvancedSession, cfg.Sessions),
	}
	for i := range cfg.Sessions {
		s, err := createSession(cfg, in, out)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("%w: session %d: %w", ErrConfiguration, i, err)
		}
		c.sessions <- s
	}

	slog.Debug("Classifier initialized successfully", "input_name", in.Name, "output_name", out.Name)
	return c, nil
}

// Predict runs one forward pass and returns a copy of the probability vector.
func (c *Classifier) Predict(ctx context.Context, input onnx.Tensor) ([]float32, error) {
	if err := onnx.VerifyImageTensor(input); err != nil {
		return nil, fmt.Errorf("invalid tensor: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, errors.New("classifier is closed")
	}

	var session *ort.DynamicAdvancedSession
	select {
	case session = <-c.sessions:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { c.sessions <- session }()

	start := time.Now()
	probs, err := runSession(session, input)
	if err != nil {
		return nil, err
	}
	if len(probs) != soil.Count() {
		return nil, fmt.Errorf("model returned %d probabilities, expected %d", len(probs), soil.Count())
	}
	slog.Debug("classifier inference", "duration", time.Since(start))
	return probs, nil
}

func runSession(session *ort.DynamicAdvancedSession, input onnx.Tensor) ([]float32, error) {
	inputTensor, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() {
		if err := inputTensor.Destroy(); err != nil {
			fmt.Fprintf(os.Stderr, "Error destroying input tensor: %v\n", err)
		}
	}()

	outputs := []ort.Value{nil}
	if err := session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		if outputs[0] == nil {
			return
		}
		if err := outputs[0].Destroy(); err != nil {
			fmt.Fprintf(os.Stderr, "Error destroying output tensor: %v\n", err)
		}
	}()

	floatTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("expected float32 tensor, got %T", outputs[0])
	}
	data := floatTensor.GetData()
	return append([]float32(nil), data...), nil
}

// Close releases every session. It waits for in-flight predictions.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for {
		select {
		case s := <-c.sessions:
			if err := s.Destroy(); err != nil {
				errs = append(errs, err)
			}
		default:
			return errors.Join(errs...)
		}
	}
}

// GetModelInfo returns the model signature and runtime configuration.
func (c *Classifier) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"model_path":       c.config.ModelPath,
		"input_name":       c.inputInfo.Name,
		"output_name":      c.outputInfo.Name,
		"input_shape":      []int64(c.inputInfo.Dimensions),
		"output_shape":     []int64(c.outputInfo.Dimensions),
		"input_data_type":  c.inputInfo.DataType,
		"output_data_type": c.outputInfo.DataType,
		"layout":           string(c.config.Layout),
		"sessions":         c.config.Sessions,
		"num_threads":      c.config.NumThreads,
		"classes":          soil.Names(),
		"gpu": map[string]interface{}{
			"enabled":            c.config.GPU.UseGPU,
			"device_id":          c.config.GPU.DeviceID,
			"memory_limit_bytes": c.config.GPU.GPUMemLimit,
		},
	}
}
