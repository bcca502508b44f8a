package onnx

import (
	"fmt"
	"io"

	ort "github.com/yalue/onnxruntime_go"
)

// TestONNXRuntime verifies that the shared library can be found and the
// runtime environment initialized, writing progress to w.
func TestONNXRuntime(w io.Writer, useGPU bool) error {
	libPath, err := FindLibrary(useGPU)
	if err != nil {
		return fmt.Errorf("failed to find ONNX Runtime library: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Using ONNX Runtime library: %s\n", libPath)

	if err := InitializeRuntime(useGPU); err != nil {
		return err
	}
	defer func() { _ = ShutdownRuntime() }()

	_, _ = fmt.Fprintf(w, "✓ ONNX Runtime %s initialized successfully\n", ort.GetVersion())

	if useGPU {
		opts, err := ort.NewSessionOptions()
		if err != nil {
			return fmt.Errorf("failed to create session options: %w", err)
		}
		defer func() { _ = opts.Destroy() }()
		gpu := DefaultGPUConfig()
		gpu.UseGPU = true
		if err := ConfigureSessionForGPU(opts, gpu); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, "✓ CUDA execution provider available")
	}
	return nil
}
