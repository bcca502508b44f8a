package onnx

import (
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var envMu sync.Mutex

// InitializeRuntime loads the shared library and initializes the global ONNX
// Runtime environment once per process. Later calls are no-ops.
func InitializeRuntime(useGPU bool) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if err := SetONNXLibraryPath(useGPU); err != nil {
		return fmt.Errorf("failed to set ONNX Runtime library path: %w", err)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}
	slog.Debug("onnx runtime initialized", "version", ort.GetVersion(), "gpu", useGPU)
	return nil
}

// ShutdownRuntime destroys the global environment if it was initialized.
func ShutdownRuntime() error {
	envMu.Lock()
	defer envMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}
