package onnx

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

// DescribeModel prints the inputs, outputs and metadata of the model at path.
// The runtime must be initialized.
func DescribeModel(w io.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("model file not found: %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("model path is a directory: %s", path)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return fmt.Errorf("failed to get model info: %w", err)
	}

	_, _ = fmt.Fprintf(w, "✓ %s: compatible with ONNX Runtime\n", path)
	_, _ = fmt.Fprintf(w, "   - Inputs: %d\n", len(inputs))
	for i, in := range inputs {
		_, _ = fmt.Fprintf(w, "     [%d] %s: %v (type: %s)\n", i, in.Name, in.Dimensions, in.DataType)
	}
	_, _ = fmt.Fprintf(w, "   - Outputs: %d\n", len(outputs))
	for i, out := range outputs {
		_, _ = fmt.Fprintf(w, "     [%d] %s: %v (type: %s)\n", i, out.Name, out.Dimensions, out.DataType)
	}

	metadata, err := ort.GetModelMetadata(path)
	if err != nil {
		return nil
	}
	defer func() {
		if err := metadata.Destroy(); err != nil {
			slog.Warn("failed to destroy model metadata", "error", err)
		}
	}()
	if producer, err := metadata.GetProducerName(); err == nil && producer != "" {
		_, _ = fmt.Fprintf(w, "   - Producer: %s\n", producer)
	}
	if version, err := metadata.GetVersion(); err == nil {
		_, _ = fmt.Fprintf(w, "   - Version: %d\n", version)
	}
	if description, err := metadata.GetDescription(); err == nil && description != "" {
		_, _ = fmt.Fprintf(w, "   - Description: %s\n", description)
	}
	return nil
}
