package cmd

import (
	"fmt"
	"io"

	"github.com/MeKo-Tech/soilsense/internal/onnx"
	"github.com/spf13/cobra"
)

// testCmd represents the test command.
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test ONNX Runtime setup and dependencies",
	Long: `Test the ONNX Runtime installation and verify that the shared library
can be found and initialized for soil classification.

This command performs basic checks to ensure:
- ONNX Runtime is properly installed
- Library paths are correctly set
- The CUDA provider can be attached (with --gpu)
- A model file loads and exposes its inputs and outputs (with --model)`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		useGPU, _ := cmd.Flags().GetBool("gpu")
		modelPath, _ := cmd.Flags().GetString("model")

		_, _ = fmt.Fprintln(out, cmd.Short)
		_, _ = fmt.Fprintln(out, "Testing ONNX Runtime setup...")
		_, _ = fmt.Fprintln(out)

		if err := onnx.TestONNXRuntime(out, useGPU); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "❌ ONNX Runtime test failed: %v\n", err)
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintln(out, "Please ensure ONNX Runtime is properly set up:")
			_, _ = fmt.Fprintf(out, "1. Install libonnxruntime or set %s\n", onnx.EnvLibraryPath)
			_, _ = fmt.Fprintln(out, "2. Rebuild with CGO enabled")
			return err
		}

		if modelPath != "" {
			if err := inspectModel(out, modelPath, useGPU); err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "❌ Model check failed: %v\n", err)
				return err
			}
		}

		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, "🎉 All tests passed! ONNX Runtime is ready for use.")
		return nil
	},
}

// inspectModel initializes the runtime again (TestONNXRuntime shuts it
// down) and describes the model.
func inspectModel(w io.Writer, path string, useGPU bool) error {
	if err := onnx.InitializeRuntime(useGPU); err != nil {
		return err
	}
	defer func() { _ = onnx.ShutdownRuntime() }()

	_, _ = fmt.Fprintln(w)
	return onnx.DescribeModel(w, path)
}

func init() {
	rootCmd.AddCommand(testCmd)
	testCmd.Flags().Bool("gpu", false, "also check the CUDA execution provider")
	testCmd.Flags().String("model", "", "also load this ONNX model and print its inputs and outputs")
}
