package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/MeKo-Tech/soilsense/internal/pipeline"
	"github.com/MeKo-Tech/soilsense/internal/utils"
	"github.com/spf13/cobra"
)

const (
	outputFormatJSON = "json"
	outputFormatCSV  = "csv"
	outputFormatText = "text"
)

// buildPipeline constructs the classification pipeline. Tests replace it to
// inject an in-process model.
var buildPipeline = func(cfg pipeline.Config) (*pipeline.Pipeline, error) {
	return pipeline.NewBuilderFromConfig(cfg).Build()
}

// classifyCmd represents the classify command.
var classifyCmd = &cobra.Command{
	Use:   "classify <image>",
	Short: "Classify the soil type of a photograph",
	Long: `Classify a single soil photograph and print the detected soil type,
the per-type confidences and the recommended crops.

Photos whose best confidence is below the threshold are reported as
rejected; this is a normal outcome. Unreadable images and internal
failures exit with a non-zero status.

Supported formats: JPEG, PNG, GIF, BMP, TIFF, WebP, AVIF

Examples:
  soilsense classify field.jpg
  soilsense classify field.png --format json
  soilsense classify field.png --threshold 80 --output result.csv --format csv`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		path := args[0]
		if !utils.IsSupportedImage(path) {
			return fmt.Errorf("unsupported image format: %s", path)
		}

		pl, err := buildPipeline(cfg.ToPipelineConfig())
		if err != nil {
			return fmt.Errorf("failed to build classification pipeline: %w", err)
		}
		defer func() {
			if err := pl.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Error closing pipeline: %v\n", err)
			}
		}()

		res, err := pl.RunFile(commandContext(cmd), path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		out, err := formatResult(res, path, cfg.Output.Format)
		if err != nil {
			return err
		}
		if cfg.Output.File != "" {
			if err := os.WriteFile(cfg.Output.File, []byte(out+"\n"), 0o600); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Results written to %s\n", cfg.Output.File)
		} else if _, err := fmt.Fprintln(cmd.OutOrStdout(), out); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}

		switch res.Status {
		case pipeline.StatusAccepted, pipeline.StatusRejected:
			return nil
		default:
			return fmt.Errorf("%s: %s", res.Status, res.Message)
		}
	},
}

// formatResult renders one result in the requested output format.
func formatResult(res *pipeline.Result, path, format string) (string, error) {
	switch format {
	case outputFormatJSON:
		obj := struct {
			File   string           `json:"file"`
			Result *pipeline.Result `json:"result"`
		}{File: path, Result: res}
		b, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(b), nil
	case outputFormatCSV:
		s, err := pipeline.ToCSV(res)
		if err != nil {
			return "", fmt.Errorf("format csv failed: %w", err)
		}
		return s, nil
	default:
		s, err := pipeline.ToPlainText(res)
		if err != nil {
			return "", fmt.Errorf("format text failed: %w", err)
		}
		return fmt.Sprintf("%s:\n%s", path, s), nil
	}
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json, csv)")
	classifyCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	classifyCmd.Flags().StringP("model", "m", "", "override classifier model path")
	classifyCmd.Flags().Bool("fp16", false, "use the half-precision classifier model")
	classifyCmd.Flags().String("catalog", "", "crop catalog file (YAML or TOML, default: built-in)")
	classifyCmd.Flags().Float64("threshold", 70, "minimum confidence in percent to accept a classification")
	classifyCmd.Flags().Int("size", 1024, "square model input size in pixels")
	classifyCmd.Flags().String("filter", "catmullrom", "resampling filter (nearest, linear, catmullrom, lanczos)")
	classifyCmd.Flags().Int("threads", 0, "ONNX Runtime intra-op threads (0 = runtime default)")
	classifyCmd.Flags().Bool("gpu", false, "enable GPU acceleration using CUDA")
	classifyCmd.Flags().Int("gpu-device", 0, "CUDA device ID to use")
	classifyCmd.Flags().String("gpu-mem-limit", "auto", "GPU memory limit (e.g. '2GB', '512MB', 'auto')")

	bindFlags(classifyCmd, map[string]string{
		"output.format":      "format",
		"output.file":        "output",
		"model.path":         "model",
		"model.fp16":         "fp16",
		"model.num_threads":  "threads",
		"catalog.path":       "catalog",
		"decision.threshold": "threshold",
		"preprocess.width":   "size",
		"preprocess.height":  "size",
		"preprocess.filter":  "filter",
		"gpu.enabled":        "gpu",
		"gpu.device":         "gpu-device",
		"gpu.memory_limit":   "gpu-mem-limit",
	})
}
