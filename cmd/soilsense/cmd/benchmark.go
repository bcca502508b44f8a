package cmd

import (
	"fmt"
	"os"

	"github.com/MeKo-Tech/soilsense/internal/benchmark"
	"github.com/MeKo-Tech/soilsense/internal/pipeline"
	"github.com/MeKo-Tech/soilsense/internal/synth"
	"github.com/spf13/cobra"
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark [image]",
	Short: "Measure classification latency",
	Long: `Run the classification pipeline repeatedly and report latency,
memory growth and the outcome of each run.

Without an image a synthetic soil photo is used. With --compare-gpu the
same photo is also classified on the CUDA provider and the speedup is
reported.

Examples:
  soilsense benchmark
  soilsense benchmark field.jpg --iterations 20
  soilsense benchmark field.jpg --compare-gpu`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		iterations, _ := cmd.Flags().GetInt("iterations")
		if iterations <= 0 {
			return fmt.Errorf("iterations must be positive, got %d", iterations)
		}
		compareGPU, _ := cmd.Flags().GetBool("compare-gpu")

		data, source, err := benchmarkInput(args)
		if err != nil {
			return err
		}

		cpuCfg := cfg.ToPipelineConfig()
		cpuCfg.Classifier.GPU.UseGPU = false
		runs := []struct {
			name string
			cfg  pipeline.Config
		}{{"cpu", cpuCfg}}
		if compareGPU {
			gpuCfg := cfg.ToPipelineConfig()
			gpuCfg.Classifier.GPU.UseGPU = true
			runs = append(runs, struct {
				name string
				cfg  pipeline.Config
			}{"gpu", gpuCfg})
		}

		suite := benchmark.NewSuite()
		for _, r := range runs {
			pl, err := buildPipeline(r.cfg)
			if err != nil {
				return fmt.Errorf("failed to build %s pipeline: %w", r.name, err)
			}
			defer func() {
				if err := pl.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Error closing pipeline: %v\n", err)
				}
			}()
			suite.AddPipeline(r.name, pl, data)
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Benchmarking %s with %d iterations\n\n", source, iterations)

		results := suite.RunAll(commandContext(cmd), iterations)
		suite.Print(out)

		if len(results) == 2 {
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintln(out, benchmark.Comparison{Baseline: results[0], Candidate: results[1]}.String())
		}
		for _, r := range results {
			if r.Error != nil {
				return fmt.Errorf("benchmark %s failed: %w", r.Name, r.Error)
			}
		}
		return nil
	},
}

// benchmarkInput returns the photo to classify and a label for it.
func benchmarkInput(args []string) ([]byte, string, error) {
	if len(args) == 0 {
		data, err := synth.SoilPNG()
		if err != nil {
			return nil, "", fmt.Errorf("failed to generate synthetic photo: %w", err)
		}
		return data, "synthetic soil photo", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return data, args[0], nil
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)

	benchmarkCmd.Flags().IntP("iterations", "n", 10, "number of classifications per run")
	benchmarkCmd.Flags().Bool("compare-gpu", false, "also run on the CUDA provider and report the speedup")
}
