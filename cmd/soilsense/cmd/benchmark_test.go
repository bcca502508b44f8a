package cmd

import (
	"testing"

	"github.com/MeKo-Tech/soilsense/internal/classifier"
	"github.com/MeKo-Tech/soilsense/internal/pipeline"
	"github.com/MeKo-Tech/soilsense/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchmarkCommandSynthetic(t *testing.T) {
	captured := useStaticModel(t, alluvialProbs)

	out, _, err := executeCommand(t, "benchmark", "--iterations", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "Benchmarking synthetic soil photo with 3 iterations")
	assert.Contains(t, out, "cpu: 3 iterations")
	assert.Contains(t, out, "[accepted=3]")
	assert.False(t, captured.Classifier.GPU.UseGPU)
}

func TestBenchmarkCommandCompareGPU(t *testing.T) {
	var gpuFlags []bool
	orig := buildPipeline
	buildPipeline = func(cfg pipeline.Config) (*pipeline.Pipeline, error) {
		gpuFlags = append(gpuFlags, cfg.Classifier.GPU.UseGPU)
		return pipeline.NewBuilderFromConfig(cfg).
			WithModel(classifier.NewStaticModel(unsureProbs)).
			WithInputSize(32, 32).
			Build()
	}
	t.Cleanup(func() { buildPipeline = orig })

	photo := testutil.WriteTempFile(t, "field.png", testutil.SoilPNG(t))
	out, _, err := executeCommand(t, "benchmark", photo, "-n", "2", "--compare-gpu")
	require.NoError(t, err)

	assert.Equal(t, []bool{false, true}, gpuFlags)
	assert.Contains(t, out, "Benchmarking "+photo)
	assert.Contains(t, out, "cpu: 2 iterations")
	assert.Contains(t, out, "gpu: 2 iterations")
	assert.Contains(t, out, "[rejected=2]")
	assert.Contains(t, out, "gpu vs cpu")
}

func TestBenchmarkCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"zero iterations", []string{"benchmark", "-n", "0"}, "iterations must be positive"},
		{"missing file", []string{"benchmark", "/nonexistent/field.png"}, "failed to read"},
		{"too many args", []string{"benchmark", "a.png", "b.png"}, "accepts at most 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useStaticModel(t, alluvialProbs)
			_, _, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
