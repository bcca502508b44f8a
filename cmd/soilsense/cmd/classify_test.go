package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/soilsense/internal/pipeline"
	"github.com/MeKo-Tech/soilsense/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alluvialProbs = []float32{0.921, 0.05, 0.02, 0.009}
	unsureProbs   = []float32{0.55, 0.25, 0.15, 0.05}
)

func TestClassifyCommand(t *testing.T) {
	assert.True(t, strings.HasPrefix(classifyCmd.Use, "classify"))
	assert.NotEmpty(t, classifyCmd.Short)
	for _, name := range []string{"format", "output", "model", "threshold", "size", "filter", "gpu", "catalog"} {
		assert.NotNil(t, classifyCmd.Flags().Lookup(name), name)
	}
}

func TestClassifyCommandAcceptedJSON(t *testing.T) {
	useStaticModel(t, alluvialProbs)
	photo := testutil.WriteTempFile(t, "field.png", testutil.SoilPNG(t))

	out, _, err := executeCommand(t, "classify", photo, "--format", "json")
	require.NoError(t, err)

	var doc struct {
		File   string          `json:"file"`
		Result pipeline.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, photo, doc.File)
	assert.Equal(t, pipeline.StatusAccepted, doc.Result.Status)
	assert.Equal(t, "Alluvial", doc.Result.SoilType)
	assert.InDelta(t, 92.1, doc.Result.Confidence, 1e-9)
	require.Len(t, doc.Result.Crops, 3)
	assert.Equal(t, "rice", doc.Result.Crops[0].Name)
}

func TestClassifyCommandText(t *testing.T) {
	tests := []struct {
		name     string
		probs    []float32
		args     []string
		contains []string
	}{
		{
			name:     "accepted",
			probs:    alluvialProbs,
			contains: []string{"Soil type: Alluvial (92.10%)", "Recommended crops for Alluvial soil:", "rice"},
		},
		{
			name:     "rejected is not an error",
			probs:    unsureProbs,
			contains: []string{"Unable to classify the image confidently"},
		},
		{
			name:     "threshold flag",
			probs:    alluvialProbs,
			args:     []string{"--threshold", "95"},
			contains: []string{"Unable to classify the image confidently", "92.10%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useStaticModel(t, tt.probs)
			photo := testutil.WriteTempFile(t, "field.png", testutil.SoilPNG(t))

			out, _, err := executeCommand(t, append([]string{"classify", photo}, tt.args...)...)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(out, photo+":"))
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestClassifyCommandCSVToFile(t *testing.T) {
	useStaticModel(t, alluvialProbs)
	photo := testutil.WriteTempFile(t, "field.jpg", testutil.EncodeJPEG(t, testutil.GenerateSoilImage(testutil.DefaultSoilImageConfig())))
	dest := filepath.Join(t.TempDir(), "result.csv")

	out, _, err := executeCommand(t, "classify", photo, "-f", "csv", "-o", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Results written to "+dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "status,soil_type,confidence"))
	assert.True(t, strings.HasPrefix(lines[1], "accepted,Alluvial,92.10"))
}

func TestClassifyCommandPassesSettings(t *testing.T) {
	captured := useStaticModel(t, alluvialProbs)
	photo := testutil.WriteTempFile(t, "field.png", testutil.SoilPNG(t))

	_, _, err := executeCommand(t, "classify", photo, "--size", "512", "--filter", "lanczos", "--model", "/opt/m.onnx")
	require.NoError(t, err)
	assert.Equal(t, 512, captured.Preprocess.Width)
	assert.Equal(t, 512, captured.Preprocess.Height)
	assert.Equal(t, "lanczos", captured.Preprocess.Filter)
	assert.Equal(t, "/opt/m.onnx", captured.Classifier.ModelPath)
}

func TestClassifyCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    []byte
		args    []string
		errText string
		stdout  string
	}{
		{
			name:    "decode error exits non-zero",
			file:    "broken.png",
			data:    []byte("definitely not a png"),
			errText: "decode_error",
			stdout:  "Please upload a valid image file.",
		},
		{
			name:    "empty file",
			file:    "empty.jpg",
			data:    []byte{},
			errText: "decode_error",
		},
		{
			name:    "unsupported extension",
			file:    "notes.txt",
			data:    []byte("hello"),
			errText: "unsupported image format",
		},
		{
			name:    "invalid format",
			file:    "field.png",
			data:    []byte("x"),
			args:    []string{"--format", "xml"},
			errText: "invalid output format",
		},
		{
			name:    "invalid threshold",
			file:    "field.png",
			data:    []byte("x"),
			args:    []string{"--threshold", "150"},
			errText: "invalid decision.threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useStaticModel(t, alluvialProbs)
			photo := testutil.WriteTempFile(t, tt.file, tt.data)

			out, _, err := executeCommand(t, append([]string{"classify", photo}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
			if tt.stdout != "" {
				assert.Contains(t, out, tt.stdout)
			}
		})
	}
}

func TestClassifyCommandArgs(t *testing.T) {
	useStaticModel(t, alluvialProbs)

	_, _, err := executeCommand(t, "classify")
	require.Error(t, err)

	_, _, err = executeCommand(t, "classify", "a.png", "b.png")
	require.Error(t, err)

	_, _, err = executeCommand(t, "classify", filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}
