package support

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/soilsense/internal/classifier"
	"github.com/MeKo-Tech/soilsense/internal/pipeline"
)

// TestContext holds the state for one scenario.
type TestContext struct {
	// Classifier setup
	Probabilities []float32
	Threshold     float64
	Model         *classifier.StaticModel
	Pipeline      *pipeline.Pipeline

	// Last pipeline outcome
	LastInput   []byte
	LastResult  *pipeline.Result
	FirstResult *pipeline.Result

	// HTTP state
	HTTPServer         *HTTPTestServerWrapper
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string

	TempDir string
}

// NewTestContext creates a fresh scenario context.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "soilsense-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{
		Threshold:       70,
		TempDir:         tempDir,
		LastHTTPHeaders: map[string]string{},
	}, nil
}

// EnsurePipeline builds the pipeline around the configured probabilities.
func (testCtx *TestContext) EnsurePipeline() (*pipeline.Pipeline, error) {
	if testCtx.Pipeline != nil {
		return testCtx.Pipeline, nil
	}
	if len(testCtx.Probabilities) == 0 {
		return nil, fmt.Errorf("no model output configured; use 'the model predicts ...' first")
	}
	testCtx.Model = classifier.NewStaticModel(testCtx.Probabilities)
	pl, err := pipeline.NewBuilder().
		WithModel(testCtx.Model).
		WithThreshold(testCtx.Threshold).
		WithInputSize(64, 64).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	testCtx.Pipeline = pl
	return pl, nil
}

// Run classifies data and records the result.
func (testCtx *TestContext) Run(data []byte) error {
	pl, err := testCtx.EnsurePipeline()
	if err != nil {
		return err
	}
	testCtx.LastInput = data
	testCtx.LastResult = pl.Run(context.Background(), data)
	return nil
}

// Cleanup stops the server and removes temporary files.
func (testCtx *TestContext) Cleanup() error {
	var errs []string
	testCtx.stopTestHTTPServer()
	if testCtx.Pipeline != nil {
		if err := testCtx.Pipeline.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		testCtx.Pipeline = nil
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Sprintf("failed to remove temp directory %s: %v", testCtx.TempDir, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// GetTempFile returns a path inside the scenario temp directory.
func (testCtx *TestContext) GetTempFile(name string) string {
	return filepath.Join(testCtx.TempDir, name)
}

// parseProbabilities turns "0.921, 0.05, 0.02, 0.009" into a vector.
func parseProbabilities(list string) ([]float32, error) {
	parts := strings.Split(list, ",")
	out := make([]float32, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid probability %q: %w", p, err)
		}
		out = append(out, float32(v))
	}
	return out, nil
}
