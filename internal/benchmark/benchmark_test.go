package benchmark

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MeKo-Tech/soilsense/internal/classifier"
	"github.com/MeKo-Tech/soilsense/internal/pipeline"
	"github.com/MeKo-Tech/soilsense/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRunner struct{ calls int }

func (f *failingRunner) Run(context.Context, []byte) *pipeline.Result {
	f.calls++
	return &pipeline.Result{Status: pipeline.StatusFailed, Message: "session lost"}
}

func newTestPipeline(t *testing.T, probs []float32) *pipeline.Pipeline {
	t.Helper()
	pl, err := pipeline.NewBuilder().
		WithModel(classifier.NewStaticModel(probs)).
		WithInputSize(32, 32).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = pl.Close() })
	return pl
}

func TestSuiteRun(t *testing.T) {
	suite := NewSuite()
	suite.Add("success", func(context.Context) error {
		time.Sleep(time.Millisecond)
		return nil
	})
	suite.Add("error", func(context.Context) error {
		return errors.New("test error")
	})

	ctx := context.Background()

	res := suite.Run(ctx, "success", 5)
	assert.Equal(t, "success", res.Name)
	assert.Equal(t, 5, res.Iterations)
	require.NoError(t, res.Error)
	assert.Positive(t, res.Duration)
	assert.Positive(t, res.Average())

	res = suite.Run(ctx, "error", 3)
	require.Error(t, res.Error)
	assert.Contains(t, res.Error.Error(), "test error")
	assert.Equal(t, 0, res.Iterations)
	assert.Contains(t, res.String(), "ERROR")

	res = suite.Run(ctx, "missing", 1)
	require.Error(t, res.Error)
	assert.Contains(t, res.Error.Error(), "not found")

	res = suite.Run(ctx, "success", 0)
	require.Error(t, res.Error)
}

func TestSuiteRunAll(t *testing.T) {
	suite := NewSuite()
	suite.Add("fast", func(context.Context) error {
		time.Sleep(time.Millisecond)
		return nil
	})
	suite.Add("slow", func(context.Context) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})

	results := suite.RunAll(context.Background(), 3)
	require.Len(t, results, 2)
	assert.Equal(t, results, suite.Results())

	assert.Equal(t, "fast", results[0].Name)
	assert.Equal(t, "slow", results[1].Name)
	assert.Greater(t, results[1].Duration, results[0].Duration)

	var buf bytes.Buffer
	suite.Print(&buf)
	assert.Contains(t, buf.String(), "Benchmark Results:")
	assert.Contains(t, buf.String(), "fast: 3 iterations")
}

func TestSuiteStopsOnCanceledContext(t *testing.T) {
	suite := NewSuite()
	suite.Add("noop", func(context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := suite.Run(ctx, "noop", 10)
	require.ErrorIs(t, res.Error, context.Canceled)
	assert.Equal(t, 0, res.Iterations)
}

func TestAddPipelineTalliesStatuses(t *testing.T) {
	photo := testutil.SoilPNG(t)
	accepting := newTestPipeline(t, []float32{0.9, 0.05, 0.03, 0.02})
	rejecting := newTestPipeline(t, []float32{0.4, 0.3, 0.2, 0.1})

	suite := NewSuite()
	suite.AddPipeline("accepting", accepting, photo)
	suite.AddPipeline("rejecting", rejecting, photo)
	suite.AddPipeline("garbage", accepting, []byte("not an image"))

	results := suite.RunAll(context.Background(), 4)
	require.Len(t, results, 3)

	for _, r := range results {
		require.NoError(t, r.Error, r.Name)
		assert.Equal(t, 4, r.Iterations)
	}
	assert.Equal(t, map[pipeline.Status]int{pipeline.StatusAccepted: 4}, results[0].Statuses)
	assert.Equal(t, map[pipeline.Status]int{pipeline.StatusRejected: 4}, results[1].Statuses)
	assert.Equal(t, map[pipeline.Status]int{pipeline.StatusDecodeError: 4}, results[2].Statuses)
	assert.Contains(t, results[0].String(), "[accepted=4]")

	// Statuses reset between runs.
	again := suite.Run(context.Background(), "accepting", 2)
	assert.Equal(t, map[pipeline.Status]int{pipeline.StatusAccepted: 2}, again.Statuses)
}

func TestAddPipelineStopsOnFailure(t *testing.T) {
	runner := &failingRunner{}
	suite := NewSuite()
	suite.AddPipeline("broken", runner, []byte{1})

	res := suite.Run(context.Background(), "broken", 5)
	require.Error(t, res.Error)
	assert.Contains(t, res.Error.Error(), "session lost")
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, map[pipeline.Status]int{pipeline.StatusFailed: 1}, res.Statuses)
}

func TestComparison(t *testing.T) {
	tests := []struct {
		name      string
		baseline  Result
		candidate Result
		speedup   float64
		contains  string
	}{
		{
			name:      "faster candidate",
			baseline:  Result{Name: "cpu", Iterations: 2, Duration: 200 * time.Millisecond},
			candidate: Result{Name: "gpu", Iterations: 2, Duration: 50 * time.Millisecond},
			speedup:   4,
			contains:  "gpu vs cpu: 4.00x",
		},
		{
			name:      "candidate failed",
			baseline:  Result{Name: "cpu", Iterations: 2, Duration: time.Second},
			candidate: Result{Name: "gpu", Error: errors.New("no device")},
			contains:  "not comparable",
		},
		{
			name:      "no iterations",
			baseline:  Result{Name: "cpu", Iterations: 2, Duration: time.Second},
			candidate: Result{Name: "gpu"},
			contains:  "not comparable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Comparison{Baseline: tt.baseline, Candidate: tt.candidate}
			assert.InDelta(t, tt.speedup, c.Speedup(), 1e-9)
			assert.Contains(t, c.String(), tt.contains)
		})
	}
}
