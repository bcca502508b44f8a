package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/MeKo-Tech/soilsense/internal/classifier"
	"github.com/MeKo-Tech/soilsense/internal/decision"
	"github.com/MeKo-Tech/soilsense/internal/onnx"
	"github.com/MeKo-Tech/soilsense/internal/onnx/mock"
	"github.com/MeKo-Tech/soilsense/internal/soil"
	"github.com/MeKo-Tech/soilsense/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAccepted(t *testing.T) {
	p := newTestPipeline(t, classifier.NewStaticModel(alluvialProbs))

	res := p.Run(context.Background(), testutil.SoilPNG(t))
	require.Equal(t, StatusAccepted, res.Status, res.Message)
	assert.Equal(t, "Alluvial", res.SoilType)
	assert.InDelta(t, 92.1, res.Confidence, 1e-9)
	assert.InDelta(t, 5.0, res.Confidences[soil.Black], 1e-9)
	assert.InDelta(t, 2.0, res.Confidences[soil.Desert], 1e-9)
	assert.InDelta(t, 0.9, res.Confidences[soil.Red], 1e-9)

	names := make([]string, 0, len(res.Crops))
	for _, c := range res.Crops {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"rice", "sugarcane", "maize"}, names)
	assert.Empty(t, res.Reason)
	require.NotNil(t, res.Image)
	assert.Equal(t, "png", res.Image.Format)
	assert.Positive(t, res.Processing.TotalNs)
	require.NoError(t, ValidateResult(res))

	st, ok := res.Type()
	assert.True(t, ok)
	assert.Equal(t, soil.Alluvial, st)
}

func TestRunRejected(t *testing.T) {
	p := newTestPipeline(t, classifier.NewStaticModel(unsureProbs))

	res := p.Run(context.Background(), testutil.SoilPNG(t))
	require.Equal(t, StatusRejected, res.Status)
	assert.Equal(t, decision.RejectReason, res.Reason)
	assert.Equal(t, "Unable to classify the image confidently", res.Reason)
	assert.InDelta(t, 55.0, res.Confidence, 1e-9)
	assert.Empty(t, res.SoilType)
	assert.Empty(t, res.Crops)
	_, ok := res.Type()
	assert.False(t, ok)
	require.NoError(t, ValidateResult(res))
}

func TestRunThresholdBoundary(t *testing.T) {
	tests := []struct {
		name   string
		probs  []float32
		status Status
	}{
		{"exactly seventy accepted", []float32{0.1, 0.7, 0.1, 0.1}, StatusAccepted},
		{"just below rejected", []float32{0.1, 0.6999, 0.1, 0.1001}, StatusRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, classifier.NewStaticModel(tt.probs))
			res := p.Run(context.Background(), testutil.SoilPNG(t))
			assert.Equal(t, tt.status, res.Status)
		})
	}
}

func TestRunDecodeErrors(t *testing.T) {
	m := classifier.NewStaticModel(alluvialProbs)
	p := newTestPipeline(t, m)

	inputs := map[string][]byte{
		"empty":     nil,
		"text":      []byte("this is not an image"),
		"truncated": testutil.SoilPNG(t)[:40],
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			res := p.Run(context.Background(), data)
			require.Equal(t, StatusDecodeError, res.Status)
			assert.True(t, strings.HasSuffix(res.Message, DecodeErrorSuffix), res.Message)
			assert.Empty(t, res.SoilType)
			assert.Nil(t, res.Confidences)
			require.NoError(t, ValidateResult(res))
		})
	}
	assert.Equal(t, int64(0), m.Calls(), "model must not run for undecodable input")
}

func TestRunEnforcesPixelBudget(t *testing.T) {
	m := classifier.NewStaticModel(alluvialProbs)
	p, err := NewBuilder().WithModel(m).WithInputSize(32, 32).WithMaxPixels(3000).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	res := p.Run(context.Background(), testutil.SoilPNG(t)) // 64x48
	require.Equal(t, StatusDecodeError, res.Status)
	assert.Contains(t, res.Message, "pixel limit")
	assert.True(t, strings.HasSuffix(res.Message, DecodeErrorSuffix), res.Message)

	def := newTestPipeline(t, m)
	res = def.Run(context.Background(), testutil.HugePNG(t, 40000, 40000))
	require.Equal(t, StatusDecodeError, res.Status)
	assert.Contains(t, res.Message, "40000x40000")
	require.NoError(t, ValidateResult(res))
	assert.Equal(t, int64(0), m.Calls())
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name  string
		model classifier.Model
	}{
		{"model error", classifier.NewFuncModel(func(onnx.Tensor) ([]float32, error) {
			return nil, errors.New("session exploded")
		})},
		{"wrong vector length", classifier.NewStaticModel([]float32{0.5, 0.5})},
		{"model panic", classifier.NewFuncModel(func(onnx.Tensor) ([]float32, error) {
			panic("boom")
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, tt.model)
			res := p.Run(context.Background(), testutil.SoilPNG(t))
			require.Equal(t, StatusFailed, res.Status)
			assert.NotEmpty(t, res.Message)
			assert.Empty(t, res.SoilType)
			require.NoError(t, ValidateResult(res))
		})
	}
}

func TestRunCanceledContext(t *testing.T) {
	m := classifier.NewStaticModel(alluvialProbs)
	p := newTestPipeline(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := p.Run(ctx, testutil.SoilPNG(t))
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, int64(0), m.Calls())
}

func TestRunIsDeterministic(t *testing.T) {
	p := newTestPipeline(t, classifier.NewStaticModel(alluvialProbs))
	data := testutil.SoilPNG(t)

	first := p.Run(context.Background(), data)
	second := p.Run(context.Background(), data)
	first.Processing, second.Processing = Timings{}, Timings{}
	assert.Equal(t, first, second)
}

func TestRunPassesExactTensorShape(t *testing.T) {
	var got []int64
	m := classifier.NewFuncModel(func(in onnx.Tensor) ([]float32, error) {
		got = append([]int64(nil), in.Shape...)
		if err := onnx.VerifyUnitRange(in.Data); err != nil {
			return nil, err
		}
		return alluvialProbs, nil
	})
	p, err := NewBuilder().WithModel(m).WithInputSize(40, 24).Build()
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	res := p.Run(context.Background(), testutil.SoilPNG(t))
	require.Equal(t, StatusAccepted, res.Status, res.Message)
	assert.Equal(t, []int64{1, 24, 40, 3}, got)
}

func TestRunConcurrent(t *testing.T) {
	m := classifier.NewStaticModel(alluvialProbs)
	p := newTestPipeline(t, m)
	data := testutil.SoilPNG(t)

	const workers = 8
	var wg sync.WaitGroup
	statuses := make([]Status, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i] = p.Run(context.Background(), data).Status
		}(i)
	}
	wg.Wait()

	for _, s := range statuses {
		assert.Equal(t, StatusAccepted, s)
	}
	assert.Equal(t, int64(workers), m.Calls())
	assert.Equal(t, int64(workers), p.Profiler().Snapshot().ByStatus[StatusAccepted])
}

func TestRunLogsInputTensorStatsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	p := newTestPipeline(t, classifier.NewStaticModel(alluvialProbs))
	res := p.Run(context.Background(), testutil.SoilPNG(t))
	require.Equal(t, StatusAccepted, res.Status, res.Message)

	var entry map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		if e["msg"] == "Input tensor prepared" {
			entry = e
		}
	}
	require.NotNil(t, entry, "no tensor stats logged")
	minV, _ := entry["min"].(float64)
	maxV, _ := entry["max"].(float64)
	mean, _ := entry["mean"].(float64)
	assert.GreaterOrEqual(t, minV, 0.0)
	assert.LessOrEqual(t, maxV, 1.0)
	assert.True(t, minV <= mean && mean <= maxV)
}

func TestRunAfterCloseFails(t *testing.T) {
	m := classifier.NewStaticModel(alluvialProbs)
	p := newTestPipeline(t, m)
	require.NoError(t, p.Close())

	res := p.Run(context.Background(), testutil.SoilPNG(t))
	require.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Message, "closed")
	assert.Equal(t, int64(0), m.Calls())
}

func TestCloseDuringConcurrentRuns(t *testing.T) {
	p := newTestPipeline(t, classifier.NewStaticModel(alluvialProbs))
	data := testutil.SoilPNG(t)

	const workers = 8
	var wg sync.WaitGroup
	statuses := make(chan Status, workers*4)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 4 {
				statuses <- p.Run(context.Background(), data).Status
			}
		}()
	}
	require.NoError(t, p.Close())
	wg.Wait()
	close(statuses)

	for s := range statuses {
		assert.Contains(t, []Status{StatusAccepted, StatusFailed}, s)
	}
}

func TestRunFile(t *testing.T) {
	p := newTestPipeline(t, classifier.NewStaticModel(alluvialProbs))
	path := testutil.WriteTempFile(t, "soil.png", testutil.SoilPNG(t))

	res, err := p.RunFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, res.Status)

	_, err = p.RunFile(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	p := newTestPipeline(t, classifier.NewStaticModel(alluvialProbs))
	d, err := p.Classify([]float32{0.05, 0.05, 0.85, 0.05})
	require.NoError(t, err)
	assert.True(t, d.Accepted)
	assert.Equal(t, soil.Desert, d.Type)
}

func TestProfilerSnapshot(t *testing.T) {
	p := newTestPipeline(t, classifier.NewStaticModel(alluvialProbs))
	p.Run(context.Background(), testutil.SoilPNG(t))
	p.Run(context.Background(), nil)

	s := p.Profiler().Snapshot()
	assert.Equal(t, int64(2), s.Runs)
	assert.Equal(t, int64(1), s.ByStatus[StatusAccepted])
	assert.Equal(t, int64(1), s.ByStatus[StatusDecodeError])
	assert.Equal(t, int64(0), s.ByStatus[StatusFailed])
	assert.Positive(t, s.AvgTotal)

	var empty Profiler
	assert.Equal(t, int64(0), empty.Snapshot().Runs)
}

func TestRuntimeStats(t *testing.T) {
	p := newTestPipeline(t, classifier.NewStaticModel(alluvialProbs))
	p.Run(context.Background(), testutil.SoilPNG(t))
	p.Run(context.Background(), testutil.SoilPNG(t))

	rs := p.RuntimeStats()
	assert.Positive(t, rs.Goroutines)
	assert.Equal(t, 32*32*3, rs.TensorPool.Size)
	assert.Equal(t, int64(2), rs.TensorPool.Gets)
	assert.Equal(t, int64(2), rs.TensorPool.Puts)
}

func TestRunRecommendsForEverySoilType(t *testing.T) {
	catalog, err := soil.DefaultCatalog()
	require.NoError(t, err)
	photo := testutil.SoilPNG(t)

	for _, st := range soil.Types() {
		t.Run(st.String(), func(t *testing.T) {
			probs := mock.NewPeakedVector(soil.Count(), st.Index(), 0.85)
			require.InDelta(t, 1.0, mock.Sum(probs), 1e-5)

			p := newTestPipeline(t, classifier.NewStaticModel(probs))
			res := p.Run(context.Background(), photo)
			require.Equal(t, StatusAccepted, res.Status, res.Message)
			assert.Equal(t, st.String(), res.SoilType)
			assert.InDelta(t, 85.0, res.Confidence, 1e-9)

			want, err := catalog.Lookup(st)
			require.NoError(t, err)
			assert.Equal(t, want, res.Crops)
		})
	}
}

func TestRunUniformOutputIsRejected(t *testing.T) {
	p := newTestPipeline(t, classifier.NewStaticModel(mock.NewUniformVector(soil.Count())))

	res := p.Run(context.Background(), testutil.SoilPNG(t))
	require.Equal(t, StatusRejected, res.Status)
	assert.Equal(t, decision.RejectReason, res.Reason)
	assert.InDelta(t, 25.0, res.Confidence, 1e-9)
	assert.Empty(t, res.Crops)
}
