package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/MeKo-Tech/soilsense/internal/decision"
	"github.com/MeKo-Tech/soilsense/internal/pipeline"
	"github.com/MeKo-Tech/soilsense/internal/soil"
)

// mockPipeline is a canned implementation of the pipeline for testing.
type mockPipeline struct {
	mu       sync.Mutex
	result   *pipeline.Result
	catalog  *soil.Catalog
	runs     int
	lastData []byte
	closed   bool
}

// newMockPipeline returns a mock that always yields res (an accepted
// Alluvial result when res is nil).
func newMockPipeline(res *pipeline.Result) *mockPipeline {
	cat, err := soil.DefaultCatalog()
	if err != nil {
		panic(err)
	}
	if res == nil {
		crops, _ := cat.Lookup(soil.Alluvial)
		res = &pipeline.Result{
			Status:     pipeline.StatusAccepted,
			SoilType:   soil.Alluvial.String(),
			Confidence: 92.1,
			Confidences: decision.Confidences{
				soil.Alluvial: 92.1, soil.Black: 5, soil.Desert: 2, soil.Red: 0.9,
			},
			Crops: crops,
		}
	}
	return &mockPipeline{result: res, catalog: cat}
}

func (m *mockPipeline) Run(_ context.Context, data []byte) *pipeline.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	m.lastData = append([]byte(nil), data...)
	cp := *m.result
	return &cp
}

func (m *mockPipeline) Catalog() *soil.Catalog { return m.catalog }

func (m *mockPipeline) Info() map[string]interface{} {
	return map[string]interface{}{"threshold": decision.DefaultThreshold, "model_path": "mock"}
}

func (m *mockPipeline) Stats() pipeline.ProfileSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return pipeline.ProfileSnapshot{
		Runs:     int64(m.runs),
		ByStatus: map[pipeline.Status]int64{m.result.Status: int64(m.runs)},
	}
}

func (m *mockPipeline) RuntimeStats() pipeline.RuntimeStats {
	return pipeline.RuntimeStats{Goroutines: 1}
}

func (m *mockPipeline) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockPipeline) runCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

// createMultipartRequest builds a POST with data in the given form field.
func createMultipartRequest(url, field, filename string, data []byte, extra map[string]string) *http.Request {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		if err != nil {
			panic(err)
		}
		_, _ = part.Write(data)
	}
	for k, v := range extra {
		_ = writer.WriteField(k, v)
	}
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// newTestServer returns a server around a mock pipeline.
func newTestServer(m *mockPipeline) *Server {
	return &Server{pipeline: m, corsOrigin: "*", maxUploadMB: 1, timeoutSec: 5}
}
