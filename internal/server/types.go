package server

import (
	"context"
	"net/http"
	"time"

	"github.com/MeKo-Tech/soilsense/internal/pipeline"
	"github.com/MeKo-Tech/soilsense/internal/soil"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// pipelineInterface defines the methods needed by the server from a pipeline.
type pipelineInterface interface {
	Run(ctx context.Context, data []byte) *pipeline.Result
	Catalog() *soil.Catalog
	Info() map[string]interface{}
	Stats() pipeline.ProfileSnapshot
	RuntimeStats() pipeline.RuntimeStats
	Close() error
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    pipelineInterface
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigin     string
	MaxUploadMB    int64
	TimeoutSec     int
	PipelineConfig pipeline.Config
	RateLimit      RateLimitConfig
}

// RateLimitConfig configures per-client limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // bytes
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version,omitempty"`
	Time        string `json:"time"`
	ModelLoaded bool   `json:"model_loaded"`
}

// CatalogResponse is returned by /catalog.
type CatalogResponse struct {
	Categories []soil.Entry `json:"categories"`
	Count      int          `json:"count"`
}

// CategoriesResponse is returned by /categories.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Threshold  float64  `json:"threshold,omitempty"`
}

// ModelInfo describes a known model artifact.
type ModelInfo struct {
	Name        string      `json:"name"`
	Path        string      `json:"path"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Config      interface{} `json:"config,omitempty"`
}

// ModelsResponse is returned by /models.
type ModelsResponse struct {
	Models []ModelInfo `json:"models"`
	Count  int         `json:"count"`
}

// StatsResponse is returned by /stats.
type StatsResponse struct {
	Profile pipeline.ProfileSnapshot `json:"profile"`
	Runtime pipeline.RuntimeStats    `json:"runtime"`
}

// ClassifyResponse wraps a pipeline result for /classify.
type ClassifyResponse struct {
	Success bool             `json:"success"`
	Result  *pipeline.Result `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// NewServer builds the classification pipeline and returns a server around it.
func NewServer(config Config) (*Server, error) {
	pl, err := pipeline.NewBuilderFromConfig(config.PipelineConfig).Build()
	if err != nil {
		return nil, err
	}
	return NewServerWithPipeline(config, pl), nil
}

// NewServerWithPipeline returns a server around an already built pipeline.
// The server takes ownership and closes it on Close.
func NewServerWithPipeline(config Config, pl *pipeline.Pipeline) *Server {
	s := &Server{
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
	}
	if pl != nil {
		s.pipeline = pl
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 16
	}
	if config.RateLimit.Enabled {
		rl := config.RateLimit
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return s
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.pipeline != nil {
		return s.pipeline.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/models", s.corsMiddleware(s.modelsHandler))
	mux.HandleFunc("/catalog", s.corsMiddleware(s.catalogHandler))
	mux.HandleFunc("/categories", s.corsMiddleware(s.categoriesHandler))
	mux.HandleFunc("/stats", s.corsMiddleware(s.statsHandler))
	mux.HandleFunc("/classify", s.corsMiddleware(s.rateLimitMiddleware(s.classifyHandler)))
	mux.HandleFunc("/ws/classify", s.classifyWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}

// StartBackground launches housekeeping goroutines bound to ctx.
func (s *Server) StartBackground(ctx context.Context) {
	if s.rateLimiter != nil {
		go s.rateLimiter.RunCleanup(ctx, 10*time.Minute, 24*time.Hour)
	}
}
