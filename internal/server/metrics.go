package server

import (
	"time"

	"github.com/MeKo-Tech/soilsense/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soilsense_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soilsense_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Classification metrics
	classifyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soilsense_classify_requests_total",
			Help: "Total number of classification requests by outcome",
		},
		[]string{"source", "status"}, // source: http, websocket
	)

	classifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soilsense_classify_duration_seconds",
			Help:    "End-to-end classification duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	classifyConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soilsense_classify_confidence_percent",
			Help:    "Winning confidence of accepted classifications",
			Buckets: []float64{70, 75, 80, 85, 90, 95, 99, 100},
		},
		[]string{"soil_type"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soilsense_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, data
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soilsense_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 4 * 1024 * 1024, 16 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "soilsense_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soilsense_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

// recordClassification updates the classification metrics for one run.
func recordClassification(source string, res *pipeline.Result, d time.Duration) {
	classifyRequestsTotal.WithLabelValues(source, string(res.Status)).Inc()
	classifyDuration.WithLabelValues(source).Observe(d.Seconds())
	if res.Status == pipeline.StatusAccepted {
		classifyConfidence.WithLabelValues(res.SoilType).Observe(res.Confidence)
	}
}
