package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/soilsense/internal/pipeline"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second

	wsResponseType = "classify_response"

	// wsFrameOverhead covers the JSON envelope around a base64 image.
	wsFrameOverhead = 64 << 10
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketClassifyRequest is a JSON text frame carrying one photo. Binary
// frames are treated as raw image bytes.
type WebSocketClassifyRequest struct {
	Image     []byte `json:"image"` // base64 in JSON
	Filename  string `json:"filename,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketClassifyResponse reports progress or the outcome of one request.
type WebSocketClassifyResponse struct {
	Type      string           `json:"type"`
	Status    string           `json:"status"` // "processing", "completed", "error"
	Result    *pipeline.Result `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	ErrorType string           `json:"error_type,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
}

// classifyWebSocketHandler handles WebSocket connections for streaming
// classification, one photo per message.
func (s *Server) classifyWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	conn.SetReadLimit(s.wsReadLimit())
	clientID := getClientIP(r)
	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr, "client", clientID)
	s.handleWebSocketConnection(r.Context(), conn, clientID)
}

// wsUploadLimit is the largest image accepted per message, in bytes.
func (s *Server) wsUploadLimit() int64 {
	if s.maxUploadMB <= 0 {
		return 16 << 20
	}
	return s.maxUploadMB << 20
}

// wsReadLimit bounds a single frame: a JSON text frame carries the image
// base64 encoded, which grows it by a third.
func (s *Server) wsReadLimit() int64 {
	return s.wsUploadLimit()*4/3 + wsFrameOverhead
}

// handleWebSocketConnection processes messages until the client disconnects.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn, clientID string) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				slog.Warn("WebSocket frame exceeds read limit", "client", clientID, "limit", s.wsReadLimit())
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		switch messageType {
		case websocket.TextMessage:
			s.handleWebSocketMessage(ctx, conn, clientID, data)
		case websocket.BinaryMessage:
			s.classifyWebSocketImage(ctx, conn, clientID, data, newRequestID())
		}
	}
}

// handleWebSocketMessage decodes a JSON request and classifies its image.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, clientID string, data []byte) {
	var req WebSocketClassifyRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, req.RequestID, "invalid_request", "No image data provided")
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = newRequestID()
	}
	s.classifyWebSocketImage(ctx, conn, clientID, req.Image, requestID)
}

// classifyWebSocketImage applies the upload and rate limits, runs the
// pipeline and streams the outcome.
func (s *Server) classifyWebSocketImage(ctx context.Context, conn WebSocketConnWriter, clientID string, image []byte, requestID string) {
	if s.pipeline == nil {
		s.sendWebSocketError(conn, requestID, "unavailable", "Classification pipeline not initialized")
		return
	}
	if limit := s.wsUploadLimit(); int64(len(image)) > limit {
		s.sendWebSocketError(conn, requestID, "too_large",
			fmt.Sprintf("File too large (%d bytes, limit %d)", len(image), limit))
		return
	}
	if s.rateLimiter != nil {
		if err := s.rateLimiter.CheckRateLimit(clientID, int64(len(image))); err != nil {
			s.sendWebSocketLimitError(conn, requestID, err)
			return
		}
	}

	s.sendWebSocketResponse(conn, WebSocketClassifyResponse{
		Type:      wsResponseType,
		Status:    "processing",
		RequestID: requestID,
	})

	res := s.runPipeline(ctx, "websocket", image)
	resp := WebSocketClassifyResponse{
		Type:      wsResponseType,
		Status:    "completed",
		Result:    res,
		RequestID: requestID,
	}
	if res.Status == pipeline.StatusDecodeError || res.Status == pipeline.StatusFailed {
		resp.Status = "error"
		resp.Error = res.Message
		resp.ErrorType = string(res.Status)
	}
	s.sendWebSocketResponse(conn, resp)
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketClassifyResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketClassifyResponse{
		Type:      wsResponseType,
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}

// sendWebSocketLimitError reports a rejected rate limit or quota check. The
// connection stays open so the client can retry later.
func (s *Server) sendWebSocketLimitError(conn WebSocketConnWriter, requestID string, err error) {
	var rle *RateLimitError
	var qe *QuotaExceededError
	switch {
	case errors.As(err, &rle):
		rateLimitHits.WithLabelValues(rle.Type).Inc()
		s.sendWebSocketError(conn, requestID, "rate_limit_exceeded", rle.Error())
	case errors.As(err, &qe):
		rateLimitHits.WithLabelValues(qe.Type).Inc()
		s.sendWebSocketError(conn, requestID, "quota_exceeded", qe.Error())
	default:
		slog.Error("Rate limiting check failed", "error", err)
		s.sendWebSocketError(conn, requestID, "internal_error", "Rate limiting check failed")
	}
}

func newRequestID() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}
