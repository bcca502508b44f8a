package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/soilsense/internal/pipeline"
	"github.com/MeKo-Tech/soilsense/internal/utils"
)

const (
	formatJSON = "json"
	formatText = "text"
	formatCSV  = "csv"

	// uploadField is the multipart field carrying the photo.
	uploadField = "file"

	// invalidFileMessage is returned for uploads with an unsupported extension.
	invalidFileMessage = "Enter valid image"
)

// classifyHandler classifies one uploaded soil photograph.
func (s *Server) classifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		if isBodyTooLarge(err) {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		s.writeErrorResponse(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	if header.Filename == "" {
		s.writeErrorResponse(w, "No selected file", http.StatusBadRequest)
		return
	}
	if !utils.IsSupportedImage(header.Filename) {
		classifyRequestsTotal.WithLabelValues("http", "invalid_file").Inc()
		s.writeErrorResponse(w, invalidFileMessage, http.StatusBadRequest)
		return
	}
	if header.Size > limit {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return
	}
	uploadSizeBytes.Observe(float64(len(data)))

	if s.pipeline == nil {
		s.writeErrorResponse(w, "Classification pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	res := s.runPipeline(r.Context(), "http", data)
	s.writeClassifyResult(w, r, res)
}

// runPipeline runs one classification with the request timeout applied and
// records metrics for it.
func (s *Server) runPipeline(ctx context.Context, source string, data []byte) *pipeline.Result {
	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	start := time.Now()
	res := s.pipeline.Run(ctx, data)
	recordClassification(source, res, time.Since(start))

	if res.Status == pipeline.StatusFailed {
		slog.Error("Classification failed", "source", source, "error", res.Message)
	}
	return res
}

// statusCodeFor maps a pipeline outcome to an HTTP status.
func statusCodeFor(res *pipeline.Result) int {
	switch res.Status {
	case pipeline.StatusAccepted, pipeline.StatusRejected:
		return http.StatusOK
	case pipeline.StatusDecodeError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeClassifyResult renders a result in the requested format: json
// (default), text or csv, taken from the form or the query string.
func (s *Server) writeClassifyResult(w http.ResponseWriter, r *http.Request, res *pipeline.Result) {
	format := strings.ToLower(r.FormValue("format"))
	if format == "" {
		format = strings.ToLower(r.URL.Query().Get("format"))
	}
	code := statusCodeFor(res)

	var (
		body string
		err  error
	)
	switch format {
	case formatText:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		body, err = pipeline.ToPlainText(res)
	case formatCSV:
		w.Header().Set("Content-Type", "text/csv")
		body, err = pipeline.ToCSV(res)
	default:
		resp := ClassifyResponse{
			Success: res.Status == pipeline.StatusAccepted || res.Status == pipeline.StatusRejected,
			Result:  res,
		}
		if !resp.Success {
			resp.Error = res.Message
		}
		writeJSON(w, code, resp)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("formatting failed: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}
