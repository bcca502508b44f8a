package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/soilsense/internal/models"
	"github.com/MeKo-Tech/soilsense/internal/soil"
	"github.com/MeKo-Tech/soilsense/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:      "healthy",
		Version:     version.Version,
		Time:        time.Now().UTC().Format(time.RFC3339),
		ModelLoaded: s.pipeline != nil,
	}
	writeJSON(w, http.StatusOK, response)
}

// modelsHandler returns information about available models.
func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	modelInfos := models.ListAvailableModels()
	modelList := make([]ModelInfo, len(modelInfos))
	for i, info := range modelInfos {
		modelList[i] = ModelInfo{
			Name:        info.Name,
			Path:        models.ResolveModelPath("", info.Type, info.Filename),
			Type:        info.Type,
			Description: info.Description,
		}
	}
	if s.pipeline != nil && len(modelList) > 0 {
		modelList[0].Config = s.pipeline.Info()
	}

	writeJSON(w, http.StatusOK, ModelsResponse{Models: modelList, Count: len(modelList)})
}

// catalogHandler lists crop recommendations, optionally for one soil type.
func (s *Server) catalogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.pipeline == nil {
		s.writeErrorResponse(w, "Classification pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	entries := s.pipeline.Catalog().Entries()
	if name := r.URL.Query().Get("type"); name != "" {
		t, err := soil.ParseType(name)
		if err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		entries = entries[t.Index() : t.Index()+1]
	}

	writeJSON(w, http.StatusOK, CatalogResponse{Categories: entries, Count: len(entries)})
}

// categoriesHandler lists the soil types in model output order.
func (s *Server) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := CategoriesResponse{Categories: soil.Names()}
	if s.pipeline != nil {
		if th, ok := s.pipeline.Info()["threshold"].(float64); ok {
			resp.Threshold = th
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// statsHandler reports cumulative classification and runtime statistics.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.pipeline == nil {
		s.writeErrorResponse(w, "Classification pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Profile: s.pipeline.Stats(),
		Runtime: s.pipeline.RuntimeStats(),
	})
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, ClassifyResponse{Success: false, Error: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Log error, but can't send another response
		slog.Error("Failed to encode response", "error", err)
	}
}
