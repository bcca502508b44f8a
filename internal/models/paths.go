// Package models resolves where classifier artifacts live on disk.
package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Model file names.
const (
	// SoilClassifier is the ONNX export of the soil type classification network.
	SoilClassifier = "soil_classifier.onnx"
	// SoilClassifierFP16 is the half-precision variant of the same network.
	SoilClassifierFP16 = "soil_classifier_fp16.onnx"
)

// TypeClassification is the sub-directory holding classifier models.
const TypeClassification = "classification"

// DefaultModelsDir is used when no directory is configured.
const DefaultModelsDir = "models"

// EnvModelsDir overrides the models directory.
const EnvModelsDir = "SOILSENSE_MODELS_DIR"

// ModelInfo contains metadata about a model.
type ModelInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Filename    string `json:"filename"`
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.New("could not find project root (go.mod not found)")
}

// GetModelsDir returns the models directory.
// Priority: 1. Explicit modelsDir parameter, 2. Environment variable, 3. Project root + default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}

	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}

	if projectRoot, err := findProjectRoot(); err == nil {
		return filepath.Join(projectRoot, DefaultModelsDir)
	}

	return DefaultModelsDir
}

// ResolveModelPath resolves filename under modelsDir, preferring the
// organized <type>/<filename> layout and falling back to a flat layout.
func ResolveModelPath(modelsDir, modelType, filename string) string {
	baseDir := GetModelsDir(modelsDir)

	if modelType != "" {
		organized := filepath.Join(baseDir, modelType, filename)
		if _, err := os.Stat(organized); err == nil {
			return organized
		}
	}

	return filepath.Join(baseDir, filename)
}

// GetClassifierModelPath returns the classifier path. An explicit path wins;
// otherwise the default (or half-precision) file is resolved under modelsDir.
func GetClassifierModelPath(modelsDir, explicit string, fp16 bool) string {
	if explicit != "" {
		return explicit
	}
	name := SoilClassifier
	if fp16 {
		name = SoilClassifierFP16
	}
	return ResolveModelPath(modelsDir, TypeClassification, name)
}

// ValidateModelExists checks if a model file exists at the given path.
func ValidateModelExists(modelPath string) error {
	info, err := os.Stat(modelPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	if err != nil {
		return fmt.Errorf("stat model file %s: %w", modelPath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("model path is a directory: %s", modelPath)
	}
	return nil
}

// ListAvailableModels returns information about known models.
func ListAvailableModels() []ModelInfo {
	return []ModelInfo{
		{
			Name:        "soil-classifier",
			Type:        TypeClassification,
			Description: "Soil type classifier (Alluvial, Black, Desert, Red), 1024x1024 RGB input",
			Filename:    SoilClassifier,
		},
		{
			Name:        "soil-classifier-fp16",
			Type:        TypeClassification,
			Description: "Half-precision soil type classifier",
			Filename:    SoilClassifierFP16,
		},
	}
}
