package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModelsDir(t *testing.T) {
	t.Run("explicit wins", func(t *testing.T) {
		t.Setenv(EnvModelsDir, "/from/env")
		assert.Equal(t, "/explicit", GetModelsDir("/explicit"))
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(EnvModelsDir, "/from/env")
		assert.Equal(t, "/from/env", GetModelsDir(""))
	})

	t.Run("project root default", func(t *testing.T) {
		t.Setenv(EnvModelsDir, "")
		got := GetModelsDir("")
		assert.Equal(t, DefaultModelsDir, filepath.Base(got))
	})
}

func TestResolveModelPath(t *testing.T) {
	dir := t.TempDir()

	flat := ResolveModelPath(dir, TypeClassification, SoilClassifier)
	assert.Equal(t, filepath.Join(dir, SoilClassifier), flat)

	organizedDir := filepath.Join(dir, TypeClassification)
	require.NoError(t, os.MkdirAll(organizedDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(organizedDir, SoilClassifier), []byte("x"), 0o600))

	organized := ResolveModelPath(dir, TypeClassification, SoilClassifier)
	assert.Equal(t, filepath.Join(organizedDir, SoilClassifier), organized)
}

func TestGetClassifierModelPath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "/x/model.onnx", GetClassifierModelPath(dir, "/x/model.onnx", false))
	assert.Equal(t, filepath.Join(dir, SoilClassifier), GetClassifierModelPath(dir, "", false))
	assert.Equal(t, filepath.Join(dir, SoilClassifierFP16), GetClassifierModelPath(dir, "", true))
}

func TestValidateModelExists(t *testing.T) {
	dir := t.TempDir()
	require.Error(t, ValidateModelExists(filepath.Join(dir, "missing.onnx")))
	require.Error(t, ValidateModelExists(dir))

	path := filepath.Join(dir, "m.onnx")
	require.NoError(t, os.WriteFile(path, []byte("onnx"), 0o600))
	require.NoError(t, ValidateModelExists(path))
}

func TestListAvailableModels(t *testing.T) {
	list := ListAvailableModels()
	require.NotEmpty(t, list)
	for _, m := range list {
		assert.Equal(t, TypeClassification, m.Type)
		assert.NotEmpty(t, m.Filename)
	}
}
