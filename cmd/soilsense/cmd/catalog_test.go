package cmd

import (
	"encoding/json"
	"testing"

	"github.com/MeKo-Tech/soilsense/internal/soil"
	"github.com/MeKo-Tech/soilsense/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tomlCatalog = `
[[categories.Alluvial]]
name = "paddy"
description = "flooded fields"

[[categories.Black]]
name = "cotton"
description = "deep black soil"

[[categories.Desert]]
name = "millet"
description = "low water"

[[categories.Red]]
name = "groundnut"
description = "light soil"
`

func TestCatalogCommandText(t *testing.T) {
	out, _, err := executeCommand(t, "catalog")
	require.NoError(t, err)
	for _, name := range soil.Names() {
		assert.Contains(t, out, name+":")
	}
	assert.Contains(t, out, "  - rice")
}

func TestCatalogCommandSingleTypeJSON(t *testing.T) {
	out, _, err := executeCommand(t, "catalog", "BLACK", "--format", "json")
	require.NoError(t, err)

	var entries []soil.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, soil.Black, entries[0].Type)
	assert.NotEmpty(t, entries[0].Crops)
}

func TestCatalogCommandCustomFile(t *testing.T) {
	path := testutil.WriteTempFile(t, "crops.toml", []byte(tomlCatalog))

	out, _, err := executeCommand(t, "catalog", "desert", "--catalog", path)
	require.NoError(t, err)
	assert.Equal(t, "Desert:\n  - millet: low water", out)
}

func TestCatalogCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		errText string
	}{
		{"unknown type", []string{"catalog", "loam"}, "known types: Alluvial, Black, Desert, Red"},
		{"bad format", []string{"catalog", "--format", "xml"}, "invalid output format"},
		{"missing file", []string{"catalog", "--catalog", "/does/not/exist.yaml"}, "read catalog"},
		{"too many args", []string{"catalog", "red", "black"}, "accepts at most 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}
