package soil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsTotal(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	for _, typ := range Types() {
		crops, err := c.Lookup(typ)
		require.NoError(t, err, "lookup %s", typ)
		assert.Len(t, crops, 3, "crops for %s", typ)
		for _, crop := range crops {
			assert.NotEmpty(t, crop.Name)
			assert.NotEmpty(t, crop.Description)
		}
	}
}

func TestDefaultCatalogContents(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	want := map[Type][]string{
		Alluvial: {"rice", "sugarcane", "maize"},
		Black:    {"Cotton", "Tobacco", "Sorghum"},
		Desert:   {"Cactus", "Date palm", "Jojoba"},
		Red:      {"Wheat", "Pulses", "Groundnut"},
	}
	for typ, names := range want {
		crops, err := c.Lookup(typ)
		require.NoError(t, err)
		got := make([]string, len(crops))
		for i, crop := range crops {
			got[i] = crop.Name
		}
		assert.Equal(t, names, got, "order for %s", typ)
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	crops, err := c.Lookup(Red)
	require.NoError(t, err)
	crops[0].Name = "mutated"

	again, err := c.Lookup(Red)
	require.NoError(t, err)
	assert.Equal(t, "Wheat", again[0].Name)
}

func TestCropString(t *testing.T) {
	assert.Equal(t, "Cactus: Spiky.", Crop{Name: "Cactus", Description: "Spiky."}.String())
	assert.Equal(t, "Cactus", Crop{Name: "Cactus"}.String())
}

func TestNewCatalogMissingCategory(t *testing.T) {
	_, err := NewCatalog(map[Type][]Crop{
		Alluvial: {{Name: "rice"}},
		Black:    {{Name: "Cotton"}},
		Desert:   {{Name: "Cactus"}},
	})
	require.ErrorIs(t, err, ErrCatalogMismatch)
	assert.Contains(t, err.Error(), "Red")
}

func TestNewCatalogUnknownCategory(t *testing.T) {
	entries := map[Type][]Crop{
		Alluvial: {{Name: "rice"}},
		Black:    {{Name: "Cotton"}},
		Desert:   {{Name: "Cactus"}},
		Red:      {{Name: "Wheat"}},
		Type(7):  {{Name: "Moss"}},
	}
	_, err := NewCatalog(entries)
	require.ErrorIs(t, err, ErrCatalogMismatch)
}

func TestParseCatalogRejectsUnknownName(t *testing.T) {
	doc := []byte(`
categories:
  Alluvial: [{name: rice}]
  Black: [{name: Cotton}]
  Desert: [{name: Cactus}]
  Red: [{name: Wheat}]
  Peat: [{name: Cranberry}]
`)
	_, err := ParseCatalog(doc, "yaml")
	require.ErrorIs(t, err, ErrCatalogMismatch)
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestParseCatalogEmptyName(t *testing.T) {
	doc := []byte(`
categories:
  Alluvial: [{name: "  "}]
  Black: [{name: Cotton}]
  Desert: [{name: Cactus}]
  Red: [{name: Wheat}]
`)
	_, err := ParseCatalog(doc, "yaml")
	require.ErrorIs(t, err, ErrCatalogMismatch)
}

func TestParseCatalogUnsupportedFormat(t *testing.T) {
	_, err := ParseCatalog([]byte("{}"), "xml")
	require.Error(t, err)
}

func TestLoadCatalogTOML(t *testing.T) {
	doc := `
[[categories.alluvial]]
name = "rice"
description = "Paddy."

[[categories.black]]
name = "Cotton"

[[categories.desert]]
name = "Jojoba"

[[categories.red]]
name = "Groundnut"
description = "Peanuts."
`
	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)

	crops, err := c.Lookup(Red)
	require.NoError(t, err)
	assert.Equal(t, []Crop{{Name: "Groundnut", Description: "Peanuts."}}, crops)
}

func TestLoadCatalogYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, defaultCatalogYAML, 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 4)
}

func TestLoadCatalogEmptyPathUsesDefault(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	entries := c.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, Alluvial, entries[0].Type)
	assert.Equal(t, Red, entries[3].Type)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
