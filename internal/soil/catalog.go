package soil

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// ErrCatalogMismatch reports a catalog that does not cover exactly the set of
// soil types the classifier can emit. It is a startup configuration error.
var ErrCatalogMismatch = errors.New("recommendation catalog does not match soil types")

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Crop is a single recommendation entry.
type Crop struct {
	Name        string `yaml:"name" toml:"name" json:"name"`
	Description string `yaml:"description" toml:"description" json:"description"`
}

// String renders the crop as "Name: description".
func (c Crop) String() string {
	if c.Description == "" {
		return c.Name
	}
	return c.Name + ": " + c.Description
}

type catalogDocument struct {
	Categories map[string][]Crop `yaml:"categories" toml:"categories"`
}

// Catalog maps each soil type to an ordered list of recommended crops.
// A Catalog is immutable after construction and safe for concurrent reads.
type Catalog struct {
	entries map[Type][]Crop
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML, "yaml")
}

// LoadCatalog loads the catalog at path, or the built-in catalog when path is
// empty. The format is chosen by extension: .toml for TOML, otherwise YAML.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: catalog path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}
	c, err := ParseCatalog(data, format)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes a catalog document ("yaml" or "toml") and validates it.
func ParseCatalog(data []byte, format string) (*Catalog, error) {
	var doc catalogDocument
	switch format {
	case "toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode toml catalog: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s", format)
	}

	entries := make(map[Type][]Crop, len(doc.Categories))
	for name, crops := range doc.Categories {
		t, err := ParseType(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCatalogMismatch, err)
		}
		if _, dup := entries[t]; dup {
			return nil, fmt.Errorf("%w: duplicate entry for %s", ErrCatalogMismatch, t)
		}
		list := make([]Crop, 0, len(crops))
		for _, c := range crops {
			c.Name = norm.NFC.String(strings.TrimSpace(c.Name))
			c.Description = norm.NFC.String(strings.TrimSpace(c.Description))
			if c.Name == "" {
				return nil, fmt.Errorf("%w: empty crop name under %s", ErrCatalogMismatch, t)
			}
			list = append(list, c)
		}
		entries[t] = list
	}

	c := &Catalog{entries: entries}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewCatalog builds a catalog from an in-memory mapping and validates it.
func NewCatalog(entries map[Type][]Crop) (*Catalog, error) {
	cp := make(map[Type][]Crop, len(entries))
	for t, crops := range entries {
		cp[t] = append([]Crop(nil), crops...)
	}
	c := &Catalog{entries: cp}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every soil type has a non-empty recommendation list
// and that no entry refers to an unknown type.
func (c *Catalog) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: catalog is nil", ErrCatalogMismatch)
	}
	for t := range c.entries {
		if !t.Valid() {
			return fmt.Errorf("%w: unexpected category %s", ErrCatalogMismatch, t)
		}
	}
	var missing []string
	for _, t := range Types() {
		if len(c.entries[t]) == 0 {
			missing = append(missing, t.String())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing recommendations for %s", ErrCatalogMismatch, strings.Join(missing, ", "))
	}
	return nil
}

// Lookup returns the recommended crops for t in catalog order.
func (c *Catalog) Lookup(t Type) ([]Crop, error) {
	crops, ok := c.entries[t]
	if !ok || len(crops) == 0 {
		return nil, fmt.Errorf("%w: no recommendations for %s", ErrCatalogMismatch, t)
	}
	return append([]Crop(nil), crops...), nil
}

// Entry pairs a soil type with its recommendations.
type Entry struct {
	Type  Type   `json:"soil_type"`
	Crops []Crop `json:"crops"`
}

// Entries lists the catalog in soil type order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, t := range Types() {
		if crops, ok := c.entries[t]; ok {
			out = append(out, Entry{Type: t, Crops: append([]Crop(nil), crops...)})
		}
	}
	return out
}
