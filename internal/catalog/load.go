package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const maxCatalogSize = 1 * 1024 * 1024

type catalogFile struct {
	Shapes []Shape `yaml:"shapes"`
}

// Load reads a YAML catalog file:
//
//	shapes:
//	  - {name: "2x2", rows: 2, cols: 2, unit_price: 0.13}
//	  - {name: "1x1", rows: 1, cols: 1, unit_price: 0.07}
func Load(path string) (*Catalog, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("catalog file must have .yaml or .yml extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat catalog file: %w", err)
	}
	if info.Size() > maxCatalogSize {
		return nil, fmt.Errorf("catalog file too large: %d bytes (max %d)", info.Size(), maxCatalogSize)
	}

	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	c, err := Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(cleanPath), err)
	}
	return c, nil
}

// Parse decodes a YAML catalog document. Unknown keys are rejected.
func Parse(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f catalogFile
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, ErrEmptyCatalog
		}
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	return New(f.Shapes)
}

// Marshal renders a catalog as YAML in declaration order.
func Marshal(c *Catalog) ([]byte, error) {
	return yaml.Marshal(catalogFile{Shapes: c.Shapes()})
}
