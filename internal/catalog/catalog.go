// Package catalog defines the fixed table of rectangular plates that the
// decomposer may place, with their unit prices.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	// ErrEmptyCatalog is returned for a catalog with no shapes.
	ErrEmptyCatalog = errors.New("catalog has no shapes")
	// ErrNoUnitShape is returned when full coverage cannot be guaranteed
	// because no 1x1 shape exists.
	ErrNoUnitShape = errors.New("catalog has no 1x1 shape")
)

// Shape is a named rectangular footprint, one layer deep. Rows extend along
// Y and Cols along X.
type Shape struct {
	Name      string  `yaml:"name" json:"name"`
	Rows      int     `yaml:"rows" json:"rows"`
	Cols      int     `yaml:"cols" json:"cols"`
	UnitPrice float64 `yaml:"unit_price" json:"unit_price"`
}

// Area is the number of cells the footprint covers.
func (s Shape) Area() int { return s.Rows * s.Cols }

// ShapeError reports a malformed shape definition.
type ShapeError struct {
	Index  int
	Name   string
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("shape #%d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("shape %q: %s", e.Name, e.Reason)
}

// Catalog is an immutable, name-unique set of shapes. The descending-area
// order is computed once at construction.
type Catalog struct {
	shapes []Shape
	byName map[string]int
	byArea []Shape
}

// New validates shapes and builds a catalog. Declaration order is kept for
// Shapes(); ByArea() uses the ranking described on that method.
func New(shapes []Shape) (*Catalog, error) {
	if len(shapes) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		shapes: make([]Shape, len(shapes)),
		byName: make(map[string]int, len(shapes)),
	}
	copy(c.shapes, shapes)

	for i, s := range c.shapes {
		switch {
		case strings.TrimSpace(s.Name) == "":
			return nil, &ShapeError{Index: i, Reason: "empty name"}
		case s.Rows < 1 || s.Cols < 1:
			return nil, &ShapeError{Index: i, Name: s.Name, Reason: fmt.Sprintf("footprint %dx%d must be at least 1x1", s.Cols, s.Rows)}
		case s.UnitPrice < 0 || math.IsNaN(s.UnitPrice) || math.IsInf(s.UnitPrice, 0):
			return nil, &ShapeError{Index: i, Name: s.Name, Reason: fmt.Sprintf("invalid unit price %v", s.UnitPrice)}
		}
		if _, dup := c.byName[s.Name]; dup {
			return nil, &ShapeError{Index: i, Name: s.Name, Reason: "duplicate name"}
		}
		c.byName[s.Name] = i
	}

	c.byArea = make([]Shape, len(c.shapes))
	copy(c.byArea, c.shapes)
	sort.SliceStable(c.byArea, func(i, j int) bool {
		return rankBefore(c.byArea[i], c.byArea[j])
	})
	return c, nil
}

// rankBefore orders by descending area, then squarer footprint, then name.
func rankBefore(a, b Shape) bool {
	if a.Area() != b.Area() {
		return a.Area() > b.Area()
	}
	da, db := abs(a.Rows-a.Cols), abs(b.Rows-b.Cols)
	if da != db {
		return da < db
	}
	return a.Name < b.Name
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Lookup returns the shape with the given name.
func (c *Catalog) Lookup(name string) (Shape, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Shape{}, false
	}
	return c.shapes[i], true
}

// Len returns the number of shapes.
func (c *Catalog) Len() int { return len(c.shapes) }

// Shapes returns the shapes in declaration order.
func (c *Catalog) Shapes() []Shape {
	out := make([]Shape, len(c.shapes))
	copy(out, c.shapes)
	return out
}

// ByArea returns shapes largest footprint first. Equal areas prefer the
// squarer shape, then the lexicographically smaller name. The returned
// slice is shared and must not be modified.
func (c *Catalog) ByArea() []Shape { return c.byArea }

// Largest returns the first shape in ByArea order.
func (c *Catalog) Largest() Shape { return c.byArea[0] }

// HasUnitShape reports whether a 1x1 shape exists.
func (c *Catalog) HasUnitShape() bool {
	for _, s := range c.shapes {
		if s.Rows == 1 && s.Cols == 1 {
			return true
		}
	}
	return false
}

// RequireUnitShape returns ErrNoUnitShape unless a 1x1 shape exists.
func (c *Catalog) RequireUnitShape() error {
	if !c.HasUnitShape() {
		return ErrNoUnitShape
	}
	return nil
}

// Digest is a stable sha256 over the ranked table, recorded with each run
// so results can be tied to the prices that produced them.
func (c *Catalog) Digest() string {
	h := sha256.New()
	for _, s := range c.byArea {
		fmt.Fprintf(h, "%s|%d|%d|%.4f\n", s.Name, s.Rows, s.Cols, s.UnitPrice)
	}
	return hex.EncodeToString(h.Sum(nil))
}
