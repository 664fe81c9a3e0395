// Package bom turns placements into a priced bill of materials.
package bom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/plate.report/internal/catalog"
	"github.com/banshee-data/plate.report/internal/decompose"
)

// UnknownShapeError is returned when a placement names a shape missing
// from the catalog.
type UnknownShapeError struct {
	Name string
}

func (e *UnknownShapeError) Error() string {
	return fmt.Sprintf("unknown part type: %q", e.Name)
}

// Line is one priced row of the bill of materials.
type Line struct {
	PartType  string
	Quantity  int
	UnitPrice float64
	LineTotal float64
}

// BOM is the aggregate for a placement list.
type BOM struct {
	Lines []Line
	Total float64
}

// Parts returns the total number of parts across all lines.
func (b *BOM) Parts() int {
	n := 0
	for _, l := range b.Lines {
		n += l.Quantity
	}
	return n
}

// FootprintError is returned when a placement covers a different number of
// cells than its shape's area.
type FootprintError struct {
	Index int
	Shape string
	Cells int
	Want  int
}

func (e *FootprintError) Error() string {
	return fmt.Sprintf("part %d (%s) covers %d cells, want %d", e.Index, e.Shape, e.Cells, e.Want)
}

// CheckFootprints verifies every placement names a catalog shape and
// covers exactly that shape's area.
func CheckFootprints(placements []decompose.Placement, c *catalog.Catalog) error {
	for i, p := range placements {
		s, ok := c.Lookup(p.Shape)
		if !ok {
			return &UnknownShapeError{Name: p.Shape}
		}
		if len(p.Cells) != s.Area() {
			return &FootprintError{Index: i, Shape: p.Shape, Cells: len(p.Cells), Want: s.Area()}
		}
	}
	return nil
}

// Count tallies placements per shape name.
func Count(placements []decompose.Placement) map[string]int {
	counts := make(map[string]int)
	for _, p := range placements {
		counts[p.Shape]++
	}
	return counts
}

// Build prices placements against c.
func Build(placements []decompose.Placement, c *catalog.Catalog) (*BOM, error) {
	return FromCounts(Count(placements), c)
}

// FromCounts prices precomputed quantities. Lines come out in the
// catalog's largest-first order; shapes with zero quantity are omitted.
func FromCounts(counts map[string]int, c *catalog.Catalog) (*BOM, error) {
	for name := range counts {
		if _, ok := c.Lookup(name); !ok {
			return nil, &UnknownShapeError{Name: name}
		}
	}

	b := &BOM{}
	totals := make([]float64, 0, len(counts))
	for _, s := range c.ByArea() {
		q := counts[s.Name]
		if q <= 0 {
			continue
		}
		lt := s.UnitPrice * float64(q)
		b.Lines = append(b.Lines, Line{
			PartType:  s.Name,
			Quantity:  q,
			UnitPrice: s.UnitPrice,
			LineTotal: lt,
		})
		totals = append(totals, lt)
	}
	b.Total = floats.Sum(totals)
	return b, nil
}

// Round2 rounds a currency amount to cents for display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
