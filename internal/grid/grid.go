// Package grid holds the occupancy grid consumed by the decomposer.
//
// A Grid is a dense boolean field stored as a flat buffer indexed
// (z, y, x). A true cell must be covered by exactly one part; claiming a
// cell flips it to false and it is never reconsidered.
package grid

import (
	"errors"
	"fmt"
	"math"
)

// MaxCells caps the number of cells a grid may address.
const MaxCells = math.MaxInt32

var (
	// ErrNoCells is returned when a grid is requested from an empty coordinate list.
	ErrNoCells = errors.New("no filled cells")

	// ErrTooLarge is returned when the extents address more than MaxCells cells.
	ErrTooLarge = errors.New("grid too large")
)

// Coord is an integer cell coordinate.
type Coord struct {
	X, Y, Z int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.X, c.Y, c.Z)
}

// Less orders coordinates lexicographically on (X, Y, Z).
func (c Coord) Less(o Coord) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.Z < o.Z
}

// Dims are the grid extents along each axis.
type Dims struct {
	X, Y, Z int
}

// Cells returns the total number of cells addressed by the extents.
func (d Dims) Cells() int { return d.X * d.Y * d.Z }

func (d Dims) String() string {
	return fmt.Sprintf("%dx%dx%d", d.X, d.Y, d.Z)
}

// Grid is a mutable 3D occupancy field. It is not safe for concurrent
// mutation of the same layer.
type Grid struct {
	dims  Dims
	cells []bool
}

// New allocates an empty grid with the given extents.
func New(d Dims) (*Grid, error) {
	if d.X < 1 || d.Y < 1 || d.Z < 1 {
		return nil, fmt.Errorf("invalid grid extents %s: every axis must be at least 1", d)
	}
	if d.X > MaxCells || d.Y > MaxCells/d.X || d.Z > MaxCells/(d.X*d.Y) {
		return nil, fmt.Errorf("%w: extents %s exceed %d cells", ErrTooLarge, d, MaxCells)
	}
	return &Grid{dims: d, cells: make([]bool, d.Cells())}, nil
}

// FromCoords builds a grid whose extents are the per-axis max index + 1.
// Cells not listed stay unfilled. Duplicate coordinates are harmless.
func FromCoords(coords []Coord) (*Grid, error) {
	if len(coords) == 0 {
		return nil, ErrNoCells
	}
	var d Dims
	for _, c := range coords {
		if c.X < 0 || c.Y < 0 || c.Z < 0 {
			return nil, fmt.Errorf("negative coordinate %s", c)
		}
		if c.X >= MaxCells || c.Y >= MaxCells || c.Z >= MaxCells {
			return nil, fmt.Errorf("%w: coordinate %s out of range", ErrTooLarge, c)
		}
		d.X = max(d.X, c.X+1)
		d.Y = max(d.Y, c.Y+1)
		d.Z = max(d.Z, c.Z+1)
	}
	g, err := New(d)
	if err != nil {
		return nil, err
	}
	for _, c := range coords {
		g.cells[g.index(c)] = true
	}
	return g, nil
}

// Dims returns the grid extents.
func (g *Grid) Dims() Dims { return g.dims }

func (g *Grid) index(c Coord) int {
	return (c.Z*g.dims.Y+c.Y)*g.dims.X + c.X
}

// InBounds reports whether c addresses a cell of the grid.
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < g.dims.X &&
		c.Y >= 0 && c.Y < g.dims.Y &&
		c.Z >= 0 && c.Z < g.dims.Z
}

// Filled reports whether c is inside the grid and still needs covering.
func (g *Grid) Filled(c Coord) bool {
	return g.InBounds(c) && g.cells[g.index(c)]
}

// Set marks a cell filled or empty.
func (g *Grid) Set(c Coord, v bool) error {
	if !g.InBounds(c) {
		return fmt.Errorf("coordinate %s outside grid %s", c, g.dims)
	}
	g.cells[g.index(c)] = v
	return nil
}

// Claim flips a filled cell to claimed. It reports false if the cell was
// out of bounds or already empty.
func (g *Grid) Claim(c Coord) bool {
	if !g.Filled(c) {
		return false
	}
	g.cells[g.index(c)] = false
	return true
}

// Count returns the number of filled cells.
func (g *Grid) Count() int {
	n := 0
	for _, v := range g.cells {
		if v {
			n++
		}
	}
	return n
}

// LayerCount returns the number of filled cells on layer z.
func (g *Grid) LayerCount(z int) int {
	if z < 0 || z >= g.dims.Z {
		return 0
	}
	n := 0
	stride := g.dims.X * g.dims.Y
	for _, v := range g.cells[z*stride : (z+1)*stride] {
		if v {
			n++
		}
	}
	return n
}

// Coords lists filled cells in raster order (z, then y, then x ascending).
func (g *Grid) Coords() []Coord {
	out := make([]Coord, 0, g.Count())
	for z := 0; z < g.dims.Z; z++ {
		for y := 0; y < g.dims.Y; y++ {
			for x := 0; x < g.dims.X; x++ {
				c := Coord{X: x, Y: y, Z: z}
				if g.cells[g.index(c)] {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

// Clone returns an independent copy.
func (g *Grid) Clone() *Grid {
	cells := make([]bool, len(g.cells))
	copy(cells, g.cells)
	return &Grid{dims: g.dims, cells: cells}
}
