package decompose

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/plate.report/internal/catalog"
	"github.com/banshee-data/plate.report/internal/grid"
)

// Placement is one greedy match: a shape name and the cells it covers, in
// row-major order within the footprint starting at the anchor.
type Placement struct {
	Shape string
	Cells []grid.Coord
}

// Anchor is the raster-first cell of the placement.
func (p Placement) Anchor() grid.Coord {
	if len(p.Cells) == 0 {
		return grid.Coord{}
	}
	return p.Cells[0]
}

// Layer is the Z index shared by every covered cell.
func (p Placement) Layer() int { return p.Anchor().Z }

// MinCoord returns the lexicographically smallest (x, y, z) covered cell.
func (p Placement) MinCoord() grid.Coord {
	if len(p.Cells) == 0 {
		return grid.Coord{}
	}
	m := p.Cells[0]
	for _, c := range p.Cells[1:] {
		if c.Less(m) {
			m = c
		}
	}
	return m
}

// UnreachableCellError reports filled cells that no catalog shape could
// cover. Cell is the first such cell in raster order.
type UnreachableCellError struct {
	Cell  grid.Coord
	Count int
}

func (e *UnreachableCellError) Error() string {
	if e.Count > 1 {
		return fmt.Sprintf("no catalog shape fits filled cell %s (%d cells left uncovered)", e.Cell, e.Count)
	}
	return fmt.Sprintf("no catalog shape fits filled cell %s", e.Cell)
}

type options struct {
	workers int
}

// Option configures a sweep.
type Option func(*options)

// WithParallelLayers sweeps up to n layers concurrently. n <= 1 keeps the
// sweep on the calling goroutine.
func WithParallelLayers(n int) Option {
	return func(o *options) { o.workers = n }
}

// Decompose consumes g, claiming every filled cell, and returns the
// placements in raster anchor order. On success every originally filled
// cell is covered by exactly one placement. If any filled cell cannot be
// covered the result is nil and the error is *UnreachableCellError; g is
// left with those cells still filled.
func Decompose(g *grid.Grid, c *catalog.Catalog, opts ...Option) ([]Placement, error) {
	if c == nil || c.Len() == 0 {
		return nil, catalog.ErrEmptyCatalog
	}
	o := options{workers: 1}
	for _, opt := range opts {
		opt(&o)
	}

	shapes := c.ByArea()
	dims := g.Dims()
	layers := make([]layerResult, dims.Z)

	if o.workers <= 1 || dims.Z == 1 {
		for z := 0; z < dims.Z; z++ {
			layers[z] = sweepLayer(g, shapes, z)
		}
	} else {
		var eg errgroup.Group
		eg.SetLimit(o.workers)
		for z := 0; z < dims.Z; z++ {
			eg.Go(func() error {
				layers[z] = sweepLayer(g, shapes, z)
				return nil
			})
		}
		_ = eg.Wait()
	}

	var (
		total      int
		unreached  int
		firstStuck *grid.Coord
	)
	for z := range layers {
		total += len(layers[z].placements)
		unreached += len(layers[z].stuck)
		if firstStuck == nil && len(layers[z].stuck) > 0 {
			firstStuck = &layers[z].stuck[0]
		}
	}
	if firstStuck != nil {
		return nil, &UnreachableCellError{Cell: *firstStuck, Count: unreached}
	}

	out := make([]Placement, 0, total)
	for z := range layers {
		out = append(out, layers[z].placements...)
	}
	return out, nil
}

type layerResult struct {
	placements []Placement
	stuck      []grid.Coord
}

// sweepLayer runs the greedy raster sweep on one layer. It only touches
// cells with Z == z, so distinct layers may run concurrently.
func sweepLayer(g *grid.Grid, shapes []catalog.Shape, z int) layerResult {
	var res layerResult
	dims := g.Dims()
	for y := 0; y < dims.Y; y++ {
		for x := 0; x < dims.X; x++ {
			anchor := grid.Coord{X: x, Y: y, Z: z}
			if !g.Filled(anchor) {
				continue
			}
			placed := false
			for _, s := range shapes {
				if !fits(g, anchor, s) {
					continue
				}
				res.placements = append(res.placements, claim(g, anchor, s))
				placed = true
				break
			}
			if !placed {
				res.stuck = append(res.stuck, anchor)
			}
		}
	}
	return res
}

// fits checks bounds and occupancy for the whole footprint at anchor.
func fits(g *grid.Grid, anchor grid.Coord, s catalog.Shape) bool {
	for dr := 0; dr < s.Rows; dr++ {
		for dc := 0; dc < s.Cols; dc++ {
			if !g.Filled(grid.Coord{X: anchor.X + dc, Y: anchor.Y + dr, Z: anchor.Z}) {
				return false
			}
		}
	}
	return true
}

// claim marks the footprint claimed. Callers must have checked fits.
func claim(g *grid.Grid, anchor grid.Coord, s catalog.Shape) Placement {
	p := Placement{Shape: s.Name, Cells: make([]grid.Coord, 0, s.Area())}
	for dr := 0; dr < s.Rows; dr++ {
		for dc := 0; dc < s.Cols; dc++ {
			c := grid.Coord{X: anchor.X + dc, Y: anchor.Y + dr, Z: anchor.Z}
			g.Claim(c)
			p.Cells = append(p.Cells, c)
		}
	}
	return p
}
