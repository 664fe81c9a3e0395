package decompose

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/plate.report/internal/catalog"
	"github.com/banshee-data/plate.report/internal/grid"
)

func mustCatalog(t *testing.T, shapes ...catalog.Shape) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(shapes)
	require.NoError(t, err)
	return c
}

func fullGrid(t *testing.T, d grid.Dims) *grid.Grid {
	t.Helper()
	g, err := grid.New(d)
	require.NoError(t, err)
	for z := 0; z < d.Z; z++ {
		for y := 0; y < d.Y; y++ {
			for x := 0; x < d.X; x++ {
				require.NoError(t, g.Set(grid.Coord{X: x, Y: y, Z: z}, true))
			}
		}
	}
	return g
}

var (
	unit   = catalog.Shape{Name: "1x1", Rows: 1, Cols: 1, UnitPrice: 0.07}
	tall   = catalog.Shape{Name: "1x2", Rows: 2, Cols: 1, UnitPrice: 0.10}
	square = catalog.Shape{Name: "2x2", Rows: 2, Cols: 2, UnitPrice: 0.13}
)

func TestDecompose_SingleCell(t *testing.T) {
	g, err := grid.FromCoords([]grid.Coord{{0, 0, 0}})
	require.NoError(t, err)

	got, err := Decompose(g, mustCatalog(t, unit))
	require.NoError(t, err)

	want := []Placement{{Shape: "1x1", Cells: []grid.Coord{{0, 0, 0}}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("placements mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, g.Count(), "grid should be fully claimed")
}

func TestDecompose_SquareFillsTwoByTwo(t *testing.T) {
	g := fullGrid(t, grid.Dims{X: 2, Y: 2, Z: 1})

	got, err := Decompose(g, mustCatalog(t, square, unit))
	require.NoError(t, err)

	want := []Placement{{
		Shape: "2x2",
		Cells: []grid.Coord{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("placements mismatch (-want +got):\n%s", diff)
	}
}

func TestDecompose_RemainderFallsThrough(t *testing.T) {
	g := fullGrid(t, grid.Dims{X: 3, Y: 2, Z: 1})

	got, err := Decompose(g, mustCatalog(t, square, tall, unit))
	require.NoError(t, err)

	want := []Placement{
		{Shape: "2x2", Cells: []grid.Coord{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}}},
		{Shape: "1x2", Cells: []grid.Coord{{2, 0, 0}, {2, 1, 0}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("placements mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 6, Summarize(got).Cells)
}

func TestDecompose_UnreachableCell(t *testing.T) {
	// An L of three cells: the 2x2 never fits and there is no 1x1.
	g, err := grid.FromCoords([]grid.Coord{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	require.NoError(t, err)

	got, err := Decompose(g, mustCatalog(t, square, tall))
	assert.Nil(t, got)

	var ue *UnreachableCellError
	require.True(t, errors.As(err, &ue), "want UnreachableCellError, got %v", err)
	assert.Equal(t, grid.Coord{X: 1, Y: 0, Z: 0}, ue.Cell)
	assert.Equal(t, 1, ue.Count)
	assert.Contains(t, ue.Error(), "(1, 0, 0)")
}

func TestDecompose_UnreachableReportsFirstLayer(t *testing.T) {
	g, err := grid.FromCoords([]grid.Coord{{3, 3, 2}, {0, 0, 1}})
	require.NoError(t, err)

	for _, workers := range []int{1, 4} {
		_, err := Decompose(g.Clone(), mustCatalog(t, square), WithParallelLayers(workers))
		var ue *UnreachableCellError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, grid.Coord{X: 0, Y: 0, Z: 1}, ue.Cell, "workers=%d", workers)
		assert.Equal(t, 2, ue.Count)
	}
}

func TestDecompose_NilCatalog(t *testing.T) {
	g := fullGrid(t, grid.Dims{X: 1, Y: 1, Z: 1})
	_, err := Decompose(g, nil)
	assert.ErrorIs(t, err, catalog.ErrEmptyCatalog)
	assert.Equal(t, 1, g.Count(), "grid must be untouched when the catalog is rejected")
}

func TestDecompose_GreedyPicksLargestAtFirstCell(t *testing.T) {
	g := fullGrid(t, grid.Dims{X: 6, Y: 7, Z: 2})
	c := catalog.Default()

	got, err := Decompose(g, c)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	assert.Equal(t, c.Largest().Name, got[0].Shape)
	assert.Equal(t, grid.Coord{}, got[0].Anchor())

	// The second layer starts with the largest shape as well.
	for _, p := range got {
		if p.Layer() == 1 {
			assert.Equal(t, "5x5", p.Shape)
			break
		}
	}
}

func TestDecompose_ShapeNeverCrossesLayers(t *testing.T) {
	// Column of cells stacked in Z: only 1x1 may be used.
	g, err := grid.FromCoords([]grid.Coord{{0, 0, 0}, {0, 0, 1}, {0, 0, 2}})
	require.NoError(t, err)

	got, err := Decompose(g, catalog.Default())
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, p := range got {
		assert.Equal(t, "1x1", p.Shape)
		assert.Equal(t, i, p.Layer())
	}
}

func randomGrid(t *testing.T, rng *rand.Rand, d grid.Dims, fill float64) *grid.Grid {
	t.Helper()
	g, err := grid.New(d)
	require.NoError(t, err)
	for z := 0; z < d.Z; z++ {
		for y := 0; y < d.Y; y++ {
			for x := 0; x < d.X; x++ {
				if rng.Float64() < fill {
					require.NoError(t, g.Set(grid.Coord{X: x, Y: y, Z: z}, true))
				}
			}
		}
	}
	return g
}

func TestDecompose_CoverageAndDisjointness(t *testing.T) {
	rng := rand.New(rand.NewSource(369))
	c := catalog.Default()

	for i := 0; i < 25; i++ {
		d := grid.Dims{X: 1 + rng.Intn(12), Y: 1 + rng.Intn(12), Z: 1 + rng.Intn(4)}
		g := randomGrid(t, rng, d, 0.3+0.6*rng.Float64())
		original := g.Coords()

		got, err := Decompose(g, c)
		require.NoError(t, err)

		seen := make(map[grid.Coord]int)
		for pi, p := range got {
			s, ok := c.Lookup(p.Shape)
			require.True(t, ok, "unknown shape %q", p.Shape)
			require.Len(t, p.Cells, s.Area(), "placement %d covers wrong cell count", pi)
			for _, cell := range p.Cells {
				assert.Equal(t, p.Layer(), cell.Z, "placement %d spans layers", pi)
				if prev, dup := seen[cell]; dup {
					t.Fatalf("cell %v claimed by placements %d and %d", cell, prev, pi)
				}
				seen[cell] = pi
			}
		}

		require.Len(t, seen, len(original), "iteration %d: covered cell count", i)
		for _, cell := range original {
			_, ok := seen[cell]
			assert.True(t, ok, "cell %v not covered", cell)
		}
		assert.Equal(t, 0, g.Count())
	}
}

func TestDecompose_RasterAnchorOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g := randomGrid(t, rng, grid.Dims{X: 9, Y: 8, Z: 3}, 0.8)

	got, err := Decompose(g, catalog.Default())
	require.NoError(t, err)

	rasterIndex := func(c grid.Coord) int { return (c.Z*8+c.Y)*9 + c.X }
	for i := 1; i < len(got); i++ {
		assert.Less(t, rasterIndex(got[i-1].Anchor()), rasterIndex(got[i].Anchor()))
	}
}

func TestDecompose_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := randomGrid(t, rng, grid.Dims{X: 11, Y: 10, Z: 5}, 0.75)
	c := catalog.Default()

	first, err := Decompose(base.Clone(), c)
	require.NoError(t, err)
	second, err := Decompose(base.Clone(), c)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated sweeps differ (-first +second):\n%s", diff)
	}

	parallel, err := Decompose(base.Clone(), c, WithParallelLayers(3))
	require.NoError(t, err)
	if diff := cmp.Diff(first, parallel); diff != "" {
		t.Errorf("parallel sweep differs from sequential (-seq +par):\n%s", diff)
	}
}

func TestPlacement_MinCoord(t *testing.T) {
	p := Placement{Shape: "2x2", Cells: []grid.Coord{{3, 1, 0}, {4, 1, 0}, {3, 2, 0}, {4, 2, 0}}}
	assert.Equal(t, grid.Coord{X: 3, Y: 1, Z: 0}, p.MinCoord())
	assert.Equal(t, grid.Coord{}, Placement{}.MinCoord())
}

func TestSummarize(t *testing.T) {
	st := Summarize([]Placement{
		{Shape: "2x2", Cells: make([]grid.Coord, 4)},
		{Shape: "1x1", Cells: []grid.Coord{{0, 0, 2}}},
		{Shape: "1x2", Cells: []grid.Coord{{1, 0, 2}, {1, 1, 2}}},
	})
	assert.Equal(t, 3, st.Placements)
	assert.Equal(t, 7, st.Cells)
	assert.Equal(t, []LayerStats{{Z: 0, Placements: 1, Cells: 4}, {Z: 2, Placements: 2, Cells: 3}}, st.Layers)
}
