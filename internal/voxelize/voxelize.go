package voxelize

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/plate.report/internal/grid"
)

// ErrEmptyMesh is returned for a mesh without triangles.
var ErrEmptyMesh = errors.New("mesh has no triangles")

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min, Max Vec3
}

// MeshBounds returns the bounding box of all triangle vertices.
func MeshBounds(tris []Triangle) (Bounds, error) {
	if len(tris) == 0 {
		return Bounds{}, ErrEmptyMesh
	}
	b := Bounds{
		Min: Vec3{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	for _, t := range tris {
		for _, p := range t {
			b.Min = Vec3{math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y), math.Min(b.Min.Z, p.Z)}
			b.Max = Vec3{math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y), math.Max(b.Max.Z, p.Z)}
		}
	}
	return b, nil
}

// Result holds the voxel grid produced from a mesh.
type Result struct {
	Grid      *grid.Grid
	Origin    Vec3
	VoxelSize float64
}

// Voxelize marks every voxel touched by each triangle's bounding box.
// Grid extents are floor((max-min)/size)+1 per axis; a triangle spans
// voxel indices floor((tmin-min)/size) to ceil((tmax-min)/size), clamped
// to the grid. The result over-approximates thin or sloped surfaces.
func Voxelize(tris []Triangle, voxelSize float64) (*Result, error) {
	if voxelSize <= 0 || math.IsNaN(voxelSize) || math.IsInf(voxelSize, 0) {
		return nil, fmt.Errorf("voxel size must be positive, got %v", voxelSize)
	}
	b, err := MeshBounds(tris)
	if err != nil {
		return nil, err
	}

	for _, v := range []float64{b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("mesh has non-finite vertex coordinate %v", v)
		}
	}
	var dims grid.Dims
	for _, ax := range []struct {
		name   string
		lo, hi float64
		out    *int
	}{
		{"x", b.Min.X, b.Max.X, &dims.X},
		{"y", b.Min.Y, b.Max.Y, &dims.Y},
		{"z", b.Min.Z, b.Max.Z, &dims.Z},
	} {
		q := math.Floor((ax.hi - ax.lo) / voxelSize)
		if math.IsInf(q, 0) || q+1 > grid.MaxCells {
			return nil, fmt.Errorf("%w: %s extent %v at voxel size %v", grid.ErrTooLarge, ax.name, ax.hi-ax.lo, voxelSize)
		}
		*ax.out = int(q) + 1
	}
	g, err := grid.New(dims)
	if err != nil {
		return nil, err
	}

	clamp := func(v, hi int) int { return max(0, min(v, hi-1)) }
	lo := func(v, origin float64, hi int) int {
		return clamp(int(math.Floor((v-origin)/voxelSize)), hi)
	}
	up := func(v, origin float64, hi int) int {
		return clamp(int(math.Ceil((v-origin)/voxelSize)), hi)
	}

	for _, t := range tris {
		tb, _ := MeshBounds([]Triangle{t})
		x0, x1 := lo(tb.Min.X, b.Min.X, dims.X), up(tb.Max.X, b.Min.X, dims.X)
		y0, y1 := lo(tb.Min.Y, b.Min.Y, dims.Y), up(tb.Max.Y, b.Min.Y, dims.Y)
		z0, z1 := lo(tb.Min.Z, b.Min.Z, dims.Z), up(tb.Max.Z, b.Min.Z, dims.Z)
		for z := z0; z <= z1; z++ {
			for y := y0; y <= y1; y++ {
				for x := x0; x <= x1; x++ {
					_ = g.Set(grid.Coord{X: x, Y: y, Z: z}, true)
				}
			}
		}
	}

	return &Result{Grid: g, Origin: b.Min, VoxelSize: voxelSize}, nil
}
