// Package decompose covers an occupancy grid with catalog plates.
//
// The sweep visits cells in raster order (layer, then row, then column,
// all ascending). At each still-filled cell it tries catalog shapes
// largest-area first and claims the first one whose whole footprint is in
// bounds and unclaimed. There is no backtracking and no search over other
// anchors, so the output is fully determined by the grid and the catalog
// ranking.
//
// Shapes never span layers, which makes layers independent: the parallel
// mode sweeps each layer on its own goroutine and concatenates results in
// layer order, producing exactly the sequential output.
//
// Dependency rule: this package knows grids and catalogs only. Pricing
// lives in bom, file formats in tabular.
package decompose
