// Package tabular reads and writes the flat CSV artifacts exchanged with
// external tools: voxel lists, parts lists and bills of materials.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/plate.report/internal/grid"
)

var voxelHeader = []string{"x", "y", "z"}

// ReadVoxels parses a voxel CSV with an x,y,z header. Values must be
// non-negative integers; integral floats such as "3.0" are accepted.
func ReadVoxels(r io.Reader) ([]grid.Coord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("voxel CSV is empty")
		}
		return nil, fmt.Errorf("failed to read voxel header: %w", err)
	}
	col, err := columnIndex(header, voxelHeader...)
	if err != nil {
		return nil, fmt.Errorf("voxel CSV: %w", err)
	}

	var coords []grid.Coord
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("voxel CSV line %d: %w", line, err)
		}
		var v [3]int
		for i, name := range voxelHeader {
			n, err := parseIndex(rec[col[name]])
			if err != nil {
				return nil, fmt.Errorf("voxel CSV line %d, column %s: %w", line, name, err)
			}
			v[i] = n
		}
		coords = append(coords, grid.Coord{X: v[0], Y: v[1], Z: v[2]})
	}
	return coords, nil
}

// WriteVoxels writes coordinates with an x,y,z header.
func WriteVoxels(w io.Writer, coords []grid.Coord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(voxelHeader); err != nil {
		return err
	}
	for _, c := range coords {
		if err := cw.Write([]string{strconv.Itoa(c.X), strconv.Itoa(c.Y), strconv.Itoa(c.Z)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseIndex(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("invalid voxel index %q", s)
		}
		if f >= math.MaxInt64 || f <= math.MinInt64 {
			return 0, fmt.Errorf("voxel index out of range: %s", s)
		}
		n = int(f)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative voxel index %d", n)
	}
	return n, nil
}

// columnIndex maps required column names to their position in header.
func columnIndex(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	out := make(map[string]int, len(required))
	for _, name := range required {
		i, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		out[name] = i
	}
	return out, nil
}
