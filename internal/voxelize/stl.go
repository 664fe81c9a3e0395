// Package voxelize rasterises a triangulated STL mesh into unit voxel
// coordinates suitable for building an occupancy grid.
package voxelize

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Vec3 is a point in mesh space.
type Vec3 struct {
	X, Y, Z float64
}

// Triangle is one mesh facet. Normals are ignored.
type Triangle [3]Vec3

const (
	binaryHeaderSize   = 80
	binaryTriangleSize = 50
)

// ReadSTL decodes a binary or ASCII STL stream.
func ReadSTL(r io.Reader) ([]Triangle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read STL: %w", err)
	}
	if isBinarySTL(data) {
		return readBinarySTL(data)
	}
	return readASCIISTL(data)
}

// isBinarySTL uses the declared triangle count rather than the "solid"
// prefix, which some binary exporters also write into the header.
func isBinarySTL(data []byte) bool {
	if len(data) < binaryHeaderSize+4 {
		return false
	}
	n := binary.LittleEndian.Uint32(data[binaryHeaderSize:])
	return uint64(len(data)) == uint64(binaryHeaderSize+4)+uint64(n)*binaryTriangleSize
}

func readBinarySTL(data []byte) ([]Triangle, error) {
	n := int(binary.LittleEndian.Uint32(data[binaryHeaderSize:]))
	tris := make([]Triangle, n)
	off := binaryHeaderSize + 4
	for i := 0; i < n; i++ {
		rec := data[off : off+binaryTriangleSize]
		// 12 bytes normal, then three vertices of 3 float32 each.
		for v := 0; v < 3; v++ {
			base := 12 + v*12
			tris[i][v] = Vec3{
				X: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[base:]))),
				Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[base+4:]))),
				Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[base+8:]))),
			}
		}
		off += binaryTriangleSize
	}
	return tris, nil
}

func readASCIISTL(data []byte) ([]Triangle, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	var (
		tris    []Triangle
		current Triangle
		nv      int
		line    int
		sawBody bool
	)
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "solid":
			sawBody = true
		case "facet":
			nv = 0
		case "vertex":
			if len(fields) != 4 {
				return nil, fmt.Errorf("STL line %d: vertex needs 3 values", line)
			}
			if nv >= 3 {
				return nil, fmt.Errorf("STL line %d: more than 3 vertices in facet", line)
			}
			var v [3]float64
			for i := range v {
				f, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("STL line %d: %w", line, err)
				}
				v[i] = f
			}
			current[nv] = Vec3{X: v[0], Y: v[1], Z: v[2]}
			nv++
		case "endfacet":
			if nv != 3 {
				return nil, fmt.Errorf("STL line %d: facet has %d vertices", line, nv)
			}
			tris = append(tris, current)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan STL: %w", err)
	}
	if !sawBody {
		return nil, fmt.Errorf("not an STL file: missing solid header")
	}
	return tris, nil
}

// WriteASCIISTL writes triangles with zero normals.
func WriteASCIISTL(w io.Writer, name string, tris []Triangle) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "solid %s\n", name)
	for _, t := range tris {
		bw.WriteString("facet normal 0 0 0\n  outer loop\n")
		for _, p := range t {
			fmt.Fprintf(bw, "    vertex %g %g %g\n", p.X, p.Y, p.Z)
		}
		bw.WriteString("  endloop\nendfacet\n")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)
	return bw.Flush()
}
