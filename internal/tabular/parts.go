package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/plate.report/internal/decompose"
	"github.com/banshee-data/plate.report/internal/grid"
)

const (
	colPartType    = "Part Type"
	colCoordinates = "Coordinates"
)

// WriteParts writes one row per placement: the shape name and its cells as
// a literal list of integer triples, e.g. "[(0, 0, 0), (1, 0, 0)]".
func WriteParts(w io.Writer, placements []decompose.Placement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{colPartType, colCoordinates}); err != nil {
		return err
	}
	for _, p := range placements {
		if err := cw.Write([]string{p.Shape, FormatCoords(p.Cells)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadParts parses a parts CSV written by WriteParts.
func ReadParts(r io.Reader) ([]decompose.Placement, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parts CSV is empty")
		}
		return nil, fmt.Errorf("failed to read parts header: %w", err)
	}
	col, err := columnIndex(header, colPartType, colCoordinates)
	if err != nil {
		return nil, fmt.Errorf("parts CSV: %w", err)
	}

	var out []decompose.Placement
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parts CSV line %d: %w", line, err)
		}
		cells, err := ParseCoords(rec[col[colCoordinates]])
		if err != nil {
			return nil, fmt.Errorf("parts CSV line %d: %w", line, err)
		}
		if len(cells) == 0 {
			return nil, fmt.Errorf("parts CSV line %d: part %q has no coordinates", line, rec[col[colPartType]])
		}
		out = append(out, decompose.Placement{Shape: rec[col[colPartType]], Cells: cells})
	}
	return out, nil
}

// CountParts tallies rows per Part Type without decoding coordinates.
func CountParts(r io.Reader) (map[string]int, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parts CSV is empty")
		}
		return nil, fmt.Errorf("failed to read parts header: %w", err)
	}
	col, err := columnIndex(header, colPartType)
	if err != nil {
		return nil, fmt.Errorf("parts CSV: %w", err)
	}
	cr.FieldsPerRecord = -1

	counts := make(map[string]int)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parts CSV line %d: %w", line, err)
		}
		if col[colPartType] >= len(rec) {
			return nil, fmt.Errorf("parts CSV line %d: missing %s", line, colPartType)
		}
		counts[rec[col[colPartType]]]++
	}
	return counts, nil
}

// FormatCoords renders cells as "[(x, y, z), ...]".
func FormatCoords(cells []grid.Coord) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, c := range cells {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.String())
	}
	b.WriteByte(']')
	return b.String()
}

// ParseCoords parses the FormatCoords representation. Whitespace is
// ignored; square brackets around each triple are accepted as well.
func ParseCoords(s string) ([]grid.Coord, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("coordinates %q: expected a bracketed list", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return nil, nil
	}

	var out []grid.Coord
	for len(body) > 0 {
		open := body[0]
		var closing byte
		switch open {
		case '(':
			closing = ')'
		case '[':
			closing = ']'
		default:
			return nil, fmt.Errorf("coordinates %q: unexpected %q", s, open)
		}
		end := strings.IndexByte(body, closing)
		if end < 0 {
			return nil, fmt.Errorf("coordinates %q: unterminated triple", s)
		}
		c, err := parseTriple(body[1:end])
		if err != nil {
			return nil, fmt.Errorf("coordinates %q: %w", s, err)
		}
		out = append(out, c)

		body = strings.TrimSpace(body[end+1:])
		if strings.HasPrefix(body, ",") {
			body = strings.TrimSpace(body[1:])
		} else if body != "" {
			return nil, fmt.Errorf("coordinates %q: expected ',' between triples", s)
		}
	}
	return out, nil
}

func parseTriple(s string) (grid.Coord, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return grid.Coord{}, fmt.Errorf("triple %q: want 3 values, got %d", s, len(parts))
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return grid.Coord{}, fmt.Errorf("triple %q: %w", s, err)
		}
		v[i] = n
	}
	return grid.Coord{X: v[0], Y: v[1], Z: v[2]}, nil
}
