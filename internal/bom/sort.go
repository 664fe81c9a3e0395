package bom

import (
	"fmt"
	"sort"

	"github.com/banshee-data/plate.report/internal/catalog"
	"github.com/banshee-data/plate.report/internal/decompose"
	"github.com/banshee-data/plate.report/internal/grid"
)

// SortKey selects the presentation order of a parts list.
type SortKey string

const (
	// ByLocation orders by the smallest covered (x, y, z) of each placement.
	ByLocation SortKey = "location"
	// ByType orders by footprint area.
	ByType SortKey = "type"
)

// ParseSortKey validates a user-supplied sort key.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case ByLocation, ByType:
		return SortKey(s), nil
	default:
		return "", fmt.Errorf("invalid sort key %q: use %q or %q", s, ByLocation, ByType)
	}
}

// Order is a sort key plus direction.
type Order struct {
	By        SortKey
	Ascending bool
}

// SortPlacements returns a stably sorted copy of placements. Equal keys
// keep their input order in both directions.
func SortPlacements(placements []decompose.Placement, c *catalog.Catalog, o Order) ([]decompose.Placement, error) {
	out := make([]decompose.Placement, len(placements))
	copy(out, placements)

	switch o.By {
	case ByLocation:
		keys := make([]locKey, len(out))
		for i, p := range out {
			keys[i] = locKey{min: p.MinCoord(), idx: i}
		}
		sort.SliceStable(keys, func(i, j int) bool {
			if o.Ascending {
				return keys[i].min.Less(keys[j].min)
			}
			return keys[j].min.Less(keys[i].min)
		})
		return reorder(out, func(i int) int { return keys[i].idx }), nil

	case ByType:
		areas := make([]areaKey, len(out))
		for i, p := range out {
			s, ok := c.Lookup(p.Shape)
			if !ok {
				return nil, &UnknownShapeError{Name: p.Shape}
			}
			areas[i] = areaKey{area: s.Area(), idx: i}
		}
		sort.SliceStable(areas, func(i, j int) bool {
			if o.Ascending {
				return areas[i].area < areas[j].area
			}
			return areas[i].area > areas[j].area
		})
		return reorder(out, func(i int) int { return areas[i].idx }), nil

	default:
		return nil, fmt.Errorf("invalid sort key %q", o.By)
	}
}

type locKey struct {
	min grid.Coord
	idx int
}

type areaKey struct {
	area int
	idx  int
}

func reorder(in []decompose.Placement, src func(int) int) []decompose.Placement {
	out := make([]decompose.Placement, len(in))
	for i := range out {
		out[i] = in[src(i)]
	}
	return out
}
