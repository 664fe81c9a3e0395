package decompose

import "sort"

// Stats summarises a placement list.
type Stats struct {
	Placements int
	Cells      int
	Layers     []LayerStats
}

// LayerStats counts placements and covered cells on one layer.
type LayerStats struct {
	Z          int
	Placements int
	Cells      int
}

// Summarize computes totals and per-layer counts, layers ascending.
func Summarize(placements []Placement) Stats {
	st := Stats{Placements: len(placements)}
	byLayer := make(map[int]*LayerStats)
	for _, p := range placements {
		st.Cells += len(p.Cells)
		z := p.Layer()
		ls, ok := byLayer[z]
		if !ok {
			ls = &LayerStats{Z: z}
			byLayer[z] = ls
		}
		ls.Placements++
		ls.Cells += len(p.Cells)
	}
	for _, ls := range byLayer {
		st.Layers = append(st.Layers, *ls)
	}
	sort.Slice(st.Layers, func(i, j int) bool { return st.Layers[i].Z < st.Layers[j].Z })
	return st
}
