// Package render draws decomposition results: per-layer PNG layouts and a
// BOM chart with gonum/plot, and an interactive 3D HTML view with
// go-echarts.
package render

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/plate.report/internal/bom"
	"github.com/banshee-data/plate.report/internal/decompose"
	"github.com/banshee-data/plate.report/internal/grid"
)

// Size is the output size of PNG plots.
type Size struct {
	Width, Height vg.Length
}

// DefaultSize matches the square layer view.
var DefaultSize = Size{Width: 8 * vg.Inch, Height: 8 * vg.Inch}

// ByLayer groups placements by Z, keeping their relative order.
func ByLayer(placements []decompose.Placement) map[int][]decompose.Placement {
	out := make(map[int][]decompose.Placement)
	for _, p := range placements {
		out[p.Layer()] = append(out[p.Layer()], p)
	}
	return out
}

// LayerPlot builds a top-down plot of one layer: every placement is a
// filled rectangle in its part-type colour, outlined in black.
func LayerPlot(z int, dims grid.Dims, placements []decompose.Placement, pal *Palette) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Layer %d - %d parts", z, len(placements))
	p.X.Label.Text = "X (column)"
	p.Y.Label.Text = "Y (row)"
	p.X.Min, p.X.Max = 0, float64(dims.X)
	p.Y.Min, p.Y.Max = 0, float64(dims.Y)
	p.Add(plotter.NewGrid())

	legend := make(map[string]bool)
	for _, pl := range placements {
		if pl.Layer() != z {
			return nil, fmt.Errorf("placement %s anchored at %s is not on layer %d", pl.Shape, pl.Anchor(), z)
		}
		poly, err := plotter.NewPolygon(footprint(pl))
		if err != nil {
			return nil, err
		}
		poly.Color = pal.Color(pl.Shape)
		poly.LineStyle.Color = color.Black
		poly.LineStyle.Width = vg.Points(0.75)
		p.Add(poly)
		if !legend[pl.Shape] {
			legend[pl.Shape] = true
			p.Legend.Add(pl.Shape, poly)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// footprint returns the outline of the bounding rectangle of a placement's
// cells in cell units.
func footprint(pl decompose.Placement) plotter.XYs {
	if len(pl.Cells) == 0 {
		return nil
	}
	minX, minY := pl.Cells[0].X, pl.Cells[0].Y
	maxX, maxY := minX, minY
	for _, c := range pl.Cells[1:] {
		minX, maxX = min(minX, c.X), max(maxX, c.X)
		minY, maxY = min(minY, c.Y), max(maxY, c.Y)
	}
	x0, y0 := float64(minX), float64(minY)
	x1, y1 := float64(maxX+1), float64(maxY+1)
	return plotter.XYs{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

// WriteLayerPNG renders one layer as PNG.
func WriteLayerPNG(w io.Writer, z int, dims grid.Dims, placements []decompose.Placement, pal *Palette, size Size) error {
	p, err := LayerPlot(z, dims, placements, pal)
	if err != nil {
		return err
	}
	return writePNG(w, p, size)
}

// BOMPlot builds a bar chart of quantity per part type.
func BOMPlot(b *bom.BOM) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Bill of materials - %d parts, total %.2f", b.Parts(), bom.Round2(b.Total))
	p.Y.Label.Text = "Quantity"

	values := make(plotter.Values, len(b.Lines))
	names := make([]string, len(b.Lines))
	for i, l := range b.Lines {
		values[i] = float64(l.Quantity)
		names[i] = l.PartType
	}
	if len(values) == 0 {
		return p, nil
	}

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, err
	}
	bars.Color = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)
	return p, nil
}

// WriteBOMPNG renders the BOM bar chart as PNG.
func WriteBOMPNG(w io.Writer, b *bom.BOM, size Size) error {
	p, err := BOMPlot(b)
	if err != nil {
		return err
	}
	return writePNG(w, p, size)
}

func writePNG(w io.Writer, p *plot.Plot, size Size) error {
	wt, err := p.WriterTo(size.Width, size.Height, "png")
	if err != nil {
		return fmt.Errorf("create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
