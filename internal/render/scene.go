package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/plate.report/internal/decompose"
	"github.com/banshee-data/plate.report/internal/grid"
)

// WriteSceneHTML renders every covered cell as a 3D scatter point, one
// series per part type, so the result can be orbited in a browser. Hovering
// a point shows the placement index it belongs to.
func WriteSceneHTML(w io.Writer, title string, dims grid.Dims, placements []decompose.Placement, pal *Palette) error {
	series := make(map[string][]opts.Chart3DData)
	for i, p := range placements {
		for _, c := range p.Cells {
			series[p.Shape] = append(series[p.Shape], opts.Chart3DData{
				Name:  fmt.Sprintf("#%d %s", i, p.Shape),
				Value: []interface{}{c.X, c.Y, c.Z},
				ItemStyle: &opts.ItemStyle{
					Color: pal.Hex(p.Shape),
				},
			})
		}
	}

	scatter := charts.NewScatter3D()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("grid=%s parts=%d", dims, len(placements))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "X", Min: 0, Max: dims.X}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "Y", Min: 0, Max: dims.Y}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "Z", Min: 0, Max: dims.Z}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	for _, name := range pal.Names() {
		data, ok := series[name]
		if !ok {
			continue
		}
		scatter.AddSeries(name, data)
	}

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render scene: %w", err)
	}
	return nil
}
