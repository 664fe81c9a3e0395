package render

import (
	"fmt"
	"image/color"
	"sort"

	"github.com/banshee-data/plate.report/internal/decompose"
)

// Palette assigns each part type a stable colour, evenly spaced in hue in
// order of first appearance.
type Palette struct {
	order  []string
	colors map[string]color.RGBA
}

// NewPalette builds a palette for the part types used in placements.
func NewPalette(placements []decompose.Placement) *Palette {
	seen := make(map[string]bool)
	var order []string
	for _, p := range placements {
		if !seen[p.Shape] {
			seen[p.Shape] = true
			order = append(order, p.Shape)
		}
	}
	colors := generateColors(len(order))
	pal := &Palette{order: order, colors: make(map[string]color.RGBA, len(order))}
	for i, name := range order {
		pal.colors[name] = colors[i]
	}
	return pal
}

// Color returns the colour for a part type, mid grey if unknown.
func (p *Palette) Color(name string) color.RGBA {
	if c, ok := p.colors[name]; ok {
		return c
	}
	return color.RGBA{R: 128, G: 128, B: 128, A: 255}
}

// Hex returns the colour as "#rrggbb".
func (p *Palette) Hex(name string) string {
	c := p.Color(name)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Names returns part types sorted by name.
func (p *Palette) Names() []string {
	out := append([]string(nil), p.order...)
	sort.Strings(out)
	return out
}

func generateColors(n int) []color.RGBA {
	if n <= 0 {
		return nil
	}
	colors := make([]color.RGBA, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64
	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}
	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
