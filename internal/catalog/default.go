package catalog

// Names follow "<cols>x<rows>": "2x4" is two columns wide along X and four
// rows deep along Y.
var defaultShapes = []Shape{
	{Name: "5x5", Cols: 5, Rows: 5, UnitPrice: 0.59},
	{Name: "4x5", Cols: 4, Rows: 5, UnitPrice: 0.41},
	{Name: "4x4", Cols: 4, Rows: 4, UnitPrice: 0.36},
	{Name: "3x5", Cols: 3, Rows: 5, UnitPrice: 0.34},
	{Name: "3x4", Cols: 3, Rows: 4, UnitPrice: 0.32},
	{Name: "3x3", Cols: 3, Rows: 3, UnitPrice: 0.26},
	{Name: "2x5", Cols: 2, Rows: 5, UnitPrice: 0.27},
	{Name: "2x4", Cols: 2, Rows: 4, UnitPrice: 0.21},
	{Name: "2x3", Cols: 2, Rows: 3, UnitPrice: 0.17},
	{Name: "2x2", Cols: 2, Rows: 2, UnitPrice: 0.13},
	{Name: "1x5", Cols: 1, Rows: 5, UnitPrice: 0.26},
	{Name: "1x4", Cols: 1, Rows: 4, UnitPrice: 0.16},
	{Name: "1x3", Cols: 1, Rows: 3, UnitPrice: 0.15},
	{Name: "1x2", Cols: 1, Rows: 2, UnitPrice: 0.10},
	{Name: "1x1", Cols: 1, Rows: 1, UnitPrice: 0.07},
}

// Default returns the standard plate table.
func Default() *Catalog {
	c, err := New(defaultShapes)
	if err != nil {
		panic("default catalog: " + err.Error())
	}
	return c
}
