package tabular

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/banshee-data/plate.report/internal/bom"
)

// TotalLabel marks the final grand-total row of a BOM CSV.
const TotalLabel = "Total"

var bomHeader = []string{colPartType, "Quantity", "Cost per Part", "Total Cost"}

// WriteBOM writes one row per line, prices rounded to cents, then a total
// row with the part count and grand total.
func WriteBOM(w io.Writer, b *bom.BOM) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(bomHeader); err != nil {
		return err
	}
	for _, l := range b.Lines {
		row := []string{
			l.PartType,
			strconv.Itoa(l.Quantity),
			money(l.UnitPrice),
			money(l.LineTotal),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{TotalLabel, strconv.Itoa(b.Parts()), "", money(b.Total)}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func money(v float64) string {
	return strconv.FormatFloat(bom.Round2(v), 'f', 2, 64)
}
