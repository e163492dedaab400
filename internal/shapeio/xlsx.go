package shapeio

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/harmonize/internal/frame"
)

// WriteXLSX writes the collection's attributes to a single-sheet workbook,
// geometry omitted. NaN values become empty cells.
func WriteXLSX(c *frame.Collection, path, sheetName string, opts WriteOptions) error {
	opts = opts.withDefaults()
	if sheetName == "" {
		sheetName = "harmonized"
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "shapeio: add sheet %q", sheetName)
	}

	names := c.ColumnNames()

	header := sheet.AddRow()
	header.AddCell().SetString(opts.IDColumn)
	header.AddCell().SetString(opts.PeriodColumn)
	for _, name := range names {
		header.AddCell().SetString(name)
	}

	for i := 0; i < c.Len(); i++ {
		row := sheet.AddRow()
		row.AddCell().SetString(c.IDs[i])
		row.AddCell().SetString(c.Periods[i])
		for _, name := range names {
			cell := row.AddCell()
			if v := c.Value(name, i); !math.IsNaN(v) {
				cell.SetFloat(v)
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "shapeio: save %s", path)
	}
	return nil
}
