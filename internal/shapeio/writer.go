package shapeio

import (
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/harmonize/internal/frame"
)

// WriteOptions names the identifier and period columns in exported output.
type WriteOptions struct {
	IDColumn     string // default "geoid"
	PeriodColumn string // default "year"
}

func (o WriteOptions) withDefaults() WriteOptions {
	if o.IDColumn == "" {
		o.IDColumn = "geoid"
	}
	if o.PeriodColumn == "" {
		o.PeriodColumn = "year"
	}
	return o
}

// WriteGeoJSON writes the collection as a GeoJSON FeatureCollection.
// NaN attribute values become JSON nulls.
func WriteGeoJSON(c *frame.Collection, path string, opts WriteOptions) error {
	opts = opts.withDefaults()

	fc := &geojson.FeatureCollection{}
	names := c.ColumnNames()
	for i := 0; i < c.Len(); i++ {
		props := make(map[string]interface{}, len(names)+2)
		props[opts.IDColumn] = c.IDs[i]
		props[opts.PeriodColumn] = c.Periods[i]
		for _, name := range names {
			v := c.Value(name, i)
			if math.IsNaN(v) {
				props[name] = nil
			} else {
				props[name] = v
			}
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         c.IDs[i],
			Geometry:   c.Geoms[i],
			Properties: props,
		})
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "shapeio: marshal GeoJSON")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "shapeio: write %s", path)
	}
	return nil
}

// WriteCSV writes the collection's attributes as CSV, geometry omitted.
// NaN values become empty fields.
func WriteCSV(c *frame.Collection, path string, opts WriteOptions) error {
	opts = opts.withDefaults()

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "shapeio: create %s", path)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	names := c.ColumnNames()

	header := append([]string{opts.IDColumn, opts.PeriodColumn}, names...)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "shapeio: write CSV header")
	}

	for i := 0; i < c.Len(); i++ {
		row := make([]string, 0, len(header))
		row = append(row, c.IDs[i], c.Periods[i])
		for _, name := range names {
			v := c.Value(name, i)
			if math.IsNaN(v) {
				row = append(row, "")
			} else {
				row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
			}
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "shapeio: write CSV row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "shapeio: flush CSV")
	}
	return nil
}
