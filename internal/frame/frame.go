// Package frame provides an in-memory attribute table with row-aligned
// geometry, the working representation for polygon collections moving
// through the harmonization pipeline.
package frame

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Collection is a set of geometric records with row-aligned attributes.
// Rows are positional: IDs, Periods, Geoms, and every numeric column all
// have the same length and index i across them refers to one record.
type Collection struct {
	// CRS is the shared coordinate reference system of every geometry in
	// the collection, e.g. "EPSG:4326". Empty means undefined.
	CRS string

	IDs     []string
	Periods []string
	Geoms   []geom.T

	names   []string
	columns map[string][]float64
}

// New returns an empty collection with the given CRS.
func New(crs string) *Collection {
	return &Collection{
		CRS:     crs,
		columns: map[string][]float64{},
	}
}

// Len returns the number of rows.
func (c *Collection) Len() int {
	return len(c.IDs)
}

// ColumnNames returns the numeric column names in insertion order.
func (c *Collection) ColumnNames() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Column returns the named numeric column, row-aligned to the collection.
func (c *Collection) Column(name string) ([]float64, error) {
	col, ok := c.columns[name]
	if !ok {
		return nil, eris.Errorf("frame: no column %q", name)
	}
	return col, nil
}

// HasColumn reports whether the named numeric column exists.
func (c *Collection) HasColumn(name string) bool {
	_, ok := c.columns[name]
	return ok
}

// SetColumn adds or replaces a numeric column. The column length must match
// the collection's row count.
func (c *Collection) SetColumn(name string, values []float64) error {
	if len(values) != c.Len() {
		return eris.Errorf("frame: column %q has %d values, collection has %d rows",
			name, len(values), c.Len())
	}
	if _, exists := c.columns[name]; !exists {
		c.names = append(c.names, name)
	}
	c.columns[name] = values
	return nil
}

// AppendRow appends one record. Values must be keyed by existing or new
// column names; columns absent from values are padded with NaN.
func (c *Collection) AppendRow(id, period string, g geom.T, values map[string]float64) {
	n := c.Len()
	c.IDs = append(c.IDs, id)
	c.Periods = append(c.Periods, period)
	c.Geoms = append(c.Geoms, g)

	for name := range values {
		if _, ok := c.columns[name]; !ok {
			c.names = append(c.names, name)
			c.columns[name] = nanSlice(n)
		}
	}
	for _, name := range c.names {
		v, ok := values[name]
		if !ok {
			v = math.NaN()
		}
		c.columns[name] = append(c.columns[name], v)
	}
}

// Value returns the value of the named column at row i.
func (c *Collection) Value(name string, i int) float64 {
	col, ok := c.columns[name]
	if !ok || i < 0 || i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

// Copy returns a deep copy of the collection. Geometries are shared, not
// cloned; the pipeline never mutates geometry in place.
func (c *Collection) Copy() *Collection {
	out := &Collection{
		CRS:     c.CRS,
		IDs:     append([]string(nil), c.IDs...),
		Periods: append([]string(nil), c.Periods...),
		Geoms:   append([]geom.T(nil), c.Geoms...),
		names:   append([]string(nil), c.names...),
		columns: make(map[string][]float64, len(c.columns)),
	}
	for name, col := range c.columns {
		out.columns[name] = append([]float64(nil), col...)
	}
	return out
}

// FilterPeriod returns a new collection holding only the rows whose period
// tag equals p, with a fresh 0-based positional index.
func (c *Collection) FilterPeriod(p string) *Collection {
	out := New(c.CRS)
	for i := range c.IDs {
		if c.Periods[i] != p {
			continue
		}
		values := make(map[string]float64, len(c.names))
		for _, name := range c.names {
			values[name] = c.columns[name][i]
		}
		out.AppendRow(c.IDs[i], c.Periods[i], c.Geoms[i], values)
	}
	// Preserve column order and presence even when no rows match.
	for _, name := range c.names {
		if !out.HasColumn(name) {
			_ = out.SetColumn(name, nanSlice(out.Len()))
		}
	}
	return out
}

// DistinctPeriods returns the distinct period tags in order of first
// appearance.
func (c *Collection) DistinctPeriods() []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range c.Periods {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Concat appends all rows of the given collections into one new collection,
// unioning columns: a column absent from one input is NaN-filled for that
// input's rows. The result carries the first collection's CRS.
func Concat(collections ...*Collection) *Collection {
	var crs string
	for _, c := range collections {
		if c != nil {
			crs = c.CRS
			break
		}
	}
	out := New(crs)
	for _, c := range collections {
		if c == nil {
			continue
		}
		for i := range c.IDs {
			values := make(map[string]float64, len(c.names))
			for _, name := range c.names {
				values[name] = c.columns[name][i]
			}
			out.AppendRow(c.IDs[i], c.Periods[i], c.Geoms[i], values)
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
