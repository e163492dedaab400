// Package interp applies precomputed source-to-target intersection-area
// weight tables to attribute columns. It carries the extensive/intensive
// reallocation semantics; building the tables themselves (polygon overlay,
// raster masking) is the job of upstream collaborators.
package interp

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/harmonize/internal/frame"
)

// Entry is one cell of a sparse weight table: the intersection area between
// source polygon Source and target polygon Target.
type Entry struct {
	Source int
	Target int
	Area   float64
}

// Table is a sparse source-by-target intersection-area table. Row and
// column indices are positional against the source and target collections
// the table was built for.
type Table struct {
	NumSource int
	NumTarget int
	Entries   []Entry
}

// SourceSums returns, per source row, the total intersection area across
// all targets.
func (t *Table) SourceSums() []float64 {
	sums := make([]float64, t.NumSource)
	for _, e := range t.Entries {
		sums[e.Source] += e.Area
	}
	return sums
}

// TargetSums returns, per target row, the total intersection area across
// all sources.
func (t *Table) TargetSums() []float64 {
	sums := make([]float64, t.NumTarget)
	for _, e := range t.Entries {
		sums[e.Target] += e.Area
	}
	return sums
}

// Result holds interpolated attribute columns, row-aligned to the target
// collection. Extensive[k] is the reallocated column for the k-th extensive
// variable name passed to the interpolator, and likewise for Intensive.
type Result struct {
	Extensive [][]float64
	Intensive [][]float64
}

// AreaInterpolator reallocates attribute values from source polygons onto
// target polygons proportionally to overlapping area.
type AreaInterpolator interface {
	Interpolate(ctx context.Context, source, target *frame.Collection,
		extensive, intensive []string, allocateTotal bool) (*Result, error)
}

// RasterWeigher builds a weight table restricted to raster pixels whose
// land-cover code is in codes.
type RasterWeigher interface {
	WeightTable(ctx context.Context, source, target *frame.Collection,
		rasterPath string, codes []int, forceCRSMatch bool) (*Table, error)
}

// TableInterpolator reallocates attribute values using an already-built
// weight table in place of on-the-fly area weights.
type TableInterpolator interface {
	InterpolateTable(ctx context.Context, source, target *frame.Collection,
		extensive, intensive []string, allocateTotal bool, table *Table) (*Result, error)
}

// DefaultPopulatedCodes returns the NLCD land-cover codes treated as
// populated: 21-24, the four developed classes. A fresh slice is returned
// on every call so callers cannot alias shared state.
func DefaultPopulatedCodes() []int {
	return []int{21, 22, 23, 24}
}

// Apply reallocates the named source columns onto the target using the
// given weight table.
//
// For an extensive variable, target value j is sum_i v_i * w_ij with
// w_ij = a_ij / sum_k a_ik when allocateTotal is true, or a_ij / area_i
// (the source polygon's own planar area) when false. For an intensive
// variable, w_ij = a_ij / sum_k a_kj. Source NaNs and zero denominators
// contribute nothing.
func Apply(source, target *frame.Collection, table *Table,
	extensive, intensive []string, allocateTotal bool) (*Result, error) {
	if table.NumSource != source.Len() {
		return nil, eris.Errorf("interp: weight table has %d source rows, source has %d",
			table.NumSource, source.Len())
	}
	if table.NumTarget != target.Len() {
		return nil, eris.Errorf("interp: weight table has %d target rows, target has %d",
			table.NumTarget, target.Len())
	}

	var srcDenom []float64
	if allocateTotal {
		srcDenom = table.SourceSums()
	} else {
		srcDenom = make([]float64, source.Len())
		for i, g := range source.Geoms {
			srcDenom[i] = planarArea(g)
		}
	}
	tgtDenom := table.TargetSums()

	res := &Result{}
	for _, name := range extensive {
		col, err := source.Column(name)
		if err != nil {
			return nil, eris.Wrapf(err, "interp: extensive variable %q", name)
		}
		out := make([]float64, target.Len())
		for _, e := range table.Entries {
			v := col[e.Source]
			if math.IsNaN(v) || srcDenom[e.Source] == 0 {
				continue
			}
			out[e.Target] += v * e.Area / srcDenom[e.Source]
		}
		res.Extensive = append(res.Extensive, out)
	}

	for _, name := range intensive {
		col, err := source.Column(name)
		if err != nil {
			return nil, eris.Wrapf(err, "interp: intensive variable %q", name)
		}
		out := make([]float64, target.Len())
		for _, e := range table.Entries {
			v := col[e.Source]
			if math.IsNaN(v) || tgtDenom[e.Target] == 0 {
				continue
			}
			out[e.Target] += v * e.Area / tgtDenom[e.Target]
		}
		res.Intensive = append(res.Intensive, out)
	}

	return res, nil
}

// Applier implements TableInterpolator with Apply.
type Applier struct{}

// InterpolateTable implements TableInterpolator.
func (Applier) InterpolateTable(_ context.Context, source, target *frame.Collection,
	extensive, intensive []string, allocateTotal bool, table *Table) (*Result, error) {
	return Apply(source, target, table, extensive, intensive, allocateTotal)
}

// TableSet is an AreaInterpolator backed by weight tables keyed by source
// period. It serves the CLI path, where per-period tables arrive as CSV
// rather than from a polygon overlay engine.
type TableSet struct {
	tables map[string]*Table
}

// FromTables builds a TableSet. The map is copied.
func FromTables(tables map[string]*Table) *TableSet {
	ts := &TableSet{tables: make(map[string]*Table, len(tables))}
	for k, v := range tables {
		ts.tables[k] = v
	}
	return ts
}

// Interpolate implements AreaInterpolator. The source collection's first
// period tag selects the table.
func (ts *TableSet) Interpolate(_ context.Context, source, target *frame.Collection,
	extensive, intensive []string, allocateTotal bool) (*Result, error) {
	if source.Len() == 0 {
		return nil, eris.New("interp: empty source collection")
	}
	period := source.Periods[0]
	table, ok := ts.tables[period]
	if !ok {
		return nil, eris.Errorf("interp: no weight table for period %q", period)
	}
	return Apply(source, target, table, extensive, intensive, allocateTotal)
}
