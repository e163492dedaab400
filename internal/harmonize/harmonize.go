// Package harmonize reduces a time series of polygon collections drawn on
// incompatible boundaries onto one target period's geometry, producing a
// single table of reallocated attribute values tagged by period.
//
// The geometric heavy lifting (polygon overlay, raster masking) lives
// behind the interp collaborator interfaces; this package owns the
// orchestration: validation, the per-period loop, and assembly.
package harmonize

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/harmonize/internal/frame"
	"github.com/sells-group/harmonize/internal/interp"
)

// Options configures one harmonization.
type Options struct {
	// TargetYear is the period whose geometry becomes the fixed frame.
	// It must appear in the inputs' period column.
	TargetYear string

	Method Method

	ExtensiveVariables []string
	IntensiveVariables []string

	// AllocateTotal allocates each source polygon's full value across its
	// intersections; when false the denominator is the source polygon's
	// own area.
	AllocateTotal bool

	// RasterPath, Codes, and ForceCRSMatch apply to MethodLandTypeArea
	// only. Nil Codes means the NLCD developed classes 21-24.
	RasterPath    string
	Codes         []int
	ForceCRSMatch bool
}

// Harmonizer runs harmonizations against a fixed set of interpolation
// primitives.
type Harmonizer struct {
	area   interp.AreaInterpolator
	raster interp.RasterWeigher
	tables interp.TableInterpolator
}

// New returns a Harmonizer. The raster weigher and table interpolator may
// be nil when MethodLandTypeArea is never requested.
func New(area interp.AreaInterpolator, raster interp.RasterWeigher, tables interp.TableInterpolator) *Harmonizer {
	return &Harmonizer{area: area, raster: raster, tables: tables}
}

// Harmonize validates the inputs, reinterpolates every period present in
// them onto the target period's geometry, and returns the combined table:
// one row per (target polygon, source period) pair, geometry unchanged,
// attribute values reallocated. Any failure aborts with no partial output.
func (h *Harmonizer) Harmonize(ctx context.Context, inputs []*frame.Collection, opts Options) (*frame.Collection, error) {
	if err := h.validate(inputs, opts); err != nil {
		return nil, err
	}

	crs := inputs[0].CRS
	working := frame.Concat(inputs...)
	periods := working.DistinctPeriods()

	target := working.FilterPeriod(opts.TargetYear)
	if target.Len() == 0 {
		return nil, eris.Errorf("harmonize: target period %q not present in inputs", opts.TargetYear)
	}

	log := zap.L().With(
		zap.String("component", "harmonize"),
		zap.String("target_year", opts.TargetYear),
		zap.String("method", opts.Method.String()),
	)

	// Seed the target period with its raw data; the loop below overwrites
	// it with the self-reinterpolated version while keeping its position
	// first in the output.
	order := []string{opts.TargetYear}
	results := map[string]*frame.Collection{
		opts.TargetYear: target.Copy(),
	}

	for _, p := range periods {
		source := working.FilterPeriod(p)

		res, err := h.interpolate(ctx, source, target, opts)
		if err != nil {
			return nil, eris.Wrapf(err, "harmonize: period %q", p)
		}
		if err := checkAligned(res, opts, target.Len()); err != nil {
			return nil, eris.Wrapf(err, "harmonize: period %q", p)
		}

		out := frame.New(crs)
		// Register columns up front so output order is extensive then
		// intensive, not map order.
		for _, name := range opts.ExtensiveVariables {
			_ = out.SetColumn(name, nil)
		}
		for _, name := range opts.IntensiveVariables {
			_ = out.SetColumn(name, nil)
		}
		for i := 0; i < target.Len(); i++ {
			values := make(map[string]float64, len(opts.ExtensiveVariables)+len(opts.IntensiveVariables))
			for k, name := range opts.ExtensiveVariables {
				values[name] = res.Extensive[k][i]
			}
			for k, name := range opts.IntensiveVariables {
				values[name] = res.Intensive[k][i]
			}
			out.AppendRow(target.IDs[i], p, target.Geoms[i], values)
		}

		if _, seen := results[p]; !seen {
			order = append(order, p)
		}
		results[p] = out

		log.Debug("period interpolated", zap.String("period", p), zap.Int("rows", out.Len()))
	}

	ordered := make([]*frame.Collection, 0, len(order))
	for _, p := range order {
		ordered = append(ordered, results[p])
	}
	harmonized := frame.Concat(ordered...)
	harmonized.CRS = crs

	log.Info("harmonization complete",
		zap.Int("periods", len(periods)),
		zap.Int("target_polygons", target.Len()),
		zap.Int("rows", harmonized.Len()),
	)
	return harmonized, nil
}

// interpolate dispatches one period's source rows to the configured
// primitive for the requested method.
func (h *Harmonizer) interpolate(ctx context.Context, source, target *frame.Collection, opts Options) (*interp.Result, error) {
	switch opts.Method {
	case MethodArea:
		return h.area.Interpolate(ctx, source, target.Copy(),
			opts.ExtensiveVariables, opts.IntensiveVariables, opts.AllocateTotal)

	case MethodLandTypeArea:
		codes := opts.Codes
		if codes == nil {
			codes = interp.DefaultPopulatedCodes()
		}
		table, err := h.raster.WeightTable(ctx, source, target.Copy(),
			opts.RasterPath, codes, opts.ForceCRSMatch)
		if err != nil {
			return nil, err
		}
		return h.tables.InterpolateTable(ctx, source, target.Copy(),
			opts.ExtensiveVariables, opts.IntensiveVariables, opts.AllocateTotal, table)

	default:
		// Unreachable after validation.
		return nil, &UnsupportedMethodError{Method: opts.Method}
	}
}

// ValidateInputs applies the input contract without running any
// interpolation. Harmonize performs the same checks itself.
func (h *Harmonizer) ValidateInputs(inputs []*frame.Collection, opts Options) error {
	return h.validate(inputs, opts)
}

// validate applies the input contract before any primitive is invoked.
func (h *Harmonizer) validate(inputs []*frame.Collection, opts Options) error {
	if len(inputs) == 0 {
		return eris.New("harmonize: no input collections")
	}
	if len(opts.ExtensiveVariables) == 0 && len(opts.IntensiveVariables) == 0 {
		return ErrNoVariables
	}

	for i, c := range inputs {
		if c.CRS == "" {
			return &MissingCRSError{Index: i}
		}
	}
	want := inputs[0].CRS
	for i, c := range inputs {
		if c.CRS != want {
			return &CRSMismatchError{Index: i, Got: c.CRS, Want: want}
		}
	}

	switch opts.Method {
	case MethodArea:
		if h.area == nil {
			return eris.New("harmonize: no area interpolator configured")
		}
	case MethodLandTypeArea:
		if h.raster == nil || h.tables == nil {
			return eris.New("harmonize: no raster primitives configured")
		}
		if opts.RasterPath == "" {
			return eris.New("harmonize: land_type_area requires a raster path")
		}
	default:
		return &UnsupportedMethodError{Method: opts.Method}
	}

	return nil
}

// checkAligned verifies the primitive honored its row-alignment contract.
func checkAligned(res *interp.Result, opts Options, rows int) error {
	if res == nil {
		return eris.New("interpolator returned no result")
	}
	if len(res.Extensive) != len(opts.ExtensiveVariables) {
		return eris.Errorf("interpolator returned %d extensive columns, want %d",
			len(res.Extensive), len(opts.ExtensiveVariables))
	}
	if len(res.Intensive) != len(opts.IntensiveVariables) {
		return eris.Errorf("interpolator returned %d intensive columns, want %d",
			len(res.Intensive), len(opts.IntensiveVariables))
	}
	for _, col := range res.Extensive {
		if len(col) != rows {
			return eris.Errorf("extensive column has %d rows, target has %d", len(col), rows)
		}
	}
	for _, col := range res.Intensive {
		if len(col) != rows {
			return eris.Errorf("intensive column has %d rows, target has %d", len(col), rows)
		}
	}
	return nil
}
