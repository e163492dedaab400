package job

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/harmonize/internal/frame"
	"github.com/sells-group/harmonize/internal/interp"
	"github.com/sells-group/harmonize/internal/shapeio"
)

// LoadLayers reads every layer's shapefile concurrently, preserving layer
// order in the result. All requested variables are read as numeric fields.
func LoadLayers(ctx context.Context, spec *Spec) ([]*frame.Collection, error) {
	collections := make([]*frame.Collection, len(spec.Layers))

	numeric := append(append([]string(nil), spec.Extensive...), spec.Intensive...)

	g, _ := errgroup.WithContext(ctx)
	for i, layer := range spec.Layers {
		g.Go(func() error {
			c, err := shapeio.ReadShapefile(layer.Path, shapeio.ReadOptions{
				IDField:       spec.IndexCol,
				PeriodField:   spec.TimeCol,
				Period:        layer.Year,
				NumericFields: numeric,
			})
			if err != nil {
				return eris.Wrapf(err, "job: layer %d", i)
			}
			collections[i] = c
			zap.L().Debug("layer loaded",
				zap.String("path", layer.Path),
				zap.Int("rows", c.Len()),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return collections, nil
}

// BuildWeightTables loads every layer's CSV weight table, keyed by that
// layer's period and resolved against the row order the harmonizer will
// see: sources in concatenation order per period, targets in target-frame
// order. Layers without a weights path are skipped.
func BuildWeightTables(spec *Spec, layers []*frame.Collection) (map[string]*interp.Table, error) {
	working := frame.Concat(layers...)
	target := working.FilterPeriod(spec.TargetYear)
	if target.Len() == 0 {
		return nil, eris.Errorf("job: target period %q not present in any layer", spec.TargetYear)
	}

	tables := map[string]*interp.Table{}
	for i, layer := range spec.Layers {
		if layer.Weights == "" {
			continue
		}
		period := layer.Year
		if period == "" {
			periods := layers[i].DistinctPeriods()
			if len(periods) != 1 {
				return nil, eris.Errorf("job: layer %d spans %d periods, weight tables need exactly one",
					i, len(periods))
			}
			period = periods[0]
		}
		if _, dup := tables[period]; dup {
			return nil, eris.Errorf("job: duplicate weight table for period %q", period)
		}

		source := working.FilterPeriod(period)
		table, err := interp.LoadCSV(layer.Weights, source.IDs, target.IDs)
		if err != nil {
			return nil, eris.Wrapf(err, "job: layer %d", i)
		}
		tables[period] = table
	}
	return tables, nil
}
