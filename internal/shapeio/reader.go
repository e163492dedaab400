// Package shapeio moves polygon collections between disk formats and the
// in-memory frame representation: shapefile in, GeoJSON/CSV/XLSX out.
package shapeio

import (
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/harmonize/internal/frame"
)

// ReadOptions configures shapefile ingestion.
type ReadOptions struct {
	// IDField names the attribute holding the record identifier.
	// Default "geoid".
	IDField string
	// PeriodField names the attribute holding the time-period tag.
	// Default "year". Ignored when Period is set.
	PeriodField string
	// Period, when non-empty, tags every record with this period instead
	// of reading PeriodField.
	Period string
	// NumericFields lists the attribute columns to carry as numeric
	// variables. Unparseable or empty values become NaN.
	NumericFields []string
	// CRS overrides the CRS read from the sibling .prj file.
	CRS string
}

// ReadShapefile reads polygon records from a shapefile into a collection.
// Records with no geometry or an unsupported shape type are skipped.
func ReadShapefile(path string, opts ReadOptions) (*frame.Collection, error) {
	if opts.IDField == "" {
		opts.IDField = "geoid"
	}
	if opts.PeriodField == "" {
		opts.PeriodField = "year"
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapeio: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	// Build field name -> index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	idIdx, ok := fieldIdx[strings.ToLower(opts.IDField)]
	if !ok {
		return nil, eris.Errorf("shapeio: %s: no field %q", path, opts.IDField)
	}
	periodIdx := -1
	if opts.Period == "" {
		periodIdx, ok = fieldIdx[strings.ToLower(opts.PeriodField)]
		if !ok {
			return nil, eris.Errorf("shapeio: %s: no field %q", path, opts.PeriodField)
		}
	}

	crs := opts.CRS
	if crs == "" {
		crs = readPRJ(path)
	}

	out := frame.New(crs)
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		g := shapeToGeom(shape)
		if g == nil {
			skipped++
			continue
		}

		id := attribute(reader, idIdx)
		period := opts.Period
		if periodIdx >= 0 {
			period = attribute(reader, periodIdx)
		}

		values := make(map[string]float64, len(opts.NumericFields))
		for _, name := range opts.NumericFields {
			idx, ok := fieldIdx[strings.ToLower(name)]
			if !ok {
				values[name] = math.NaN()
				continue
			}
			raw := attribute(reader, idx)
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				v = math.NaN()
			}
			values[name] = v
		}

		out.AppendRow(id, period, g, values)
	}

	if skipped > 0 {
		zap.L().Debug("shapeio: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return out, nil
}

// attribute reads a DBF attribute trimmed of padding.
func attribute(reader *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
}

// readPRJ returns the contents of the sibling .prj file, or "" when absent.
// The raw projection text serves as the CRS tag; inputs only need to agree
// on it, nothing here interprets it.
func readPRJ(shpPath string) string {
	base := strings.TrimSuffix(shpPath, ".shp")
	data, err := os.ReadFile(base + ".prj")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// shapeToGeom converts a shapefile polygon to a go-geom MultiPolygon.
// Non-polygon shapes convert to nil.
func shapeToGeom(shape shp.Shape) geom.T {
	p, ok := shape.(*shp.Polygon)
	if !ok {
		return nil
	}
	return polygonToMultiPolygon(p)
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("shapeio: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("shapeio: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
