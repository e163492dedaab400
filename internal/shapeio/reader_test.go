package shapeio

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// writeTestShapefile creates a shapefile of unit squares with GEOID, YEAR,
// and POP attributes, plus a sibling .prj file.
func writeTestShapefile(t *testing.T, dir string, years []string) string {
	t.Helper()
	path := filepath.Join(dir, "tracts.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	w.SetFields([]shp.Field{
		shp.StringField("GEOID", 16),
		shp.StringField("YEAR", 8),
		shp.FloatField("POP", 16, 4),
	})

	for i, year := range years {
		x := float64(i)
		poly := &shp.Polygon{
			Box:       shp.Box{MinX: x, MinY: 0, MaxX: x + 1, MaxY: 1},
			NumParts:  1,
			NumPoints: 5,
			Parts:     []int32{0},
			Points: []shp.Point{
				{X: x, Y: 0}, {X: x, Y: 1}, {X: x + 1, Y: 1}, {X: x + 1, Y: 0}, {X: x, Y: 0},
			},
		}
		w.Write(poly)
		w.WriteAttribute(i, 0, "g"+year)
		w.WriteAttribute(i, 1, year)
		w.WriteAttribute(i, 2, 100.0*float64(i+1))
	}
	w.Close()

	// go-shp v0.1.1's writer drops the dot when naming the DBF ("tractsdbf");
	// rename it to the "tracts.dbf" its reader looks for.
	base := strings.TrimSuffix(path, ".shp")
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))

	prj := filepath.Join(dir, "tracts.prj")
	require.NoError(t, os.WriteFile(prj, []byte(`GEOGCS["GCS_WGS_1984"]`), 0o644))

	return path
}

func TestReadShapefile(t *testing.T) {
	path := writeTestShapefile(t, t.TempDir(), []string{"2000", "2010"})

	c, err := ReadShapefile(path, ReadOptions{NumericFields: []string{"pop"}})
	require.NoError(t, err)

	require.Equal(t, 2, c.Len())
	assert.Equal(t, `GEOGCS["GCS_WGS_1984"]`, c.CRS)
	assert.Equal(t, "g2000", c.IDs[0])
	assert.Equal(t, "2000", c.Periods[0])
	assert.Equal(t, "2010", c.Periods[1])
	assert.Equal(t, 100.0, c.Value("pop", 0))
	assert.Equal(t, 200.0, c.Value("pop", 1))

	mp, ok := c.Geoms[0].(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 1, mp.NumPolygons())
}

func TestReadShapefilePeriodOverride(t *testing.T) {
	path := writeTestShapefile(t, t.TempDir(), []string{"2000", "2000"})

	c, err := ReadShapefile(path, ReadOptions{Period: "1995", NumericFields: []string{"pop"}})
	require.NoError(t, err)

	for _, p := range c.Periods {
		assert.Equal(t, "1995", p)
	}
}

func TestReadShapefileCRSOverride(t *testing.T) {
	path := writeTestShapefile(t, t.TempDir(), []string{"2000"})

	c, err := ReadShapefile(path, ReadOptions{CRS: "EPSG:5070", NumericFields: []string{"pop"}})
	require.NoError(t, err)
	assert.Equal(t, "EPSG:5070", c.CRS)
}

func TestReadShapefileMissingNumericField(t *testing.T) {
	path := writeTestShapefile(t, t.TempDir(), []string{"2000"})

	c, err := ReadShapefile(path, ReadOptions{NumericFields: []string{"pop", "housing"}})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(c.Value("housing", 0)))
}

func TestReadShapefileMissingIDField(t *testing.T) {
	path := writeTestShapefile(t, t.TempDir(), []string{"2000"})

	_, err := ReadShapefile(path, ReadOptions{IDField: "tract_id"})
	assert.ErrorContains(t, err, "tract_id")
}

func TestReadShapefileMissingFile(t *testing.T) {
	_, err := ReadShapefile(filepath.Join(t.TempDir(), "nope.shp"), ReadOptions{})
	assert.Error(t, err)
}

func TestPolygonToMultiPolygonMultiPart(t *testing.T) {
	poly := &shp.Polygon{
		NumParts:  2,
		NumPoints: 10,
		Parts:     []int32{0, 5},
		Points: []shp.Point{
			{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0},
			{X: 2, Y: 0}, {X: 2, Y: 1}, {X: 3, Y: 1}, {X: 3, Y: 0}, {X: 2, Y: 0},
		},
	}

	g := polygonToMultiPolygon(poly)
	require.NotNil(t, g)
	mp := g.(*geom.MultiPolygon)
	assert.Equal(t, 2, mp.NumPolygons())
}

func TestPolygonToMultiPolygonEmpty(t *testing.T) {
	assert.Nil(t, polygonToMultiPolygon(nil))
	assert.Nil(t, polygonToMultiPolygon(&shp.Polygon{}))
}
