package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func square(x, y float64) geom.T {
	return geom.NewPolygonFlat(geom.XY, []float64{x, y, x + 1, y, x + 1, y + 1, x, y + 1, x, y}, []int{10})
}

func testCollection() *Collection {
	c := New("EPSG:4326")
	c.AppendRow("a", "2000", square(0, 0), map[string]float64{"pop": 100})
	c.AppendRow("b", "2000", square(1, 0), map[string]float64{"pop": 200})
	c.AppendRow("c", "2010", square(2, 0), map[string]float64{"pop": 300})
	return c
}

func TestAppendRowPadsNewColumns(t *testing.T) {
	c := New("EPSG:4326")
	c.AppendRow("a", "2000", nil, map[string]float64{"pop": 1})
	c.AppendRow("b", "2000", nil, map[string]float64{"pop": 2, "housing": 5})

	require.Equal(t, 2, c.Len())
	housing, err := c.Column("housing")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(housing[0]))
	assert.Equal(t, 5.0, housing[1])
}

func TestFilterPeriodFreshIndex(t *testing.T) {
	c := testCollection()
	got := c.FilterPeriod("2010")

	require.Equal(t, 1, got.Len())
	assert.Equal(t, "c", got.IDs[0])
	assert.Equal(t, 300.0, got.Value("pop", 0))
	assert.Equal(t, "EPSG:4326", got.CRS)
}

func TestFilterPeriodNoMatchKeepsColumns(t *testing.T) {
	c := testCollection()
	got := c.FilterPeriod("1990")

	assert.Equal(t, 0, got.Len())
	assert.Equal(t, []string{"pop"}, got.ColumnNames())
}

func TestDistinctPeriodsOrder(t *testing.T) {
	c := New("EPSG:4326")
	c.AppendRow("a", "2010", nil, nil)
	c.AppendRow("b", "2000", nil, nil)
	c.AppendRow("c", "2010", nil, nil)
	c.AppendRow("d", "1990", nil, nil)

	assert.Equal(t, []string{"2010", "2000", "1990"}, c.DistinctPeriods())
}

func TestCopyIsDeep(t *testing.T) {
	c := testCollection()
	cp := c.Copy()

	pop, err := cp.Column("pop")
	require.NoError(t, err)
	pop[0] = -1
	cp.IDs[0] = "zz"

	assert.Equal(t, 100.0, c.Value("pop", 0))
	assert.Equal(t, "a", c.IDs[0])
}

func TestConcatUnionsColumns(t *testing.T) {
	a := New("EPSG:4326")
	a.AppendRow("a", "2000", nil, map[string]float64{"pop": 1})
	b := New("EPSG:4326")
	b.AppendRow("b", "2010", nil, map[string]float64{"density": 2})

	got := Concat(a, b)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, []string{"pop", "density"}, got.ColumnNames())
	assert.Equal(t, 1.0, got.Value("pop", 0))
	assert.True(t, math.IsNaN(got.Value("pop", 1)))
	assert.True(t, math.IsNaN(got.Value("density", 0)))
	assert.Equal(t, 2.0, got.Value("density", 1))
}

func TestConcatSkipsNil(t *testing.T) {
	a := testCollection()
	got := Concat(nil, a)
	assert.Equal(t, a.Len(), got.Len())
	assert.Equal(t, "EPSG:4326", got.CRS)
}

func TestSetColumnLengthMismatch(t *testing.T) {
	c := testCollection()
	err := c.SetColumn("bad", []float64{1})
	assert.Error(t, err)
}

func TestValueMissing(t *testing.T) {
	c := testCollection()
	assert.True(t, math.IsNaN(c.Value("nope", 0)))
	assert.True(t, math.IsNaN(c.Value("pop", 99)))
}
