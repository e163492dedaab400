package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/harmonize/internal/config"
	"github.com/sells-group/harmonize/internal/frame"
	"github.com/sells-group/harmonize/internal/job"
)

func testResult() *frame.Collection {
	sq := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 1, 0, 1, 1, 0, 1, 0, 0}, []int{10})
	c := frame.New("EPSG:4326")
	c.AppendRow("g1", "2010", sq, map[string]float64{"pop": 100})
	return c
}

func TestWriteResult_Formats(t *testing.T) {
	dir := t.TempDir()
	spec := &job.Spec{IndexCol: "geoid", TimeCol: "year"}

	for _, format := range []string{"geojson", "csv", "xlsx"} {
		t.Run(format, func(t *testing.T) {
			out := filepath.Join(dir, "out."+format)
			require.NoError(t, writeResult(testResult(), out, format, spec))

			info, err := os.Stat(out)
			require.NoError(t, err)
			assert.NotZero(t, info.Size())
		})
	}
}

func TestWriteResult_UnknownFormat(t *testing.T) {
	spec := &job.Spec{}
	err := writeResult(testResult(), filepath.Join(t.TempDir(), "out"), "shp", spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg = &config.Config{}
	cfg.Store.Driver = "oracle"

	_, err := openStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestJobDefaults_FromConfig(t *testing.T) {
	cfg = &config.Config{}
	cfg.Harmonize.Method = "land_type_area"
	cfg.Harmonize.IndexCol = "tract"
	cfg.Harmonize.TimeCol = "period"
	cfg.Harmonize.AllocateTotal = false
	cfg.Harmonize.ForceCRSMatch = false
	cfg.Harmonize.Codes = []int{21, 22}

	d := jobDefaults()
	assert.Equal(t, "land_type_area", d.Method)
	assert.Equal(t, "tract", d.IndexCol)
	assert.Equal(t, "period", d.TimeCol)
	assert.False(t, d.AllocateTotal)
	assert.False(t, d.ForceCRSMatch)
	assert.Equal(t, []int{21, 22}, d.Codes)
}

func TestJobDefaults_BuiltinsWhenUnset(t *testing.T) {
	cfg = &config.Config{}

	d := jobDefaults()
	assert.Equal(t, "area", d.Method)
	assert.Equal(t, "geoid", d.IndexCol)
	assert.Equal(t, "year", d.TimeCol)
	assert.Nil(t, d.Codes)
}
