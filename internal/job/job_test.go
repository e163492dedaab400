package job

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/harmonize/internal/frame"
	"github.com/sells-group/harmonize/internal/harmonize"
)

func writeJob(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeJob(t, `
target_year: "2010"
extensive: [pop]
layers:
  - path: tracts_2000.shp
    year: "2000"
  - path: tracts_2010.shp
    year: "2010"
`)

	spec, err := Load(path, BuiltinDefaults())
	require.NoError(t, err)

	assert.Equal(t, "area", spec.Method)
	assert.Equal(t, "geoid", spec.IndexCol)
	assert.Equal(t, "year", spec.TimeCol)
	require.NotNil(t, spec.AllocateTotal)
	assert.True(t, *spec.AllocateTotal)
	require.NotNil(t, spec.ForceCRSMatch)
	assert.True(t, *spec.ForceCRSMatch)
	assert.Len(t, spec.Layers, 2)
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	path := writeJob(t, `
target_year: "2010"
method: land_type_area
extensive: [pop]
index_col: tract_id
time_col: period
allocate_total: false
raster: /data/nlcd.tif
codes: [21, 22]
layers:
  - path: tracts.shp
`)

	spec, err := Load(path, BuiltinDefaults())
	require.NoError(t, err)

	assert.Equal(t, "land_type_area", spec.Method)
	assert.Equal(t, "tract_id", spec.IndexCol)
	assert.Equal(t, "period", spec.TimeCol)
	assert.False(t, *spec.AllocateTotal)
	assert.Equal(t, []int{21, 22}, spec.Codes)

	opts, err := spec.Options()
	require.NoError(t, err)
	assert.Equal(t, harmonize.MethodLandTypeArea, opts.Method)
	assert.Equal(t, "/data/nlcd.tif", opts.RasterPath)
	assert.False(t, opts.AllocateTotal)
}

func TestLoadValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no target year", "layers:\n  - path: a.shp\n", "target_year"},
		{"no layers", "target_year: \"2010\"\n", "layer"},
		{"layer without path", "target_year: \"2010\"\nlayers:\n  - year: \"2000\"\n", "no path"},
		{"bad method", "target_year: \"2010\"\nmethod: nearest\nlayers:\n  - path: a.shp\n", "unknown weighting method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeJob(t, tt.yaml), BuiltinDefaults())
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadBadYAML(t *testing.T) {
	_, err := Load(writeJob(t, "target_year: [\n"), BuiltinDefaults())
	assert.Error(t, err)
}

func TestBuildWeightTables(t *testing.T) {
	dir := t.TempDir()
	weights := filepath.Join(dir, "w2000.csv")
	require.NoError(t, os.WriteFile(weights, []byte("s1,t1,1\ns2,t1,3\n"), 0o644))

	source := frame.New("EPSG:4326")
	source.AppendRow("s1", "2000", nil, map[string]float64{"pop": 1})
	source.AppendRow("s2", "2000", nil, map[string]float64{"pop": 2})
	target := frame.New("EPSG:4326")
	target.AppendRow("t1", "2010", nil, map[string]float64{"pop": 3})

	spec := &Spec{
		TargetYear: "2010",
		Layers: []Layer{
			{Path: "a.shp", Year: "2000", Weights: weights},
			{Path: "b.shp", Year: "2010"},
		},
	}

	tables, err := BuildWeightTables(spec, []*frame.Collection{source, target})
	require.NoError(t, err)
	require.Contains(t, tables, "2000")
	assert.Equal(t, 2, tables["2000"].NumSource)
	assert.Equal(t, 1, tables["2000"].NumTarget)
	assert.NotContains(t, tables, "2010")
}

func TestBuildWeightTablesPeriodFromLayer(t *testing.T) {
	dir := t.TempDir()
	weights := filepath.Join(dir, "w.csv")
	require.NoError(t, os.WriteFile(weights, []byte("s1,t1,1\n"), 0o644))

	source := frame.New("EPSG:4326")
	source.AppendRow("s1", "2000", nil, nil)
	target := frame.New("EPSG:4326")
	target.AppendRow("t1", "2010", nil, nil)

	// Layer year omitted: the period comes from the loaded records.
	spec := &Spec{
		TargetYear: "2010",
		Layers: []Layer{
			{Path: "a.shp", Weights: weights},
			{Path: "b.shp", Year: "2010"},
		},
	}

	tables, err := BuildWeightTables(spec, []*frame.Collection{source, target})
	require.NoError(t, err)
	assert.Contains(t, tables, "2000")
}

func TestBuildWeightTablesTargetMissing(t *testing.T) {
	source := frame.New("EPSG:4326")
	source.AppendRow("s1", "2000", nil, nil)

	spec := &Spec{TargetYear: "2010", Layers: []Layer{{Path: "a.shp", Year: "2000"}}}
	_, err := BuildWeightTables(spec, []*frame.Collection{source})
	assert.ErrorContains(t, err, "target period")
}

func TestBuildWeightTablesDuplicatePeriod(t *testing.T) {
	dir := t.TempDir()
	weights := filepath.Join(dir, "w.csv")
	require.NoError(t, os.WriteFile(weights, []byte("s1,s1,1\n"), 0o644))

	source := frame.New("EPSG:4326")
	source.AppendRow("s1", "2010", nil, nil)

	spec := &Spec{
		TargetYear: "2010",
		Layers: []Layer{
			{Path: "a.shp", Year: "2010", Weights: weights},
			{Path: "a.shp", Year: "2010", Weights: weights},
		},
	}
	_, err := BuildWeightTables(spec, []*frame.Collection{source, source})
	assert.ErrorContains(t, err, "duplicate weight table")
}
