// Package job defines the YAML job file describing one harmonization:
// which shapefile layers to load, the target period, the weighting method,
// and the variables to reallocate.
package job

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/harmonize/internal/harmonize"
)

// Layer is one input polygon dataset.
type Layer struct {
	// Path to the .shp file.
	Path string `yaml:"path"`
	// Year tags every record with this period. When empty the period is
	// read per record from the time column.
	Year string `yaml:"year"`
	// Weights optionally points to a source_id,target_id,area CSV weight
	// table for this layer's period (area method only).
	Weights string `yaml:"weights"`
}

// Spec is a harmonization job.
type Spec struct {
	TargetYear string `yaml:"target_year"`
	// Method is the weighting method wire name. Default "area".
	Method string `yaml:"method"`

	Extensive []string `yaml:"extensive"`
	Intensive []string `yaml:"intensive"`

	// AllocateTotal defaults to true.
	AllocateTotal *bool `yaml:"allocate_total"`

	// IndexCol and TimeCol name the identifier and period attributes in
	// the input layers. Defaults "geoid" and "year".
	IndexCol string `yaml:"index_col"`
	TimeCol  string `yaml:"time_col"`

	// Raster, Codes, and ForceCRSMatch apply to land_type_area only.
	// ForceCRSMatch defaults to true.
	Raster        string `yaml:"raster"`
	Codes         []int  `yaml:"codes"`
	ForceCRSMatch *bool  `yaml:"force_crs_match"`

	Layers []Layer `yaml:"layers"`
}

// Defaults fills job fields the file leaves unset, typically from
// application config.
type Defaults struct {
	Method        string
	IndexCol      string
	TimeCol       string
	AllocateTotal bool
	ForceCRSMatch bool
	Codes         []int
}

// BuiltinDefaults returns the conventional defaults: area weighting, geoid
// identifiers, year period tags, full allocation.
func BuiltinDefaults() Defaults {
	return Defaults{
		Method:        "area",
		IndexCol:      "geoid",
		TimeCol:       "year",
		AllocateTotal: true,
		ForceCRSMatch: true,
	}
}

// Load reads a job file, applies defaults, and validates it.
func Load(path string, d Defaults) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "job: read %s", path)
	}
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, eris.Wrapf(err, "job: parse %s", path)
	}
	spec.ApplyDefaults(d)
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// ApplyDefaults fills unset fields from d.
func (s *Spec) ApplyDefaults(d Defaults) {
	if s.Method == "" {
		s.Method = d.Method
	}
	if s.IndexCol == "" {
		s.IndexCol = d.IndexCol
	}
	if s.TimeCol == "" {
		s.TimeCol = d.TimeCol
	}
	if s.AllocateTotal == nil {
		v := d.AllocateTotal
		s.AllocateTotal = &v
	}
	if s.ForceCRSMatch == nil {
		v := d.ForceCRSMatch
		s.ForceCRSMatch = &v
	}
	if s.Codes == nil && d.Codes != nil {
		s.Codes = append([]int(nil), d.Codes...)
	}
}

// Validate checks the job for structural problems before any file is read.
func (s *Spec) Validate() error {
	if s.TargetYear == "" {
		return eris.New("job: target_year is required")
	}
	if len(s.Layers) == 0 {
		return eris.New("job: at least one layer is required")
	}
	for i, l := range s.Layers {
		if l.Path == "" {
			return eris.Errorf("job: layer %d has no path", i)
		}
	}
	if _, err := harmonize.ParseMethod(s.Method); err != nil {
		return err
	}
	return nil
}

// Options translates the job into harmonizer options. Validate must have
// passed.
func (s *Spec) Options() (harmonize.Options, error) {
	method, err := harmonize.ParseMethod(s.Method)
	if err != nil {
		return harmonize.Options{}, err
	}
	if s.AllocateTotal == nil || s.ForceCRSMatch == nil {
		s.ApplyDefaults(BuiltinDefaults())
	}
	return harmonize.Options{
		TargetYear:         s.TargetYear,
		Method:             method,
		ExtensiveVariables: s.Extensive,
		IntensiveVariables: s.Intensive,
		AllocateTotal:      *s.AllocateTotal,
		RasterPath:         s.Raster,
		Codes:              append([]int(nil), s.Codes...),
		ForceCRSMatch:      *s.ForceCRSMatch,
	}, nil
}
