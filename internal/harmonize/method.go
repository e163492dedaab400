package harmonize

import "github.com/rotisserie/eris"

// Method selects the weighting strategy used to reallocate attribute
// values onto the target geometry.
type Method int

const (
	// MethodArea reallocates proportionally to overlapping polygon area.
	MethodArea Method = iota
	// MethodLandTypeArea restricts area weights to raster pixels whose
	// land-cover code marks them as populated.
	MethodLandTypeArea
	// MethodLandTypePoisson is reserved and not yet implemented.
	MethodLandTypePoisson
	// MethodLandTypeGaussian is reserved and not yet implemented.
	MethodLandTypeGaussian
)

// String returns the wire name of the method.
func (m Method) String() string {
	switch m {
	case MethodArea:
		return "area"
	case MethodLandTypeArea:
		return "land_type_area"
	case MethodLandTypePoisson:
		return "land_type_Poisson_regression"
	case MethodLandTypeGaussian:
		return "land_type_Gaussian_regression"
	default:
		return "unknown"
	}
}

// ParseMethod converts a wire name to a Method. The reserved regression
// names parse successfully; validation rejects them separately so the
// caller sees an unsupported-method error rather than a parse error.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "area":
		return MethodArea, nil
	case "land_type_area":
		return MethodLandTypeArea, nil
	case "land_type_Poisson_regression":
		return MethodLandTypePoisson, nil
	case "land_type_Gaussian_regression":
		return MethodLandTypeGaussian, nil
	default:
		return 0, eris.Errorf("harmonize: unknown weighting method %q", s)
	}
}
